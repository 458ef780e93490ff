package storage

import (
	"encoding/json"
	"errors"

	"dcgp/internal/model"
)

const (
	CurrentSchemaVersion = 1
	CurrentCodecVersion  = 1
)

var ErrVersionMismatch = errors.New("record version mismatch")

func EncodeRunDiagnostics(d model.RunDiagnostics) ([]byte, error) {
	return json.Marshal(d)
}

func DecodeRunDiagnostics(data []byte) (model.RunDiagnostics, error) {
	var d model.RunDiagnostics
	if err := json.Unmarshal(data, &d); err != nil {
		return model.RunDiagnostics{}, err
	}
	if err := checkVersion(d.VersionedRecord); err != nil {
		return model.RunDiagnostics{}, err
	}
	return d, nil
}

func EncodeTopCandidates(records []model.TopCandidateRecord) ([]byte, error) {
	return json.Marshal(records)
}

func DecodeTopCandidates(data []byte) ([]model.TopCandidateRecord, error) {
	var records []model.TopCandidateRecord
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, err
	}
	for _, record := range records {
		if err := checkVersion(record.VersionedRecord); err != nil {
			return nil, err
		}
	}
	return records, nil
}

func EncodeCacheEntries(entries []model.CacheEntryRecord) ([]byte, error) {
	return json.Marshal(entries)
}

func DecodeCacheEntries(data []byte) ([]model.CacheEntryRecord, error) {
	var entries []model.CacheEntryRecord
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, err
	}
	for _, entry := range entries {
		if err := checkVersion(entry.VersionedRecord); err != nil {
			return nil, err
		}
	}
	return entries, nil
}

func checkVersion(v model.VersionedRecord) error {
	if v.SchemaVersion != CurrentSchemaVersion || v.CodecVersion != CurrentCodecVersion {
		return ErrVersionMismatch
	}
	return nil
}
