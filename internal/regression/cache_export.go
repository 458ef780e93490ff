package regression

// CacheSnapshotEntry is one fitness-cache entry in a form a host can
// persist and later feed back to ImportCache, independent of this
// package's internal cacheEntry representation.
type CacheSnapshotEntry struct {
	Key      string
	Consts   []float64
	Fitness  []float64
	Gradient []float64
	Hessian  []float64
}

// ExportCache returns every entry currently held in the fitness cache, for
// a host to persist as a warm-start seed for a future run over the same
// topology-and-dataset problem.
func (p *Problem) ExportCache() []CacheSnapshotEntry {
	snapshot := p.cache.snapshot()
	out := make([]CacheSnapshotEntry, 0, len(snapshot))
	for key, entry := range snapshot {
		out = append(out, CacheSnapshotEntry{
			Key:      key,
			Consts:   append([]float64(nil), entry.consts...),
			Fitness:  append([]float64(nil), entry.fitness...),
			Gradient: append([]float64(nil), entry.gradient...),
			Hessian:  append([]float64(nil), entry.hessian...),
		})
	}
	return out
}

// ImportCache seeds the fitness cache from a previously exported snapshot.
func (p *Problem) ImportCache(entries []CacheSnapshotEntry) {
	restored := make(map[string]cacheEntry, len(entries))
	for _, e := range entries {
		restored[e.Key] = cacheEntry{
			fitness:  append([]float64(nil), e.Fitness...),
			gradient: append([]float64(nil), e.Gradient...),
			hessian:  append([]float64(nil), e.Hessian...),
			consts:   append([]float64(nil), e.Consts...),
		}
	}
	p.cache.restore(restored)
}
