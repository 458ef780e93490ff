package search

import (
	"fmt"
	"io"
	"time"

	"github.com/dustin/go-humanize"
)

// WriteLog renders a GenerationLog entry to w in the same
// "gen=... fevals=... ideal_loss=... ndf_size=... nadir_complexity=..."
// shape the teacher's CLI used for progress lines, with generation and
// function-evaluation counts humanized for readability on long runs.
func WriteLog(w io.Writer, entry GenerationLog) {
	fmt.Fprintf(w, "gen=%s fevals=%s ideal_loss=%.6g ndf_size=%d nadir_complexity=%.6g\n",
		humanize.Comma(int64(entry.Generation)),
		humanize.Comma(int64(entry.Fevals)),
		entry.IdealLoss,
		entry.NdfSize,
		entry.NadirComplexity,
	)
}

// WriteLogSince is WriteLog plus a "run started ..." suffix rendered with
// humanize.Time, for CLI progress reporting.
func WriteLogSince(w io.Writer, entry GenerationLog, started time.Time) {
	fmt.Fprintf(w, "gen=%s fevals=%s ideal_loss=%.6g ndf_size=%d nadir_complexity=%.6g started=%s\n",
		humanize.Comma(int64(entry.Generation)),
		humanize.Comma(int64(entry.Fevals)),
		entry.IdealLoss,
		entry.NdfSize,
		entry.NadirComplexity,
		humanize.Time(started),
	)
}
