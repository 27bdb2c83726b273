package interfaces

import (
	"context"
	"time"
)

// EodSummarizer rolls a day's decision log into a per-symbol CSV report.
type EodSummarizer interface {
	// SummarizeDay writes the report for t's date and returns its path.
	// An empty path with a nil error means there was nothing to summarize.
	SummarizeDay(ctx context.Context, t time.Time) (csvPath string, err error)

	SummarizeToday(ctx context.Context) (csvPath string, err error)

	// ShouldRunNow reports whether the market has closed and today's report
	// has not been written yet.
	ShouldRunNow() (shouldRun bool, csvPath string)
}
