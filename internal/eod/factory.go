package eod

import (
	"github.com/jonboulle/clockwork"

	"trading-risk-engine/internal/eod/eodobs"
	"trading-risk-engine/internal/interfaces"
)

// NewSummarizer reads decision logs under dir, which falls back to
// TRADER_LOG_DIR and then "logs". A nil clock uses the wall clock.
func NewSummarizer(dir string, clock clockwork.Clock) interfaces.EodSummarizer {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &eodSummarizer{dir: logDir(dir), clock: clock}
}

// NewObserved is NewSummarizer with tracing and logs.
func NewObserved(dir string, clock clockwork.Clock) interfaces.EodSummarizer {
	return eodobs.Wrap(NewSummarizer(dir, clock))
}
