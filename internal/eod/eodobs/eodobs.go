package eodobs

import (
	"context"
	"time"

	"trading-risk-engine/internal/interfaces"
	"trading-risk-engine/internal/logger"
	"trading-risk-engine/internal/trace"
)

type observableEodSummarizer struct {
	summarizer interfaces.EodSummarizer
}

var _ interfaces.EodSummarizer = (*observableEodSummarizer)(nil)

// Wrap adds spans and logs around a summarizer.
func Wrap(summarizer interfaces.EodSummarizer) interfaces.EodSummarizer {
	return &observableEodSummarizer{
		summarizer: summarizer,
	}
}

func (oes *observableEodSummarizer) SummarizeDay(ctx context.Context, t time.Time) (string, error) {
	ctx, span := trace.StartSpan(ctx, "eod.SummarizeDay")
	defer span.End()

	logger.InfoSkip(ctx, 1, "Starting EOD decision summary",
		"date", t.Format("2006-01-02"),
	)

	csvPath, err := oes.summarizer.SummarizeDay(ctx, t)
	if err != nil {
		logger.ErrorWithErrSkip(ctx, 1, "EOD decision summary failed", err,
			"date", t.Format("2006-01-02"),
		)
		return "", err
	}

	if csvPath == "" {
		logger.InfoSkip(ctx, 1, "No decisions logged for EOD summary",
			"date", t.Format("2006-01-02"),
		)
		return "", nil
	}

	logger.InfoSkip(ctx, 1, "EOD decision summary written",
		"date", t.Format("2006-01-02"),
		"csv_path", csvPath,
	)

	return csvPath, nil
}

func (oes *observableEodSummarizer) SummarizeToday(ctx context.Context) (string, error) {
	ctx, span := trace.StartSpan(ctx, "eod.SummarizeToday")
	defer span.End()

	csvPath, err := oes.summarizer.SummarizeToday(ctx)
	if err != nil {
		logger.ErrorWithErrSkip(ctx, 1, "Today's EOD decision summary failed", err)
		return "", err
	}
	logger.InfoSkip(ctx, 1, "Today's EOD decision summary finished",
		"csv_path", csvPath,
		"written", csvPath != "",
	)
	return csvPath, nil
}

func (oes *observableEodSummarizer) ShouldRunNow() (bool, string) {
	ctx := context.Background()
	ctx, span := trace.StartSpan(ctx, "eod.ShouldRunNow")
	defer span.End()

	shouldRun, csvPath := oes.summarizer.ShouldRunNow()

	logger.DebugSkip(ctx, 1, "EOD check completed",
		"should_run", shouldRun,
		"csv_path", csvPath,
	)

	return shouldRun, csvPath
}
