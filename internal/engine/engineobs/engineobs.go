package engineobs

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"trading-risk-engine/internal/interfaces"
	"trading-risk-engine/internal/logger"
	"trading-risk-engine/internal/metrics"
	"trading-risk-engine/internal/trace"
	"trading-risk-engine/internal/types"
)

type observableEvaluator struct {
	eval    interfaces.Evaluator
	metrics *metrics.Recorder
}

var _ interfaces.Evaluator = (*observableEvaluator)(nil)

// Wrap adds a span, start/finish logs and decision metrics around eval.
// rec may be nil.
func Wrap(eval interfaces.Evaluator, rec *metrics.Recorder) interfaces.Evaluator {
	return &observableEvaluator{
		eval:    eval,
		metrics: rec,
	}
}

func (oe *observableEvaluator) Evaluate(ctx context.Context, symbol string, bundle types.SignalBundle, history []types.TradeRecord, positions types.PositionSnapshot) (types.Decision, error) {
	ctx, span := trace.StartSpan(ctx, "engine.Evaluate")
	defer span.End()
	span.SetAttributes(attribute.String("symbol", symbol))

	start := time.Now()

	logger.DebugSkip(ctx, 1, "Starting evaluation",
		"symbol", symbol,
		"timeframes", len(bundle.Signals),
		"trades", len(history),
		"positions", len(positions),
	)

	d, err := oe.eval.Evaluate(ctx, symbol, bundle, history, positions)
	if err != nil {
		if oe.metrics != nil {
			oe.metrics.RecordEvaluationError()
		}
		logger.ErrorWithErrSkip(ctx, 1, "Evaluation failed", err,
			"symbol", symbol,
			"duration_ms", time.Since(start).Milliseconds(),
		)
		return d, err
	}

	elapsed := time.Since(start)
	if oe.metrics != nil {
		oe.metrics.RecordDecision(d, elapsed.Seconds())
	}
	span.SetAttributes(
		attribute.Bool("allowed", d.Allowed),
		attribute.Float64("size_fraction", d.SizeFraction),
		attribute.String("block_reason", string(d.BlockReason)),
	)

	logger.InfoSkip(ctx, 1, "Evaluation completed",
		"symbol", symbol,
		"action", d.Action,
		"allowed", d.Allowed,
		"size_fraction", d.SizeFraction,
		"block_reason", d.BlockReason,
		"duration_ms", elapsed.Milliseconds(),
	)

	return d, nil
}
