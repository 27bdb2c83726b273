package engineobs

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"trading-risk-engine/internal/metrics"
	"trading-risk-engine/internal/trace"
	"trading-risk-engine/internal/types"
)

type stubEvaluator struct {
	decision types.Decision
	err      error
}

func (s stubEvaluator) Evaluate(context.Context, string, types.SignalBundle, []types.TradeRecord, types.PositionSnapshot) (types.Decision, error) {
	return s.decision, s.err
}

func TestWrap_RecordsDecision(t *testing.T) {
	reg := prometheus.NewRegistry()
	ev := Wrap(stubEvaluator{decision: types.Decision{Symbol: "INFY", Allowed: true, SizeFraction: 0.1}}, metrics.New(reg))

	d, err := ev.Evaluate(context.Background(), "INFY", types.SignalBundle{}, nil, nil)
	require.NoError(t, err)
	assert.True(t, d.Allowed)

	n, err := testutil.GatherAndCount(reg, "risk_decisions_total")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	n, err = testutil.GatherAndCount(reg, "risk_evaluation_duration_seconds")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestWrap_RecordsError(t *testing.T) {
	reg := prometheus.NewRegistry()
	boom := errors.New("boom")
	ev := Wrap(stubEvaluator{err: boom}, metrics.New(reg))

	_, err := ev.Evaluate(context.Background(), "INFY", types.SignalBundle{}, nil, nil)
	assert.ErrorIs(t, err, boom)

	expected := `
# HELP risk_decisions_total Decisions evaluated, by outcome and block reason
# TYPE risk_decisions_total counter
risk_decisions_total{outcome="error",reason=""} 1
`
	assert.NoError(t, testutil.GatherAndCompare(reg, strings.NewReader(expected), "risk_decisions_total"))
}

func TestWrap_NilRecorder(t *testing.T) {
	ev := Wrap(stubEvaluator{decision: types.Decision{Symbol: "INFY"}}, nil)
	assert.NotPanics(t, func() {
		_, _ = ev.Evaluate(context.Background(), "INFY", types.SignalBundle{}, nil, nil)
	})
}

func TestWrap_EmitsSpan(t *testing.T) {
	exp := tracetest.NewInMemoryExporter()
	require.NoError(t, trace.InitWithExporter(exp))
	t.Cleanup(func() { _ = trace.Shutdown(context.Background()) })

	ev := Wrap(stubEvaluator{decision: types.Decision{Symbol: "TCS", BlockReason: types.BlockCorrelation}}, nil)
	_, err := ev.Evaluate(context.Background(), "TCS", types.SignalBundle{}, nil, nil)
	require.NoError(t, err)

	spans := exp.GetSpans()
	require.Len(t, spans, 1)
	assert.Equal(t, "engine.Evaluate", spans[0].Name)

	attrs := map[string]string{}
	for _, kv := range spans[0].Attributes {
		attrs[string(kv.Key)] = kv.Value.Emit()
	}
	assert.Equal(t, "TCS", attrs["symbol"])
	assert.Equal(t, "CORRELATION_BLOCKED", attrs["block_reason"])
}
