package eod

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/gocarina/gocsv"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trading-risk-engine/internal/tradelog"
	"trading-risk-engine/internal/types"
)

// 2025-06-02 10:00 IST
var morning = time.Date(2025, 6, 2, 4, 30, 0, 0, time.UTC)

func record(t *testing.T, j *tradelog.Journal, d types.Decision) {
	t.Helper()
	if d.EvaluatedAt.IsZero() {
		d.EvaluatedAt = morning
	}
	require.NoError(t, j.Record(d))
}

func TestSummarizeDay(t *testing.T) {
	dir := t.TempDir()
	j := tradelog.NewJournal(dir)

	record(t, j, types.Decision{ID: "1", Symbol: "TCS", Action: types.Buy, Allowed: true, SizeFraction: 0.10, Confidence: 0.8,
		Correlation: types.CorrelationResult{MaxCorrelation: 0.3}, Sentiment: types.SentimentScore{Combined: 0.2}})
	record(t, j, types.Decision{ID: "2", Symbol: "TCS", Action: types.Buy, Allowed: true, SizeFraction: 0.20, Confidence: 0.6,
		Correlation: types.CorrelationResult{MaxCorrelation: 0.5}, Sentiment: types.SentimentScore{Combined: -0.2}})
	record(t, j, types.Decision{ID: "3", Symbol: "INFY", Action: types.Sell, BlockReason: types.BlockCorrelation, Confidence: 0.7,
		Correlation: types.CorrelationResult{MaxCorrelation: 0.9, Blocked: true}})
	record(t, j, types.Decision{ID: "4", Symbol: "INFY", Action: types.Hold, BlockReason: types.BlockUnconfirmed, Confidence: 0.1})

	s := NewSummarizer(dir, clockwork.NewFakeClockAt(morning))
	path, err := s.SummarizeDay(context.Background(), morning)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "eod", "2025-06-02.csv"), path)

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	var rows []summaryRow
	require.NoError(t, gocsv.Unmarshal(f, &rows))
	require.Len(t, rows, 3)

	infy, tcs, total := rows[0], rows[1], rows[2]
	assert.Equal(t, "INFY", infy.Symbol)
	assert.Equal(t, 2, infy.Evaluations)
	assert.Zero(t, infy.Allowed)
	assert.Equal(t, 1, infy.BlockedCorrelation)
	assert.Equal(t, 1, infy.BlockedUnconfirmed)
	assert.Equal(t, 0.9, infy.MaxCorrelation)
	assert.Equal(t, "hold", infy.LastAction)

	assert.Equal(t, "TCS", tcs.Symbol)
	assert.Equal(t, 2, tcs.Allowed)
	assert.InDelta(t, 0.15, tcs.AvgSize, 1e-9)
	assert.Equal(t, 0.2, tcs.MaxSize)
	assert.InDelta(t, 0.7, tcs.AvgConfidence, 1e-9)
	assert.Zero(t, tcs.AvgSentiment)

	assert.Equal(t, "TOTAL", total.Symbol)
	assert.Equal(t, 4, total.Evaluations)
	assert.Equal(t, 2, total.Allowed)
	assert.Equal(t, 0.9, total.MaxCorrelation)
	assert.InDelta(t, 0.55, total.AvgConfidence, 1e-9)
}

func TestSummarizeDay_NoLog(t *testing.T) {
	s := NewSummarizer(t.TempDir(), clockwork.NewFakeClockAt(morning))
	path, err := s.SummarizeDay(context.Background(), morning)
	require.NoError(t, err)
	assert.Empty(t, path)
}

func TestSummarizeDay_SkipsMalformedLines(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "decisions"), 0o755))
	content := "not json\n" + `{"id":"1","symbol":"SBIN","action":"buy","allowed":true,"size_fraction":0.05}` + "\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "decisions", "2025-06-02.txt"), []byte(content), 0o644))

	path, err := NewSummarizer(dir, nil).SummarizeDay(context.Background(), morning)
	require.NoError(t, err)
	require.NotEmpty(t, path)
}

func TestShouldRunNow(t *testing.T) {
	dir := t.TempDir()
	clock := clockwork.NewFakeClockAt(morning)
	s := NewObserved(dir, clock)

	run, path := s.ShouldRunNow()
	assert.False(t, run, "before market close")
	assert.Equal(t, filepath.Join(dir, "eod", "2025-06-02.csv"), path)

	// 15:45 IST
	clock.Advance(5*time.Hour + 45*time.Minute)
	run, _ = s.ShouldRunNow()
	assert.True(t, run)

	require.NoError(t, tradelog.NewJournal(dir).Record(types.Decision{ID: "1", Symbol: "TCS", EvaluatedAt: morning}))
	written, err := s.SummarizeToday(context.Background())
	require.NoError(t, err)
	assert.Equal(t, path, written)

	run, _ = s.ShouldRunNow()
	assert.False(t, run, "report already written")
}
