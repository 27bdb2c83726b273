package eod

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"math"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/gocarina/gocsv"
	"github.com/jonboulle/clockwork"

	"trading-risk-engine/internal/logger"
	"trading-risk-engine/internal/types"
)

type eodSummarizer struct {
	dir   string
	clock clockwork.Clock
}

func (s *eodSummarizer) SummarizeDay(ctx context.Context, t time.Time) (string, error) {
	f, err := os.Open(decisionFile(s.dir, t))
	if errors.Is(err, os.ErrNotExist) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	defer f.Close()

	aggs := map[string]*aggRow{}
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for sc.Scan() {
		var d types.Decision
		if err := json.Unmarshal(sc.Bytes(), &d); err != nil {
			logger.Warn(ctx, "Skipping malformed decision line", "error", err)
			continue
		}
		row := aggs[d.Symbol]
		if row == nil {
			row = &aggRow{summaryRow: summaryRow{Symbol: d.Symbol}}
			aggs[d.Symbol] = row
		}
		row.add(d)
	}
	if err := sc.Err(); err != nil {
		return "", err
	}
	if len(aggs) == 0 {
		return "", nil
	}

	keys := make([]string, 0, len(aggs))
	for k := range aggs {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	rows := make([]summaryRow, 0, len(keys)+1)
	total := &aggRow{summaryRow: summaryRow{Symbol: "TOTAL"}}
	for _, k := range keys {
		r := aggs[k]
		rows = append(rows, r.finish())
		total.merge(r)
	}
	rows = append(rows, total.finish())

	outPath := eodCSVPath(s.dir, t)
	if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
		return "", err
	}
	out, err := os.Create(outPath)
	if err != nil {
		return "", err
	}
	defer out.Close()
	if err := gocsv.Marshal(&rows, out); err != nil {
		return "", err
	}
	return outPath, nil
}

func (s *eodSummarizer) SummarizeToday(ctx context.Context) (string, error) {
	return s.SummarizeDay(ctx, s.clock.Now())
}

func (s *eodSummarizer) ShouldRunNow() (bool, string) {
	now := s.clock.Now().In(ist)
	outPath := eodCSVPath(s.dir, now)
	if now.After(marketCloseTime(now)) {
		if _, err := os.Stat(outPath); errors.Is(err, os.ErrNotExist) {
			return true, outPath
		}
	}
	return false, outPath
}

func (r *aggRow) add(d types.Decision) {
	r.Evaluations++
	switch d.BlockReason {
	case types.BlockUnconfirmed:
		r.BlockedUnconfirmed++
	case types.BlockCorrelation:
		r.BlockedCorrelation++
	case types.BlockZeroFraction:
		r.BlockedZeroKelly++
	}
	if d.Allowed {
		r.Allowed++
		r.sizeSum += d.SizeFraction
		r.MaxSize = math.Max(r.MaxSize, d.SizeFraction)
	}
	r.confidenceSum += d.Confidence
	r.sentimentSum += d.Sentiment.Combined
	r.MaxCorrelation = math.Max(r.MaxCorrelation, d.Correlation.MaxCorrelation)
	r.LastAction = string(d.Action)
}

func (r *aggRow) merge(o *aggRow) {
	r.Evaluations += o.Evaluations
	r.Allowed += o.Allowed
	r.BlockedUnconfirmed += o.BlockedUnconfirmed
	r.BlockedCorrelation += o.BlockedCorrelation
	r.BlockedZeroKelly += o.BlockedZeroKelly
	r.sizeSum += o.sizeSum
	r.confidenceSum += o.confidenceSum
	r.sentimentSum += o.sentimentSum
	r.MaxSize = math.Max(r.MaxSize, o.MaxSize)
	r.MaxCorrelation = math.Max(r.MaxCorrelation, o.MaxCorrelation)
}

// finish fills the averages. Size is averaged over allowed decisions only.
func (r *aggRow) finish() summaryRow {
	out := r.summaryRow
	if r.Allowed > 0 {
		out.AvgSize = round4(r.sizeSum / float64(r.Allowed))
	}
	if r.Evaluations > 0 {
		out.AvgConfidence = round4(r.confidenceSum / float64(r.Evaluations))
		out.AvgSentiment = round4(r.sentimentSum / float64(r.Evaluations))
	}
	return out
}

func round4(v float64) float64 {
	return math.Round(v*1e4) / 1e4
}
