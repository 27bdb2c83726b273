package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"trading-risk-engine/internal/interfaces"
	"trading-risk-engine/internal/kelly"
	"trading-risk-engine/internal/logger"
	"trading-risk-engine/internal/store"
	"trading-risk-engine/internal/tradelog"
	"trading-risk-engine/internal/types"
)

type app struct {
	cfg       *store.Config
	eval      interfaces.Evaluator
	positions interfaces.PositionSource
	journal   *tradelog.Journal
	eod       interfaces.EodSummarizer
	out       io.Writer // forwarded decisions, one JSON object per line
	dash      io.Writer
	closers   []func() error
}

// runCycle evaluates every symbol in the cycle file once. Per-symbol
// failures are logged and skipped.
func (a *app) runCycle(ctx context.Context) ([]types.Decision, error) {
	op := logger.StartOperation(ctx, "riskbot.cycle", "shadow", a.cfg.ShadowMode)
	ctx = op.GetContext()

	cyc, err := loadCycle(a.cfg.CycleFile)
	if err != nil {
		op.EndWithError(err)
		return nil, err
	}
	history, err := tradelog.LoadLedger(a.cfg.TradeLedger)
	if err != nil {
		op.EndWithError(err)
		return nil, err
	}
	positions := a.currentPositions(ctx, cyc)

	var decisions []types.Decision
	for _, sym := range cyc.symbols() {
		d, err := a.eval.Evaluate(ctx, sym, cyc.Bundles[sym], history, positions)
		if err != nil {
			logger.ErrorWithErr(ctx, "Evaluation error", err, "symbol", sym)
			continue
		}
		if err := a.journal.Record(d); err != nil {
			logger.ErrorWithErr(ctx, "Failed to journal decision", err, "symbol", sym, "decision_id", d.ID)
		}
		if !a.cfg.ShadowMode && d.Allowed {
			if err := a.forward(d); err != nil {
				logger.ErrorWithErr(ctx, "Failed to forward decision", err, "symbol", sym)
			}
		}
		if logger.IsDebugEnabled() {
			logger.Debug(ctx, "Decision breakdown",
				"symbol", sym,
				"agreement", d.Confirmation.AgreementRatio,
				"timeframes", len(d.Confirmation.ContributingTimeframes),
				"kelly", d.Kelly.KellyFraction,
				"win_rate", d.Kelly.WinRate,
				"sentiment", d.Sentiment.Combined,
			)
		}
		decisions = append(decisions, d)
	}

	renderDecisions(a.dash, decisions, a.cfg.ShadowMode)
	renderCorrelations(a.dash, decisions)
	renderPerformance(a.dash, kelly.Performance(history))
	op.End("symbols", len(cyc.Bundles), "decisions", len(decisions))
	return decisions, nil
}

// currentPositions prefers the live account and falls back to the
// holdings listed in the cycle file.
func (a *app) currentPositions(ctx context.Context, cyc *cycleFile) types.PositionSnapshot {
	if a.positions == nil {
		return cyc.Positions
	}
	snap, err := a.positions.Positions(ctx)
	if err != nil {
		logger.Warn(ctx, "Position fetch failed, using cycle file holdings", "error", err)
		return cyc.Positions
	}
	return snap
}

func (a *app) forward(d types.Decision) error {
	b, err := json.Marshal(d)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(a.out, string(b))
	return err
}

func (a *app) runEOD(ctx context.Context) {
	if p, err := a.eod.SummarizeToday(ctx); err == nil && p != "" {
		logger.Info(ctx, "EOD CSV written", "path", p)
	}
}

func (a *app) close() {
	for _, c := range a.closers {
		_ = c()
	}
}
