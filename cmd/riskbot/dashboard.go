package main

import (
	"fmt"
	"io"
	"sort"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"trading-risk-engine/internal/kelly"
	"trading-risk-engine/internal/types"
)

func renderDecisions(w io.Writer, decisions []types.Decision, shadow bool) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	title := "RISK DECISIONS"
	if shadow {
		title += " (shadow)"
	}
	t.SetTitle(title)
	t.SetStyle(table.StyleRounded)
	t.AppendHeader(table.Row{"Symbol", "Action", "Confirmed", "Agreement", "Kelly", "Max Corr", "Sentiment", "Confidence", "Size", "Verdict"})

	for _, d := range decisions {
		verdict := "✅ ALLOW"
		if !d.Allowed {
			verdict = "⛔ " + string(d.BlockReason)
		}
		kellyCell := fmt.Sprintf("%.3f", d.Kelly.KellyFraction)
		if d.Kelly.Fallback {
			kellyCell += " (fb)"
		}
		t.AppendRow(table.Row{
			d.Symbol,
			d.Action,
			confirmIcon(d.Confirmation),
			fmt.Sprintf("%.2f", d.Confirmation.AgreementRatio),
			kellyCell,
			corrCell(d.Correlation),
			fmt.Sprintf("%+.2f", d.Sentiment.Combined),
			fmt.Sprintf("%.2f", d.Confidence),
			fmt.Sprintf("%.2f%%", d.SizeFraction*100),
			verdict,
		})
	}
	t.SetColumnConfigs([]table.ColumnConfig{
		{Number: 1, Align: text.AlignLeft},
		{Number: 4, Align: text.AlignRight},
		{Number: 5, Align: text.AlignRight},
		{Number: 6, Align: text.AlignRight},
		{Number: 7, Align: text.AlignRight},
		{Number: 8, Align: text.AlignRight},
		{Number: 9, Align: text.AlignRight},
	})
	t.Render()
	fmt.Fprintln(w)
}

func confirmIcon(c types.ConfirmationResult) string {
	if c.Confirmed {
		return "✔ " + fmt.Sprintf("%d tf", len(c.ContributingTimeframes))
	}
	return "✘"
}

func corrCell(c types.CorrelationResult) string {
	if c.CorrelatedWith == "" {
		return "-"
	}
	return fmt.Sprintf("%.2f %s", c.MaxCorrelation, c.CorrelatedWith)
}

// renderCorrelations prints candidate rows against held columns using the
// signed coefficients each decision carries.
func renderCorrelations(w io.Writer, decisions []types.Decision) {
	heldSet := map[string]bool{}
	for _, d := range decisions {
		for s := range d.Correlation.Correlations {
			heldSet[s] = true
		}
	}
	if len(heldSet) == 0 {
		return
	}
	held := make([]string, 0, len(heldSet))
	for s := range heldSet {
		held = append(held, s)
	}
	sort.Strings(held)

	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetTitle("CORRELATION VS HOLDINGS")
	t.SetStyle(table.StyleRounded)

	header := table.Row{"Candidate"}
	for _, h := range held {
		header = append(header, h)
	}
	t.AppendHeader(header)

	for _, d := range decisions {
		row := table.Row{d.Symbol}
		for _, h := range held {
			v, ok := d.Correlation.Correlations[h]
			if !ok {
				row = append(row, "-")
				continue
			}
			cell := fmt.Sprintf("%+.2f", v)
			if d.Correlation.Blocked && h == d.Correlation.CorrelatedWith {
				cell = text.FgRed.Sprint(cell)
			}
			row = append(row, cell)
		}
		t.AppendRow(row)
	}
	t.Render()
	fmt.Fprintln(w)
}

func renderPerformance(w io.Writer, p kelly.PerformanceStats) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetTitle("LEDGER PERFORMANCE")
	t.SetStyle(table.StyleRounded)
	t.AppendRows([]table.Row{
		{"📒 Closed trades", p.Trades},
		{"💰 Total pnl", fmt.Sprintf("%.2f", p.TotalPnL)},
		{"📈 Sharpe (ann.)", fmt.Sprintf("%.2f", p.Sharpe)},
		{"📉 Max drawdown", fmt.Sprintf("%.2f", p.MaxDrawdown)},
	})
	t.SetColumnConfigs([]table.ColumnConfig{
		{Number: 1, WidthMin: 18, Align: text.AlignLeft},
		{Number: 2, WidthMin: 12, Align: text.AlignRight},
	})
	t.Render()
	fmt.Fprintln(w)
}
