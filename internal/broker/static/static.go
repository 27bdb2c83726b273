// Package static serves prices and positions from local files or memory.
package static

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/gocarina/gocsv"

	"trading-risk-engine/internal/interfaces"
	"trading-risk-engine/internal/types"
)

const dateLayout = "2006-01-02"

type closeRow struct {
	Date  string  `csv:"date"`
	Close float64 `csv:"close"`
}

// CSVPrices reads <dir>/<SYMBOL>.csv files with date and close columns.
type CSVPrices struct {
	dir string
}

var _ interfaces.PriceHistory = (*CSVPrices)(nil)

func NewCSVPrices(dir string) *CSVPrices {
	return &CSVPrices{dir: dir}
}

func (c *CSVPrices) DailyCloses(_ context.Context, symbol string, days int) ([]types.PricePoint, error) {
	p := filepath.Join(c.dir, strings.ToUpper(symbol)+".csv")
	f, err := os.Open(p)
	if err != nil {
		return nil, fmt.Errorf("price file for %s: %w", symbol, err)
	}
	defer f.Close()

	var rows []closeRow
	if err := gocsv.Unmarshal(f, &rows); err != nil {
		return nil, fmt.Errorf("parse %s: %w", p, err)
	}
	pts := make([]types.PricePoint, 0, len(rows))
	for _, r := range rows {
		d, err := time.Parse(dateLayout, strings.TrimSpace(r.Date))
		if err != nil {
			return nil, fmt.Errorf("parse %s: bad date %q", p, r.Date)
		}
		pts = append(pts, types.PricePoint{Date: d, Close: r.Close})
	}
	return Tail(pts, days), nil
}

// WriteCloses stores a series in the format CSVPrices reads.
func WriteCloses(dir, symbol string, pts []types.PricePoint) error {
	rows := make([]closeRow, 0, len(pts))
	for _, p := range pts {
		rows = append(rows, closeRow{Date: p.Date.Format(dateLayout), Close: p.Close})
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	f, err := os.Create(filepath.Join(dir, strings.ToUpper(symbol)+".csv"))
	if err != nil {
		return err
	}
	defer f.Close()
	return gocsv.Marshal(&rows, f)
}

// Tail sorts pts by date and keeps the last n.
func Tail(pts []types.PricePoint, n int) []types.PricePoint {
	sort.SliceStable(pts, func(i, j int) bool { return pts[i].Date.Before(pts[j].Date) })
	if n > 0 && len(pts) > n {
		pts = pts[len(pts)-n:]
	}
	return pts
}

// MapPrices is an in-memory price history.
type MapPrices struct {
	mu     sync.RWMutex
	series map[string][]types.PricePoint
}

var _ interfaces.PriceHistory = (*MapPrices)(nil)

func NewMapPrices() *MapPrices {
	return &MapPrices{series: make(map[string][]types.PricePoint)}
}

func (m *MapPrices) Set(symbol string, pts []types.PricePoint) {
	cp := append([]types.PricePoint(nil), pts...)
	m.mu.Lock()
	defer m.mu.Unlock()
	m.series[symbol] = cp
}

func (m *MapPrices) DailyCloses(_ context.Context, symbol string, days int) ([]types.PricePoint, error) {
	m.mu.RLock()
	pts, ok := m.series[symbol]
	m.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("no price history for %s", symbol)
	}
	return Tail(append([]types.PricePoint(nil), pts...), days), nil
}

// Positions serves a fixed snapshot.
type Positions struct {
	snap types.PositionSnapshot
}

var _ interfaces.PositionSource = Positions{}

func NewPositions(snap types.PositionSnapshot) Positions {
	return Positions{snap: snap}
}

func (p Positions) Positions(context.Context) (types.PositionSnapshot, error) {
	out := make(types.PositionSnapshot, len(p.snap))
	for k, v := range p.snap {
		out[k] = v
	}
	return out, nil
}
