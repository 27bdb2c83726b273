package zerodha

import (
	"sync"

	"trading-risk-engine/internal/types"
)

// closeCache keeps the daily closes fetched for a symbol on a given day so
// repeated lookups in one session do not hit the historical API again.
type closeCache struct {
	entries map[string]closeEntry
	mu      sync.RWMutex
}

type closeEntry struct {
	day    string
	closes []types.PricePoint
}

func newCloseCache() *closeCache {
	return &closeCache{entries: make(map[string]closeEntry)}
}

// get returns at least n closes for symbol when they were fetched on day.
func (cc *closeCache) get(symbol, day string, n int) ([]types.PricePoint, bool) {
	cc.mu.RLock()
	defer cc.mu.RUnlock()

	e, ok := cc.entries[symbol]
	if !ok || e.day != day || len(e.closes) < n {
		return nil, false
	}
	return append([]types.PricePoint(nil), e.closes[len(e.closes)-n:]...), true
}

func (cc *closeCache) put(symbol, day string, closes []types.PricePoint) {
	cc.mu.Lock()
	defer cc.mu.Unlock()
	cc.entries[symbol] = closeEntry{day: day, closes: append([]types.PricePoint(nil), closes...)}
}
