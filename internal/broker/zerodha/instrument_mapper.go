package zerodha

import (
	"strings"
	"sync"
)

// knownTokens seeds the mapper with NSE instrument tokens for liquid names
// so lookups work before the instrument dump has been loaded.
var knownTokens = map[string]int{
	"RELIANCE":   738561,
	"TCS":        2953217,
	"HDFCBANK":   341249,
	"INFY":       408065,
	"HCLTECH":    1850625,
	"LT":         2939649,
	"SBIN":       779521,
	"ICICIBANK":  1270529,
	"AXISBANK":   1510401,
	"KOTAKBANK":  492033,
	"ITC":        424961,
	"TATAMOTORS": 884737,
	"TITAN":      897537,
	"JSWSTEEL":   3001089,
	"ULTRACEMCO": 2952193,
	"BAJFINANCE": 81153,
	"HDFCLIFE":   119553,
	"BHARTIARTL": 2714625,
	"ASIANPAINT": 60417,
	"MARUTI":     2815745,
}

// instrumentMapper maps trading symbols to Kite instrument tokens
type instrumentMapper struct {
	symbolToToken map[string]int
	loaded        bool
	mu            sync.RWMutex
}

func newInstrumentMapper() *instrumentMapper {
	im := &instrumentMapper{
		symbolToToken: make(map[string]int, len(knownTokens)),
	}
	for sym, tok := range knownTokens {
		im.addMapping(sym, tok)
	}
	return im
}

func (im *instrumentMapper) addMapping(symbol string, token int) {
	im.mu.Lock()
	defer im.mu.Unlock()

	im.symbolToToken[strings.ToUpper(symbol)] = token
}

func (im *instrumentMapper) getToken(symbol string) (int, bool) {
	im.mu.RLock()
	defer im.mu.RUnlock()

	token, exists := im.symbolToToken[strings.ToUpper(symbol)]
	return token, exists
}

func (im *instrumentMapper) isLoaded() bool {
	im.mu.RLock()
	defer im.mu.RUnlock()
	return im.loaded
}

func (im *instrumentMapper) markLoaded() {
	im.mu.Lock()
	defer im.mu.Unlock()
	im.loaded = true
}
