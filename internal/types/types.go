package types

import "time"

// Direction is the side a signal or decision points to.
type Direction string

const (
	Buy  Direction = "buy"
	Sell Direction = "sell"
	Hold Direction = "hold"
)

// Side returns +1 for buy, -1 for sell and 0 otherwise.
func (d Direction) Side() float64 {
	switch d {
	case Buy:
		return 1
	case Sell:
		return -1
	default:
		return 0
	}
}

// Timeframe is a bar period such as "1d" or "4h".
type Timeframe string

const (
	TF1m  Timeframe = "1m"
	TF5m  Timeframe = "5m"
	TF15m Timeframe = "15m"
	TF1h  Timeframe = "1h"
	TF4h  Timeframe = "4h"
	TF1d  Timeframe = "1d"
	TF1w  Timeframe = "1w"
)

var supportedTimeframes = map[Timeframe]bool{
	TF1m: true, TF5m: true, TF15m: true, TF1h: true, TF4h: true, TF1d: true, TF1w: true,
}

// Valid reports whether tf is one of the supported periods.
func (tf Timeframe) Valid() bool {
	return supportedTimeframes[tf]
}

// TimeframeSignal is one strategy vote on a single timeframe.
type TimeframeSignal struct {
	Timeframe  Timeframe `json:"timeframe" yaml:"timeframe"`
	Direction  Direction `json:"direction" yaml:"direction"`
	Confidence float64   `json:"confidence" yaml:"confidence"`
}

// SignalBundle is what the strategy layer hands over for one symbol per cycle.
// Confidence is optional; when zero the engine derives it from the timeframes.
type SignalBundle struct {
	Signals    map[Timeframe]TimeframeSignal `json:"signals" yaml:"signals"`
	Confidence float64                       `json:"confidence" yaml:"confidence"`
	Strategy   string                        `json:"strategy" yaml:"strategy"`
	Price      float64                       `json:"price" yaml:"price"`
}

// ConfirmationResult records how far the required timeframes agree.
type ConfirmationResult struct {
	Confirmed              bool        `json:"confirmed"`
	AgreementRatio         float64     `json:"agreement_ratio"`
	ThresholdUsed          float64     `json:"threshold_used"`
	Direction              Direction   `json:"direction"`
	ContributingTimeframes []Timeframe `json:"contributing_timeframes"`
	Detail                 string      `json:"detail"`
}

// TradeRecord is one closed trade from the ledger CSV.
type TradeRecord struct {
	Date        string  `csv:"date" json:"date"`
	Symbol      string  `csv:"symbol" json:"symbol"`
	Action      string  `csv:"action" json:"action"`
	Quantity    float64 `csv:"quantity" json:"quantity"`
	Price       float64 `csv:"price" json:"price"`
	RealizedPnL float64 `csv:"pnl" json:"pnl"`
}

// KellyMetrics is the sizing outcome with the statistics behind it.
type KellyMetrics struct {
	KellyFraction float64 `json:"kelly_fraction"`
	WinRate       float64 `json:"win_rate"`
	AvgWin        float64 `json:"avg_win"`
	AvgLoss       float64 `json:"avg_loss"`
	WinLossRatio  float64 `json:"win_loss_ratio"`
	SampleSize    int     `json:"sample_size"`
	Fallback      bool    `json:"fallback"`
	Detail        string  `json:"detail,omitempty"`
}

// Position is a current holding in one symbol.
type Position struct {
	Quantity    float64 `json:"qty" yaml:"qty"`
	MarketValue float64 `json:"market_value" yaml:"market_value"`
}

// PositionSnapshot is the current portfolio keyed by symbol.
type PositionSnapshot map[string]Position

// Held returns the symbols with a non-zero quantity.
func (p PositionSnapshot) Held() []string {
	out := make([]string, 0, len(p))
	for sym, pos := range p {
		if pos.Quantity != 0 {
			out = append(out, sym)
		}
	}
	return out
}

// CorrelationResult is the candidate's strongest correlation with current holdings.
type CorrelationResult struct {
	MaxCorrelation float64            `json:"max_correlation"`
	CorrelatedWith string             `json:"correlated_with,omitempty"`
	Blocked        bool               `json:"blocked"`
	Reason         string             `json:"reason"`
	Correlations   map[string]float64 `json:"correlations,omitempty"`
}

// PricePoint is one daily close.
type PricePoint struct {
	Date  time.Time `csv:"date" json:"date"`
	Close float64   `csv:"close" json:"close"`
}

// SentimentSample is a single source's reading for a symbol.
type SentimentSample struct {
	Source    string    `json:"source"`
	Score     float64   `json:"score"`
	Quality   float64   `json:"quality"`
	Timestamp time.Time `json:"timestamp"`
}

// SourceBreakdown is one source's share of a fused score.
type SourceBreakdown struct {
	Score   float64 `json:"score"`
	Quality float64 `json:"quality"`
	Weight  float64 `json:"weight"`
}

// SentimentScore is the fused sentiment for a symbol.
type SentimentScore struct {
	Symbol     string                     `json:"symbol"`
	Combined   float64                    `json:"combined"`
	Sources    map[string]SourceBreakdown `json:"sources"`
	Detail     string                     `json:"detail,omitempty"`
	ComputedAt time.Time                  `json:"computed_at"`
	CacheHit   bool                       `json:"cache_hit"`
}

// BlockReason names the first gate that stopped a decision.
type BlockReason string

const (
	BlockNone         BlockReason = ""
	BlockUnconfirmed  BlockReason = "UNCONFIRMED"
	BlockCorrelation  BlockReason = "CORRELATION_BLOCKED"
	BlockZeroFraction BlockReason = "ZERO_KELLY"
)

// Decision is the engine's verdict for one symbol in one cycle.
type Decision struct {
	ID           string             `json:"id"`
	Symbol       string             `json:"symbol"`
	Action       Direction          `json:"action"`
	Allowed      bool               `json:"allowed"`
	SizeFraction float64            `json:"size_fraction"`
	Confidence   float64            `json:"confidence"`
	Strategy     string             `json:"strategy,omitempty"`
	Price        float64            `json:"price,omitempty"`
	Confirmation ConfirmationResult `json:"confirmation"`
	Correlation  CorrelationResult  `json:"correlation"`
	Kelly        KellyMetrics       `json:"kelly"`
	Sentiment    SentimentScore     `json:"sentiment"`
	BlockReason  BlockReason        `json:"block_reason,omitempty"`
	BlockDetail  string             `json:"block_detail,omitempty"`
	EvaluatedAt  time.Time          `json:"evaluated_at"`
}
