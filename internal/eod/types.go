package eod

// summaryRow is one line of the end-of-day report.
type summaryRow struct {
	Symbol             string  `csv:"symbol"`
	Evaluations        int     `csv:"evaluations"`
	Allowed            int     `csv:"allowed"`
	BlockedUnconfirmed int     `csv:"blocked_unconfirmed"`
	BlockedCorrelation int     `csv:"blocked_correlation"`
	BlockedZeroKelly   int     `csv:"blocked_zero_kelly"`
	AvgSize            float64 `csv:"avg_size"`
	MaxSize            float64 `csv:"max_size"`
	AvgConfidence      float64 `csv:"avg_confidence"`
	MaxCorrelation     float64 `csv:"max_correlation"`
	AvgSentiment       float64 `csv:"avg_sentiment"`
	LastAction         string  `csv:"last_action"`
}

// aggRow accumulates decisions for one symbol before averaging.
type aggRow struct {
	summaryRow
	sizeSum       float64
	confidenceSum float64
	sentimentSum  float64
}
