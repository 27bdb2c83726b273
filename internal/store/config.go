package store

import (
	"errors"
	"fmt"
	"math"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"trading-risk-engine/internal/types"
)

// ErrInvalidConfig is wrapped by every validation failure so callers can
// tell a bad configuration apart from runtime errors.
var ErrInvalidConfig = errors.New("invalid configuration")

type Config struct {
	PollSeconds int    `yaml:"poll_seconds" default:"60" validate:"gte=1"`
	CycleFile   string `yaml:"cycle_file" default:"cycle.yaml"`
	TradeLedger string `yaml:"trade_ledger" default:"trade_log.csv"`
	ShadowMode  bool   `yaml:"shadow_mode" default:"true"`

	Confirm struct {
		Timeframes []types.Timeframe          `yaml:"timeframes" default:"[\"1d\",\"4h\"]" validate:"min=1,unique,dive,required"`
		Threshold  float64                    `yaml:"threshold" default:"0.6"`
		Weights    map[types.Timeframe]float64 `yaml:"weights" default:"{\"1d\":0.5,\"4h\":0.3,\"1h\":0.2}"`
	} `yaml:"confirm"`

	Correlation struct {
		MaxCorrelation float64 `yaml:"max_position_corr" default:"0.7"`
		LookbackDays   int     `yaml:"lookback_days" default:"30"`
	} `yaml:"correlation"`

	Kelly struct {
		Cap              float64 `yaml:"cap" default:"0.25"`
		Lookback         int     `yaml:"lookback" default:"50" validate:"gte=1"`
		MinSampleSize    int     `yaml:"min_sample_size" default:"20" validate:"gte=1"`
		FallbackFraction float64 `yaml:"fallback_fraction" default:"0.05" validate:"gt=0,lte=1"`
	} `yaml:"kelly"`

	Sentiment struct {
		Weights    map[string]float64 `yaml:"weights" default:"{\"news\":0.4,\"social\":0.3,\"technical\":0.2,\"market\":0.1}"`
		CacheTTL   time.Duration      `yaml:"cache_ttl" default:"1h" validate:"gt=0"`
		Adjustment float64            `yaml:"adjustment" default:"0.1" validate:"gte=0,lte=1"`
		Sources    []string           `yaml:"sources" default:"[\"news\",\"social\",\"technical\"]" validate:"dive,oneof=news social technical market"`
		Benchmark  string             `yaml:"benchmark" default:"NIFTY"`
		NewsFeed   string             `yaml:"news_feed"`
		SocialURL  string             `yaml:"social_url"`
		ScrapeRPS  float64            `yaml:"scrape_rps" default:"0.5" validate:"gt=0"`
		Store      string             `yaml:"store" default:"MEMORY" validate:"oneof=MEMORY REDIS"`
		RedisURL   string             `yaml:"redis_url"`
	} `yaml:"sentiment"`

	MarketData struct {
		Provider string `yaml:"provider" default:"STATIC" validate:"oneof=STATIC KITE ALPACA"`
		DataDir  string `yaml:"data_dir" default:"data"`
		Exchange string `yaml:"exchange" default:"NSE"`
	} `yaml:"market_data"`
}

// Defaults returns a configuration with every default applied.
func Defaults() Config {
	var c Config
	if err := defaults.Set(&c); err != nil {
		panic(fmt.Sprintf("config defaults: %v", err))
	}
	return c
}

var validate = validator.New()

func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	// Range checks are written so NaN fails them.
	if !(c.Confirm.Threshold > 0 && c.Confirm.Threshold <= 1) {
		return fmt.Errorf("%w: confirm.threshold must be in (0,1], got %.4f", ErrInvalidConfig, c.Confirm.Threshold)
	}
	for _, tf := range c.Confirm.Timeframes {
		if !tf.Valid() {
			return fmt.Errorf("%w: unsupported timeframe '%s'", ErrInvalidConfig, tf)
		}
	}
	for tf, w := range c.Confirm.Weights {
		if !(w >= 0) || math.IsInf(w, 0) {
			return fmt.Errorf("%w: confirm weight for '%s' must be a finite non-negative number", ErrInvalidConfig, tf)
		}
	}
	if !(c.Correlation.MaxCorrelation >= 0 && c.Correlation.MaxCorrelation <= 1) {
		return fmt.Errorf("%w: correlation.max_position_corr must be in [0,1], got %.4f", ErrInvalidConfig, c.Correlation.MaxCorrelation)
	}
	if c.Correlation.LookbackDays < 2 {
		return fmt.Errorf("%w: correlation.lookback_days must be at least 2, got %d", ErrInvalidConfig, c.Correlation.LookbackDays)
	}
	if !(c.Kelly.Cap > 0 && c.Kelly.Cap <= 1) {
		return fmt.Errorf("%w: kelly.cap must be in (0,1], got %.4f", ErrInvalidConfig, c.Kelly.Cap)
	}
	for src, w := range c.Sentiment.Weights {
		if !(w >= 0) || math.IsInf(w, 0) {
			return fmt.Errorf("%w: sentiment weight for '%s' must be a finite non-negative number", ErrInvalidConfig, src)
		}
	}
	if math.IsInf(c.Sentiment.ScrapeRPS, 0) {
		return fmt.Errorf("%w: sentiment.scrape_rps must be finite", ErrInvalidConfig)
	}
	if c.Sentiment.Store == "REDIS" && c.Sentiment.RedisURL == "" {
		return fmt.Errorf("%w: sentiment.redis_url is required when store is REDIS", ErrInvalidConfig)
	}
	return nil
}

// LoadConfig reads the YAML file, fills defaults, applies environment
// overrides and validates the result.
func LoadConfig(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	// Defaults first so explicit zero values in the file are kept as written.
	c := Defaults()
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if err := c.ApplyEnv(); err != nil {
		return nil, err
	}
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return &c, nil
}

// ApplyEnv overrides fields from the documented environment variables.
func (c *Config) ApplyEnv() error {
	if v := os.Getenv("CONFIRM_TIMEFRAMES"); v != "" {
		var tfs []types.Timeframe
		for _, tf := range strings.Split(v, ",") {
			if tf = strings.TrimSpace(tf); tf != "" {
				tfs = append(tfs, types.Timeframe(tf))
			}
		}
		c.Confirm.Timeframes = tfs
	}
	floats := map[string]*float64{
		"CONFIRM_THRESHOLD": &c.Confirm.Threshold,
		"MAX_POSITION_CORR": &c.Correlation.MaxCorrelation,
		"KELLY_CAP":         &c.Kelly.Cap,
	}
	for key, dst := range floats {
		if v := os.Getenv(key); v != "" {
			f, err := strconv.ParseFloat(v, 64)
			if err != nil {
				return fmt.Errorf("%w: %s=%q is not a number", ErrInvalidConfig, key, v)
			}
			*dst = f
		}
	}
	if v := os.Getenv("CORRELATION_LOOKBACK"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%w: CORRELATION_LOOKBACK=%q is not an integer", ErrInvalidConfig, v)
		}
		c.Correlation.LookbackDays = n
	}
	if v := os.Getenv("SENTIMENT_CACHE_TTL"); v != "" {
		secs, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%w: SENTIMENT_CACHE_TTL=%q is not a number of seconds", ErrInvalidConfig, v)
		}
		c.Sentiment.CacheTTL = time.Duration(secs) * time.Second
	}
	if v := os.Getenv("SHADOW_MODE"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("%w: SHADOW_MODE=%q is not a boolean", ErrInvalidConfig, v)
		}
		c.ShadowMode = b
	}
	if v := os.Getenv("REDIS_URL"); v != "" {
		c.Sentiment.RedisURL = v
	}
	return nil
}
