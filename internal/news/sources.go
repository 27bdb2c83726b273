package news

import (
	"fmt"
	"time"

	"golang.org/x/time/rate"

	"trading-risk-engine/internal/interfaces"
	"trading-risk-engine/internal/store"
)

// Sources builds the sample sources named in sentiment.sources. The scraping
// sources share one rate limiter.
func Sources(cfg *store.Config, prices interfaces.PriceHistory) ([]interfaces.SampleSource, error) {
	sc := cfg.Sentiment
	limiter := rate.NewLimiter(rate.Limit(sc.ScrapeRPS), 1)

	var out []interfaces.SampleSource
	for _, name := range sc.Sources {
		switch name {
		case "news":
			out = append(out, NewNewsSource(WithURL(sc.NewsFeed), WithLimiter(limiter)))
		case "social":
			out = append(out, NewSocialSource(WithURL(sc.SocialURL), WithLimiter(limiter), WithTimeout(10*time.Second)))
		case "technical":
			out = append(out, NewTechnicalSource(prices))
		case "market":
			out = append(out, NewMarketSource(prices, sc.Benchmark))
		default:
			return nil, fmt.Errorf("%w: unknown sentiment source '%s'", store.ErrInvalidConfig, name)
		}
	}
	return out, nil
}
