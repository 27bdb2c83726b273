package news

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/gocolly/colly/v2"
	"golang.org/x/time/rate"

	"trading-risk-engine/internal/logger"
	"trading-risk-engine/internal/types"
)

const (
	// DefaultNewsFeed is the Google News RSS search. %s is the escaped query.
	DefaultNewsFeed = "https://news.google.com/rss/search?q=%s&hl=en-IN&gl=IN&ceid=IN:en"

	userAgent       = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"
	defaultTimeout  = 15 * time.Second
	defaultMaxItems = 20
)

// ErrNoItems is returned when a page or feed yielded nothing to score.
var ErrNoItems = errors.New("no items found")

type scrapeOptions struct {
	url      string
	limiter  *rate.Limiter
	timeout  time.Duration
	maxItems int
	now      func() time.Time
}

type Option func(*scrapeOptions)

// WithURL overrides the page template. %s is replaced by the query.
func WithURL(tmpl string) Option {
	return func(o *scrapeOptions) {
		if tmpl != "" {
			o.url = tmpl
		}
	}
}

// WithLimiter shares one politeness limiter between sources.
func WithLimiter(l *rate.Limiter) Option {
	return func(o *scrapeOptions) { o.limiter = l }
}

func WithTimeout(d time.Duration) Option {
	return func(o *scrapeOptions) { o.timeout = d }
}

func WithMaxItems(n int) Option {
	return func(o *scrapeOptions) { o.maxItems = n }
}

func newOptions(defaultURL string, opts []Option) scrapeOptions {
	o := scrapeOptions{
		url:      defaultURL,
		limiter:  rate.NewLimiter(rate.Every(2*time.Second), 1),
		timeout:  defaultTimeout,
		maxItems: defaultMaxItems,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

func (o scrapeOptions) target(query string) string {
	return fmt.Sprintf(o.url, url.QueryEscape(query))
}

// NewsSource scores recent headlines from an RSS search feed.
type NewsSource struct {
	opts scrapeOptions
	lex  *Lexicon
}

func NewNewsSource(opts ...Option) *NewsSource {
	return &NewsSource{opts: newOptions(DefaultNewsFeed, opts), lex: NewLexicon()}
}

func (s *NewsSource) Name() string { return "news" }

// Sample scores up to maxItems headlines. Quality grows with the number of
// headlines found and saturates at five.
func (s *NewsSource) Sample(ctx context.Context, symbol string) (types.SentimentSample, error) {
	if err := s.opts.limiter.Wait(ctx); err != nil {
		return types.SentimentSample{}, err
	}

	titles, err := s.headlines(ctx, s.opts.target(symbol+" stock"))
	if err != nil {
		return types.SentimentSample{}, err
	}
	if len(titles) == 0 {
		return types.SentimentSample{}, fmt.Errorf("news %s: %w", symbol, ErrNoItems)
	}

	score, _ := s.lex.ScoreAll(titles)
	quality := 0.7 + 0.3*min(1, float64(len(titles))/5)
	logger.Debug(ctx, "News headlines scored", "symbol", symbol, "headlines", len(titles), "score", score)

	return types.SentimentSample{
		Source:    s.Name(),
		Score:     score,
		Quality:   min(1, quality),
		Timestamp: s.opts.now(),
	}, nil
}

func (s *NewsSource) headlines(ctx context.Context, feed string) ([]string, error) {
	var titles []string

	c := colly.NewCollector(
		colly.MaxDepth(1),
		colly.AllowURLRevisit(),
	)
	c.SetRequestTimeout(s.opts.timeout)

	c.OnRequest(func(r *colly.Request) {
		if ctx.Err() != nil {
			r.Abort()
			return
		}
		r.Headers.Set("User-Agent", userAgent)
	})

	c.OnXML("//item/title", func(e *colly.XMLElement) {
		if len(titles) >= s.opts.maxItems {
			return
		}
		if t := strings.TrimSpace(e.Text); t != "" {
			titles = append(titles, t)
		}
	})

	var scrapeErr error
	c.OnError(func(r *colly.Response, err error) {
		scrapeErr = fmt.Errorf("fetch %s: status %d: %w", r.Request.URL, r.StatusCode, err)
	})

	if err := c.Visit(feed); err != nil {
		return nil, fmt.Errorf("visit %s: %w", feed, err)
	}
	c.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if scrapeErr != nil {
		return nil, scrapeErr
	}
	return titles, nil
}
