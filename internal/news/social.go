package news

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"trading-risk-engine/internal/logger"
	"trading-risk-engine/internal/types"
)

const (
	// DefaultSocialURL searches a retail investor forum. %s is the query.
	DefaultSocialURL = "https://old.reddit.com/r/IndianStockMarket/search?q=%s&restrict_sr=on&sort=new"

	socialQuality = 0.6
)

// DefaultPostSelector matches post titles on forum search pages.
const DefaultPostSelector = "a.search-title, h3"

// SocialSource scores forum post titles that mention the symbol.
type SocialSource struct {
	opts     scrapeOptions
	selector string
	client   *http.Client
	lex      *Lexicon
}

func NewSocialSource(opts ...Option) *SocialSource {
	o := newOptions(DefaultSocialURL, opts)
	return &SocialSource{
		opts:     o,
		selector: DefaultPostSelector,
		client:   &http.Client{Timeout: o.timeout},
		lex:      NewLexicon(),
	}
}

func (s *SocialSource) Name() string { return "social" }

func (s *SocialSource) Sample(ctx context.Context, symbol string) (types.SentimentSample, error) {
	if err := s.opts.limiter.Wait(ctx); err != nil {
		return types.SentimentSample{}, err
	}

	posts, err := s.posts(ctx, s.opts.target(symbol))
	if err != nil {
		return types.SentimentSample{}, err
	}
	if len(posts) == 0 {
		return types.SentimentSample{}, fmt.Errorf("social %s: %w", symbol, ErrNoItems)
	}

	score, _ := s.lex.ScoreAll(posts)
	logger.Debug(ctx, "Social posts scored", "symbol", symbol, "posts", len(posts), "score", score)

	return types.SentimentSample{
		Source:    s.Name(),
		Score:     score,
		Quality:   socialQuality,
		Timestamp: s.opts.now(),
	}, nil
}

func (s *SocialSource) posts(ctx context.Context, page string) ([]string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, page, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", page, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch %s: status %d", page, resp.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", page, err)
	}

	var titles []string
	doc.Find(s.selector).EachWithBreak(func(_ int, sel *goquery.Selection) bool {
		t := strings.TrimSpace(sel.AttrOr("title", ""))
		if t == "" {
			t = strings.TrimSpace(sel.Text())
		}
		if t != "" {
			titles = append(titles, t)
		}
		return len(titles) < s.opts.maxItems
	})
	return titles, nil
}
