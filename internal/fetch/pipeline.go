// Package fetch implements the tiered retrieval pipeline: a cheap direct
// request first, a sanitize-and-reparse pass on malformed payloads, and a
// headless browser render as the last resort. Expected failure modes never
// escape as panics; everything surfaces as a typed *Error.
package fetch

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/gocolly/colly/v2"
	"github.com/mmcdole/gofeed"
	"go.uber.org/zap"
)

// DefaultUserAgent is a realistic desktop browser identity; several feed
// hosts refuse obviously robotic agents outright.
const DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36"

// Renderer is the headless browser tier; browser.Session satisfies it.
type Renderer interface {
	Fetch(ctx context.Context, url string) (string, error)
}

// Config controls the direct-request tier.
type Config struct {
	UserAgent string
	Timeout   time.Duration
}

// Tier labels the strategy that produced a result, for logs and metrics.
type Tier string

// Pipeline tiers in escalation order.
const (
	TierDirect    Tier = "direct"
	TierSanitized Tier = "sanitized"
	TierBrowser   Tier = "browser"
)

// Pipeline resolves URLs to content through the escalation chain.
type Pipeline struct {
	cfg      Config
	renderer Renderer
	parser   *gofeed.Parser
	base     *colly.Collector
	logger   *zap.Logger

	// onTier is an optional hook observed by metrics.
	onTier func(tier Tier)
}

// New builds a Pipeline. renderer may be nil, in which case the browser
// tier reports a transport failure instead of rendering.
func New(cfg Config, renderer Renderer, logger *zap.Logger) *Pipeline {
	if cfg.UserAgent == "" {
		cfg.UserAgent = DefaultUserAgent
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 20 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	c := colly.NewCollector(colly.Async(false), colly.AllowURLRevisit())
	c.IgnoreRobotsTxt = true
	c.WithTransport(newHTTPTransport())

	return &Pipeline{
		cfg:      cfg,
		renderer: renderer,
		parser:   gofeed.NewParser(),
		base:     c,
		logger:   logger,
	}
}

// OnTier registers a hook called with the tier that served each successful
// fetch.
func (p *Pipeline) OnTier(fn func(tier Tier)) { p.onTier = fn }

// FetchFeed retrieves and parses a feed through the full escalation chain:
// direct structured fetch, then a raw fetch with payload sanitation, then
// the browser. An explicit block skips the sanitized tier entirely; cleanup
// does not help against a 403.
func (p *Pipeline) FetchFeed(ctx context.Context, url string) (*gofeed.Feed, error) {
	feed, err := p.fetchDirect(ctx, url)
	if err == nil {
		p.served(TierDirect)
		return feed, nil
	}
	if KindOf(err) == KindForbidden {
		p.logger.Debug("direct fetch blocked, escalating to browser", zap.String("url", url))
		return p.feedViaBrowser(ctx, url)
	}

	feed, sanErr := p.fetchSanitized(ctx, url)
	if sanErr == nil {
		p.served(TierSanitized)
		return feed, nil
	}
	p.logger.Debug("sanitized fetch failed, escalating to browser",
		zap.String("url", url), zap.NamedError("direct", err), zap.NamedError("sanitized", sanErr))
	return p.feedViaBrowser(ctx, url)
}

func (p *Pipeline) fetchDirect(ctx context.Context, url string) (*gofeed.Feed, error) {
	raw, err := p.get(ctx, url)
	if err != nil {
		return nil, err
	}
	feed, err := p.parser.ParseString(raw)
	if err != nil {
		return nil, newError(KindParse, url, err)
	}
	return feed, nil
}

func (p *Pipeline) fetchSanitized(ctx context.Context, url string) (*gofeed.Feed, error) {
	raw, err := p.get(ctx, url)
	if err != nil {
		return nil, err
	}
	cleaned, _ := SanitizeFeedPayload(raw)
	feed, err := p.parser.ParseString(cleaned)
	if err != nil {
		return nil, newError(KindParse, url, err)
	}
	return feed, nil
}

// FetchRaw is the single-tier variant used by the lighter watch types: one
// direct request, typed error on failure, no escalation.
func (p *Pipeline) FetchRaw(ctx context.Context, url string) (string, error) {
	body, err := p.get(ctx, url)
	if err != nil {
		return "", err
	}
	p.served(TierDirect)
	return body, nil
}

// FetchRendered retrieves the URL through the browser tier directly; used
// where content only exists after client-side rendering.
func (p *Pipeline) FetchRendered(ctx context.Context, url string) (string, error) {
	if p.renderer == nil {
		return "", newError(KindTransport, url, fmt.Errorf("no browser configured"))
	}
	html, err := p.renderer.Fetch(ctx, url)
	if err != nil {
		return "", newError(KindTransport, url, err)
	}
	p.served(TierBrowser)
	return html, nil
}

func (p *Pipeline) feedViaBrowser(ctx context.Context, url string) (*gofeed.Feed, error) {
	if p.renderer == nil {
		return nil, newError(KindTransport, url, fmt.Errorf("no browser configured"))
	}
	rendered, err := p.renderer.Fetch(ctx, url)
	if err != nil {
		return nil, newError(KindTransport, url, err)
	}
	doc, found := ExtractEmbeddedDocument(rendered)
	if !found {
		return nil, newError(KindParse, url, fmt.Errorf("no feed document in rendered page"))
	}
	feed, err := p.parser.ParseString(doc)
	if err != nil {
		return nil, newError(KindParse, url, err)
	}
	p.served(TierBrowser)
	return feed, nil
}

// get performs one direct request and maps the outcome to a typed error.
func (p *Pipeline) get(ctx context.Context, url string) (string, error) {
	collector := p.base.Clone()
	collector.UserAgent = p.cfg.UserAgent
	collector.IgnoreRobotsTxt = true
	collector.SetRequestTimeout(p.cfg.Timeout)

	var (
		body   []byte
		status int
	)
	collector.OnResponse(func(r *colly.Response) {
		status = r.StatusCode
		body = append([]byte(nil), r.Body...)
	})
	collector.OnError(func(r *colly.Response, _ error) {
		if r != nil {
			status = r.StatusCode
		}
	})

	done := make(chan error, 1)
	go func() {
		done <- collector.Visit(url)
	}()

	select {
	case <-ctx.Done():
		return "", newError(KindTransport, url, ctx.Err())
	case err := <-done:
		switch {
		case status == http.StatusForbidden:
			return "", newError(KindForbidden, url, fmt.Errorf("status 403"))
		case status == http.StatusNotFound:
			return "", newError(KindNotFound, url, fmt.Errorf("status 404"))
		case err != nil:
			return "", newError(KindTransport, url, err)
		case status < 200 || status >= 300:
			return "", newError(KindTransport, url, fmt.Errorf("status %d", status))
		}
		return string(body), nil
	}
}

func (p *Pipeline) served(tier Tier) {
	if p.onTier != nil {
		p.onTier(tier)
	}
}

func newHTTPTransport() *http.Transport {
	return &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   10 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		TLSHandshakeTimeout:   15 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
		MaxIdleConns:          100,
		IdleConnTimeout:       90 * time.Second,
	}
}
