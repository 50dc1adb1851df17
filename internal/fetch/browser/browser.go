// Package browser manages the shared headless Chrome session used as the
// pipeline's last-resort fetch tier.
package browser

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/chromedp/cdproto/emulation"
	"github.com/chromedp/chromedp"
	"go.uber.org/zap"
)

// challengeMarkers are substrings of interstitial anti-bot pages. The page
// is polled until none of them appear or the attempt budget runs out.
var challengeMarkers = []string{
	"just a moment",
	"checking your browser",
	"cf-chl",
	"attention required",
	"ddos protection by",
	"verify you are human",
}

// Config controls the shared session.
type Config struct {
	UserAgent         string
	NavigationTimeout time.Duration
	ChallengeAttempts int
	ChallengeWait     time.Duration

	// OnRelaunch is called each time a dead browser is replaced.
	OnRelaunch func()
}

// Session is a process-wide headless browser, lazily launched on first use
// and reused across calls. A crashed or disconnected browser is detected on
// the next use and replaced. Each fetch runs in its own tab which is closed
// on every path out.
type Session struct {
	cfg    Config
	logger *zap.Logger

	mu          sync.Mutex
	allocCtx    context.Context
	allocCancel context.CancelFunc
	browserCtx  context.Context
	browserStop context.CancelFunc

	relaunches int
}

// NewSession prepares a session without launching the browser.
func NewSession(cfg Config, logger *zap.Logger) *Session {
	if cfg.NavigationTimeout <= 0 {
		cfg.NavigationTimeout = 45 * time.Second
	}
	if cfg.ChallengeAttempts <= 0 {
		cfg.ChallengeAttempts = 5
	}
	if cfg.ChallengeWait <= 0 {
		cfg.ChallengeWait = 2 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Session{cfg: cfg, logger: logger}
}

// Fetch renders the URL, waits out any anti-bot challenge, and returns the
// final document HTML.
func (s *Session) Fetch(ctx context.Context, url string) (string, error) {
	browser, err := s.acquire()
	if err != nil {
		return "", err
	}

	tabCtx, closeTab := chromedp.NewContext(browser)
	defer closeTab()
	tabCtx, cancel := context.WithTimeout(tabCtx, s.cfg.NavigationTimeout)
	defer cancel()

	stop := make(chan struct{})
	defer close(stop)
	go func() {
		// Propagate caller cancellation into the tab.
		select {
		case <-ctx.Done():
			closeTab()
		case <-stop:
		}
	}()

	var html string
	actions := []chromedp.Action{
		chromedp.Navigate(url),
		chromedp.WaitReady("body", chromedp.ByQuery),
	}
	if s.cfg.UserAgent != "" {
		actions = append([]chromedp.Action{
			chromedp.ActionFunc(func(ctx context.Context) error {
				return emulation.SetUserAgentOverride(s.cfg.UserAgent).Do(ctx)
			}),
		}, actions...)
	}
	actions = append(actions, chromedp.OuterHTML("html", &html, chromedp.ByQuery))
	if err := chromedp.Run(tabCtx, actions...); err != nil {
		s.markBroken()
		return "", fmt.Errorf("render %s: %w", url, err)
	}

	for attempt := 0; hasChallengeMarker(html) && attempt < s.cfg.ChallengeAttempts; attempt++ {
		s.logger.Debug("challenge marker present, waiting",
			zap.String("url", url),
			zap.Int("attempt", attempt+1),
		)
		select {
		case <-tabCtx.Done():
			return "", fmt.Errorf("render %s: %w", url, tabCtx.Err())
		case <-time.After(s.cfg.ChallengeWait):
		}
		if err := chromedp.Run(tabCtx, chromedp.OuterHTML("html", &html, chromedp.ByQuery)); err != nil {
			s.markBroken()
			return "", fmt.Errorf("re-read %s: %w", url, err)
		}
	}

	return html, nil
}

// Close shuts the browser down. The session can still be reused; the next
// Fetch relaunches.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.teardownLocked()
}

// Relaunches reports how many times a dead browser was replaced.
func (s *Session) Relaunches() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.relaunches
}

// acquire returns a live browser context, launching or relaunching as
// needed.
func (s *Session) acquire() (context.Context, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.browserCtx != nil {
		if s.browserCtx.Err() == nil {
			return s.browserCtx, nil
		}
		s.logger.Warn("headless browser disconnected, relaunching")
		s.teardownLocked()
		s.relaunches++
		if s.cfg.OnRelaunch != nil {
			s.cfg.OnRelaunch()
		}
	}

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", "new"),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("hide-scrollbars", true),
		chromedp.Flag("enable-automation", false),
	)
	s.allocCtx, s.allocCancel = chromedp.NewExecAllocator(context.Background(), opts...)
	s.browserCtx, s.browserStop = chromedp.NewContext(s.allocCtx)

	// Start the browser process eagerly so a launch failure surfaces here
	// instead of inside the first page fetch.
	if err := chromedp.Run(s.browserCtx); err != nil {
		s.teardownLocked()
		return nil, fmt.Errorf("launch headless browser: %w", err)
	}
	return s.browserCtx, nil
}

func (s *Session) markBroken() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.browserCtx != nil && s.browserCtx.Err() != nil {
		s.teardownLocked()
	}
}

func (s *Session) teardownLocked() {
	if s.browserStop != nil {
		s.browserStop()
		s.browserStop = nil
		s.browserCtx = nil
	}
	if s.allocCancel != nil {
		s.allocCancel()
		s.allocCancel = nil
		s.allocCtx = nil
	}
}

func hasChallengeMarker(html string) bool {
	lower := strings.ToLower(html)
	for _, marker := range challengeMarkers {
		if strings.Contains(lower, marker) {
			return true
		}
	}
	return false
}
