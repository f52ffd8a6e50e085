package engine

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/stealth"
)

// BrowserSession owns one headless Chromium instance. Sessions are
// short-lived: each extraction that needs a real browser launches its
// own and closes it, so one hung page never poisons the next request.
type BrowserSession struct {
	browser  *rod.Browser
	launcher *launcher.Launcher
}

// NewBrowserSession launches Chromium, optionally tunneled through proxy.
func NewBrowserSession(proxy *ProxyEndpoint) (*BrowserSession, error) {
	l := launcher.New().
		Headless(Cfg.BrowserHeadless).
		Leakless(true).
		NoSandbox(true)
	if Cfg.BrowserBin != "" {
		l = l.Bin(Cfg.BrowserBin)
	}

	var auth *BrowserProxy
	if proxy != nil {
		shape, err := proxy.BrowserShape()
		if err != nil {
			return nil, fmt.Errorf("proxy for browser: %w", err)
		}
		l = l.Proxy(net.JoinHostPort(shape.Host, shape.Port))
		if shape.Username != "" {
			auth = &shape
		}
	}

	url, err := l.Launch()
	if err != nil {
		return nil, fmt.Errorf("launch browser: %w", err)
	}

	browser := rod.New().ControlURL(url)
	if err := browser.Connect(); err != nil {
		l.Cleanup()
		return nil, fmt.Errorf("connect browser: %w", err)
	}
	if auth != nil {
		go browser.MustHandleAuth(auth.Username, auth.Password)()
	}
	_ = browser.IgnoreCertErrors(true)

	IncrBrowserSessions()
	return &BrowserSession{browser: browser, launcher: l}, nil
}

// Close tears down the browser and its launcher process.
func (s *BrowserSession) Close() {
	if err := s.browser.Close(); err != nil {
		slog.Debug("browser close", slog.Any("error", err))
	}
	s.launcher.Cleanup()
}

// StealthPage opens a new page with automation fingerprints patched out.
func (s *BrowserSession) StealthPage() (*rod.Page, error) {
	page, err := stealth.Page(s.browser)
	if err != nil {
		return nil, fmt.Errorf("stealth page: %w", err)
	}
	return page, nil
}

// CaptureResponses hijacks every request matching pattern and delivers
// the response bodies on the returned channel. The stop function must be
// called before the page is closed.
func CaptureResponses(page *rod.Page, pattern string) (<-chan []byte, func()) {
	bodies := make(chan []byte, 32)
	router := page.HijackRequests()
	router.MustAdd(pattern, func(ctx *rod.Hijack) {
		ctx.MustLoadResponse()
		body := ctx.Response.Payload().Body
		select {
		case bodies <- body:
		default:
			slog.Debug("hijack buffer full, dropping response", slog.String("pattern", pattern))
		}
	})
	go router.Run()
	return bodies, func() {
		if err := router.Stop(); err != nil {
			slog.Debug("hijack router stop", slog.Any("error", err))
		}
	}
}

// ScrollContext bounds a scroll-based collection loop by the configured
// wall-clock budget. Derive it once per extraction, before the first
// scroll, and drive every drain and scroll round off the returned context.
func ScrollContext(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, Cfg.ScrollBudget)
}

// ScrollFeed scrolls the page in rounds to trigger lazy comment loading,
// pausing between rounds. Returns early when ctx runs out; callers pass
// a ScrollContext so the scroll budget caps the whole collection loop.
func ScrollFeed(ctx context.Context, page *rod.Page, rounds int, pause time.Duration) {
	for i := 0; i < rounds; i++ {
		if ctx.Err() != nil {
			return
		}
		if err := page.Mouse.Scroll(0, 1000, 1); err != nil {
			slog.Debug("scroll", slog.Int("round", i), slog.Any("error", err))
			return
		}
		select {
		case <-ctx.Done():
			return
		case <-time.After(pause):
		}
	}
}
