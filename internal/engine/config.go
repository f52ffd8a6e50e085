package engine

import (
	"net/http"
	"time"
)

// Config holds all engine configuration, injected from main.
type Config struct {
	YtdlpPath        string // yt-dlp binary; empty = PATH lookup
	YouTubeCookies   string // path to youtube cookies.txt
	InstagramCookies string // path to instagram cookies.txt
	ProxyFile        string // pool file, host:port:user:pass per line
	FallbackProxyURL string // residential endpoint used when the pool is empty
	BrowserBin       string // chromium binary for rod; empty = auto-detect
	BrowserHeadless  bool
	ExtractTimeout   time.Duration // per extraction-library call
	ScrollBudget     time.Duration // wall clock for scroll-based collection
	HTTPClient       *http.Client   // plain transport (streaming, direct URLs)
	Runner           Runner         // extraction capability; nil = yt-dlp subprocess
	BrowserClient    HTTPDoer       // nil = direct platform APIs disabled
	Proxies          *ProxyResolver // nil = never proxy
}

var cfg Config

// Cfg exposes the engine configuration for sub-packages (sources).
// Always points to the current cfg value.
var Cfg = &cfg

// Init initializes the engine with the given configuration.
func Init(c Config) {
	if c.ExtractTimeout <= 0 {
		c.ExtractTimeout = 60 * time.Second
	}
	if c.ScrollBudget <= 0 {
		c.ScrollBudget = 30 * time.Second
	}
	if c.HTTPClient == nil {
		c.HTTPClient = &http.Client{Timeout: 30 * time.Second}
	}
	if c.Runner == nil {
		c.Runner = &execRunner{path: c.YtdlpPath}
	}
	if c.Proxies == nil {
		c.Proxies = &ProxyResolver{}
	}
	cfg = c
	Cfg = &cfg
}
