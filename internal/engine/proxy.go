package engine

import (
	"bufio"
	"fmt"
	"log/slog"
	"math/rand"
	"net/url"
	"os"
	"strings"
)

// ProxyIntent describes what kind of proxying an extraction wants.
// A dedicated URL always wins over pool selection.
type ProxyIntent struct {
	Pooled    bool
	Dedicated string
}

// ProxyEndpoint is a resolved proxy. Raw is the exact URL handed to the
// extraction library; BrowserShape splits it for browser automation, which
// cannot consume a combined URL.
type ProxyEndpoint struct {
	Raw string
}

func (e *ProxyEndpoint) String() string { return e.Raw }

// BrowserProxy is the connection-parameter shape browser automation expects.
type BrowserProxy struct {
	Scheme   string
	Host     string
	Port     string
	Username string
	Password string
}

// BrowserShape splits the proxy URL into scheme/host/port/credentials.
func (e *ProxyEndpoint) BrowserShape() (BrowserProxy, error) {
	u, err := url.Parse(e.Raw)
	if err != nil {
		return BrowserProxy{}, fmt.Errorf("proxy url %q: %w", e.Raw, err)
	}
	bp := BrowserProxy{
		Scheme: u.Scheme,
		Host:   u.Hostname(),
		Port:   u.Port(),
	}
	if u.User != nil {
		bp.Username = u.User.Username()
		bp.Password, _ = u.User.Password()
	}
	return bp, nil
}

// Server returns the scheme://host:port part without credentials, the form
// the browser launcher takes; credentials are supplied separately.
func (p BrowserProxy) Server() string {
	return fmt.Sprintf("%s://%s:%s", p.Scheme, p.Host, p.Port)
}

type poolEntry struct {
	host, port, user, pass string
}

func (p poolEntry) render() string {
	return fmt.Sprintf("http://%s:%s@%s:%s", p.user, p.pass, p.host, p.port)
}

// ProxyResolver picks proxy endpoints. The pool is loaded once at startup
// and immutable for the process lifetime.
type ProxyResolver struct {
	pool     []poolEntry
	fallback string // residential endpoint used when the pool is empty
	pick     func(n int) int
}

// LoadProxyResolver reads the pool file (host:port:user:pass per line; blank
// and #-prefixed lines ignored) and returns a resolver. A missing file is not
// an error: the resolver just has an empty pool.
func LoadProxyResolver(path, fallbackURL string) (*ProxyResolver, error) {
	r := &ProxyResolver{fallback: fallbackURL}
	if path == "" {
		return r, nil
	}
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			slog.Info("proxy pool file not found, pool empty", slog.String("path", path))
			return r, nil
		}
		return nil, fmt.Errorf("open proxy pool: %w", err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		parts := strings.Split(line, ":")
		if len(parts) != 4 {
			slog.Warn("proxy pool: skipping malformed line", slog.String("line", line))
			continue
		}
		r.pool = append(r.pool, poolEntry{host: parts[0], port: parts[1], user: parts[2], pass: parts[3]})
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read proxy pool: %w", err)
	}
	slog.Info("proxy pool loaded", slog.Int("proxies", len(r.pool)))
	return r, nil
}

// Size reports how many pooled proxies are configured.
func (r *ProxyResolver) Size() int { return len(r.pool) }

// Resolve turns an intent into a concrete endpoint, or nil for none.
// Priority: explicit dedicated URL > pool selection > no proxy. Pool
// selection is uniform random; an empty pool falls back to the configured
// residential endpoint when one exists.
func (r *ProxyResolver) Resolve(intent ProxyIntent) *ProxyEndpoint {
	if intent.Dedicated != "" {
		return &ProxyEndpoint{Raw: intent.Dedicated}
	}
	if !intent.Pooled {
		return nil
	}
	if len(r.pool) == 0 {
		if r.fallback != "" {
			return &ProxyEndpoint{Raw: r.fallback}
		}
		return nil
	}
	pick := r.pick
	if pick == nil {
		pick = rand.Intn //nolint:gosec // non-cryptographic use
	}
	return &ProxyEndpoint{Raw: r.pool[pick(len(r.pool))].render()}
}
