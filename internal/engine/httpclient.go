package engine

import (
	"fmt"
	"io"
	"math/rand"

	fhttp "github.com/bogdanfinn/fhttp"
	tls_client "github.com/bogdanfinn/tls-client"
	"github.com/bogdanfinn/tls-client/profiles"
)

// HTTPDoer is the request surface shared by BrowserClient and test doubles.
type HTTPDoer interface {
	Do(method, url string, headers map[string]string, body io.Reader) ([]byte, int, error)
}

// BrowserClient wraps tls-client with Chrome TLS fingerprint.
// Requests appear as Chrome 131+ to TLS fingerprinting (JA3 hash).
// Platform comment APIs reject plain net/http fingerprints outright.
type BrowserClient struct {
	client tls_client.HttpClient
}

// NewBrowserClient creates a client that impersonates Chrome 131.
// When proxy is non-nil all requests tunnel through it.
func NewBrowserClient(proxy *ProxyEndpoint) (*BrowserClient, error) {
	jar := tls_client.NewCookieJar()
	opts := []tls_client.HttpClientOption{
		tls_client.WithTimeoutSeconds(15),
		tls_client.WithClientProfile(profiles.Chrome_131),
		tls_client.WithNotFollowRedirects(),
		tls_client.WithCookieJar(jar),
		tls_client.WithInsecureSkipVerify(),
	}
	if proxy != nil {
		opts = append(opts, tls_client.WithProxyUrl(proxy.Raw))
	}
	client, err := tls_client.NewHttpClient(nil, opts...)
	if err != nil {
		return nil, fmt.Errorf("tls-client init: %w", err)
	}
	return &BrowserClient{client: client}, nil
}

// Do executes a request with Chrome TLS fingerprint.
// Returns body bytes, HTTP status code, and any error.
func (bc *BrowserClient) Do(method, url string, headers map[string]string, body io.Reader) ([]byte, int, error) {
	req, err := fhttp.NewRequest(method, url, body)
	if err != nil {
		return nil, 0, fmt.Errorf("build request: %w", err)
	}

	for k, v := range headers {
		req.Header.Set(k, v)
	}

	// Chrome-like header order matters for fingerprinting
	req.Header[fhttp.HeaderOrderKey] = []string{
		"accept",
		"accept-language",
		"accept-encoding",
		"referer",
		"cookie",
		"user-agent",
	}

	resp, err := bc.client.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("tls request: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, resp.StatusCode, fmt.Errorf("read body: %w", err)
	}

	return data, resp.StatusCode, nil
}

// ChromeHeaders returns common Chrome browser headers.
func ChromeHeaders() map[string]string {
	return map[string]string{
		"accept":          "text/html,application/xhtml+xml,application/xml;q=0.9,image/avif,image/webp,*/*;q=0.8",
		"accept-language": "en-US,en;q=0.9",
		"accept-encoding": "gzip, deflate, br",
		"user-agent":      RandomUserAgent(),
	}
}

var userAgents = []string{
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/131.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/131.0.0.0 Safari/537.36",
	"Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/131.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/130.0.0.0 Safari/537.36",
}

// RandomUserAgent returns one of the recent Chrome user agent strings.
func RandomUserAgent() string {
	return userAgents[rand.Intn(len(userAgents))] //nolint:gosec
}
