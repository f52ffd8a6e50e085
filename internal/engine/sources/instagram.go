package sources

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/vidsift/vidsift/internal/engine"
)

func instagramCookieFile(req Request) string {
	if req.CookieFile != "" {
		return req.CookieFile
	}
	if engine.Cfg.InstagramCookies != "" {
		return engine.Cfg.InstagramCookies
	}
	return "instagram_cookies.txt"
}

// instagramCookieGate short-circuits before any network call when the
// cookie file is missing. Instagram refuses almost all anonymous requests,
// so attempting without auth just burns time and proxy quota.
func instagramCookieGate(path string) error {
	if fileExists(path) {
		return nil
	}
	return fmt.Errorf("Instagram cookies required. Please export cookies from your browser after logging into Instagram and save as '%s'. Use 'Get cookies.txt LOCALLY' Chrome extension.", path)
}

// classifyInstagramError rewrites known Instagram failure signatures into
// remediation guidance. Unrecognized errors pass through unchanged.
func classifyInstagramError(err error) error {
	msg := err.Error()
	lower := strings.ToLower(msg)
	switch {
	case strings.Contains(lower, "empty media response"):
		return errors.New("Instagram returned empty media response. This usually means your cookies have expired or Instagram requires fresh authentication. " +
			"Fix: log into Instagram in your browser, export cookies for instagram.com with the 'Get cookies.txt LOCALLY' extension, and replace the cookie file.")
	case strings.Contains(msg, "400") && strings.Contains(lower, "bad request"):
		return errors.New("Instagram rejected the cookies (HTTP 400 Bad Request). The session encoded in the cookie file is stale or incomplete. " +
			"Export fresh cookies immediately after logging into Instagram.")
	case strings.Contains(msg, "403"):
		return errors.New("Instagram denied access (HTTP 403 Forbidden). The account session was likely flagged. " +
			"Log out and log back into Instagram in your browser, then export fresh cookies.")
	case strings.Contains(lower, "login"):
		return errors.New("Instagram requires authentication. Export cookies from a logged-in browser session and point the service at them.")
	default:
		return err
	}
}

// InstagramMetadata extracts metadata for an Instagram post/reel. A valid
// cookie file is mandatory.
func InstagramMetadata(ctx context.Context, req Request) (*engine.VideoMetadata, error) {
	cookieFile := instagramCookieFile(req)
	if err := instagramCookieGate(cookieFile); err != nil {
		return nil, err
	}

	opts := engine.Options{
		CookieFile: cookieFile,
		UserAgent:  engine.RandomUserAgent(),
		Referer:    "https://www.instagram.com/",
	}
	if proxy := engine.Cfg.Proxies.Resolve(req.proxyIntent()); proxy != nil {
		opts.Proxy = proxy
		engine.IncrProxyAssignments()
	}

	info, err := runExtractor(ctx, req.URL, opts)
	if err != nil {
		engine.IncrYtdlpErrors()
		return nil, classifyInstagramError(err)
	}
	return buildMetadata(engine.PlatformInstagram, req.URL, info, req.AllFormats), nil
}

// instagramYtdlpComments is Instagram's only comment technique. The cookie
// gate has already run by the time the chain starts.
type instagramYtdlpComments struct{}

func (instagramYtdlpComments) Name() string { return "yt-dlp" }

func (instagramYtdlpComments) Attempt(ctx context.Context, req engine.CommentRequest) engine.AttemptResult {
	opts := engine.Options{
		CookieFile:    req.CookieFile,
		UserAgent:     engine.RandomUserAgent(),
		Referer:       "https://www.instagram.com/",
		FetchComments: true,
		MaxComments:   req.MaxComments,
		Proxy:         req.Proxy,
	}

	info, err := runExtractor(ctx, req.URL, opts)
	if err != nil {
		engine.IncrYtdlpErrors()
		return engine.AttemptResult{Err: classifyInstagramError(err)}
	}
	return engine.AttemptResult{
		VideoID:    info.ID,
		VideoTitle: engine.DeriveTitle(info.Title, info.Description),
		Total:      info.CommentCount,
		Comments:   convertComments(info.Comments, req.MaxComments),
	}
}
