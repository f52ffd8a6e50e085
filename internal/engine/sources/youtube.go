package sources

import (
	"context"

	"github.com/vidsift/vidsift/internal/engine"
)

// youtubeProxyClients are the client identities used when extracting through
// a proxy. The android identity bypasses the signature challenge but does
// not accept cookie auth, which is why cookies and proxies never mix.
var youtubeProxyClients = []string{"android", "web"}

func youtubeCookieFile(req Request) string {
	if req.CookieFile != "" {
		return req.CookieFile
	}
	if engine.Cfg.YouTubeCookies != "" {
		return engine.Cfg.YouTubeCookies
	}
	return "youtube_cookies.txt"
}

// youtubeOptions applies the proxy/cookie mutual exclusion: proxy intent
// switches to the android client identity and disables cookie injection
// even when the cookie file exists.
func youtubeOptions(req Request) engine.Options {
	opts := engine.Options{}
	if proxy := engine.Cfg.Proxies.Resolve(req.proxyIntent()); proxy != nil {
		opts.Proxy = proxy
		opts.PlayerClients = youtubeProxyClients
		engine.IncrProxyAssignments()
	}
	if !req.proxyWanted() {
		if cf := youtubeCookieFile(req); fileExists(cf) {
			opts.CookieFile = cf
		}
	}
	return opts
}

// YouTubeMetadata extracts metadata for a YouTube video.
func YouTubeMetadata(ctx context.Context, req Request) (*engine.VideoMetadata, error) {
	info, err := runExtractor(ctx, req.URL, youtubeOptions(req))
	if err != nil {
		engine.IncrYtdlpErrors()
		return nil, err
	}
	return buildMetadata(engine.PlatformYouTube, req.URL, info, req.AllFormats), nil
}

// youtubeYtdlpComments is YouTube's only comment technique: the extraction
// library with comment fetching enabled and one cap replicated across the
// top/newest/replies/all pagination slots.
type youtubeYtdlpComments struct {
	proxyWanted bool
}

func (youtubeYtdlpComments) Name() string { return "yt-dlp" }

func (t youtubeYtdlpComments) Attempt(ctx context.Context, req engine.CommentRequest) engine.AttemptResult {
	opts := engine.Options{
		FetchComments: true,
		MaxComments:   req.MaxComments,
	}
	if req.Proxy != nil {
		opts.Proxy = req.Proxy
		opts.PlayerClients = youtubeProxyClients
	}
	if !t.proxyWanted && fileExists(req.CookieFile) {
		opts.CookieFile = req.CookieFile
	}

	info, err := runExtractor(ctx, req.URL, opts)
	if err != nil {
		engine.IncrYtdlpErrors()
		return engine.AttemptResult{Err: err}
	}
	return engine.AttemptResult{
		VideoID:    info.ID,
		VideoTitle: info.Title,
		Total:      info.CommentCount,
		Comments:   convertComments(info.Comments, req.MaxComments),
	}
}
