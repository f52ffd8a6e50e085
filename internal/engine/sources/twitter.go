package sources

import (
	"context"
	"strings"

	"github.com/vidsift/vidsift/internal/engine"
)

// TwitterMetadata extracts metadata for a tweet's video. Tweets have no
// explicit title, so one is derived from the post body.
func TwitterMetadata(ctx context.Context, req Request) (*engine.VideoMetadata, error) {
	opts := engine.Options{}
	if proxy := engine.Cfg.Proxies.Resolve(req.proxyIntent()); proxy != nil {
		opts.Proxy = proxy
		engine.IncrProxyAssignments()
	}

	info, err := runExtractor(ctx, req.URL, opts)
	if err != nil {
		engine.IncrYtdlpErrors()
		return nil, err
	}
	return buildMetadata(engine.PlatformTwitter, req.URL, info, req.AllFormats), nil
}

// tweetIDFromURL pulls the numeric status id from a tweet URL.
func tweetIDFromURL(url string) string {
	_, after, found := strings.Cut(url, "/status/")
	if !found {
		return ""
	}
	id := after
	if i := strings.IndexAny(id, "?/"); i >= 0 {
		id = id[:i]
	}
	return id
}

// twitterYtdlpComments is the primary Twitter technique: the extraction
// library's comment path. Upstream breaks it regularly, so zero comments
// or any error drops through to the browser fallback.
type twitterYtdlpComments struct{}

func (twitterYtdlpComments) Name() string { return "yt-dlp" }

func (twitterYtdlpComments) Attempt(ctx context.Context, req engine.CommentRequest) engine.AttemptResult {
	opts := engine.Options{
		FetchComments: true,
		MaxComments:   req.MaxComments,
		Proxy:         req.Proxy,
	}

	info, err := runExtractor(ctx, req.URL, opts)
	if err != nil {
		engine.IncrYtdlpErrors()
		return engine.AttemptResult{Err: err}
	}
	return engine.AttemptResult{
		VideoID:    info.ID,
		VideoTitle: engine.DeriveTitle(info.Title, info.Description),
		Total:      info.CommentCount,
		Comments:   convertComments(info.Comments, req.MaxComments),
	}
}
