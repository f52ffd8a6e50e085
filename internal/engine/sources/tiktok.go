package sources

import (
	"context"
	"errors"
	"log/slog"
	"regexp"

	"github.com/vidsift/vidsift/internal/engine"
)

var tiktokVideoIDPattern = regexp.MustCompile(`/video/(\d+)`)

// TikTokMetadata extracts metadata for a TikTok video. No auth is needed,
// but extraction is noticeably more reliable through a proxy; without one
// the call still proceeds over a direct connection.
func TikTokMetadata(ctx context.Context, req Request) (*engine.VideoMetadata, error) {
	opts := engine.Options{
		UserAgent: engine.RandomUserAgent(),
		Referer:   "https://www.tiktok.com/",
	}
	if proxy := engine.Cfg.Proxies.Resolve(req.proxyIntent()); proxy != nil {
		opts.Proxy = proxy
		engine.IncrProxyAssignments()
	}

	info, err := runExtractor(ctx, req.URL, opts)
	if err != nil {
		engine.IncrYtdlpErrors()
		return nil, err
	}
	return buildMetadata(engine.PlatformTikTok, req.URL, info, req.AllFormats), nil
}

// resolveTikTokVideo finds the stable numeric video id the comment API is
// keyed on. A lightweight metadata call is tried first since it also yields
// the title and comment total; when it fails the id is pulled from the URL
// path; when neither works the whole comment operation fails immediately.
func resolveTikTokVideo(ctx context.Context, req Request) (string, engine.ChainResult, error) {
	var seed engine.ChainResult

	probe := req
	probe.AllFormats = false
	if meta, err := TikTokMetadata(ctx, probe); err == nil && meta.VideoID != "" {
		seed.VideoID = meta.VideoID
		seed.VideoTitle = meta.Title
		seed.Total = meta.CommentCount
		return meta.VideoID, seed, nil
	} else if err != nil {
		slog.Warn("tiktok id probe failed, trying url pattern", slog.Any("error", err))
	}

	if m := tiktokVideoIDPattern.FindStringSubmatch(req.URL); m != nil {
		seed.VideoID = m[1]
		return m[1], seed, nil
	}

	return "", seed, errors.New("could not determine video id")
}
