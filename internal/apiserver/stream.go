package apiserver

import (
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/dustin/go-humanize"
	"github.com/labstack/echo/v4"

	"github.com/vidsift/vidsift/internal/engine"
	"github.com/vidsift/vidsift/internal/engine/sources"
)

// StreamRequest is the body for the streaming endpoint.
type StreamRequest struct {
	URL      string `json:"url" validate:"required,url"`
	Platform string `json:"platform"`
	Quality  string `json:"quality"`
	UseProxy bool   `json:"use_proxy"`
}

// platformOriginHeaders returns the referer/origin pair origin servers
// expect; a bare request without them gets blocked.
func platformOriginHeaders(p engine.Platform) (referer, origin string) {
	switch p {
	case engine.PlatformTikTok:
		return "https://www.tiktok.com/", "https://www.tiktok.com"
	case engine.PlatformTwitter:
		return "https://twitter.com/", "https://twitter.com"
	case engine.PlatformInstagram:
		return "https://www.instagram.com/", "https://www.instagram.com"
	default:
		return "https://www.youtube.com/", "https://www.youtube.com"
	}
}

// handleStream resolves a direct media URL and proxies its bytes to the
// caller. Pre-flight failures come back as the usual envelope; once the
// response header is written, a mid-stream failure can only surface as a
// broken transfer.
func (s *Server) handleStream(c echo.Context) error {
	engine.IncrStreamRequests()

	var req StreamRequest
	if err := s.bindAndValidate(c, &req); err != nil {
		return badRequest(c, err)
	}
	platform := engine.Platform(req.Platform)
	if req.Platform == "" {
		platform = engine.DetectPlatform(req.URL)
	}
	quality := req.Quality
	if quality == "" {
		quality = "best"
	}

	ctx := c.Request().Context()
	meta := sources.ExtractMetadata(ctx, sources.Request{
		URL:        req.URL,
		Platform:   platform,
		UseProxy:   req.UseProxy,
		AllFormats: true,
	})
	if !meta.Success {
		return c.JSON(http.StatusOK, meta)
	}

	format := engine.SelectFormat(meta.Data.Formats, quality)
	if format == nil || format.URL == "" {
		return c.JSON(http.StatusOK, engine.FailedExtraction(
			fmt.Errorf("no playable format for quality %q", quality)))
	}

	referer, origin := platformOriginHeaders(platform)
	upstream, err := http.NewRequestWithContext(ctx, http.MethodGet, format.URL, nil)
	if err != nil {
		return c.JSON(http.StatusOK, engine.FailedExtraction(err))
	}
	upstream.Header.Set("User-Agent", engine.RandomUserAgent())
	upstream.Header.Set("Accept", "*/*")
	upstream.Header.Set("Accept-Language", "en-US,en;q=0.9")
	upstream.Header.Set("Accept-Encoding", "identity;q=1, *;q=0")
	upstream.Header.Set("Range", "bytes=0-")
	upstream.Header.Set("Referer", referer)
	upstream.Header.Set("Origin", origin)

	resp, err := engine.RetryHTTP(ctx, engine.DefaultRetryConfig, func() (*http.Response, error) {
		return engine.Cfg.HTTPClient.Do(upstream)
	})
	if err != nil {
		return c.JSON(http.StatusOK, engine.FailedExtraction(fmt.Errorf("fetch media: %w", err)))
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		return c.JSON(http.StatusOK, engine.FailedExtraction(
			fmt.Errorf("origin returned status %d", resp.StatusCode)))
	}

	ext := format.Ext
	if ext == "" {
		ext = "mp4"
	}
	h := c.Response().Header()
	h.Set(echo.HeaderContentType, "video/"+ext)
	h.Set("Content-Disposition", fmt.Sprintf("inline; filename=video.%s", ext))
	h.Set("Accept-Ranges", "bytes")
	c.Response().WriteHeader(http.StatusOK)

	n, err := io.Copy(c.Response(), resp.Body)
	slog.Info("stream finished",
		slog.String("platform", string(platform)),
		slog.String("quality", quality),
		slog.String("bytes", humanize.Bytes(uint64(n))),
		slog.Any("error", err))
	if err != nil {
		// headers already committed, surface as transport failure
		return err
	}
	return nil
}
