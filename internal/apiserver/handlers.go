package apiserver

import (
	"fmt"
	"net/http"
	"os"

	"github.com/labstack/echo/v4"

	"github.com/vidsift/vidsift/internal/engine"
	"github.com/vidsift/vidsift/internal/engine/sources"
)

// ExtractRequest is the body for metadata extraction endpoints.
type ExtractRequest struct {
	URL               string `json:"url" validate:"required,url"`
	UseProxy          bool   `json:"use_proxy"`
	ProxyURL          string `json:"proxy_url" validate:"omitempty,url"`
	CookiesFile       string `json:"cookies_file"`
	IncludeAllFormats *bool  `json:"include_all_formats"`
}

// CommentsRequest is the body for comment extraction endpoints.
type CommentsRequest struct {
	URL         string `json:"url" validate:"required,url"`
	UseProxy    bool   `json:"use_proxy"`
	ProxyURL    string `json:"proxy_url" validate:"omitempty,url"`
	CookiesFile string `json:"cookies_file"`
	MaxComments int    `json:"max_comments" validate:"omitempty,gt=0,lte=1000"`
}

func (s *Server) bindAndValidate(c echo.Context, req any) error {
	if err := c.Bind(req); err != nil {
		return err
	}
	return s.validate.Struct(req)
}

// badRequest is the one place extraction endpoints answer non-200: the
// request itself was malformed, so there is nothing to extract.
func badRequest(c echo.Context, err error) error {
	return c.JSON(http.StatusBadRequest, map[string]any{
		"success":   false,
		"error":     fmt.Sprintf("invalid request: %v", err),
		"timestamp": engine.NowStamp(),
	})
}

func platformParam(c echo.Context) (engine.Platform, error) {
	p := engine.Platform(c.Param("platform"))
	switch p {
	case engine.PlatformYouTube, engine.PlatformTikTok, engine.PlatformInstagram, engine.PlatformTwitter:
		return p, nil
	default:
		return "", fmt.Errorf("unknown platform %q", c.Param("platform"))
	}
}

func (s *Server) handleExtract(c echo.Context) error {
	platform, err := platformParam(c)
	if err != nil {
		return badRequest(c, err)
	}
	var req ExtractRequest
	if err := s.bindAndValidate(c, &req); err != nil {
		return badRequest(c, err)
	}

	allFormats := true
	if req.IncludeAllFormats != nil {
		allFormats = *req.IncludeAllFormats
	}
	resp := sources.ExtractMetadata(c.Request().Context(), sources.Request{
		URL:        req.URL,
		Platform:   platform,
		UseProxy:   req.UseProxy,
		ProxyURL:   req.ProxyURL,
		CookieFile: req.CookiesFile,
		AllFormats: allFormats,
	})
	return c.JSON(http.StatusOK, resp)
}

func (s *Server) handleExtractAuto(c echo.Context) error {
	var req ExtractRequest
	if err := s.bindAndValidate(c, &req); err != nil {
		return badRequest(c, err)
	}

	allFormats := true
	if req.IncludeAllFormats != nil {
		allFormats = *req.IncludeAllFormats
	}
	resp := sources.ExtractMetadata(c.Request().Context(), sources.Request{
		URL:        req.URL,
		Platform:   engine.DetectPlatform(req.URL),
		UseProxy:   req.UseProxy,
		ProxyURL:   req.ProxyURL,
		CookieFile: req.CookiesFile,
		AllFormats: allFormats,
	})
	return c.JSON(http.StatusOK, resp)
}

func (s *Server) handleComments(c echo.Context) error {
	platform, err := platformParam(c)
	if err != nil {
		return badRequest(c, err)
	}
	var req CommentsRequest
	if err := s.bindAndValidate(c, &req); err != nil {
		return badRequest(c, err)
	}

	resp := sources.ExtractComments(c.Request().Context(), sources.Request{
		URL:         req.URL,
		Platform:    platform,
		UseProxy:    req.UseProxy,
		ProxyURL:    req.ProxyURL,
		CookieFile:  req.CookiesFile,
		MaxComments: req.MaxComments,
	})
	return c.JSON(http.StatusOK, resp)
}

func cookieStatus(path string) string {
	if _, err := os.Stat(path); err == nil {
		return "found"
	}
	return "missing"
}

func (s *Server) handleRoot(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]any{
		"service": "vidsift",
		"status":  "running",
		"cookies": map[string]string{
			"youtube":   cookieStatus(engine.Cfg.YouTubeCookies),
			"instagram": cookieStatus(engine.Cfg.InstagramCookies),
		},
		"proxies": engine.Cfg.Proxies.Size(),
		"endpoints": map[string]string{
			"metadata": "/extract/{youtube|tiktok|instagram|twitter}",
			"comments": "/extract/{youtube|tiktok|instagram|twitter}/comments",
			"auto":     "/extract/auto",
			"stream":   "/stream",
			"metrics":  "/metrics",
		},
		"timestamp": engine.NowStamp(),
	})
}

func (s *Server) handleHealthz(c echo.Context) error {
	return c.String(http.StatusOK, "ok")
}

func (s *Server) handleMetrics(c echo.Context) error {
	return c.String(http.StatusOK, engine.FormatMetrics())
}
