// vidsift — video metadata and comment extraction service.
//
// Exposes an HTTP API over four platforms (YouTube, TikTok, Instagram,
// Twitter/X): metadata extraction with format curation, multi-technique
// comment extraction with fallback, and a streaming proxy endpoint.
package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/vidsift/vidsift/internal/apiserver"
	"github.com/vidsift/vidsift/internal/config"
	"github.com/vidsift/vidsift/internal/engine"
)

var version = "dev"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	slog.Info("starting vidsift", slog.String("version", version))

	conf, err := config.LoadConfig(ctx)
	if err != nil {
		slog.Error("failed to load config", slog.Any("error", err))
		os.Exit(1)
	}

	initEngine(conf)

	srv := apiserver.NewServer(apiserver.Options{
		RateLimitRPS:   conf.RateLimitRPS,
		RateLimitBurst: conf.RateLimitBurst,
	})

	addr := ":" + strconv.Itoa(conf.WebServerPort)

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	slog.Info("listening", slog.String("addr", addr))
	if err := srv.Start(addr); err != nil {
		if errors.Is(err, context.Canceled) || ctx.Err() != nil {
			return
		}
		slog.Error("server failed", slog.Any("error", err))
		os.Exit(1)
	}
}

func initEngine(conf *config.Config) {
	proxies, err := engine.LoadProxyResolver(conf.ProxyFile, conf.FallbackProxyURL)
	if err != nil {
		slog.Warn("proxy pool unavailable, continuing without",
			slog.String("file", conf.ProxyFile),
			slog.Any("error", err))
		proxies = nil
	}

	// The browser-profile client backs direct platform API calls. Losing
	// it degrades TikTok comment extraction but the service still runs.
	var doer engine.HTTPDoer
	if bc, err := engine.NewBrowserClient(nil); err != nil {
		slog.Warn("browser-profile http client unavailable", slog.Any("error", err))
	} else {
		doer = bc
	}

	engine.Init(engine.Config{
		YtdlpPath:        conf.YtdlpPath,
		YouTubeCookies:   conf.YouTubeCookies,
		InstagramCookies: conf.InstagramCookies,
		ProxyFile:        conf.ProxyFile,
		FallbackProxyURL: conf.FallbackProxyURL,
		BrowserBin:       conf.BrowserBin,
		BrowserHeadless:  conf.BrowserHeadless,
		ExtractTimeout:   conf.ExtractTimeout,
		ScrollBudget:     conf.ScrollBudget,
		BrowserClient:    doer,
		Proxies:          proxies,
	})

	engine.InitCache(conf.RedisURL, conf.CacheTTL, conf.CacheMaxEntries, 5*time.Minute)

	slog.Info("engine ready",
		slog.Int("proxies", engine.Cfg.Proxies.Size()),
		slog.Bool("direct_api", doer != nil))
}
