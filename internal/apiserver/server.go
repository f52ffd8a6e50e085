package apiserver

import (
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"golang.org/x/time/rate"

	"github.com/vidsift/vidsift/internal/engine"
)

// Server is the HTTP surface over the extraction engine.
type Server struct {
	*echo.Echo
	validate *validator.Validate
	limiter  *ipLimiter
}

// Options tunes the server; zero values get sensible defaults.
type Options struct {
	RateLimitRPS   float64
	RateLimitBurst int
}

func NewServer(opts Options) *Server {
	if opts.RateLimitRPS <= 0 {
		opts.RateLimitRPS = 5
	}
	if opts.RateLimitBurst <= 0 {
		opts.RateLimitBurst = 10
	}

	s := &Server{
		Echo:     echo.New(),
		validate: validator.New(),
		limiter:  newIPLimiter(rate.Limit(opts.RateLimitRPS), opts.RateLimitBurst),
	}
	s.setupMiddleware()
	s.registerRoutes()
	return s
}

func (s *Server) setupMiddleware() {
	s.HideBanner = true
	s.HidePort = true
	s.Use(middleware.BodyLimit("1M"))
	s.Use(middleware.Recover())
	s.Use(middleware.RequestID())
	s.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		Skipper: func(c echo.Context) bool {
			return c.Path() == "/healthz"
		},
		LogURI:       true,
		LogMethod:    true,
		LogStatus:    true,
		LogLatency:   true,
		LogRemoteIP:  true,
		LogRequestID: true,
		LogError:     true,
		HandleError:  false,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			slog.Info("request",
				slog.String("method", v.Method),
				slog.String("uri", v.URI),
				slog.Int("status", v.Status),
				slog.Duration("latency", v.Latency),
				slog.String("remote_ip", v.RemoteIP),
				slog.String("request_id", v.RequestID),
				slog.Any("error", v.Error))
			return nil
		},
	}))
	s.Use(s.rateLimit)
}

func (s *Server) registerRoutes() {
	s.GET("/", s.handleRoot)
	s.GET("/healthz", s.handleHealthz)
	s.GET("/metrics", s.handleMetrics)

	s.POST("/extract/auto", s.handleExtractAuto)
	s.POST("/extract/:platform", s.handleExtract)
	s.POST("/extract/:platform/comments", s.handleComments)
	s.POST("/stream", s.handleStream)
}

// rateLimit enforces a per-IP token bucket. Extraction work is expensive
// enough that a single hot client can starve the browser pool.
func (s *Server) rateLimit(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		if !s.limiter.allow(c.RealIP()) {
			return c.JSON(http.StatusTooManyRequests, map[string]any{
				"success":   false,
				"error":     "rate limit exceeded, slow down",
				"timestamp": engine.NowStamp(),
			})
		}
		return next(c)
	}
}

// ipLimiter keeps one token bucket per client IP, pruning idle entries.
type ipLimiter struct {
	mu       sync.Mutex
	visitors map[string]*visitor
	limit    rate.Limit
	burst    int
}

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

func newIPLimiter(limit rate.Limit, burst int) *ipLimiter {
	l := &ipLimiter{
		visitors: make(map[string]*visitor),
		limit:    limit,
		burst:    burst,
	}
	go l.cleanupLoop()
	return l
}

func (l *ipLimiter) allow(ip string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	v, ok := l.visitors[ip]
	if !ok {
		v = &visitor{limiter: rate.NewLimiter(l.limit, l.burst)}
		l.visitors[ip] = v
	}
	v.lastSeen = time.Now()
	return v.limiter.Allow()
}

func (l *ipLimiter) cleanupLoop() {
	ticker := time.NewTicker(3 * time.Minute)
	defer ticker.Stop()
	for range ticker.C {
		l.mu.Lock()
		for ip, v := range l.visitors {
			if time.Since(v.lastSeen) > 10*time.Minute {
				delete(l.visitors, ip)
			}
		}
		l.mu.Unlock()
	}
}
