package engine

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

// Metrics tracks operational counters across the engine.
var metrics struct {
	ExtractRequests  atomic.Int64
	ExtractErrors    atomic.Int64
	CommentRequests  atomic.Int64
	CommentErrors    atomic.Int64
	StreamRequests   atomic.Int64
	YtdlpRuns        atomic.Int64
	YtdlpErrors      atomic.Int64
	BrowserSessions  atomic.Int64
	DirectAPICalls   atomic.Int64
	ProxyAssignments atomic.Int64
}

// Per-technique counters keyed by technique label, created on first use.
var (
	techniqueAttempts sync.Map // string → *atomic.Int64
	techniqueFailures sync.Map
)

func incr(m *sync.Map, name string) {
	val, _ := m.LoadOrStore(name, &atomic.Int64{})
	val.(*atomic.Int64).Add(1)
}

// IncrTechniqueAttempt counts one attempt of a named comment technique.
func IncrTechniqueAttempt(name string) { incr(&techniqueAttempts, name) }

// IncrTechniqueFailure counts one failed attempt of a named comment technique.
func IncrTechniqueFailure(name string) { incr(&techniqueFailures, name) }

func IncrExtractRequests()  { metrics.ExtractRequests.Add(1) }
func IncrExtractErrors()    { metrics.ExtractErrors.Add(1) }
func IncrCommentRequests()  { metrics.CommentRequests.Add(1) }
func IncrCommentErrors()    { metrics.CommentErrors.Add(1) }
func IncrStreamRequests()   { metrics.StreamRequests.Add(1) }
func IncrYtdlpRuns()        { metrics.YtdlpRuns.Add(1) }
func IncrYtdlpErrors()      { metrics.YtdlpErrors.Add(1) }
func IncrBrowserSessions()  { metrics.BrowserSessions.Add(1) }
func IncrDirectAPICalls()   { metrics.DirectAPICalls.Add(1) }
func IncrProxyAssignments() { metrics.ProxyAssignments.Add(1) }

// GetMetrics returns a snapshot of all metrics including cache stats.
func GetMetrics() map[string]int64 {
	hits, misses := CacheStats()
	out := map[string]int64{
		"extract_requests":  metrics.ExtractRequests.Load(),
		"extract_errors":    metrics.ExtractErrors.Load(),
		"comment_requests":  metrics.CommentRequests.Load(),
		"comment_errors":    metrics.CommentErrors.Load(),
		"stream_requests":   metrics.StreamRequests.Load(),
		"ytdlp_runs":        metrics.YtdlpRuns.Load(),
		"ytdlp_errors":      metrics.YtdlpErrors.Load(),
		"browser_sessions":  metrics.BrowserSessions.Load(),
		"direct_api_calls":  metrics.DirectAPICalls.Load(),
		"proxy_assignments": metrics.ProxyAssignments.Load(),
		"cache_hits":        hits,
		"cache_misses":      misses,
	}
	techniqueAttempts.Range(func(k, v any) bool {
		out["technique_attempts{"+k.(string)+"}"] = v.(*atomic.Int64).Load()
		return true
	})
	techniqueFailures.Range(func(k, v any) bool {
		out["technique_failures{"+k.(string)+"}"] = v.(*atomic.Int64).Load()
		return true
	})
	return out
}

// FormatMetrics returns metrics as a simple text format for HTTP endpoint.
func FormatMetrics() string {
	m := GetMetrics()
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	var sb strings.Builder
	for _, k := range keys {
		fmt.Fprintf(&sb, "%s %d\n", k, m[k])
	}
	return sb.String()
}

// TrackOperation logs a warning if an operation takes longer than threshold.
func TrackOperation(ctx context.Context, name string, fn func(context.Context) error) error {
	start := time.Now()
	err := fn(ctx)
	elapsed := time.Since(start)
	if elapsed > 5*time.Second {
		slog.Warn("slow operation", slog.String("op", name), slog.Duration("elapsed", elapsed))
	}
	return err
}
