package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
)

// CommentRequest is the immutable input to a comment extraction chain.
type CommentRequest struct {
	URL         string
	Platform    Platform
	MaxComments int
	Proxy       *ProxyEndpoint
	CookieFile  string
}

// AttemptResult is the outcome of a single technique. It exists only to
// drive fallback decisions and logging, never to be persisted.
type AttemptResult struct {
	Technique  string
	Comments   []Comment
	VideoID    string
	VideoTitle string
	Total      *int64
	Err        error
}

// Accepted reports whether this attempt ends the chain: an exception-free
// call that produced zero comments is not success.
func (r AttemptResult) Accepted() bool {
	return r.Err == nil && len(r.Comments) > 0
}

// reason is the operator-facing failure description for aggregation.
func (r AttemptResult) reason() string {
	if r.Err != nil {
		return r.Err.Error()
	}
	return "returned no comments"
}

// Technique is one concrete method of obtaining comments for a platform.
type Technique interface {
	Name() string
	Attempt(ctx context.Context, req CommentRequest) AttemptResult
}

// ChainResult is the merged outcome of a comment extraction chain.
type ChainResult struct {
	Comments   []Comment
	VideoID    string
	VideoTitle string
	Total      *int64
	History    []AttemptResult // every attempt, including the accepted one
}

// RunChain tries techniques strictly in order until one produces at least
// one comment. Techniques never run concurrently: each is expensive and the
// chain short-circuits on first success. When every technique fails, the
// returned error names each technique with its individual reason so
// operators can see which layer broke.
func RunChain(ctx context.Context, req CommentRequest, techniques []Technique) (ChainResult, error) {
	if len(techniques) == 0 {
		return ChainResult{}, errors.New("no extraction techniques configured")
	}

	res := ChainResult{}
	for _, tech := range techniques {
		IncrTechniqueAttempt(tech.Name())
		attempt := tech.Attempt(ctx, req)
		attempt.Technique = tech.Name()
		res.History = append(res.History, attempt)

		// Earlier attempts may still have discovered identity fields
		// (video id, title) worth keeping for the final envelope.
		if res.VideoID == "" {
			res.VideoID = attempt.VideoID
		}
		if res.VideoTitle == "" {
			res.VideoTitle = attempt.VideoTitle
		}
		if res.Total == nil {
			res.Total = attempt.Total
		}

		if attempt.Accepted() {
			slog.Info("comment technique succeeded",
				slog.String("platform", string(req.Platform)),
				slog.String("technique", tech.Name()),
				slog.Int("comments", len(attempt.Comments)))
			res.Comments = attempt.Comments
			return res, nil
		}

		IncrTechniqueFailure(tech.Name())
		slog.Warn("comment technique failed, falling back",
			slog.String("platform", string(req.Platform)),
			slog.String("technique", tech.Name()),
			slog.String("reason", attempt.reason()))
	}

	return res, chainError(res.History)
}

// chainError aggregates per-technique reasons, semicolon-joined. A chain
// where nothing errored but nothing was found reads differently from one
// where every layer broke.
func chainError(history []AttemptResult) error {
	parts := make([]string, 0, len(history))
	errored := false
	for _, a := range history {
		if a.Err != nil {
			errored = true
		}
		parts = append(parts, fmt.Sprintf("%s: %s", a.Technique, a.reason()))
	}
	detail := strings.Join(parts, "; ")
	if !errored {
		return fmt.Errorf("no comments found (%s)", detail)
	}
	return fmt.Errorf("all extraction techniques failed (%s)", detail)
}
