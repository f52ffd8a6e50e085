package sources

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/vidsift/vidsift/internal/engine"
)

// twitterGraphQLComments is the browser fallback: load the tweet page,
// intercept GraphQL TweetDetail responses and mine them for reply nodes.
// Twitter serves replies only through this endpoint, there is no public API.
type twitterGraphQLComments struct{}

func (twitterGraphQLComments) Name() string { return "browser" }

func (t twitterGraphQLComments) Attempt(ctx context.Context, req engine.CommentRequest) engine.AttemptResult {
	tweetID := tweetIDFromURL(req.URL)
	if tweetID == "" {
		return engine.AttemptResult{Err: errors.New("could not determine tweet id from url")}
	}

	sess, err := engine.NewBrowserSession(req.Proxy)
	if err != nil {
		return engine.AttemptResult{Err: fmt.Errorf("launch browser: %w", err)}
	}
	defer sess.Close()

	page, err := sess.StealthPage()
	if err != nil {
		return engine.AttemptResult{Err: err}
	}
	defer page.Close()

	bodies, stop := engine.CaptureResponses(page, "*TweetDetail*")
	defer stop()

	if err := page.Navigate(req.URL); err != nil {
		return engine.AttemptResult{Err: fmt.Errorf("navigate: %w", err)}
	}
	if err := page.WaitLoad(); err != nil {
		slog.Debug("tweet page load wait", slog.Any("error", err))
	}

	ctx, cancel := engine.ScrollContext(ctx)
	defer cancel()

	// Roughly one scroll round per 10 desired comments, capped at 10.
	rounds := req.MaxComments / 10
	if rounds < 1 {
		rounds = 1
	}
	if rounds > 10 {
		rounds = 10
	}

	seen := map[string]bool{}
	var comments []engine.Comment
	var title string

	for r := 0; r <= rounds; r++ {
		drainTweetBodies(ctx, bodies, tweetID, seen, &title, &comments)
		if len(comments) >= req.MaxComments || ctx.Err() != nil {
			break
		}
		if r < rounds {
			engine.ScrollFeed(ctx, page, 1, 2*time.Second)
		}
	}

	if len(comments) > req.MaxComments {
		comments = comments[:req.MaxComments]
	}
	return engine.AttemptResult{
		VideoID:    tweetID,
		VideoTitle: title,
		Comments:   comments,
	}
}

// drainTweetBodies consumes buffered TweetDetail payloads, waiting briefly
// for stragglers still in flight.
func drainTweetBodies(ctx context.Context, bodies <-chan []byte, tweetID string, seen map[string]bool, title *string, out *[]engine.Comment) {
	for {
		select {
		case body := <-bodies:
			var root any
			if err := json.Unmarshal(body, &root); err != nil {
				slog.Debug("tweet detail payload not json", slog.Any("error", err))
				continue
			}
			walkTweetNodes(root, tweetID, seen, title, out)
		case <-time.After(1500 * time.Millisecond):
			return
		case <-ctx.Done():
			return
		}
	}
}

// walkTweetNodes recursively visits a decoded GraphQL payload collecting
// Tweet-shaped nodes: any object carrying a rest_id plus a legacy block
// with full_text. The node matching the original tweet id supplies the
// title; every other unseen node is a reply.
func walkTweetNodes(v any, tweetID string, seen map[string]bool, title *string, out *[]engine.Comment) {
	switch node := v.(type) {
	case map[string]any:
		if restID, legacy := tweetShape(node); legacy != nil {
			if restID == tweetID {
				if *title == "" {
					*title = engine.DeriveTitle("", jsonStr(legacy, "full_text"))
				}
			} else if !seen[restID] {
				seen[restID] = true
				*out = append(*out, tweetComment(node, legacy))
			}
		}
		for _, child := range node {
			walkTweetNodes(child, tweetID, seen, title, out)
		}
	case []any:
		for _, child := range node {
			walkTweetNodes(child, tweetID, seen, title, out)
		}
	}
}

// tweetShape reports whether node is Tweet-shaped, returning its rest_id
// and legacy block when it is.
func tweetShape(node map[string]any) (string, map[string]any) {
	restID := jsonStr(node, "rest_id")
	if restID == "" {
		return "", nil
	}
	legacy, _ := node["legacy"].(map[string]any)
	if legacy == nil || jsonStr(legacy, "full_text") == "" {
		return "", nil
	}
	return restID, legacy
}

func tweetComment(node, legacy map[string]any) engine.Comment {
	c := engine.Comment{
		Text:       jsonStr(legacy, "full_text"),
		LikeCount:  jsonInt(legacy, "favorite_count"),
		ReplyCount: jsonInt(legacy, "reply_count"),
	}
	if created := jsonStr(legacy, "created_at"); created != "" {
		c.Timestamp = created
	}
	// Author lives under core.user_results.result.legacy.
	if core, ok := node["core"].(map[string]any); ok {
		if ur, ok := core["user_results"].(map[string]any); ok {
			if result, ok := ur["result"].(map[string]any); ok {
				if userLegacy, ok := result["legacy"].(map[string]any); ok {
					c.Author = jsonStr(userLegacy, "name")
					c.AuthorID = jsonStr(userLegacy, "screen_name")
				}
			}
		}
	}
	return c
}

func jsonStr(m map[string]any, key string) string {
	s, _ := m[key].(string)
	return s
}

func jsonInt(m map[string]any, key string) *int64 {
	f, ok := m[key].(float64)
	if !ok {
		return nil
	}
	n := int64(f)
	return &n
}
