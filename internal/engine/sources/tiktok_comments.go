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

const tiktokCommentListURL = "https://www.tiktok.com/api/comment/list/?aweme_id=%s&cursor=%d&count=50"

// tiktokCommentPage is one page of the unauthenticated comment list API.
type tiktokCommentPage struct {
	Comments   []tiktokComment `json:"comments"`
	HasMore    int             `json:"has_more"`
	Cursor     int64           `json:"cursor"`
	Total      *int64          `json:"total"`
	StatusCode int             `json:"status_code"`
}

type tiktokComment struct {
	CID        string `json:"cid"`
	Text       string `json:"text"`
	DiggCount  *int64 `json:"digg_count"`
	CreateTime any    `json:"create_time"`
	ReplyTotal *int64 `json:"reply_comment_total"`
	User       struct {
		Nickname string `json:"nickname"`
		UniqueID string `json:"unique_id"`
		SecUID   string `json:"sec_uid"`
	} `json:"user"`
}

// appendComments converts a page into canonical comments, deduplicating by
// the platform comment id, capped at max.
func (p *tiktokCommentPage) appendComments(seen map[string]bool, out []engine.Comment, max int) []engine.Comment {
	for _, c := range p.Comments {
		if len(out) >= max {
			break
		}
		if c.CID == "" || seen[c.CID] {
			continue
		}
		seen[c.CID] = true
		out = append(out, engine.Comment{
			Author:     firstNonEmpty(c.User.Nickname, c.User.UniqueID),
			AuthorID:   firstNonEmpty(c.User.UniqueID, c.User.SecUID),
			Text:       c.Text,
			LikeCount:  c.DiggCount,
			Timestamp:  c.CreateTime,
			ReplyCount: c.ReplyTotal,
		})
	}
	return out
}

// tiktokDirectAPIComments pages through TikTok's unauthenticated comment
// API with the browser-profile HTTP client. Each page carries up to 50
// comments, a cursor, and a has-more flag.
type tiktokDirectAPIComments struct {
	videoID string
}

func (tiktokDirectAPIComments) Name() string { return "direct API" }

func (t tiktokDirectAPIComments) Attempt(ctx context.Context, req engine.CommentRequest) engine.AttemptResult {
	client := engine.Cfg.BrowserClient
	if client == nil {
		return engine.AttemptResult{Err: errors.New("browser-profile http client unavailable")}
	}

	seen := map[string]bool{}
	var comments []engine.Comment
	var total *int64
	cursor := int64(0)

	for {
		if ctx.Err() != nil {
			break
		}
		engine.IncrDirectAPICalls()

		headers := engine.ChromeHeaders()
		headers["referer"] = req.URL
		body, status, err := client.Do("GET", fmt.Sprintf(tiktokCommentListURL, t.videoID, cursor), headers, nil)
		if err != nil {
			if len(comments) > 0 {
				break // keep what we have
			}
			return engine.AttemptResult{Err: err}
		}
		if status != 200 {
			if len(comments) > 0 {
				break
			}
			return engine.AttemptResult{Err: fmt.Errorf("comment list returned status %d", status)}
		}

		var page tiktokCommentPage
		if err := json.Unmarshal(body, &page); err != nil {
			if len(comments) > 0 {
				break
			}
			return engine.AttemptResult{Err: fmt.Errorf("comment list parse: %w", err)}
		}
		if page.Total != nil {
			total = page.Total
		}

		before := len(comments)
		comments = page.appendComments(seen, comments, req.MaxComments)
		if len(comments) >= req.MaxComments || page.HasMore == 0 || len(comments) == before {
			break
		}
		if page.Cursor > cursor {
			cursor = page.Cursor
		} else {
			cursor += int64(len(page.Comments))
		}
	}

	return engine.AttemptResult{
		VideoID:  t.videoID,
		Total:    total,
		Comments: comments,
	}
}

// drainCommentBodies consumes captured comment payloads, waiting briefly
// for responses still in flight.
func drainCommentBodies(ctx context.Context, bodies <-chan []byte, seen map[string]bool, comments []engine.Comment, max int, total *int64) ([]engine.Comment, *int64) {
	for {
		select {
		case body := <-bodies:
			var page tiktokCommentPage
			if err := json.Unmarshal(body, &page); err != nil {
				slog.Debug("comment payload not json", slog.Any("error", err))
				continue
			}
			if page.Total != nil {
				total = page.Total
			}
			comments = page.appendComments(seen, comments, max)
		case <-time.After(1500 * time.Millisecond):
			return comments, total
		case <-ctx.Done():
			return comments, total
		}
	}
}

// tiktokBrowserComments loads the video page in a real browser and steals
// the comment payloads off the wire as the page scrolls. Only attempted
// with a proxy: TikTok blocks datacenter IPs at the page level long before
// the comment API would.
type tiktokBrowserComments struct {
	videoID string
}

func (tiktokBrowserComments) Name() string { return "browser" }

func (t tiktokBrowserComments) Attempt(ctx context.Context, req engine.CommentRequest) engine.AttemptResult {
	if req.Proxy == nil {
		return engine.AttemptResult{Err: errors.New("no proxy available for browser fallback")}
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

	bodies, stop := engine.CaptureResponses(page, "*/api/comment/list/*")
	defer stop()

	if err := page.Navigate(req.URL); err != nil {
		return engine.AttemptResult{Err: fmt.Errorf("navigate: %w", err)}
	}
	if err := page.WaitLoad(); err != nil {
		slog.Debug("tiktok page load wait", slog.Any("error", err))
	}

	ctx, cancel := engine.ScrollContext(ctx)
	defer cancel()

	// Roughly one scroll round per 20 desired comments, capped at 10.
	rounds := req.MaxComments / 20
	if rounds < 1 {
		rounds = 1
	}
	if rounds > 10 {
		rounds = 10
	}

	seen := map[string]bool{}
	var comments []engine.Comment
	var total *int64
	stale := 0

	for r := 0; r <= rounds; r++ {
		before := len(comments)
		comments, total = drainCommentBodies(ctx, bodies, seen, comments, req.MaxComments, total)
		if len(comments) == before {
			stale++
		} else {
			stale = 0
		}
		// Two quiet rounds in a row means the stream of new comments stalled.
		if len(comments) >= req.MaxComments || ctx.Err() != nil || stale >= 2 {
			break
		}
		if r < rounds {
			engine.ScrollFeed(ctx, page, 1, 2*time.Second)
		}
	}

	return engine.AttemptResult{
		VideoID:  t.videoID,
		Total:    total,
		Comments: comments,
	}
}
