package sources

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/vidsift/vidsift/internal/engine"
)

func tiktokPage(n int, hasMore int, total int64) []byte {
	var comments []string
	for i := 0; i < n; i++ {
		comments = append(comments, fmt.Sprintf(`{
			"cid": "c%d",
			"text": "comment %d",
			"digg_count": %d,
			"create_time": 1700000000,
			"reply_comment_total": 0,
			"user": {"nickname": "nick%d", "unique_id": "user%d"}
		}`, i, i, i, i, i))
	}
	return []byte(fmt.Sprintf(`{"comments": [%s], "has_more": %d, "total": %d, "status_code": 0}`,
		strings.Join(comments, ","), hasMore, total))
}

func TestTikTokDirectAPISinglePage(t *testing.T) {
	doer := &stubDoer{responses: []stubResponse{{body: tiktokPage(10, 0, 42), status: 200}}}
	runner := &stubRunner{info: &engine.Info{ID: "7301234567890", Description: "a tiktok", CommentCount: i64(42)}}
	initTestEngine(t, engine.Config{Runner: runner, BrowserClient: doer})

	resp := ExtractComments(context.Background(), Request{
		URL:         "https://www.tiktok.com/@user/video/7301234567890",
		Platform:    engine.PlatformTikTok,
		MaxComments: 10,
	})
	if !resp.Success {
		t.Fatalf("success=false: %s", resp.Error)
	}
	if len(resp.Comments) != 10 {
		t.Errorf("comments = %d, want 10", len(resp.Comments))
	}
	if doer.calls != 1 {
		t.Errorf("direct API called %d times, want 1", doer.calls)
	}
	if resp.VideoID != "7301234567890" {
		t.Errorf("video id = %q", resp.VideoID)
	}
	if resp.TotalComments == nil || *resp.TotalComments != 42 {
		t.Errorf("total = %v, want 42", resp.TotalComments)
	}
	if resp.Comments[0].Author != "nick0" || resp.Comments[0].AuthorID != "user0" {
		t.Errorf("author mapping: %+v", resp.Comments[0])
	}
}

func TestTikTokDirectAPITechniqueLabel(t *testing.T) {
	if got := (tiktokDirectAPIComments{}).Name(); got != "direct API" {
		t.Errorf("Name() = %q", got)
	}
	if got := (tiktokBrowserComments{}).Name(); got != "browser" {
		t.Errorf("Name() = %q", got)
	}
}

func TestTikTokDirectAPIPagination(t *testing.T) {
	doer := &stubDoer{responses: []stubResponse{
		{body: tiktokPage(50, 1, 90), status: 200},
		{body: tiktokPage(50, 0, 90), status: 200}, // same cids, dedup keeps 50
	}}
	initTestEngine(t, engine.Config{BrowserClient: doer})

	tech := tiktokDirectAPIComments{videoID: "123"}
	res := tech.Attempt(context.Background(), engine.CommentRequest{
		URL:         "https://www.tiktok.com/@user/video/123",
		MaxComments: 100,
	})
	if res.Err != nil {
		t.Fatalf("unexpected error: %v", res.Err)
	}
	if doer.calls != 2 {
		t.Errorf("calls = %d, want 2", doer.calls)
	}
	// second page repeated the same comment ids, dedup must hold
	if len(res.Comments) != 50 {
		t.Errorf("comments = %d, want 50 after dedup", len(res.Comments))
	}
}

func TestTikTokDirectAPIUnavailableClient(t *testing.T) {
	initTestEngine(t, engine.Config{})
	engine.Cfg.BrowserClient = nil

	tech := tiktokDirectAPIComments{videoID: "123"}
	res := tech.Attempt(context.Background(), engine.CommentRequest{MaxComments: 10})
	if res.Err == nil {
		t.Fatal("expected error without an http client")
	}
}

func TestTikTokBrowserRequiresProxy(t *testing.T) {
	initTestEngine(t, engine.Config{})
	tech := tiktokBrowserComments{videoID: "123"}
	res := tech.Attempt(context.Background(), engine.CommentRequest{MaxComments: 10})
	if res.Err == nil || !strings.Contains(res.Err.Error(), "proxy") {
		t.Errorf("browser fallback without proxy should refuse, got %v", res.Err)
	}
}

func TestResolveTikTokVideoFromURL(t *testing.T) {
	runner := &stubRunner{err: &engine.ExecError{Stderr: "ERROR: blocked"}}
	initTestEngine(t, engine.Config{Runner: runner})

	id, _, err := resolveTikTokVideo(context.Background(), Request{
		URL:      "https://www.tiktok.com/@user/video/7301234567890?lang=en",
		Platform: engine.PlatformTikTok,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if id != "7301234567890" {
		t.Errorf("id = %q", id)
	}
}

func TestResolveTikTokVideoFails(t *testing.T) {
	runner := &stubRunner{err: &engine.ExecError{Stderr: "ERROR: blocked"}}
	initTestEngine(t, engine.Config{Runner: runner})

	_, _, err := resolveTikTokVideo(context.Background(), Request{
		URL:      "https://vm.tiktok.com/ZMabcdef/",
		Platform: engine.PlatformTikTok,
	})
	if err == nil || !strings.Contains(err.Error(), "could not determine video id") {
		t.Errorf("err = %v", err)
	}
}

func TestTikTokMetadataFields(t *testing.T) {
	runner := &stubRunner{info: &engine.Info{
		ID:          "7301234567890",
		Description: "dance video #fyp\nmore",
		Timestamp:   i64(1700000000),
		Creator:     "someone",
		CreatorID:   "someone_id",
		IsLive:      false,
		Track:       "original sound",
		Artist:      "someone",
	}}
	initTestEngine(t, engine.Config{Runner: runner})

	resp := ExtractMetadata(context.Background(), Request{
		URL:      "https://www.tiktok.com/@user/video/7301234567890",
		Platform: engine.PlatformTikTok,
	})
	if !resp.Success {
		t.Fatalf("success=false: %s", resp.Error)
	}
	if resp.Data.Title != "dance video #fyp" {
		t.Errorf("derived title = %q", resp.Data.Title)
	}
	if resp.Data.UploadDate != "20231114" {
		t.Errorf("upload_date = %q", resp.Data.UploadDate)
	}
	if resp.Data.Uploader != "someone" || resp.Data.ChannelID != "someone_id" {
		t.Errorf("creator aliases not resolved: %q/%q", resp.Data.Uploader, resp.Data.ChannelID)
	}
	if resp.Data.RawMetadata["track"] != "original sound" {
		t.Errorf("raw track = %v", resp.Data.RawMetadata["track"])
	}
}

func TestDrainKeepsPartialsAfterBudgetExpiry(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel() // scroll budget already spent

	seen := map[string]bool{"c0": true}
	partial := []engine.Comment{{Author: "early", Text: "collected before expiry"}}
	bodies := make(chan []byte) // nothing else in flight

	got, total := drainCommentBodies(ctx, bodies, seen, partial, 50, nil)
	if len(got) != 1 || got[0].Author != "early" {
		t.Fatalf("partial results lost: %+v", got)
	}
	if total != nil {
		t.Errorf("total = %v, want nil", *total)
	}
}
