package engine

import (
	"context"
	"errors"
	"strings"
	"testing"
)

func argsFor(t *testing.T, url string, opts Options) []string {
	t.Helper()
	return renderArgs(url, opts)
}

func TestRenderArgsBase(t *testing.T) {
	args := argsFor(t, "https://youtu.be/abc", Options{})
	joined := strings.Join(args, " ")
	for _, want := range []string{"--dump-single-json", "--skip-download", "--no-warnings", "--no-playlist"} {
		if !strings.Contains(joined, want) {
			t.Errorf("missing %q in %q", want, joined)
		}
	}
	if args[len(args)-1] != "https://youtu.be/abc" {
		t.Errorf("url must be last arg, got %q", args[len(args)-1])
	}
	if strings.Contains(joined, "--proxy") || strings.Contains(joined, "--cookies") {
		t.Errorf("zero options leaked flags: %q", joined)
	}
}

func TestRenderArgsFull(t *testing.T) {
	opts := Options{
		Proxy:         &ProxyEndpoint{Raw: "http://u:p@h:1"},
		CookieFile:    "/tmp/cookies.txt",
		UserAgent:     "UA",
		Referer:       "https://www.tiktok.com/",
		PlayerClients: []string{"android", "web"},
		FetchComments: true,
		MaxComments:   40,
	}
	joined := strings.Join(argsFor(t, "u", opts), " ")
	for _, want := range []string{
		"--proxy http://u:p@h:1",
		"--cookies /tmp/cookies.txt",
		"--user-agent UA",
		"--referer https://www.tiktok.com/",
		"--write-comments",
		"--extractor-args youtube:player_client=android,web;max_comments=40,40,40,40",
	} {
		if !strings.Contains(joined, want) {
			t.Errorf("missing %q in %q", want, joined)
		}
	}
}

func TestRenderArgsCommentsWithoutCap(t *testing.T) {
	joined := strings.Join(argsFor(t, "u", Options{FetchComments: true}), " ")
	if !strings.Contains(joined, "--write-comments") {
		t.Errorf("missing --write-comments in %q", joined)
	}
	if strings.Contains(joined, "max_comments") {
		t.Errorf("zero cap leaked max_comments: %q", joined)
	}
}

func TestExecRunnerParsesInfo(t *testing.T) {
	r := &execRunner{
		path: "yt-dlp",
		execFn: func(_ context.Context, name string, args ...string) ([]byte, []byte, error) {
			if name != "yt-dlp" {
				t.Errorf("binary = %q", name)
			}
			return []byte(`{
				"id": "abc123",
				"title": "a video",
				"duration": 12.5,
				"view_count": 987,
				"timestamp": 1700000000,
				"channel_follower_count": 4200,
				"formats": [{"format_id": "22", "height": 720, "vcodec": "avc1", "acodec": "mp4a"}],
				"comments": [{"author": "u", "text": "hi", "like_count": 2, "timestamp": 1700000001}]
			}`), nil, nil
		},
	}

	info, err := r.Extract(context.Background(), "https://youtu.be/abc123", Options{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if info.ID != "abc123" || info.Title != "a video" {
		t.Errorf("identity fields: %q %q", info.ID, info.Title)
	}
	if info.Duration == nil || *info.Duration != 12.5 {
		t.Errorf("duration = %v", info.Duration)
	}
	if got := info.Followers(); got == nil || *got != 4200 {
		t.Errorf("Followers() = %v, want 4200", got)
	}
	if len(info.Formats) != 1 || len(info.Comments) != 1 {
		t.Errorf("formats/comments = %d/%d", len(info.Formats), len(info.Comments))
	}
	if len(info.Raw) == 0 {
		t.Error("Raw payload not kept")
	}
}

func TestExecRunnerStderrSurfaces(t *testing.T) {
	r := &execRunner{
		execFn: func(_ context.Context, _ string, _ ...string) ([]byte, []byte, error) {
			return nil, []byte("ERROR: [Instagram] login required\n"), errors.New("exit status 1")
		},
	}
	_, err := r.Extract(context.Background(), "https://www.instagram.com/reel/x/", Options{})
	if err == nil {
		t.Fatal("expected error")
	}
	var ee *ExecError
	if !errors.As(err, &ee) {
		t.Fatalf("want *ExecError, got %T", err)
	}
	if !strings.Contains(err.Error(), "login required") {
		t.Errorf("stderr not surfaced: %q", err.Error())
	}
}

func TestExecRunnerEmptyURL(t *testing.T) {
	r := &execRunner{}
	if _, err := r.Extract(context.Background(), "  ", Options{}); err == nil {
		t.Fatal("expected error for empty url")
	}
}
