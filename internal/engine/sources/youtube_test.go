package sources

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/vidsift/vidsift/internal/engine"
)

func poolOfOne(t *testing.T) *engine.ProxyResolver {
	t.Helper()
	path := filepath.Join(t.TempDir(), "proxies.txt")
	if err := os.WriteFile(path, []byte("gate.example.com:8080:u:p\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	r, err := engine.LoadProxyResolver(path, "")
	if err != nil {
		t.Fatal(err)
	}
	return r
}

func TestYouTubeProxyCookieMutualExclusion(t *testing.T) {
	cookies := writeCookieFile(t)
	initTestEngine(t, engine.Config{
		YouTubeCookies: cookies,
		Proxies:        poolOfOne(t),
	})

	opts := youtubeOptions(Request{URL: "https://youtu.be/abc", UseProxy: true})
	if opts.Proxy == nil {
		t.Fatal("pooled intent did not resolve a proxy")
	}
	if opts.CookieFile != "" {
		t.Errorf("cookie file leaked into proxied options: %q", opts.CookieFile)
	}
	if len(opts.PlayerClients) != 2 || opts.PlayerClients[0] != "android" {
		t.Errorf("player clients = %v, want android,web", opts.PlayerClients)
	}
}

func TestYouTubeCookiesWithoutProxy(t *testing.T) {
	cookies := writeCookieFile(t)
	initTestEngine(t, engine.Config{
		YouTubeCookies: cookies,
		Proxies:        poolOfOne(t),
	})

	opts := youtubeOptions(Request{URL: "https://youtu.be/abc"})
	if opts.Proxy != nil {
		t.Error("proxy assigned without intent")
	}
	if opts.CookieFile != cookies {
		t.Errorf("cookie file = %q, want %q", opts.CookieFile, cookies)
	}
	if len(opts.PlayerClients) != 0 {
		t.Errorf("player clients set without proxy: %v", opts.PlayerClients)
	}
}

func TestYouTubeMetadataEnvelope(t *testing.T) {
	runner := &stubRunner{info: &engine.Info{
		ID:         "abc123",
		Title:      "a video",
		Duration:   f64(61),
		ViewCount:  i64(1000),
		UploadDate: "20240101",
		Uploader:   "someone",
		Formats: []engine.RawFormat{
			{FormatID: "22", Height: intp(720), Vcodec: strp("avc1"), Acodec: strp("mp4a")},
		},
	}}
	initTestEngine(t, engine.Config{Runner: runner})

	resp := ExtractMetadata(context.Background(), Request{
		URL:        "https://youtu.be/abc123",
		Platform:   engine.PlatformYouTube,
		AllFormats: true,
	})
	if !resp.Success {
		t.Fatalf("success=false: %s", resp.Error)
	}
	if resp.Data == nil || resp.Data.VideoID != "abc123" {
		t.Fatalf("data = %+v", resp.Data)
	}
	if resp.Data.Platform != engine.PlatformYouTube {
		t.Errorf("platform = %v", resp.Data.Platform)
	}
	if resp.Data.UploadDate != "20240101" {
		t.Errorf("upload_date = %q, YouTube must keep the library's string", resp.Data.UploadDate)
	}
	if len(resp.Data.Formats) != 1 || !resp.Data.Formats[0].HasVideo {
		t.Errorf("formats = %+v", resp.Data.Formats)
	}
	if resp.Timestamp == "" {
		t.Error("envelope timestamp missing")
	}
}

func TestYouTubeMetadataFailureEnvelope(t *testing.T) {
	runner := &stubRunner{err: &engine.ExecError{Stderr: "ERROR: Video unavailable"}}
	initTestEngine(t, engine.Config{Runner: runner})

	resp := ExtractMetadata(context.Background(), Request{
		URL:      "https://youtu.be/gone",
		Platform: engine.PlatformYouTube,
	})
	if resp.Success {
		t.Fatal("expected failure envelope")
	}
	if resp.Error == "" || resp.Data != nil {
		t.Errorf("failure envelope malformed: %+v", resp)
	}
}

func TestYouTubeCommentsTechnique(t *testing.T) {
	runner := &stubRunner{info: &engine.Info{
		ID:           "abc123",
		Title:        "a video",
		CommentCount: i64(250),
		Comments: []engine.RawComment{
			{Author: "u1", Text: "first", LikeCount: i64(4), Timestamp: float64(1700000001)},
			{Author: "u2", Text: "second"},
		},
	}}
	initTestEngine(t, engine.Config{Runner: runner})

	resp := ExtractComments(context.Background(), Request{
		URL:      "https://youtu.be/abc123",
		Platform: engine.PlatformYouTube,
	})
	if !resp.Success {
		t.Fatalf("success=false: %s", resp.Error)
	}
	if len(resp.Comments) != 2 {
		t.Errorf("comments = %d, want 2", len(resp.Comments))
	}
	if resp.TotalComments == nil || *resp.TotalComments != 250 {
		t.Errorf("total = %v, want platform-reported 250", resp.TotalComments)
	}
	if resp.VideoID != "abc123" || resp.VideoTitle != "a video" {
		t.Errorf("identity = %q/%q", resp.VideoID, resp.VideoTitle)
	}
	if !runner.lastOpts.FetchComments {
		t.Error("comment fetch not enabled on the extraction call")
	}
	if runner.lastOpts.MaxComments != 100 {
		t.Errorf("default max = %d, want 100", runner.lastOpts.MaxComments)
	}
}

func strp(s string) *string { return &s }
func intp(n int) *int       { return &n }
