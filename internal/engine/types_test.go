package engine

import (
	"strings"
	"testing"
)

func TestDetectPlatform(t *testing.T) {
	tests := []struct {
		url  string
		want Platform
	}{
		{"https://www.tiktok.com/@user/video/123", PlatformTikTok},
		{"https://vm.tiktok.com/ZMabc/", PlatformTikTok},
		{"https://twitter.com/u/status/1", PlatformTwitter},
		{"https://x.com/u/status/1", PlatformTwitter},
		{"https://www.instagram.com/reel/abc/", PlatformInstagram},
		{"https://www.youtube.com/watch?v=abc", PlatformYouTube},
		{"https://youtu.be/abc", PlatformYouTube},
		{"https://example.com/whatever", PlatformYouTube},
	}
	for _, tt := range tests {
		t.Run(tt.url, func(t *testing.T) {
			if got := DetectPlatform(tt.url); got != tt.want {
				t.Errorf("DetectPlatform(%q) = %v, want %v", tt.url, got, tt.want)
			}
		})
	}
}

func TestDefaultMaxComments(t *testing.T) {
	tests := []struct {
		p    Platform
		want int
	}{
		{PlatformYouTube, 100},
		{PlatformTikTok, 100},
		{PlatformTwitter, 50},
		{PlatformInstagram, 50},
	}
	for _, tt := range tests {
		if got := DefaultMaxComments(tt.p); got != tt.want {
			t.Errorf("DefaultMaxComments(%v) = %d, want %d", tt.p, got, tt.want)
		}
	}
}

func TestDeriveTitle(t *testing.T) {
	long := strings.Repeat("x", 150)
	tests := []struct {
		name, title, desc, want string
	}{
		{"explicit title wins", "real title", "desc\nmore", "real title"},
		{"first line of description", "", "line one\nline two", "line one"},
		{"long first line capped at 100", "", long, long[:100]},
		{"both empty", "", "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := DeriveTitle(tt.title, tt.desc); got != tt.want {
				t.Errorf("DeriveTitle() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestEpochToUploadDate(t *testing.T) {
	// 2023-11-14T22:13:20Z
	if got := EpochToUploadDate(1700000000); got != "20231114" {
		t.Errorf("EpochToUploadDate(1700000000) = %q, want 20231114", got)
	}
	if got := EpochToUploadDate(0); got != "19700101" {
		t.Errorf("EpochToUploadDate(0) = %q, want 19700101", got)
	}
}

func TestFirstCount(t *testing.T) {
	a, b := int64(3), int64(7)
	if got := FirstCount(nil, &a, &b); got != &a {
		t.Errorf("FirstCount skipped first non-nil")
	}
	if got := FirstCount(nil, nil); got != nil {
		t.Errorf("FirstCount() = %v, want nil", got)
	}
}

func TestFailedExtractionEnvelope(t *testing.T) {
	resp := FailedExtraction(errStub("boom"))
	if resp.Success {
		t.Error("Success should be false")
	}
	if resp.Error != "boom" {
		t.Errorf("Error = %q, want boom", resp.Error)
	}
	if resp.Data != nil {
		t.Errorf("Data should be nil on failure")
	}
	if resp.Timestamp == "" {
		t.Error("Timestamp missing")
	}
}

type errStub string

func (e errStub) Error() string { return string(e) }
