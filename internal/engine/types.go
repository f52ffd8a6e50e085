package engine

import (
	"strings"
	"time"
)

// Platform identifies a supported video platform.
type Platform string

const (
	PlatformYouTube   Platform = "youtube"
	PlatformTikTok    Platform = "tiktok"
	PlatformInstagram Platform = "instagram"
	PlatformTwitter   Platform = "twitter"
)

// DetectPlatform infers the platform from a URL by hostname substring.
// Anything unrecognized is treated as YouTube.
func DetectPlatform(rawURL string) Platform {
	lower := strings.ToLower(rawURL)
	switch {
	case strings.Contains(lower, "tiktok"):
		return PlatformTikTok
	case strings.Contains(lower, "twitter") || strings.Contains(lower, "x.com"):
		return PlatformTwitter
	case strings.Contains(lower, "instagram"):
		return PlatformInstagram
	default:
		return PlatformYouTube
	}
}

// DefaultMaxComments is the per-platform default comment cap.
func DefaultMaxComments(p Platform) int {
	switch p {
	case PlatformTwitter, PlatformInstagram:
		return 50
	default:
		return 100
	}
}

// PlayableFormat is one normalized playable stream. Pointer fields distinguish
// "absent" from zero; HasVideo/HasAudio are derived by NormalizeFormats and
// never set independently.
type PlayableFormat struct {
	FormatID       string   `json:"format_id"`
	FormatNote     string   `json:"format_note,omitempty"`
	Ext            string   `json:"ext"`
	Quality        string   `json:"quality,omitempty"`
	Width          *int     `json:"width"`
	Height         *int     `json:"height"`
	FPS            *float64 `json:"fps"`
	URL            string   `json:"url"` // direct download URL, expires
	ManifestURL    string   `json:"manifest_url,omitempty"`
	Filesize       *int64   `json:"filesize"`
	FilesizeApprox *int64   `json:"filesize_approx"`
	Vcodec         *string  `json:"vcodec"`
	Acodec         *string  `json:"acodec"`
	ABR            *float64 `json:"abr,omitempty"`
	VBR            *float64 `json:"vbr,omitempty"`
	ASR            *int     `json:"asr,omitempty"`
	AudioChannels  *int     `json:"audio_channels,omitempty"`
	HasVideo       bool     `json:"has_video"`
	HasAudio       bool     `json:"has_audio"`
}

// VideoMetadata is the canonical metadata record for one video.
// Built once per extraction, never mutated afterwards.
type VideoMetadata struct {
	Platform      Platform         `json:"platform"`
	URL           string           `json:"url"`
	Title         string           `json:"title,omitempty"`
	Description   string           `json:"description,omitempty"`
	Duration      *float64         `json:"duration,omitempty"` // float: Twitter reports sub-second precision
	ViewCount     *int64           `json:"view_count,omitempty"`
	LikeCount     *int64           `json:"like_count,omitempty"`
	CommentCount  *int64           `json:"comment_count,omitempty"`
	UploadDate    string           `json:"upload_date,omitempty"` // YYYYMMDD
	Uploader      string           `json:"uploader,omitempty"`
	ChannelID     string           `json:"channel_id,omitempty"`
	ChannelURL    string           `json:"channel_url,omitempty"`
	FollowerCount *int64           `json:"follower_count,omitempty"`
	Thumbnail     string           `json:"thumbnail,omitempty"`
	Thumbnails    []map[string]any `json:"thumbnails,omitempty"`
	VideoID       string           `json:"video_id,omitempty"`
	Formats       []PlayableFormat `json:"formats,omitempty"`
	Subtitles     map[string]any   `json:"subtitles,omitempty"`
	Tags          []string         `json:"tags,omitempty"`
	Categories    []string         `json:"categories,omitempty"`
	AgeLimit      *int64           `json:"age_limit,omitempty"`
	Availability  string           `json:"availability,omitempty"`
	LiveStatus    string           `json:"live_status,omitempty"`
	RawMetadata   map[string]any   `json:"raw_metadata,omitempty"`
}

// Comment is one comment/reply. Timestamp keeps whatever type the producing
// technique observed (epoch int or string), it is not coerced.
type Comment struct {
	Author     string `json:"author,omitempty"`
	AuthorID   string `json:"author_id,omitempty"`
	Text       string `json:"text,omitempty"`
	LikeCount  *int64 `json:"like_count,omitempty"`
	Timestamp  any    `json:"timestamp,omitempty"`
	ReplyCount *int64 `json:"reply_count,omitempty"`
}

// ExtractionResponse is the metadata envelope. Success=false always pairs
// with a populated Error and nil Data.
type ExtractionResponse struct {
	Success   bool           `json:"success"`
	Data      *VideoMetadata `json:"data,omitempty"`
	Error     string         `json:"error,omitempty"`
	Timestamp string         `json:"timestamp"`
}

// CommentsResponse is the comments envelope.
type CommentsResponse struct {
	Success       bool      `json:"success"`
	VideoID       string    `json:"video_id,omitempty"`
	VideoTitle    string    `json:"video_title,omitempty"`
	TotalComments *int64    `json:"total_comments,omitempty"`
	Comments      []Comment `json:"comments"`
	Error         string    `json:"error,omitempty"`
	Timestamp     string    `json:"timestamp"`
}

// NowStamp returns the envelope timestamp in ISO-8601 UTC.
func NowStamp() string {
	return time.Now().UTC().Format(time.RFC3339)
}

// OkExtraction and FailedExtraction build well-formed metadata envelopes.
func OkExtraction(meta *VideoMetadata) ExtractionResponse {
	return ExtractionResponse{Success: true, Data: meta, Timestamp: NowStamp()}
}

func FailedExtraction(err error) ExtractionResponse {
	return ExtractionResponse{Success: false, Error: err.Error(), Timestamp: NowStamp()}
}

// DeriveTitle returns title when set, else the first line of description
// capped at 100 runes. Used by platforms that have no explicit title field.
func DeriveTitle(title, description string) string {
	if title != "" {
		return title
	}
	if description == "" {
		return ""
	}
	line := description
	if idx := strings.IndexByte(line, '\n'); idx >= 0 {
		line = line[:idx]
	}
	runes := []rune(line)
	if len(runes) > 100 {
		return string(runes[:100])
	}
	return line
}

// EpochToUploadDate converts a platform epoch timestamp to the YYYYMMDD form
// used by upload_date, in UTC.
func EpochToUploadDate(ts int64) string {
	return time.Unix(ts, 0).UTC().Format("20060102")
}

// FirstCount returns the first non-nil counter among platform alias fields.
func FirstCount(vals ...*int64) *int64 {
	for _, v := range vals {
		if v != nil {
			return v
		}
	}
	return nil
}
