package sources

import (
	"context"
	"os"

	"github.com/vidsift/vidsift/internal/engine"
)

// runExtractor is the single path to the extraction capability: counts the
// run and flags slow invocations.
func runExtractor(ctx context.Context, url string, opts engine.Options) (*engine.Info, error) {
	engine.IncrYtdlpRuns()
	var info *engine.Info
	err := engine.TrackOperation(ctx, "ytdlp extract", func(ctx context.Context) error {
		var err error
		info, err = engine.Cfg.Runner.Extract(ctx, url, opts)
		return err
	})
	return info, err
}

// firstNonEmpty resolves platform field aliases (uploader vs creator etc).
func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}

func fileExists(path string) bool {
	if path == "" {
		return false
	}
	st, err := os.Stat(path)
	return err == nil && !st.IsDir()
}

// buildMetadata maps the extraction library's info record onto the canonical
// metadata shape. The alias resolution, title derivation and upload-date
// handling differ per platform and those differences are contractual.
func buildMetadata(p engine.Platform, url string, info *engine.Info, allFormats bool) *engine.VideoMetadata {
	formats := engine.NormalizeFormats(info.Formats)
	if !allFormats {
		formats = engine.CurateFormats(formats)
	}

	meta := &engine.VideoMetadata{
		Platform:      p,
		URL:           url,
		Title:         info.Title,
		Description:   info.Description,
		Duration:      info.Duration,
		ViewCount:     info.ViewCount,
		LikeCount:     info.LikeCount,
		CommentCount:  info.CommentCount,
		UploadDate:    info.UploadDate,
		Uploader:      info.Uploader,
		ChannelID:     info.ChannelID,
		ChannelURL:    info.ChannelURL,
		FollowerCount: info.Followers(),
		Thumbnail:     info.Thumbnail,
		Thumbnails:    info.Thumbnails,
		VideoID:       info.ID,
		Formats:       formats,
		Subtitles:     info.Subtitles,
		Tags:          info.Tags,
		AgeLimit:      info.AgeLimit,
		Availability:  info.Availability,
		RawMetadata: map[string]any{
			"webpage_url":   info.WebpageURL,
			"original_url":  info.OriginalURL,
			"extractor":     info.Extractor,
			"extractor_key": info.ExtractorKey,
		},
	}

	switch p {
	case engine.PlatformYouTube:
		meta.Categories = info.Categories
		meta.LiveStatus = info.LiveStatus
	default:
		// Non-YouTube platforms rarely carry an explicit title or a
		// preformatted upload date; derive both.
		meta.Title = engine.DeriveTitle(info.Title, info.Description)
		if info.Timestamp != nil {
			meta.UploadDate = engine.EpochToUploadDate(*info.Timestamp)
		}
		meta.Uploader = firstNonEmpty(info.Uploader, info.Creator)
		meta.ChannelID = firstNonEmpty(info.UploaderID, info.CreatorID)
		meta.ChannelURL = firstNonEmpty(info.UploaderURL, info.CreatorURL)
	}

	switch p {
	case engine.PlatformTikTok:
		if info.IsLive {
			meta.LiveStatus = "is_live"
		}
		meta.RawMetadata["track"] = info.Track
		meta.RawMetadata["artist"] = info.Artist
		meta.RawMetadata["album"] = info.Album
	case engine.PlatformInstagram:
		if info.IsLive {
			meta.LiveStatus = "is_live"
		}
		meta.RawMetadata["post_type"] = info.PostType
	case engine.PlatformTwitter:
		meta.RawMetadata["repost_count"] = info.RepostCount
		meta.RawMetadata["quote_count"] = info.QuoteCount
	}

	return meta
}

// convertComments maps library comments onto the canonical shape, capped at max.
func convertComments(raw []engine.RawComment, max int) []engine.Comment {
	out := make([]engine.Comment, 0, len(raw))
	for _, c := range raw {
		if max > 0 && len(out) >= max {
			break
		}
		var replies *int64
		if c.Replies != nil {
			n := int64(len(c.Replies))
			replies = &n
		}
		out = append(out, engine.Comment{
			Author:     c.Author,
			AuthorID:   c.AuthorID,
			Text:       c.Text,
			LikeCount:  c.LikeCount,
			Timestamp:  c.Timestamp,
			ReplyCount: replies,
		})
	}
	return out
}
