package engine

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os/exec"
	"strings"
)

// Options is the configuration bag handed to the extraction capability for
// one call. Zero value = plain metadata extraction, no auth, no proxy.
type Options struct {
	Proxy         *ProxyEndpoint
	CookieFile    string
	UserAgent     string
	Referer       string
	PlayerClients []string       // youtube client identities, e.g. android,web
	FetchComments bool
	MaxComments   int            // one cap replicated across top/newest/replies/all
	Format        string         // format selector, only for direct-URL resolution
}

// Runner is the black-box extraction capability: given a URL and an options
// bag it returns a loosely-typed info structure or fails.
type Runner interface {
	Extract(ctx context.Context, url string, opts Options) (*Info, error)
}

// Info models the extraction library's JSON output with optional-field
// semantics: pointer fields distinguish "missing" from zero. The full
// payload is kept in Raw.
type Info struct {
	ID           string           `json:"id"`
	Title        string           `json:"title"`
	Description  string           `json:"description"`
	Duration     *float64         `json:"duration"`
	Timestamp    *int64           `json:"timestamp"`
	UploadDate   string           `json:"upload_date"`
	ViewCount    *int64           `json:"view_count"`
	LikeCount    *int64           `json:"like_count"`
	CommentCount *int64           `json:"comment_count"`
	Uploader     string           `json:"uploader"`
	Creator      string           `json:"creator"`
	UploaderID   string           `json:"uploader_id"`
	CreatorID    string           `json:"creator_id"`
	UploaderURL  string           `json:"uploader_url"`
	CreatorURL   string           `json:"creator_url"`
	ChannelID    string           `json:"channel_id"`
	ChannelURL   string           `json:"channel_url"`
	Thumbnail    string           `json:"thumbnail"`
	Thumbnails   []map[string]any `json:"thumbnails"`
	Formats      []RawFormat      `json:"formats"`
	Subtitles    map[string]any   `json:"subtitles"`
	Tags         []string         `json:"tags"`
	Categories   []string         `json:"categories"`
	AgeLimit     *int64           `json:"age_limit"`
	Availability string           `json:"availability"`
	LiveStatus   string           `json:"live_status"`
	IsLive       bool             `json:"is_live"`
	Ext          string           `json:"ext"`
	URL          string           `json:"url"` // resolved direct media URL
	Comments     []RawComment     `json:"comments"`
	WebpageURL   string           `json:"webpage_url"`
	OriginalURL  string           `json:"original_url"`
	Extractor    string           `json:"extractor"`
	ExtractorKey string           `json:"extractor_key"`
	RepostCount  *int64           `json:"repost_count"`
	QuoteCount   *int64           `json:"quote_count"`
	Track        string           `json:"track"`
	Artist       string           `json:"artist"`
	Album        string           `json:"album"`
	PostType     string           `json:"post_type"`

	// Follower count comes under different names per platform; the first
	// populated alias wins, absence of all means unknown.
	ChannelFollowerCount  *int64 `json:"channel_follower_count"`
	UploaderFollowerCount *int64 `json:"uploader_follower_count"`
	FollowerCount         *int64 `json:"follower_count"`

	Raw json.RawMessage `json:"-"`
}

// Followers resolves the follower-count aliases.
func (i *Info) Followers() *int64 {
	return FirstCount(i.ChannelFollowerCount, i.UploaderFollowerCount, i.FollowerCount)
}

// RawFormat is one entry of the library's format list, before normalization.
type RawFormat struct {
	FormatID       string   `json:"format_id"`
	FormatNote     string   `json:"format_note"`
	Ext            string   `json:"ext"`
	QualityLabel   string   `json:"quality_label"`
	Width          *int     `json:"width"`
	Height         *int     `json:"height"`
	FPS            *float64 `json:"fps"`
	URL            string   `json:"url"`
	ManifestURL    string   `json:"manifest_url"`
	Filesize       *int64   `json:"filesize"`
	FilesizeApprox *int64   `json:"filesize_approx"`
	Vcodec         *string  `json:"vcodec"`
	Acodec         *string  `json:"acodec"`
	ABR            *float64 `json:"abr"`
	VBR            *float64 `json:"vbr"`
	ASR            *int     `json:"asr"`
	AudioChannels  *int     `json:"audio_channels"`
}

// RawComment is one entry of the library's comment list. Timestamp keeps the
// type the library produced.
type RawComment struct {
	Author    string `json:"author"`
	AuthorID  string `json:"author_id"`
	Text      string `json:"text"`
	LikeCount *int64 `json:"like_count"`
	Timestamp any    `json:"timestamp"`
	Replies   []any  `json:"replies"`
}

// ExecError wraps a failed extraction subprocess with its captured stderr,
// which carries the platform failure signatures callers classify on.
type ExecError struct {
	Args     []string
	ExitCode int
	Stderr   string
	Cause    error
}

func (e *ExecError) Error() string {
	if e.Stderr != "" {
		return e.Stderr
	}
	return fmt.Sprintf("extractor failed (exit %d)", e.ExitCode)
}

func (e *ExecError) Unwrap() error { return e.Cause }

// execRunner runs yt-dlp as a subprocess in metadata-only JSON mode.
type execRunner struct {
	path string
	// execFn overrides process execution in tests.
	execFn func(ctx context.Context, name string, args ...string) (stdout, stderr []byte, err error)
}

// NewExecRunner returns the production Runner backed by the yt-dlp binary.
func NewExecRunner(path string) Runner {
	return &execRunner{path: path}
}

func (r *execRunner) Extract(ctx context.Context, url string, opts Options) (*Info, error) {
	if strings.TrimSpace(url) == "" {
		return nil, errors.New("extract: url is required")
	}

	args := renderArgs(url, opts)
	name := r.path
	if strings.TrimSpace(name) == "" {
		name = "yt-dlp"
	}

	var stdout, stderr []byte
	var err error
	if r.execFn != nil {
		stdout, stderr, err = r.execFn(ctx, name, args...)
	} else {
		cmd := exec.CommandContext(ctx, name, args...)
		var outBuf, errBuf bytes.Buffer
		cmd.Stdout = &outBuf
		cmd.Stderr = &errBuf
		err = cmd.Run()
		stdout, stderr = outBuf.Bytes(), errBuf.Bytes()
	}
	if err != nil {
		exitCode := 0
		var ee *exec.ExitError
		if errors.As(err, &ee) {
			exitCode = ee.ExitCode()
		}
		return nil, &ExecError{
			Args:     args,
			ExitCode: exitCode,
			Stderr:   strings.TrimSpace(string(stderr)),
			Cause:    err,
		}
	}

	raw := bytes.TrimSpace(stdout)
	info := &Info{Raw: append([]byte(nil), raw...)}
	if err := json.Unmarshal(raw, info); err != nil {
		return nil, fmt.Errorf("extract: parse json: %w", err)
	}
	return info, nil
}

// renderArgs turns the options bag into the yt-dlp argument vector.
func renderArgs(url string, opts Options) []string {
	args := []string{"--dump-single-json", "--skip-download", "--no-warnings", "--no-playlist"}

	if opts.Proxy != nil {
		args = append(args, "--proxy", opts.Proxy.Raw)
	}
	if opts.CookieFile != "" {
		args = append(args, "--cookies", opts.CookieFile)
	}
	if opts.UserAgent != "" {
		args = append(args, "--user-agent", opts.UserAgent)
	}
	if opts.Referer != "" {
		args = append(args, "--referer", opts.Referer)
	}

	var extractorArgs []string
	if len(opts.PlayerClients) > 0 {
		extractorArgs = append(extractorArgs, "player_client="+strings.Join(opts.PlayerClients, ","))
	}
	if opts.FetchComments {
		args = append(args, "--write-comments")
		if opts.MaxComments > 0 {
			// One cap value replicated across top/newest/replies/all.
			n := fmt.Sprint(opts.MaxComments)
			extractorArgs = append(extractorArgs, fmt.Sprintf("max_comments=%s,%s,%s,%s", n, n, n, n))
		}
	}
	if len(extractorArgs) > 0 {
		args = append(args, "--extractor-args", "youtube:"+strings.Join(extractorArgs, ";"))
	}

	if opts.Format != "" {
		args = append(args, "--format", opts.Format)
	}

	return append(args, url)
}
