package sources

import (
	"context"
	"fmt"
	"strconv"

	"github.com/vidsift/vidsift/internal/engine"
)

// Request is one extraction job, immutable once constructed.
type Request struct {
	URL         string
	Platform    engine.Platform
	UseProxy    bool   // pick from the pooled proxies
	ProxyURL    string // dedicated proxy, wins over the pool
	CookieFile  string // override; empty = platform default from config
	AllFormats  bool
	MaxComments int
}

func (r Request) proxyIntent() engine.ProxyIntent {
	return engine.ProxyIntent{Pooled: r.UseProxy, Dedicated: r.ProxyURL}
}

// proxyWanted reports proxy intent regardless of whether resolution yields
// an endpoint. Cookie injection keys off intent, not the resolved value.
func (r Request) proxyWanted() bool {
	return r.UseProxy || r.ProxyURL != ""
}

func (r Request) cacheKey(kind string) string {
	return engine.CacheKey(
		kind,
		string(r.Platform),
		r.URL,
		strconv.FormatBool(r.UseProxy),
		r.ProxyURL,
		r.CookieFile,
		strconv.FormatBool(r.AllFormats),
		strconv.Itoa(r.MaxComments),
	)
}

// ExtractMetadata runs the platform metadata extractor and wraps the result
// in the stable response envelope. Upstream failures never escape as raw
// errors, they land in the envelope's error field.
func ExtractMetadata(ctx context.Context, req Request) engine.ExtractionResponse {
	engine.IncrExtractRequests()

	key := req.cacheKey("meta")
	if resp, ok := engine.CacheLoadJSON[engine.ExtractionResponse](ctx, key); ok {
		return resp
	}

	ctx, cancel := context.WithTimeout(ctx, engine.Cfg.ExtractTimeout)
	defer cancel()

	var meta *engine.VideoMetadata
	var err error
	switch req.Platform {
	case engine.PlatformTikTok:
		meta, err = TikTokMetadata(ctx, req)
	case engine.PlatformInstagram:
		meta, err = InstagramMetadata(ctx, req)
	case engine.PlatformTwitter:
		meta, err = TwitterMetadata(ctx, req)
	case engine.PlatformYouTube:
		meta, err = YouTubeMetadata(ctx, req)
	default:
		err = fmt.Errorf("unsupported platform %q", req.Platform)
	}
	if err != nil {
		engine.IncrExtractErrors()
		return engine.FailedExtraction(err)
	}

	resp := engine.OkExtraction(meta)
	engine.CacheStoreJSON(ctx, key, resp)
	return resp
}

// ExtractComments runs the per-platform comment technique chain and wraps
// the outcome in the comments envelope.
func ExtractComments(ctx context.Context, req Request) engine.CommentsResponse {
	engine.IncrCommentRequests()

	if req.MaxComments <= 0 {
		req.MaxComments = engine.DefaultMaxComments(req.Platform)
	}

	key := req.cacheKey("comments")
	if resp, ok := engine.CacheLoadJSON[engine.CommentsResponse](ctx, key); ok {
		return resp
	}

	ctx, cancel := context.WithTimeout(ctx, engine.Cfg.ExtractTimeout)
	defer cancel()

	creq := engine.CommentRequest{
		URL:         req.URL,
		Platform:    req.Platform,
		MaxComments: req.MaxComments,
		Proxy:       engine.Cfg.Proxies.Resolve(req.proxyIntent()),
	}

	var techniques []engine.Technique
	var seed engine.ChainResult // identity discovered before the chain runs
	switch req.Platform {
	case engine.PlatformYouTube:
		creq.CookieFile = youtubeCookieFile(req)
		techniques = []engine.Technique{youtubeYtdlpComments{proxyWanted: req.proxyWanted()}}
	case engine.PlatformInstagram:
		cookieFile := instagramCookieFile(req)
		if err := instagramCookieGate(cookieFile); err != nil {
			engine.IncrCommentErrors()
			return failedComments(seed, err)
		}
		creq.CookieFile = cookieFile
		techniques = []engine.Technique{instagramYtdlpComments{}}
	case engine.PlatformTwitter:
		techniques = []engine.Technique{twitterYtdlpComments{}, twitterGraphQLComments{}}
	case engine.PlatformTikTok:
		id, resolved, err := resolveTikTokVideo(ctx, req)
		if err != nil {
			engine.IncrCommentErrors()
			return failedComments(seed, err)
		}
		seed = resolved
		techniques = []engine.Technique{
			tiktokDirectAPIComments{videoID: id},
			tiktokBrowserComments{videoID: id},
		}
	default:
		engine.IncrCommentErrors()
		return failedComments(seed, fmt.Errorf("unsupported platform %q", req.Platform))
	}

	res, err := engine.RunChain(ctx, creq, techniques)
	mergeSeed(&res, seed)
	if err != nil {
		engine.IncrCommentErrors()
		return failedComments(res, err)
	}

	total := res.Total
	if total == nil {
		n := int64(len(res.Comments))
		total = &n
	}
	resp := engine.CommentsResponse{
		Success:       true,
		VideoID:       res.VideoID,
		VideoTitle:    res.VideoTitle,
		TotalComments: total,
		Comments:      res.Comments,
		Timestamp:     engine.NowStamp(),
	}
	engine.CacheStoreJSON(ctx, key, resp)
	return resp
}

// mergeSeed fills identity fields discovered before the chain ran.
func mergeSeed(res *engine.ChainResult, seed engine.ChainResult) {
	if res.VideoID == "" {
		res.VideoID = seed.VideoID
	}
	if res.VideoTitle == "" {
		res.VideoTitle = seed.VideoTitle
	}
	if res.Total == nil {
		res.Total = seed.Total
	}
}

func failedComments(res engine.ChainResult, err error) engine.CommentsResponse {
	return engine.CommentsResponse{
		Success:       false,
		VideoID:       res.VideoID,
		VideoTitle:    res.VideoTitle,
		TotalComments: res.Total,
		Comments:      []engine.Comment{},
		Error:         err.Error(),
		Timestamp:     engine.NowStamp(),
	}
}
