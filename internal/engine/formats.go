package engine

import (
	"sort"
	"strconv"
	"strings"
)

// trackPresent derives a has-track flag from a codec field. "none" means the
// track is absent; any other value, including a wholly missing field, counts
// as present. The missing-field case mirrors the extraction library's
// convention and is intentionally preserved.
func trackPresent(codec *string) bool {
	return codec == nil || *codec != "none"
}

// numOrZero substitutes 0 for a missing numeric field during comparison.
// The stored value itself is never coerced.
func numOrZero(v *int) int {
	if v == nil {
		return 0
	}
	return *v
}

// NormalizeFormats converts the library's raw format list into the canonical
// ordered sequence: has_video/has_audio derived from codecs, sorted by
// (height, width) descending, ties keeping original appearance order.
func NormalizeFormats(raw []RawFormat) []PlayableFormat {
	out := make([]PlayableFormat, 0, len(raw))
	for _, f := range raw {
		quality := f.QualityLabel
		if quality == "" {
			quality = f.FormatNote
		}
		out = append(out, PlayableFormat{
			FormatID:       f.FormatID,
			FormatNote:     f.FormatNote,
			Ext:            f.Ext,
			Quality:        quality,
			Width:          f.Width,
			Height:         f.Height,
			FPS:            f.FPS,
			URL:            f.URL,
			ManifestURL:    f.ManifestURL,
			Filesize:       f.Filesize,
			FilesizeApprox: f.FilesizeApprox,
			Vcodec:         f.Vcodec,
			Acodec:         f.Acodec,
			ABR:            f.ABR,
			VBR:            f.VBR,
			ASR:            f.ASR,
			AudioChannels:  f.AudioChannels,
			HasVideo:       trackPresent(f.Vcodec),
			HasAudio:       trackPresent(f.Acodec),
		})
	}
	sort.SliceStable(out, func(i, j int) bool {
		hi, hj := numOrZero(out[i].Height), numOrZero(out[j].Height)
		if hi != hj {
			return hi > hj
		}
		return numOrZero(out[i].Width) > numOrZero(out[j].Width)
	})
	return out
}

// CurateFormats applies the include_all_formats=false rule: at most 5
// combined, 5 video-only and 5 audio-only formats, in that group order,
// each group keeping the current sort order.
func CurateFormats(formats []PlayableFormat) []PlayableFormat {
	var combined, videoOnly, audioOnly []PlayableFormat
	for _, f := range formats {
		switch {
		case f.HasVideo && f.HasAudio:
			combined = append(combined, f)
		case f.HasVideo:
			videoOnly = append(videoOnly, f)
		case f.HasAudio:
			audioOnly = append(audioOnly, f)
		}
	}
	cap5 := func(s []PlayableFormat) []PlayableFormat {
		if len(s) > 5 {
			return s[:5]
		}
		return s
	}
	out := make([]PlayableFormat, 0, 15)
	out = append(out, cap5(combined)...)
	out = append(out, cap5(videoOnly)...)
	out = append(out, cap5(audioOnly)...)
	return out
}

// SelectFormat picks the best playable stream for a quality request.
// quality is "best" or a height target like "720p".
//
// For a height target, the pick within a pool is the highest format whose
// height does not exceed the target, falling back to the pool's lowest
// entry when everything is above it. Combined streams are preferred when
// they meet the target; video-only picks are the fallback.
//
// For "best", combined is preferred unless the top video-only format is
// strictly taller. Platforms often cap combined streams below their
// maximum resolution.
func SelectFormat(formats []PlayableFormat, quality string) *PlayableFormat {
	var combined, videoOnly []PlayableFormat
	for i := range formats {
		f := formats[i]
		switch {
		case f.HasVideo && f.HasAudio:
			combined = append(combined, f)
		case f.HasVideo:
			videoOnly = append(videoOnly, f)
		}
	}

	target, ok := parseHeightTarget(quality)
	if !ok {
		// "best" and anything unparseable.
		if len(combined) > 0 {
			if len(videoOnly) > 0 && numOrZero(videoOnly[0].Height) > numOrZero(combined[0].Height) {
				return &videoOnly[0]
			}
			return &combined[0]
		}
		if len(videoOnly) > 0 {
			return &videoOnly[0]
		}
		return nil
	}

	cPick := pickAtOrBelow(combined, target)
	vPick := pickAtOrBelow(videoOnly, target)

	if cPick != nil && numOrZero(cPick.Height) <= target {
		return cPick
	}
	if vPick != nil && numOrZero(vPick.Height) <= target {
		return vPick
	}
	if cPick != nil {
		return cPick
	}
	return vPick
}

// pickAtOrBelow assumes pool is height-sorted descending: the first entry at
// or below target wins; if every entry is above it, the last (lowest) does.
func pickAtOrBelow(pool []PlayableFormat, target int) *PlayableFormat {
	if len(pool) == 0 {
		return nil
	}
	for i := range pool {
		if numOrZero(pool[i].Height) <= target {
			return &pool[i]
		}
	}
	return &pool[len(pool)-1]
}

func parseHeightTarget(quality string) (int, bool) {
	q := strings.TrimSpace(strings.ToLower(quality))
	if q == "" || q == "best" {
		return 0, false
	}
	n, err := strconv.Atoi(strings.TrimSuffix(q, "p"))
	if err != nil || n <= 0 {
		return 0, false
	}
	return n, true
}
