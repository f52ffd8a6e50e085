package engine

import "testing"

func strp(s string) *string { return &s }
func intp(n int) *int       { return &n }

func TestTrackPresent(t *testing.T) {
	tests := []struct {
		name  string
		codec *string
		want  bool
	}{
		{"none", strp("none"), false},
		{"h264", strp("avc1.640028"), true},
		{"missing field", nil, true},
		{"empty string", strp(""), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := trackPresent(tt.codec); got != tt.want {
				t.Errorf("trackPresent() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestNormalizeFormatsOrdering(t *testing.T) {
	raw := []RawFormat{
		{FormatID: "a", Height: intp(360), Width: intp(640)},
		{FormatID: "b", Height: intp(1080), Width: intp(1920)},
		{FormatID: "c"}, // no dimensions, sorts as 0x0
		{FormatID: "d", Height: intp(1080), Width: intp(2048)},
	}
	got := NormalizeFormats(raw)
	wantOrder := []string{"d", "b", "a", "c"}
	for i, id := range wantOrder {
		if got[i].FormatID != id {
			t.Fatalf("position %d = %q, want %q (full: %+v)", i, got[i].FormatID, id, got)
		}
	}
	// dimensionless entry keeps nil, not coerced to 0
	if got[3].Height != nil {
		t.Errorf("missing height was coerced to %d", *got[3].Height)
	}
}

func TestNormalizeFormatsTrackFlags(t *testing.T) {
	raw := []RawFormat{
		{FormatID: "muxed", Vcodec: strp("avc1"), Acodec: strp("mp4a")},
		{FormatID: "video", Vcodec: strp("vp9"), Acodec: strp("none")},
		{FormatID: "audio", Vcodec: strp("none"), Acodec: strp("opus")},
		{FormatID: "bare"}, // neither codec reported
	}
	got := NormalizeFormats(raw)
	byID := map[string]PlayableFormat{}
	for _, f := range got {
		byID[f.FormatID] = f
	}
	tests := []struct {
		id                 string
		hasVideo, hasAudio bool
	}{
		{"muxed", true, true},
		{"video", true, false},
		{"audio", false, true},
		{"bare", true, true},
	}
	for _, tt := range tests {
		f := byID[tt.id]
		if f.HasVideo != tt.hasVideo || f.HasAudio != tt.hasAudio {
			t.Errorf("%s: has_video/has_audio = %v/%v, want %v/%v",
				tt.id, f.HasVideo, f.HasAudio, tt.hasVideo, tt.hasAudio)
		}
	}
}

func TestCurateFormatsCaps(t *testing.T) {
	var formats []PlayableFormat
	for i := 0; i < 7; i++ {
		formats = append(formats, PlayableFormat{FormatID: "c", HasVideo: true, HasAudio: true})
	}
	for i := 0; i < 6; i++ {
		formats = append(formats, PlayableFormat{FormatID: "v", HasVideo: true})
	}
	formats = append(formats,
		PlayableFormat{FormatID: "a", HasAudio: true},
		PlayableFormat{FormatID: "a", HasAudio: true})

	got := CurateFormats(formats)
	if len(got) != 12 { // 5 + 5 + 2
		t.Fatalf("len = %d, want 12", len(got))
	}
	counts := map[string]int{}
	for _, f := range got {
		counts[f.FormatID]++
	}
	if counts["c"] != 5 || counts["v"] != 5 || counts["a"] != 2 {
		t.Errorf("group counts = %v, want c:5 v:5 a:2", counts)
	}
	// group order: combined first, then video-only, then audio-only
	if got[0].FormatID != "c" || got[5].FormatID != "v" || got[10].FormatID != "a" {
		t.Errorf("group order broken: %v %v %v", got[0].FormatID, got[5].FormatID, got[10].FormatID)
	}
}

func TestSelectFormat(t *testing.T) {
	combined720 := PlayableFormat{FormatID: "c720", Height: intp(720), HasVideo: true, HasAudio: true}
	combined360 := PlayableFormat{FormatID: "c360", Height: intp(360), HasVideo: true, HasAudio: true}
	video1080 := PlayableFormat{FormatID: "v1080", Height: intp(1080), HasVideo: true}
	video480 := PlayableFormat{FormatID: "v480", Height: intp(480), HasVideo: true}
	audio := PlayableFormat{FormatID: "a0", HasAudio: true}

	tests := []struct {
		name    string
		formats []PlayableFormat
		quality string
		want    string
	}{
		{"best prefers combined", []PlayableFormat{combined720, video480, audio}, "best", "c720"},
		{"best takes taller video-only", []PlayableFormat{video1080, combined720, audio}, "best", "v1080"},
		{"height target combined wins", []PlayableFormat{video1080, combined720, combined360, video480}, "720p", "c720"},
		{"combined under target beats closer video-only", []PlayableFormat{combined720, combined360, video480}, "480p", "c360"},
		{"no combined under target uses video-only", []PlayableFormat{combined720, video480}, "480p", "v480"},
		{"everything above target takes lowest", []PlayableFormat{combined720, combined360}, "240p", "c360"},
		{"bare number works", []PlayableFormat{combined720, combined360}, "360", "c360"},
		{"garbage quality falls back to best", []PlayableFormat{combined720}, "potato", "c720"},
		{"video-only library", []PlayableFormat{video1080, video480}, "best", "v1080"},
		{"audio only yields nothing", []PlayableFormat{audio}, "best", ""},
		{"empty", nil, "best", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := SelectFormat(tt.formats, tt.quality)
			gotID := ""
			if got != nil {
				gotID = got.FormatID
			}
			if gotID != tt.want {
				t.Errorf("SelectFormat() = %q, want %q", gotID, tt.want)
			}
		})
	}
}
