package wizard

import (
	"regexp"

	"github.com/recapforge/recap-studio/internal/editor"
)

// Options is the full option state the three wizard steps edit. It is
// what the preview reads and what the submission is built from.
type Options struct {
	SourceURL    string              `json:"source_url"`
	ThumbnailURL string              `json:"thumbnail_url"`
	Voice        string              `json:"voice"`
	Style        editor.StyleOptions `json:"style"`
}

// DefaultOptions is the state the wizard resets to on mount and after
// a finished or cancelled job.
func DefaultOptions() Options {
	return Options{
		Voice: "",
		Style: editor.DefaultStyleOptions(),
	}
}

// Voices is the catalog of narration voices offered in step 1.
var Voices = []string{"aria", "marcus", "nova", "sage", "kai"}

// SupportedVoice reports whether v is a known narration voice.
func SupportedVoice(v string) bool {
	for _, known := range Voices {
		if known == v {
			return true
		}
	}
	return false
}

// platformPatterns match the video platforms the recap service can
// ingest from.
var platformPatterns = []*regexp.Regexp{
	regexp.MustCompile(`^https?://(www\.)?youtube\.com/watch\?`),
	regexp.MustCompile(`^https?://youtu\.be/[\w-]+`),
	regexp.MustCompile(`^https?://(www\.)?vimeo\.com/\d+`),
	regexp.MustCompile(`^https?://(www\.)?twitch\.tv/videos/\d+`),
	regexp.MustCompile(`^https?://(www\.)?tiktok\.com/@[\w.-]+/video/\d+`),
}

// SupportedSourceURL reports whether raw points at a supported
// platform video.
func SupportedSourceURL(raw string) bool {
	for _, p := range platformPatterns {
		if p.MatchString(raw) {
			return true
		}
	}
	return false
}

// Credit pricing. The base covers transcript, script, narration and
// render; extras bill on top.
const (
	costBase       = 10
	costSubtitles  = 2
	costLogo       = 2
	costPerRegion  = 1
	costCustomCrop = 2
)

// CreditCost is the aggregate price of the configured recap.
func CreditCost(opts Options, regionCount int, hasCropBox bool) int {
	cost := costBase
	if opts.Style.SubtitlesEnabled {
		cost += costSubtitles
	}
	if opts.Style.LogoURL != "" {
		cost += costLogo
	}
	cost += costPerRegion * regionCount
	if opts.Style.AspectRatio == editor.AspectRatioCustom && hasCropBox {
		cost += costCustomCrop
	}
	return cost
}
