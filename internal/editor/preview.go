package editor

import (
	"fmt"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/language/display"
)

// Overlay is what the UI should render on top of the thumbnail. It is
// a pure projection of the model plus style options: composing emits
// no events and mutates nothing.
type Overlay struct {
	ThumbnailURL string          `json:"thumbnail_url,omitempty"`
	Placeholder  bool            `json:"placeholder"`
	Regions      []RegionOverlay `json:"regions"`
	CropBox      *RegionOverlay  `json:"crop_box,omitempty"`

	SubtitleLabel string `json:"subtitle_label,omitempty"`
	LogoURL       string `json:"logo_url,omitempty"`
	LogoPosition  string `json:"logo_position,omitempty"`

	Transform string `json:"transform,omitempty"`
	Filter    string `json:"filter,omitempty"`
}

// RegionOverlay positions one rectangle in percentage coordinates.
type RegionOverlay struct {
	ID     string  `json:"id"`
	Kind   string  `json:"kind"`
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

const (
	overlayKindRedaction = "redaction"
	overlayKindCrop      = "crop"
)

// Compose derives the overlay for the current editor state.
// thumbnailOK=false means the thumbnail failed to load; the overlay
// falls back to a placeholder rather than erroring.
func Compose(thumbnailURL string, thumbnailOK bool, regions []Region, cropBox *Region, opts StyleOptions) Overlay {
	overlay := Overlay{
		Regions: make([]RegionOverlay, 0, len(regions)),
	}

	if thumbnailOK && thumbnailURL != "" {
		overlay.ThumbnailURL = thumbnailURL
	} else {
		overlay.Placeholder = true
	}

	for _, r := range regions {
		overlay.Regions = append(overlay.Regions, RegionOverlay{
			ID:     r.ID,
			Kind:   overlayKindRedaction,
			X:      r.X,
			Y:      r.Y,
			Width:  r.Width,
			Height: r.Height,
		})
	}

	// the crop box only renders for the custom aspect ratio
	if cropBox != nil && opts.AspectRatio == AspectRatioCustom {
		overlay.CropBox = &RegionOverlay{
			ID:     cropBox.ID,
			Kind:   overlayKindCrop,
			X:      cropBox.X,
			Y:      cropBox.Y,
			Width:  cropBox.Width,
			Height: cropBox.Height,
		}
	}

	if opts.SubtitlesEnabled {
		overlay.SubtitleLabel = subtitleLabel(opts.SubtitleLanguage)
	}
	if opts.LogoURL != "" {
		overlay.LogoURL = opts.LogoURL
		overlay.LogoPosition = opts.LogoPosition
	}

	overlay.Transform = transformStyle(opts)
	overlay.Filter = filterStyle(opts)
	return overlay
}

func subtitleLabel(tag language.Tag) string {
	name := display.English.Languages().Name(tag)
	if name == "" {
		return tag.String()
	}
	return name
}

func transformStyle(opts StyleOptions) string {
	var parts []string
	if opts.Zoom > 0 && opts.Zoom != 1.0 {
		parts = append(parts, fmt.Sprintf("scale(%.2f)", opts.Zoom))
	}
	if opts.FlipHorizontal {
		parts = append(parts, "scaleX(-1)")
	}
	return strings.Join(parts, " ")
}

func filterStyle(opts StyleOptions) string {
	var parts []string
	if opts.Brightness > 0 && opts.Brightness != 1.0 {
		parts = append(parts, fmt.Sprintf("brightness(%.2f)", opts.Brightness))
	}
	if opts.Contrast > 0 && opts.Contrast != 1.0 {
		parts = append(parts, fmt.Sprintf("contrast(%.2f)", opts.Contrast))
	}
	if opts.Saturation > 0 && opts.Saturation != 1.0 {
		parts = append(parts, fmt.Sprintf("saturate(%.2f)", opts.Saturation))
	}
	return strings.Join(parts, " ")
}
