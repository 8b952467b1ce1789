package editor

import (
	"fmt"

	"golang.org/x/text/language"
)

// Coordinate space: every geometry value is a percentage of the
// preview container, so regions stay valid across container resizes.
const (
	// MinSizePct is the smallest allowed region edge. Anything
	// smaller becomes unselectable in the UI.
	MinSizePct = 5.0
	MaxPct     = 100.0
)

// Geometry is a rectangle in percentage coordinates. The invariant
// X+Width <= 100 and Y+Height <= 100 holds for every stored geometry.
type Geometry struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// PartialGeometry carries an update where absent fields keep their
// current value.
type PartialGeometry struct {
	X      *float64 `json:"x,omitempty"`
	Y      *float64 `json:"y,omitempty"`
	Width  *float64 `json:"width,omitempty"`
	Height *float64 `json:"height,omitempty"`
}

// Region is one draggable redaction rectangle over the preview.
type Region struct {
	ID string `json:"id"`
	Geometry
}

// Point is a pointer position in screen pixels. Mouse and touch
// events both map onto it.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// ContainerRect is the preview container's bounding rectangle in
// screen pixels, re-measured by the browser for every move event.
type ContainerRect struct {
	Left   float64 `json:"left"`
	Top    float64 `json:"top"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// StyleOptions are the presentation knobs the preview composes on top
// of the thumbnail. All of them travel unchanged into the submission.
type StyleOptions struct {
	SubtitlesEnabled bool         `json:"subtitles_enabled"`
	SubtitleLanguage language.Tag `json:"subtitle_language"`
	LogoURL          string       `json:"logo_url"`
	LogoPosition     string       `json:"logo_position"`
	FlipHorizontal   bool         `json:"flip_horizontal"`
	Zoom             float64      `json:"zoom"`
	Brightness       float64      `json:"brightness"`
	Contrast         float64      `json:"contrast"`
	Saturation       float64      `json:"saturation"`
	AspectRatio      string       `json:"aspect_ratio"`
}

// DefaultStyleOptions returns the neutral style: no adjustments, 16:9.
func DefaultStyleOptions() StyleOptions {
	return StyleOptions{
		SubtitleLanguage: language.English,
		LogoPosition:     "top-right",
		Zoom:             1.0,
		Brightness:       1.0,
		Contrast:         1.0,
		Saturation:       1.0,
		AspectRatio:      "16:9",
	}
}

// AspectRatioCustom enables the crop box; every other ratio is
// applied server-side without one.
const AspectRatioCustom = "custom"

// ValidationError reports malformed region geometry. It is a
// recoverable user state, surfaced per field, never fatal.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}
