package editor

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/language"
)

func TestCompose_PlaceholderWhenThumbnailMissing(t *testing.T) {
	overlay := Compose("", false, nil, nil, DefaultStyleOptions())
	assert.True(t, overlay.Placeholder)
	assert.Empty(t, overlay.ThumbnailURL)

	overlay = Compose("https://img.example/thumb.jpg", false, nil, nil, DefaultStyleOptions())
	assert.True(t, overlay.Placeholder)

	overlay = Compose("https://img.example/thumb.jpg", true, nil, nil, DefaultStyleOptions())
	assert.False(t, overlay.Placeholder)
	assert.Equal(t, "https://img.example/thumb.jpg", overlay.ThumbnailURL)
}

func TestCompose_ProjectsRegions(t *testing.T) {
	regions := []Region{
		{ID: "a", Geometry: Geometry{X: 0, Y: 0, Width: 100, Height: 12}},
		{ID: "b", Geometry: Geometry{X: 35, Y: 35, Width: 30, Height: 30}},
	}

	overlay := Compose("u", true, regions, nil, DefaultStyleOptions())
	require.Len(t, overlay.Regions, 2)
	assert.Equal(t, "a", overlay.Regions[0].ID)
	assert.Equal(t, "redaction", overlay.Regions[0].Kind)
	assert.Equal(t, 12.0, overlay.Regions[0].Height)
	assert.Equal(t, "b", overlay.Regions[1].ID)
}

func TestCompose_CropBoxOnlyForCustomAspect(t *testing.T) {
	box := &Region{ID: "crop", Geometry: Geometry{X: 10, Y: 10, Width: 50, Height: 50}}

	opts := DefaultStyleOptions()
	overlay := Compose("u", true, nil, box, opts)
	assert.Nil(t, overlay.CropBox)

	opts.AspectRatio = AspectRatioCustom
	overlay = Compose("u", true, nil, box, opts)
	require.NotNil(t, overlay.CropBox)
	assert.Equal(t, "crop", overlay.CropBox.Kind)
	assert.Equal(t, 50.0, overlay.CropBox.Width)
}

func TestCompose_SubtitleLabel(t *testing.T) {
	opts := DefaultStyleOptions()
	opts.SubtitlesEnabled = true
	opts.SubtitleLanguage = language.Spanish

	overlay := Compose("u", true, nil, nil, opts)
	assert.Equal(t, "Spanish", overlay.SubtitleLabel)

	opts.SubtitlesEnabled = false
	overlay = Compose("u", true, nil, nil, opts)
	assert.Empty(t, overlay.SubtitleLabel)
}

func TestCompose_TransformAndFilter(t *testing.T) {
	opts := DefaultStyleOptions()
	overlay := Compose("u", true, nil, nil, opts)
	assert.Empty(t, overlay.Transform)
	assert.Empty(t, overlay.Filter)

	opts.Zoom = 1.5
	opts.FlipHorizontal = true
	opts.Brightness = 1.2
	opts.Saturation = 0.8
	overlay = Compose("u", true, nil, nil, opts)
	assert.Equal(t, "scale(1.50) scaleX(-1)", overlay.Transform)
	assert.Equal(t, "brightness(1.20) saturate(0.80)", overlay.Filter)
}

func TestCompose_LogoPassThrough(t *testing.T) {
	opts := DefaultStyleOptions()
	opts.LogoURL = "https://cdn.example/logo.png"
	opts.LogoPosition = "bottom-left"

	overlay := Compose("u", true, nil, nil, opts)
	assert.Equal(t, "https://cdn.example/logo.png", overlay.LogoURL)
	assert.Equal(t, "bottom-left", overlay.LogoPosition)
}
