package editor

import (
	"sync"

	"github.com/google/uuid"
)

// Model holds the canonical list of regions plus the optional crop
// box, and enforces the clamp invariant on every write. It never
// touches rendering; consumers read snapshots.
type Model struct {
	mu      sync.RWMutex
	regions []Region
	cropBox *Region
}

func NewModel() *Model {
	return &Model{}
}

// Presets are the one-click region geometries offered by the editor.
var Presets = map[string]Geometry{
	"top-banner":    {X: 0, Y: 0, Width: 100, Height: 12},
	"bottom-third":  {X: 0, Y: 67, Width: 100, Height: 33},
	"center":        {X: 35, Y: 35, Width: 30, Height: 30},
	"watermark-box": {X: 78, Y: 82, Width: 20, Height: 15},
}

// AddRegion validates and clamps g, then appends a new region with a
// fresh id. Dimensions must be positive and must fit the container
// after the clamp attempt.
func (m *Model) AddRegion(g Geometry) (Region, error) {
	clamped, err := clampNew(g)
	if err != nil {
		return Region{}, err
	}

	region := Region{ID: uuid.NewString(), Geometry: clamped}

	m.mu.Lock()
	m.regions = append(m.regions, region)
	m.mu.Unlock()

	return region, nil
}

// AddPreset appends one of the named preset geometries.
func (m *Model) AddPreset(name string) (Region, error) {
	g, ok := Presets[name]
	if !ok {
		return Region{}, &ValidationError{Field: "preset", Reason: "unknown preset " + name}
	}
	return m.AddRegion(g)
}

// RemoveRegion deletes by id. Removing an absent id is a no-op;
// deletions are idempotent.
func (m *Model) RemoveRegion(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for i, r := range m.regions {
		if r.ID == id {
			m.regions = append(m.regions[:i], m.regions[i+1:]...)
			return
		}
	}
}

// UpdateRegion merges the partial geometry into the region and
// re-clamps. Returns false when the id does not resolve.
func (m *Model) UpdateRegion(id string, p PartialGeometry) (Region, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for i := range m.regions {
		if m.regions[i].ID == id {
			m.regions[i].Geometry = clampMerged(m.regions[i].Geometry, p)
			return m.regions[i], true
		}
	}
	return Region{}, false
}

// Region returns a snapshot of one region.
func (m *Model) Region(id string) (Region, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, r := range m.regions {
		if r.ID == id {
			return r, true
		}
	}
	return Region{}, false
}

// Regions returns a snapshot of the whole list in insertion order.
func (m *Model) Regions() []Region {
	m.mu.RLock()
	defer m.mu.RUnlock()

	ret := make([]Region, len(m.regions))
	copy(ret, m.regions)
	return ret
}

// SetCropBox installs the single crop box, replacing any existing one.
// Same validation as AddRegion.
func (m *Model) SetCropBox(g Geometry) (Region, error) {
	clamped, err := clampNew(g)
	if err != nil {
		return Region{}, err
	}

	box := Region{ID: uuid.NewString(), Geometry: clamped}

	m.mu.Lock()
	m.cropBox = &box
	m.mu.Unlock()

	return box, nil
}

// CropBox returns a snapshot of the crop box, if one is set.
func (m *Model) CropBox() (Region, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.cropBox == nil {
		return Region{}, false
	}
	return *m.cropBox, true
}

// ClearCropBox removes the crop box. Idempotent.
func (m *Model) ClearCropBox() {
	m.mu.Lock()
	m.cropBox = nil
	m.mu.Unlock()
}

// UpdateCropBox merges the partial geometry into the crop box and
// re-clamps. Returns false when no crop box is set or the id does not
// match the current one.
func (m *Model) UpdateCropBox(id string, p PartialGeometry) (Region, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.cropBox == nil || m.cropBox.ID != id {
		return Region{}, false
	}
	m.cropBox.Geometry = clampMerged(m.cropBox.Geometry, p)
	return *m.cropBox, true
}

// Reset drops all regions and the crop box.
func (m *Model) Reset() {
	m.mu.Lock()
	m.regions = nil
	m.cropBox = nil
	m.mu.Unlock()
}

// clampNew validates a freshly supplied geometry. Position is clamped
// into the container; dimensions that cannot fit at all are rejected.
func clampNew(g Geometry) (Geometry, error) {
	if g.Width <= 0 {
		return Geometry{}, &ValidationError{Field: "width", Reason: "must be positive"}
	}
	if g.Height <= 0 {
		return Geometry{}, &ValidationError{Field: "height", Reason: "must be positive"}
	}
	if g.Width > MaxPct {
		return Geometry{}, &ValidationError{Field: "width", Reason: "exceeds container"}
	}
	if g.Height > MaxPct {
		return Geometry{}, &ValidationError{Field: "height", Reason: "exceeds container"}
	}

	g.X = clamp(g.X, 0, MaxPct-g.Width)
	g.Y = clamp(g.Y, 0, MaxPct-g.Height)
	return g, nil
}

// clampMerged applies a partial update and restores the invariant:
// size is floored first, then the position clamps against the floored
// size, then the size clamps into the remaining span. Flooring first
// matters: clamping x against a sub-floor width would leave x+width
// past the container edge once the floor kicks in.
func clampMerged(current Geometry, p PartialGeometry) Geometry {
	next := current
	if p.X != nil {
		next.X = *p.X
	}
	if p.Y != nil {
		next.Y = *p.Y
	}
	if p.Width != nil {
		next.Width = *p.Width
	}
	if p.Height != nil {
		next.Height = *p.Height
	}

	w := clamp(next.Width, MinSizePct, MaxPct)
	h := clamp(next.Height, MinSizePct, MaxPct)
	next.X = clamp(next.X, 0, MaxPct-w)
	next.Y = clamp(next.Y, 0, MaxPct-h)
	next.Width = clamp(w, MinSizePct, MaxPct-next.X)
	next.Height = clamp(h, MinSizePct, MaxPct-next.Y)
	return next
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
