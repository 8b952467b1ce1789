package editor

import (
	"sync"

	"github.com/recapforge/recap-studio/pkg/log"
)

// Mode is the state of the current interaction session.
type Mode string

const (
	ModeIdle     Mode = "idle"
	ModeDragging Mode = "dragging"
	ModeResizing Mode = "resizing"
)

// Handle identifies which resize handle a gesture grabbed. Regions
// expose only the south-east handle; the crop box adds north-west so
// it can be resized from either corner.
type Handle string

const (
	HandleSouthEast Handle = "se"
	HandleNorthWest Handle = "nw"
)

// session is the ephemeral gesture state. Deltas are always computed
// against the origin snapshots taken here, never against the live
// geometry, so replaying the same inputs yields the same output.
type session struct {
	mode           Mode
	targetID       string
	crop           bool
	handle         Handle
	originPointer  Point
	originGeometry Geometry
}

// Controller translates unified pointer events (mouse or touch) into
// model updates. Gestures are best-effort UI: a target that vanished
// mid-gesture ends the session silently instead of failing.
type Controller struct {
	mu    sync.Mutex
	model *Model
	sess  *session
}

func NewController(model *Model) *Controller {
	return &Controller{model: model}
}

// BeginDrag opens a drag session on a region or the crop box.
// No-op when another gesture is active or the target does not exist.
func (c *Controller) BeginDrag(targetID string, pointer Point) {
	c.begin(targetID, ModeDragging, HandleSouthEast, pointer)
}

// BeginResize opens a resize session. Regions accept only the
// south-east handle; an unknown handle falls back to it.
func (c *Controller) BeginResize(targetID string, handle Handle, pointer Point) {
	if handle != HandleNorthWest {
		handle = HandleSouthEast
	}
	c.begin(targetID, ModeResizing, handle, pointer)
}

func (c *Controller) begin(targetID string, mode Mode, handle Handle, pointer Point) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.sess != nil {
		log.Debug("gesture ignored: session already active on %s", c.sess.targetID)
		return
	}

	target, crop, ok := c.resolve(targetID)
	if !ok {
		log.Debug("gesture ignored: target %s not found", targetID)
		return
	}
	if !crop && handle == HandleNorthWest {
		// only the crop box has a north-west handle
		handle = HandleSouthEast
	}

	c.sess = &session{
		mode:           mode,
		targetID:       targetID,
		crop:           crop,
		handle:         handle,
		originPointer:  pointer,
		originGeometry: target.Geometry,
	}
}

// Move applies the pointer position to the active session. The
// container rect comes with every event so the mapping stays correct
// under window resize or scroll mid-gesture. No-op when idle.
func (c *Controller) Move(pointer Point, container ContainerRect) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.sess == nil {
		return
	}
	if container.Width <= 0 || container.Height <= 0 {
		return
	}

	var p PartialGeometry
	switch c.sess.mode {
	case ModeDragging:
		p = c.sess.dragUpdate(pointer, container)
	case ModeResizing:
		p = c.sess.resizeUpdate(pointer, container)
	default:
		return
	}

	if !c.apply(p) {
		// target removed mid-gesture; absorb and end
		c.sess = nil
	}
}

// End closes the session unconditionally. Idempotent; invoked for
// pointer-up, pointer-leave, touch-end and touch-cancel alike so a
// gesture can never be left stuck active.
func (c *Controller) End() {
	c.mu.Lock()
	c.sess = nil
	c.mu.Unlock()
}

// Session reports the active mode and target, ModeIdle when none.
func (c *Controller) Session() (Mode, string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.sess == nil {
		return ModeIdle, ""
	}
	return c.sess.mode, c.sess.targetID
}

func (c *Controller) resolve(targetID string) (Region, bool, bool) {
	if r, ok := c.model.Region(targetID); ok {
		return r, false, true
	}
	if box, ok := c.model.CropBox(); ok && box.ID == targetID {
		return box, true, true
	}
	return Region{}, false, false
}

func (c *Controller) apply(p PartialGeometry) bool {
	if c.sess.crop {
		_, ok := c.model.UpdateCropBox(c.sess.targetID, p)
		return ok
	}
	_, ok := c.model.UpdateRegion(c.sess.targetID, p)
	return ok
}

// dragUpdate converts total gesture displacement into a new position.
// Size stays unchanged; the model clamps the position into bounds.
func (s *session) dragUpdate(pointer Point, container ContainerRect) PartialGeometry {
	deltaX := (pointer.X - s.originPointer.X) / container.Width * MaxPct
	deltaY := (pointer.Y - s.originPointer.Y) / container.Height * MaxPct

	x := s.originGeometry.X + deltaX
	y := s.originGeometry.Y + deltaY
	return PartialGeometry{X: &x, Y: &y}
}

// resizeUpdate derives the new size from the absolute pointer
// position relative to the anchored corner, not by delta
// accumulation, so resize never drifts.
func (s *session) resizeUpdate(pointer Point, container ContainerRect) PartialGeometry {
	pctX := (pointer.X - container.Left) / container.Width * MaxPct
	pctY := (pointer.Y - container.Top) / container.Height * MaxPct

	if s.handle == HandleNorthWest {
		// anchor the south-east corner, move the origin corner
		right := s.originGeometry.X + s.originGeometry.Width
		bottom := s.originGeometry.Y + s.originGeometry.Height

		x := clamp(pctX, 0, right-MinSizePct)
		y := clamp(pctY, 0, bottom-MinSizePct)
		w := right - x
		h := bottom - y
		return PartialGeometry{X: &x, Y: &y, Width: &w, Height: &h}
	}

	// anchor the top-left corner
	w := max(pctX-s.originGeometry.X, MinSizePct)
	h := max(pctY-s.originGeometry.Y, MinSizePct)
	return PartialGeometry{Width: &w, Height: &h}
}
