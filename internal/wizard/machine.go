package wizard

import (
	"errors"
	"fmt"
	"sync"

	"github.com/recapforge/recap-studio/internal/editor"
	"github.com/recapforge/recap-studio/internal/recapapi"
)

// Step numbers. The wizard has three ordered input steps.
const (
	StepSource = 1
	StepEditor = 2
	StepReview = 3
)

// ErrIncompleteForm is returned by BuildSubmission while any step
// predicate is unsatisfied.
var ErrIncompleteForm = errors.New("wizard form incomplete")

// Machine gates forward navigation across the three steps and builds
// the final submission payload. Step validity is a pure predicate
// over the current option state, so the shell can surface the
// booleans directly to enable or disable navigation controls.
type Machine struct {
	mu           sync.Mutex
	step         int
	opts         Options
	model        *editor.Model
	balance      int
	balanceKnown bool
}

// NewMachine starts at step 1 with default options. The editor model
// supplies region state for cost and submission aggregation.
func NewMachine(model *editor.Model) *Machine {
	return &Machine{
		step:  StepSource,
		opts:  DefaultOptions(),
		model: model,
	}
}

// Step returns the current step, 1-based.
func (m *Machine) Step() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.step
}

// Options returns a snapshot of the option state.
func (m *Machine) Options() Options {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.opts
}

// SetOptions replaces the option state wholesale.
func (m *Machine) SetOptions(opts Options) {
	m.mu.Lock()
	m.opts = opts
	m.mu.Unlock()
}

// SetCreditBalance records the account balance used by the step 3
// predicate. Until it is known, step 3 stays invalid.
func (m *Machine) SetCreditBalance(balance int) {
	m.mu.Lock()
	m.balance = balance
	m.balanceKnown = true
	m.mu.Unlock()
}

// Next advances one step when the current step's predicate holds.
// Returns the step after the call.
func (m *Machine) Next() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.stepValidLocked(m.step) {
		return m.step
	}
	if m.step < StepReview {
		m.step++
	}
	return m.step
}

// Back always succeeds, bottoming out at step 1.
func (m *Machine) Back() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.step > StepSource {
		m.step--
	}
	return m.step
}

// JumpTo moves directly to an already-passed step. Jumping ahead of
// the current step is always rejected; intermediate validity cannot
// be skipped.
func (m *Machine) JumpTo(step int) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if step < StepSource || step > StepReview {
		return fmt.Errorf("no such step %d", step)
	}
	if step > m.step {
		return fmt.Errorf("cannot jump ahead to step %d from step %d", step, m.step)
	}
	m.step = step
	return nil
}

// StepValid evaluates one step's predicate against the current state.
func (m *Machine) StepValid(step int) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.stepValidLocked(step)
}

// Validity returns all three step predicates at once.
func (m *Machine) Validity() [3]bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return [3]bool{
		m.stepValidLocked(StepSource),
		m.stepValidLocked(StepEditor),
		m.stepValidLocked(StepReview),
	}
}

// CreditCost is the current aggregate price of the configured recap.
func (m *Machine) CreditCost() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.creditCostLocked()
}

// Reset returns the wizard to step 1 with default options. Used on
// mount and after a finished or cancelled job. The known credit
// balance survives; the editor state does not.
func (m *Machine) Reset() {
	m.mu.Lock()
	m.step = StepSource
	m.opts = DefaultOptions()
	m.mu.Unlock()

	m.model.Reset()
}

// BuildSubmission is a pure function from the option state to the
// wire payload. Callable only when all three step predicates hold.
func (m *Machine) BuildSubmission() (recapapi.Submission, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for step := StepSource; step <= StepReview; step++ {
		if !m.stepValidLocked(step) {
			return recapapi.Submission{}, fmt.Errorf("%w: step %d", ErrIncompleteForm, step)
		}
	}

	style := m.opts.Style
	sub := recapapi.Submission{
		SourceURL:        m.opts.SourceURL,
		Voice:            m.opts.Voice,
		SubtitlesEnabled: style.SubtitlesEnabled,
		LogoURL:          style.LogoURL,
		LogoPosition:     style.LogoPosition,
		FlipHorizontal:   style.FlipHorizontal,
		Zoom:             style.Zoom,
		Brightness:       style.Brightness,
		Contrast:         style.Contrast,
		Saturation:       style.Saturation,
		AspectRatio:      style.AspectRatio,
		Regions:          make([]recapapi.RegionPayload, 0),
	}
	if style.SubtitlesEnabled {
		sub.SubtitleLanguage = style.SubtitleLanguage.String()
	}

	for _, r := range m.model.Regions() {
		sub.Regions = append(sub.Regions, recapapi.RegionPayload{
			X: r.X, Y: r.Y, Width: r.Width, Height: r.Height,
		})
	}
	if style.AspectRatio == editor.AspectRatioCustom {
		if box, ok := m.model.CropBox(); ok {
			sub.CropBox = &recapapi.RegionPayload{
				X: box.X, Y: box.Y, Width: box.Width, Height: box.Height,
			}
		}
	}
	return sub, nil
}

func (m *Machine) stepValidLocked(step int) bool {
	switch step {
	case StepSource:
		return SupportedSourceURL(m.opts.SourceURL) && SupportedVoice(m.opts.Voice)
	case StepEditor:
		// the editor step has no hard constraint
		return true
	case StepReview:
		return m.balanceKnown && m.creditCostLocked() <= m.balance
	default:
		return false
	}
}

func (m *Machine) creditCostLocked() int {
	_, hasCrop := m.model.CropBox()
	return CreditCost(m.opts, len(m.model.Regions()), hasCrop)
}
