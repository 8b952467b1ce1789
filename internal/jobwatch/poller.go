package jobwatch

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/recapforge/recap-studio/internal/recapapi"
	"github.com/recapforge/recap-studio/pkg/log"
)

// State is the poller's lifecycle state.
type State string

const (
	StatePolling    State = "polling"
	StateBackingOff State = "backing_off"
	StateStopped    State = "stopped"
)

// StopReason says why a poller reached StateStopped. A silent give-up
// after too many consecutive errors is reported explicitly instead of
// relying on the snapshot stream simply going stale.
type StopReason string

const (
	ReasonNone      StopReason = ""
	ReasonCompleted StopReason = "completed"
	ReasonFailed    StopReason = "failed"
	ReasonCancelled StopReason = "cancelled"
	ReasonGaveUp    StopReason = "gave_up"
)

// JobFetcher is the one upstream call a poller needs.
type JobFetcher interface {
	GetJob(ctx context.Context, id string) (*recapapi.Job, error)
}

// Tuning holds the poll timing knobs.
type Tuning struct {
	BaseInterval time.Duration
	Multiplier   float64
	MaxInterval  time.Duration
	ErrorCeiling int
	CheckTimeout time.Duration
}

func DefaultTuning() Tuning {
	return Tuning{
		BaseInterval: 3 * time.Second,
		Multiplier:   1.5,
		MaxInterval:  30 * time.Second,
		ErrorCeiling: 5,
		CheckTimeout: 10 * time.Second,
	}
}

func (t Tuning) normalized() Tuning {
	d := DefaultTuning()
	if t.BaseInterval <= 0 {
		t.BaseInterval = d.BaseInterval
	}
	if t.Multiplier <= 1 {
		t.Multiplier = d.Multiplier
	}
	if t.MaxInterval < t.BaseInterval {
		t.MaxInterval = d.MaxInterval
	}
	if t.ErrorCeiling <= 0 {
		t.ErrorCeiling = d.ErrorCeiling
	}
	if t.CheckTimeout <= 0 {
		t.CheckTimeout = d.CheckTimeout
	}
	return t
}

// Snapshot is the read-only view handed to the caller after every
// transition. Job stays nil until the first successful check.
type Snapshot struct {
	JobID             string        `json:"job_id"`
	State             State         `json:"state"`
	StopReason        StopReason    `json:"stop_reason,omitempty"`
	Job               *recapapi.Job `json:"job,omitempty"`
	ConsecutiveErrors int           `json:"consecutive_errors"`
}

// scheduleFunc defers fn by d and returns a cancel that invalidates
// the pending timer. Swapped out in tests.
type scheduleFunc func(d time.Duration, fn func()) (cancel func())

func realSchedule(d time.Duration, fn func()) func() {
	t := time.AfterFunc(d, fn)
	return func() { t.Stop() }
}

// Poller watches one server-side render job: it checks immediately on
// start, re-checks after the base interval while the job is live,
// backs off exponentially on failed checks, and stops on a terminal
// status, the error ceiling, or cancellation. Checks are strictly
// sequential; the next one is only scheduled after the previous
// resolves. Every stop path invalidates the pending timer, and a
// generation counter discards late callbacks.
type Poller struct {
	fetcher    JobFetcher
	jobID      string
	tuning     Tuning
	onSnapshot func(Snapshot)
	schedule   scheduleFunc

	mu          sync.Mutex
	ctx         context.Context
	state       State
	reason      StopReason
	interval    time.Duration
	errCount    int
	job         *recapapi.Job
	generation  uint64
	cancelTimer func()
	started     bool
}

// NewPoller builds an unstarted poller. onSnapshot may be nil.
func NewPoller(fetcher JobFetcher, jobID string, tuning Tuning, onSnapshot func(Snapshot)) *Poller {
	tuning = tuning.normalized()
	return &Poller{
		fetcher:    fetcher,
		jobID:      jobID,
		tuning:     tuning,
		onSnapshot: onSnapshot,
		schedule:   realSchedule,
		state:      StatePolling,
		interval:   tuning.BaseInterval,
	}
}

// Start begins polling. The first check fires immediately since a
// fast job may already be terminal. Calling Start twice is a no-op.
func (p *Poller) Start(ctx context.Context) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.started || p.state == StateStopped {
		return
	}
	p.started = true
	p.ctx = ctx
	p.scheduleLocked(0)
}

// Stop cancels the watch. Effective immediately: the pending timer is
// invalidated, not merely ignored, so no late callback can resurrect
// a stopped poller.
func (p *Poller) Stop() {
	p.mu.Lock()
	if p.state == StateStopped {
		p.mu.Unlock()
		return
	}
	p.stopLocked(ReasonCancelled)
	snap := p.snapshotLocked()
	p.mu.Unlock()

	p.emit(snap)
}

// IsActive reports whether further checks may still fire.
func (p *Poller) IsActive() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state != StateStopped
}

// Snapshot returns the current view of the watch.
func (p *Poller) Snapshot() Snapshot {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.snapshotLocked()
}

func (p *Poller) scheduleLocked(d time.Duration) {
	gen := p.generation
	p.cancelTimer = p.schedule(d, func() {
		p.check(gen)
	})
}

func (p *Poller) stopLocked(reason StopReason) {
	p.state = StateStopped
	p.reason = reason
	p.generation++
	if p.cancelTimer != nil {
		p.cancelTimer()
		p.cancelTimer = nil
	}
}

func (p *Poller) snapshotLocked() Snapshot {
	snap := Snapshot{
		JobID:             p.jobID,
		State:             p.state,
		StopReason:        p.reason,
		ConsecutiveErrors: p.errCount,
	}
	if p.job != nil {
		clone := *p.job
		snap.Job = &clone
	}
	return snap
}

func (p *Poller) check(gen uint64) {
	p.mu.Lock()
	if gen != p.generation || p.state == StateStopped {
		p.mu.Unlock()
		return
	}
	ctx := p.ctx
	p.mu.Unlock()

	checkCtx, cancel := context.WithTimeout(ctx, p.tuning.CheckTimeout)
	job, err := p.safeFetch(checkCtx)
	cancel()

	p.mu.Lock()
	if gen != p.generation || p.state == StateStopped {
		// stopped while the request was in flight
		p.mu.Unlock()
		return
	}

	if err != nil {
		p.errCount++
		if p.errCount >= p.tuning.ErrorCeiling {
			log.Warn("job %s: giving up after %d consecutive failed checks: %v", p.jobID, p.errCount, err)
			p.stopLocked(ReasonGaveUp)
		} else {
			// retry after the current interval, then stretch it
			p.state = StateBackingOff
			delay := p.interval
			p.interval = nextInterval(p.interval, p.tuning)
			p.scheduleLocked(delay)
			log.Debug("job %s: check failed (%d/%d), retrying in %s: %v",
				p.jobID, p.errCount, p.tuning.ErrorCeiling, delay, err)
		}
	} else {
		p.errCount = 0
		p.job = mergeJob(p.job, job)

		if job.Status.Terminal() {
			p.stopLocked(terminalReason(job.Status))
			log.Info("job %s: reached terminal status %s", p.jobID, job.Status)
		} else {
			p.state = StatePolling
			p.interval = p.tuning.BaseInterval
			p.scheduleLocked(p.interval)
		}
	}

	snap := p.snapshotLocked()
	p.mu.Unlock()

	p.emit(snap)
}

// safeFetch isolates a misbehaving fetch (malformed payload blowing
// up a parser) to this poller instance: a panic becomes a failed
// check instead of taking down the shell.
func (p *Poller) safeFetch(ctx context.Context) (job *recapapi.Job, err error) {
	defer func() {
		if r := recover(); r != nil {
			job = nil
			err = fmt.Errorf("job check panicked: %v", r)
		}
	}()
	return p.fetcher.GetJob(ctx, p.jobID)
}

func (p *Poller) emit(snap Snapshot) {
	if p.onSnapshot == nil {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			log.Error("job %s: snapshot callback panicked: %v", snap.JobID, r)
		}
	}()
	p.onSnapshot(snap)
}

func nextInterval(current time.Duration, t Tuning) time.Duration {
	next := time.Duration(float64(current) * t.Multiplier)
	if next > t.MaxInterval {
		next = t.MaxInterval
	}
	return next
}

// mergeJob keeps progress monotonically non-decreasing across
// non-terminal snapshots; the rest of the job is taken verbatim.
func mergeJob(prev, next *recapapi.Job) *recapapi.Job {
	clone := *next
	if prev != nil && !next.Status.Terminal() && clone.ProgressPercent < prev.ProgressPercent {
		clone.ProgressPercent = prev.ProgressPercent
	}
	return &clone
}

func terminalReason(s recapapi.Status) StopReason {
	switch s {
	case recapapi.StatusCompleted:
		return ReasonCompleted
	case recapapi.StatusFailed:
		return ReasonFailed
	case recapapi.StatusCancelled:
		return ReasonCancelled
	default:
		return ReasonNone
	}
}
