package jobwatch

import (
	"context"
	"sort"
	"sync"

	"github.com/recapforge/recap-studio/pkg/log"
)

// Registry owns every live poller, one per submitted job. It hands
// read-only snapshots to the HTTP layer and guarantees all timers die
// with it. One job's poller failing never affects the others.
type Registry struct {
	fetcher JobFetcher
	tuning  Tuning

	mu      sync.Mutex
	pollers map[string]*Poller
	last    map[string]Snapshot
}

func NewRegistry(fetcher JobFetcher, tuning Tuning) *Registry {
	return &Registry{
		fetcher: fetcher,
		tuning:  tuning,
		pollers: make(map[string]*Poller),
		last:    make(map[string]Snapshot),
	}
}

// Watch starts polling jobID. Watching an already-watched active job
// is a no-op returning the existing poller.
func (r *Registry) Watch(ctx context.Context, jobID string) *Poller {
	r.mu.Lock()
	if existing, ok := r.pollers[jobID]; ok && existing.IsActive() {
		r.mu.Unlock()
		return existing
	}

	p := NewPoller(r.fetcher, jobID, r.tuning, func(snap Snapshot) {
		r.mu.Lock()
		r.last[snap.JobID] = snap
		r.mu.Unlock()
	})
	r.pollers[jobID] = p
	r.last[jobID] = p.Snapshot()
	r.mu.Unlock()

	p.Start(ctx)
	return p
}

// Snapshot returns the latest known view of one watched job.
func (r *Registry) Snapshot(jobID string) (Snapshot, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	snap, ok := r.last[jobID]
	return snap, ok
}

// Snapshots returns all known watches ordered by job id.
func (r *Registry) Snapshots() []Snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()

	ret := make([]Snapshot, 0, len(r.last))
	for _, snap := range r.last {
		ret = append(ret, snap)
	}
	sort.Slice(ret, func(i, j int) bool {
		return ret[i].JobID < ret[j].JobID
	})
	return ret
}

// Stop cancels one watch. Returns false when the job is unknown.
func (r *Registry) Stop(jobID string) bool {
	r.mu.Lock()
	p, ok := r.pollers[jobID]
	r.mu.Unlock()

	if !ok {
		return false
	}
	p.Stop()
	return true
}

// Prune drops stopped watchers and their snapshots, returning how
// many were removed. Called by the janitor.
func (r *Registry) Prune() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	pruned := 0
	for id, p := range r.pollers {
		if !p.IsActive() {
			delete(r.pollers, id)
			delete(r.last, id)
			pruned++
		}
	}
	if pruned > 0 {
		log.Debug("pruned %d stopped job watches", pruned)
	}
	return pruned
}

// StopAll cancels every watch; used on shutdown.
func (r *Registry) StopAll() {
	r.mu.Lock()
	pollers := make([]*Poller, 0, len(r.pollers))
	for _, p := range r.pollers {
		pollers = append(pollers, p)
	}
	r.mu.Unlock()

	for _, p := range pollers {
		p.Stop()
	}
}
