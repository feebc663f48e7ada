// Package cleanup deletes stored artifacts after a grace period.
package cleanup

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Deleter removes one artifact by reference.
type Deleter interface {
	Delete(ctx context.Context, ref string) error
}

// deleteTimeout bounds a single timer-driven deletion.
const deleteTimeout = 30 * time.Second

// Scheduler runs cancellable per-artifact deletion timers. A failed
// deletion is logged and leaves the artifact in place.
type Scheduler struct {
	store Deleter
	log   zerolog.Logger

	mu      sync.Mutex
	pending map[string]*entry
	stopped bool
	wg      sync.WaitGroup
}

type entry struct {
	timer *time.Timer
	due   time.Time
}

// New creates a scheduler deleting from store.
func New(store Deleter, log zerolog.Logger) *Scheduler {
	return &Scheduler{
		store:   store,
		log:     log.With().Str("component", "cleanup").Logger(),
		pending: make(map[string]*entry),
	}
}

// Schedule deletes ref after delay. Scheduling a ref that is already
// pending restarts its timer. It is a no-op after Stop.
func (s *Scheduler) Schedule(ref string, delay time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stopped {
		return
	}
	if old, ok := s.pending[ref]; ok {
		old.timer.Stop()
	}

	e := &entry{due: time.Now().Add(delay)}
	e.timer = time.AfterFunc(delay, func() { s.fire(ref, e) })
	s.pending[ref] = e

	s.log.Debug().Str("ref", ref).Dur("delay", delay).Msg("deletion scheduled")
}

func (s *Scheduler) fire(ref string, e *entry) {
	s.mu.Lock()
	if s.pending[ref] != e {
		// cancelled or rescheduled meanwhile
		s.mu.Unlock()
		return
	}
	delete(s.pending, ref)
	s.wg.Add(1)
	s.mu.Unlock()
	defer s.wg.Done()

	ctx, cancel := context.WithTimeout(context.Background(), deleteTimeout)
	defer cancel()
	s.delete(ctx, ref)
}

func (s *Scheduler) delete(ctx context.Context, ref string) error {
	if err := s.store.Delete(ctx, ref); err != nil {
		s.log.Error().Err(err).Str("ref", ref).Msg("artifact deletion failed")
		return err
	}
	s.log.Info().Str("ref", ref).Msg("artifact deleted")
	return nil
}

// Cancel stops the pending deletion of ref and reports whether one existed.
func (s *Scheduler) Cancel(ref string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.pending[ref]
	if !ok {
		return false
	}
	e.timer.Stop()
	delete(s.pending, ref)
	return true
}

// DeleteNow cancels any pending timer for ref and deletes it immediately.
func (s *Scheduler) DeleteNow(ctx context.Context, ref string) error {
	s.Cancel(ref)
	return s.delete(ctx, ref)
}

// Pending returns the refs awaiting deletion, sorted.
func (s *Scheduler) Pending() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	refs := make([]string, 0, len(s.pending))
	for ref := range s.pending {
		refs = append(refs, ref)
	}
	sort.Strings(refs)
	return refs
}

// Flush deletes every pending artifact now and returns how many were
// deleted successfully. Deletions already in flight are awaited.
func (s *Scheduler) Flush(ctx context.Context) int {
	s.mu.Lock()
	refs := make([]string, 0, len(s.pending))
	for ref, e := range s.pending {
		e.timer.Stop()
		refs = append(refs, ref)
	}
	s.pending = make(map[string]*entry)
	s.mu.Unlock()

	sort.Strings(refs)
	deleted := 0
	for _, ref := range refs {
		if s.delete(ctx, ref) == nil {
			deleted++
		}
	}
	s.wg.Wait()
	return deleted
}

// Stop cancels every pending timer without deleting anything. Later
// Schedule calls are ignored.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.stopped = true
	for ref, e := range s.pending {
		e.timer.Stop()
		delete(s.pending, ref)
	}
}
