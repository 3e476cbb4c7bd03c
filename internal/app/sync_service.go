package app

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/example/projector/internal/core/derive"
	"github.com/example/projector/internal/core/drift"
	"github.com/example/projector/internal/core/keystate"
	"github.com/example/projector/internal/core/mutation"
	"github.com/example/projector/internal/ports/primary"
	"github.com/example/projector/internal/ports/secondary"
)

// SyncOptions tunes the synchronizer's retry and latency behavior.
type SyncOptions struct {
	// RetryLimit is the number of retries after the initial attempt.
	RetryLimit int
	// Staleness is the allowed projection lag. Zero means synchronous:
	// Apply returns only after the store reflects the event.
	Staleness time.Duration
	// WriteTimeout bounds each projection store write.
	WriteTimeout time.Duration
	// BackoffBase and BackoffMax shape the retry delay schedule.
	BackoffBase time.Duration
	BackoffMax  time.Duration
}

// SyncServiceImpl implements the SyncService interface: a per-key FIFO
// synchronizer that keeps the projection store consistent with the base
// relation's mutation feed.
type SyncServiceImpl struct {
	store secondary.ProjectionStore
	base  secondary.BaseRepository
	drift secondary.DriftSink
	rule  derive.Rule
	opts  SyncOptions

	mu     sync.Mutex
	keys   map[string]*keyTracker
	closed bool
	wg     sync.WaitGroup
}

// keyTracker carries one key's queue, state, and version sequence. All
// fields are guarded by the service mutex; events are processed by at
// most one drainer goroutine per key, which is what serializes writes.
type keyTracker struct {
	queue     []*sequencedEvent
	running   bool
	state     keystate.State
	seq       uint64
	attempts  int
	processed uint64 // highest seq applied, for ordering-violation checks
}

type sequencedEvent struct {
	event mutation.Event
	seq   uint64
	done  chan error // non-nil in synchronous mode
}

// NewSyncService creates a synchronizer over the given store, base
// relation, and drift sink, deriving with the given rule.
func NewSyncService(
	store secondary.ProjectionStore,
	base secondary.BaseRepository,
	driftSink secondary.DriftSink,
	rule derive.Rule,
	opts SyncOptions,
) *SyncServiceImpl {
	if opts.WriteTimeout <= 0 {
		opts.WriteTimeout = 5 * time.Second
	}
	if opts.BackoffBase <= 0 {
		opts.BackoffBase = 100 * time.Millisecond
	}
	if opts.BackoffMax <= 0 {
		opts.BackoffMax = 5 * time.Second
	}
	return &SyncServiceImpl{
		store: store,
		base:  base,
		drift: driftSink,
		rule:  rule,
		opts:  opts,
		keys:  make(map[string]*keyTracker),
	}
}

// Apply submits one mutation event. Events for the same key apply in
// submission order; distinct keys proceed concurrently. An update whose
// changed columns miss the rule's inputs is dropped without touching the
// store or the rule.
func (s *SyncServiceImpl) Apply(ctx context.Context, event mutation.Event) error {
	if err := event.Validate(); err != nil {
		return err
	}

	// Change detection: nothing the rule reads changed, nothing to do.
	if event.Kind == mutation.KindUpdate && !mutation.RequiresDerivation(event, s.rule.InputColumns()) {
		return nil
	}

	kt, err := s.resumeTracker(ctx, event.Key)
	if err != nil {
		return err
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrClosed
	}

	kt.seq++
	kt.state = keystate.OnMutation(kt.state).NewState
	kt.attempts = 0

	se := &sequencedEvent{event: event, seq: kt.seq}
	if s.opts.Staleness == 0 {
		se.done = make(chan error, 1)
	}
	kt.queue = append(kt.queue, se)

	if !kt.running {
		kt.running = true
		s.wg.Add(1)
		go s.drain(event.Key, kt)
	}
	s.mu.Unlock()

	if se.done == nil {
		return nil
	}
	select {
	case err := <-se.done:
		return err
	case <-ctx.Done():
		// Processing continues in the background; the caller just stops
		// waiting for it.
		return ctx.Err()
	}
}

// resumeTracker returns the tracker for a key, creating it on first
// sight. A new tracker resumes the version sequence from the store's
// persisted guard version: the sequence is in-memory but the guard is
// not, so a fresh process starting from zero would have every write for
// a previously multi-versioned key silently discarded.
func (s *SyncServiceImpl) resumeTracker(ctx context.Context, key string) (*keyTracker, error) {
	s.mu.Lock()
	if kt, ok := s.keys[key]; ok {
		s.mu.Unlock()
		return kt, nil
	}
	s.mu.Unlock()

	seed, err := s.store.Version(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("failed to resume projection version for %s: %w", key, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if kt, ok := s.keys[key]; ok {
		return kt, nil
	}
	kt := &keyTracker{state: keystate.StateAbsent, seq: seed, processed: seed}
	s.keys[key] = kt
	return kt, nil
}

// tracker returns the state for an already-resumed key. Callers hold s.mu.
func (s *SyncServiceImpl) tracker(key string) *keyTracker {
	kt, ok := s.keys[key]
	if !ok {
		kt = &keyTracker{state: keystate.StateAbsent}
		s.keys[key] = kt
	}
	return kt
}

// drain processes one key's queue in order until it is empty.
func (s *SyncServiceImpl) drain(key string, kt *keyTracker) {
	defer s.wg.Done()
	for {
		s.mu.Lock()
		if len(kt.queue) == 0 {
			kt.running = false
			s.mu.Unlock()
			return
		}
		se := kt.queue[0]
		kt.queue = kt.queue[1:]

		if se.seq <= kt.processed {
			// Unreachable under per-key serialization.
			s.mu.Unlock()
			log.Printf("projector: %v: key %s seq %d after %d", ErrOrderingViolation, key, se.seq, kt.processed)
			if se.done != nil {
				se.done <- fmt.Errorf("%w: key %s", ErrOrderingViolation, key)
			}
			continue
		}
		kt.processed = se.seq
		s.mu.Unlock()

		err := s.process(context.Background(), se)
		if se.done != nil {
			se.done <- err
		}
	}
}

// process applies one event, retrying with exponential backoff. On
// exhaustion the key enters Failed, a drift entry is recorded, and the
// prior projection is left in place for stale-but-available reads.
func (s *SyncServiceImpl) process(ctx context.Context, se *sequencedEvent) error {
	var lastErr error
	attempts := 0
	for attempt := 0; attempt <= s.opts.RetryLimit; attempt++ {
		if attempt > 0 {
			select {
			case <-time.After(keystate.Backoff(s.opts.BackoffBase, attempt, s.opts.BackoffMax)):
			case <-ctx.Done():
			}
			if err := ctx.Err(); err != nil {
				lastErr = err
				break
			}
		}
		attempts = attempt + 1
		lastErr = s.attempt(ctx, se)
		if lastErr == nil {
			s.transition(se.event.Key, se.event.Kind)
			return nil
		}
	}

	s.fail(se.event.Key, attempts, lastErr)
	return &SyncFailedError{Key: se.event.Key, Attempts: attempts, Err: lastErr}
}

// attempt performs one derivation and store write.
func (s *SyncServiceImpl) attempt(ctx context.Context, se *sequencedEvent) error {
	wctx, cancel := context.WithTimeout(ctx, s.opts.WriteTimeout)
	defer cancel()

	if se.event.Kind == mutation.KindDelete {
		return s.store.Remove(wctx, se.event.Key, se.seq)
	}

	row := se.event.New
	if row == nil {
		// Conservative fallback: the feed did not carry the row image.
		rec, err := s.base.Get(wctx, se.event.Key)
		if errors.Is(err, secondary.ErrNotFound) {
			// Row vanished between commit and processing; the delete
			// event behind us owns the projection cleanup.
			return s.store.Remove(wctx, se.event.Key, se.seq)
		}
		if err != nil {
			return fmt.Errorf("failed to re-read base row %s: %w", se.event.Key, err)
		}
		row = &derive.BaseRow{Key: rec.Key, Attrs: rec.Attrs}
	}

	attrs, err := s.rule.Derive(*row)
	if err != nil {
		return err
	}

	return s.store.Upsert(wctx, &secondary.DerivedRecord{
		Key:          se.event.Key,
		Attrs:        attrs,
		Version:      se.seq,
		LastSyncedAt: time.Now().UTC(),
	})
}

// transition records the post-success state for a key.
func (s *SyncServiceImpl) transition(key string, kind mutation.Kind) {
	s.mu.Lock()
	defer s.mu.Unlock()
	kt := s.tracker(key)
	if kind == mutation.KindDelete {
		kt.state = keystate.OnRemoved(kt.state).NewState
		return
	}
	kt.state = keystate.OnSynced(kt.state).NewState
}

// fail marks the key Failed and records the exhaustion as drift. Reads
// keep returning the previous projection.
func (s *SyncServiceImpl) fail(key string, attempts int, cause error) {
	s.mu.Lock()
	kt := s.tracker(key)
	kt.state = keystate.OnFailure(kt.state).NewState
	kt.attempts = attempts
	s.mu.Unlock()

	rec := &drift.Record{
		Key:        key,
		Reason:     drift.ReasonSyncFailed,
		Detail:     fmt.Sprintf("after %d attempts: %v", attempts, cause),
		DetectedAt: time.Now().UTC(),
	}
	if err := s.drift.Report(context.Background(), rec); err != nil {
		log.Printf("projector: failed to record drift for %s: %v", key, err)
	}
}

// Flush blocks until every queued event has been processed.
func (s *SyncServiceImpl) Flush(ctx context.Context) error {
	for {
		s.mu.Lock()
		busy := false
		for _, kt := range s.keys {
			if kt.running || len(kt.queue) > 0 {
				busy = true
				break
			}
		}
		s.mu.Unlock()
		if !busy {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(5 * time.Millisecond):
		}
	}
}

// KeyState reports the synchronization state of a key.
func (s *SyncServiceImpl) KeyState(key string) keystate.State {
	s.mu.Lock()
	defer s.mu.Unlock()
	if kt, ok := s.keys[key]; ok {
		return kt.state
	}
	return keystate.StateAbsent
}

// StateCounts returns the number of tracked keys per state.
func (s *SyncServiceImpl) StateCounts() map[keystate.State]int {
	s.mu.Lock()
	defer s.mu.Unlock()
	counts := make(map[keystate.State]int)
	for _, kt := range s.keys {
		counts[kt.state]++
	}
	return counts
}

// Close flushes outstanding work and rejects further events.
func (s *SyncServiceImpl) Close(ctx context.Context) error {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	if err := s.Flush(ctx); err != nil {
		return err
	}
	s.wg.Wait()
	return nil
}

// Ensure SyncServiceImpl implements the interface
var _ primary.SyncService = (*SyncServiceImpl)(nil)
