package sync

import (
	"errors"
	"log/slog"
	gosync "sync"
	"time"

	"github.com/nathanj/quill/internal/models"
)

// Drainer is the slice of the engine the scheduler needs.
type Drainer interface {
	Drain() ([]models.SyncResult, error)
}

// Scheduler fires drains on a fixed interval and immediately on an
// offline-to-online transition. It carries no business logic: it only
// decides when to try, never what happens when we try.
type Scheduler struct {
	engine   Drainer
	interval time.Duration

	// OnResults, when set, receives the outcomes of each non-empty drain.
	OnResults func([]models.SyncResult)

	mu     gosync.Mutex
	online bool

	wake chan struct{}
	stop chan struct{}
	done chan struct{}
}

// NewScheduler creates a scheduler that drains the engine every interval.
// The scheduler starts out assuming it is online.
func NewScheduler(engine Drainer, interval time.Duration) *Scheduler {
	return &Scheduler{
		engine:   engine,
		interval: interval,
		online:   true,
		wake:     make(chan struct{}, 1),
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
}

// Start launches the scheduling loop. Call Stop to shut it down.
func (s *Scheduler) Start() {
	go s.run()
}

// Stop terminates the scheduling loop and waits for it to exit. Any
// in-flight drain completes; its operations stay queued if interrupted by
// process exit instead.
func (s *Scheduler) Stop() {
	close(s.stop)
	<-s.done
}

// SetOnline records the connectivity state. A transition from offline to
// online triggers an immediate drain.
func (s *Scheduler) SetOnline(online bool) {
	s.mu.Lock()
	wasOnline := s.online
	s.online = online
	s.mu.Unlock()

	if online && !wasOnline {
		select {
		case s.wake <- struct{}{}:
		default: // a wake-up is already pending; coalesce
		}
	}
}

// Online reports the last recorded connectivity state.
func (s *Scheduler) Online() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.online
}

func (s *Scheduler) run() {
	defer close(s.done)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.drain()
		case <-s.wake:
			s.drain()
		case <-s.stop:
			return
		}
	}
}

// drain runs one drain cycle. Overlap with a concurrent drain coalesces;
// transport-level emptiness is quiet; anything else is logged and retried
// at the next tick, with no backoff.
func (s *Scheduler) drain() {
	if !s.Online() {
		return
	}

	results, err := s.engine.Drain()
	if errors.Is(err, ErrDrainInProgress) {
		slog.Debug("scheduler: drain coalesced")
		return
	}
	if err != nil {
		slog.Warn("scheduler: drain", "err", err)
	}
	if len(results) > 0 && s.OnResults != nil {
		s.OnResults(results)
	}
}
