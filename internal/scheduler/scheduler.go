package scheduler

import (
	"log/slog"
	"sync"
	"time"

	"github.com/mcoot/partyroom/internal/dependencies/clock"
	"github.com/mcoot/partyroom/internal/model"
)

// Scheduler runs at most one delayed task per session. Tasks can be cancelled
// until they fire; a cancelled task never runs.
type Scheduler struct {
	clock  clock.Clock
	logger *slog.Logger

	mu     sync.Mutex
	nextID uint64
	tasks  map[model.SessionID]*task
}

type task struct {
	id       uint64
	timer    clock.Timer
	deadline time.Time
}

// New creates a scheduler driven by clk
func New(clk clock.Clock, logger *slog.Logger) *Scheduler {
	return &Scheduler{
		clock:  clk,
		logger: logger.With(slog.String("component", "scheduler")),
		tasks:  make(map[model.SessionID]*task),
	}
}

// Schedule runs fn after d unless a task is already pending for session, in
// which case nothing changes. It returns the deadline of the pending task and
// whether a new task was created.
func (s *Scheduler) Schedule(session model.SessionID, d time.Duration, fn func()) (time.Time, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if existing, ok := s.tasks[session]; ok {
		return existing.deadline, false
	}

	s.nextID++
	t := &task{id: s.nextID, deadline: s.clock.Now().Add(d)}
	id := t.id
	t.timer = s.clock.AfterFunc(d, func() {
		if !s.claim(session, id) {
			return
		}
		s.logger.Debug("task fired", slog.String("session", string(session)))
		fn()
	})
	s.tasks[session] = t

	s.logger.Debug("task scheduled",
		slog.String("session", string(session)),
		slog.Duration("delay", d),
	)
	return t.deadline, true
}

// claim removes the task if it is still the current one for session
func (s *Scheduler) claim(session model.SessionID, id uint64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tasks[session]
	if !ok || t.id != id {
		return false
	}
	delete(s.tasks, session)
	return true
}

// Cancel stops the pending task for session. Returns false if there was none.
func (s *Scheduler) Cancel(session model.SessionID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.tasks[session]
	if !ok {
		return false
	}
	t.timer.Stop()
	delete(s.tasks, session)

	s.logger.Debug("task cancelled", slog.String("session", string(session)))
	return true
}

// Deadline returns when the pending task for session will fire
func (s *Scheduler) Deadline(session model.SessionID) (time.Time, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tasks[session]
	if !ok {
		return time.Time{}, false
	}
	return t.deadline, true
}

// Stop cancels every pending task
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for session, t := range s.tasks {
		t.timer.Stop()
		delete(s.tasks, session)
	}
}
