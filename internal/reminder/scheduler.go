package reminder

import (
	"context"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"
)

// StillOpen reports whether a match still needs its reminder. It is called at fire
// time so a match that finished early, or a tournament that ended, stays quiet.
type StillOpen func(scope string, matchID int) bool

type key struct {
	scope   string
	matchID int
}

type pending struct {
	timer clockwork.Timer
	stop  chan struct{}
}

// Scheduler runs one-shot reminder timers, at most one per match. It never touches
// tournament state.
type Scheduler struct {
	clock    clockwork.Clock
	notifier Notifier

	mu        sync.Mutex
	stillOpen StillOpen
	timers    map[key]*pending
	wg        sync.WaitGroup
}

func NewScheduler(clock clockwork.Clock, notifier Notifier) *Scheduler {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Scheduler{
		clock:    clock,
		notifier: notifier,
		timers:   make(map[key]*pending),
	}
}

// SetStillOpen installs the fire-time check.
func (s *Scheduler) SetStillOpen(fn StillOpen) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stillOpen = fn
}

// Schedule arms a reminder, replacing any earlier one for the same match. A
// reminder whose time has already passed fires straight away.
func (s *Scheduler) Schedule(r Reminder) {
	k := key{r.Scope, r.MatchID}
	delay := r.RemindAt.Sub(s.clock.Now())
	if delay < 0 {
		delay = 0
	}

	p := &pending{timer: s.clock.NewTimer(delay), stop: make(chan struct{})}

	s.mu.Lock()
	if existing, ok := s.timers[k]; ok {
		existing.cancel()
	}
	s.timers[k] = p
	s.wg.Add(1)
	s.mu.Unlock()

	go func() {
		defer s.wg.Done()
		select {
		case <-p.timer.Chan():
			if !s.remove(k, p) {
				return
			}
			s.fire(r)
		case <-p.stop:
		}
	}()

	log.Debug().
		Str("scope", r.Scope).
		Int("match_id", r.MatchID).
		Time("remind_at", r.RemindAt).
		Dur("delay", delay).
		Msg("scheduled match reminder")
}

// Cancel drops the reminder for a match. It reports whether one was pending.
func (s *Scheduler) Cancel(scope string, matchID int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	k := key{scope, matchID}
	p, ok := s.timers[k]
	if !ok {
		return false
	}
	p.cancel()
	delete(s.timers, k)
	return true
}

// CancelScope drops every reminder of a scope and returns how many there were.
func (s *Scheduler) CancelScope(scope string) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := 0
	for k, p := range s.timers {
		if k.scope == scope {
			p.cancel()
			delete(s.timers, k)
			n++
		}
	}
	return n
}

// Pending returns the number of armed reminders.
func (s *Scheduler) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.timers)
}

// Stop cancels everything and waits for in-flight reminders to finish.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	for k, p := range s.timers {
		p.cancel()
		delete(s.timers, k)
	}
	s.mu.Unlock()
	s.wg.Wait()
}

// remove clears the entry if it is still the one that fired.
func (s *Scheduler) remove(k key, p *pending) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.timers[k] != p {
		return false
	}
	delete(s.timers, k)
	return true
}

func (s *Scheduler) fire(r Reminder) {
	s.mu.Lock()
	stillOpen := s.stillOpen
	s.mu.Unlock()

	if stillOpen != nil && !stillOpen(r.Scope, r.MatchID) {
		log.Debug().Str("scope", r.Scope).Int("match_id", r.MatchID).Msg("match closed, reminder skipped")
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := s.notifier.Remind(ctx, r); err != nil {
		log.Warn().Err(err).Str("scope", r.Scope).Int("match_id", r.MatchID).Msg("failed to send reminder")
	}
}

func (p *pending) cancel() {
	select {
	case <-p.stop:
		return
	default:
	}
	if !p.timer.Stop() {
		select {
		case <-p.timer.Chan():
		default:
		}
	}
	close(p.stop)
}
