package eventlog

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Event types written by the engine.
const (
	TournamentCreated   = "tournament_created"
	RegistrationOpened  = "registration_opened"
	Registration        = "registration"
	DeckVerification    = "deck_verification"
	TournamentStarted   = "tournament_started"
	MatchReported       = "match_reported"
	MatchResult         = "match_result"
	MatchConfirmed      = "match_confirmed"
	PlayerDQ            = "player_dq"
	ByeGranted          = "bye_granted"
	RoundStarted        = "round_started"
	PhaseChanged        = "phase_changed"
	MatchScheduled      = "match_scheduled"
	TournamentCompleted = "tournament_completed"
	TournamentCancelled = "tournament_cancelled"
)

type Payload map[string]any

type Event struct {
	Timestamp time.Time `json:"timestamp"`
	Scope     string    `json:"scope"`
	Type      string    `json:"type"`
	Payload   Payload   `json:"payload"`
}

// Recorder collects events produced while a mutation is in flight.
type Recorder interface {
	Record(eventType string, payload Payload)
}

// Logger appends events to one JSON-lines file per UTC day. It never returns errors
// to callers; a failed write is reported through the application log and dropped.
type Logger struct {
	dir   string
	clock clockwork.Clock
	mu    sync.Mutex
}

func NewLogger(dir string, clock clockwork.Clock) *Logger {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Logger{dir: dir, clock: clock}
}

func (l *Logger) Log(scope, eventType string, payload Payload) {
	l.write(Event{Timestamp: l.clock.Now().UTC(), Scope: scope, Type: eventType, Payload: payload})
}

func (l *Logger) write(e Event) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := l.append(e); err != nil {
		log.Warn().
			Err(err).
			Str("scope", e.Scope).
			Str("event_type", e.Type).
			Msg("failed to write tournament event")
	}
}

func (l *Logger) append(e Event) error {
	if err := os.MkdirAll(l.dir, 0o755); err != nil {
		return fmt.Errorf("create event log dir: %w", err)
	}

	f, err := os.OpenFile(l.pathFor(e.Timestamp), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open event log: %w", err)
	}

	w := &errWriter{w: f}
	logger := zerolog.New(w)
	logger.Log().
		Time("timestamp", e.Timestamp).
		Str("scope", e.Scope).
		Str("type", e.Type).
		Interface("payload", e.Payload).
		Send()

	closeErr := f.Close()
	if w.err != nil {
		return fmt.Errorf("write event log: %w", w.err)
	}
	return closeErr
}

// Events reads back every record logged on the given day.
func (l *Logger) Events(day time.Time) ([]Event, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	f, err := os.Open(l.pathFor(day))
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var events []Event
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for scanner.Scan() {
		var e Event
		if err := json.Unmarshal(scanner.Bytes(), &e); err != nil {
			return events, fmt.Errorf("decode event: %w", err)
		}
		events = append(events, e)
	}
	return events, scanner.Err()
}

func (l *Logger) pathFor(t time.Time) string {
	return filepath.Join(l.dir, "events-"+t.UTC().Format("2006-01-02")+".jsonl")
}

// zerolog swallows writer errors, this keeps the first one around
type errWriter struct {
	w   *os.File
	err error
}

func (e *errWriter) Write(p []byte) (int, error) {
	n, err := e.w.Write(p)
	if err != nil && e.err == nil {
		e.err = err
	}
	return n, err
}

// Batch buffers events until the mutation that produced them is committed.
type Batch struct {
	events []Event
	clock  clockwork.Clock
}

func NewBatch(clock clockwork.Clock) *Batch {
	return &Batch{clock: clock}
}

func (b *Batch) Record(eventType string, payload Payload) {
	b.events = append(b.events, Event{Timestamp: b.clock.Now().UTC(), Type: eventType, Payload: payload})
}

func (b *Batch) Events() []Event {
	return b.events
}

// Flush writes the buffered events under the given scope.
func (b *Batch) Flush(l *Logger, scope string) {
	if l == nil {
		return
	}
	for _, e := range b.events {
		e.Scope = scope
		l.write(e)
	}
	b.events = nil
}
