package service

import (
	"context"
	"errors"
	"fmt"
	"hash/fnv"
	"math/rand/v2"
	"strings"
	"sync"
	"time"

	"github.com/AdamBeresnev/tourney/internal/bracket"
	"github.com/AdamBeresnev/tourney/internal/eventlog"
	"github.com/AdamBeresnev/tourney/internal/format"
	"github.com/AdamBeresnev/tourney/internal/reminder"
	"github.com/AdamBeresnev/tourney/internal/store"
	"github.com/AdamBeresnev/tourney/internal/utils"
	"github.com/AdamBeresnev/tourney/views"
	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"
)

// ErrPersistence means the change was not saved and has not been applied. The
// caller may retry.
var ErrPersistence = errors.New("tournament state could not be saved")

// Manager owns the tournament of every scope. All calls for one scope run one at
// a time; different scopes do not block each other.
//
// Each mutation works on a copy of the tournament. The copy replaces the live state
// only after it has been saved, so a failed save leaves nothing half applied.
type Manager struct {
	store     store.SnapshotStore
	events    *eventlog.Logger
	clock     clockwork.Clock
	defaults  bracket.Config
	reminders *reminder.Scheduler
	announcer reminder.Notifier
	seed      *uint64

	registration *RegistrationService
	matches      *MatchService

	mu     sync.Mutex
	scopes map[string]*scopeState
}

type scopeState struct {
	mu         sync.Mutex
	loaded     bool
	tournament *bracket.Tournament
	pcg        *rand.PCG
	rng        *rand.Rand
}

type Option func(*Manager)

func WithClock(clock clockwork.Clock) Option {
	return func(m *Manager) { m.clock = clock }
}

func WithEventLogger(l *eventlog.Logger) Option {
	return func(m *Manager) { m.events = l }
}

// WithReminders arms match reminders through the scheduler.
func WithReminders(s *reminder.Scheduler) Option {
	return func(m *Manager) { m.reminders = s }
}

// WithAnnouncer sends round and result announcements for tournaments that enable them.
func WithAnnouncer(n reminder.Notifier) Option {
	return func(m *Manager) { m.announcer = n }
}

// WithRandSeed makes unseeded pairings reproducible.
func WithRandSeed(seed uint64) Option {
	return func(m *Manager) { m.seed = &seed }
}

func NewManager(s store.SnapshotStore, defaults bracket.Config, opts ...Option) *Manager {
	m := &Manager{
		store:    s,
		defaults: defaults,
		clock:    clockwork.NewRealClock(),
		scopes:   make(map[string]*scopeState),
	}
	for _, opt := range opts {
		opt(m)
	}
	m.registration = NewRegistrationService(m.clock)
	m.matches = NewMatchService(m.clock)
	if m.reminders != nil {
		m.reminders.SetStillOpen(m.matchOpen)
	}
	return m
}

// ConfigOverrides replaces individual defaults at creation. Nil fields keep the default.
type ConfigOverrides struct {
	BestOf              *int  `json:"best_of,omitempty"`
	DeckCheck           *bool `json:"deck_check,omitempty"`
	Seeding             *bool `json:"seeding,omitempty"`
	AllowDraws          *bool `json:"allow_draws,omitempty"`
	RequireConfirmation *bool `json:"require_confirmation,omitempty"`
	SwissRounds         *int  `json:"swiss_rounds,omitempty"`
	TopCut              *int  `json:"top_cut,omitempty"`
	Reminders           *bool `json:"reminders,omitempty"`
	Announcements       *bool `json:"announcements,omitempty"`
	ReminderLeadMinutes *int  `json:"reminder_lead_minutes,omitempty"`
	MinParticipants     *int  `json:"min_participants,omitempty"`
}

func (o ConfigOverrides) apply(c bracket.Config) bracket.Config {
	setInt := func(dst *int, v *int) {
		if v != nil {
			*dst = *v
		}
	}
	setBool := func(dst *bool, v *bool) {
		if v != nil {
			*dst = *v
		}
	}
	setInt(&c.BestOf, o.BestOf)
	setBool(&c.DeckCheck, o.DeckCheck)
	setBool(&c.Seeding, o.Seeding)
	setBool(&c.AllowDraws, o.AllowDraws)
	setBool(&c.RequireConfirmation, o.RequireConfirmation)
	setInt(&c.SwissRounds, o.SwissRounds)
	setInt(&c.TopCut, o.TopCut)
	setBool(&c.Reminders, o.Reminders)
	setBool(&c.Announcements, o.Announcements)
	setInt(&c.ReminderLeadMinutes, o.ReminderLeadMinutes)
	setInt(&c.MinParticipants, o.MinParticipants)
	return c
}

type CreateInput struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Mode        bracket.Mode    `json:"mode"`
	Overrides   ConfigOverrides `json:"config"`
}

type ReportInput struct {
	ReporterID string `json:"reporter_id"`
	OpponentID string `json:"opponent_id"`
	Wins       int    `json:"wins"`
	Losses     int    `json:"losses"`
	Draws      int    `json:"draws"`
}

// txn is one in-flight mutation of a scope.
type txn struct {
	scope string
	t     *bracket.Tournament
	batch *eventlog.Batch
	env   format.Env
	// Generator state at begin, restored when the mutation is dropped.
	rngState []byte
}

// Create starts a new tournament in the scope. A finished or cancelled one is replaced.
func (m *Manager) Create(ctx context.Context, scope string, in CreateInput) (bracket.Summary, error) {
	var out bracket.Summary
	err := m.withScope(ctx, scope, func(st *scopeState) error {
		if st.tournament != nil && !st.tournament.Complete() {
			return bracket.ErrAlreadyInProgress
		}

		name := strings.TrimSpace(in.Name)
		if name == "" {
			return fmt.Errorf("%w: name is required", bracket.ErrInvalidConfig)
		}
		cfg := m.defaults
		if in.Mode != "" {
			cfg.Mode = in.Mode
		}
		cfg = in.Overrides.apply(cfg)
		if err := cfg.Validate(); err != nil {
			return err
		}

		t := bracket.NewTournament(uuid.NewString(), scope, name, strings.TrimSpace(in.Description), cfg, m.now())
		tx := m.begin(st, scope, t)
		tx.batch.Record(eventlog.TournamentCreated, eventlog.Payload{
			"tournament_id": t.Meta.ID,
			"name":          t.Meta.Name,
			"mode":          string(cfg.Mode),
			"best_of":       cfg.BestOf,
		})
		if err := m.commit(ctx, st, tx); err != nil {
			return err
		}
		out = t.Summary()
		return nil
	})
	return out, err
}

// OpenRegistration reports whether registration is open after the call.
func (m *Manager) OpenRegistration(ctx context.Context, scope string) (bool, error) {
	err := m.update(ctx, scope, func(tx *txn) error {
		switch {
		case tx.t.Complete():
			return bracket.ErrTournamentComplete
		case tx.t.Started:
			return bracket.ErrAlreadyStarted
		}
		tx.t.RegistrationOpen = true
		tx.batch.Record(eventlog.RegistrationOpened, eventlog.Payload{"tournament_id": tx.t.Meta.ID})
		return nil
	})
	return err == nil, err
}

func (m *Manager) Register(ctx context.Context, scope, userID string, decks []bracket.DeckRef) (bracket.Participant, error) {
	var out bracket.Participant
	err := m.update(ctx, scope, func(tx *txn) error {
		p, err := m.registration.Register(tx.t, userID, decks, tx.batch)
		if err != nil {
			return err
		}
		out = *p
		return nil
	})
	return out, err
}

func (m *Manager) VerifyDeck(ctx context.Context, scope, moderatorID, playerID string, status bracket.VerificationStatus, notes string) error {
	return m.update(ctx, scope, func(tx *txn) error {
		return m.registration.VerifyDeck(tx.t, moderatorID, playerID, status, notes, tx.batch)
	})
}

// Start closes registration and pairs the first round.
func (m *Manager) Start(ctx context.Context, scope string) error {
	return m.update(ctx, scope, func(tx *txn) error {
		t := tx.t
		switch {
		case t.Started:
			return bracket.ErrAlreadyStarted
		case t.Complete():
			return bracket.ErrTournamentComplete
		}
		if active := len(t.ActiveParticipants()); active < t.Config.MinParticipants {
			return &bracket.NotEnoughParticipantsError{Have: active, Need: t.Config.MinParticipants}
		}

		strategy, err := format.For(t.Config.Mode)
		if err != nil {
			return err
		}
		if err := strategy.StartTournament(t, tx.env); err != nil {
			return err
		}
		t.Started = true
		t.RegistrationOpen = false
		t.Meta.StartedAt = utils.TimePtr(m.now())
		tx.batch.Record(eventlog.TournamentStarted, eventlog.Payload{
			"mode":         string(t.Config.Mode),
			"participants": len(t.ActiveParticipants()),
			"matches":      len(t.CurrentRoundMatches()),
		})
		return m.advance(tx)
	})
}

func (m *Manager) ReportResult(ctx context.Context, scope string, in ReportInput) (MatchOutcome, error) {
	var out MatchOutcome
	err := m.update(ctx, scope, func(tx *txn) error {
		res, err := m.matches.ReportResult(tx.t, in.ReporterID, in.OpponentID, in.Wins, in.Losses, in.Draws, tx.batch)
		if err != nil {
			return err
		}
		out = res
		if res.RoundComplete {
			return m.advance(tx)
		}
		return nil
	})
	return out, err
}

func (m *Manager) ConfirmResult(ctx context.Context, scope, moderatorID string, matchID int) (MatchOutcome, error) {
	var out MatchOutcome
	err := m.update(ctx, scope, func(tx *txn) error {
		res, err := m.matches.ConfirmResult(tx.t, moderatorID, matchID, tx.batch)
		if err != nil {
			return err
		}
		out = res
		if res.RoundComplete {
			return m.advance(tx)
		}
		return nil
	})
	return out, err
}

func (m *Manager) Disqualify(ctx context.Context, scope, moderatorID, playerID, reason string) (DQOutcome, error) {
	var out DQOutcome
	err := m.update(ctx, scope, func(tx *txn) error {
		res, err := m.matches.Disqualify(tx.t, moderatorID, playerID, reason, tx.batch)
		if err != nil {
			return err
		}
		out = res
		if res.RoundComplete {
			return m.advance(tx)
		}
		return nil
	})
	return out, err
}

// ScheduleMatch sets when an open match is to be played and arms its reminder.
func (m *Manager) ScheduleMatch(ctx context.Context, scope string, matchID int, at time.Time) error {
	return m.update(ctx, scope, func(tx *txn) error {
		if err := playable(tx.t); err != nil {
			return err
		}
		match, ok := tx.t.Matches[matchID]
		if !ok {
			return bracket.ErrMatchNotFound
		}
		if !match.Open() {
			return fmt.Errorf("%w: match %d is already decided", bracket.ErrNoMatchFound, matchID)
		}
		match.ScheduledAt = utils.TimePtr(at.UTC())
		tx.batch.Record(eventlog.MatchScheduled, eventlog.Payload{
			"match_id":     matchID,
			"scheduled_at": at.UTC(),
		})
		return nil
	})
}

// Cancel ends the tournament without a winner.
func (m *Manager) Cancel(ctx context.Context, scope, moderatorID string) error {
	return m.update(ctx, scope, func(tx *txn) error {
		if tx.t.Complete() {
			return bracket.ErrTournamentComplete
		}
		tx.t.Meta.Cancelled = true
		tx.t.Finish("", m.now())
		tx.batch.Record(eventlog.TournamentCancelled, eventlog.Payload{
			"tournament_id": tx.t.Meta.ID,
			"moderator_id":  moderatorID,
		})
		return nil
	})
}

// Tournament returns a copy of the scope's tournament.
func (m *Manager) Tournament(ctx context.Context, scope string) (*bracket.Tournament, error) {
	var out *bracket.Tournament
	err := m.read(ctx, scope, func(t *bracket.Tournament) error {
		out = t
		return nil
	})
	return out, err
}

func (m *Manager) BracketView(ctx context.Context, scope string) (views.BracketView, error) {
	var out views.BracketView
	err := m.read(ctx, scope, func(t *bracket.Tournament) error {
		strategy, err := format.For(t.Config.Mode)
		if err != nil {
			return err
		}
		format.ApplyTiebreakers(t)
		out = strategy.Visualize(t)
		return nil
	})
	return out, err
}

func (m *Manager) Stats(ctx context.Context, scope string) (views.Stats, error) {
	var out views.Stats
	err := m.read(ctx, scope, func(t *bracket.Tournament) error {
		format.ApplyTiebreakers(t)
		out = views.PrepareStats(t)
		return nil
	})
	return out, err
}

// History lists the saved rollback points of a scope.
func (m *Manager) History(ctx context.Context, scope string) ([]store.Revision, error) {
	return m.store.History(ctx, scope)
}

// Events returns the audit log of one day, across scopes.
func (m *Manager) Events(day time.Time) ([]eventlog.Event, error) {
	if m.events == nil {
		return nil, nil
	}
	return m.events.Events(day)
}

// advance lets the format move on for as long as rounds complete, which covers
// rounds made up only of byes.
func (m *Manager) advance(tx *txn) error {
	strategy, err := format.For(tx.t.Config.Mode)
	if err != nil {
		return err
	}
	for !tx.t.Complete() && tx.t.RoundComplete() {
		advanced, err := strategy.CheckRoundCompletion(tx.t, tx.env)
		if err != nil {
			return err
		}
		if !advanced {
			break
		}
	}
	return nil
}

func (m *Manager) update(ctx context.Context, scope string, fn func(tx *txn) error) error {
	return m.withScope(ctx, scope, func(st *scopeState) error {
		if st.tournament == nil {
			return bracket.ErrNoTournament
		}
		tx := m.begin(st, scope, st.tournament.Clone())
		if err := fn(tx); err != nil {
			m.rollback(st, tx)
			return err
		}
		return m.commit(ctx, st, tx)
	})
}

func (m *Manager) read(ctx context.Context, scope string, fn func(t *bracket.Tournament) error) error {
	return m.withScope(ctx, scope, func(st *scopeState) error {
		if st.tournament == nil {
			return bracket.ErrNoTournament
		}
		return fn(st.tournament.Clone())
	})
}

func (m *Manager) begin(st *scopeState, scope string, t *bracket.Tournament) *txn {
	batch := eventlog.NewBatch(m.clock)
	state, _ := st.pcg.MarshalBinary()
	return &txn{
		scope: scope,
		t:     t,
		batch: batch,
		env: format.Env{
			Now:    m.now,
			Rand:   st.rng,
			Events: batch,
		},
		rngState: state,
	}
}

// rollback rewinds the scope's generator so a retried mutation draws the same values.
func (m *Manager) rollback(st *scopeState, tx *txn) {
	if err := st.pcg.UnmarshalBinary(tx.rngState); err != nil {
		log.Warn().Err(err).Str("scope", tx.scope).Msg("failed to restore random state")
	}
}

// commit saves the working copy and only then makes it live.
func (m *Manager) commit(ctx context.Context, st *scopeState, tx *txn) error {
	if err := m.store.Save(ctx, tx.scope, tx.t); err != nil {
		log.Error().Err(err).Str("scope", tx.scope).Msg("failed to save tournament")
		m.rollback(st, tx)
		return fmt.Errorf("%w: %w", ErrPersistence, err)
	}
	prev := st.tournament
	st.tournament = tx.t

	m.announce(tx)
	tx.batch.Flush(m.events, tx.scope)
	m.syncReminders(tx.scope, prev, tx.t)
	return nil
}

// withScope runs fn holding the scope's lock, loading the saved state on first use.
func (m *Manager) withScope(ctx context.Context, scope string, fn func(st *scopeState) error) error {
	scope, err := store.ValidateScope(scope)
	if err != nil {
		return err
	}

	m.mu.Lock()
	st, ok := m.scopes[scope]
	if !ok {
		pcg := m.newPCG(scope)
		st = &scopeState{pcg: pcg, rng: rand.New(pcg)}
		m.scopes[scope] = st
	}
	m.mu.Unlock()

	st.mu.Lock()
	defer st.mu.Unlock()

	if !st.loaded {
		t, err := m.store.Load(ctx, scope)
		switch {
		case errors.Is(err, store.ErrSnapshotNotFound):
		case err != nil:
			return fmt.Errorf("%w: load: %w", ErrPersistence, err)
		default:
			st.tournament = t
			log.Info().Str("scope", scope).Str("tournament_id", t.Meta.ID).Msg("restored tournament")
			m.armReminders(scope, nil, t)
		}
		st.loaded = true
	}
	return fn(st)
}

// matchOpen is the reminder fire-time check.
func (m *Manager) matchOpen(scope string, matchID int) bool {
	open := false
	_ = m.withScope(context.Background(), scope, func(st *scopeState) error {
		t := st.tournament
		if t == nil || t.Complete() {
			return nil
		}
		if match, ok := t.Matches[matchID]; ok {
			open = match.Open()
		}
		return nil
	})
	return open
}

// syncReminders drops reminders of matches that were decided and arms the ones
// whose schedule changed.
func (m *Manager) syncReminders(scope string, prev, next *bracket.Tournament) {
	if m.reminders == nil {
		return
	}
	if next.Complete() {
		if n := m.reminders.CancelScope(scope); n > 0 {
			log.Debug().Str("scope", scope).Int("cancelled", n).Msg("cancelled reminders")
		}
		return
	}
	for _, match := range next.Matches {
		if !match.Open() {
			m.reminders.Cancel(scope, match.ID)
		}
	}
	m.armReminders(scope, prev, next)
}

// armReminders schedules a reminder for every open match with a future start that
// prev did not already have. A nil prev arms them all, as after a restart.
func (m *Manager) armReminders(scope string, prev, t *bracket.Tournament) {
	if m.reminders == nil || !t.Config.Reminders || t.Complete() {
		return
	}
	now := m.now()
	for _, match := range t.Matches {
		if !match.Open() || match.ScheduledAt == nil || !match.ScheduledAt.After(now) {
			continue
		}
		if prev != nil && prev.Meta.ID == t.Meta.ID {
			if old, ok := prev.Matches[match.ID]; ok && old.ScheduledAt != nil && old.ScheduledAt.Equal(*match.ScheduledAt) {
				continue
			}
		}
		m.reminders.Schedule(reminder.Reminder{
			Scope:       scope,
			MatchID:     match.ID,
			Player1ID:   match.Player1ID,
			Player2ID:   match.Player2ID,
			ScheduledAt: *match.ScheduledAt,
			RemindAt:    match.ScheduledAt.Add(-t.Config.ReminderLead()),
		})
	}
}

// Events that are also announced to players.
var announced = map[string]bool{
	eventlog.TournamentStarted:   true,
	eventlog.RoundStarted:        true,
	eventlog.PhaseChanged:        true,
	eventlog.TournamentCompleted: true,
	eventlog.TournamentCancelled: true,
}

func (m *Manager) announce(tx *txn) {
	if m.announcer == nil || !tx.t.Config.Announcements {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	for _, e := range tx.batch.Events() {
		if !announced[e.Type] {
			continue
		}
		err := m.announcer.Announce(ctx, reminder.Announcement{
			Scope:   tx.scope,
			Kind:    e.Type,
			Details: e.Payload,
			At:      e.Timestamp,
		})
		if err != nil {
			log.Warn().Err(err).Str("scope", tx.scope).Str("kind", e.Type).Msg("failed to send announcement")
		}
	}
}

func (m *Manager) now() time.Time {
	return m.clock.Now().UTC()
}

func (m *Manager) newPCG(scope string) *rand.PCG {
	if m.seed == nil {
		return rand.NewPCG(rand.Uint64(), rand.Uint64())
	}
	h := fnv.New64a()
	h.Write([]byte(scope))
	return rand.NewPCG(*m.seed, h.Sum64())
}
