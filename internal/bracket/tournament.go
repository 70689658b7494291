package bracket

import (
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/AdamBeresnev/tourney/internal/utils"
)

type Mode string

const (
	SingleElimination Mode = "single_elimination"
	DoubleElimination Mode = "double_elimination"
	Swiss             Mode = "swiss"
	RoundRobin        Mode = "round_robin"
)

func (m Mode) Valid() bool {
	switch m {
	case SingleElimination, DoubleElimination, Swiss, RoundRobin:
		return true
	}
	return false
}

type Phase string

const (
	PhaseRegistration      Phase = "registration"
	PhaseElimination       Phase = "elimination"
	PhaseDoubleElimination Phase = "double_elimination"
	PhaseSwiss             Phase = "swiss"
	PhaseTopCut            Phase = "top_cut"
	PhaseRoundRobin        Phase = "round_robin"
	PhaseComplete          Phase = "complete"
)

// Brackets lists the bracket labels whose matches make up a round in this phase.
func (p Phase) Brackets() []BracketLabel {
	switch p {
	case PhaseElimination, PhaseTopCut:
		return []BracketLabel{EliminationBracket}
	case PhaseDoubleElimination:
		return []BracketLabel{WinnersBracket, LosersBracket, FinalsBracket}
	case PhaseSwiss:
		return []BracketLabel{SwissBracket}
	case PhaseRoundRobin:
		return []BracketLabel{RoundRobinBracket}
	}
	return nil
}

// Config is frozen once the tournament starts.
type Config struct {
	Mode                Mode `json:"mode" yaml:"mode"`
	BestOf              int  `json:"best_of" yaml:"best_of"`
	DeckCheck           bool `json:"deck_check" yaml:"deck_check"`
	Seeding             bool `json:"seeding" yaml:"seeding"`
	AllowDraws          bool `json:"allow_draws" yaml:"allow_draws"`
	RequireConfirmation bool `json:"require_confirmation" yaml:"require_confirmation"`
	SwissRounds         int  `json:"swiss_rounds" yaml:"swiss_rounds"`
	TopCut              int  `json:"top_cut" yaml:"top_cut"`
	Reminders           bool `json:"reminders" yaml:"reminders"`
	Announcements       bool `json:"announcements" yaml:"announcements"`
	ReminderLeadMinutes int  `json:"reminder_lead_minutes" yaml:"reminder_lead_minutes"`
	MinParticipants     int  `json:"min_participants" yaml:"min_participants"`
}

func (c Config) Validate() error {
	if !c.Mode.Valid() {
		return fmt.Errorf("%w: unknown mode %q", ErrInvalidConfig, c.Mode)
	}
	if c.BestOf < 1 || c.BestOf%2 == 0 {
		return fmt.Errorf("%w: best_of must be a positive odd number", ErrInvalidConfig)
	}
	if c.Mode == Swiss && c.SwissRounds < 1 {
		return fmt.Errorf("%w: swiss_rounds must be at least 1", ErrInvalidConfig)
	}
	if c.TopCut < 0 || c.ReminderLeadMinutes < 0 {
		return fmt.Errorf("%w: negative values are not allowed", ErrInvalidConfig)
	}
	if c.MinParticipants < 2 {
		return fmt.Errorf("%w: min_participants must be at least 2", ErrInvalidConfig)
	}
	return nil
}

// MaxGameWins is the most games either side can win in a best-of-N match.
func (c Config) MaxGameWins() int {
	return c.BestOf/2 + 1
}

func (c Config) ReminderLead() time.Duration {
	return time.Duration(c.ReminderLeadMinutes) * time.Minute
}

type Meta struct {
	ID          string     `json:"id"`
	Scope       string     `json:"scope"`
	Name        string     `json:"name"`
	Description string     `json:"description"`
	Phase       Phase      `json:"phase"`
	NextMatchID int        `json:"next_match_id"`
	CreatedAt   time.Time  `json:"created_at"`
	StartedAt   *time.Time `json:"started_at"`
	CompletedAt *time.Time `json:"completed_at"`
	WinnerID    *string    `json:"winner_id"`
	Cancelled   bool       `json:"cancelled"`
	// Seating order used by the round robin rotation
	Seating []string `json:"seating"`
}

// Tournament is the root aggregate and the unit of persistence for a scope.
type Tournament struct {
	Config           Config                  `json:"config"`
	Meta             Meta                    `json:"meta"`
	Started          bool                    `json:"started"`
	RegistrationOpen bool                    `json:"registration_open"`
	CurrentRound     int                     `json:"current_round"`
	Participants     map[string]*Participant `json:"participants"`
	Matches          map[int]*Match          `json:"matches"`
	Byes             []Bye                   `json:"byes"`
}

func NewTournament(id, scope, name, description string, cfg Config, now time.Time) *Tournament {
	return &Tournament{
		Config: cfg,
		Meta: Meta{
			ID:          id,
			Scope:       scope,
			Name:        name,
			Description: description,
			Phase:       PhaseRegistration,
			NextMatchID: 1,
			CreatedAt:   now,
		},
		CurrentRound: 1,
		Participants: make(map[string]*Participant),
		Matches:      make(map[int]*Match),
	}
}

func (t *Tournament) Complete() bool {
	return t.Meta.Phase == PhaseComplete
}

// Finish ends the tournament with an optional winner.
func (t *Tournament) Finish(winnerID string, now time.Time) {
	t.Meta.Phase = PhaseComplete
	t.Meta.WinnerID = utils.StringOrNil(winnerID)
	t.Meta.CompletedAt = &now
	t.RegistrationOpen = false
}

// AdvanceRound moves to the next round of the current phase.
func (t *Tournament) AdvanceRound() {
	t.CurrentRound++
}

func (t *Tournament) Participant(userID string) (*Participant, bool) {
	p, ok := t.Participants[userID]
	return p, ok
}

// ActiveParticipants returns the players still eligible for pairing, ordered by seed.
func (t *Tournament) ActiveParticipants() []*Participant {
	active := make([]*Participant, 0, len(t.Participants))
	for _, p := range t.Participants {
		if p.Active {
			active = append(active, p)
		}
	}
	sort.Slice(active, func(i, j int) bool {
		return active[i].Seed < active[j].Seed
	})
	return active
}

func (t *Tournament) IsActive(userID string) bool {
	p, ok := t.Participants[userID]
	return ok && p.Active
}

// AddMatch creates a pending match with the next id.
func (t *Tournament) AddMatch(player1, player2 string, round int, label BracketLabel, order int, now time.Time) *Match {
	m := &Match{
		ID:        t.Meta.NextMatchID,
		Player1ID: player1,
		Player2ID: player2,
		Round:     round,
		Bracket:   label,
		Order:     order,
		Status:    MatchPending,
		CreatedAt: now,
	}
	t.Matches[m.ID] = m
	t.Meta.NextMatchID++
	return m
}

// AddBye records an automatic win for the player.
func (t *Tournament) AddBye(playerID string, round int, label BracketLabel, order int, now time.Time) {
	if p, ok := t.Participants[playerID]; ok {
		p.ApplyWin()
	}
	t.Byes = append(t.Byes, Bye{
		PlayerID:  playerID,
		Round:     round,
		Bracket:   label,
		Order:     order,
		GrantedAt: now,
	})
}

// MatchList returns every match in creation order.
func (t *Tournament) MatchList() []*Match {
	list := make([]*Match, 0, len(t.Matches))
	for _, m := range t.Matches {
		list = append(list, m)
	}
	sort.Slice(list, func(i, j int) bool {
		return list[i].ID < list[j].ID
	})
	return list
}

// RoundMatches returns the matches of a round in the given brackets, ordered by position.
func (t *Tournament) RoundMatches(round int, labels ...BracketLabel) []*Match {
	var out []*Match
	for _, m := range t.MatchList() {
		if m.Round != round || !hasLabel(labels, m.Bracket) {
			continue
		}
		out = append(out, m)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Order < out[j].Order
	})
	return out
}

func (t *Tournament) RoundByes(round int, label BracketLabel) []Bye {
	var out []Bye
	for _, b := range t.Byes {
		if b.Round == round && b.Bracket == label {
			out = append(out, b)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Order < out[j].Order
	})
	return out
}

// CurrentRoundMatches returns the matches making up the current round of the current phase.
func (t *Tournament) CurrentRoundMatches() []*Match {
	return t.RoundMatches(t.CurrentRound, t.Meta.Phase.Brackets()...)
}

// RoundComplete reports whether every match of the current round is resolved.
func (t *Tournament) RoundComplete() bool {
	for _, m := range t.CurrentRoundMatches() {
		if !m.Resolved() {
			return false
		}
	}
	return true
}

// FindOpenMatch returns the pending or awaiting match between two players.
func (t *Tournament) FindOpenMatch(a, b string) (*Match, bool) {
	for _, m := range t.MatchList() {
		if m.Open() && m.Between(a, b) {
			return m, true
		}
	}
	return nil, false
}

// HasFaced scans the full match history of the given brackets.
func (t *Tournament) HasFaced(a, b string, labels ...BracketLabel) bool {
	for _, m := range t.Matches {
		if m.Between(a, b) && (len(labels) == 0 || hasLabel(labels, m.Bracket)) {
			return true
		}
	}
	return false
}

// HadBye reports whether the player already received a bye in the given bracket.
func (t *Tournament) HadBye(playerID string, label BracketLabel) bool {
	for _, b := range t.Byes {
		if b.PlayerID == playerID && b.Bracket == label {
			return true
		}
	}
	return false
}

func (t *Tournament) ByeCount() int {
	return len(t.Byes)
}

// Clone returns a deep copy through the persisted form.
func (t *Tournament) Clone() *Tournament {
	data, err := json.Marshal(t)
	if err != nil {
		panic(fmt.Sprintf("bracket: clone marshal: %v", err))
	}
	var out Tournament
	if err := json.Unmarshal(data, &out); err != nil {
		panic(fmt.Sprintf("bracket: clone unmarshal: %v", err))
	}
	return &out
}

type Summary struct {
	ID                 string     `json:"id"`
	Scope              string     `json:"scope"`
	Name               string     `json:"name"`
	Description        string     `json:"description"`
	Mode               Mode       `json:"mode"`
	Phase              Phase      `json:"phase"`
	Started            bool       `json:"started"`
	RegistrationOpen   bool       `json:"registration_open"`
	CurrentRound       int        `json:"current_round"`
	Participants       int        `json:"participants"`
	ActiveParticipants int        `json:"active_participants"`
	Matches            int        `json:"matches"`
	WinnerID           *string    `json:"winner_id,omitempty"`
	Cancelled          bool       `json:"cancelled"`
	CreatedAt          time.Time  `json:"created_at"`
	StartedAt          *time.Time `json:"started_at,omitempty"`
}

func (t *Tournament) Summary() Summary {
	return Summary{
		ID:                 t.Meta.ID,
		Scope:              t.Meta.Scope,
		Name:               t.Meta.Name,
		Description:        t.Meta.Description,
		Mode:               t.Config.Mode,
		Phase:              t.Meta.Phase,
		Started:            t.Started,
		RegistrationOpen:   t.RegistrationOpen,
		CurrentRound:       t.CurrentRound,
		Participants:       len(t.Participants),
		ActiveParticipants: len(t.ActiveParticipants()),
		Matches:            len(t.Matches),
		WinnerID:           t.Meta.WinnerID,
		Cancelled:          t.Meta.Cancelled,
		CreatedAt:          t.Meta.CreatedAt,
		StartedAt:          t.Meta.StartedAt,
	}
}

func hasLabel(labels []BracketLabel, l BracketLabel) bool {
	for _, x := range labels {
		if x == l {
			return true
		}
	}
	return false
}
