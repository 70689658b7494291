package views

import (
	"sort"
	"time"

	"github.com/AdamBeresnev/tourney/internal/bracket"
)

type MatchLine struct {
	ID          int                 `json:"id"`
	Player1ID   string              `json:"player1_id"`
	Player2ID   string              `json:"player2_id"`
	Status      bracket.MatchStatus `json:"status"`
	Score       string              `json:"score,omitempty"`
	WinnerID    *string             `json:"winner_id,omitempty"`
	ScheduledAt *time.Time          `json:"scheduled_at,omitempty"`
}

type RoundView struct {
	Number  int         `json:"number"`
	Matches []MatchLine `json:"matches"`
	Byes    []string    `json:"byes,omitempty"`
}

type Section struct {
	Bracket bracket.BracketLabel `json:"bracket"`
	Rounds  []RoundView          `json:"rounds"`
}

// BracketView is the read-only shape handed to whatever renders the bracket.
type BracketView struct {
	Mode         bracket.Mode  `json:"mode"`
	Phase        bracket.Phase `json:"phase"`
	CurrentRound int           `json:"current_round"`
	Sections     []Section     `json:"sections"`
	Standings    []Standing    `json:"standings,omitempty"`
	WinnerID     *string       `json:"winner_id,omitempty"`
}

// Display order of the bracket sections
var sectionOrder = []bracket.BracketLabel{
	bracket.WinnersBracket,
	bracket.LosersBracket,
	bracket.FinalsBracket,
	bracket.SwissBracket,
	bracket.RoundRobinBracket,
	bracket.EliminationBracket,
}

func PrepareBracketData(t *bracket.Tournament) BracketView {
	rounds := make(map[bracket.BracketLabel]map[int]*RoundView)
	roundNums := make(map[bracket.BracketLabel][]int)

	roundFor := func(label bracket.BracketLabel, n int) *RoundView {
		if _, exists := rounds[label]; !exists {
			rounds[label] = make(map[int]*RoundView)
		}
		rv, exists := rounds[label][n]
		if !exists {
			rv = &RoundView{Number: n}
			rounds[label][n] = rv
			roundNums[label] = append(roundNums[label], n)
		}
		return rv
	}

	for _, m := range t.MatchList() {
		rv := roundFor(m.Bracket, m.Round)
		rv.Matches = append(rv.Matches, MatchLine{
			ID:          m.ID,
			Player1ID:   m.Player1ID,
			Player2ID:   m.Player2ID,
			Status:      m.Status,
			Score:       m.Score,
			WinnerID:    m.WinnerID,
			ScheduledAt: m.ScheduledAt,
		})
	}
	for _, b := range t.Byes {
		rv := roundFor(b.Bracket, b.Round)
		rv.Byes = append(rv.Byes, b.PlayerID)
	}

	view := BracketView{
		Mode:         t.Config.Mode,
		Phase:        t.Meta.Phase,
		CurrentRound: t.CurrentRound,
		WinnerID:     t.Meta.WinnerID,
	}
	for _, label := range sectionOrder {
		nums := roundNums[label]
		if len(nums) == 0 {
			continue
		}
		sort.Ints(nums)

		section := Section{Bracket: label}
		for _, n := range nums {
			section.Rounds = append(section.Rounds, *rounds[label][n])
		}
		view.Sections = append(view.Sections, section)
	}
	return view
}

// WithStandings attaches the current ranking, for formats that are decided on points.
func WithStandings(view BracketView, t *bracket.Tournament) BracketView {
	view.Standings = Standings(t)
	return view
}
