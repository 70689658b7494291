package views

import "github.com/AdamBeresnev/tourney/internal/bracket"

type Standing struct {
	Rank        int     `json:"rank"`
	UserID      string  `json:"user_id"`
	Seed        int     `json:"seed"`
	Wins        int     `json:"wins"`
	Losses      int     `json:"losses"`
	Draws       int     `json:"draws"`
	MatchPoints int     `json:"match_points"`
	Tiebreaker  float64 `json:"tiebreaker"`
	Active      bool    `json:"active"`
}

type Stats struct {
	Summary         bracket.Summary                    `json:"summary"`
	Standings       []Standing                         `json:"standings"`
	MatchesByStatus map[bracket.MatchStatus]int        `json:"matches_by_status"`
	Byes            int                                `json:"byes"`
	Disqualified    []string                           `json:"disqualified"`
	DeckChecks      map[bracket.VerificationStatus]int `json:"deck_checks"`
}

// Standings ranks active players first, disqualified players after them.
func Standings(t *bracket.Tournament) []Standing {
	var active, inactive []*bracket.Participant
	for _, p := range t.Participants {
		if p.Active {
			active = append(active, p)
		} else {
			inactive = append(inactive, p)
		}
	}
	bracket.Rank(active)
	bracket.Rank(inactive)

	out := make([]Standing, 0, len(t.Participants))
	for i, p := range append(active, inactive...) {
		out = append(out, Standing{
			Rank:        i + 1,
			UserID:      p.UserID,
			Seed:        p.Seed,
			Wins:        p.Wins,
			Losses:      p.Losses,
			Draws:       p.Draws,
			MatchPoints: p.MatchPoints,
			Tiebreaker:  p.TiebreakerPoints,
			Active:      p.Active,
		})
	}
	return out
}

func PrepareStats(t *bracket.Tournament) Stats {
	stats := Stats{
		Summary:         t.Summary(),
		Standings:       Standings(t),
		MatchesByStatus: make(map[bracket.MatchStatus]int),
		Byes:            t.ByeCount(),
		Disqualified:    []string{},
		DeckChecks:      make(map[bracket.VerificationStatus]int),
	}
	for _, m := range t.Matches {
		stats.MatchesByStatus[m.Status]++
	}
	for _, s := range stats.Standings {
		if !s.Active {
			stats.Disqualified = append(stats.Disqualified, s.UserID)
		}
	}
	for _, p := range t.Participants {
		if p.Deck != nil {
			stats.DeckChecks[p.Deck.Status]++
		}
	}
	return stats
}
