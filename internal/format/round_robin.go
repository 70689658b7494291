package format

import (
	"github.com/AdamBeresnev/tourney/internal/bracket"
	"github.com/AdamBeresnev/tourney/views"
)

// RoundRobin schedules everyone against everyone with the circle method. The seating
// is fixed at start and kept in the tournament meta so later rounds can be derived
// from it after a restart.
type RoundRobin struct{}

// Seat holder that turns a pairing into a bye.
const emptySeat = ""

func (RoundRobin) Mode() bracket.Mode {
	return bracket.RoundRobin
}

func (RoundRobin) StartTournament(t *bracket.Tournament, env Env) error {
	ids := activeIDs(t)
	if len(ids) < 2 {
		return &bracket.NotEnoughParticipantsError{Have: len(ids), Need: 2}
	}

	seating := pairingOrder(t, ids, env)
	if len(seating)%2 == 1 {
		seating = append(seating, emptySeat)
	}
	t.Meta.Seating = seating

	changePhase(t, bracket.PhaseRoundRobin, env)
	t.CurrentRound = 1
	pairRoundRobin(t, env)
	startRound(t, env)
	return nil
}

func (RoundRobin) CheckRoundCompletion(t *bracket.Tournament, env Env) (bool, error) {
	if t.Complete() || !t.RoundComplete() {
		return false, nil
	}

	ApplyTiebreakers(t)
	if t.CurrentRound >= TotalRoundRobinRounds(len(t.Meta.Seating)) {
		active := t.ActiveParticipants()
		bracket.Rank(active)
		winner := ""
		if len(active) > 0 {
			winner = active[0].UserID
		}
		finish(t, winner, env)
		return true, nil
	}

	t.AdvanceRound()
	pairRoundRobin(t, env)
	startRound(t, env)
	return true, nil
}

func (RoundRobin) Visualize(t *bracket.Tournament) views.BracketView {
	return views.WithStandings(views.PrepareBracketData(t), t)
}

// TotalRoundRobinRounds is n-1 for a padded seating of n.
func TotalRoundRobinRounds(seats int) int {
	if seats < 2 {
		return 0
	}
	return seats - 1
}

// RotateSeating returns the seating for a round. The first seat stays put and the
// others move one place per round.
func RotateSeating(seating []string, round int) []string {
	n := len(seating)
	if n < 2 {
		return append([]string(nil), seating...)
	}
	rest := seating[1:]
	shift := (round - 1) % len(rest)

	out := make([]string, 0, n)
	out = append(out, seating[0])
	for i := range rest {
		out = append(out, rest[(i-shift+len(rest))%len(rest)])
	}
	return out
}

// pairRoundRobin pairs opposite ends of the rotated seating inward. A disqualified
// player's seat is treated like the empty seat.
func pairRoundRobin(t *bracket.Tournament, env Env) {
	seats := RotateSeating(t.Meta.Seating, t.CurrentRound)
	now := env.now()
	n := len(seats)
	for i := 0; i < n/2; i++ {
		a, b := seats[i], seats[n-1-i]
		aIn := a != emptySeat && t.IsActive(a)
		bIn := b != emptySeat && t.IsActive(b)
		switch {
		case aIn && bIn:
			t.AddMatch(a, b, t.CurrentRound, bracket.RoundRobinBracket, i+1, now)
		case aIn:
			grantBye(t, a, t.CurrentRound, bracket.RoundRobinBracket, i+1, env)
		case bIn:
			grantBye(t, b, t.CurrentRound, bracket.RoundRobinBracket, i+1, env)
		}
	}
}
