package format

import (
	"github.com/AdamBeresnev/tourney/internal/bracket"
	"github.com/AdamBeresnev/tourney/internal/utils"
	"github.com/AdamBeresnev/tourney/views"
)

// DoubleElimination runs a winners and a losers bracket side by side. A player is
// out after two knockout losses. The two survivors meet once in the finals; there
// is no bracket reset.
type DoubleElimination struct{}

func (DoubleElimination) Mode() bracket.Mode {
	return bracket.DoubleElimination
}

func (DoubleElimination) StartTournament(t *bracket.Tournament, env Env) error {
	ids := activeIDs(t)
	if len(ids) < 2 {
		return &bracket.NotEnoughParticipantsError{Have: len(ids), Need: 2}
	}

	changePhase(t, bracket.PhaseDoubleElimination, env)
	t.CurrentRound = 1
	ordered := pairingOrder(t, ids, env)
	if t.Config.Seeding {
		pairSeeded(t, ordered, 1, bracket.WinnersBracket, env)
	} else {
		pairSequential(t, ordered, 1, bracket.WinnersBracket, env)
	}
	startRound(t, env)
	return nil
}

func (DoubleElimination) CheckRoundCompletion(t *bracket.Tournament, env Env) (bool, error) {
	if t.Complete() || !t.RoundComplete() {
		return false, nil
	}
	round := t.CurrentRound

	if finals := t.RoundMatches(round, bracket.FinalsBracket); len(finals) > 0 {
		winner := utils.OrZero(finals[0].WinnerID)
		if !t.IsActive(winner) {
			winner = ""
		}
		finish(t, winner, env)
		return true, nil
	}

	winners, losers := doubleElimSurvivors(t, round)
	switch {
	case len(winners)+len(losers) == 0:
		finish(t, "", env)
	case len(winners)+len(losers) == 1:
		finish(t, append(winners, losers...)[0], env)
	case len(winners) == 1 && len(losers) == 1:
		t.AdvanceRound()
		t.AddMatch(winners[0], losers[0], t.CurrentRound, bracket.FinalsBracket, 1, env.now())
		startRound(t, env)
	default:
		// A bracket down to one player waits for the other to catch up
		t.AdvanceRound()
		if len(winners) >= 2 {
			pairSequential(t, winners, t.CurrentRound, bracket.WinnersBracket, env)
		}
		if len(losers) >= 2 {
			pairSequential(t, losers, t.CurrentRound, bracket.LosersBracket, env)
		}
		startRound(t, env)
	}
	return true, nil
}

func (DoubleElimination) Visualize(t *bracket.Tournament) views.BracketView {
	return views.PrepareBracketData(t)
}

// doubleElimSurvivors splits the active players still in contention by bracket.
// Players coming out of the given round lead in bracket order; the losers pool
// interleaves losers bracket winners with players dropping from the winners
// bracket so that the two groups meet. Anyone left waiting from earlier rounds
// follows by seed.
func doubleElimSurvivors(t *bracket.Tournament, round int) (winners, losers []string) {
	seen := make(map[string]bool)
	take := func(dst []string, ids ...string) []string {
		for _, id := range ids {
			if !seen[id] {
				seen[id] = true
				dst = append(dst, id)
			}
		}
		return dst
	}

	winners = take(winners, advancers(t, round, bracket.WinnersBracket)...)

	lbWinners := advancers(t, round, bracket.LosersBracket)
	dropped := roundLosers(t, round, bracket.WinnersBracket)
	for i := 0; i < len(lbWinners) || i < len(dropped); i++ {
		if i < len(lbWinners) {
			losers = take(losers, lbWinners[i])
		}
		if i < len(dropped) {
			losers = take(losers, dropped[i])
		}
	}

	for _, p := range t.ActiveParticipants() {
		switch knockoutLosses(t, p.UserID) {
		case 0:
			winners = take(winners, p.UserID)
		case 1:
			losers = take(losers, p.UserID)
		}
	}
	return winners, losers
}

func knockoutLosses(t *bracket.Tournament, playerID string) int {
	n := 0
	for _, m := range t.Matches {
		if m.Bracket.Knockout() && m.IsLoser(playerID) {
			n++
		}
	}
	return n
}
