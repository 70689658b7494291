package format

import (
	"github.com/AdamBeresnev/tourney/internal/bracket"
	"github.com/AdamBeresnev/tourney/views"
)

type SingleElimination struct{}

func (SingleElimination) Mode() bracket.Mode {
	return bracket.SingleElimination
}

func (SingleElimination) StartTournament(t *bracket.Tournament, env Env) error {
	ids := activeIDs(t)
	if len(ids) < 2 {
		return &bracket.NotEnoughParticipantsError{Have: len(ids), Need: 2}
	}

	changePhase(t, bracket.PhaseElimination, env)
	t.CurrentRound = 1
	seedElimination(t, pairingOrder(t, ids, env), env)
	startRound(t, env)
	return nil
}

func (SingleElimination) CheckRoundCompletion(t *bracket.Tournament, env Env) (bool, error) {
	if t.Complete() || !t.RoundComplete() {
		return false, nil
	}
	advanceElimination(t, env)
	return true, nil
}

func (SingleElimination) Visualize(t *bracket.Tournament) views.BracketView {
	return views.PrepareBracketData(t)
}

// seedElimination pairs the first knockout round. Seeded brackets use standard
// placement, otherwise players meet in the order given.
func seedElimination(t *bracket.Tournament, ids []string, env Env) {
	if t.Config.Seeding {
		pairSeeded(t, ids, t.CurrentRound, bracket.EliminationBracket, env)
		return
	}
	pairSequential(t, ids, t.CurrentRound, bracket.EliminationBracket, env)
}

// advanceElimination moves the knockout bracket on by one round. It serves both
// single elimination and the Swiss top cut.
func advanceElimination(t *bracket.Tournament, env Env) {
	next := advancers(t, t.CurrentRound, bracket.EliminationBracket)
	switch len(next) {
	case 0:
		finish(t, "", env)
	case 1:
		finish(t, next[0], env)
	default:
		t.AdvanceRound()
		pairSequential(t, next, t.CurrentRound, bracket.EliminationBracket, env)
		startRound(t, env)
	}
}
