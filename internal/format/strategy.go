package format

import (
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/AdamBeresnev/tourney/internal/bracket"
	"github.com/AdamBeresnev/tourney/internal/eventlog"
	"github.com/AdamBeresnev/tourney/views"
)

// Strategy generates pairings for one tournament mode and decides when a round
// advances or the tournament ends. Strategies mutate the tournament they are given
// and hold no state of their own.
type Strategy interface {
	Mode() bracket.Mode
	// StartTournament pairs the first round and moves the tournament into its play phase.
	StartTournament(t *bracket.Tournament, env Env) error
	// CheckRoundCompletion is a no-op until the current round is resolved, then either
	// pairs the next round or finishes the tournament. It reports whether anything changed.
	CheckRoundCompletion(t *bracket.Tournament, env Env) (bool, error)
	Visualize(t *bracket.Tournament) views.BracketView
}

// Env carries what a strategy needs from its caller.
type Env struct {
	Now    func() time.Time
	Rand   *rand.Rand
	Events eventlog.Recorder
}

func (e Env) now() time.Time {
	if e.Now == nil {
		return time.Now().UTC()
	}
	return e.Now()
}

func (e Env) record(eventType string, payload eventlog.Payload) {
	if e.Events != nil {
		e.Events.Record(eventType, payload)
	}
}

func (e Env) shuffle(ids []string) {
	if e.Rand == nil {
		rand.Shuffle(len(ids), func(i, j int) { ids[i], ids[j] = ids[j], ids[i] })
		return
	}
	e.Rand.Shuffle(len(ids), func(i, j int) { ids[i], ids[j] = ids[j], ids[i] })
}

var registry = map[bracket.Mode]Strategy{
	bracket.SingleElimination: SingleElimination{},
	bracket.DoubleElimination: DoubleElimination{},
	bracket.Swiss:             Swiss{},
	bracket.RoundRobin:        RoundRobin{},
}

// For returns the strategy registered for the mode.
func For(mode bracket.Mode) (Strategy, error) {
	s, ok := registry[mode]
	if !ok {
		return nil, fmt.Errorf("%w: no strategy for mode %q", bracket.ErrInvalidConfig, mode)
	}
	return s, nil
}
