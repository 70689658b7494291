package format

import (
	"math"
	"sort"

	"github.com/AdamBeresnev/tourney/internal/bracket"
	"github.com/AdamBeresnev/tourney/internal/eventlog"
)

// Gets the nearest power of 2 while rounding up, so with input 5 it returns 8 and so on
func calcBracketSize(count int) int {
	if count <= 0 {
		return 0
	}

	// Log2 -> Ceil -> 2^^log2 to round up
	log2 := math.Ceil(math.Log2(float64(count)))
	return int(math.Pow(2, log2))
}

// generateRound1Pairs returns seed index pairs in bracket order: 1v8, 4v5, 2v7, 3v6 for 8.
func generateRound1Pairs(bracketSize int) [][2]int {
	if bracketSize == 0 {
		return [][2]int{}
	}

	rounds := []int{0}
	for len(rounds) < bracketSize {
		var nextRound []int
		currentCount := len(rounds) * 2

		for _, seed := range rounds {
			nextRound = append(nextRound, seed)
			nextRound = append(nextRound, (currentCount-1)-seed)
		}
		rounds = nextRound
	}

	pairs := make([][2]int, 0, bracketSize/2)
	for i := 0; i < len(rounds); i += 2 {
		matchup := [2]int{rounds[i], rounds[i+1]}
		pairs = append(pairs, matchup)
	}

	return pairs
}

// activeIDs lists active players by seed.
func activeIDs(t *bracket.Tournament) []string {
	active := t.ActiveParticipants()
	ids := make([]string, 0, len(active))
	for _, p := range active {
		ids = append(ids, p.UserID)
	}
	return ids
}

// pairingOrder orders players by seed when seeding is on and shuffles them otherwise.
func pairingOrder(t *bracket.Tournament, ids []string, env Env) []string {
	out := append([]string(nil), ids...)
	if t.Config.Seeding {
		sort.SliceStable(out, func(i, j int) bool {
			return seedOf(t, out[i]) < seedOf(t, out[j])
		})
		return out
	}
	env.shuffle(out)
	return out
}

func seedOf(t *bracket.Tournament, id string) int {
	if p, ok := t.Participants[id]; ok {
		return p.Seed
	}
	return math.MaxInt
}

// pairSequential pairs ids in twos. An odd player out gets a bye.
func pairSequential(t *bracket.Tournament, ids []string, round int, label bracket.BracketLabel, env Env) {
	now := env.now()
	order := 1
	for i := 0; i+1 < len(ids); i += 2 {
		t.AddMatch(ids[i], ids[i+1], round, label, order, now)
		order++
	}
	if len(ids)%2 == 1 {
		grantBye(t, ids[len(ids)-1], round, label, order, env)
	}
}

// pairSeeded places seed-ordered ids into a power of two bracket. Empty slots
// become byes for the top seeds.
func pairSeeded(t *bracket.Tournament, ids []string, round int, label bracket.BracketLabel, env Env) {
	now := env.now()
	for i, pair := range generateRound1Pairs(calcBracketSize(len(ids))) {
		order := i + 1
		switch {
		case pair[0] < len(ids) && pair[1] < len(ids):
			t.AddMatch(ids[pair[0]], ids[pair[1]], round, label, order, now)
		case pair[0] < len(ids):
			grantBye(t, ids[pair[0]], round, label, order, env)
		case pair[1] < len(ids):
			grantBye(t, ids[pair[1]], round, label, order, env)
		}
	}
}

func grantBye(t *bracket.Tournament, playerID string, round int, label bracket.BracketLabel, order int, env Env) {
	t.AddBye(playerID, round, label, order, env.now())
	env.record(eventlog.ByeGranted, eventlog.Payload{
		"player_id": playerID,
		"round":     round,
		"bracket":   string(label),
	})
}

// advancers returns the active winners and bye recipients of a round, in bracket order.
func advancers(t *bracket.Tournament, round int, label bracket.BracketLabel) []string {
	type slot struct {
		order int
		id    string
	}
	var slots []slot
	for _, m := range t.RoundMatches(round, label) {
		if m.WinnerID != nil && t.IsActive(*m.WinnerID) {
			slots = append(slots, slot{m.Order, *m.WinnerID})
		}
	}
	for _, b := range t.RoundByes(round, label) {
		if t.IsActive(b.PlayerID) {
			slots = append(slots, slot{b.Order, b.PlayerID})
		}
	}
	sort.SliceStable(slots, func(i, j int) bool {
		return slots[i].order < slots[j].order
	})

	ids := make([]string, 0, len(slots))
	for _, s := range slots {
		ids = append(ids, s.id)
	}
	return ids
}

// roundLosers returns the active losers of a round's decided matches, in bracket order.
func roundLosers(t *bracket.Tournament, round int, label bracket.BracketLabel) []string {
	var ids []string
	for _, m := range t.RoundMatches(round, label) {
		if m.LoserID != nil && t.IsActive(*m.LoserID) {
			ids = append(ids, *m.LoserID)
		}
	}
	return ids
}

func startRound(t *bracket.Tournament, env Env) {
	env.record(eventlog.RoundStarted, eventlog.Payload{
		"round":   t.CurrentRound,
		"phase":   string(t.Meta.Phase),
		"matches": len(t.CurrentRoundMatches()),
	})
}

func changePhase(t *bracket.Tournament, phase bracket.Phase, env Env) {
	from := t.Meta.Phase
	t.Meta.Phase = phase
	env.record(eventlog.PhaseChanged, eventlog.Payload{
		"from": string(from),
		"to":   string(phase),
	})
}

// finish ends the tournament. An empty winner means nobody was left standing.
func finish(t *bracket.Tournament, winnerID string, env Env) {
	t.Finish(winnerID, env.now())
	env.record(eventlog.TournamentCompleted, eventlog.Payload{
		"winner_id": winnerID,
		"rounds":    t.CurrentRound,
	})
}
