package format

import (
	"sort"

	"github.com/AdamBeresnev/tourney/internal/bracket"
	"github.com/AdamBeresnev/tourney/views"
)

// Swiss plays a fixed number of point-paired rounds, then sends the top of the
// standings into a single elimination cut.
type Swiss struct{}

// Upper bound on pairing attempts before falling back to allowing rematches.
const swissSearchBudget = 20000

func (Swiss) Mode() bracket.Mode {
	return bracket.Swiss
}

func (Swiss) StartTournament(t *bracket.Tournament, env Env) error {
	ids := activeIDs(t)
	if len(ids) < 2 {
		return &bracket.NotEnoughParticipantsError{Have: len(ids), Need: 2}
	}

	changePhase(t, bracket.PhaseSwiss, env)
	t.CurrentRound = 1
	pairSequential(t, pairingOrder(t, ids, env), 1, bracket.SwissBracket, env)
	startRound(t, env)
	return nil
}

func (Swiss) CheckRoundCompletion(t *bracket.Tournament, env Env) (bool, error) {
	if t.Complete() || !t.RoundComplete() {
		return false, nil
	}

	if t.Meta.Phase == bracket.PhaseTopCut {
		advanceElimination(t, env)
		return true, nil
	}

	ApplyTiebreakers(t)
	if t.CurrentRound >= t.Config.SwissRounds {
		startTopCut(t, env)
		return true, nil
	}

	players := swissStandings(t, env)
	if len(players) < 2 {
		finish(t, firstOrEmpty(players), env)
		return true, nil
	}
	t.AdvanceRound()
	pairSwissRound(t, players, env)
	startRound(t, env)
	return true, nil
}

func (Swiss) Visualize(t *bracket.Tournament) views.BracketView {
	return views.WithStandings(views.PrepareBracketData(t), t)
}

// swissStandings orders active players by match points, highest first. Players on
// equal points are shuffled so repeated pairings within a bucket are not fixed.
func swissStandings(t *bracket.Tournament, env Env) []string {
	ids := activeIDs(t)
	env.shuffle(ids)
	sort.SliceStable(ids, func(i, j int) bool {
		return t.Participants[ids[i]].MatchPoints > t.Participants[ids[j]].MatchPoints
	})
	return ids
}

// pairSwissRound pairs a ranked list. With an odd count the lowest ranked player
// without a previous bye sits out first. The rest are paired top down, each player
// taking the nearest opponent they have not met. When no rematch-free pairing
// exists the round falls back to nearest-available pairing.
func pairSwissRound(t *bracket.Tournament, ranked []string, env Env) {
	players := append([]string(nil), ranked...)
	byeOrder := 0
	var byePlayer string
	if len(players)%2 == 1 {
		idx := len(players) - 1
		for i := len(players) - 1; i >= 0; i-- {
			if !t.HadBye(players[i], bracket.SwissBracket) {
				idx = i
				break
			}
		}
		byePlayer = players[idx]
		players = append(players[:idx], players[idx+1:]...)
	}

	pairs, ok := pairWithoutRematch(t, players)
	if !ok {
		pairs = pairNearest(t, players)
	}

	now := env.now()
	for i, p := range pairs {
		t.AddMatch(p[0], p[1], t.CurrentRound, bracket.SwissBracket, i+1, now)
		byeOrder = i + 2
	}
	if byePlayer != "" {
		if byeOrder == 0 {
			byeOrder = 1
		}
		grantBye(t, byePlayer, t.CurrentRound, bracket.SwissBracket, byeOrder, env)
	}
}

// pairWithoutRematch runs a bounded depth first search for a full pairing in which
// nobody meets a previous Swiss opponent.
func pairWithoutRematch(t *bracket.Tournament, players []string) ([][2]string, bool) {
	used := make([]bool, len(players))
	pairs := make([][2]string, 0, len(players)/2)
	budget := swissSearchBudget

	var search func() bool
	search = func() bool {
		first := -1
		for i := range players {
			if !used[i] {
				first = i
				break
			}
		}
		if first == -1 {
			return true
		}
		used[first] = true
		for j := first + 1; j < len(players); j++ {
			if used[j] || t.HasFaced(players[first], players[j], bracket.SwissBracket) {
				continue
			}
			budget--
			if budget < 0 {
				break
			}
			used[j] = true
			pairs = append(pairs, [2]string{players[first], players[j]})
			if search() {
				return true
			}
			pairs = pairs[:len(pairs)-1]
			used[j] = false
		}
		used[first] = false
		return false
	}

	if !search() {
		return nil, false
	}
	return pairs, true
}

// pairNearest pairs top down, preferring a new opponent but accepting a rematch.
func pairNearest(t *bracket.Tournament, players []string) [][2]string {
	used := make([]bool, len(players))
	var pairs [][2]string
	for i := range players {
		if used[i] {
			continue
		}
		used[i] = true
		pick := -1
		for j := i + 1; j < len(players); j++ {
			if used[j] {
				continue
			}
			if pick == -1 {
				pick = j
			}
			if !t.HasFaced(players[i], players[j], bracket.SwissBracket) {
				pick = j
				break
			}
		}
		if pick == -1 {
			break
		}
		used[pick] = true
		pairs = append(pairs, [2]string{players[i], players[pick]})
	}
	return pairs
}

// startTopCut ends the Swiss rounds and seeds the best players into a knockout bracket.
// The round counter starts again at 1 for the cut.
func startTopCut(t *bracket.Tournament, env Env) {
	active := t.ActiveParticipants()
	bracket.Rank(active)

	cut := t.Config.TopCut
	if cut > len(active) {
		cut = len(active)
	}
	if cut <= 1 {
		winner := ""
		if len(active) > 0 {
			winner = active[0].UserID
		}
		finish(t, winner, env)
		return
	}

	ids := make([]string, 0, cut)
	for _, p := range active[:cut] {
		ids = append(ids, p.UserID)
	}

	changePhase(t, bracket.PhaseTopCut, env)
	t.CurrentRound = 1
	pairSeeded(t, ids, 1, bracket.EliminationBracket, env)
	startRound(t, env)
}

func firstOrEmpty(ids []string) string {
	if len(ids) == 0 {
		return ""
	}
	return ids[0]
}
