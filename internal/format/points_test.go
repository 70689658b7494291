package format

import (
	"testing"

	"github.com/AdamBeresnev/tourney/internal/bracket"
	"github.com/AdamBeresnev/tourney/internal/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func swissPairCounts(tour *bracket.Tournament) map[string]int {
	counts := make(map[string]int)
	for _, m := range tour.Matches {
		if m.Bracket == bracket.SwissBracket {
			counts[pairKey(m.Player1ID, m.Player2ID)]++
		}
	}
	return counts
}

func playRound(t *testing.T, tour *bracket.Tournament, s Strategy, env Env) bool {
	t.Helper()
	for _, m := range tour.CurrentRoundMatches() {
		if m.Open() {
			decide(tour, m, lowerSeedWins(tour, m))
		}
	}
	advanced, err := s.CheckRoundCompletion(tour, env)
	require.NoError(t, err)
	return advanced
}

func TestSwissFourPlayersThreeRoundsNoRematch(t *testing.T) {
	for seed := uint64(0); seed < 20; seed++ {
		tour := newTournament(bracket.Swiss, 4, nil)
		env, _ := testEnv(seed)
		s := Swiss{}
		require.NoError(t, s.StartTournament(tour, env))

		for round := 1; round <= 3; round++ {
			require.Equal(t, round, tour.CurrentRound)
			require.Len(t, tour.CurrentRoundMatches(), 2)
			playRound(t, tour, s, env)
		}

		for pair, n := range swissPairCounts(tour) {
			assert.Equal(t, 1, n, "seed %d paired %s twice", seed, pair)
		}
		assert.Len(t, swissPairCounts(tour), 6)
		require.True(t, tour.Complete(), "no top cut ends after the last swiss round")
		assert.Equal(t, "p1", *tour.Meta.WinnerID)
	}
}

func TestSwissFourthRoundForcesRematch(t *testing.T) {
	tour := newTournament(bracket.Swiss, 4, func(c *bracket.Config) { c.SwissRounds = 4 })
	env, _ := testEnv(11)
	s := Swiss{}
	require.NoError(t, s.StartTournament(tour, env))

	for round := 1; round <= 3; round++ {
		playRound(t, tour, s, env)
	}
	require.Equal(t, 4, tour.CurrentRound)
	require.Len(t, tour.CurrentRoundMatches(), 2)

	repeats := 0
	for _, n := range swissPairCounts(tour) {
		if n > 1 {
			repeats++
		}
	}
	assert.Equal(t, 2, repeats)
}

func TestSwissByeGoesToDifferentPlayers(t *testing.T) {
	tour := newTournament(bracket.Swiss, 5, func(c *bracket.Config) { c.SwissRounds = 3; c.Seeding = true })
	env, _ := testEnv(5)
	s := Swiss{}
	require.NoError(t, s.StartTournament(tour, env))

	for round := 1; round <= 3; round++ {
		require.Len(t, tour.RoundByes(round, bracket.SwissBracket), 1)
		playRound(t, tour, s, env)
	}

	seen := make(map[string]bool)
	for _, b := range tour.Byes {
		assert.False(t, seen[b.PlayerID], "%s got a second bye", b.PlayerID)
		seen[b.PlayerID] = true
	}
	assert.Len(t, seen, 3)
}

func TestSwissTopCut(t *testing.T) {
	tour := newTournament(bracket.Swiss, 8, func(c *bracket.Config) { c.TopCut = 4; c.Seeding = true })
	env, _ := testEnv(9)
	s := Swiss{}
	require.NoError(t, s.StartTournament(tour, env))

	for round := 1; round <= 3; round++ {
		playRound(t, tour, s, env)
	}

	require.Equal(t, bracket.PhaseTopCut, tour.Meta.Phase)
	assert.Equal(t, 1, tour.CurrentRound)
	cut := tour.CurrentRoundMatches()
	require.Len(t, cut, 2)

	ranked := tour.ActiveParticipants()
	bracket.Rank(ranked)
	assert.True(t, cut[0].Between(ranked[0].UserID, ranked[3].UserID))
	assert.True(t, cut[1].Between(ranked[1].UserID, ranked[2].UserID))

	playOut(t, tour, s, env, lowerSeedWins)
	assert.Equal(t, "p1", *tour.Meta.WinnerID)
	assert.Equal(t, 2, tour.CurrentRound)
}

func TestSwissTopCutLargerThanField(t *testing.T) {
	tour := newTournament(bracket.Swiss, 4, func(c *bracket.Config) { c.TopCut = 8; c.SwissRounds = 1 })
	env, _ := testEnv(2)
	s := Swiss{}
	require.NoError(t, s.StartTournament(tour, env))
	playRound(t, tour, s, env)

	require.Equal(t, bracket.PhaseTopCut, tour.Meta.Phase)
	assert.Len(t, tour.CurrentRoundMatches(), 2)
}

func TestRoundRobinFourPlayers(t *testing.T) {
	tour := newTournament(bracket.RoundRobin, 4, nil)
	env, _ := testEnv(4)
	s := RoundRobin{}
	require.NoError(t, s.StartTournament(tour, env))

	playOut(t, tour, s, env, lowerSeedWins)

	assert.Equal(t, 3, tour.CurrentRound)
	assert.Zero(t, tour.ByeCount())
	assert.Len(t, tour.Matches, 6)

	pairs := make(map[string]int)
	for _, m := range tour.Matches {
		pairs[pairKey(m.Player1ID, m.Player2ID)]++
	}
	assert.Len(t, pairs, 6)
	for _, p := range tour.Participants {
		assert.Equal(t, 3, p.Played())
	}
	assert.Equal(t, "p1", *tour.Meta.WinnerID)
}

func TestRoundRobinOddFieldGivesEachPlayerOneBye(t *testing.T) {
	tour := newTournament(bracket.RoundRobin, 5, nil)
	env, _ := testEnv(8)
	s := RoundRobin{}
	require.NoError(t, s.StartTournament(tour, env))
	require.Len(t, tour.Meta.Seating, 6)

	playOut(t, tour, s, env, lowerSeedWins)

	assert.Equal(t, 5, tour.CurrentRound)
	assert.Len(t, tour.Matches, 10)
	byes := make(map[string]int)
	for _, b := range tour.Byes {
		byes[b.PlayerID]++
	}
	assert.Len(t, byes, 5)
	for id, n := range byes {
		assert.Equal(t, 1, n, id)
	}
}

func TestRoundRobinDisqualifiedSeatBecomesBye(t *testing.T) {
	tour := newTournament(bracket.RoundRobin, 4, func(c *bracket.Config) { c.Seeding = true })
	env, _ := testEnv(4)
	s := RoundRobin{}
	require.NoError(t, s.StartTournament(tour, env))

	playRound(t, tour, s, env)
	tour.Participants["p4"].Active = false
	for _, m := range tour.CurrentRoundMatches() {
		if m.Involves("p4") {
			m.Status = bracket.MatchDQ
			winner := m.Opponent("p4")
			m.WinnerID = utils.Ptr(winner)
			m.LoserID = utils.Ptr("p4")
			tour.Participants[winner].ApplyWin()
		}
	}
	playRound(t, tour, s, env)

	assert.Equal(t, 3, tour.CurrentRound)
	assert.Len(t, tour.CurrentRoundMatches(), 1)
	assert.Len(t, tour.RoundByes(3, bracket.RoundRobinBracket), 1)
}

func TestRotateSeating(t *testing.T) {
	seating := []string{"a", "b", "c", "d"}
	assert.Equal(t, []string{"a", "b", "c", "d"}, RotateSeating(seating, 1))
	assert.Equal(t, []string{"a", "d", "b", "c"}, RotateSeating(seating, 2))
	assert.Equal(t, []string{"a", "c", "d", "b"}, RotateSeating(seating, 3))
	assert.Equal(t, 3, TotalRoundRobinRounds(4))
}

func TestOpponentWinRate(t *testing.T) {
	tour := newTournament(bracket.Swiss, 3, nil)
	m1 := tour.AddMatch("p1", "p2", 1, bracket.SwissBracket, 1, testNow)
	decide(tour, m1, "p1")
	m2 := tour.AddMatch("p1", "p3", 2, bracket.SwissBracket, 1, testNow)
	drawMatch(tour, m2)
	tour.AddBye("p3", 1, bracket.SwissBracket, 2, testNow)

	// p2 is 0-1, p3 is 1 win and 1 draw
	assert.InDelta(t, (0.0+0.75)/2, OpponentWinRate(tour, "p1"), 1e-9)
	assert.InDelta(t, 0.75, OpponentWinRate(tour, "p2"), 1e-9)
}

func TestRoundRobinTiebreakerUsesHeadToHead(t *testing.T) {
	tour := newTournament(bracket.RoundRobin, 3, nil)
	m1 := tour.AddMatch("p1", "p2", 1, bracket.RoundRobinBracket, 1, testNow)
	decide(tour, m1, "p2")
	m2 := tour.AddMatch("p1", "p3", 2, bracket.RoundRobinBracket, 1, testNow)
	decide(tour, m2, "p1")
	m3 := tour.AddMatch("p2", "p3", 3, bracket.RoundRobinBracket, 1, testNow)
	decide(tour, m3, "p3")

	ApplyTiebreakers(tour)

	// Everyone is 1-1; each beat one rival 2-0 and lost one 0-2
	for _, id := range []string{"p1", "p2", "p3"} {
		assert.InDelta(t, 0.5+gameWinWeight*0.5, tour.Participants[id].TiebreakerPoints, 1e-9, id)
	}

	tour.Participants["p3"].MatchPoints = 0
	assert.InDelta(t, 0.0, HeadToHead(tour, "p1"), 1e-9)
	assert.InDelta(t, 1.0, HeadToHead(tour, "p2"), 1e-9)
}

func TestEliminationModesKeepZeroTiebreakers(t *testing.T) {
	tour := newTournament(bracket.SingleElimination, 2, nil)
	tour.Participants["p1"].TiebreakerPoints = 4
	ApplyTiebreakers(tour)
	assert.Zero(t, tour.Participants["p1"].TiebreakerPoints)
}
