package format

import (
	"fmt"
	"math/rand/v2"
	"testing"
	"time"

	"github.com/AdamBeresnev/tourney/internal/bracket"
	"github.com/AdamBeresnev/tourney/internal/eventlog"
	"github.com/AdamBeresnev/tourney/internal/utils"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2025, 3, 14, 18, 0, 0, 0, time.UTC)

func playerID(seed int) string {
	return fmt.Sprintf("p%d", seed)
}

func newTournament(mode bracket.Mode, players int, mutate func(c *bracket.Config)) *bracket.Tournament {
	cfg := bracket.Config{
		Mode:            mode,
		BestOf:          3,
		SwissRounds:     3,
		TopCut:          0,
		MinParticipants: 2,
	}
	if mutate != nil {
		mutate(&cfg)
	}
	tour := bracket.NewTournament("t1", "guild", "Test", "", cfg, testNow)
	for i := 1; i <= players; i++ {
		id := playerID(i)
		tour.Participants[id] = &bracket.Participant{UserID: id, Seed: i, Active: true, RegisteredAt: testNow}
	}
	tour.RegistrationOpen = false
	tour.Started = true
	return tour
}

func testEnv(seed uint64) (Env, *eventlog.Batch) {
	batch := eventlog.NewBatch(clockwork.NewFakeClockAt(testNow))
	return Env{
		Now:    func() time.Time { return testNow },
		Rand:   rand.New(rand.NewPCG(seed, seed+1)),
		Events: batch,
	}, batch
}

func decide(tour *bracket.Tournament, m *bracket.Match, winnerID string) {
	loserID := m.Opponent(winnerID)
	m.SetGames(winnerID, 2, 0, 0)
	m.Status = bracket.MatchCompleted
	m.WinnerID = utils.Ptr(winnerID)
	m.LoserID = utils.Ptr(loserID)
	m.CompletedAt = utils.TimePtr(testNow)
	tour.Participants[winnerID].ApplyWin()
	tour.Participants[loserID].ApplyLoss()
}

func drawMatch(tour *bracket.Tournament, m *bracket.Match) {
	m.SetGames(m.Player1ID, 1, 1, 1)
	m.Status = bracket.MatchDraw
	m.CompletedAt = utils.TimePtr(testNow)
	tour.Participants[m.Player1ID].ApplyDraw()
	tour.Participants[m.Player2ID].ApplyDraw()
}

// lowerSeedWins is the chalk result for every match.
func lowerSeedWins(tour *bracket.Tournament, m *bracket.Match) string {
	if tour.Participants[m.Player1ID].Seed < tour.Participants[m.Player2ID].Seed {
		return m.Player1ID
	}
	return m.Player2ID
}

// playOut decides every open match of each round with pick until the tournament ends.
func playOut(t *testing.T, tour *bracket.Tournament, s Strategy, env Env, pick func(*bracket.Tournament, *bracket.Match) string) {
	t.Helper()
	for i := 0; i < 100 && !tour.Complete(); i++ {
		for _, m := range tour.CurrentRoundMatches() {
			if m.Open() {
				decide(tour, m, pick(tour, m))
			}
		}
		_, err := s.CheckRoundCompletion(tour, env)
		require.NoError(t, err)
	}
	require.True(t, tour.Complete(), "tournament did not finish")
}

func sumWinsLosses(tour *bracket.Tournament) (wins, losses int) {
	for _, p := range tour.Participants {
		wins += p.Wins
		losses += p.Losses
	}
	return wins, losses
}

func pairKey(a, b string) string {
	if a > b {
		a, b = b, a
	}
	return a + "|" + b
}
