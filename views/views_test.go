package views

import (
	"testing"
	"time"

	"github.com/AdamBeresnev/tourney/internal/bracket"
	"github.com/AdamBeresnev/tourney/internal/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2025, 3, 14, 18, 0, 0, 0, time.UTC)

func testTournament() *bracket.Tournament {
	cfg := bracket.Config{Mode: bracket.DoubleElimination, BestOf: 3, MinParticipants: 2}
	t := bracket.NewTournament("t1", "guild-1", "Locals", "", cfg, testNow)
	for i, id := range []string{"a", "b", "c", "d", "e"} {
		t.Participants[id] = &bracket.Participant{UserID: id, Seed: i + 1, Active: true}
	}
	t.Started = true
	t.Meta.Phase = bracket.PhaseDoubleElimination
	return t
}

func TestPrepareBracketDataGroupsSectionsAndRounds(t *testing.T) {
	tour := testTournament()
	tour.CurrentRound = 2
	finals := tour.AddMatch("a", "c", 3, bracket.FinalsBracket, 1, testNow)
	r2 := tour.AddMatch("a", "b", 2, bracket.WinnersBracket, 1, testNow)
	r1 := tour.AddMatch("b", "d", 1, bracket.WinnersBracket, 2, testNow)
	r1.Status = bracket.MatchCompleted
	r1.WinnerID = utils.Ptr("b")
	r1.Score = "2-1-0"
	lb := tour.AddMatch("d", "c", 2, bracket.LosersBracket, 1, testNow)
	tour.AddBye("a", 1, bracket.WinnersBracket, 1, testNow)
	tour.AddBye("e", 1, bracket.WinnersBracket, 3, testNow)

	view := PrepareBracketData(tour)

	assert.Equal(t, bracket.DoubleElimination, view.Mode)
	assert.Equal(t, bracket.PhaseDoubleElimination, view.Phase)
	assert.Equal(t, 2, view.CurrentRound)
	require.Len(t, view.Sections, 3)
	assert.Equal(t, bracket.WinnersBracket, view.Sections[0].Bracket)
	assert.Equal(t, bracket.LosersBracket, view.Sections[1].Bracket)
	assert.Equal(t, bracket.FinalsBracket, view.Sections[2].Bracket)

	winners := view.Sections[0].Rounds
	require.Len(t, winners, 2)
	assert.Equal(t, 1, winners[0].Number)
	assert.Equal(t, []string{"a", "e"}, winners[0].Byes)
	require.Len(t, winners[0].Matches, 1)
	assert.Equal(t, r1.ID, winners[0].Matches[0].ID)
	assert.Equal(t, "2-1-0", winners[0].Matches[0].Score)
	assert.Equal(t, "b", *winners[0].Matches[0].WinnerID)
	assert.Equal(t, 2, winners[1].Number)
	assert.Equal(t, r2.ID, winners[1].Matches[0].ID)

	assert.Equal(t, lb.ID, view.Sections[1].Rounds[0].Matches[0].ID)
	assert.Equal(t, finals.ID, view.Sections[2].Rounds[0].Matches[0].ID)
	assert.Empty(t, view.Standings)
}

func TestPrepareBracketDataBeforeStart(t *testing.T) {
	tour := bracket.NewTournament("t1", "guild-1", "Locals", "", bracket.Config{Mode: bracket.Swiss}, testNow)

	view := PrepareBracketData(tour)

	assert.Empty(t, view.Sections)
	assert.Nil(t, view.WinnerID)
}

func TestStandingsRankActivePlayersFirst(t *testing.T) {
	tour := testTournament()
	tour.Participants["a"].MatchPoints = 3
	tour.Participants["b"].MatchPoints = 6
	tour.Participants["c"].MatchPoints = 3
	tour.Participants["c"].TiebreakerPoints = 0.5
	tour.Participants["d"].MatchPoints = 9
	tour.Participants["d"].Active = false

	standings := Standings(tour)

	ids := make([]string, 0, len(standings))
	for _, s := range standings {
		ids = append(ids, s.UserID)
	}
	assert.Equal(t, []string{"b", "c", "a", "e", "d"}, ids)
	for i, s := range standings {
		assert.Equal(t, i+1, s.Rank)
	}
	assert.False(t, standings[4].Active)
}

func TestPrepareStats(t *testing.T) {
	tour := testTournament()
	done := tour.AddMatch("a", "b", 1, bracket.WinnersBracket, 1, testNow)
	done.Status = bracket.MatchCompleted
	dq := tour.AddMatch("c", "d", 1, bracket.WinnersBracket, 2, testNow)
	dq.Status = bracket.MatchDQ
	tour.AddBye("e", 1, bracket.WinnersBracket, 3, testNow)
	tour.Participants["d"].Active = false
	tour.Participants["a"].Deck = &bracket.DeckInfo{Status: bracket.VerificationApproved}
	tour.Participants["b"].Deck = &bracket.DeckInfo{Status: bracket.VerificationPending}
	tour.Participants["c"].Deck = &bracket.DeckInfo{Status: bracket.VerificationPending}

	stats := PrepareStats(tour)

	assert.Equal(t, "Locals", stats.Summary.Name)
	assert.Equal(t, 5, stats.Summary.Participants)
	assert.Equal(t, 4, stats.Summary.ActiveParticipants)
	assert.Len(t, stats.Standings, 5)
	assert.Equal(t, 1, stats.MatchesByStatus[bracket.MatchCompleted])
	assert.Equal(t, 1, stats.MatchesByStatus[bracket.MatchDQ])
	assert.Equal(t, 1, stats.Byes)
	assert.Equal(t, []string{"d"}, stats.Disqualified)
	assert.Equal(t, 1, stats.DeckChecks[bracket.VerificationApproved])
	assert.Equal(t, 2, stats.DeckChecks[bracket.VerificationPending])
}
