package store

import (
	"fmt"
	"time"

	"github.com/AdamBeresnev/tourney/internal/bracket"
	"github.com/AdamBeresnev/tourney/internal/utils"
)

var fixtureTime = time.Date(2025, 3, 14, 18, 0, 0, 0, time.UTC)

// populatedTournament builds a mid-event tournament touching every field of the snapshot.
func populatedTournament(mode bracket.Mode) *bracket.Tournament {
	cfg := bracket.Config{
		Mode:                mode,
		BestOf:              3,
		DeckCheck:           true,
		Seeding:             true,
		AllowDraws:          mode == bracket.Swiss || mode == bracket.RoundRobin,
		RequireConfirmation: true,
		SwissRounds:         4,
		TopCut:              4,
		Reminders:           true,
		Announcements:       true,
		ReminderLeadMinutes: 15,
		MinParticipants:     4,
	}
	t := bracket.NewTournament("c0ffee", "guild-1", "Locals "+string(mode), "Friday night", cfg, fixtureTime)
	t.Started = true
	t.CurrentRound = 2
	t.Meta.StartedAt = utils.TimePtr(fixtureTime.Add(time.Hour))

	for i := 1; i <= 5; i++ {
		id := fmt.Sprintf("user-%d", i)
		t.Participants[id] = &bracket.Participant{
			UserID:           id,
			Seed:             i,
			RegisteredAt:     fixtureTime.Add(time.Duration(i) * time.Minute),
			Active:           true,
			TiebreakerPoints: 0.4166666666666667,
			Deck: &bracket.DeckInfo{
				Main:   bracket.DeckRef{URL: "https://cdn.example.com/" + id + "/main.png", Filename: "main.png", ContentType: "image/png"},
				Extra:  &bracket.DeckRef{URL: "https://cdn.example.com/" + id + "/extra.png"},
				Status: bracket.VerificationPending,
			},
		}
	}
	t.Participants["user-1"].Deck.Status = bracket.VerificationApproved
	t.Participants["user-1"].Deck.VerifiedBy = utils.Ptr("mod-1")
	t.Participants["user-1"].Deck.VerifiedAt = utils.TimePtr(fixtureTime.Add(30 * time.Minute))
	t.Participants["user-1"].Deck.Notes = "clean"
	t.Participants["user-5"].Active = false
	t.Participants["user-5"].Disqualification = &bracket.Disqualification{Reason: "no show", At: fixtureTime.Add(2 * time.Hour), ModeratorID: "mod-1"}

	label := labelFor(mode)
	done := t.AddMatch("user-1", "user-2", 1, label, 1, fixtureTime.Add(time.Hour))
	done.SetGames("user-1", 2, 1, 0)
	done.Status = bracket.MatchCompleted
	done.WinnerID = utils.Ptr("user-1")
	done.LoserID = utils.Ptr("user-2")
	done.ReportedBy = utils.Ptr("user-1")
	done.ConfirmedBy = utils.Ptr("user-2")
	done.CompletedAt = utils.TimePtr(fixtureTime.Add(90 * time.Minute))
	t.Participants["user-1"].ApplyWin()
	t.Participants["user-2"].ApplyLoss()

	dq := t.AddMatch("user-3", "user-5", 1, label, 2, fixtureTime.Add(time.Hour))
	dq.Status = bracket.MatchDQ
	dq.Score = "DQ"
	dq.WinnerID = utils.Ptr("user-3")
	dq.LoserID = utils.Ptr("user-5")
	t.AddBye("user-4", 1, label, 3, fixtureTime.Add(time.Hour))

	next := t.AddMatch("user-1", "user-3", 2, label, 1, fixtureTime.Add(2*time.Hour))
	next.ScheduledAt = utils.TimePtr(fixtureTime.Add(3 * time.Hour))
	next.Status = bracket.MatchAwaitingConfirmation
	next.ReportedBy = utils.Ptr("user-3")

	t.Meta.Phase = phaseFor(mode)
	if mode == bracket.RoundRobin {
		t.Meta.Seating = []string{"user-1", "user-2", "user-3", "user-4", "user-5", ""}
	}
	return t
}

func labelFor(mode bracket.Mode) bracket.BracketLabel {
	switch mode {
	case bracket.DoubleElimination:
		return bracket.WinnersBracket
	case bracket.Swiss:
		return bracket.SwissBracket
	case bracket.RoundRobin:
		return bracket.RoundRobinBracket
	}
	return bracket.EliminationBracket
}

func phaseFor(mode bracket.Mode) bracket.Phase {
	switch mode {
	case bracket.DoubleElimination:
		return bracket.PhaseDoubleElimination
	case bracket.Swiss:
		return bracket.PhaseSwiss
	case bracket.RoundRobin:
		return bracket.PhaseRoundRobin
	}
	return bracket.PhaseElimination
}

var allModes = []bracket.Mode{bracket.SingleElimination, bracket.DoubleElimination, bracket.Swiss, bracket.RoundRobin}
