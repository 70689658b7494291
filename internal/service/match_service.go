package service

import (
	"fmt"
	"strings"

	"github.com/AdamBeresnev/tourney/internal/bracket"
	"github.com/AdamBeresnev/tourney/internal/eventlog"
	"github.com/AdamBeresnev/tourney/internal/utils"
	"github.com/jonboulle/clockwork"
)

type MatchService struct {
	clock clockwork.Clock
}

func NewMatchService(clock clockwork.Clock) *MatchService {
	return &MatchService{clock: clock}
}

type MatchOutcome struct {
	MatchID       int                 `json:"match_id"`
	Status        bracket.MatchStatus `json:"status"`
	Score         string              `json:"score"`
	WinnerID      *string             `json:"winner_id,omitempty"`
	LoserID       *string             `json:"loser_id,omitempty"`
	RoundComplete bool                `json:"round_complete"`
}

type DQOutcome struct {
	PlayerID        string `json:"player_id"`
	AffectedMatches []int  `json:"affected_matches"`
	RoundComplete   bool   `json:"round_complete"`
}

// FindOpenMatch returns the pending or awaiting match between two players, in either seat.
func (s *MatchService) FindOpenMatch(t *bracket.Tournament, a, b string) (*bracket.Match, error) {
	m, ok := t.FindOpenMatch(a, b)
	if !ok {
		return nil, bracket.ErrNoMatchFound
	}
	return m, nil
}

// ValidateScore checks a result against the best-of format. Wins and losses are
// games from the reporter's side.
func ValidateScore(cfg bracket.Config, label bracket.BracketLabel, wins, losses, draws int) error {
	maxWins := cfg.MaxGameWins()
	switch {
	case wins < 0 || losses < 0 || draws < 0:
		return fmt.Errorf("%w: negative game count", bracket.ErrInvalidScore)
	case wins > maxWins || losses > maxWins:
		return fmt.Errorf("%w: at most %d game wins in a best of %d", bracket.ErrInvalidScore, maxWins, cfg.BestOf)
	case wins == maxWins && losses == maxWins:
		return fmt.Errorf("%w: both players cannot reach %d", bracket.ErrInvalidScore, maxWins)
	case wins+losses+draws == 0:
		return fmt.Errorf("%w: no games played", bracket.ErrInvalidScore)
	}

	if draws > 0 && !cfg.AllowDraws {
		return bracket.ErrDrawsNotAllowed
	}
	if wins == losses && (!cfg.AllowDraws || label.Knockout()) {
		return fmt.Errorf("%w: a %s match needs a winner", bracket.ErrDrawsNotAllowed, label)
	}
	return nil
}

// ReportResult records a result. With confirmation on, the first report waits for
// the opponent and a report by the other player confirms it.
func (s *MatchService) ReportResult(t *bracket.Tournament, reporterID, opponentID string, wins, losses, draws int, rec eventlog.Recorder) (MatchOutcome, error) {
	if err := playable(t); err != nil {
		return MatchOutcome{}, err
	}
	m, err := s.FindOpenMatch(t, reporterID, opponentID)
	if err != nil {
		return MatchOutcome{}, err
	}
	if err := ValidateScore(t.Config, m.Bracket, wins, losses, draws); err != nil {
		return MatchOutcome{}, err
	}

	if t.Config.RequireConfirmation && m.Status == bracket.MatchAwaitingConfirmation {
		if utils.OrZero(m.ReportedBy) == reporterID {
			return MatchOutcome{}, bracket.ErrAlreadyReported
		}
		s.resolve(t, m, reporterID)
		rec.Record(eventlog.MatchConfirmed, matchPayload(m, reporterID))
		return outcome(t, m), nil
	}

	m.SetGames(reporterID, wins, losses, draws)
	switch {
	case wins > losses:
		m.WinnerID, m.LoserID = utils.Ptr(reporterID), utils.Ptr(opponentID)
	case losses > wins:
		m.WinnerID, m.LoserID = utils.Ptr(opponentID), utils.Ptr(reporterID)
	default:
		m.WinnerID, m.LoserID = nil, nil
	}
	m.ReportedBy = utils.Ptr(reporterID)

	if t.Config.RequireConfirmation {
		m.Status = bracket.MatchAwaitingConfirmation
		rec.Record(eventlog.MatchReported, matchPayload(m, reporterID))
		return outcome(t, m), nil
	}

	s.resolve(t, m, "")
	rec.Record(eventlog.MatchResult, matchPayload(m, reporterID))
	return outcome(t, m), nil
}

// ConfirmResult lets a moderator confirm a reported result on behalf of the opponent.
func (s *MatchService) ConfirmResult(t *bracket.Tournament, moderatorID string, matchID int, rec eventlog.Recorder) (MatchOutcome, error) {
	if err := playable(t); err != nil {
		return MatchOutcome{}, err
	}
	m, ok := t.Matches[matchID]
	if !ok {
		return MatchOutcome{}, bracket.ErrMatchNotFound
	}
	if m.Status != bracket.MatchAwaitingConfirmation {
		return MatchOutcome{}, bracket.ErrNotAwaiting
	}

	s.resolve(t, m, moderatorID)
	rec.Record(eventlog.MatchConfirmed, matchPayload(m, moderatorID))
	return outcome(t, m), nil
}

// resolve finishes a match with its recorded result and applies the standings
// change exactly once.
func (s *MatchService) resolve(t *bracket.Tournament, m *bracket.Match, confirmerID string) {
	now := s.clock.Now().UTC()
	m.CompletedAt = &now
	m.ConfirmedBy = utils.StringOrNil(confirmerID)

	if m.WinnerID == nil {
		m.Status = bracket.MatchDraw
		for _, id := range []string{m.Player1ID, m.Player2ID} {
			if p, ok := t.Participants[id]; ok {
				p.ApplyDraw()
			}
		}
		return
	}

	m.Status = bracket.MatchCompleted
	if p, ok := t.Participants[*m.WinnerID]; ok {
		p.ApplyWin()
	}
	if p, ok := t.Participants[*m.LoserID]; ok {
		p.ApplyLoss()
	}
}

// Disqualify deactivates a player and awards their pending matches to the opponents.
// Finished and awaiting matches keep their result.
func (s *MatchService) Disqualify(t *bracket.Tournament, moderatorID, playerID, reason string, rec eventlog.Recorder) (DQOutcome, error) {
	if t.Complete() {
		return DQOutcome{}, bracket.ErrTournamentComplete
	}
	p, ok := t.Participant(playerID)
	if !ok {
		return DQOutcome{}, bracket.ErrPlayerNotFound
	}
	if !p.Active {
		return DQOutcome{}, bracket.ErrAlreadyInactive
	}

	now := s.clock.Now().UTC()
	p.Active = false
	p.Disqualification = &bracket.Disqualification{
		Reason:      strings.TrimSpace(reason),
		At:          now,
		ModeratorID: moderatorID,
	}

	out := DQOutcome{PlayerID: playerID, AffectedMatches: []int{}}
	for _, m := range t.MatchList() {
		if m.Status != bracket.MatchPending || !m.Involves(playerID) {
			continue
		}
		opponentID := m.Opponent(playerID)
		m.Status = bracket.MatchDQ
		m.Score = "DQ"
		m.WinnerID = utils.Ptr(opponentID)
		m.LoserID = utils.Ptr(playerID)
		m.CompletedAt = utils.TimePtr(now)
		if opp, ok := t.Participants[opponentID]; ok {
			opp.ApplyWin()
		}
		p.ApplyLoss()
		out.AffectedMatches = append(out.AffectedMatches, m.ID)
	}
	out.RoundComplete = t.Started && t.RoundComplete()

	rec.Record(eventlog.PlayerDQ, eventlog.Payload{
		"player_id":        playerID,
		"moderator_id":     moderatorID,
		"reason":           p.Disqualification.Reason,
		"affected_matches": out.AffectedMatches,
	})
	return out, nil
}

func playable(t *bracket.Tournament) error {
	if t.Complete() {
		return bracket.ErrTournamentComplete
	}
	if !t.Started {
		return bracket.ErrNotStarted
	}
	return nil
}

func outcome(t *bracket.Tournament, m *bracket.Match) MatchOutcome {
	return MatchOutcome{
		MatchID:       m.ID,
		Status:        m.Status,
		Score:         m.Score,
		WinnerID:      m.WinnerID,
		LoserID:       m.LoserID,
		RoundComplete: m.Resolved() && t.RoundComplete(),
	}
}

func matchPayload(m *bracket.Match, actorID string) eventlog.Payload {
	return eventlog.Payload{
		"match_id":  m.ID,
		"round":     m.Round,
		"bracket":   string(m.Bracket),
		"status":    string(m.Status),
		"score":     m.Score,
		"winner_id": utils.OrZero(m.WinnerID),
		"actor_id":  actorID,
	}
}
