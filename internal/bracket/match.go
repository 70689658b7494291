package bracket

import (
	"fmt"
	"time"
)

type MatchStatus string

const (
	MatchPending              MatchStatus = "pending"
	MatchAwaitingConfirmation MatchStatus = "awaiting_confirmation"
	MatchCompleted            MatchStatus = "completed"
	MatchDQ                   MatchStatus = "dq"
	MatchDraw                 MatchStatus = "draw"
)

type BracketLabel string

const (
	WinnersBracket     BracketLabel = "winners"
	LosersBracket      BracketLabel = "losers"
	FinalsBracket      BracketLabel = "finals"
	SwissBracket       BracketLabel = "swiss"
	RoundRobinBracket  BracketLabel = "round_robin"
	EliminationBracket BracketLabel = "elimination"
)

// Knockout reports whether a match in this bracket must produce a winner.
func (b BracketLabel) Knockout() bool {
	switch b {
	case WinnersBracket, LosersBracket, FinalsBracket, EliminationBracket:
		return true
	}
	return false
}

type Match struct {
	ID        int          `json:"id"`
	Player1ID string       `json:"player1_id"`
	Player2ID string       `json:"player2_id"`
	Round     int          `json:"round"`
	Bracket   BracketLabel `json:"bracket"`
	// Position within the round, used to keep bracket lines when advancing
	Order  int         `json:"order"`
	Status MatchStatus `json:"status"`

	// Games are stored from player 1's point of view
	Score        string  `json:"score"`
	Player1Games int     `json:"player1_games"`
	Player2Games int     `json:"player2_games"`
	DrawnGames   int     `json:"drawn_games"`
	WinnerID     *string `json:"winner_id"`
	LoserID      *string `json:"loser_id"`

	ScheduledAt *time.Time `json:"scheduled_at"`
	CompletedAt *time.Time `json:"completed_at"`
	ReportedBy  *string    `json:"reported_by"`
	ConfirmedBy *string    `json:"confirmed_by"`
	CreatedAt   time.Time  `json:"created_at"`
}

func (m *Match) Open() bool {
	return m.Status == MatchPending || m.Status == MatchAwaitingConfirmation
}

func (m *Match) Resolved() bool {
	return m.Status == MatchCompleted || m.Status == MatchDraw || m.Status == MatchDQ
}

func (m *Match) Involves(playerID string) bool {
	return m.Player1ID == playerID || m.Player2ID == playerID
}

// Between matches the unordered pair {a, b}.
func (m *Match) Between(a, b string) bool {
	return (m.Player1ID == a && m.Player2ID == b) || (m.Player1ID == b && m.Player2ID == a)
}

func (m *Match) Opponent(playerID string) string {
	if m.Player1ID == playerID {
		return m.Player2ID
	}
	return m.Player1ID
}

func (m *Match) IsWinner(playerID string) bool {
	return m.WinnerID != nil && *m.WinnerID == playerID
}

func (m *Match) IsLoser(playerID string) bool {
	return m.LoserID != nil && *m.LoserID == playerID
}

// GamesFor returns games won, lost and drawn from the given player's side.
func (m *Match) GamesFor(playerID string) (won, lost, drawn int) {
	if m.Player1ID == playerID {
		return m.Player1Games, m.Player2Games, m.DrawnGames
	}
	return m.Player2Games, m.Player1Games, m.DrawnGames
}

// SetGames records a result given from the reporter's side.
func (m *Match) SetGames(reporterID string, wins, losses, draws int) {
	if m.Player1ID == reporterID {
		m.Player1Games, m.Player2Games = wins, losses
	} else {
		m.Player1Games, m.Player2Games = losses, wins
	}
	m.DrawnGames = draws
	m.Score = fmt.Sprintf("%d-%d-%d", m.Player1Games, m.Player2Games, m.DrawnGames)
}

// Bye is an automatic win for a player left without an opponent in a round.
type Bye struct {
	PlayerID  string       `json:"player_id"`
	Round     int          `json:"round"`
	Bracket   BracketLabel `json:"bracket"`
	Order     int          `json:"order"`
	GrantedAt time.Time    `json:"granted_at"`
}
