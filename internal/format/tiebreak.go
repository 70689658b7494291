package format

import "github.com/AdamBeresnev/tourney/internal/bracket"

// Weight of overall game win percentage in the round robin tiebreaker.
const gameWinWeight = 0.1

// ApplyTiebreakers recomputes every participant's tiebreaker points from the match
// history. Elimination formats rank on results alone and keep zero.
func ApplyTiebreakers(t *bracket.Tournament) {
	for _, p := range t.Participants {
		switch t.Config.Mode {
		case bracket.Swiss:
			p.TiebreakerPoints = OpponentWinRate(t, p.UserID)
		case bracket.RoundRobin:
			p.TiebreakerPoints = HeadToHead(t, p.UserID) + gameWinWeight*GameWinRate(t, p.UserID, bracket.RoundRobinBracket)
		default:
			p.TiebreakerPoints = 0
		}
	}
}

// OpponentWinRate is the mean win rate of every Swiss opponent faced. Byes do not
// count as opponents.
func OpponentWinRate(t *bracket.Tournament, playerID string) float64 {
	var total float64
	var n int
	for _, m := range t.Matches {
		if m.Bracket != bracket.SwissBracket || !m.Resolved() || !m.Involves(playerID) {
			continue
		}
		if opp, ok := t.Participants[m.Opponent(playerID)]; ok {
			total += opp.WinRate()
			n++
		}
	}
	if n == 0 {
		return 0
	}
	return total / float64(n)
}

// HeadToHead is the player's match win rate against everyone currently on the same
// match points, counting a draw as half. Zero when they have not met.
func HeadToHead(t *bracket.Tournament, playerID string) float64 {
	p, ok := t.Participants[playerID]
	if !ok {
		return 0
	}
	var score float64
	var n int
	for _, m := range t.Matches {
		if m.Bracket != bracket.RoundRobinBracket || !m.Resolved() || !m.Involves(playerID) {
			continue
		}
		opp, ok := t.Participants[m.Opponent(playerID)]
		if !ok || opp.MatchPoints != p.MatchPoints {
			continue
		}
		n++
		switch {
		case m.Status == bracket.MatchDraw:
			score += 0.5
		case m.IsWinner(playerID):
			score++
		}
	}
	if n == 0 {
		return 0
	}
	return score / float64(n)
}

// GameWinRate is games won over games played in the bracket, with drawn games
// counting half. Disqualification results carry no games.
func GameWinRate(t *bracket.Tournament, playerID string, label bracket.BracketLabel) float64 {
	var won, played float64
	for _, m := range t.Matches {
		if m.Bracket != label || !m.Resolved() || !m.Involves(playerID) {
			continue
		}
		w, l, d := m.GamesFor(playerID)
		won += float64(w) + 0.5*float64(d)
		played += float64(w + l + d)
	}
	if played == 0 {
		return 0
	}
	return won / played
}
