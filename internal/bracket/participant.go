package bracket

import (
	"sort"
	"time"
)

type VerificationStatus string

const (
	VerificationPending  VerificationStatus = "pending"
	VerificationApproved VerificationStatus = "approved"
	VerificationRejected VerificationStatus = "rejected"
)

// Points awarded towards the primary ranking score.
const (
	WinPoints  = 3
	DrawPoints = 1
)

// DeckRef points at one uploaded deck image.
type DeckRef struct {
	URL         string `json:"url"`
	Filename    string `json:"filename,omitempty"`
	ContentType string `json:"content_type,omitempty"`
}

type DeckInfo struct {
	Main       DeckRef            `json:"main"`
	Extra      *DeckRef           `json:"extra,omitempty"`
	Side       *DeckRef           `json:"side,omitempty"`
	Status     VerificationStatus `json:"status"`
	Notes      string             `json:"notes,omitempty"`
	VerifiedBy *string            `json:"verified_by,omitempty"`
	VerifiedAt *time.Time         `json:"verified_at,omitempty"`
}

// Verified reports whether a moderator has already ruled on the deck.
func (d *DeckInfo) Verified() bool {
	return d.Status == VerificationApproved || d.Status == VerificationRejected
}

type Disqualification struct {
	Reason      string    `json:"reason"`
	At          time.Time `json:"at"`
	ModeratorID string    `json:"moderator_id"`
}

// Participant is never removed from a tournament; disqualification only clears Active.
type Participant struct {
	UserID           string            `json:"user_id"`
	Deck             *DeckInfo         `json:"deck"`
	Wins             int               `json:"wins"`
	Losses           int               `json:"losses"`
	Draws            int               `json:"draws"`
	MatchPoints      int               `json:"match_points"`
	TiebreakerPoints float64           `json:"tiebreaker_points"`
	Seed             int               `json:"seed"`
	RegisteredAt     time.Time         `json:"registered_at"`
	Disqualification *Disqualification `json:"disqualification"`
	Active           bool              `json:"active"`
}

func (p *Participant) ApplyWin() {
	p.Wins++
	p.MatchPoints += WinPoints
}

func (p *Participant) ApplyLoss() {
	p.Losses++
}

func (p *Participant) ApplyDraw() {
	p.Draws++
	p.MatchPoints += DrawPoints
}

func (p *Participant) Played() int {
	return p.Wins + p.Losses + p.Draws
}

// WinRate counts a draw as half a win. Zero when nothing has been played.
func (p *Participant) WinRate() float64 {
	played := p.Played()
	if played == 0 {
		return 0
	}
	return (float64(p.Wins) + 0.5*float64(p.Draws)) / float64(played)
}

// Rank orders participants by match points then tiebreaker points, both descending.
// Seed breaks the remaining ties so the order is stable across calls.
func Rank(ps []*Participant) {
	sort.SliceStable(ps, func(i, j int) bool {
		a, b := ps[i], ps[j]
		if a.MatchPoints != b.MatchPoints {
			return a.MatchPoints > b.MatchPoints
		}
		if a.TiebreakerPoints != b.TiebreakerPoints {
			return a.TiebreakerPoints > b.TiebreakerPoints
		}
		return a.Seed < b.Seed
	})
}
