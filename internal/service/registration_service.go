package service

import (
	"fmt"
	"strings"

	"github.com/AdamBeresnev/tourney/internal/bracket"
	"github.com/AdamBeresnev/tourney/internal/eventlog"
	"github.com/AdamBeresnev/tourney/internal/media"
	"github.com/AdamBeresnev/tourney/internal/utils"
	"github.com/jonboulle/clockwork"
)

// At most a main, an extra and a side deck.
const maxDeckAttachments = 3

type RegistrationService struct {
	clock clockwork.Clock
}

func NewRegistrationService(clock clockwork.Clock) *RegistrationService {
	return &RegistrationService{clock: clock}
}

// Register admits a player while registration is open. Seeds follow registration order.
func (s *RegistrationService) Register(t *bracket.Tournament, userID string, decks []bracket.DeckRef, rec eventlog.Recorder) (*bracket.Participant, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, fmt.Errorf("%w: empty user id", bracket.ErrPlayerNotFound)
	}
	if !t.RegistrationOpen {
		return nil, bracket.ErrRegistrationClosed
	}
	if _, exists := t.Participants[userID]; exists {
		return nil, bracket.ErrAlreadyRegistered
	}
	if t.Config.DeckCheck && len(decks) == 0 {
		return nil, bracket.ErrDeckRequired
	}

	deck, err := parseDecks(decks)
	if err != nil {
		return nil, err
	}

	now := s.clock.Now().UTC()
	p := &bracket.Participant{
		UserID:       userID,
		Deck:         deck,
		Seed:         len(t.Participants) + 1,
		RegisteredAt: now,
		Active:       true,
	}
	t.Participants[userID] = p

	rec.Record(eventlog.Registration, eventlog.Payload{
		"user_id":  userID,
		"seed":     p.Seed,
		"has_deck": deck != nil,
	})
	return p, nil
}

// parseDecks maps attachments onto main, extra and side deck in that order.
func parseDecks(decks []bracket.DeckRef) (*bracket.DeckInfo, error) {
	if len(decks) == 0 {
		return nil, nil
	}
	if len(decks) > maxDeckAttachments {
		return nil, fmt.Errorf("%w: got %d attachments", bracket.ErrInvalidDeckFormat, len(decks))
	}
	for i, d := range decks {
		if !media.IsImage(d.URL, d.Filename, d.ContentType) {
			return nil, fmt.Errorf("%w: attachment %d is not an image", bracket.ErrInvalidDeckFormat, i+1)
		}
	}

	info := &bracket.DeckInfo{Main: decks[0], Status: bracket.VerificationPending}
	if len(decks) > 1 {
		info.Extra = utils.Ptr(decks[1])
	}
	if len(decks) > 2 {
		info.Side = utils.Ptr(decks[2])
	}
	return info, nil
}

// VerifyDeck records a moderator's ruling. The ruling is final and does not block play.
func (s *RegistrationService) VerifyDeck(t *bracket.Tournament, moderatorID, playerID string, status bracket.VerificationStatus, notes string, rec eventlog.Recorder) error {
	if status != bracket.VerificationApproved && status != bracket.VerificationRejected {
		return fmt.Errorf("%w: %q", bracket.ErrInvalidStatus, status)
	}
	p, ok := t.Participant(playerID)
	if !ok {
		return bracket.ErrPlayerNotFound
	}
	if p.Deck == nil {
		return bracket.ErrNoDeck
	}
	if p.Deck.Verified() {
		return bracket.ErrDeckAlreadyVerified
	}

	p.Deck.Status = status
	p.Deck.Notes = strings.TrimSpace(notes)
	p.Deck.VerifiedBy = utils.Ptr(moderatorID)
	p.Deck.VerifiedAt = utils.TimePtr(s.clock.Now().UTC())

	rec.Record(eventlog.DeckVerification, eventlog.Payload{
		"player_id":    playerID,
		"status":       string(status),
		"moderator_id": moderatorID,
	})
	return nil
}
