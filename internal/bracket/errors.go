package bracket

import (
	"errors"
	"fmt"
)

// Input errors. Rejected before anything is mutated.
var (
	ErrInvalidScore      = errors.New("invalid score for this match format")
	ErrDeckRequired      = errors.New("a deck submission is required")
	ErrInvalidDeckFormat = errors.New("deck attachments must be 1 to 3 images")
	ErrDrawsNotAllowed   = errors.New("draws are not allowed")
	ErrInvalidConfig     = errors.New("invalid tournament configuration")
	ErrInvalidStatus     = errors.New("invalid verification status")
)

// State conflict errors.
var (
	ErrAlreadyRegistered   = errors.New("player is already registered")
	ErrAlreadyStarted      = errors.New("tournament has already started")
	ErrRegistrationClosed  = errors.New("registration is closed")
	ErrNoMatchFound        = errors.New("no open match between these players")
	ErrMatchNotFound       = errors.New("match not found")
	ErrAlreadyReported     = errors.New("result already reported, waiting for opponent confirmation")
	ErrPlayerNotFound      = errors.New("player not found")
	ErrAlreadyInactive     = errors.New("player is already inactive")
	ErrNoDeck              = errors.New("player has no deck submission")
	ErrDeckAlreadyVerified = errors.New("deck has already been verified")
	ErrNoTournament        = errors.New("no tournament in this scope")
	ErrTournamentComplete  = errors.New("tournament is complete")
	ErrNotStarted          = errors.New("tournament has not started")
	ErrNotAwaiting         = errors.New("match is not awaiting confirmation")
)

// Precondition errors.
var (
	ErrNotEnoughParticipants = errors.New("not enough participants")
	ErrAlreadyInProgress     = errors.New("a tournament is already in progress")
)

// NotEnoughParticipantsError reports how far short the active roster is.
type NotEnoughParticipantsError struct {
	Have int
	Need int
}

func (e *NotEnoughParticipantsError) Error() string {
	return fmt.Sprintf("not enough participants: have %d, need %d", e.Have, e.Need)
}

func (e *NotEnoughParticipantsError) Is(target error) bool {
	return target == ErrNotEnoughParticipants
}
