package httputil

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/AdamBeresnev/tourney/internal/bracket"
	"github.com/AdamBeresnev/tourney/internal/service"
	"github.com/AdamBeresnev/tourney/internal/store"
	"github.com/rs/zerolog/log"
)

type errorBody struct {
	Error string `json:"error"`
	Have  *int   `json:"have,omitempty"`
	Need  *int   `json:"need,omitempty"`
}

var statusByError = []struct {
	err    error
	status int
}{
	{bracket.ErrInvalidScore, http.StatusBadRequest},
	{bracket.ErrDeckRequired, http.StatusBadRequest},
	{bracket.ErrInvalidDeckFormat, http.StatusBadRequest},
	{bracket.ErrDrawsNotAllowed, http.StatusBadRequest},
	{bracket.ErrInvalidConfig, http.StatusBadRequest},
	{bracket.ErrInvalidStatus, http.StatusBadRequest},
	{store.ErrInvalidScope, http.StatusBadRequest},

	{bracket.ErrPlayerNotFound, http.StatusNotFound},
	{bracket.ErrNoMatchFound, http.StatusNotFound},
	{bracket.ErrMatchNotFound, http.StatusNotFound},
	{bracket.ErrNoTournament, http.StatusNotFound},

	{bracket.ErrNotEnoughParticipants, http.StatusPreconditionFailed},
	{bracket.ErrAlreadyInProgress, http.StatusPreconditionFailed},

	{bracket.ErrAlreadyRegistered, http.StatusConflict},
	{bracket.ErrAlreadyStarted, http.StatusConflict},
	{bracket.ErrRegistrationClosed, http.StatusConflict},
	{bracket.ErrAlreadyReported, http.StatusConflict},
	{bracket.ErrAlreadyInactive, http.StatusConflict},
	{bracket.ErrNoDeck, http.StatusConflict},
	{bracket.ErrDeckAlreadyVerified, http.StatusConflict},
	{bracket.ErrTournamentComplete, http.StatusConflict},
	{bracket.ErrNotStarted, http.StatusConflict},
	{bracket.ErrNotAwaiting, http.StatusConflict},

	{service.ErrPersistence, http.StatusServiceUnavailable},
}

// StatusFor maps an engine error to its HTTP status.
func StatusFor(err error) int {
	for _, e := range statusByError {
		if errors.Is(err, e.err) {
			return e.status
		}
	}
	return http.StatusInternalServerError
}

// Error writes err as a JSON body with the matching status.
func Error(w http.ResponseWriter, r *http.Request, err error) {
	status := StatusFor(err)
	body := errorBody{Error: err.Error()}

	var short *bracket.NotEnoughParticipantsError
	if errors.As(err, &short) {
		body.Have, body.Need = &short.Have, &short.Need
	}

	if status >= http.StatusInternalServerError {
		log.Error().Err(err).Str("method", r.Method).Str("path", r.URL.Path).Int("status", status).Msg("request failed")
		if status == http.StatusInternalServerError {
			body.Error = "internal server error"
		}
	} else {
		log.Debug().Err(err).Str("method", r.Method).Str("path", r.URL.Path).Int("status", status).Msg("request rejected")
	}
	WriteJSON(w, status, body)
}

func BadRequest(w http.ResponseWriter, msg string, err error) {
	if err != nil {
		log.Warn().Err(err).Str("message", msg).Msg("bad request")
	} else {
		log.Warn().Str("message", msg).Msg("bad request")
	}
	WriteJSON(w, http.StatusBadRequest, errorBody{Error: msg})
}

func Unauthorized(w http.ResponseWriter, msg string) {
	WriteJSON(w, http.StatusUnauthorized, errorBody{Error: msg})
}

func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Warn().Err(err).Msg("failed to write response")
	}
}
