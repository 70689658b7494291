package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/AdamBeresnev/tourney/internal/bracket"
	"github.com/AdamBeresnev/tourney/internal/httputil"
	"github.com/AdamBeresnev/tourney/internal/middleware"
	"github.com/AdamBeresnev/tourney/internal/service"
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/jonboulle/clockwork"
)

type api struct {
	manager *service.Manager
	clock   clockwork.Clock
}

func newRouter(manager *service.Manager, clock clockwork.Clock) http.Handler {
	a := &api{manager: manager, clock: clock}
	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.Logger)
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.LoadActor)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Get("/events", a.events)

	r.Route("/scopes/{scope}/tournament", func(r chi.Router) {
		r.Get("/", a.getTournament)
		r.Get("/bracket", a.bracket)
		r.Get("/stats", a.stats)
		r.Get("/history", a.history)

		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireActor)

			r.Post("/", a.create)
			r.Delete("/", a.cancel)
			r.Post("/registration", a.openRegistration)
			r.Post("/participants", a.register)
			r.Post("/participants/{playerID}/deck", a.verifyDeck)
			r.Post("/start", a.start)
			r.Post("/results", a.report)
			r.Post("/matches/{matchID}/confirm", a.confirm)
			r.Post("/matches/{matchID}/schedule", a.schedule)
			r.Post("/disqualifications", a.disqualify)
		})
	})

	return r
}

func (a *api) create(w http.ResponseWriter, r *http.Request) {
	var in service.CreateInput
	if !decode(w, r, &in) {
		return
	}
	summary, err := a.manager.Create(r.Context(), chi.URLParam(r, "scope"), in)
	if err != nil {
		httputil.Error(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, summary)
}

func (a *api) cancel(w http.ResponseWriter, r *http.Request) {
	if err := a.manager.Cancel(r.Context(), chi.URLParam(r, "scope"), actor(r)); err != nil {
		httputil.Error(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (a *api) getTournament(w http.ResponseWriter, r *http.Request) {
	t, err := a.manager.Tournament(r.Context(), chi.URLParam(r, "scope"))
	if err != nil {
		httputil.Error(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{
		"summary":    t.Summary(),
		"tournament": t,
	})
}

func (a *api) openRegistration(w http.ResponseWriter, r *http.Request) {
	open, err := a.manager.OpenRegistration(r.Context(), chi.URLParam(r, "scope"))
	if err != nil {
		httputil.Error(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]bool{"registration_open": open})
}

// Players register themselves.
type registerRequest struct {
	Decks []bracket.DeckRef `json:"decks"`
}

func (a *api) register(w http.ResponseWriter, r *http.Request) {
	var in registerRequest
	if !decode(w, r, &in) {
		return
	}
	p, err := a.manager.Register(r.Context(), chi.URLParam(r, "scope"), actor(r), in.Decks)
	if err != nil {
		httputil.Error(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, p)
}

type verifyDeckRequest struct {
	Status bracket.VerificationStatus `json:"status"`
	Notes  string                     `json:"notes"`
}

func (a *api) verifyDeck(w http.ResponseWriter, r *http.Request) {
	var in verifyDeckRequest
	if !decode(w, r, &in) {
		return
	}
	err := a.manager.VerifyDeck(r.Context(), chi.URLParam(r, "scope"), actor(r), chi.URLParam(r, "playerID"), in.Status, in.Notes)
	if err != nil {
		httputil.Error(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (a *api) start(w http.ResponseWriter, r *http.Request) {
	scope := chi.URLParam(r, "scope")
	if err := a.manager.Start(r.Context(), scope); err != nil {
		httputil.Error(w, r, err)
		return
	}
	view, err := a.manager.BracketView(r.Context(), scope)
	if err != nil {
		httputil.Error(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, view)
}

// The reporter is always the caller.
type reportRequest struct {
	OpponentID string `json:"opponent_id"`
	Wins       int    `json:"wins"`
	Losses     int    `json:"losses"`
	Draws      int    `json:"draws"`
}

func (a *api) report(w http.ResponseWriter, r *http.Request) {
	var in reportRequest
	if !decode(w, r, &in) {
		return
	}
	out, err := a.manager.ReportResult(r.Context(), chi.URLParam(r, "scope"), service.ReportInput{
		ReporterID: actor(r),
		OpponentID: in.OpponentID,
		Wins:       in.Wins,
		Losses:     in.Losses,
		Draws:      in.Draws,
	})
	if err != nil {
		httputil.Error(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, out)
}

func (a *api) confirm(w http.ResponseWriter, r *http.Request) {
	matchID, ok := matchIDParam(w, r)
	if !ok {
		return
	}
	out, err := a.manager.ConfirmResult(r.Context(), chi.URLParam(r, "scope"), actor(r), matchID)
	if err != nil {
		httputil.Error(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, out)
}

type scheduleRequest struct {
	At time.Time `json:"at"`
}

func (a *api) schedule(w http.ResponseWriter, r *http.Request) {
	matchID, ok := matchIDParam(w, r)
	if !ok {
		return
	}
	var in scheduleRequest
	if !decode(w, r, &in) {
		return
	}
	if in.At.IsZero() {
		httputil.BadRequest(w, "at is required", nil)
		return
	}
	if err := a.manager.ScheduleMatch(r.Context(), chi.URLParam(r, "scope"), matchID, in.At); err != nil {
		httputil.Error(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type disqualifyRequest struct {
	PlayerID string `json:"player_id"`
	Reason   string `json:"reason"`
}

func (a *api) disqualify(w http.ResponseWriter, r *http.Request) {
	var in disqualifyRequest
	if !decode(w, r, &in) {
		return
	}
	out, err := a.manager.Disqualify(r.Context(), chi.URLParam(r, "scope"), actor(r), in.PlayerID, in.Reason)
	if err != nil {
		httputil.Error(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, out)
}

func (a *api) bracket(w http.ResponseWriter, r *http.Request) {
	view, err := a.manager.BracketView(r.Context(), chi.URLParam(r, "scope"))
	if err != nil {
		httputil.Error(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, view)
}

func (a *api) stats(w http.ResponseWriter, r *http.Request) {
	stats, err := a.manager.Stats(r.Context(), chi.URLParam(r, "scope"))
	if err != nil {
		httputil.Error(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, stats)
}

func (a *api) history(w http.ResponseWriter, r *http.Request) {
	revisions, err := a.manager.History(r.Context(), chi.URLParam(r, "scope"))
	if err != nil {
		httputil.Error(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, revisions)
}

// events serves one UTC day of the audit log, today by default.
func (a *api) events(w http.ResponseWriter, r *http.Request) {
	day := a.clock.Now().UTC()
	if s := r.URL.Query().Get("day"); s != "" {
		parsed, err := time.Parse(time.DateOnly, s)
		if err != nil {
			httputil.BadRequest(w, "day must look like 2006-01-02", err)
			return
		}
		day = parsed
	}
	events, err := a.manager.Events(day)
	if err != nil {
		httputil.Error(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, events)
}

func actor(r *http.Request) string {
	id, _ := middleware.GetActorID(r.Context())
	return id
}

func matchIDParam(w http.ResponseWriter, r *http.Request) (int, bool) {
	id, err := strconv.Atoi(chi.URLParam(r, "matchID"))
	if err != nil || id < 1 {
		httputil.BadRequest(w, "Invalid match ID", err)
		return 0, false
	}
	return id, true
}

// decode reads a JSON body. An empty body leaves v untouched.
func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	err := json.NewDecoder(r.Body).Decode(v)
	if err == nil || errors.Is(err, io.EOF) {
		return true
	}
	httputil.BadRequest(w, fmt.Sprintf("Invalid JSON body: %v", err), err)
	return false
}
