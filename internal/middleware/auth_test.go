package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRequireActor(t *testing.T) {
	var seen string
	handler := LoadActor(RequireActor(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, _ = GetActorID(r.Context())
		w.WriteHeader(http.StatusNoContent)
	})))

	testCases := []struct {
		name       string
		header     string
		wantStatus int
		wantActor  string
	}{
		{name: "actor present", header: "user-42", wantStatus: http.StatusNoContent, wantActor: "user-42"},
		{name: "actor trimmed", header: "  user-7 ", wantStatus: http.StatusNoContent, wantActor: "user-7"},
		{name: "missing header", wantStatus: http.StatusUnauthorized},
		{name: "blank header", header: "   ", wantStatus: http.StatusUnauthorized},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			seen = ""
			req := httptest.NewRequest(http.MethodPost, "/", nil)
			if tc.header != "" {
				req.Header.Set(ActorHeader, tc.header)
			}
			rec := httptest.NewRecorder()

			handler.ServeHTTP(rec, req)

			assert.Equal(t, tc.wantStatus, rec.Code)
			assert.Equal(t, tc.wantActor, seen)
		})
	}
}
