package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/AdamBeresnev/tourney/internal/httputil"
)

type ContextKey string

const ActorIDKey ContextKey = "actorID"

// ActorHeader carries the chat-platform id of whoever issued the command. The
// presentation layer in front of the engine has already authenticated them.
const ActorHeader = "X-User-ID"

// LoadActor puts the caller's id into the request context when the header is set.
func LoadActor(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if id := strings.TrimSpace(r.Header.Get(ActorHeader)); id != "" {
			r = r.WithContext(WithActor(r.Context(), id))
		}
		next.ServeHTTP(w, r)
	})
}

// RequireActor rejects requests that do not say who is acting.
func RequireActor(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := GetActorID(r.Context()); !ok {
			httputil.Unauthorized(w, "missing "+ActorHeader+" header")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func WithActor(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, ActorIDKey, id)
}

func GetActorID(ctx context.Context) (string, bool) {
	val := ctx.Value(ActorIDKey)
	if val == nil {
		return "", false
	}

	id, ok := val.(string)
	return id, ok && id != ""
}
