package auth

import (
	"context"
	"net/http"
	"strings"

	"github.com/getsentry/sentry-go"

	"linkcamp/internal/common"
	"linkcamp/internal/httpapi"
)

type actorKey struct{}

func WithActor(ctx context.Context, actor common.Actor) context.Context {
	return context.WithValue(ctx, actorKey{}, actor)
}

func ActorFrom(ctx context.Context) (common.Actor, bool) {
	actor, ok := ctx.Value(actorKey{}).(common.Actor)
	return actor, ok
}

// TokenFromRequest reads the bearer header, then x-access-token, then the token cookie.
func TokenFromRequest(r *http.Request) string {
	if h := r.Header.Get("Authorization"); h != "" {
		parts := strings.Fields(h)
		if len(parts) == 2 && strings.EqualFold(parts[0], "bearer") {
			return parts[1]
		}
	}
	if t := r.Header.Get("x-access-token"); t != "" {
		return t
	}
	if c, err := r.Cookie("token"); err == nil {
		return c.Value
	}
	return ""
}

// Wrap guards next with opts.
func (a *Authenticator) Wrap(opts Options, next http.HandlerFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		actor, err := a.Authenticate(r.Context(), TokenFromRequest(r), opts)
		if err != nil {
			httpapi.WriteError(w, r, err)
			return
		}
		if hub := sentry.GetHubFromContext(r.Context()); hub != nil {
			hub.Scope().SetUser(sentry.User{ID: actor.UID, Email: actor.Email})
		}
		ctx := httpapi.WithLogger(WithActor(r.Context(), actor),
			httpapi.LoggerFrom(r.Context()).With("actor", actor.Email))
		next(w, r.WithContext(ctx))
	})
}
