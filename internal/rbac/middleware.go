package rbac

import (
	"context"
	"net/http"
	"strings"

	"github.com/RubachokBoss/edujury/internal/models"
	"github.com/RubachokBoss/edujury/pkg/utils"
)

type ctxKey struct{}

var ctxKeyActor = ctxKey{}

func WithActor(ctx context.Context, a Actor) context.Context {
	return context.WithValue(ctx, ctxKeyActor, a)
}

func ActorFromContext(ctx context.Context) (Actor, bool) {
	a, ok := ctx.Value(ctxKeyActor).(Actor)
	return a, ok
}

type ctxTokenKey struct{}

// TokenFromContext returns the bearer token the request was authenticated with.
func TokenFromContext(ctx context.Context) string {
	s, _ := ctx.Value(ctxTokenKey{}).(string)
	return s
}

// IdentityResolver turns a bearer token into the profile it was issued for.
type IdentityResolver interface {
	CurrentIdentity(ctx context.Context, token string) (*models.Profile, error)
}

// Authenticate resolves the bearer token once per request and stores the
// role variant in the request context.
func Authenticate(resolver IdentityResolver) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			h := r.Header.Get("Authorization")
			if !strings.HasPrefix(h, "Bearer ") {
				deny(w, http.StatusUnauthorized, "missing bearer token")
				return
			}
			token := strings.TrimPrefix(h, "Bearer ")

			profile, err := resolver.CurrentIdentity(r.Context(), token)
			if err != nil || profile == nil {
				deny(w, http.StatusUnauthorized, "invalid or expired token")
				return
			}

			actor, err := NewActor(profile.ID, profile.Role)
			if err != nil {
				deny(w, http.StatusUnauthorized, err.Error())
				return
			}

			ctx := WithActor(r.Context(), actor)
			ctx = context.WithValue(ctx, ctxTokenKey{}, token)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// Require rejects requests whose actor lacks every one of perms.
func Require(perms ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			actor, ok := ActorFromContext(r.Context())
			if !ok {
				deny(w, http.StatusUnauthorized, "not authenticated")
				return
			}
			for _, p := range perms {
				if actor.Can(p) {
					next.ServeHTTP(w, r)
					return
				}
			}
			deny(w, http.StatusForbidden, "insufficient permissions")
		})
	}
}

func deny(w http.ResponseWriter, status int, message string) {
	utils.ErrorResponse(w, status, message)
}
