// Package session authenticates API requests and enforces role access.
package session

import (
	"net/http"
	"strings"

	"github.com/MrJamesThe3rd/registrar/internal/apperr"
	"github.com/MrJamesThe3rd/registrar/internal/auth"
	"github.com/MrJamesThe3rd/registrar/internal/http/respond"
	"github.com/MrJamesThe3rd/registrar/internal/identity"
)

type TokenParser interface {
	Parse(token string) (identity.Actor, error)
}

// Authenticate rejects requests without a valid bearer token and stores the
// token's actor in the request context.
func Authenticate(tokens TokenParser) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")

			token, ok := strings.CutPrefix(header, "Bearer ")
			if !ok || token == "" {
				respond.Error(w, r, apperr.ErrUnauthorized)
				return
			}

			actor, err := tokens.Parse(token)
			if err != nil {
				respond.Error(w, r, auth.ErrInvalidToken)
				return
			}

			next.ServeHTTP(w, r.WithContext(identity.WithActor(r.Context(), actor)))
		})
	}
}

// RequireRole lets through only actors holding one of roles.
func RequireRole(roles ...identity.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			actor, ok := identity.FromContext(r.Context())
			if !ok {
				respond.Error(w, r, apperr.ErrUnauthorized)
				return
			}

			if !actor.Is(roles...) {
				respond.Error(w, r, apperr.Forbidden("role %s may not do this", actor.Role))
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// Actor returns the authenticated actor. Routes behind Authenticate always have one.
func Actor(r *http.Request) identity.Actor {
	actor, _ := identity.FromContext(r.Context())
	return actor
}
