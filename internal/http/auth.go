package http

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"timetrack/internal/cache"
	"timetrack/internal/core"
)

// TokenValidator resolves a bearer token to a user id.
type TokenValidator interface {
	Validate(token string) (string, error)
}

// UserResolver loads the user a token refers to.
type UserResolver interface {
	User(ctx context.Context, id string) (core.User, error)
}

type ctxKey int

const userKey ctxKey = iota

// Authenticator guards routes with bearer tokens. Resolved users are cached
// briefly so each request does not hit the store.
type Authenticator struct {
	tokens TokenValidator
	users  UserResolver
	cache  cache.Cache[core.User]
}

func NewAuthenticator(tokens TokenValidator, users UserResolver, c cache.Cache[core.User]) *Authenticator {
	return &Authenticator{tokens: tokens, users: users, cache: c}
}

func (a *Authenticator) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, ok := bearerToken(r.Header.Get("Authorization"))
		if !ok {
			writeMessage(w, http.StatusUnauthorized, "You are not logged in")
			return
		}
		userID, err := a.tokens.Validate(token)
		if err != nil {
			writeMessage(w, http.StatusUnauthorized, "Not authorized")
			return
		}

		u, hit := a.cache.Get(userID)
		if !hit {
			u, err = a.users.User(r.Context(), userID)
			if errors.Is(err, core.ErrNotFound) {
				writeMessage(w, http.StatusUnauthorized, "The user belonging to this token does not exist")
				return
			}
			if err != nil {
				writeError(w, r, err)
				return
			}
			a.cache.Set(userID, u)
		}

		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), userKey, u)))
	})
}

func bearerToken(header string) (string, bool) {
	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

// currentUser returns the authenticated caller. Only valid behind
// Authenticator.Middleware.
func currentUser(ctx context.Context) core.User {
	u, _ := ctx.Value(userKey).(core.User)
	return u
}
