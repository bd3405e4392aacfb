package server

import (
	"context"
	"net/http"
	"strings"

	"github.com/prepwise/interviewd/internal/interview"
)

type ctxKey int

const ctxKeyUser ctxKey = iota

func authMiddleware(store *interview.Store) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := bearerToken(r)
			if token == "" {
				writeError(w, http.StatusUnauthorized, "invalid or missing session token")
				return
			}

			user, err := store.UserFromToken(r.Context(), token)
			if err != nil {
				writeError(w, http.StatusUnauthorized, "invalid or missing session token")
				return
			}

			ctx := context.WithValue(r.Context(), ctxKeyUser, user)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func bearerToken(r *http.Request) string {
	auth := r.Header.Get("Authorization")
	token, found := strings.CutPrefix(auth, "Bearer ")
	if !found {
		return ""
	}
	return token
}

func userFrom(r *http.Request) interview.User {
	return r.Context().Value(ctxKeyUser).(interview.User)
}
