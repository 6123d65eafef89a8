package auth

import (
	"context"
	"net/http"

	"github.com/voltlead/voltlead/internal/platform/httpx"
)

type contextKey struct{}

// UserID returns the authenticated user from the request context, or 0.
func UserID(ctx context.Context) int64 {
	id, _ := ctx.Value(contextKey{}).(int64)
	return id
}

// RequireToken rejects requests without a valid bearer token and stores
// the resolved user ID on the context.
func (s *Service) RequireToken(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := BearerToken(r)
		if token == "" {
			httpx.RespondError(w, httpx.ErrUnauthorized)
			return
		}
		userID, err := s.Verify(r.Context(), token)
		if err != nil {
			httpx.RespondError(w, httpx.ErrUnauthorized)
			return
		}
		ctx := context.WithValue(r.Context(), contextKey{}, userID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
