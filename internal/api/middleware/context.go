package middleware

import (
	"context"
	"net/http"

	"github.com/google/uuid"
	"github.com/hazelquimpo21/thecleverkit-sub001/pkg/models"
)

type sessionKey struct{}

// SetSession attaches an authenticated session to ctx. Handlers never call it
// directly outside tests; Authenticate does.
func SetSession(ctx context.Context, s models.Session) context.Context {
	return context.WithValue(ctx, sessionKey{}, s)
}

// GetSession returns the session placed by Authenticate. ok is false on
// public routes.
func GetSession(r *http.Request) (models.Session, bool) {
	s, ok := r.Context().Value(sessionKey{}).(models.Session)
	return s, ok && s.UserID != uuid.Nil
}
