package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/hazelquimpo21/thecleverkit-sub001/internal/api/response"
	"github.com/hazelquimpo21/thecleverkit-sub001/internal/config"
	"github.com/hazelquimpo21/thecleverkit-sub001/pkg/models"
)

// SessionClaims is the payload of a session token issued by the hosted auth provider.
type SessionClaims struct {
	Email string `json:"email"`
	jwt.RegisteredClaims
}

// Auth verifies session tokens and puts the caller's Session in the request context.
type Auth struct {
	secret   []byte
	audience string
	cookie   string
}

func NewAuth(cfg config.AuthConfig) *Auth {
	return &Auth{
		secret:   []byte(cfg.JWTSecret),
		audience: cfg.JWTAudience,
		cookie:   cfg.SessionCookie,
	}
}

// Authenticate accepts a Bearer token, or the session cookie for browser
// redirects that cannot carry a header.
func (a *Auth) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw := extractBearerToken(r)
		if raw == "" && a.cookie != "" {
			if c, err := r.Cookie(a.cookie); err == nil {
				raw = c.Value
			}
		}
		if raw == "" {
			response.Error(w, http.StatusUnauthorized,
				"UNAUTHORIZED", "Missing or invalid Authorization header", nil)
			return
		}

		session, err := a.verify(raw)
		if err != nil {
			code := "INVALID_TOKEN"
			if errors.Is(err, jwt.ErrTokenExpired) {
				code = "TOKEN_EXPIRED"
			}
			response.Error(w, http.StatusUnauthorized, code, "Invalid or expired session", nil)
			return
		}

		next.ServeHTTP(w, r.WithContext(SetSession(r.Context(), session)))
	})
}

func (a *Auth) verify(raw string) (models.Session, error) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
	}
	if a.audience != "" {
		opts = append(opts, jwt.WithAudience(a.audience))
	}

	var claims SessionClaims
	if _, err := jwt.ParseWithClaims(raw, &claims, func(*jwt.Token) (any, error) {
		return a.secret, nil
	}, opts...); err != nil {
		return models.Session{}, err
	}

	userID, err := uuid.Parse(claims.Subject)
	if err != nil {
		return models.Session{}, errors.New("subject is not a user id")
	}
	return models.Session{UserID: userID, Email: claims.Email}, nil
}

func extractBearerToken(r *http.Request) string {
	auth := r.Header.Get("Authorization")
	if auth == "" {
		return ""
	}
	parts := strings.SplitN(auth, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}
