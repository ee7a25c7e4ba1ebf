package google

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// StateTTL is how long a user has to complete the consent screen.
const StateTTL = 10 * time.Minute

const stateAudience = "google-oauth-state"

var (
	ErrStateInvalid  = errors.New("invalid oauth state")
	ErrStateExpired  = errors.New("oauth state expired")
	ErrStateMismatch = errors.New("oauth state issued to a different user")
	ErrStateReused   = errors.New("oauth state already used")
)

// StateSigner issues and checks the HS256 state parameter of the consent
// redirect. The token carries the user id and the issue time.
type StateSigner struct {
	secret []byte
	now    func() time.Time
}

func NewStateSigner(secret []byte) *StateSigner {
	return &StateSigner{secret: secret, now: time.Now}
}

// Sign returns a state token for userID.
func (s *StateSigner) Sign(userID uuid.UUID) (string, error) {
	claims := jwt.RegisteredClaims{
		Subject:  userID.String(),
		Audience: jwt.ClaimStrings{stateAudience},
		IssuedAt: jwt.NewNumericDate(s.now()),
		ID:       uuid.NewString(),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("signing oauth state: %w", err)
	}
	return signed, nil
}

// Verify checks the signature, the owner and the age of a state token and
// returns its id for replay protection. Exactly StateTTL old is still valid.
func (s *StateSigner) Verify(token string, userID uuid.UUID) (string, error) {
	var claims jwt.RegisteredClaims
	_, err := jwt.ParseWithClaims(token, &claims, func(*jwt.Token) (any, error) {
		return s.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithAudience(stateAudience),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrStateInvalid, err)
	}
	if claims.IssuedAt == nil || claims.ID == "" {
		return "", fmt.Errorf("%w: missing claims", ErrStateInvalid)
	}
	if claims.Subject != userID.String() {
		return "", ErrStateMismatch
	}
	if s.now().Sub(claims.IssuedAt.Time) > StateTTL {
		return "", ErrStateExpired
	}
	return claims.ID, nil
}
