// Package google connects a user's Google account and exports generated
// documents to Google Docs.
package google

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"time"

	"github.com/google/uuid"
	"github.com/hazelquimpo21/thecleverkit-sub001/internal/cache"
	"github.com/hazelquimpo21/thecleverkit-sub001/internal/metrics"
	"github.com/hazelquimpo21/thecleverkit-sub001/internal/store"
	"github.com/hazelquimpo21/thecleverkit-sub001/pkg/models"
	"golang.org/x/oauth2"
)

var (
	ErrNotConnected      = errors.New("google account not connected")
	ErrReconnectRequired = errors.New("google authorization expired, reconnect required")
	ErrDocNotComplete    = errors.New("document is not complete")
	ErrAccessDenied      = errors.New("google consent was denied")
	ErrNoRefreshToken    = errors.New("google did not return a refresh token")
)

// ConnectionStatus is what the settings page shows.
type ConnectionStatus struct {
	Connected   bool       `json:"connected"`
	Email       string     `json:"email,omitempty"`
	ConnectedAt *time.Time `json:"connectedAt,omitempty"`
}

type ExportResult struct {
	GoogleDocID  string `json:"googleDocId"`
	GoogleDocURL string `json:"googleDocUrl"`
}

type Service struct {
	store      store.Store
	admin      store.AdminStore
	api        API
	states     *StateSigner
	nonces     cache.Cache
	cipher     *TokenCipher
	appBaseURL string
	metrics    *metrics.Metrics
	now        func() time.Time
}

func NewService(st store.Store, admin store.AdminStore, api API, states *StateSigner, nonces cache.Cache, cipher *TokenCipher, appBaseURL string) *Service {
	return &Service{
		store:      st,
		admin:      admin,
		api:        api,
		states:     states,
		nonces:     nonces,
		cipher:     cipher,
		appBaseURL: appBaseURL,
		metrics:    metrics.New(),
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// Initiate returns the consent URL for the session's user.
func (s *Service) Initiate(_ context.Context, session models.Session) (string, error) {
	state, err := s.states.Sign(session.UserID)
	if err != nil {
		return "", err
	}
	return s.api.AuthCodeURL(state), nil
}

// Callback completes the consent redirect: it checks the state, exchanges
// code for tokens and stores the encrypted refresh token.
func (s *Service) Callback(ctx context.Context, session models.Session, state, code, oauthError string) error {
	if oauthError != "" {
		return fmt.Errorf("%w: %s", ErrAccessDenied, oauthError)
	}

	jti, err := s.states.Verify(state, session.UserID)
	if err != nil {
		return err
	}
	first, err := s.nonces.SetIfAbsent(ctx, cache.OAuthStateKey(jti), []byte(session.UserID.String()), StateTTL)
	if err != nil {
		return fmt.Errorf("recording oauth state: %w", err)
	}
	if !first {
		return ErrStateReused
	}

	tok, err := s.api.Exchange(ctx, code)
	if err != nil {
		return fmt.Errorf("exchanging code: %w", err)
	}
	if tok.RefreshToken == "" {
		return ErrNoRefreshToken
	}

	email, err := s.api.UserEmail(ctx, oauth2.StaticTokenSource(tok))
	if err != nil {
		slog.Warn("could not read google account email", "user_id", session.UserID, "error", err)
	}

	sealed, err := s.cipher.Encrypt(tok.RefreshToken)
	if err != nil {
		return err
	}
	now := s.now()
	if err := s.store.SaveGoogleConnection(ctx, &models.GoogleConnection{
		UserID:       session.UserID,
		Email:        email,
		RefreshToken: sealed,
		ConnectedAt:  now,
		UpdatedAt:    now,
	}); err != nil {
		return fmt.Errorf("saving google connection: %w", err)
	}

	slog.Info("google account connected", "user_id", session.UserID)
	return nil
}

// CallbackRedirect is where the browser goes after Callback returns err.
func (s *Service) CallbackRedirect(err error) string {
	q := url.Values{}
	if err == nil {
		q.Set("google", models.GoogleStateConnected)
	} else {
		q.Set("google_error", CallbackErrorCode(err))
	}
	return s.appBaseURL + "/settings?" + q.Encode()
}

// CallbackErrorCode maps a Callback error to the code shown to the user.
func CallbackErrorCode(err error) string {
	switch {
	case errors.Is(err, ErrAccessDenied):
		return "access_denied"
	case errors.Is(err, ErrStateExpired):
		return "state_expired"
	case errors.Is(err, ErrStateMismatch), errors.Is(err, ErrStateInvalid), errors.Is(err, ErrStateReused):
		return "invalid_state"
	case errors.Is(err, ErrNoRefreshToken):
		return "no_refresh_token"
	default:
		return "connection_failed"
	}
}

func (s *Service) Status(ctx context.Context, session models.Session) (*ConnectionStatus, error) {
	conn, err := s.store.GetGoogleConnection(ctx, session.UserID)
	if errors.Is(err, store.ErrNotFound) {
		return &ConnectionStatus{Connected: false}, nil
	}
	if err != nil {
		return nil, err
	}
	at := conn.ConnectedAt
	return &ConnectionStatus{Connected: true, Email: conn.Email, ConnectedAt: &at}, nil
}

// Disconnect revokes the stored refresh token at Google when possible and
// then deletes it. Without a stored token nothing is revoked.
func (s *Service) Disconnect(ctx context.Context, session models.Session) error {
	conn, err := s.store.GetGoogleConnection(ctx, session.UserID)
	if errors.Is(err, store.ErrNotFound) {
		return ErrNotConnected
	}
	if err != nil {
		return err
	}
	logger := slog.With("user_id", session.UserID)

	if token, err := s.cipher.Decrypt(conn.RefreshToken); err != nil {
		logger.Warn("skipping revoke of undecryptable token", "error", err)
	} else if err := s.api.Revoke(ctx, token); err != nil {
		logger.Warn("google token revoke failed", "error", err)
	}

	if err := s.store.DeleteGoogleConnection(ctx, session.UserID); err != nil && !errors.Is(err, store.ErrNotFound) {
		return fmt.Errorf("deleting google connection: %w", err)
	}
	logger.Info("google account disconnected")
	return nil
}

// Export creates a Google Doc from a completed generated doc and records the
// link on it.
func (s *Service) Export(ctx context.Context, session models.Session, docID uuid.UUID) (res *ExportResult, err error) {
	defer func() {
		s.metrics.ExportsTotal.WithLabelValues(exportOutcome(err)).Inc()
	}()

	doc, err := s.store.GetGeneratedDoc(ctx, docID, session.UserID)
	if err != nil {
		return nil, err
	}
	if doc.Status != models.DocStatusComplete || doc.ContentMarkdown == nil {
		return nil, ErrDocNotComplete
	}

	conn, err := s.store.GetGoogleConnection(ctx, session.UserID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrNotConnected
	}
	if err != nil {
		return nil, err
	}
	refresh, err := s.cipher.Decrypt(conn.RefreshToken)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrReconnectRequired, err)
	}

	ts := s.api.TokenSource(ctx, refresh)
	if _, err := ts.Token(); err != nil {
		return nil, classifyTokenError(err)
	}

	id, link, err := s.api.CreateDoc(ctx, ts, doc.Title, *doc.ContentMarkdown)
	if err != nil {
		return nil, classifyTokenError(err)
	}

	if err := s.admin.MarkDocExported(ctx, doc.ID, id, link, s.now()); err != nil {
		return nil, fmt.Errorf("recording export: %w", err)
	}
	slog.Info("document exported", "doc_id", doc.ID, "google_doc_id", id)
	return &ExportResult{GoogleDocID: id, GoogleDocURL: link}, nil
}

// classifyTokenError separates a refused refresh from other failures.
func classifyTokenError(err error) error {
	var re *oauth2.RetrieveError
	if errors.As(err, &re) {
		return fmt.Errorf("%w: %v", ErrReconnectRequired, err)
	}
	return fmt.Errorf("google export: %w", err)
}

func exportOutcome(err error) string {
	switch {
	case err == nil:
		return "success"
	case errors.Is(err, ErrNotConnected):
		return "not_connected"
	case errors.Is(err, ErrReconnectRequired):
		return "reconnect_required"
	default:
		return "error"
	}
}
