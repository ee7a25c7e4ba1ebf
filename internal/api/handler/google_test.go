package handler

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/hazelquimpo21/thecleverkit-sub001/internal/google"
	"github.com/hazelquimpo21/thecleverkit-sub001/internal/store"
	"github.com/hazelquimpo21/thecleverkit-sub001/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --- mock google service ---

type mockGoogle struct {
	callbackErr   error
	callbackArgs  []string
	status        *google.ConnectionStatus
	disconnectErr error
	exportErr     error
	exportedDoc   uuid.UUID
}

func (m *mockGoogle) Initiate(context.Context, models.Session) (string, error) {
	return "https://accounts.google.com/o/oauth2/auth?state=abc", nil
}

func (m *mockGoogle) Callback(_ context.Context, _ models.Session, state, code, oauthError string) error {
	m.callbackArgs = []string{state, code, oauthError}
	return m.callbackErr
}

func (m *mockGoogle) CallbackRedirect(err error) string {
	if err == nil {
		return "http://app.test/settings?google=connected"
	}
	return "http://app.test/settings?google_error=" + google.CallbackErrorCode(err)
}

func (m *mockGoogle) Status(context.Context, models.Session) (*google.ConnectionStatus, error) {
	return m.status, nil
}

func (m *mockGoogle) Disconnect(context.Context, models.Session) error {
	return m.disconnectErr
}

func (m *mockGoogle) Export(_ context.Context, _ models.Session, docID uuid.UUID) (*google.ExportResult, error) {
	m.exportedDoc = docID
	if m.exportErr != nil {
		return nil, m.exportErr
	}
	return &google.ExportResult{
		GoogleDocID:  "gdoc-1",
		GoogleDocURL: "https://docs.google.com/document/d/gdoc-1/edit",
	}, nil
}

// --- tests ---

func TestGoogleInitiateHandler(t *testing.T) {
	rec := httptest.NewRecorder()
	NewGoogleInitiateHandler(&mockGoogle{}).ServeHTTP(rec, newRequest(t, http.MethodGet, "/", nil, nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, decode(t, rec)["authUrl"], "state=abc")
}

func TestGoogleCallbackHandler_Redirects(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		location string
	}{
		{"connected", nil, "http://app.test/settings?google=connected"},
		{"expired state", google.ErrStateExpired, "http://app.test/settings?google_error=state_expired"},
		{"denied", fmt.Errorf("%w: access_denied", google.ErrAccessDenied), "http://app.test/settings?google_error=access_denied"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &mockGoogle{callbackErr: tt.err}
			rec := httptest.NewRecorder()
			NewGoogleCallbackHandler(svc).ServeHTTP(rec,
				newRequest(t, http.MethodGet, "/?state=s1&code=c1", nil, nil))

			assert.Equal(t, http.StatusFound, rec.Code)
			assert.Equal(t, tt.location, rec.Header().Get("Location"))
			assert.Equal(t, []string{"s1", "c1", ""}, svc.callbackArgs)
		})
	}
}

func TestGoogleStatusHandler(t *testing.T) {
	t.Run("connected", func(t *testing.T) {
		at := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
		svc := &mockGoogle{status: &google.ConnectionStatus{Connected: true, Email: "me@example.com", ConnectedAt: &at}}
		rec := httptest.NewRecorder()
		NewGoogleStatusHandler(svc).ServeHTTP(rec, newRequest(t, http.MethodGet, "/", nil, nil))

		require.Equal(t, http.StatusOK, rec.Code)
		body := decode(t, rec)
		assert.Equal(t, true, body["connected"])
		assert.Equal(t, "me@example.com", body["email"])
		assert.Equal(t, "2026-01-02T03:04:05Z", body["connectedAt"])
	})

	t.Run("not connected", func(t *testing.T) {
		svc := &mockGoogle{status: &google.ConnectionStatus{}}
		rec := httptest.NewRecorder()
		NewGoogleStatusHandler(svc).ServeHTTP(rec, newRequest(t, http.MethodGet, "/", nil, nil))

		body := decode(t, rec)
		assert.Equal(t, false, body["connected"])
		assert.NotContains(t, body, "email")
		assert.NotContains(t, body, "connectedAt")
	})
}

func TestGoogleDisconnectHandler(t *testing.T) {
	rec := httptest.NewRecorder()
	NewGoogleDisconnectHandler(&mockGoogle{}).ServeHTTP(rec, newRequest(t, http.MethodPost, "/", nil, nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	NewGoogleDisconnectHandler(&mockGoogle{disconnectErr: google.ErrNotConnected}).
		ServeHTTP(rec, newRequest(t, http.MethodPost, "/", nil, nil))
	assert.Equal(t, "NOT_CONNECTED", errorCode(t, rec, http.StatusBadRequest))
}

func TestExportHandler_Success(t *testing.T) {
	docID := uuid.New()
	svc := &mockGoogle{}
	rec := httptest.NewRecorder()
	NewExportHandler(svc).ServeHTTP(rec, newRequest(t, http.MethodPost, "/api/v1/export/google-docs",
		map[string]any{"docId": docID.String()}, nil))

	require.Equal(t, http.StatusOK, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, "gdoc-1", body["googleDocId"])
	assert.Equal(t, "https://docs.google.com/document/d/gdoc-1/edit", body["googleDocUrl"])
	assert.Equal(t, docID, svc.exportedDoc)
}

func TestExportHandler_Errors(t *testing.T) {
	tests := []struct {
		name   string
		body   any
		err    error
		status int
		code   string
	}{
		{"missing doc id", map[string]any{}, nil, http.StatusBadRequest, "INVALID_REQUEST"},
		{"bad doc id", map[string]any{"docId": "nope"}, nil, http.StatusBadRequest, "INVALID_REQUEST"},
		{"not connected", nil, google.ErrNotConnected, http.StatusBadRequest, "NOT_CONNECTED"},
		{"reconnect", nil, fmt.Errorf("refreshing: %w", google.ErrReconnectRequired), http.StatusUnauthorized, "TOKEN_EXPIRED"},
		{"doc not complete", nil, google.ErrDocNotComplete, http.StatusBadRequest, "DOC_NOT_COMPLETE"},
		{"doc not found", nil, store.ErrNotFound, http.StatusNotFound, "NOT_FOUND"},
		{"docs api failure", nil, errors.New("googleapi: 500"), http.StatusInternalServerError, "EXPORT_FAILED"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			body := tt.body
			if body == nil {
				body = map[string]any{"docId": uuid.NewString()}
			}
			rec := httptest.NewRecorder()
			NewExportHandler(&mockGoogle{exportErr: tt.err}).ServeHTTP(rec,
				newRequest(t, http.MethodPost, "/", body, nil))
			assert.Equal(t, tt.code, errorCode(t, rec, tt.status))
		})
	}
}
