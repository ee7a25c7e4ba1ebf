package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/google/uuid"
	"github.com/hazelquimpo21/thecleverkit-sub001/internal/api/response"
	"github.com/hazelquimpo21/thecleverkit-sub001/internal/google"
	"github.com/hazelquimpo21/thecleverkit-sub001/internal/store"
	"github.com/hazelquimpo21/thecleverkit-sub001/pkg/models"
)

// GoogleService is what the connection and export handlers need from google.Service.
type GoogleService interface {
	Initiate(ctx context.Context, session models.Session) (string, error)
	Callback(ctx context.Context, session models.Session, state, code, oauthError string) error
	CallbackRedirect(err error) string
	Status(ctx context.Context, session models.Session) (*google.ConnectionStatus, error)
	Disconnect(ctx context.Context, session models.Session) error
	Export(ctx context.Context, session models.Session, docID uuid.UUID) (*google.ExportResult, error)
}

// NewGoogleInitiateHandler returns an http.HandlerFunc for GET /api/v1/oauth/google/initiate.
func NewGoogleInitiateHandler(svc GoogleService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		session, ok := requireSession(w, r)
		if !ok {
			return
		}
		authURL, err := svc.Initiate(r.Context(), session)
		if err != nil {
			writeServiceError(w, r, err)
			return
		}
		response.OK(w, response.Fields{"authUrl": authURL})
	}
}

// NewGoogleCallbackHandler returns an http.HandlerFunc for GET /api/v1/oauth/google/callback.
// It always answers with a redirect back to the app.
func NewGoogleCallbackHandler(svc GoogleService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		session, ok := requireSession(w, r)
		if !ok {
			return
		}
		q := r.URL.Query()
		err := svc.Callback(r.Context(), session, q.Get("state"), q.Get("code"), q.Get("error"))
		if err != nil {
			slog.Warn("google oauth callback failed",
				"user_id", session.UserID, "reason", google.CallbackErrorCode(err), "error", err)
		}
		http.Redirect(w, r, svc.CallbackRedirect(err), http.StatusFound)
	}
}

// NewGoogleStatusHandler returns an http.HandlerFunc for GET /api/v1/oauth/google/status.
func NewGoogleStatusHandler(svc GoogleService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		session, ok := requireSession(w, r)
		if !ok {
			return
		}
		st, err := svc.Status(r.Context(), session)
		if err != nil {
			writeServiceError(w, r, err)
			return
		}
		fields := response.Fields{"connected": st.Connected}
		if st.Email != "" {
			fields["email"] = st.Email
		}
		if st.ConnectedAt != nil {
			fields["connectedAt"] = st.ConnectedAt
		}
		response.OK(w, fields)
	}
}

// NewGoogleDisconnectHandler returns an http.HandlerFunc for POST /api/v1/oauth/google/disconnect.
func NewGoogleDisconnectHandler(svc GoogleService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		session, ok := requireSession(w, r)
		if !ok {
			return
		}
		if err := svc.Disconnect(r.Context(), session); err != nil {
			if errors.Is(err, google.ErrNotConnected) {
				response.Error(w, http.StatusBadRequest, "NOT_CONNECTED", "No Google account is connected", nil)
				return
			}
			writeServiceError(w, r, err)
			return
		}
		response.OK(w, response.Fields{"message": "Google account disconnected"})
	}
}

// NewExportHandler returns an http.HandlerFunc for POST /api/v1/export/google-docs.
func NewExportHandler(svc GoogleService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		session, ok := requireSession(w, r)
		if !ok {
			return
		}

		var req struct {
			DocID string `json:"docId"`
		}
		if !decodeBody(w, r, &req) {
			return
		}
		if req.DocID == "" {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "docId is required", nil)
			return
		}
		docID, err := uuid.Parse(req.DocID)
		if err != nil {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "docId must be a valid UUID", nil)
			return
		}

		res, err := svc.Export(r.Context(), session, docID)
		if err != nil {
			switch {
			case errors.Is(err, google.ErrNotConnected):
				response.Error(w, http.StatusBadRequest, "NOT_CONNECTED",
					"Connect a Google account before exporting", nil)
			case errors.Is(err, google.ErrReconnectRequired):
				response.Error(w, http.StatusUnauthorized, "TOKEN_EXPIRED",
					"Google access has expired, reconnect your account", nil)
			case errors.Is(err, google.ErrDocNotComplete):
				response.Error(w, http.StatusBadRequest, "DOC_NOT_COMPLETE",
					"Only completed documents can be exported", nil)
			case errors.Is(err, store.ErrNotFound):
				response.Error(w, http.StatusNotFound, "NOT_FOUND", "Document not found", nil)
			default:
				slog.Error("google docs export failed", "doc_id", docID, "error", err)
				response.Error(w, http.StatusInternalServerError, "EXPORT_FAILED", "Export to Google Docs failed", nil)
			}
			return
		}

		response.OK(w, response.Fields{
			"googleDocId":  res.GoogleDocID,
			"googleDocUrl": res.GoogleDocURL,
		})
	}
}
