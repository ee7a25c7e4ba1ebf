package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/hazelquimpo21/thecleverkit-sub001/internal/api/response"
	"github.com/hazelquimpo21/thecleverkit-sub001/internal/docs"
	"github.com/hazelquimpo21/thecleverkit-sub001/pkg/models"
)

// DocService is what the document handlers need from docs.Service.
type DocService interface {
	ListTemplates() []docs.Template
	Readiness(ctx context.Context, session models.Session, brandID uuid.UUID, templateID string) (*docs.Readiness, error)
	GenerateDoc(ctx context.Context, session models.Session, brandID uuid.UUID, templateID string) (*models.GeneratedDoc, error)
	GetDoc(ctx context.Context, session models.Session, docID uuid.UUID) (*models.GeneratedDoc, error)
	ListDocs(ctx context.Context, session models.Session, brandID uuid.UUID) ([]*models.GeneratedDoc, error)
}

// NewTemplatesHandler returns an http.HandlerFunc for GET /api/v1/docs/templates.
func NewTemplatesHandler(svc DocService) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		response.OK(w, response.Fields{"templates": svc.ListTemplates()})
	}
}

// NewGenerateDocHandler returns an http.HandlerFunc for POST /api/v1/docs/generate.
// Generation runs inside the request.
func NewGenerateDocHandler(svc DocService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		session, ok := requireSession(w, r)
		if !ok {
			return
		}

		var req struct {
			BrandID    string `json:"brandId"`
			TemplateID string `json:"templateId"`
		}
		if !decodeBody(w, r, &req) {
			return
		}
		if req.BrandID == "" || strings.TrimSpace(req.TemplateID) == "" {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "brandId and templateId are required", nil)
			return
		}
		brandID, err := uuid.Parse(req.BrandID)
		if err != nil {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "brandId must be a valid UUID", nil)
			return
		}

		doc, err := svc.GenerateDoc(r.Context(), session, brandID, req.TemplateID)
		if err != nil {
			var notReady *docs.ReadinessError
			switch {
			case errors.As(err, &notReady):
				response.Error(w, http.StatusUnprocessableEntity, "NOT_READY",
					"The brand is missing analysis this template needs", notReady.Readiness)
			case errors.Is(err, docs.ErrUnknownTemplate):
				response.Error(w, http.StatusBadRequest, "UNKNOWN_TEMPLATE", "Unknown templateId", nil)
			case errors.Is(err, docs.ErrGeneration) && doc != nil:
				slog.Error("document generation failed",
					"doc_id", doc.ID, "template_id", doc.TemplateID, "error", err)
				response.Error(w, http.StatusInternalServerError, "GENERATION_FAILED",
					"Document generation failed", map[string]any{"docId": doc.ID})
			default:
				writeServiceError(w, r, err)
			}
			return
		}

		response.OK(w, response.Fields{
			"docId":   doc.ID,
			"message": "Document generated",
		})
	}
}

// NewGetDocHandler returns an http.HandlerFunc for GET /api/v1/docs/{docID}.
func NewGetDocHandler(svc DocService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		session, ok := requireSession(w, r)
		if !ok {
			return
		}
		docID, ok := uuidParam(w, r, "docID")
		if !ok {
			return
		}

		doc, err := svc.GetDoc(r.Context(), session, docID)
		if err != nil {
			writeServiceError(w, r, err)
			return
		}
		response.OK(w, response.Fields{"doc": doc})
	}
}

// NewListDocsHandler returns an http.HandlerFunc for GET /api/v1/brands/{brandID}/docs.
func NewListDocsHandler(svc DocService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		session, ok := requireSession(w, r)
		if !ok {
			return
		}
		brandID, ok := uuidParam(w, r, "brandID")
		if !ok {
			return
		}

		list, err := svc.ListDocs(r.Context(), session, brandID)
		if err != nil {
			writeServiceError(w, r, err)
			return
		}
		response.OK(w, response.Fields{"docs": list})
	}
}

// NewReadinessHandler returns an http.HandlerFunc for
// GET /api/v1/brands/{brandID}/docs/readiness?templateId=.
func NewReadinessHandler(svc DocService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		session, ok := requireSession(w, r)
		if !ok {
			return
		}
		brandID, ok := uuidParam(w, r, "brandID")
		if !ok {
			return
		}
		templateID := r.URL.Query().Get("templateId")
		if templateID == "" {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "templateId is required", nil)
			return
		}

		res, err := svc.Readiness(r.Context(), session, brandID, templateID)
		if err != nil {
			if errors.Is(err, docs.ErrUnknownTemplate) {
				response.Error(w, http.StatusBadRequest, "UNKNOWN_TEMPLATE", "Unknown templateId", nil)
				return
			}
			writeServiceError(w, r, err)
			return
		}
		response.OK(w, response.Fields{
			"is_ready":          res.IsReady,
			"missing_analyzers": res.MissingAnalyzers,
			"missing_fields":    res.MissingFields,
		})
	}
}
