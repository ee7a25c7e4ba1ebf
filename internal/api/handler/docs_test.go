package handler

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/hazelquimpo21/thecleverkit-sub001/internal/docs"
	"github.com/hazelquimpo21/thecleverkit-sub001/internal/store"
	"github.com/hazelquimpo21/thecleverkit-sub001/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --- mock doc service ---

type mockDocs struct {
	generate  func(brandID uuid.UUID, templateID string) (*models.GeneratedDoc, error)
	readiness func(templateID string) (*docs.Readiness, error)
	doc       *models.GeneratedDoc
	list      []*models.GeneratedDoc
	err       error
}

func (m *mockDocs) ListTemplates() []docs.Template {
	return docs.DefaultCatalog().List()
}

func (m *mockDocs) Readiness(_ context.Context, _ models.Session, _ uuid.UUID, templateID string) (*docs.Readiness, error) {
	return m.readiness(templateID)
}

func (m *mockDocs) GenerateDoc(_ context.Context, _ models.Session, brandID uuid.UUID, templateID string) (*models.GeneratedDoc, error) {
	return m.generate(brandID, templateID)
}

func (m *mockDocs) GetDoc(_ context.Context, _ models.Session, docID uuid.UUID) (*models.GeneratedDoc, error) {
	if m.doc == nil || m.doc.ID != docID {
		return nil, store.ErrNotFound
	}
	return m.doc, nil
}

func (m *mockDocs) ListDocs(_ context.Context, _ models.Session, _ uuid.UUID) ([]*models.GeneratedDoc, error) {
	return m.list, m.err
}

// --- tests ---

func TestTemplatesHandler(t *testing.T) {
	rec := httptest.NewRecorder()
	NewTemplatesHandler(&mockDocs{}).ServeHTTP(rec, newRequest(t, http.MethodGet, "/", nil, nil))

	require.Equal(t, http.StatusOK, rec.Code)
	templates := decode(t, rec)["templates"].([]any)
	require.NotEmpty(t, templates)
	first := templates[0].(map[string]any)
	assert.Equal(t, "brand_brief", first["id"])
	assert.NotContains(t, first, "outline")
}

func TestGenerateDocHandler_Success(t *testing.T) {
	brandID := uuid.New()
	docID := uuid.New()
	var gotBrand uuid.UUID
	var gotTemplate string
	h := NewGenerateDocHandler(&mockDocs{generate: func(b uuid.UUID, tmpl string) (*models.GeneratedDoc, error) {
		gotBrand, gotTemplate = b, tmpl
		return &models.GeneratedDoc{ID: docID, Status: models.DocStatusComplete}, nil
	}})

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, newRequest(t, http.MethodPost, "/api/v1/docs/generate",
		map[string]any{"brandId": brandID.String(), "templateId": "brand_brief"}, nil))

	require.Equal(t, http.StatusOK, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, docID.String(), body["docId"])
	assert.Equal(t, brandID, gotBrand)
	assert.Equal(t, "brand_brief", gotTemplate)
}

func TestGenerateDocHandler_NotReadyCarriesDetails(t *testing.T) {
	h := NewGenerateDocHandler(&mockDocs{generate: func(uuid.UUID, string) (*models.GeneratedDoc, error) {
		return nil, &docs.ReadinessError{Readiness: docs.Readiness{
			MissingAnalyzers: []models.AnalyzerType{models.AnalyzerBasics},
			MissingFields:    []string{"customer.pain_points"},
		}}
	}})

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, newRequest(t, http.MethodPost, "/",
		map[string]any{"brandId": uuid.NewString(), "templateId": "brand_brief"}, nil))

	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, "NOT_READY", body["code"])
	details := body["details"].(map[string]any)
	assert.Equal(t, []any{"basics"}, details["missing_analyzers"])
	assert.Equal(t, []any{"customer.pain_points"}, details["missing_fields"])
}

func TestGenerateDocHandler_GenerationFailureReturnsDocID(t *testing.T) {
	docID := uuid.New()
	h := NewGenerateDocHandler(&mockDocs{generate: func(uuid.UUID, string) (*models.GeneratedDoc, error) {
		return &models.GeneratedDoc{ID: docID, Status: models.DocStatusError},
			fmt.Errorf("%w: outline stage: boom", docs.ErrGeneration)
	}})

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, newRequest(t, http.MethodPost, "/",
		map[string]any{"brandId": uuid.NewString(), "templateId": "brand_brief"}, nil))

	require.Equal(t, http.StatusInternalServerError, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, "GENERATION_FAILED", body["code"])
	assert.Equal(t, docID.String(), body["details"].(map[string]any)["docId"])
}

func TestGenerateDocHandler_Errors(t *testing.T) {
	tests := []struct {
		name   string
		body   any
		err    error
		status int
		code   string
	}{
		{"malformed", "nope", nil, http.StatusBadRequest, "INVALID_REQUEST"},
		{"missing template", map[string]any{"brandId": uuid.NewString()}, nil, http.StatusBadRequest, "INVALID_REQUEST"},
		{"bad brand id", map[string]any{"brandId": "x", "templateId": "brand_brief"}, nil, http.StatusBadRequest, "INVALID_REQUEST"},
		{"unknown template", map[string]any{"brandId": uuid.NewString(), "templateId": "nope"}, fmt.Errorf("%w: nope", docs.ErrUnknownTemplate), http.StatusBadRequest, "UNKNOWN_TEMPLATE"},
		{"not owner", map[string]any{"brandId": uuid.NewString(), "templateId": "brand_brief"}, store.ErrNotFound, http.StatusNotFound, "NOT_FOUND"},
		{"unexpected", map[string]any{"brandId": uuid.NewString(), "templateId": "brand_brief"}, errors.New("db"), http.StatusInternalServerError, "INTERNAL_ERROR"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewGenerateDocHandler(&mockDocs{generate: func(uuid.UUID, string) (*models.GeneratedDoc, error) {
				return nil, tt.err
			}})
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, newRequest(t, http.MethodPost, "/", tt.body, nil))
			assert.Equal(t, tt.code, errorCode(t, rec, tt.status))
		})
	}
}

func TestGetDocHandler(t *testing.T) {
	doc := &models.GeneratedDoc{ID: uuid.New(), TemplateID: "brand_brief", Status: models.DocStatusComplete}
	h := NewGetDocHandler(&mockDocs{doc: doc})

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, newRequest(t, http.MethodGet, "/", nil, map[string]string{"docID": doc.ID.String()}))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "brand_brief", decode(t, rec)["doc"].(map[string]any)["template_id"])

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, newRequest(t, http.MethodGet, "/", nil, map[string]string{"docID": uuid.NewString()}))
	assert.Equal(t, "NOT_FOUND", errorCode(t, rec, http.StatusNotFound))
}

func TestListDocsHandler(t *testing.T) {
	h := NewListDocsHandler(&mockDocs{list: []*models.GeneratedDoc{}})
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, newRequest(t, http.MethodGet, "/", nil, map[string]string{"brandID": uuid.NewString()}))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []any{}, decode(t, rec)["docs"])
}

func TestListDocsHandler_ForeignBrand(t *testing.T) {
	h := NewListDocsHandler(&mockDocs{err: store.ErrNotFound})
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, newRequest(t, http.MethodGet, "/", nil, map[string]string{"brandID": uuid.NewString()}))

	assert.Equal(t, "NOT_FOUND", errorCode(t, rec, http.StatusNotFound))
}

func TestReadinessHandler(t *testing.T) {
	var gotTemplate string
	h := NewReadinessHandler(&mockDocs{readiness: func(tmpl string) (*docs.Readiness, error) {
		gotTemplate = tmpl
		if tmpl == "nope" {
			return nil, docs.ErrUnknownTemplate
		}
		return &docs.Readiness{IsReady: true, MissingAnalyzers: []models.AnalyzerType{}, MissingFields: []string{}}, nil
	}})
	params := map[string]string{"brandID": uuid.NewString()}

	t.Run("ready", func(t *testing.T) {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, newRequest(t, http.MethodGet, "/?templateId=customer_persona", nil, params))
		require.Equal(t, http.StatusOK, rec.Code)
		body := decode(t, rec)
		assert.Equal(t, true, body["is_ready"])
		assert.Equal(t, []any{}, body["missing_fields"])
		assert.Equal(t, "customer_persona", gotTemplate)
	})

	t.Run("missing template id", func(t *testing.T) {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, newRequest(t, http.MethodGet, "/", nil, params))
		assert.Equal(t, "INVALID_REQUEST", errorCode(t, rec, http.StatusBadRequest))
	})

	t.Run("unknown template", func(t *testing.T) {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, newRequest(t, http.MethodGet, "/?templateId=nope", nil, params))
		assert.Equal(t, "UNKNOWN_TEMPLATE", errorCode(t, rec, http.StatusBadRequest))
	})
}
