package handler

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/hazelquimpo21/thecleverkit-sub001/internal/api/response"
	"github.com/hazelquimpo21/thecleverkit-sub001/internal/brand"
	"github.com/hazelquimpo21/thecleverkit-sub001/internal/scrape"
	"github.com/hazelquimpo21/thecleverkit-sub001/pkg/models"
)

// BrandAnalyzer starts the scrape-then-analyze flow for a URL.
type BrandAnalyzer interface {
	Analyze(ctx context.Context, session models.Session, rawURL string, isOwnBrand bool) (*models.Brand, error)
}

// BrandReader reads the caller's brands.
type BrandReader interface {
	GetBrand(ctx context.Context, session models.Session, brandID uuid.UUID) (*models.Brand, error)
	ListBrands(ctx context.Context, session models.Session, limit int) ([]*models.Brand, error)
}

// NewAnalyzeHandler returns an http.HandlerFunc for POST /api/v1/brands/analyze.
func NewAnalyzeHandler(svc BrandAnalyzer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		session, ok := requireSession(w, r)
		if !ok {
			return
		}

		var req struct {
			URL        string `json:"url"`
			IsOwnBrand bool   `json:"isOwnBrand"`
		}
		if !decodeBody(w, r, &req) {
			return
		}
		if strings.TrimSpace(req.URL) == "" {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "url is required", nil)
			return
		}

		b, err := svc.Analyze(r.Context(), session, req.URL, req.IsOwnBrand)
		if err != nil {
			switch {
			case errors.Is(err, scrape.ErrInvalidURL):
				response.Error(w, http.StatusBadRequest, "INVALID_URL", "url must be a valid http(s) address", nil)
			case errors.Is(err, brand.ErrScrapeFailed):
				response.Error(w, http.StatusUnprocessableEntity, "SCRAPE_FAILED",
					"Could not read the website at that address", nil)
			default:
				writeServiceError(w, r, err)
			}
			return
		}

		response.OK(w, response.Fields{
			"brandId": b.ID,
			"message": "Analysis started",
		})
	}
}

// NewListBrandsHandler returns an http.HandlerFunc for GET /api/v1/brands.
func NewListBrandsHandler(svc BrandReader) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		session, ok := requireSession(w, r)
		if !ok {
			return
		}

		limit := 0
		if v := r.URL.Query().Get("limit"); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil || n < 1 {
				response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "limit must be a positive integer", nil)
				return
			}
			limit = n
		}

		brands, err := svc.ListBrands(r.Context(), session, limit)
		if err != nil {
			writeServiceError(w, r, err)
			return
		}
		response.OK(w, response.Fields{"brands": brands})
	}
}

// NewGetBrandHandler returns an http.HandlerFunc for GET /api/v1/brands/{brandID}.
func NewGetBrandHandler(svc BrandReader) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		session, ok := requireSession(w, r)
		if !ok {
			return
		}
		brandID, ok := uuidParam(w, r, "brandID")
		if !ok {
			return
		}

		b, err := svc.GetBrand(r.Context(), session, brandID)
		if err != nil {
			writeServiceError(w, r, err)
			return
		}
		response.OK(w, response.Fields{"brand": b})
	}
}
