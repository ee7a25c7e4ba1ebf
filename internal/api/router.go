package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	mw "github.com/hazelquimpo21/thecleverkit-sub001/internal/api/middleware"
	"github.com/hazelquimpo21/thecleverkit-sub001/internal/api/response"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Dependencies holds all handler and middleware dependencies for the router.
// A nil handler is served as 503 NOT_CONFIGURED, which is how optional
// features such as Google export are switched off.
type Dependencies struct {
	Auth           *mw.Auth
	RateLimit      *mw.RateLimit
	AllowedOrigins []string

	HealthHandler http.HandlerFunc

	AnalyzeBrand      http.HandlerFunc
	ListBrands        http.HandlerFunc
	GetBrand          http.HandlerFunc
	BrandStatus       http.HandlerFunc
	BrandStatusStream http.HandlerFunc

	ListTemplates http.HandlerFunc
	GenerateDoc   http.HandlerFunc
	GetDoc        http.HandlerFunc
	ListBrandDocs http.HandlerFunc
	DocReadiness  http.HandlerFunc

	ExportGoogleDoc  http.HandlerFunc
	GoogleInitiate   http.HandlerFunc
	GoogleCallback   http.HandlerFunc
	GoogleStatus     http.HandlerFunc
	GoogleDisconnect http.HandlerFunc
}

// NewRouter builds the Chi router with middleware stack and all routes.
func NewRouter(deps Dependencies) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(mw.Recovery)
	r.Use(mw.Logger)
	r.Use(mw.Metrics)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   deps.AllowedOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders:   []string{"Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Public
	r.Get("/api/v1/health", orNotConfigured(deps.HealthHandler))
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	// Protected routes
	r.Group(func(r chi.Router) {
		r.Use(deps.Auth.Authenticate)
		r.Use(deps.RateLimit.Limit)

		r.Route("/api/v1/brands", func(r chi.Router) {
			r.Post("/analyze", orNotConfigured(deps.AnalyzeBrand))
			r.Get("/", orNotConfigured(deps.ListBrands))

			r.Route("/{brandID}", func(r chi.Router) {
				r.Get("/", orNotConfigured(deps.GetBrand))
				r.Get("/status", orNotConfigured(deps.BrandStatus))
				r.Get("/status/stream", orNotConfigured(deps.BrandStatusStream))
				r.Get("/docs", orNotConfigured(deps.ListBrandDocs))
				r.Get("/docs/readiness", orNotConfigured(deps.DocReadiness))
			})
		})

		r.Get("/api/v1/docs/templates", orNotConfigured(deps.ListTemplates))
		r.Post("/api/v1/docs/generate", orNotConfigured(deps.GenerateDoc))
		r.Get("/api/v1/docs/{docID}", orNotConfigured(deps.GetDoc))

		r.Post("/api/v1/export/google-docs", orNotConfigured(deps.ExportGoogleDoc))

		r.Route("/api/v1/oauth/google", func(r chi.Router) {
			r.Get("/initiate", orNotConfigured(deps.GoogleInitiate))
			r.Get("/callback", orNotConfigured(deps.GoogleCallback))
			r.Get("/status", orNotConfigured(deps.GoogleStatus))
			r.Post("/disconnect", orNotConfigured(deps.GoogleDisconnect))
		})
	})

	return r
}

// orNotConfigured returns the handler if non-nil, or a 503 placeholder.
func orNotConfigured(h http.HandlerFunc) http.HandlerFunc {
	if h != nil {
		return h
	}
	return func(w http.ResponseWriter, r *http.Request) {
		response.Error(w, http.StatusServiceUnavailable, "NOT_CONFIGURED",
			"This feature is not configured on this server", nil)
	}
}
