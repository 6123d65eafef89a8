package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/voltlead/voltlead/internal/auth"
	billinghttp "github.com/voltlead/voltlead/internal/billing/http"
	"github.com/voltlead/voltlead/internal/catalog"
	"github.com/voltlead/voltlead/internal/deals"
	"github.com/voltlead/voltlead/internal/leads"
	"github.com/voltlead/voltlead/internal/partners"
	"github.com/voltlead/voltlead/internal/settings"
	"github.com/voltlead/voltlead/jobs"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger          *slog.Logger
	Config          *Config
	AuthService     *auth.Service
	AuthHandler     *auth.Handler
	LeadsHandler    *leads.Handler
	PartnersHandler *partners.Handler
	CatalogHandler  *catalog.Handler
	DealsHandler    *deals.Handler
	BillingHandler  *billinghttp.Handler
	SettingsHandler *settings.Handler
	JobsHandler     *jobs.Handler
}

// NewRouter constructs the chi.Router with application defaults.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger: params.Logger,
		Config: params.Config,
	}) {
		r.Use(mw)
	}

	r.Use(chimw.Logger)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	r.Route("/auth", params.AuthHandler.MountRoutes)

	r.Group(func(r chi.Router) {
		r.Use(params.AuthService.RequireToken)

		r.Route("/leads", params.LeadsHandler.MountRoutes)
		r.Route("/partners", params.PartnersHandler.MountRoutes)
		r.Route("/products", params.CatalogHandler.MountRoutes)
		r.Route("/deals", params.DealsHandler.MountRoutes)
		r.Route("/billing", params.BillingHandler.MountRoutes)
		r.Route("/settings", params.SettingsHandler.MountRoutes)
		if params.JobsHandler != nil {
			r.Route("/jobs", params.JobsHandler.MountRoutes)
		}
	})

	return r
}
