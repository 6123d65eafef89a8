package billinghttp

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/httprate"
)

// MountRoutes registers billing endpoints onto the router.
func (h *Handler) MountRoutes(r chi.Router) {
	if h == nil {
		return
	}
	limiter := httprate.Limit(10, time.Minute,
		httprate.WithKeyFuncs(httprate.KeyByIP),
		httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, http.StatusText(http.StatusTooManyRequests), http.StatusTooManyRequests)
		}),
	)

	r.Get("/invoicing", h.handleOverview)
	r.Get("/invoicing/lines", h.handleLines)
	r.Post("/breakdown", h.handleBreakdown)
	r.Group(func(gr chi.Router) {
		gr.Use(limiter)
		gr.Get("/invoicing/export.csv", h.handleExportCSV)
	})
}
