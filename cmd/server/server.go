// cmd/server/server.go
package main

import (
	"fmt"
	"net/http"
	"time"

	"github.com/rmarchetti/turnera/internal/api"
	apibookings "github.com/rmarchetti/turnera/internal/api/bookings"
	"github.com/rmarchetti/turnera/internal/api/tenantpage"
	"github.com/rmarchetti/turnera/internal/booking"
	"github.com/rmarchetti/turnera/internal/config"
	"github.com/rmarchetti/turnera/internal/ratelimit"
	"github.com/rmarchetti/turnera/internal/store"
)

func newServer(
	cfg *config.Config,
	service *booking.Service,
	tenants *store.Tenants,
	bookings *store.Bookings,
	limiter *ratelimit.Limiter,
) *http.Server {
	router := http.NewServeMux()

	// Setup middleware chain
	handler := api.ChainMiddleware(
		router,
		api.WithLogging,
		api.WithRecovery,
		api.WithRequestID,
		api.WithContentType,
	)

	trustProxy := cfg.App.Environment == "production"
	apibookings.InitHandlers(service, tenants, limiter, trustProxy)
	tenantpage.InitHandlers(tenants, bookings, cfg.StaticDir)

	registerRoutes(router, cfg.StaticDir)

	return &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.App.Port),
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
}

func registerRoutes(mux *http.ServeMux, staticDir string) {
	// Health check
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	// Booking API
	mux.HandleFunc("GET /api/availability", apibookings.HandleAvailability)
	mux.HandleFunc("GET /api/booked", apibookings.HandleBookedTimes)
	mux.HandleFunc("POST /api/book", apibookings.HandleCreateBooking)
	mux.HandleFunc("DELETE /api/book", apibookings.HandleCancelBooking)
	mux.HandleFunc("GET /api/config/{tenant}", tenantpage.HandleTenantConfig)

	// Tenant pages
	mux.HandleFunc("GET /{tenant}", tenantpage.HandleTenantPage)
	mux.HandleFunc("GET /{tenant}/panel", tenantpage.HandleTenantPanel)

	// Static assets (shared form, default stylesheet, per-tenant logos)
	fs := http.FileServer(http.Dir(staticDir))
	mux.Handle("GET /static/", http.StripPrefix("/static/", fs))
}
