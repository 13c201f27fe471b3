// Package web serves the dashboard page, its form actions and the JSON API.
package web

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/sloppy/homenetsafe/internal/dashboard"
	"github.com/sloppy/homenetsafe/internal/notify"
)

// NoticeBoard exposes the currently visible notice.
type NoticeBoard interface {
	Current() (notify.Notice, bool)
}

// Server wires the web handlers and dependencies.
type Server struct {
	Dashboard *dashboard.Service
	Notices   NoticeBoard
	Logger    zerolog.Logger
	Router    chi.Router
	now       func() time.Time
}

// NewServer constructs the router and registers routes.
func NewServer(svc *dashboard.Service, notices NoticeBoard, logger zerolog.Logger) *Server {
	server := &Server{
		Dashboard: svc,
		Notices:   notices,
		Logger:    logger,
		now:       time.Now,
	}

	r := chi.NewRouter()
	r.Use(server.logRequests)
	r.Use(originGuard)

	r.Get("/", server.handleDashboard)
	r.Post("/scan", server.handleScan)
	r.Post("/devices/register", server.handleRegisterForm)
	r.Post("/devices/unregister", server.handleUnregisterForm)
	r.Post("/manual-devices/add", server.handleManualAddForm)
	r.Post("/manual-devices/{id}/remove", server.handleManualRemoveForm)
	r.Get("/export", server.handleExport)

	r.Get("/health", server.handleHealth)
	r.Get("/device-stats", server.handleDeviceStats)
	r.Get("/get_network_device_list", server.handleNetworkDeviceList)
	r.Get("/manual-devices", server.handleManualList)
	r.Post("/manual-devices", server.handleManualCreate)
	r.Delete("/manual-devices/{id}", server.handleManualDelete)

	r.Route("/api", func(r chi.Router) {
		r.Get("/inventory", server.handleInventory)
		r.Get("/trust", server.handleTrust)
		r.Get("/notice", server.handleNotice)
		r.Get("/history", server.handleHistory)
		r.Post("/scan", server.handleScanAPI)
		r.Get("/registrations", server.handleRegistrationList)
		r.Post("/registrations", server.handleRegistrationCreate)
		r.Delete("/registrations/{identity}", server.handleRegistrationDelete)
	})

	server.Router = r
	return server
}

// Handler exposes the configured router.
func (s *Server) Handler() http.Handler {
	return s.Router
}
