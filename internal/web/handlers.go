package web

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/sloppy/homenetsafe/internal/dashboard"
	"github.com/sloppy/homenetsafe/internal/export"
)

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	snap := s.Dashboard.Refresh(r.Context())
	s.renderDashboard(w, r, snap)
}

func (s *Server) handleScan(w http.ResponseWriter, r *http.Request) {
	snap, err := s.Dashboard.Scan(r.Context())
	if err != nil {
		http.Error(w, formError(err), statusFor(err))
		return
	}
	s.renderDashboard(w, r, snap)
}

func (s *Server) handleRegisterForm(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form submission", http.StatusBadRequest)
		return
	}
	snap, err := s.Dashboard.Register(r.Context(),
		r.FormValue("identity"),
		strings.TrimSpace(r.FormValue("name")),
		strings.TrimSpace(r.FormValue("notes")),
	)
	if err != nil {
		http.Error(w, formError(err), statusFor(err))
		return
	}
	s.renderDashboard(w, r, snap)
}

func (s *Server) handleUnregisterForm(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form submission", http.StatusBadRequest)
		return
	}
	snap, err := s.Dashboard.Unregister(r.Context(), r.FormValue("identity"))
	if err != nil {
		http.Error(w, formError(err), statusFor(err))
		return
	}
	s.renderDashboard(w, r, snap)
}

func (s *Server) handleManualAddForm(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form submission", http.StatusBadRequest)
		return
	}
	snap, _, err := s.Dashboard.AddManual(r.Context(), dashboard.ManualInput{
		Name:    r.FormValue("name"),
		Address: r.FormValue("ip"),
		MAC:     r.FormValue("mac"),
	})
	if err != nil {
		http.Error(w, formError(err), statusFor(err))
		return
	}
	s.renderDashboard(w, r, snap)
}

func (s *Server) handleManualRemoveForm(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "invalid device id", http.StatusBadRequest)
		return
	}
	snap, err := s.Dashboard.RemoveManual(r.Context(), id)
	if err != nil {
		http.Error(w, formError(err), statusFor(err))
		return
	}
	s.renderDashboard(w, r, snap)
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	format := strings.ToLower(strings.TrimSpace(r.URL.Query().Get("format")))
	if format == "" {
		format = export.FormatCSV
	}
	var contentType string
	switch format {
	case export.FormatCSV:
		contentType = "text/csv"
	case export.FormatJSON:
		contentType = "application/json"
	default:
		http.Error(w, "invalid export format", http.StatusBadRequest)
		return
	}

	snap := s.Dashboard.Refresh(r.Context())
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", export.Filename(format, snap.TakenAt)))
	if err := export.Write(snap, format, w); err != nil {
		s.Logger.Error().Err(err).Str("format", format).Msg("export failed")
		http.Error(w, "export failed", http.StatusInternalServerError)
	}
}

func (s *Server) renderDashboard(w http.ResponseWriter, r *http.Request, snap dashboard.Snapshot) {
	view := pageView{Snapshot: snap, Scanning: s.Dashboard.Scanning()}
	stats, err := s.Dashboard.Stats()
	if err != nil {
		s.Logger.Warn().Err(err).Msg("device stats unavailable")
	} else {
		view.Stats = stats
		view.HasStats = true
	}
	if s.Notices != nil {
		view.Notice, view.HasNotice = s.Notices.Current()
	}
	render(w, r, dashboardPage(view))
}

// formError is the plain-text body for a rejected form action.
func formError(err error) string {
	switch {
	case errors.Is(err, dashboard.ErrScanInFlight):
		return "a scan is already running"
	case errors.Is(err, dashboard.ErrNotDiscovered):
		return dashboard.MsgRegisterFailed + ": device is not on the network"
	case statusFor(err) == http.StatusInternalServerError:
		return "request failed"
	default:
		return err.Error()
	}
}
