package web

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/sloppy/homenetsafe/internal/dashboard"
	"github.com/sloppy/homenetsafe/internal/db"
	"github.com/sloppy/homenetsafe/internal/export"
	"github.com/sloppy/homenetsafe/internal/inventory"
)

type trustResponse struct {
	SnapshotID        string   `json:"snapshot_id"`
	Trust             string   `json:"trust"`
	UnregisteredRatio *float64 `json:"unregistered_ratio"`
}

type statsResponse struct {
	Total   int `json:"total"`
	Online  int `json:"online"`
	Offline int `json:"offline"`
	Unknown int `json:"unknown"`
}

type healthResponse struct {
	Status      string `json:"status"`
	Timestamp   int64  `json:"timestamp"`
	DeviceCount int    `json:"device_count"`
}

type networkDevice struct {
	IP        string     `json:"ip"`
	MAC       string     `json:"mac"`
	Vendor    string     `json:"vendor"`
	Name      string     `json:"name"`
	Status    string     `json:"status"`
	FirstSeen *time.Time `json:"first_seen"`
	LastSeen  *time.Time `json:"last_seen"`
}

type networkDeviceList struct {
	Devices []networkDevice `json:"devices"`
	Error   string          `json:"error,omitempty"`
}

type manualDeviceResponse struct {
	ID        int64      `json:"id"`
	Name      string     `json:"name"`
	IP        string     `json:"ip"`
	MAC       string     `json:"mac"`
	Vendor    string     `json:"vendor"`
	FirstSeen *time.Time `json:"first_seen"`
	LastSeen  *time.Time `json:"last_seen"`
}

type manualDeviceRequest struct {
	Name      string     `json:"name"`
	IP        string     `json:"ip"`
	MAC       string     `json:"mac"`
	FirstSeen *time.Time `json:"first_seen"`
	LastSeen  *time.Time `json:"last_seen"`
}

type registrationRequest struct {
	Identity string `json:"identity"`
	Name     string `json:"name"`
	Notes    string `json:"notes"`
}

type registrationResponse struct {
	MAC          string    `json:"mac"`
	IP           string    `json:"ip,omitempty"`
	Vendor       string    `json:"vendor,omitempty"`
	CustomName   string    `json:"customName"`
	Notes        string    `json:"notes"`
	RegisteredAt time.Time `json:"registeredAt"`
}

type eventResponse struct {
	ID        int64     `json:"id"`
	Identity  string    `json:"identity"`
	IP        string    `json:"ip"`
	Event     string    `json:"event"`
	Detail    string    `json:"detail"`
	ScanRunID *int64    `json:"scan_run_id,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

func (s *Server) handleInventory(w http.ResponseWriter, r *http.Request) {
	snap := s.Dashboard.Refresh(r.Context())
	s.jsonResponse(w, export.NewSnapshotPayload(snap), http.StatusOK)
}

func (s *Server) handleTrust(w http.ResponseWriter, r *http.Request) {
	snap := s.Dashboard.Refresh(r.Context())
	resp := trustResponse{SnapshotID: snap.ID, Trust: string(snap.Trust)}
	if snap.RatioKnown {
		ratio := snap.UnregisteredRatio
		resp.UnregisteredRatio = &ratio
	}
	s.jsonResponse(w, resp, http.StatusOK)
}

func (s *Server) handleNotice(w http.ResponseWriter, r *http.Request) {
	if s.Notices == nil {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	notice, ok := s.Notices.Current()
	if !ok {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	s.jsonResponse(w, notice, http.StatusOK)
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	key := strings.TrimSpace(query.Get("identity"))
	if key == "" {
		key = strings.TrimSpace(query.Get("ip"))
	}
	if key == "" {
		s.badRequest(w, "identity or ip is required")
		return
	}
	limit := parseInt(query.Get("limit"), db.DefaultHistoryLimit)

	events, err := s.Dashboard.History(key, limit)
	if err != nil {
		s.errorResponse(w, err)
		return
	}
	out := make([]eventResponse, 0, len(events))
	for _, e := range events {
		item := eventResponse{
			ID:        e.ID,
			Identity:  e.Identity,
			IP:        e.IPAddress,
			Event:     e.Event,
			Detail:    e.Detail,
			CreatedAt: e.CreatedAt.UTC(),
		}
		if e.ScanRunID.Valid {
			id := e.ScanRunID.Int64
			item.ScanRunID = &id
		}
		out = append(out, item)
	}
	s.jsonResponse(w, out, http.StatusOK)
}

func (s *Server) handleScanAPI(w http.ResponseWriter, r *http.Request) {
	snap, err := s.Dashboard.Scan(r.Context())
	if err != nil {
		s.errorResponse(w, err)
		return
	}
	s.jsonResponse(w, export.NewSnapshotPayload(snap), http.StatusOK)
}

func (s *Server) handleRegistrationList(w http.ResponseWriter, r *http.Request) {
	records, err := s.Dashboard.Registrations()
	if err != nil {
		s.errorResponse(w, err)
		return
	}
	out := make([]registrationResponse, 0, len(records))
	for _, rec := range records {
		out = append(out, registrationResponse{
			MAC:          rec.MAC,
			IP:           rec.IP,
			Vendor:       rec.Vendor,
			CustomName:   rec.CustomName,
			Notes:        rec.Notes,
			RegisteredAt: rec.RegisteredAt.UTC(),
		})
	}
	s.jsonResponse(w, out, http.StatusOK)
}

func (s *Server) handleRegistrationCreate(w http.ResponseWriter, r *http.Request) {
	var req registrationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.badRequest(w, "invalid json body")
		return
	}
	snap, err := s.Dashboard.Register(r.Context(), req.Identity, strings.TrimSpace(req.Name), strings.TrimSpace(req.Notes))
	if err != nil {
		s.errorResponse(w, err)
		return
	}
	s.jsonResponse(w, export.NewSnapshotPayload(snap), http.StatusCreated)
}

func (s *Server) handleRegistrationDelete(w http.ResponseWriter, r *http.Request) {
	snap, err := s.Dashboard.Unregister(r.Context(), chi.URLParam(r, "identity"))
	if err != nil {
		s.errorResponse(w, err)
		return
	}
	s.jsonResponse(w, export.NewSnapshotPayload(snap), http.StatusOK)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	resp := healthResponse{Status: "healthy", Timestamp: s.now().Unix()}
	if stats, err := s.Dashboard.Stats(); err == nil {
		resp.DeviceCount = stats.Total
	} else {
		resp.Status = "degraded"
		s.Logger.Warn().Err(err).Msg("health check stats unavailable")
	}
	s.jsonResponse(w, resp, http.StatusOK)
}

func (s *Server) handleDeviceStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.Dashboard.Stats()
	if err != nil {
		s.errorResponse(w, err)
		return
	}
	s.jsonResponse(w, statsResponse(stats), http.StatusOK)
}

func (s *Server) handleNetworkDeviceList(w http.ResponseWriter, r *http.Request) {
	devices, err := s.Dashboard.Discovered(r.Context())
	if err != nil {
		s.Logger.Warn().Err(err).Msg("discovery snapshot unavailable")
		s.jsonResponse(w, networkDeviceList{Devices: []networkDevice{}, Error: err.Error()}, http.StatusInternalServerError)
		return
	}
	out := networkDeviceList{Devices: make([]networkDevice, 0, len(devices))}
	for _, d := range devices {
		out.Devices = append(out.Devices, toNetworkDevice(d))
	}
	s.jsonResponse(w, out, http.StatusOK)
}

func (s *Server) handleManualList(w http.ResponseWriter, r *http.Request) {
	devices, err := s.Dashboard.ManualDevices()
	if err != nil {
		s.errorResponse(w, err)
		return
	}
	out := make([]manualDeviceResponse, 0, len(devices))
	for _, m := range devices {
		out = append(out, toManualResponse(m))
	}
	s.jsonResponse(w, out, http.StatusOK)
}

func (s *Server) handleManualCreate(w http.ResponseWriter, r *http.Request) {
	var req manualDeviceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.badRequest(w, "invalid json body")
		return
	}
	in := dashboard.ManualInput{Name: req.Name, Address: req.IP, MAC: req.MAC}
	if req.FirstSeen != nil {
		in.FirstSeen = *req.FirstSeen
	}
	if req.LastSeen != nil {
		in.LastSeen = *req.LastSeen
	}
	if _, _, err := s.Dashboard.AddManual(r.Context(), in); err != nil {
		s.errorResponse(w, err)
		return
	}
	s.jsonResponse(w, okResponse{OK: true}, http.StatusOK)
}

func (s *Server) handleManualDelete(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(chi.URLParam(r, "id"))
	if err != nil {
		s.badRequest(w, "invalid device id")
		return
	}
	if _, err := s.Dashboard.RemoveManual(r.Context(), id); err != nil {
		s.errorResponse(w, err)
		return
	}
	s.jsonResponse(w, okResponse{OK: true}, http.StatusOK)
}

func toNetworkDevice(d inventory.DiscoveredDevice) networkDevice {
	return networkDevice{
		IP:        d.Address,
		MAC:       d.Identity.String(),
		Vendor:    d.Vendor,
		Name:      d.Name,
		Status:    string(d.Status),
		FirstSeen: optionalTime(d.FirstSeen),
		LastSeen:  optionalTime(d.LastSeen),
	}
}

func toManualResponse(m db.ManualDevice) manualDeviceResponse {
	return manualDeviceResponse{
		ID:        m.ID,
		Name:      m.Name,
		IP:        m.IPAddress,
		MAC:       m.MACAddress,
		Vendor:    m.Vendor,
		FirstSeen: optionalTime(m.FirstSeen),
		LastSeen:  optionalTime(m.LastSeen),
	}
}

func optionalTime(value time.Time) *time.Time {
	if value.IsZero() {
		return nil
	}
	utc := value.UTC()
	return &utc
}
