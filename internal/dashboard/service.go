// Package dashboard runs reconciliation passes over the discovery source,
// the manual device store and the registration store, and applies the
// user actions that mutate them.
package dashboard

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net"
	"net/netip"
	"sort"
	"strings"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/sloppy/homenetsafe/internal/db"
	"github.com/sloppy/homenetsafe/internal/discovery"
	"github.com/sloppy/homenetsafe/internal/inventory"
	"github.com/sloppy/homenetsafe/internal/notify"
	"github.com/sloppy/homenetsafe/internal/registration"
)

// ManualStore is the manual device store.
type ManualStore interface {
	ListManualDevices() ([]db.ManualDevice, error)
	CreateManualDevice(m db.ManualDevice, now time.Time) (db.ManualDevice, error)
	DeleteManualDevice(id int64, now time.Time) error
}

// RegistrationStore is the registration store.
type RegistrationStore interface {
	Load() (inventory.Registrations, error)
	Register(device inventory.DiscoveredDevice, customName, notes string, now time.Time) (registration.Record, error)
	Unregister(identity inventory.Identity) (bool, error)
	Records() (map[inventory.Identity]registration.Record, error)
}

// HistoryStore records and serves device history and stats.
type HistoryStore interface {
	InsertDeviceEvent(e db.DeviceEvent) (db.DeviceEvent, error)
	ListDeviceEvents(key string, limit int) ([]db.DeviceEvent, error)
	GetDeviceStats() (db.DeviceStats, error)
}

// Scanner actively probes the network and records what it finds.
type Scanner interface {
	Scan(ctx context.Context) (discovery.ImportStats, error)
}

// Deps wires a Service. Scanner may be nil, in which case a scan only
// re-reads the stored discovery snapshot.
type Deps struct {
	Source        discovery.Source
	Manual        ManualStore
	Registrations RegistrationStore
	History       HistoryStore
	Notices       notify.Poster
	Scanner       Scanner
}

// Options tunes a Service.
type Options struct {
	StaleAfter time.Duration
	Now        func() time.Time
	Logger     zerolog.Logger
}

// Snapshot is the immutable outcome of one reconciliation pass. Consumers
// keep it for one render or response.
type Snapshot struct {
	ID                string
	TakenAt           time.Time
	Result            inventory.Result
	Trust             inventory.TrustLevel
	UnregisteredRatio float64
	RatioKnown        bool
	Warnings          []string
}

// ManualInput is a manual device as submitted by the user.
type ManualInput struct {
	Name      string
	Address   string
	MAC       string
	FirstSeen time.Time
	LastSeen  time.Time
}

// Service orchestrates passes and actions.
type Service struct {
	deps       Deps
	staleAfter time.Duration
	now        func() time.Time
	logger     zerolog.Logger

	scanning atomic.Bool
}

// New builds a Service.
func New(deps Deps, opts Options) *Service {
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &Service{
		deps:       deps,
		staleAfter: opts.StaleAfter,
		now:        now,
		logger:     opts.Logger,
	}
}

// Refresh runs one reconciliation pass and posts its outcome notice.
func (s *Service) Refresh(ctx context.Context) Snapshot {
	return s.pass(ctx, nil)
}

// Scan runs the configured scanner, then a pass. Only one scan runs at a
// time; a concurrent call fails with ErrScanInFlight. Scanner failures are
// absorbed into the pass and reported by its notice.
func (s *Service) Scan(ctx context.Context) (Snapshot, error) {
	if !s.scanning.CompareAndSwap(false, true) {
		return Snapshot{}, ErrScanInFlight
	}
	defer s.scanning.Store(false)

	var scanErr error
	if s.deps.Scanner != nil {
		stats, err := s.deps.Scanner.Scan(ctx)
		if err != nil {
			scanErr = fmt.Errorf("%w: scan: %v", ErrSourceUnavailable, err)
			s.logger.Warn().Err(err).Msg("network scan failed")
		} else {
			s.logger.Info().
				Int("found", stats.DevicesFound).
				Int("new", stats.New).
				Int("skipped", stats.DevicesSkipped).
				Msg("network scan imported")
		}
	}
	return s.pass(ctx, scanErr), nil
}

// Scanning reports whether a scan is in flight.
func (s *Service) Scanning() bool {
	return s.scanning.Load()
}

// Register binds a custom name and notes to a currently discovered device.
func (s *Service) Register(ctx context.Context, identity, customName, notes string) (Snapshot, error) {
	id := inventory.NormalizeIdentity(identity)
	if !id.Matchable() {
		s.post(MsgRegisterFailed, notify.KindError)
		return Snapshot{}, fmt.Errorf("%w: identity is required", ErrValidation)
	}

	devices, err := s.deps.Source.Devices(ctx)
	if err != nil {
		s.post(MsgRegisterFailed, notify.KindError)
		return Snapshot{}, fmt.Errorf("%w: discovery: %v", ErrSourceUnavailable, err)
	}
	device, ok := findDiscovered(devices, id)
	if !ok {
		s.post(MsgRegisterFailed, notify.KindError)
		return Snapshot{}, fmt.Errorf("register %s: %w", id, ErrNotDiscovered)
	}

	now := s.now()
	if _, err := s.deps.Registrations.Register(device, customName, notes, now); err != nil {
		s.post(MsgRegisterFailed, notify.KindError)
		return Snapshot{}, fmt.Errorf("register %s: %w", id, err)
	}
	s.recordEvent(db.DeviceEvent{
		Identity:  id.String(),
		IPAddress: device.Address,
		Event:     db.EventRegistered,
		Detail:    strings.TrimSpace(customName),
		CreatedAt: now,
	})

	snap := s.reconcile(ctx, nil)
	s.post(MsgRegistered, notify.KindSuccess)
	return snap, nil
}

// Unregister removes a registration. Removing an absent one is not an error.
func (s *Service) Unregister(ctx context.Context, identity string) (Snapshot, error) {
	id := inventory.NormalizeIdentity(identity)
	if !id.Matchable() {
		s.post(MsgUnregisterFailed, notify.KindError)
		return Snapshot{}, fmt.Errorf("%w: identity is required", ErrValidation)
	}

	removed, err := s.deps.Registrations.Unregister(id)
	if err != nil {
		s.post(MsgUnregisterFailed, notify.KindError)
		return Snapshot{}, fmt.Errorf("unregister %s: %w", id, err)
	}
	if removed {
		s.recordEvent(db.DeviceEvent{
			Identity:  id.String(),
			Event:     db.EventUnregistered,
			CreatedAt: s.now(),
		})
	}

	snap := s.reconcile(ctx, nil)
	s.post(MsgUnregistered, notify.KindSuccess)
	return snap, nil
}

// AddManual validates and stores a manual device.
func (s *Service) AddManual(ctx context.Context, in ManualInput) (Snapshot, db.ManualDevice, error) {
	m, err := validateManual(in)
	if err != nil {
		s.post(MsgAddFailed, notify.KindError)
		return Snapshot{}, db.ManualDevice{}, err
	}

	created, err := s.deps.Manual.CreateManualDevice(m, s.now())
	if err != nil {
		s.post(MsgAddFailed, notify.KindError)
		return Snapshot{}, db.ManualDevice{}, err
	}
	s.logger.Info().Int64("manual_id", created.ID).Str("ip", created.IPAddress).Msg("manual device added")

	snap := s.reconcile(ctx, nil)
	s.post(MsgAdded, notify.KindSuccess)
	return snap, created, nil
}

// RemoveManual deletes a manual device by id.
func (s *Service) RemoveManual(ctx context.Context, id int64) (Snapshot, error) {
	if err := s.deps.Manual.DeleteManualDevice(id, s.now()); err != nil {
		s.post(MsgRemoveFailed, notify.KindError)
		if errors.Is(err, sql.ErrNoRows) {
			return Snapshot{}, fmt.Errorf("remove manual device %d: %w", id, ErrNotFound)
		}
		return Snapshot{}, fmt.Errorf("remove manual device %d: %w", id, err)
	}
	s.logger.Info().Int64("manual_id", id).Msg("manual device removed")

	snap := s.reconcile(ctx, nil)
	s.post(MsgRemoved, notify.KindSuccess)
	return snap, nil
}

// Discovered returns the raw discovery snapshot.
func (s *Service) Discovered(ctx context.Context) ([]inventory.DiscoveredDevice, error) {
	devices, err := s.deps.Source.Devices(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: discovery: %v", ErrSourceUnavailable, err)
	}
	return devices, nil
}

// ManualDevices lists the manual device store.
func (s *Service) ManualDevices() ([]db.ManualDevice, error) {
	devices, err := s.deps.Manual.ListManualDevices()
	if err != nil {
		return nil, fmt.Errorf("%w: manual devices: %v", ErrSourceUnavailable, err)
	}
	return devices, nil
}

// Stats counts devices by liveness.
func (s *Service) Stats() (db.DeviceStats, error) {
	return s.deps.History.GetDeviceStats()
}

// Registrations lists the stored registration records ordered by identity.
func (s *Service) Registrations() ([]registration.Record, error) {
	records, err := s.deps.Registrations.Records()
	if err != nil {
		return nil, fmt.Errorf("%w: registrations: %v", ErrSourceUnavailable, err)
	}
	out := make([]registration.Record, 0, len(records))
	for id, rec := range records {
		rec.MAC = id.String()
		out = append(out, rec)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].MAC < out[j].MAC })
	return out, nil
}

// History returns the newest events for an identity or address.
func (s *Service) History(key string, limit int) ([]db.DeviceEvent, error) {
	if id := inventory.NormalizeIdentity(key); id.Matchable() {
		key = id.String()
	}
	return s.deps.History.ListDeviceEvents(key, limit)
}

// pass reconciles and posts the scan outcome notice.
func (s *Service) pass(ctx context.Context, scanErr error) Snapshot {
	snap := s.reconcile(ctx, scanErr)
	if snap.Result.OK() && scanErr == nil {
		s.post(MsgScanComplete, notify.KindSuccess)
	} else {
		s.post(MsgScanFailed, notify.KindError)
	}
	return snap
}

// reconcile builds a snapshot without posting; actions post their own notice.
func (s *Service) reconcile(ctx context.Context, scanErr error) Snapshot {
	now := s.now()
	snap := Snapshot{ID: uuid.NewString(), TakenAt: now}

	var (
		discovered   []inventory.DiscoveredDevice
		discoveryErr error
		manualRows   []db.ManualDevice
		manualErr    error
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		discovered, discoveryErr = s.deps.Source.Devices(gctx)
		return nil
	})
	g.Go(func() error {
		manualRows, manualErr = s.deps.Manual.ListManualDevices()
		return nil
	})
	_ = g.Wait()

	if scanErr != nil {
		snap.Warnings = append(snap.Warnings, scanErr.Error())
	}
	if discoveryErr != nil {
		discovered = nil
		snap.Warnings = append(snap.Warnings, fmt.Errorf("%w: discovery: %v", ErrSourceUnavailable, discoveryErr).Error())
		s.logger.Warn().Err(discoveryErr).Msg("discovery source unavailable")
	}
	if manualErr != nil {
		manualRows = nil
		snap.Warnings = append(snap.Warnings, fmt.Errorf("%w: manual devices: %v", ErrSourceUnavailable, manualErr).Error())
		s.logger.Warn().Err(manualErr).Msg("manual device store unavailable")
	}

	regs, err := s.deps.Registrations.Load()
	if err != nil {
		regs = inventory.Registrations{}
		snap.Warnings = append(snap.Warnings, fmt.Errorf("%w: registrations: %v", ErrSourceUnavailable, err).Error())
		s.logger.Warn().Err(err).Msg("registration store unavailable")
	}

	snap.Result = inventory.Reconcile(inventory.Input{
		Discovered:         discovered,
		DiscoveryAvailable: discoveryErr == nil,
		Manual:             toManual(manualRows),
		Registrations:      regs,
	}, inventory.Options{Now: now, StaleAfter: s.staleAfter})
	snap.Trust = inventory.DeriveTrust(discovered, regs)
	snap.UnregisteredRatio, snap.RatioKnown = inventory.UnregisteredRatio(discovered, regs)

	s.logger.Info().
		Str("pass_id", snap.ID).
		Int("unregistered", len(snap.Result.Inventory.UnregisteredDiscovered)).
		Int("registered", len(snap.Result.Inventory.Registered)).
		Str("trust", string(snap.Trust)).
		Str("empty", string(snap.Result.Empty)).
		Msg("reconciliation pass")
	return snap
}

func (s *Service) post(message string, kind notify.Kind) {
	if s.deps.Notices != nil {
		s.deps.Notices.Post(message, kind)
	}
}

func (s *Service) recordEvent(e db.DeviceEvent) {
	if s.deps.History == nil {
		return
	}
	if _, err := s.deps.History.InsertDeviceEvent(e); err != nil {
		s.logger.Warn().Err(err).Str("event", e.Event).Msg("device history write failed")
	}
}

func findDiscovered(devices []inventory.DiscoveredDevice, id inventory.Identity) (inventory.DiscoveredDevice, bool) {
	for _, d := range devices {
		if inventory.NormalizeIdentity(string(d.Identity)) == id {
			d.Identity = id
			return d, true
		}
	}
	return inventory.DiscoveredDevice{}, false
}

func toManual(rows []db.ManualDevice) []inventory.ManualDevice {
	out := make([]inventory.ManualDevice, 0, len(rows))
	for _, m := range rows {
		out = append(out, inventory.ManualDevice{
			ID:        m.ID,
			Name:      m.Name,
			Address:   m.IPAddress,
			Identity:  inventory.NormalizeIdentity(m.MACAddress),
			Vendor:    m.Vendor,
			FirstSeen: m.FirstSeen,
			LastSeen:  m.LastSeen,
		})
	}
	return out
}

func validateManual(in ManualInput) (db.ManualDevice, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return db.ManualDevice{}, fmt.Errorf("%w: name is required", ErrValidation)
	}
	rawIP := strings.TrimSpace(in.Address)
	if rawIP == "" {
		return db.ManualDevice{}, fmt.Errorf("%w: ip is required", ErrValidation)
	}
	addr, err := netip.ParseAddr(rawIP)
	if err != nil {
		return db.ManualDevice{}, fmt.Errorf("%w: ip %q is not an address", ErrValidation, rawIP)
	}
	mac := strings.TrimSpace(in.MAC)
	if mac != "" {
		hw, err := net.ParseMAC(mac)
		if err != nil {
			return db.ManualDevice{}, fmt.Errorf("%w: mac %q is not a hardware address", ErrValidation, mac)
		}
		mac = strings.ToLower(hw.String())
	}
	if !in.FirstSeen.IsZero() && !in.LastSeen.IsZero() && in.LastSeen.Before(in.FirstSeen) {
		return db.ManualDevice{}, fmt.Errorf("%w: last_seen before first_seen", ErrValidation)
	}
	return db.ManualDevice{
		Name:       name,
		IPAddress:  addr.String(),
		MACAddress: mac,
		FirstSeen:  in.FirstSeen,
		LastSeen:   in.LastSeen,
	}, nil
}
