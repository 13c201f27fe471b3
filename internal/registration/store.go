// Package registration keeps the owner's registration map as one JSON
// document and applies register and unregister as whole-document
// read-modify-write updates.
package registration

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/sloppy/homenetsafe/internal/inventory"
)

// DocumentKey is the storage key of the registration document.
const DocumentKey = "homenetsafe_registered_devices_v1"

var (
	// ErrCorrupt marks a stored document that cannot be decoded. Load recovers
	// from it with an empty map.
	ErrCorrupt = errors.New("registration document corrupt")
	// ErrEmptyIdentity is returned when registering a device without identity.
	ErrEmptyIdentity = errors.New("registration requires a device identity")
)

// Backend persists whole documents by key.
type Backend interface {
	LoadDocument(key string) ([]byte, bool, error)
	SaveDocument(key string, body []byte) error
}

// Record is the stored form of one registration: the device fields seen at
// registration time plus the owner's metadata.
type Record struct {
	MAC          string    `json:"mac"`
	IP           string    `json:"ip,omitempty"`
	Name         string    `json:"name,omitempty"`
	Vendor       string    `json:"vendor,omitempty"`
	FirstSeen    time.Time `json:"first_seen,omitempty"`
	LastSeen     time.Time `json:"last_seen,omitempty"`
	Status       string    `json:"status,omitempty"`
	CustomName   string    `json:"customName"`
	Notes        string    `json:"notes"`
	RegisteredAt time.Time `json:"registeredAt"`
}

// Store serializes mutations so concurrent requests never lose an update.
type Store struct {
	backend Backend
	logger  zerolog.Logger
	mu      sync.Mutex
}

// NewStore builds a store over backend.
func NewStore(backend Backend, logger zerolog.Logger) *Store {
	return &Store{backend: backend, logger: logger}
}

// Load returns the current registrations keyed by normalized identity. A
// missing document is an empty map; a corrupt one is logged and treated as
// empty. Only backend failures are returned.
func (s *Store) Load() (inventory.Registrations, error) {
	records, err := s.loadRecords()
	if err != nil {
		return nil, err
	}
	regs := make(inventory.Registrations, len(records))
	for key, rec := range records {
		id := inventory.NormalizeIdentity(key)
		if !id.Matchable() {
			continue
		}
		candidate := inventory.RegistrationRecord{
			Identity:     id,
			CustomName:   rec.CustomName,
			Notes:        rec.Notes,
			RegisteredAt: rec.RegisteredAt,
		}
		if existing, ok := regs[id]; ok && existing.RegisteredAt.After(candidate.RegisteredAt) {
			continue
		}
		regs[id] = candidate
	}
	return regs, nil
}

// Records returns the stored records keyed by normalized identity.
func (s *Store) Records() (map[inventory.Identity]Record, error) {
	records, err := s.loadRecords()
	if err != nil {
		return nil, err
	}
	out := make(map[inventory.Identity]Record, len(records))
	for key, rec := range records {
		if id := inventory.NormalizeIdentity(key); id.Matchable() {
			out[id] = rec
		}
	}
	return out, nil
}

// Register writes or overwrites the record for device with a fresh
// registration time.
func (s *Store) Register(device inventory.DiscoveredDevice, customName, notes string, now time.Time) (Record, error) {
	id := inventory.NormalizeIdentity(string(device.Identity))
	if !id.Matchable() {
		return Record{}, ErrEmptyIdentity
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	records, err := s.loadRecords()
	if err != nil {
		return Record{}, err
	}
	for key := range records {
		if inventory.NormalizeIdentity(key) == id {
			delete(records, key)
		}
	}
	rec := Record{
		MAC:          id.String(),
		IP:           device.Address,
		Name:         device.Name,
		Vendor:       device.Vendor,
		FirstSeen:    device.FirstSeen,
		LastSeen:     device.LastSeen,
		Status:       string(device.Status),
		CustomName:   strings.TrimSpace(customName),
		Notes:        notes,
		RegisteredAt: now,
	}
	records[id.String()] = rec
	if err := s.saveRecords(records); err != nil {
		return Record{}, err
	}
	s.logger.Info().Str("identity", id.String()).Msg("device registered")
	return rec, nil
}

// Unregister removes the record for identity. Removing an absent record is
// not an error; removed reports whether anything was deleted.
func (s *Store) Unregister(identity inventory.Identity) (removed bool, err error) {
	id := inventory.NormalizeIdentity(string(identity))
	if !id.Matchable() {
		return false, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	records, err := s.loadRecords()
	if err != nil {
		return false, err
	}
	for key := range records {
		if inventory.NormalizeIdentity(key) == id {
			delete(records, key)
			removed = true
		}
	}
	if !removed {
		return false, nil
	}
	if err := s.saveRecords(records); err != nil {
		return false, err
	}
	s.logger.Info().Str("identity", id.String()).Msg("device unregistered")
	return true, nil
}

func (s *Store) loadRecords() (map[string]Record, error) {
	body, ok, err := s.backend.LoadDocument(DocumentKey)
	if err != nil {
		return nil, fmt.Errorf("load registrations: %w", err)
	}
	records := map[string]Record{}
	if !ok || len(strings.TrimSpace(string(body))) == 0 {
		return records, nil
	}
	if err := decode(body, records); err != nil {
		s.logger.Warn().Err(err).Msg("registration document unreadable, starting from empty map")
		return map[string]Record{}, nil
	}
	return records, nil
}

func (s *Store) saveRecords(records map[string]Record) error {
	body, err := json.Marshal(records)
	if err != nil {
		return fmt.Errorf("encode registrations: %w", err)
	}
	if err := s.backend.SaveDocument(DocumentKey, body); err != nil {
		return fmt.Errorf("save registrations: %w", err)
	}
	return nil
}

// decode parses body into records. Entries that are not JSON objects are
// dropped individually; a document that is not an object is ErrCorrupt.
func decode(body []byte, records map[string]Record) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(body, &raw); err != nil {
		return fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	if raw == nil {
		return fmt.Errorf("%w: document is null", ErrCorrupt)
	}
	for key, msg := range raw {
		var rec Record
		if err := json.Unmarshal(msg, &rec); err != nil {
			continue
		}
		records[key] = rec
	}
	return nil
}
