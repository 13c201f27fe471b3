// Package inventory merges discovery results, manual devices and local
// registrations into one device inventory and derives its trust level.
package inventory

import (
	"strings"
	"time"
)

// Identity is a normalized hardware address. The empty identity is never
// matchable.
type Identity string

// NormalizeIdentity trims and lowercases a raw hardware address.
func NormalizeIdentity(raw string) Identity {
	return Identity(strings.ToLower(strings.TrimSpace(raw)))
}

// Matchable reports whether the identity can be compared with other records.
func (id Identity) Matchable() bool {
	return id != ""
}

func (id Identity) String() string {
	return string(id)
}

// Status is the liveness reported by the discovery source.
type Status string

const (
	StatusOnline  Status = "online"
	StatusOffline Status = "offline"
	StatusUnknown Status = "unknown"
)

// ParseStatus maps free-form liveness strings onto the three known values.
func ParseStatus(raw string) Status {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "online", "up":
		return StatusOnline
	case "offline", "down":
		return StatusOffline
	default:
		return StatusUnknown
	}
}

// Source records where a reconciled row came from.
type Source string

const (
	SourceDiscovered Source = "discovered"
	SourceManual     Source = "manual"
)

// DiscoveredDevice is one entry of a discovery snapshot.
type DiscoveredDevice struct {
	Identity  Identity
	Name      string
	Address   string
	Vendor    string
	FirstSeen time.Time
	LastSeen  time.Time
	Status    Status
}

// RegistrationRecord binds owner metadata to an identity.
type RegistrationRecord struct {
	Identity     Identity
	CustomName   string
	Notes        string
	RegisteredAt time.Time
}

// Registrations is a registration snapshot keyed by normalized identity.
type Registrations map[Identity]RegistrationRecord

// Lookup finds the record for id. Non-matchable identities never match.
func (r Registrations) Lookup(id Identity) (RegistrationRecord, bool) {
	if !id.Matchable() || r == nil {
		return RegistrationRecord{}, false
	}
	rec, ok := r[id]
	return rec, ok
}

// ManualDevice is a user-added device held by the manual device store.
type ManualDevice struct {
	ID        int64
	Name      string
	Address   string
	Identity  Identity
	Vendor    string
	FirstSeen time.Time
	LastSeen  time.Time
}

// ReconciledDevice is the merged view handed to presentation.
type ReconciledDevice struct {
	Identity   Identity
	Name       string
	Address    string
	Vendor     string
	FirstSeen  time.Time
	LastSeen   time.Time
	Status     Status
	Registered bool
	Notes      string
	Source     Source
	ManualID   int64
	Kind       Kind
	Stale      bool
}
