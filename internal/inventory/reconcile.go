package inventory

import (
	"strings"
	"time"
)

// EmptyReason explains why a reconciliation pass produced no discovery data.
type EmptyReason string

const (
	// ReasonNoData means the discovery source could not be read.
	ReasonNoData EmptyReason = "no-data"
	// ReasonZeroDevices means the discovery source answered with an empty list.
	ReasonZeroDevices EmptyReason = "zero-devices"
)

// Input holds the three source snapshots of one reconciliation pass.
type Input struct {
	Discovered []DiscoveredDevice
	// DiscoveryAvailable is false when the discovery source failed or was
	// never consulted. Discovered is ignored in that case.
	DiscoveryAvailable bool
	Manual             []ManualDevice
	Registrations      Registrations
}

// Options tunes derived fields. A zero Now disables staleness.
type Options struct {
	Now        time.Time
	StaleAfter time.Duration
}

// Inventory is the two-partition output of a pass.
type Inventory struct {
	UnregisteredDiscovered []ReconciledDevice
	Registered             []ReconciledDevice
}

// Result is either ok (Empty == "") or empty with a reason. The inventory is
// populated in both cases; manual devices are still listed when discovery
// has nothing.
type Result struct {
	Inventory Inventory
	Empty     EmptyReason
}

// OK reports whether discovery contributed at least one device.
func (r Result) OK() bool {
	return r.Empty == ""
}

// Reconcile merges discovery, manual and registration snapshots. It never
// fails and never mutates its inputs.
func Reconcile(in Input, opts Options) Result {
	var discovered []DiscoveredDevice
	if in.DiscoveryAvailable {
		discovered = dedupeDiscovered(in.Discovered)
	}
	regs := normalizeRegistrations(in.Registrations)

	unregistered := make([]ReconciledDevice, 0, len(discovered))
	registeredDiscovered := make([]ReconciledDevice, 0, len(discovered))
	for _, d := range discovered {
		rec, ok := regs.Lookup(d.Identity)
		if !ok {
			unregistered = append(unregistered, fromDiscovered(d, nil, opts))
			continue
		}
		registeredDiscovered = append(registeredDiscovered, fromDiscovered(d, &rec, opts))
	}

	manual := dedupeManual(in.Manual)
	registered := make([]ReconciledDevice, 0, len(manual)+len(registeredDiscovered))
	for _, m := range manual {
		var recPtr *RegistrationRecord
		if rec, ok := regs.Lookup(m.Identity); ok {
			recPtr = &rec
		}
		registered = append(registered, fromManual(m, recPtr, opts))
	}
	registered = append(registered, registeredDiscovered...)

	result := Result{
		Inventory: Inventory{
			UnregisteredDiscovered: unregistered,
			Registered:             registered,
		},
	}
	switch {
	case !in.DiscoveryAvailable:
		result.Empty = ReasonNoData
	case len(discovered) == 0:
		result.Empty = ReasonZeroDevices
	}
	return result
}

func fromDiscovered(d DiscoveredDevice, rec *RegistrationRecord, opts Options) ReconciledDevice {
	out := ReconciledDevice{
		Identity:  d.Identity,
		Name:      d.Name,
		Address:   d.Address,
		Vendor:    d.Vendor,
		FirstSeen: d.FirstSeen,
		LastSeen:  d.LastSeen,
		Status:    d.Status,
		Source:    SourceDiscovered,
	}
	applyRegistration(&out, rec)
	out.Kind = ClassifyKind(out.Vendor, out.Name)
	out.Stale = isStale(out.LastSeen, opts)
	return out
}

func fromManual(m ManualDevice, rec *RegistrationRecord, opts Options) ReconciledDevice {
	out := ReconciledDevice{
		Identity:   m.Identity,
		Name:       m.Name,
		Address:    m.Address,
		Vendor:     m.Vendor,
		FirstSeen:  m.FirstSeen,
		LastSeen:   m.LastSeen,
		Status:     StatusUnknown,
		Registered: true,
		Source:     SourceManual,
		ManualID:   m.ID,
	}
	applyRegistration(&out, rec)
	out.Kind = ClassifyKind(out.Vendor, out.Name)
	out.Stale = isStale(out.LastSeen, opts)
	return out
}

func applyRegistration(out *ReconciledDevice, rec *RegistrationRecord) {
	if rec == nil {
		return
	}
	out.Registered = true
	out.Notes = rec.Notes
	if name := strings.TrimSpace(rec.CustomName); name != "" {
		out.Name = name
	}
}

func isStale(lastSeen time.Time, opts Options) bool {
	if lastSeen.IsZero() || opts.Now.IsZero() || opts.StaleAfter <= 0 {
		return false
	}
	return opts.Now.Sub(lastSeen) > opts.StaleAfter
}

// dedupeDiscovered normalizes identities and collapses repeated identities
// into the first occurrence. Later duplicates only fill gaps.
func dedupeDiscovered(devices []DiscoveredDevice) []DiscoveredDevice {
	out := make([]DiscoveredDevice, 0, len(devices))
	index := make(map[Identity]int, len(devices))
	for _, d := range devices {
		d.Identity = NormalizeIdentity(string(d.Identity))
		if d.Status == "" {
			d.Status = StatusUnknown
		}
		if !d.Identity.Matchable() {
			out = append(out, d)
			continue
		}
		if i, seen := index[d.Identity]; seen {
			out[i] = mergeDiscovered(out[i], d)
			continue
		}
		index[d.Identity] = len(out)
		out = append(out, d)
	}
	return out
}

func mergeDiscovered(first, later DiscoveredDevice) DiscoveredDevice {
	first.Name = pickNonEmpty(first.Name, later.Name)
	first.Address = pickNonEmpty(first.Address, later.Address)
	first.Vendor = pickNonEmpty(first.Vendor, later.Vendor)
	if first.FirstSeen.IsZero() || (!later.FirstSeen.IsZero() && later.FirstSeen.Before(first.FirstSeen)) {
		first.FirstSeen = later.FirstSeen
	}
	if later.LastSeen.After(first.LastSeen) {
		first.LastSeen = later.LastSeen
	}
	if first.Status == StatusUnknown {
		first.Status = later.Status
	}
	return first
}

// dedupeManual keeps the first manual device per matchable identity.
func dedupeManual(devices []ManualDevice) []ManualDevice {
	out := make([]ManualDevice, 0, len(devices))
	seen := make(map[Identity]struct{}, len(devices))
	for _, m := range devices {
		m.Identity = NormalizeIdentity(string(m.Identity))
		if m.Identity.Matchable() {
			if _, dup := seen[m.Identity]; dup {
				continue
			}
			seen[m.Identity] = struct{}{}
		}
		out = append(out, m)
	}
	return out
}

func normalizeRegistrations(regs Registrations) Registrations {
	out := make(Registrations, len(regs))
	for key, rec := range regs {
		id := NormalizeIdentity(string(key))
		if !id.Matchable() {
			continue
		}
		rec.Identity = id
		if existing, ok := out[id]; ok && existing.RegisteredAt.After(rec.RegisteredAt) {
			continue
		}
		out[id] = rec
	}
	return out
}

func pickNonEmpty(primary, fallback string) string {
	if strings.TrimSpace(primary) != "" {
		return primary
	}
	return fallback
}
