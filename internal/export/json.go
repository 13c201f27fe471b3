package export

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/sloppy/homenetsafe/internal/dashboard"
	"github.com/sloppy/homenetsafe/internal/inventory"
)

// SnapshotPayload is the JSON shape of one reconciliation pass.
type SnapshotPayload struct {
	ID                string       `json:"id"`
	TakenAt           time.Time    `json:"taken_at"`
	Trust             string       `json:"trust"`
	UnregisteredRatio *float64     `json:"unregistered_ratio"`
	Empty             string       `json:"empty,omitempty"`
	Unregistered      []DeviceInfo `json:"unregistered"`
	Registered        []DeviceInfo `json:"registered"`
	Warnings          []string     `json:"warnings,omitempty"`
}

// DeviceInfo is one reconciled device.
type DeviceInfo struct {
	Identity   string     `json:"mac"`
	Name       string     `json:"name"`
	Address    string     `json:"ip"`
	Vendor     string     `json:"vendor"`
	FirstSeen  *time.Time `json:"first_seen,omitempty"`
	LastSeen   *time.Time `json:"last_seen,omitempty"`
	Status     string     `json:"status"`
	Registered bool       `json:"registered"`
	Notes      string     `json:"notes"`
	Source     string     `json:"source"`
	ManualID   int64      `json:"manual_id,omitempty"`
	Kind       string     `json:"kind"`
	Stale      bool       `json:"stale"`
}

// NewSnapshotPayload converts a snapshot to its JSON shape.
func NewSnapshotPayload(snap dashboard.Snapshot) SnapshotPayload {
	payload := SnapshotPayload{
		ID:           snap.ID,
		TakenAt:      snap.TakenAt.UTC(),
		Trust:        string(snap.Trust),
		Empty:        string(snap.Result.Empty),
		Unregistered: toDeviceInfos(snap.Result.Inventory.UnregisteredDiscovered),
		Registered:   toDeviceInfos(snap.Result.Inventory.Registered),
		Warnings:     snap.Warnings,
	}
	if snap.RatioKnown {
		ratio := snap.UnregisteredRatio
		payload.UnregisteredRatio = &ratio
	}
	return payload
}

// WriteJSON writes the snapshot payload as indented JSON.
func WriteJSON(snap dashboard.Snapshot, w io.Writer) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(NewSnapshotPayload(snap)); err != nil {
		return fmt.Errorf("encode json: %w", err)
	}
	return nil
}

func toDeviceInfos(devices []inventory.ReconciledDevice) []DeviceInfo {
	out := make([]DeviceInfo, 0, len(devices))
	for _, d := range devices {
		out = append(out, toDeviceInfo(d))
	}
	return out
}

func toDeviceInfo(d inventory.ReconciledDevice) DeviceInfo {
	return DeviceInfo{
		Identity:   d.Identity.String(),
		Name:       d.Name,
		Address:    d.Address,
		Vendor:     d.Vendor,
		FirstSeen:  optionalTime(d.FirstSeen),
		LastSeen:   optionalTime(d.LastSeen),
		Status:     string(d.Status),
		Registered: d.Registered,
		Notes:      d.Notes,
		Source:     string(d.Source),
		ManualID:   d.ManualID,
		Kind:       string(d.Kind),
		Stale:      d.Stale,
	}
}

func optionalTime(value time.Time) *time.Time {
	if value.IsZero() {
		return nil
	}
	utc := value.UTC()
	return &utc
}
