package discovery

import (
	"context"

	"github.com/sloppy/homenetsafe/internal/db"
	"github.com/sloppy/homenetsafe/internal/inventory"
)

// Source returns the current discovery snapshot.
type Source interface {
	Devices(ctx context.Context) ([]inventory.DiscoveredDevice, error)
}

// DeviceLister is the part of the device store a StoreSource reads.
type DeviceLister interface {
	ListDiscoveredDevices() ([]db.DiscoveredDevice, error)
}

// StoreSource serves the devices recorded by past imports.
type StoreSource struct {
	store DeviceLister
}

// NewStoreSource builds a source over store.
func NewStoreSource(store DeviceLister) *StoreSource {
	return &StoreSource{store: store}
}

// Devices lists stored devices in first-recorded order.
func (s *StoreSource) Devices(ctx context.Context) ([]inventory.DiscoveredDevice, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	rows, err := s.store.ListDiscoveredDevices()
	if err != nil {
		return nil, err
	}
	devices := make([]inventory.DiscoveredDevice, 0, len(rows))
	for _, row := range rows {
		devices = append(devices, ToDiscovered(row))
	}
	return devices, nil
}

// ToDiscovered maps a stored row onto the reconciliation input type.
func ToDiscovered(row db.DiscoveredDevice) inventory.DiscoveredDevice {
	return inventory.DiscoveredDevice{
		Identity:  inventory.NormalizeIdentity(row.MACAddress),
		Name:      row.Hostname,
		Address:   row.IPAddress,
		Vendor:    row.Vendor,
		FirstSeen: row.FirstSeen,
		LastSeen:  row.LastSeen,
		Status:    inventory.ParseStatus(row.Status),
	}
}
