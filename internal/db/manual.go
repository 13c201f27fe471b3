package db

import (
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// ErrDuplicateAddress is returned when a manual device reuses a stored address.
var ErrDuplicateAddress = errors.New("address already in use")

// DefaultManualVendor is stored when a manual device has no vendor.
const DefaultManualVendor = "Manual"

const manualColumns = `id, name, ip_address, mac_address, vendor, first_seen, last_seen, created_at`

func scanManualDevice(row rowScanner) (ManualDevice, error) {
	var m ManualDevice
	err := row.Scan(&m.ID, &m.Name, &m.IPAddress, &m.MACAddress, &m.Vendor, &m.FirstSeen, &m.LastSeen, &m.CreatedAt)
	return m, err
}

// CreateManualDevice inserts a manual device and records a manual_added event.
// Zero timestamps default to now.
func (db *DB) CreateManualDevice(m ManualDevice, now time.Time) (ManualDevice, error) {
	if m.Vendor == "" {
		m.Vendor = DefaultManualVendor
	}
	if m.FirstSeen.IsZero() {
		m.FirstSeen = now
	}
	if m.LastSeen.IsZero() {
		m.LastSeen = now
	}

	tx, err := db.Begin()
	if err != nil {
		return ManualDevice{}, err
	}
	defer tx.Rollback()

	out, err := scanManualDevice(tx.QueryRow(
		`INSERT INTO manual_device (name, ip_address, mac_address, vendor, first_seen, last_seen)
		 VALUES (?, ?, ?, ?, ?, ?)
		 RETURNING `+manualColumns,
		m.Name, m.IPAddress, m.MACAddress, m.Vendor, m.FirstSeen.UTC(), m.LastSeen.UTC(),
	))
	if err != nil {
		if isUniqueConstraintError(err) {
			return ManualDevice{}, fmt.Errorf("create manual device %s: %w", m.IPAddress, ErrDuplicateAddress)
		}
		return ManualDevice{}, fmt.Errorf("create manual device: %w", err)
	}

	if _, err := tx.InsertDeviceEvent(DeviceEvent{
		Identity:  out.MACAddress,
		IPAddress: out.IPAddress,
		Event:     EventManualAdded,
		Detail:    out.Name,
		CreatedAt: now,
	}); err != nil {
		return ManualDevice{}, err
	}

	if err := tx.Commit(); err != nil {
		return ManualDevice{}, fmt.Errorf("commit manual device: %w", err)
	}
	return out, nil
}

// ListManualDevices returns manual devices in insertion order.
func (db *DB) ListManualDevices() ([]ManualDevice, error) {
	rows, err := db.Query(`SELECT ` + manualColumns + ` FROM manual_device ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list manual devices: %w", err)
	}
	defer rows.Close()

	var devices []ManualDevice
	for rows.Next() {
		m, err := scanManualDevice(rows)
		if err != nil {
			return nil, fmt.Errorf("scan manual device: %w", err)
		}
		devices = append(devices, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list manual devices: %w", err)
	}
	return devices, nil
}

// DeleteManualDevice removes a manual device and records a manual_removed
// event. It returns sql.ErrNoRows when the id does not exist.
func (db *DB) DeleteManualDevice(id int64, now time.Time) error {
	tx, err := db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	m, err := scanManualDevice(tx.QueryRow(
		`DELETE FROM manual_device WHERE id = ? RETURNING `+manualColumns, id,
	))
	if err != nil {
		if err == sql.ErrNoRows {
			return sql.ErrNoRows
		}
		return fmt.Errorf("delete manual device: %w", err)
	}

	if _, err := tx.InsertDeviceEvent(DeviceEvent{
		Identity:  m.MACAddress,
		IPAddress: m.IPAddress,
		Event:     EventManualRemoved,
		Detail:    m.Name,
		CreatedAt: now,
	}); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit manual device delete: %w", err)
	}
	return nil
}
