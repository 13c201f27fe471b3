package db

import (
	"database/sql"
	"fmt"
)

const discoveredColumns = `id, ip_address, mac_address, hostname, vendor, status, first_seen, last_seen, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

type queryFunc func(query string, args ...any) (*sql.Rows, error)

type queryRowFunc func(query string, args ...any) *sql.Row

func scanDiscoveredDevice(row rowScanner) (DiscoveredDevice, error) {
	var d DiscoveredDevice
	err := row.Scan(&d.ID, &d.IPAddress, &d.MACAddress, &d.Hostname, &d.Vendor, &d.Status, &d.FirstSeen, &d.LastSeen, &d.CreatedAt, &d.UpdatedAt)
	return d, err
}

func listDiscoveredDevices(query queryFunc) ([]DiscoveredDevice, error) {
	rows, err := query(`SELECT ` + discoveredColumns + ` FROM discovered_device ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list discovered devices: %w", err)
	}
	defer rows.Close()

	var devices []DiscoveredDevice
	for rows.Next() {
		d, err := scanDiscoveredDevice(rows)
		if err != nil {
			return nil, fmt.Errorf("scan discovered device: %w", err)
		}
		devices = append(devices, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list discovered devices: %w", err)
	}
	return devices, nil
}

// ListDiscoveredDevices returns discovered devices in first-recorded order.
func (db *DB) ListDiscoveredDevices() ([]DiscoveredDevice, error) {
	return listDiscoveredDevices(db.Query)
}

// GetDiscoveredDeviceByIP fetches a discovered device by address.
func (db *DB) GetDiscoveredDeviceByIP(ip string) (DiscoveredDevice, bool, error) {
	d, err := scanDiscoveredDevice(db.QueryRow(
		`SELECT `+discoveredColumns+` FROM discovered_device WHERE ip_address = ?`, ip,
	))
	if err != nil {
		if err == sql.ErrNoRows {
			return DiscoveredDevice{}, false, nil
		}
		return DiscoveredDevice{}, false, fmt.Errorf("get discovered device: %w", err)
	}
	return d, true, nil
}
