package db

import (
	"database/sql"
	"fmt"
)

// Tx wraps sql.Tx to reuse DB helpers within a transaction.
type Tx struct {
	*sql.Tx
}

// Begin starts a transaction on the DB.
func (db *DB) Begin() (*Tx, error) {
	tx, err := db.DB.Begin()
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	return &Tx{Tx: tx}, nil
}

// InsertScanRun records a discovery run within a transaction.
func (tx *Tx) InsertScanRun(r ScanRun) (ScanRun, error) {
	var out ScanRun
	err := tx.QueryRow(
		`INSERT INTO scan_run (source, filename, run_time, devices_found, devices_skipped)
		 VALUES (?, ?, ?, ?, ?)
		 RETURNING id, source, filename, run_time, devices_found, devices_skipped`,
		r.Source, r.Filename, r.RunTime.UTC(), r.DevicesFound, r.DevicesSkipped,
	).Scan(&out.ID, &out.Source, &out.Filename, &out.RunTime, &out.DevicesFound, &out.DevicesSkipped)
	if err != nil {
		return ScanRun{}, fmt.Errorf("insert scan_run: %w", err)
	}
	return out, nil
}

// UpdateScanRunCounts sets the found/skipped counts of a run within a transaction.
func (tx *Tx) UpdateScanRunCounts(id int64, found, skipped int) error {
	_, err := tx.Exec(`UPDATE scan_run SET devices_found = ?, devices_skipped = ? WHERE id = ?`, found, skipped, id)
	if err != nil {
		return fmt.Errorf("update scan_run counts: %w", err)
	}
	return nil
}

// GetDiscoveredDeviceByIP fetches a discovered device by address within a transaction.
func (tx *Tx) GetDiscoveredDeviceByIP(ip string) (DiscoveredDevice, bool, error) {
	d, err := scanDiscoveredDevice(tx.QueryRow(
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

// UpsertDiscoveredDevice inserts or updates a device keyed by ip_address
// within a transaction. first_seen is kept on update; empty MAC, hostname
// and vendor values never overwrite stored ones.
func (tx *Tx) UpsertDiscoveredDevice(d DiscoveredDevice) (DiscoveredDevice, error) {
	if d.Status == "" {
		d.Status = StatusUnknown
	}
	firstSeen := d.FirstSeen
	if firstSeen.IsZero() {
		firstSeen = d.LastSeen
	}
	out, err := scanDiscoveredDevice(tx.QueryRow(
		`INSERT INTO discovered_device (ip_address, mac_address, hostname, vendor, status, first_seen, last_seen)
		 VALUES (?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(ip_address) DO UPDATE SET
		   mac_address=CASE WHEN excluded.mac_address <> '' THEN excluded.mac_address ELSE discovered_device.mac_address END,
		   hostname=CASE WHEN excluded.hostname <> '' THEN excluded.hostname ELSE discovered_device.hostname END,
		   vendor=CASE WHEN excluded.vendor <> '' THEN excluded.vendor ELSE discovered_device.vendor END,
		   status=excluded.status,
		   last_seen=excluded.last_seen,
		   updated_at=CURRENT_TIMESTAMP
		 RETURNING `+discoveredColumns,
		d.IPAddress, d.MACAddress, d.Hostname, d.Vendor, d.Status, firstSeen.UTC(), d.LastSeen.UTC(),
	))
	if err != nil {
		return DiscoveredDevice{}, fmt.Errorf("upsert discovered device: %w", err)
	}
	return out, nil
}

// ListDiscoveredDevices lists discovered devices within a transaction.
func (tx *Tx) ListDiscoveredDevices() ([]DiscoveredDevice, error) {
	return listDiscoveredDevices(tx.Query)
}

// SetDiscoveredStatus updates the liveness of a device without touching its timestamps.
func (tx *Tx) SetDiscoveredStatus(id int64, status string) error {
	_, err := tx.Exec(`UPDATE discovered_device SET status = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`, status, id)
	if err != nil {
		return fmt.Errorf("set discovered status: %w", err)
	}
	return nil
}

// InsertDeviceEvent records a history event within a transaction.
func (tx *Tx) InsertDeviceEvent(e DeviceEvent) (DeviceEvent, error) {
	return insertDeviceEvent(tx.QueryRow, e)
}
