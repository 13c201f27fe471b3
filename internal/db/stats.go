package db

import "fmt"

// GetDeviceStats counts discovered devices by status. Manual devices carry no
// liveness and are counted as unknown.
func (db *DB) GetDeviceStats() (DeviceStats, error) {
	var stats DeviceStats
	if err := db.QueryRow(
		`SELECT COUNT(*),
		        COALESCE(SUM(CASE WHEN status = 'online' THEN 1 ELSE 0 END), 0),
		        COALESCE(SUM(CASE WHEN status = 'offline' THEN 1 ELSE 0 END), 0)
		   FROM discovered_device`,
	).Scan(&stats.Total, &stats.Online, &stats.Offline); err != nil {
		return DeviceStats{}, fmt.Errorf("device status counts: %w", err)
	}
	stats.Unknown = stats.Total - stats.Online - stats.Offline

	var manual int
	if err := db.QueryRow(`SELECT COUNT(*) FROM manual_device`).Scan(&manual); err != nil {
		return DeviceStats{}, fmt.Errorf("manual device count: %w", err)
	}
	stats.Total += manual
	stats.Unknown += manual
	return stats, nil
}
