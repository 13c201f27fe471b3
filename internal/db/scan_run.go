package db

import (
	"database/sql"
	"fmt"
)

const scanRunColumns = `id, source, filename, run_time, devices_found, devices_skipped`

// ListScanRuns returns the most recent runs first.
func (db *DB) ListScanRuns(limit int) ([]ScanRun, error) {
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}
	rows, err := db.Query(`SELECT `+scanRunColumns+` FROM scan_run ORDER BY run_time DESC, id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("list scan runs: %w", err)
	}
	defer rows.Close()

	var runs []ScanRun
	for rows.Next() {
		var r ScanRun
		if err := rows.Scan(&r.ID, &r.Source, &r.Filename, &r.RunTime, &r.DevicesFound, &r.DevicesSkipped); err != nil {
			return nil, fmt.Errorf("scan scan_run: %w", err)
		}
		runs = append(runs, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list scan runs: %w", err)
	}
	return runs, nil
}

// LatestScanRun returns the newest run, if any.
func (db *DB) LatestScanRun() (ScanRun, bool, error) {
	var r ScanRun
	err := db.QueryRow(
		`SELECT `+scanRunColumns+` FROM scan_run ORDER BY run_time DESC, id DESC LIMIT 1`,
	).Scan(&r.ID, &r.Source, &r.Filename, &r.RunTime, &r.DevicesFound, &r.DevicesSkipped)
	if err != nil {
		if err == sql.ErrNoRows {
			return ScanRun{}, false, nil
		}
		return ScanRun{}, false, fmt.Errorf("latest scan run: %w", err)
	}
	return r, true, nil
}
