package db

import (
	"fmt"
	"time"
)

// DefaultHistoryLimit caps ListDeviceEvents when no positive limit is given.
const DefaultHistoryLimit = 10

const eventColumns = `id, identity, ip_address, event, detail, scan_run_id, created_at`

func insertDeviceEvent(queryRow queryRowFunc, e DeviceEvent) (DeviceEvent, error) {
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now()
	}
	var out DeviceEvent
	err := queryRow(
		`INSERT INTO device_event (identity, ip_address, event, detail, scan_run_id, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)
		 RETURNING `+eventColumns,
		e.Identity, e.IPAddress, e.Event, e.Detail, e.ScanRunID, e.CreatedAt.UTC(),
	).Scan(&out.ID, &out.Identity, &out.IPAddress, &out.Event, &out.Detail, &out.ScanRunID, &out.CreatedAt)
	if err != nil {
		return DeviceEvent{}, fmt.Errorf("insert device event: %w", err)
	}
	return out, nil
}

// InsertDeviceEvent records a history event.
func (db *DB) InsertDeviceEvent(e DeviceEvent) (DeviceEvent, error) {
	return insertDeviceEvent(db.QueryRow, e)
}

// ListDeviceEvents returns history newest first. A non-empty key matches
// either the identity or the address of the event.
func (db *DB) ListDeviceEvents(key string, limit int) ([]DeviceEvent, error) {
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}
	query := `SELECT ` + eventColumns + ` FROM device_event`
	args := []any{}
	if key != "" {
		query += ` WHERE identity = ? OR ip_address = ?`
		args = append(args, key, key)
	}
	query += ` ORDER BY created_at DESC, id DESC LIMIT ?`
	args = append(args, limit)

	rows, err := db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("list device events: %w", err)
	}
	defer rows.Close()

	var events []DeviceEvent
	for rows.Next() {
		var e DeviceEvent
		if err := rows.Scan(&e.ID, &e.Identity, &e.IPAddress, &e.Event, &e.Detail, &e.ScanRunID, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan device event: %w", err)
		}
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list device events: %w", err)
	}
	return events, nil
}
