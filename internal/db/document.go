package db

import (
	"database/sql"
	"fmt"
)

// LoadDocument returns the body stored under key.
func (db *DB) LoadDocument(key string) ([]byte, bool, error) {
	var body []byte
	err := db.QueryRow(`SELECT body FROM document WHERE key = ?`, key).Scan(&body)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("load document %s: %w", key, err)
	}
	return body, true, nil
}

// SaveDocument replaces the whole body stored under key.
func (db *DB) SaveDocument(key string, body []byte) error {
	if body == nil {
		body = []byte{}
	}
	_, err := db.Exec(
		`INSERT INTO document (key, body) VALUES (?, ?)
		 ON CONFLICT(key) DO UPDATE SET body=excluded.body, updated_at=CURRENT_TIMESTAMP`,
		key, body,
	)
	if err != nil {
		return fmt.Errorf("save document %s: %w", key, err)
	}
	return nil
}
