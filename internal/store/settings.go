// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package store

import (
	"database/sql"
	"fmt"
)

// SettingsStore persists gallery settings as key/value pairs. The
// /api/settings response is cached under the "settings" tag, which a
// successful update invalidates.
type SettingsStore struct {
	db *sql.DB
}

// NewSettingsStore creates a new SettingsStore.
func NewSettingsStore(db *sql.DB) *SettingsStore {
	return &SettingsStore{db: db}
}

// All returns every setting as a map.
func (s *SettingsStore) All() (map[string]string, error) {
	rows, err := s.db.Query(`SELECT key, value FROM gallery_settings ORDER BY key`)
	if err != nil {
		return nil, fmt.Errorf("query settings: %w", err)
	}
	defer rows.Close()

	settings := make(map[string]string)
	for rows.Next() {
		var key, value string
		if err := rows.Scan(&key, &value); err != nil {
			return nil, fmt.Errorf("scan setting: %w", err)
		}
		settings[key] = value
	}
	return settings, rows.Err()
}

// Set upserts one setting.
func (s *SettingsStore) Set(key, value string) error {
	_, err := s.db.Exec(`
		INSERT INTO gallery_settings (key, value, updated_at)
		VALUES ($1, $2, now())
		ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, updated_at = now()
	`, key, value)
	if err != nil {
		return fmt.Errorf("set setting %q: %w", key, err)
	}
	return nil
}
