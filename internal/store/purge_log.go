// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// purge_log.go records cache purges and tag invalidations in the database
// for audit and debugging. Each entry captures what was purged, how many
// keys it removed, and which admin (if any) triggered it.
package store

import (
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

// PurgeLogStore handles cache purge audit log operations.
type PurgeLogStore struct {
	db *sql.DB
}

// NewPurgeLogStore creates a new PurgeLogStore.
func NewPurgeLogStore(db *sql.DB) *PurgeLogStore {
	return &PurgeLogStore{db: db}
}

// Log records one purge event. actor is nil for internally triggered
// invalidations. Best-effort: a failed insert is logged, never returned —
// audit logging must not break invalidation.
func (s *PurgeLogStore) Log(kind, target string, removed int64, actor *uuid.UUID) {
	_, err := s.db.Exec(`
		INSERT INTO cache_purge_log (kind, target, removed, actor)
		VALUES ($1, $2, $3, $4)
	`, kind, target, removed, actor)
	if err != nil {
		slog.Warn("failed to log cache purge",
			"kind", kind,
			"target", target,
			"removed", removed,
			"error", err,
		)
		return
	}
	slog.Debug("cache purge logged", "kind", kind, "target", target, "removed", removed)
}

// PurgeLogEntry represents a single recorded purge.
type PurgeLogEntry struct {
	ID        int64      `json:"id"`
	Kind      string     `json:"kind"`
	Target    string     `json:"target"`
	Removed   int64      `json:"removed"`
	Actor     *uuid.UUID `json:"actor,omitempty"`
	CreatedAt time.Time  `json:"createdAt"`
}

// Recent returns the most recent purge events, newest first, limited to
// the specified count.
func (s *PurgeLogStore) Recent(limit int) ([]PurgeLogEntry, error) {
	rows, err := s.db.Query(`
		SELECT id, kind, target, removed, actor, created_at
		FROM cache_purge_log
		ORDER BY created_at DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("query purge log: %w", err)
	}
	defer rows.Close()

	var entries []PurgeLogEntry
	for rows.Next() {
		var e PurgeLogEntry
		if err := rows.Scan(&e.ID, &e.Kind, &e.Target, &e.Removed, &e.Actor, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan purge log: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
