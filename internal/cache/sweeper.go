// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package cache

import (
	"context"
	"fmt"
	"log/slog"
)

// purgeBatchSize is how many matched keys are unlinked per pipeline call.
const purgeBatchSize = 200

// purgePageSize is the SCAN hint for keys examined per page.
const purgePageSize = 200

// Sweeper performs pattern-based bulk purges over the backend keyspace.
// This is the administrative hammer — regular invalidation traffic goes
// through the TagIndex instead.
type Sweeper struct {
	backend Backend
}

// NewSweeper creates a sweeper on the given backend.
func NewSweeper(backend Backend) *Sweeper {
	return &Sweeper{backend: backend}
}

// Purge removes every key matching pattern and returns the total removed.
// It pages through the keyspace with a cursor until the cursor returns to
// zero, so it terminates regardless of keyspace size, unlinking matches in
// batches as it goes.
func (s *Sweeper) Purge(ctx context.Context, pattern string) (int64, error) {
	var (
		cursor  uint64
		removed int64
		batch   []string
	)

	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		n, err := s.backend.Unlink(ctx, batch...)
		if err != nil {
			return err
		}
		removed += n
		batch = batch[:0]
		return nil
	}

	for {
		keys, next, err := s.backend.Scan(ctx, cursor, pattern, purgePageSize)
		if err != nil {
			return removed, fmt.Errorf("purge scan %q: %w", pattern, err)
		}

		for _, key := range keys {
			batch = append(batch, key)
			if len(batch) >= purgeBatchSize {
				if err := flush(); err != nil {
					return removed, fmt.Errorf("purge delete %q: %w", pattern, err)
				}
			}
		}

		cursor = next
		if cursor == 0 {
			break
		}
	}

	if err := flush(); err != nil {
		return removed, fmt.Errorf("purge delete %q: %w", pattern, err)
	}

	slog.Info("cache purged", "pattern", pattern, "removed", removed)
	return removed, nil
}
