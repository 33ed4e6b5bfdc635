// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package cache

import (
	"log/slog"
	"sync"
)

// Tasks runs fire-and-forget work — cache writes, tag registration —
// detached from the request that spawned it. The client response never
// waits on a task, and a task failure is only ever logged. Failures are
// additionally published on an error channel so tests can assert on them
// without coupling to request completion.
type Tasks struct {
	wg   sync.WaitGroup
	errs chan error
}

// NewTasks creates a task runner.
func NewTasks() *Tasks {
	return &Tasks{errs: make(chan error, 64)}
}

// Go runs fn on its own goroutine. An error return is logged under name
// and published to Errors if there is room; it never propagates further.
func (t *Tasks) Go(name string, fn func() error) {
	t.wg.Add(1)
	go func() {
		defer t.wg.Done()
		if err := fn(); err != nil {
			slog.Warn("background task failed", "task", name, "error", err)
			select {
			case t.errs <- err:
			default:
			}
		}
	}()
}

// Errors exposes task failures for observation in tests.
func (t *Tasks) Errors() <-chan error {
	return t.errs
}

// Wait blocks until all spawned tasks settle. Used in tests and during
// shutdown; requests never call it.
func (t *Tasks) Wait() {
	t.wg.Wait()
}
