//go:build integration

// Package containers starts the Postgres instance used by the integration
// suites. One container serves every suite in a test binary, and suites
// truncate the schema in SetupTest.
package containers

import (
	"sync"
	"testing"
)

var (
	mu     sync.Mutex
	shared *PostgresContainer
)

// Postgres returns the shared container, starting it and applying the
// migrations on first use. Ryuk removes it when the test binary exits.
func Postgres(t *testing.T) *PostgresContainer {
	t.Helper()

	mu.Lock()
	defer mu.Unlock()
	if shared == nil {
		shared = NewPostgresContainer(t)
	}
	return shared
}
