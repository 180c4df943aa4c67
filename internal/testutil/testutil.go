// Package testutil provides shared test fixtures.
package testutil

import (
	"path/filepath"
	"testing"

	"github.com/trafficlens/speedcam/internal/db"
)

// TempDB opens a migrated SQLite database in a per-test temp directory and
// closes it when the test finishes.
func TempDB(t *testing.T) *db.DB {
	t.Helper()
	database, err := db.Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("opening temp database: %v", err)
	}
	t.Cleanup(func() {
		if err := database.Close(); err != nil {
			t.Errorf("closing temp database: %v", err)
		}
	})
	return database
}
