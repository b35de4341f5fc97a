// Package testing provides test helpers shared across corrscope packages.
package testing

import (
	"path/filepath"
	"testing"

	"github.com/aristath/corrscope/internal/database"
)

// NewTestDB creates a file-backed SQLite database in t.TempDir() and applies the
// embedded schema matching name ("universe", "cache"). Unknown names give an empty
// database. The database is closed automatically when the test ends.
func NewTestDB(t *testing.T, name string) *database.DB {
	t.Helper()

	db, err := database.New(database.Config{
		Path:    filepath.Join(t.TempDir(), name+".db"),
		Profile: database.ProfileStandard,
		Name:    name,
	})
	if err != nil {
		t.Fatalf("Failed to create test database %s: %v", name, err)
	}
	t.Cleanup(func() {
		if err := db.Close(); err != nil {
			t.Logf("Warning: Failed to close test database %s: %v", name, err)
		}
	})

	if err := db.Migrate(); err != nil {
		t.Fatalf("Failed to migrate test database %s: %v", name, err)
	}
	return db
}
