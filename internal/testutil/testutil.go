// Package testutil provides shared test helpers for setting up graph
// workspaces and audit logs.
package testutil

import (
	"os"
	"testing"

	"github.com/starford/gebo/internal/audit"
	"github.com/starford/gebo/internal/storage"
)

// TestWorkspace creates a temporary workspace directory with a storage.Provider.
func TestWorkspace(t *testing.T) (string, storage.Provider) {
	t.Helper()
	dir := t.TempDir()
	store, err := storage.NewFS(dir)
	if err != nil {
		t.Fatal(err)
	}
	return dir, store
}

// TestAudit creates a temporary SQLite audit log that is automatically cleaned up.
func TestAudit(t *testing.T) *audit.Log {
	t.Helper()
	dbFile, err := os.CreateTemp("", "gebo-test-*.db")
	if err != nil {
		t.Fatal(err)
	}
	dbFile.Close()
	t.Cleanup(func() { os.Remove(dbFile.Name()) })

	log, err := audit.Open(dbFile.Name())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { log.Close() })
	return log
}
