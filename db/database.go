// Package db persists training job records. The default backend is a
// single sqlite file in WAL mode; an in-memory store exists for tests
// and ephemeral deployments.
package db

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"
)

// Open opens (creating if necessary) the sqlite database at path with
// WAL journaling and a busy timeout, so the poller and HTTP handlers can
// write concurrently.
func Open(path string) (*sql.DB, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating database directory %q: %w", dir, err)
		}
	}

	dsn := fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)", path)
	database, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening database %q: %w", path, err)
	}
	// sqlite serializes writes; a single connection avoids SQLITE_BUSY
	// churn under the poller.
	database.SetMaxOpenConns(1)

	if err := database.Ping(); err != nil {
		database.Close()
		return nil, fmt.Errorf("pinging database %q: %w", path, err)
	}
	return database, nil
}
