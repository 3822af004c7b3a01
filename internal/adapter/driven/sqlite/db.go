// Package sqlite stores the per-run evidence journal in SQLite.
package sqlite

import (
	"database/sql"
	"errors"
	"fmt"
	"io/fs"
	"os"

	_ "modernc.org/sqlite"
)

// DB is an open journal file. A run records from a single goroutine and the
// journal command only reads a finished run, so one connection serves both.
type DB struct {
	conn *sql.DB
	path string
}

// open connects to the journal at dbPath without touching its schema.
func open(dbPath string) (*DB, error) {
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=synchronous(NORMAL)", dbPath)

	conn, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open journal %s: %w", dbPath, err)
	}
	conn.SetMaxOpenConns(1)

	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("ping journal %s: %w", dbPath, err)
	}
	return &DB{conn: conn, path: dbPath}, nil
}

// OpenJournal discards any journal left at dbPath by an earlier run and
// returns a fresh one with the current schema.
func OpenJournal(dbPath string) (*DB, error) {
	if err := ResetDB(dbPath); err != nil {
		return nil, err
	}
	return openMigrated(dbPath)
}

// OpenExisting opens the journal a finished run left at dbPath for reading.
func OpenExisting(dbPath string) (*DB, error) {
	if _, err := os.Stat(dbPath); err != nil {
		return nil, fmt.Errorf("no journal at %s: %w", dbPath, err)
	}
	return openMigrated(dbPath)
}

func openMigrated(dbPath string) (*DB, error) {
	db, err := open(dbPath)
	if err != nil {
		return nil, err
	}
	if err := migrateJournal(db.conn); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

// Path returns the journal file location.
func (db *DB) Path() string { return db.path }

// Close releases the connection.
func (db *DB) Close() error {
	if err := db.conn.Close(); err != nil {
		return fmt.Errorf("close journal: %w", err)
	}
	return nil
}

// ResetDB removes the journal file at dbPath together with the rollback
// journal and WAL companions SQLite may leave next to it. Missing files are
// not an error.
func ResetDB(dbPath string) error {
	for _, p := range []string{dbPath, dbPath + "-journal", dbPath + "-wal", dbPath + "-shm"} {
		if err := os.Remove(p); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("remove %s: %w", p, err)
		}
	}
	return nil
}
