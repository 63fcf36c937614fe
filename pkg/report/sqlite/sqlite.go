// Package sqlite provides the SQLite-backed report store.
package sqlite

import (
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3" // registers the "sqlite3" driver

	"github.com/testwiseco/testwise/pkg/report/sqldriver"
)

// Store implements report.Store using SQLite.
type Store struct {
	*sqldriver.SQLStore
}

// NewStore opens (or creates) the database at dbPath. ":memory:" is accepted
// for an in-memory database.
func NewStore(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite database: %w", err)
	}

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling foreign keys: %w", err)
	}

	inner, err := sqldriver.New(db, sqldriver.DialectSQLite)
	if err != nil {
		return nil, err
	}
	return &Store{SQLStore: inner}, nil
}
