// Package sqldriver holds the SQL report store shared by the sqlite and
// postgres drivers. The two differ only in driver registration, placeholder
// syntax, and connection setup.
package sqldriver

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/testwiseco/testwise/pkg/coverage"
	"github.com/testwiseco/testwise/pkg/execution"
	"github.com/testwiseco/testwise/pkg/report"
)

// Dialect selects the placeholder style for the underlying database.
type Dialect int

const (
	// DialectSQLite uses ? placeholders.
	DialectSQLite Dialect = iota
	// DialectPostgres uses $1, $2, ... placeholders.
	DialectPostgres
)

// SQLStore implements report.Store on top of a database/sql connection.
type SQLStore struct {
	db      *sql.DB
	dialect Dialect
}

// New wraps db and creates the schema if it does not exist yet.
func New(db *sql.DB, dialect Dialect) (*SQLStore, error) {
	s := &SQLStore{db: db, dialect: dialect}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrating report schema: %w", err)
	}
	return s, nil
}

func (s *SQLStore) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS test_details (
		round_id TEXT NOT NULL,
		test_id TEXT NOT NULL,
		source_path TEXT NOT NULL DEFAULT '',
		tags TEXT NOT NULL DEFAULT '',
		PRIMARY KEY (round_id, test_id)
	);

	CREATE TABLE IF NOT EXISTS coverage_ranges (
		round_id TEXT NOT NULL,
		test_id TEXT NOT NULL,
		path TEXT NOT NULL,
		start_line INTEGER NOT NULL,
		end_line INTEGER NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_coverage_ranges_round ON coverage_ranges(round_id);
	`

	_, err := s.db.Exec(schema)
	return err
}

// placeholders renders n placeholders in the store's dialect, starting at
// position offset+1 for postgres.
func (s *SQLStore) placeholders(offset, n int) string {
	parts := make([]string, n)
	for i := range parts {
		if s.dialect == DialectPostgres {
			parts[i] = fmt.Sprintf("$%d", offset+i+1)
		} else {
			parts[i] = "?"
		}
	}
	return strings.Join(parts, ", ")
}

func (s *SQLStore) WriteTestDetails(ctx context.Context, roundID string, details []execution.TestDetails) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	query := fmt.Sprintf(
		"INSERT INTO test_details (round_id, test_id, source_path, tags) VALUES (%s)",
		s.placeholders(0, 4),
	)
	for _, d := range details {
		if _, err := tx.ExecContext(ctx, query, roundID, d.ID, d.SourcePath, strings.Join(d.Tags, ",")); err != nil {
			return fmt.Errorf("inserting test detail %q: %w", d.ID, err)
		}
	}

	return tx.Commit()
}

func (s *SQLStore) WriteCoverage(ctx context.Context, roundID string, tc coverage.TestwiseCoverage) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	query := fmt.Sprintf(
		"INSERT INTO coverage_ranges (round_id, test_id, path, start_line, end_line) VALUES (%s)",
		s.placeholders(0, 5),
	)
	for testID, paths := range tc {
		for path, ranges := range paths {
			for _, r := range ranges {
				if _, err := tx.ExecContext(ctx, query, roundID, testID, path, r.Start, r.End); err != nil {
					return fmt.Errorf("inserting coverage range for %q: %w", testID, err)
				}
			}
		}
	}

	return tx.Commit()
}

func (s *SQLStore) ReadCoverage(ctx context.Context, roundID string) (coverage.TestwiseCoverage, error) {
	query := fmt.Sprintf(
		"SELECT test_id, path, start_line, end_line FROM coverage_ranges WHERE round_id = %s ORDER BY test_id, path, start_line",
		s.placeholders(0, 1),
	)

	rows, err := s.db.QueryContext(ctx, query, roundID)
	if err != nil {
		return nil, fmt.Errorf("querying coverage ranges: %w", err)
	}
	defer rows.Close()

	tc := make(coverage.TestwiseCoverage)
	for rows.Next() {
		var testID, path string
		var r coverage.LineRange
		if err := rows.Scan(&testID, &path, &r.Start, &r.End); err != nil {
			return nil, fmt.Errorf("scanning coverage range: %w", err)
		}
		paths, ok := tc[testID]
		if !ok {
			paths = make(coverage.PathCoverage)
			tc[testID] = paths
		}
		paths[path] = append(paths[path], r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating coverage ranges: %w", err)
	}

	if len(tc) == 0 {
		return nil, report.NotFoundError{RoundID: roundID}
	}
	return tc, nil
}

func (s *SQLStore) Close() error {
	return s.db.Close()
}
