// Package report defines where per-round artifacts go: the test-detail
// listing written before execution and the filtered testwise coverage written
// at the end of a round. Drivers exist for per-round JSON files, SQLite, and
// PostgreSQL.
package report

import (
	"context"

	"github.com/testwiseco/testwise/pkg/coverage"
	"github.com/testwiseco/testwise/pkg/execution"
)

// Store persists per-round report artifacts. Rounds are identified by an
// opaque id minted by the caller (a UUID in practice).
type Store interface {
	// WriteTestDetails persists the round's declared-test listing.
	WriteTestDetails(ctx context.Context, roundID string, details []execution.TestDetails) error

	// WriteCoverage persists the round's filtered testwise coverage.
	WriteCoverage(ctx context.Context, roundID string, tc coverage.TestwiseCoverage) error

	// ReadCoverage loads a previously written coverage report.
	ReadCoverage(ctx context.Context, roundID string) (coverage.TestwiseCoverage, error)

	// Close releases any underlying resources.
	Close() error
}

// NotFoundError is returned when no coverage exists for a round.
type NotFoundError struct {
	RoundID string
}

func (e NotFoundError) Error() string {
	if e.RoundID == "" {
		return "coverage report not found"
	}
	return "coverage report not found for round: " + e.RoundID
}
