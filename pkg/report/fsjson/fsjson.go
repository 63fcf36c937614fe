// Package fsjson is the file-based report store: each round becomes a
// directory containing test-list.json and testwise-coverage.json.
package fsjson

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/testwiseco/testwise/pkg/coverage"
	"github.com/testwiseco/testwise/pkg/execution"
	"github.com/testwiseco/testwise/pkg/report"
)

const (
	testListFile = "test-list.json"
	coverageFile = "testwise-coverage.json"
)

// Store writes report artifacts under a base directory, one subdirectory per
// round.
type Store struct {
	baseDir string
}

// NewStore creates the base directory if needed.
func NewStore(baseDir string) (*Store, error) {
	if baseDir == "" {
		return nil, errors.New("report directory is required")
	}
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating report directory %s: %w", baseDir, err)
	}
	return &Store{baseDir: baseDir}, nil
}

func (s *Store) WriteTestDetails(_ context.Context, roundID string, details []execution.TestDetails) error {
	return s.writeJSON(roundID, testListFile, details)
}

func (s *Store) WriteCoverage(_ context.Context, roundID string, tc coverage.TestwiseCoverage) error {
	return s.writeJSON(roundID, coverageFile, tc)
}

func (s *Store) ReadCoverage(_ context.Context, roundID string) (coverage.TestwiseCoverage, error) {
	data, err := os.ReadFile(filepath.Join(s.baseDir, roundID, coverageFile))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, report.NotFoundError{RoundID: roundID}
		}
		return nil, fmt.Errorf("reading coverage report: %w", err)
	}

	var tc coverage.TestwiseCoverage
	if err := json.Unmarshal(data, &tc); err != nil {
		return nil, fmt.Errorf("decoding coverage report: %w", err)
	}
	return tc, nil
}

func (s *Store) Close() error {
	return nil
}

func (s *Store) writeJSON(roundID, name string, v any) error {
	dir := filepath.Join(s.baseDir, roundID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating round directory %s: %w", dir, err)
	}

	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding %s: %w", name, err)
	}

	if err := os.WriteFile(filepath.Join(dir, name), data, 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", name, err)
	}
	return nil
}
