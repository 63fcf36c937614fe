// Package execution defines the test execution engine contract consumed by
// the impacted-test orchestrator, along with the per-round summary model.
package execution

import "context"

// TestDetails describes one declared test case. Identity is the ID alone;
// the remaining fields are metadata forwarded to the analysis service and the
// persisted test-detail listing.
type TestDetails struct {
	ID         string   `json:"id"`
	SourcePath string   `json:"source_path,omitempty"`
	Tags       []string `json:"tags,omitempty"`
}

// Outcome is the per-test result of an execution.
type Outcome string

const (
	OutcomePassed  Outcome = "passed"
	OutcomeFailed  Outcome = "failed"
	OutcomeSkipped Outcome = "skipped"
)

// Summary aggregates the outcomes of one execution.
type Summary struct {
	Total    int                `json:"total"`
	Passed   int                `json:"passed"`
	Failed   int                `json:"failed"`
	Skipped  int                `json:"skipped"`
	Outcomes map[string]Outcome `json:"outcomes,omitempty"`
}

// ExitCode maps the summary onto a process exit status: non-zero when any
// test failed.
func (s *Summary) ExitCode() int {
	if s.Failed > 0 {
		return 1
	}
	return 0
}

// SummaryFromOutcomes tallies a summary from raw per-test outcomes.
func SummaryFromOutcomes(outcomes map[string]Outcome) *Summary {
	s := &Summary{Total: len(outcomes), Outcomes: outcomes}
	for _, outcome := range outcomes {
		switch outcome {
		case OutcomePassed:
			s.Passed++
		case OutcomeFailed:
			s.Failed++
		case OutcomeSkipped:
			s.Skipped++
		}
	}
	return s
}

// Engine is the execution-engine collaborator: it knows which tests are
// declared and how to run them.
type Engine interface {
	// DiscoverTests returns all currently declared tests with metadata.
	DiscoverTests(ctx context.Context) ([]TestDetails, error)

	// RunTests executes exactly the named tests.
	RunTests(ctx context.Context, ids []string) (*Summary, error)

	// RunAll executes every declared test.
	RunAll(ctx context.Context) (*Summary, error)
}
