package coverage

import (
	"fmt"
	"sync"
)

// DecodeDiagnostic records a dump entry that could not be decoded. The entry's
// contribution is skipped; aggregation of all other entries continues.
type DecodeDiagnostic struct {
	SessionID string
	Path      string
	Reason    string
}

// Aggregator accumulates testwise coverage over one execution round. It is
// safe for concurrent use; all mutation is serialized under one lock.
//
// Coverage only ever grows within a round: Append unions new ranges into the
// existing per-(test, path) range sets and re-appending already covered
// ranges is a no-op.
type Aggregator struct {
	mu    sync.Mutex
	tests TestwiseCoverage
	diags []DecodeDiagnostic
}

// NewAggregator creates an empty aggregator.
func NewAggregator() *Aggregator {
	return &Aggregator{tests: make(TestwiseCoverage)}
}

// Append merges the dump's per-file covered lines into the coverage recorded
// for sessionID. When sessionID is empty, the dump's own session tag is used;
// if that is empty too the contribution lands under the implicit empty
// session, which is the documented behavior for a test-end event that was
// never preceded by a test start.
//
// A file entry that fails validation yields a recorded diagnostic and is
// skipped; the rest of the dump is still merged.
func (a *Aggregator) Append(sessionID string, dump *RawDump) {
	if dump == nil {
		return
	}
	if sessionID == "" {
		sessionID = dump.SessionID
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	paths, ok := a.tests[sessionID]
	if !ok {
		paths = make(PathCoverage)
		a.tests[sessionID] = paths
	}

	for _, file := range dump.Files {
		ranges, err := decodeFileDump(file)
		if err != nil {
			a.diags = append(a.diags, DecodeDiagnostic{
				SessionID: sessionID,
				Path:      file.Path,
				Reason:    err.Error(),
			})
			continue
		}
		if len(ranges) == 0 {
			continue
		}
		path := NormalizePath(file.Path)
		paths[path] = MergeRanges(append(paths[path], ranges...))
	}
}

// decodeFileDump validates a file entry and converts it into merged ranges.
func decodeFileDump(file FileDump) ([]LineRange, error) {
	if file.Path == "" {
		return nil, fmt.Errorf("file entry has no path")
	}

	ranges := make([]LineRange, 0, len(file.Lines)+len(file.Ranges))
	for _, line := range file.Lines {
		if line <= 0 {
			return nil, fmt.Errorf("invalid covered line %d", line)
		}
		ranges = append(ranges, LineRange{Start: line, End: line})
	}
	for _, r := range file.Ranges {
		if !r.Valid() {
			return nil, fmt.Errorf("invalid line range %d-%d", r.Start, r.End)
		}
		ranges = append(ranges, r)
	}

	return MergeRanges(ranges), nil
}

// Snapshot returns a deep copy of the accumulated coverage. The aggregator's
// own state is left untouched.
func (a *Aggregator) Snapshot() TestwiseCoverage {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.tests.Clone()
}

// Diagnostics returns the decode diagnostics recorded so far.
func (a *Aggregator) Diagnostics() []DecodeDiagnostic {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]DecodeDiagnostic, len(a.diags))
	copy(out, a.diags)
	return out
}

// Reset clears all accumulated coverage and diagnostics. It is meant for the
// boundary between independent report rounds, never between individual tests
// within a round.
func (a *Aggregator) Reset() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.tests = make(TestwiseCoverage)
	a.diags = nil
}
