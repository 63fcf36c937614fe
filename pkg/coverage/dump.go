package coverage

import "strings"

// RawDump is a point-in-time snapshot of coverage counters handed over by the
// instrumentation bridge. It is tagged with the session id that was active
// when the counters were captured. Dumps are consumed immediately by
// Aggregator.Append and never retained.
type RawDump struct {
	SessionID string     `json:"session_id"`
	Files     []FileDump `json:"files"`
}

// FileDump is the covered-lines contribution of a single source file within a
// dump. Coverage may arrive as individual line numbers, as ranges, or both.
type FileDump struct {
	Path   string      `json:"path"`
	Lines  []int       `json:"lines,omitempty"`
	Ranges []LineRange `json:"ranges,omitempty"`
}

// NormalizePath rewrites a source path to the canonical forward-slash form
// used throughout the coverage model.
func NormalizePath(path string) string {
	return strings.ReplaceAll(path, "\\", "/")
}
