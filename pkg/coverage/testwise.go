package coverage

// PathCoverage maps a source path to its covered line ranges. The ranges for
// each path are always sorted, merged, and non-overlapping.
type PathCoverage map[string][]LineRange

// TestwiseCoverage maps a test identity (its stable string key) to the paths
// and line ranges that test covered. The zero value is not usable; construct
// with make or take one from Aggregator.Snapshot.
type TestwiseCoverage map[string]PathCoverage

// Clone returns a deep copy of the coverage mapping.
func (tc TestwiseCoverage) Clone() TestwiseCoverage {
	out := make(TestwiseCoverage, len(tc))
	for testID, paths := range tc {
		pc := make(PathCoverage, len(paths))
		for path, ranges := range paths {
			cp := make([]LineRange, len(ranges))
			copy(cp, ranges)
			pc[path] = cp
		}
		out[testID] = pc
	}
	return out
}

// Equal reports whether two coverage mappings contain the same tests, paths,
// and ranges.
func (tc TestwiseCoverage) Equal(other TestwiseCoverage) bool {
	if len(tc) != len(other) {
		return false
	}
	for testID, paths := range tc {
		otherPaths, ok := other[testID]
		if !ok || len(paths) != len(otherPaths) {
			return false
		}
		for path, ranges := range paths {
			if !rangesEqual(ranges, otherPaths[path]) {
				return false
			}
		}
	}
	return true
}

// Tests returns the test identities present in the mapping, excluding the
// implicit empty session key.
func (tc TestwiseCoverage) Tests() []string {
	tests := make([]string, 0, len(tc))
	for testID := range tc {
		if testID == "" {
			continue
		}
		tests = append(tests, testID)
	}
	return tests
}

// PathFilter decides whether a path belongs in a report. It matches the
// patterns.Filter contract.
type PathFilter interface {
	IsIncluded(path string) bool
}

// Filtered returns a copy of the coverage mapping containing only paths
// accepted by the filter. Coverage recorded under the implicit empty session
// is dropped entirely since it cannot be attributed to a test.
func Filtered(tc TestwiseCoverage, filter PathFilter) TestwiseCoverage {
	out := make(TestwiseCoverage)
	for testID, paths := range tc {
		if testID == "" {
			continue
		}
		pc := make(PathCoverage)
		for path, ranges := range paths {
			if filter != nil && !filter.IsIncluded(path) {
				continue
			}
			cp := make([]LineRange, len(ranges))
			copy(cp, ranges)
			pc[path] = cp
		}
		if len(pc) > 0 {
			out[testID] = pc
		}
	}
	return out
}
