// Package coverage holds the testwise coverage model: per-test, per-path sets
// of covered line ranges, plus the aggregator that merges raw instrumentation
// dumps into that model.
package coverage

import "sort"

// LineRange is an inclusive range of covered source lines.
type LineRange struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

// Valid reports whether the range has positive line numbers and a
// non-inverted span.
func (r LineRange) Valid() bool {
	return r.Start > 0 && r.End >= r.Start
}

// MergeRanges returns the minimal sorted union of the given ranges.
// Adjacent ranges are joined, so [1,3] and [4,6] become [1,6].
// The input slice is not modified.
func MergeRanges(ranges []LineRange) []LineRange {
	if len(ranges) == 0 {
		return nil
	}

	sorted := make([]LineRange, len(ranges))
	copy(sorted, ranges)
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].Start != sorted[j].Start {
			return sorted[i].Start < sorted[j].Start
		}
		return sorted[i].End < sorted[j].End
	})

	merged := sorted[:1]
	for _, r := range sorted[1:] {
		last := &merged[len(merged)-1]
		if r.Start <= last.End+1 {
			if r.End > last.End {
				last.End = r.End
			}
			continue
		}
		merged = append(merged, r)
	}

	return merged
}

// rangesEqual reports whether two range slices are element-wise equal.
func rangesEqual(a, b []LineRange) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
