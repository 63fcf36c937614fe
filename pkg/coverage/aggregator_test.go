package coverage_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/testwiseco/testwise/pkg/coverage"
)

var _ = Describe("Aggregator", func() {
	var agg *coverage.Aggregator

	BeforeEach(func() {
		agg = coverage.NewAggregator()
	})

	It("merges a dump into per-test path coverage", func() {
		agg.Append("shows login form", &coverage.RawDump{
			Files: []coverage.FileDump{
				{Path: "src/login/form.go", Lines: []int{1, 2, 3, 10}},
			},
		})

		snap := agg.Snapshot()
		Expect(snap).To(HaveKey("shows login form"))
		Expect(snap["shows login form"]["src/login/form.go"]).To(Equal([]coverage.LineRange{
			{Start: 1, End: 3},
			{Start: 10, End: 10},
		}))
	})

	It("is idempotent for repeated dumps", func() {
		dump := &coverage.RawDump{
			Files: []coverage.FileDump{
				{Path: "src/a.go", Ranges: []coverage.LineRange{{Start: 1, End: 5}}},
			},
		}
		agg.Append("t1", dump)
		first := agg.Snapshot()

		agg.Append("t1", dump)
		Expect(agg.Snapshot().Equal(first)).To(BeTrue())
	})

	It("unions coverage across dumps for the same test and path", func() {
		agg.Append("t1", &coverage.RawDump{
			Files: []coverage.FileDump{{Path: "src/a.go", Ranges: []coverage.LineRange{{Start: 1, End: 3}}}},
		})
		agg.Append("t1", &coverage.RawDump{
			Files: []coverage.FileDump{{Path: "src/a.go", Ranges: []coverage.LineRange{{Start: 4, End: 8}}}},
		})

		Expect(agg.Snapshot()["t1"]["src/a.go"]).To(Equal([]coverage.LineRange{{Start: 1, End: 8}}))
	})

	It("falls back to the dump's session tag when no session id is given", func() {
		agg.Append("", &coverage.RawDump{
			SessionID: "tagged test",
			Files:     []coverage.FileDump{{Path: "src/a.go", Lines: []int{7}}},
		})

		Expect(agg.Snapshot()).To(HaveKey("tagged test"))
	})

	It("records coverage without any session under the empty key", func() {
		agg.Append("", &coverage.RawDump{
			Files: []coverage.FileDump{{Path: "src/a.go", Lines: []int{7}}},
		})

		snap := agg.Snapshot()
		Expect(snap).To(HaveKey(""))
		Expect(snap.Tests()).To(BeEmpty())
	})

	It("normalizes backslash paths", func() {
		agg.Append("t1", &coverage.RawDump{
			Files: []coverage.FileDump{{Path: `src\win\file.go`, Lines: []int{1}}},
		})

		Expect(agg.Snapshot()["t1"]).To(HaveKey("src/win/file.go"))
	})

	It("skips undecodable entries and records a diagnostic", func() {
		agg.Append("t1", &coverage.RawDump{
			Files: []coverage.FileDump{
				{Path: "src/bad.go", Lines: []int{0}},
				{Path: "src/good.go", Lines: []int{4}},
			},
		})

		snap := agg.Snapshot()
		Expect(snap["t1"]).NotTo(HaveKey("src/bad.go"))
		Expect(snap["t1"]).To(HaveKey("src/good.go"))

		diags := agg.Diagnostics()
		Expect(diags).To(HaveLen(1))
		Expect(diags[0].Path).To(Equal("src/bad.go"))
		Expect(diags[0].Reason).To(ContainSubstring("invalid covered line"))
	})

	It("rejects entries without a path", func() {
		agg.Append("t1", &coverage.RawDump{
			Files: []coverage.FileDump{{Lines: []int{4}}},
		})

		Expect(agg.Snapshot()["t1"]).To(BeEmpty())
		Expect(agg.Diagnostics()).To(HaveLen(1))
	})

	It("ignores nil dumps", func() {
		agg.Append("t1", nil)
		Expect(agg.Snapshot()).To(BeEmpty())
	})

	It("returns snapshots detached from internal state", func() {
		agg.Append("t1", &coverage.RawDump{
			Files: []coverage.FileDump{{Path: "src/a.go", Lines: []int{1}}},
		})

		snap := agg.Snapshot()
		snap["t1"]["src/a.go"][0].End = 999

		Expect(agg.Snapshot()["t1"]["src/a.go"]).To(Equal([]coverage.LineRange{{Start: 1, End: 1}}))
	})

	It("clears coverage and diagnostics on reset", func() {
		agg.Append("t1", &coverage.RawDump{
			Files: []coverage.FileDump{{Path: "", Lines: []int{1}}},
		})
		agg.Reset()

		Expect(agg.Snapshot()).To(BeEmpty())
		Expect(agg.Diagnostics()).To(BeEmpty())
	})
})

type includeAll struct{}

func (includeAll) IsIncluded(string) bool { return true }

type prefixFilter struct{ prefix string }

func (f prefixFilter) IsIncluded(path string) bool {
	return len(path) >= len(f.prefix) && path[:len(f.prefix)] == f.prefix
}

var _ = Describe("Filtered", func() {
	tc := coverage.TestwiseCoverage{
		"t1": {
			"src/a.go": {{Start: 1, End: 2}},
			"gen/b.go": {{Start: 3, End: 4}},
			"src/c.go": {{Start: 5, End: 6}},
		},
		"t2": {
			"gen/d.go": {{Start: 1, End: 1}},
		},
		"": {
			"src/a.go": {{Start: 1, End: 9}},
		},
	}

	It("keeps only included paths", func() {
		out := coverage.Filtered(tc, prefixFilter{prefix: "src/"})
		Expect(out["t1"]).To(HaveLen(2))
		Expect(out["t1"]).To(HaveKey("src/a.go"))
		Expect(out["t1"]).To(HaveKey("src/c.go"))
	})

	It("drops tests whose every path is excluded", func() {
		out := coverage.Filtered(tc, prefixFilter{prefix: "src/"})
		Expect(out).NotTo(HaveKey("t2"))
	})

	It("always drops the implicit empty session", func() {
		out := coverage.Filtered(tc, includeAll{})
		Expect(out).NotTo(HaveKey(""))
	})

	It("passes everything through a nil filter except the empty session", func() {
		out := coverage.Filtered(tc, nil)
		Expect(out).To(HaveLen(2))
		Expect(out["t1"]).To(HaveLen(3))
	})

	It("returns detached copies", func() {
		out := coverage.Filtered(tc, includeAll{})
		out["t1"]["src/a.go"][0].End = 999
		Expect(tc["t1"]["src/a.go"][0].End).To(Equal(2))
	})
})
