package coverage_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/testwiseco/testwise/pkg/coverage"
)

var _ = Describe("LineRange", func() {
	It("accepts positive, non-inverted spans", func() {
		Expect(coverage.LineRange{Start: 1, End: 1}.Valid()).To(BeTrue())
		Expect(coverage.LineRange{Start: 3, End: 10}.Valid()).To(BeTrue())
	})

	It("rejects zero, negative, and inverted spans", func() {
		Expect(coverage.LineRange{Start: 0, End: 4}.Valid()).To(BeFalse())
		Expect(coverage.LineRange{Start: -2, End: -1}.Valid()).To(BeFalse())
		Expect(coverage.LineRange{Start: 8, End: 4}.Valid()).To(BeFalse())
	})
})

var _ = Describe("MergeRanges", func() {
	It("returns nil for empty input", func() {
		Expect(coverage.MergeRanges(nil)).To(BeNil())
	})

	It("sorts unordered ranges", func() {
		merged := coverage.MergeRanges([]coverage.LineRange{
			{Start: 20, End: 25},
			{Start: 1, End: 3},
			{Start: 8, End: 10},
		})
		Expect(merged).To(Equal([]coverage.LineRange{
			{Start: 1, End: 3},
			{Start: 8, End: 10},
			{Start: 20, End: 25},
		}))
	})

	It("joins overlapping ranges", func() {
		merged := coverage.MergeRanges([]coverage.LineRange{
			{Start: 1, End: 5},
			{Start: 3, End: 9},
		})
		Expect(merged).To(Equal([]coverage.LineRange{{Start: 1, End: 9}}))
	})

	It("joins adjacent ranges", func() {
		merged := coverage.MergeRanges([]coverage.LineRange{
			{Start: 1, End: 3},
			{Start: 4, End: 6},
		})
		Expect(merged).To(Equal([]coverage.LineRange{{Start: 1, End: 6}}))
	})

	It("keeps ranges separated by a gap apart", func() {
		merged := coverage.MergeRanges([]coverage.LineRange{
			{Start: 1, End: 3},
			{Start: 5, End: 6},
		})
		Expect(merged).To(Equal([]coverage.LineRange{
			{Start: 1, End: 3},
			{Start: 5, End: 6},
		}))
	})

	It("absorbs ranges fully contained in another", func() {
		merged := coverage.MergeRanges([]coverage.LineRange{
			{Start: 1, End: 20},
			{Start: 5, End: 7},
		})
		Expect(merged).To(Equal([]coverage.LineRange{{Start: 1, End: 20}}))
	})

	It("is independent of input order", func() {
		a := coverage.MergeRanges([]coverage.LineRange{
			{Start: 4, End: 6}, {Start: 1, End: 3}, {Start: 10, End: 12},
		})
		b := coverage.MergeRanges([]coverage.LineRange{
			{Start: 10, End: 12}, {Start: 4, End: 6}, {Start: 1, End: 3},
		})
		Expect(a).To(Equal(b))
	})

	It("does not modify the input slice", func() {
		input := []coverage.LineRange{
			{Start: 9, End: 9},
			{Start: 1, End: 2},
		}
		_ = coverage.MergeRanges(input)
		Expect(input).To(Equal([]coverage.LineRange{
			{Start: 9, End: 9},
			{Start: 1, End: 2},
		}))
	})
})
