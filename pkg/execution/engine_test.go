package execution_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/testwiseco/testwise/pkg/execution"
)

var _ = Describe("SummaryFromOutcomes", func() {
	It("tallies outcomes by kind", func() {
		summary := execution.SummaryFromOutcomes(map[string]execution.Outcome{
			"a": execution.OutcomePassed,
			"b": execution.OutcomePassed,
			"c": execution.OutcomeFailed,
			"d": execution.OutcomeSkipped,
		})

		Expect(summary.Total).To(Equal(4))
		Expect(summary.Passed).To(Equal(2))
		Expect(summary.Failed).To(Equal(1))
		Expect(summary.Skipped).To(Equal(1))
	})

	It("handles an empty outcome set", func() {
		summary := execution.SummaryFromOutcomes(nil)
		Expect(summary.Total).To(BeZero())
		Expect(summary.ExitCode()).To(BeZero())
	})
})

var _ = Describe("Summary.ExitCode", func() {
	It("is zero while no test failed", func() {
		Expect((&execution.Summary{Total: 5, Passed: 4, Skipped: 1}).ExitCode()).To(BeZero())
	})

	It("is non-zero as soon as one test failed", func() {
		Expect((&execution.Summary{Total: 5, Passed: 4, Failed: 1}).ExitCode()).To(Equal(1))
	})
})

var _ = Describe("ParseCommand", func() {
	It("splits on whitespace", func() {
		Expect(execution.ParseCommand("scripts/run-tests --json")).To(Equal([]string{"scripts/run-tests", "--json"}))
	})

	It("returns nil for an empty string", func() {
		Expect(execution.ParseCommand("")).To(BeEmpty())
		Expect(execution.ParseCommand("   ")).To(BeEmpty())
	})
})
