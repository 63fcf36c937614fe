package agent

import (
	"context"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

// noopNotifier satisfies worker.Notifier for registry specs.
type noopNotifier struct{}

func (noopNotifier) SignalTestStart(context.Context, string) error { return nil }
func (noopNotifier) SignalTestEnd(context.Context, string) error   { return nil }

var _ = Describe("Registry", func() {
	var registry *Registry

	BeforeEach(func() {
		registry = NewRegistry()
	})

	It("registers peers idempotently by port", func() {
		registry.Add(8124, noopNotifier{})
		registry.Add(8124, noopNotifier{})
		Expect(registry.Len()).To(Equal(1))
	})

	It("reports whether a removed port was registered", func() {
		registry.Add(8124, noopNotifier{})
		Expect(registry.Remove(8124)).To(BeTrue())
		Expect(registry.Remove(8124)).To(BeFalse())
		Expect(registry.Len()).To(BeZero())
	})

	It("snapshots peer entries in ascending port order", func() {
		registry.Add(8200, noopNotifier{})
		registry.Add(8124, noopNotifier{})
		registry.Add(8150, noopNotifier{})

		entries := registry.Snapshot()
		Expect(entries).To(HaveLen(3))
		Expect(entries[0].Port).To(Equal(8124))
		Expect(entries[1].Port).To(Equal(8150))
		Expect(entries[2].Port).To(Equal(8200))
	})

	It("returns a snapshot detached from later mutations", func() {
		registry.Add(8124, noopNotifier{})
		entries := registry.Snapshot()
		registry.Add(8125, noopNotifier{})
		Expect(entries).To(HaveLen(1))
	})
})
