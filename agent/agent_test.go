package agent

import (
	"fmt"
	"net"
	"net/http"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/zap"

	"github.com/testwiseco/testwise/pkg/bridge"
	"github.com/testwiseco/testwise/pkg/coverage"
)

// freePortBase asks the kernel for a free port to use as the control port of
// an isolated test topology. The port is released before the agents start.
func freePortBase() int {
	ln, err := net.Listen("tcp", ":0")
	Expect(err).NotTo(HaveOccurred())
	port := ln.Addr().(*net.TCPAddr).Port
	Expect(ln.Close()).To(Succeed())
	return port
}

var _ = Describe("multi-agent topology", func() {
	var (
		basePort   int
		primary    *Server
		primaryBr  *bridge.Scripted
		primaryAgg *coverage.Aggregator
	)

	startAgent := func(scripts ...[]coverage.FileDump) (*Server, *bridge.Scripted, *coverage.Aggregator) {
		br := bridge.NewScripted(scripts...)
		agg := coverage.NewAggregator()
		s, err := NewServer(Config{Port: basePort}, br, agg, nil, zap.NewNop())
		Expect(err).NotTo(HaveOccurred())

		go func() { _ = s.Run() }()
		Eventually(func() error {
			resp, err := http.Get(fmt.Sprintf("http://127.0.0.1:%d/session", s.Port()))
			if err != nil {
				return err
			}
			resp.Body.Close()
			return nil
		}).Should(Succeed())

		return s, br, agg
	}

	BeforeEach(func() {
		basePort = freePortBase()
		primary, primaryBr, primaryAgg = startAgent()
		Expect(primary.Role()).To(Equal(RolePrimary))
		Expect(primary.Port()).To(Equal(basePort))
	})

	AfterEach(func() {
		_ = primary.Shutdown()
	})

	It("elects exactly one primary and registers the rest", func() {
		var secondaries []*Server
		for range 3 {
			s, _, _ := startAgent()
			Expect(s.Role()).To(Equal(RoleSecondary))
			Expect(s.Port()).To(BeNumerically(">", basePort))
			secondaries = append(secondaries, s)
		}
		Expect(primary.Registered()).To(Equal(3))

		for _, s := range secondaries {
			Expect(s.Shutdown()).To(Succeed())
		}
		Eventually(primary.Registered).Should(BeZero())
	})

	It("relays lifecycle events from the primary to secondaries", func() {
		secondary, secondaryBr, secondaryAgg := startAgent([]coverage.FileDump{
			{Path: "src/remote.go", Lines: []int{5}},
		})
		defer func() { _ = secondary.Shutdown() }()

		resp, err := http.Post(
			fmt.Sprintf("http://127.0.0.1:%d/test/start/shared%%20test", primary.Port()),
			"", nil,
		)
		Expect(err).NotTo(HaveOccurred())
		resp.Body.Close()
		Expect(resp.StatusCode).To(Equal(http.StatusNoContent))

		Eventually(secondaryBr.SessionID).Should(Equal("shared test"))
		Expect(primaryBr.SessionID()).To(Equal("shared test"))

		resp, err = http.Post(
			fmt.Sprintf("http://127.0.0.1:%d/test/end/shared%%20test", primary.Port()),
			"", nil,
		)
		Expect(err).NotTo(HaveOccurred())
		resp.Body.Close()
		Expect(resp.StatusCode).To(Equal(http.StatusNoContent))

		Eventually(func() coverage.TestwiseCoverage {
			return secondaryAgg.Snapshot()
		}).Should(HaveKey("shared test"))
		Expect(primaryAgg.Snapshot()).To(HaveKey("shared test"))
	})

	It("keeps a secondary that fails to unregister from breaking shutdown", func() {
		secondary, _, _ := startAgent()

		// Primary goes away first; the secondary's best-effort unregister
		// fails but Shutdown still succeeds.
		Expect(primary.Shutdown()).To(Succeed())
		Expect(secondary.Shutdown()).To(Succeed())
	})
})

var _ = Describe("NewServer", func() {
	It("fails fast when the secondary cannot register", func() {
		// Occupy a port with a plain listener that speaks no HTTP, so role
		// decision yields Secondary but registration cannot succeed.
		ln, err := net.Listen("tcp", ":0")
		Expect(err).NotTo(HaveOccurred())
		defer ln.Close()
		basePort := ln.Addr().(*net.TCPAddr).Port

		_, err = NewServer(Config{Port: basePort}, bridge.NewScripted(), coverage.NewAggregator(), nil, zap.NewNop())
		Expect(err).To(MatchError(ContainSubstring("registering with primary agent")))
	})
})
