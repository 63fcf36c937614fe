package agent

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/zap"

	"github.com/testwiseco/testwise/pkg/bridge"
	"github.com/testwiseco/testwise/pkg/coverage"
)

// recordingNotifier records delivered lifecycle signals for assertions.
type recordingNotifier struct {
	mu     sync.Mutex
	starts []string
	ends   []string
}

func (n *recordingNotifier) SignalTestStart(_ context.Context, testID string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.starts = append(n.starts, testID)
	return nil
}

func (n *recordingNotifier) SignalTestEnd(_ context.Context, testID string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.ends = append(n.ends, testID)
	return nil
}

func (n *recordingNotifier) Starts() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]string(nil), n.starts...)
}

func (n *recordingNotifier) Ends() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]string(nil), n.ends...)
}

var _ = Describe("control endpoints", func() {
	var (
		server *Server
		br     *bridge.Scripted
		agg    *coverage.Aggregator
	)

	newTestServer := func(role Role, scripts ...[]coverage.FileDump) {
		br = bridge.NewScripted(scripts...)
		agg = coverage.NewAggregator()
		server = newServer(Config{Port: 8123}.withDefaults(), role, 8123, br, agg, nil, zap.NewNop())
	}

	request := func(method, target string) *http.Response {
		req := httptest.NewRequest(method, target, nil)
		resp, err := server.app.Test(req, -1)
		Expect(err).NotTo(HaveOccurred())
		return resp
	}

	AfterEach(func() {
		server.pool.Close()
	})

	Describe("GET /session", func() {
		BeforeEach(func() { newTestServer(RolePrimary) })

		It("returns the empty session when no test is running", func() {
			resp := request(http.MethodGet, "/session")
			Expect(resp.StatusCode).To(Equal(http.StatusOK))
		})
	})

	Describe("POST /test/start/:testId", func() {
		BeforeEach(func() { newTestServer(RolePrimary) })

		It("resets the instrumentation and starts a tagged session", func() {
			resp := request(http.MethodPost, "/test/start/login%20works")
			Expect(resp.StatusCode).To(Equal(http.StatusNoContent))

			Expect(br.Resets).To(Equal(1))
			Expect(br.Sessions).To(Equal([]string{"login works"}))
			Expect(br.SessionID()).To(Equal("login works"))
		})

		It("lets a later start overwrite the session (last writer wins)", func() {
			request(http.MethodPost, "/test/start/first")
			request(http.MethodPost, "/test/start/second")

			Expect(br.SessionID()).To(Equal("second"))
			Expect(br.Resets).To(Equal(2))
		})

		It("rejects a missing test id", func() {
			resp := request(http.MethodPost, "/test/start/")
			Expect(resp.StatusCode).To(Equal(http.StatusNotFound))
		})

		It("rejects a malformed test id", func() {
			// httptest.NewRequest panics on an unparseable URL, so build a
			// valid request and override the raw URI that app.Test serializes.
			req := httptest.NewRequest(http.MethodPost, "/test/start/placeholder", nil)
			req.RequestURI = "/test/start/bad%zz"
			resp, err := server.app.Test(req, -1)
			Expect(err).NotTo(HaveOccurred())
			Expect(resp.StatusCode).To(Equal(http.StatusBadRequest))
		})
	})

	Describe("POST /test/end/:testId", func() {
		It("dumps and merges coverage for the active session", func() {
			newTestServer(RolePrimary, []coverage.FileDump{
				{Path: "src/login.go", Lines: []int{1, 2, 3}},
			})

			request(http.MethodPost, "/test/start/login%20works")
			resp := request(http.MethodPost, "/test/end/login%20works")
			Expect(resp.StatusCode).To(Equal(http.StatusNoContent))

			snap := agg.Snapshot()
			Expect(snap).To(HaveKey("login works"))
			Expect(snap["login works"]["src/login.go"]).To(Equal([]coverage.LineRange{{Start: 1, End: 3}}))
		})

		It("attributes an end without a start to the empty session", func() {
			newTestServer(RolePrimary, []coverage.FileDump{
				{Path: "src/stray.go", Lines: []int{9}},
			})

			resp := request(http.MethodPost, "/test/end/never%20started")
			Expect(resp.StatusCode).To(Equal(http.StatusNoContent))

			snap := agg.Snapshot()
			Expect(snap).To(HaveKey(""))
			Expect(snap.Tests()).To(BeEmpty())
		})

		It("accumulates coverage over repeated start/end cycles", func() {
			newTestServer(RolePrimary,
				[]coverage.FileDump{{Path: "src/a.go", Ranges: []coverage.LineRange{{Start: 1, End: 3}}}},
				[]coverage.FileDump{{Path: "src/a.go", Ranges: []coverage.LineRange{{Start: 4, End: 6}}}},
			)

			request(http.MethodPost, "/test/start/t1")
			request(http.MethodPost, "/test/end/t1")
			request(http.MethodPost, "/test/start/t1")
			request(http.MethodPost, "/test/end/t1")

			Expect(agg.Snapshot()["t1"]["src/a.go"]).To(Equal([]coverage.LineRange{{Start: 1, End: 6}}))
		})
	})

	Describe("POST /register", func() {
		BeforeEach(func() { newTestServer(RolePrimary) })

		It("registers a secondary agent", func() {
			resp := request(http.MethodPost, "/register?port=9200")
			Expect(resp.StatusCode).To(Equal(http.StatusNoContent))
			Expect(server.Registered()).To(Equal(1))
		})

		It("is idempotent for a re-registered port", func() {
			request(http.MethodPost, "/register?port=9200")
			request(http.MethodPost, "/register?port=9200")
			Expect(server.Registered()).To(Equal(1))
		})

		It("rejects a missing port", func() {
			resp := request(http.MethodPost, "/register")
			Expect(resp.StatusCode).To(Equal(http.StatusBadRequest))
		})

		It("rejects a non-numeric port", func() {
			resp := request(http.MethodPost, "/register?port=abc")
			Expect(resp.StatusCode).To(Equal(http.StatusBadRequest))
		})

		It("rejects privileged and out-of-range ports", func() {
			Expect(request(http.MethodPost, "/register?port=80").StatusCode).To(Equal(http.StatusBadRequest))
			Expect(request(http.MethodPost, "/register?port=65535").StatusCode).To(Equal(http.StatusBadRequest))
			Expect(server.Registered()).To(BeZero())
		})

		It("is rejected by a secondary agent", func() {
			newTestServer(RoleSecondary)
			resp := request(http.MethodPost, "/register?port=9200")
			Expect(resp.StatusCode).To(Equal(http.StatusBadRequest))
		})
	})

	Describe("DELETE /register", func() {
		BeforeEach(func() { newTestServer(RolePrimary) })

		It("unregisters a registered secondary", func() {
			request(http.MethodPost, "/register?port=9200")

			resp := request(http.MethodDelete, "/register?port=9200")
			Expect(resp.StatusCode).To(Equal(http.StatusNoContent))
			Expect(server.Registered()).To(BeZero())
		})

		It("answers not found for an unknown port", func() {
			resp := request(http.MethodDelete, "/register?port=9300")
			Expect(resp.StatusCode).To(Equal(http.StatusNotFound))
		})

		It("answers not found for a second unregistration", func() {
			request(http.MethodPost, "/register?port=9200")
			request(http.MethodDelete, "/register?port=9200")

			resp := request(http.MethodDelete, "/register?port=9200")
			Expect(resp.StatusCode).To(Equal(http.StatusNotFound))
		})

		It("is rejected by a secondary agent", func() {
			newTestServer(RoleSecondary)
			resp := request(http.MethodDelete, "/register?port=9200")
			Expect(resp.StatusCode).To(Equal(http.StatusBadRequest))
		})
	})

	Describe("fan-out", func() {
		BeforeEach(func() { newTestServer(RolePrimary) })

		It("relays start and end events to every registered peer", func() {
			first := &recordingNotifier{}
			second := &recordingNotifier{}
			server.registry.Add(9200, first)
			server.registry.Add(9201, second)

			request(http.MethodPost, "/test/start/shared%20test")
			request(http.MethodPost, "/test/end/shared%20test")

			Eventually(first.Starts).Should(Equal([]string{"shared test"}))
			Eventually(first.Ends).Should(Equal([]string{"shared test"}))
			Eventually(second.Starts).Should(Equal([]string{"shared test"}))
			Eventually(second.Ends).Should(Equal([]string{"shared test"}))
		})
	})
})
