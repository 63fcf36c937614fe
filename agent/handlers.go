package agent

import (
	"fmt"
	"net/url"
	"strconv"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/testwiseco/testwise/agent/worker"
	"github.com/testwiseco/testwise/pkg/eventstream"
)

// errorResponse is the JSON body for client-error statuses.
type errorResponse struct {
	Error string `json:"error"`
}

// handleSession returns the currently active session id, empty when no test
// is running.
func (s *Server) handleSession(c *fiber.Ctx) error {
	return c.SendString(s.bridge.SessionID())
}

// handleTestStart resets the instrumentation counters and starts a session
// tagged with the test id, so only coverage belonging to this particular
// test case is recorded. A Primary fans the event out to all secondaries.
func (s *Server) handleTestStart(c *fiber.Ctx) error {
	testID, err := testIDParam(c)
	if err != nil {
		s.logger.Error("test id missing in start request", zap.String("url", c.OriginalURL()))
		return c.Status(fiber.StatusBadRequest).JSON(errorResponse{Error: err.Error()})
	}

	s.logger.Debug("start test", zap.String("test_id", testID))

	s.mu.Lock()
	resetErr := s.bridge.Reset()
	s.bridge.StartSession(testID)
	s.mu.Unlock()

	if resetErr != nil {
		s.logger.Warn("instrumentation reset failed",
			zap.String("test_id", testID),
			zap.Error(resetErr),
		)
	}

	s.fanOut(worker.KindTestStart, testID)
	s.publishEvent(eventstream.EventTypeTestStarted, testID, testID)

	return c.SendStatus(fiber.StatusNoContent)
}

// handleTestEnd dumps the counters recorded for the ending test and merges
// them into the aggregated testwise coverage. A dump that arrives without a
// preceding start is attributed to the bridge's current (possibly empty)
// session rather than rejected.
func (s *Server) handleTestEnd(c *fiber.Ctx) error {
	testID, err := testIDParam(c)
	if err != nil {
		s.logger.Error("test id missing in end request", zap.String("url", c.OriginalURL()))
		return c.Status(fiber.StatusBadRequest).JSON(errorResponse{Error: err.Error()})
	}

	s.logger.Debug("end test", zap.String("test_id", testID))

	s.mu.Lock()
	dump, dumpErr := s.bridge.Dump()
	sessionID := s.bridge.SessionID()
	if dumpErr == nil {
		s.agg.Append(sessionID, dump)
	}
	s.mu.Unlock()

	if dumpErr != nil {
		// Absorbed: the round continues with a partial model.
		s.logger.Error("coverage dump failed, contribution skipped",
			zap.String("test_id", testID),
			zap.Error(dumpErr),
		)
	}

	s.fanOut(worker.KindTestEnd, testID)
	s.publishEvent(eventstream.EventTypeTestFinished, testID, sessionID)

	return c.SendStatus(fiber.StatusNoContent)
}

// handleRegister accepts a registration from a secondary agent. Only a
// Primary may accept registrations; registering twice for the same port
// leaves the registry unchanged in size.
func (s *Server) handleRegister(c *fiber.Ctx) error {
	if s.role != RolePrimary {
		s.logger.Error("rejected registration on secondary agent")
		return c.Status(fiber.StatusBadRequest).JSON(errorResponse{Error: "cannot register with a secondary agent"})
	}

	port, err := portFromQuery(c)
	if err != nil {
		s.logger.Error("invalid registration request", zap.Error(err))
		return c.Status(fiber.StatusBadRequest).JSON(errorResponse{Error: err.Error()})
	}

	s.registry.Add(port, NewPeer(port, s.config.NotifyTimeout))
	s.logger.Info("secondary agent registered", zap.Int("port", port))

	return c.SendStatus(fiber.StatusNoContent)
}

// handleUnregister removes a secondary registration. Unregistering a port
// that is not registered answers "not found" without escalating.
func (s *Server) handleUnregister(c *fiber.Ctx) error {
	if s.role != RolePrimary {
		s.logger.Error("rejected unregistration on secondary agent")
		return c.Status(fiber.StatusBadRequest).JSON(errorResponse{Error: "cannot unregister from a secondary agent"})
	}

	port, err := portFromQuery(c)
	if err != nil {
		s.logger.Error("invalid unregistration request", zap.Error(err))
		return c.Status(fiber.StatusBadRequest).JSON(errorResponse{Error: err.Error()})
	}

	if !s.registry.Remove(port) {
		return c.Status(fiber.StatusNotFound).JSON(errorResponse{
			Error: fmt.Sprintf("no secondary agent registered for port %d", port),
		})
	}

	s.logger.Info("secondary agent unregistered", zap.Int("port", port))
	return c.SendStatus(fiber.StatusNoContent)
}

// testIDParam extracts and validates the test id path parameter.
func testIDParam(c *fiber.Ctx) (string, error) {
	raw := c.Params("testId")
	if raw == "" {
		return "", fmt.Errorf("test id is missing")
	}
	testID, err := url.PathUnescape(raw)
	if err != nil || testID == "" {
		return "", fmt.Errorf("test id is malformed")
	}
	return testID, nil
}

// portFromQuery extracts and validates the port query parameter.
func portFromQuery(c *fiber.Ctx) (int, error) {
	raw := c.Query("port")
	if raw == "" {
		return 0, fmt.Errorf("port is missing")
	}
	port, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("port %q is not a number", raw)
	}
	if port < 1024 || port >= MaxPortNumber {
		return 0, fmt.Errorf("port %d is not a valid port", port)
	}
	return port, nil
}
