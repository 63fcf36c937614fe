// Package agent implements the coordination server that lets several
// attached coverage agents behave as one logical session.
//
// At startup the server decides its topology role: if the configured control
// port is free it becomes the Primary, accepting registrations from
// secondaries and fanning every test start/end event out to them. If the
// port is occupied it probes upward for the next free port, becomes a
// Secondary, and registers with the Primary at the original port.
// Secondaries unregister best-effort before shutting down.
package agent

import (
	"context"
	"fmt"
	"net"
	"sync"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/testwiseco/testwise/agent/worker"
	"github.com/testwiseco/testwise/pkg/bridge"
	"github.com/testwiseco/testwise/pkg/coverage"
	"github.com/testwiseco/testwise/pkg/eventstream"
)

// Server is the coordination server for one agent process.
type Server struct {
	config   Config
	role     Role
	port     int
	bridge   bridge.Bridge
	agg      *coverage.Aggregator
	registry *Registry
	primary  *Peer
	pool     *worker.Pool
	events   eventstream.Publisher
	logger   *zap.Logger
	app      *fiber.App
	ln       net.Listener

	// mu serializes access to the instrumentation bridge so that the
	// (reset, start session) and (dump, merge) pairs are atomic per request.
	mu sync.Mutex
}

// NewServer decides the topology role, binds the control port, and — for a
// Secondary — registers with the Primary. A registration failure is fatal:
// role and topology must be unambiguous before serving traffic.
func NewServer(config Config, br bridge.Bridge, agg *coverage.Aggregator, events eventstream.Publisher, logger *zap.Logger) (*Server, error) {
	config = config.withDefaults()

	role, ln, err := DecideRole(config.Port, config.MaxPort, TCPBinder)
	if err != nil {
		return nil, fmt.Errorf("deciding agent role: %w", err)
	}

	s := newServer(config, role, listenerPort(ln), br, agg, events, logger)
	s.ln = ln

	if role == RoleSecondary {
		s.primary = NewPeer(config.Port, config.NotifyTimeout)
		ctx, cancel := context.WithTimeout(context.Background(), config.NotifyTimeout)
		defer cancel()
		if err := s.primary.Register(ctx, s.port); err != nil {
			ln.Close()
			return nil, &StartupError{Err: fmt.Errorf("registering with primary agent at port %d: %w", config.Port, err)}
		}
	}

	logger.Info("agent role decided",
		zap.String("role", string(role)),
		zap.Int("port", s.port),
	)

	return s, nil
}

// newServer wires routes and shared state without touching the network. Kept
// separate so handler tests can construct a server with a fixed role.
func newServer(config Config, role Role, port int, br bridge.Bridge, agg *coverage.Aggregator, events eventstream.Publisher, logger *zap.Logger) *Server {
	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
	})

	s := &Server{
		config:   config,
		role:     role,
		port:     port,
		bridge:   br,
		agg:      agg,
		registry: NewRegistry(),
		events:   events,
		logger:   logger,
		app:      app,
	}

	s.pool = worker.NewPool(&worker.Config{
		Timeout: config.NotifyTimeout,
		Logger:  logger,
	})

	app.Get("/session", s.handleSession)
	app.Post("/test/start/:testId", s.handleTestStart)
	app.Post("/test/end/:testId", s.handleTestEnd)
	app.Post("/register", s.handleRegister)
	app.Delete("/register", s.handleUnregister)

	return s
}

// Role returns the role decided at startup.
func (s *Server) Role() Role {
	return s.role
}

// Port returns the bound control port.
func (s *Server) Port() int {
	return s.port
}

// Registered returns the number of registered secondary agents.
func (s *Server) Registered() int {
	return s.registry.Len()
}

// Run serves the control API on the port bound at construction. It blocks
// until Shutdown is called or the listener fails.
func (s *Server) Run() error {
	s.logger.Info("listening for test events",
		zap.Int("port", s.port),
		zap.String("role", string(s.role)),
	)
	return s.app.Listener(s.ln)
}

// Shutdown unregisters from the primary (Secondary only, best-effort), stops
// the HTTP server so no new requests can reach the fan-out path, then drains
// pending notifications and releases the bound port.
func (s *Server) Shutdown() error {
	if s.primary != nil {
		ctx, cancel := context.WithTimeout(context.Background(), s.config.NotifyTimeout)
		defer cancel()
		if err := s.primary.Unregister(ctx, s.port); err != nil {
			s.logger.Error("unable to unregister from primary agent",
				zap.Int("primary_port", s.config.Port),
				zap.Error(err),
			)
		}
	}

	err := s.app.Shutdown()
	s.pool.Close()
	return err
}

// fanOut enqueues a lifecycle notification for every registered secondary.
// Delivery runs concurrently with, and never blocks, the initiating request.
func (s *Server) fanOut(kind worker.Kind, testID string) {
	for _, entry := range s.registry.Snapshot() {
		s.pool.Enqueue(worker.Job{
			Kind:   kind,
			TestID: testID,
			Port:   entry.Port,
			Peer:   entry.Peer,
		})
	}
}

// publishEvent emits a lifecycle event to the event stream, fire-and-forget.
func (s *Server) publishEvent(eventType, testID, sessionID string) {
	if s.events == nil {
		return
	}

	event := eventstream.NewTestLifecycleEvent(eventType, testID)
	event.SessionID = sessionID
	event.AgentPort = s.port
	event.AgentRole = string(s.role)
	event.Partition = s.config.Partition

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), s.config.NotifyTimeout)
		defer cancel()
		if err := s.events.PublishTestEvent(ctx, event); err != nil {
			s.logger.Warn("failed to publish test lifecycle event",
				zap.String("event_type", eventType),
				zap.String("test_id", testID),
				zap.Error(err),
			)
		}
	}()
}
