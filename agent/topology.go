package agent

import (
	"fmt"
	"net"
)

// Role is an agent's position in the primary/secondary topology. It is
// decided once at startup and immutable thereafter.
type Role string

const (
	// RolePrimary is taken by the agent that owns the well-known control
	// port. It accepts registrations and fans lifecycle events out.
	RolePrimary Role = "primary"

	// RoleSecondary is taken by agents that found the well-known port
	// occupied. They bind the next free port and register with the primary.
	RoleSecondary Role = "secondary"
)

// StartupError marks a failure that aborts agent startup: no free control
// port, a refused registration, or a missing collaborator.
type StartupError struct {
	Err error
}

func (e *StartupError) Error() string {
	return e.Err.Error()
}

func (e *StartupError) Unwrap() error {
	return e.Err
}

// Binder attempts to bind a listener on the given port. Injected so the
// bind-and-probe role decision can be tested without real sockets.
type Binder func(port int) (net.Listener, error)

// TCPBinder binds a TCP listener on all interfaces.
func TCPBinder(port int) (net.Listener, error) {
	return net.Listen("tcp", fmt.Sprintf(":%d", port))
}

// DecideRole probes ports starting at initialPort until one can be bound.
// Binding initialPort itself makes the agent the Primary; any later port
// makes it a Secondary. When no port in [initialPort, maxPort] is free the
// returned error is fatal for startup.
func DecideRole(initialPort, maxPort int, bind Binder) (Role, net.Listener, error) {
	if initialPort <= 0 || initialPort > maxPort {
		return "", nil, &StartupError{Err: fmt.Errorf("invalid control port range %d-%d", initialPort, maxPort)}
	}

	for port := initialPort; port <= maxPort; port++ {
		ln, err := bind(port)
		if err != nil {
			continue
		}
		if port == initialPort {
			return RolePrimary, ln, nil
		}
		return RoleSecondary, ln, nil
	}

	return "", nil, &StartupError{Err: fmt.Errorf("no free control port in range %d-%d", initialPort, maxPort)}
}

// listenerPort extracts the bound TCP port from a listener.
func listenerPort(ln net.Listener) int {
	if addr, ok := ln.Addr().(*net.TCPAddr); ok {
		return addr.Port
	}
	return 0
}
