package agent

import "time"

// MaxPortNumber is the upper bound for the bind-and-probe port search.
const MaxPortNumber = 65535

// Config holds the coordination server settings.
type Config struct {
	// Port is the well-known control port. Owning it makes this agent the
	// Primary; finding it occupied starts the probe for a Secondary port.
	Port int

	// MaxPort bounds the port probe (defaults to MaxPortNumber).
	MaxPort int

	// NotifyTimeout bounds each outbound peer notification.
	NotifyTimeout time.Duration

	// Partition labels this agent's coverage for the analysis service.
	Partition string
}

// withDefaults fills unset fields.
func (c Config) withDefaults() Config {
	if c.MaxPort == 0 {
		c.MaxPort = MaxPortNumber
	}
	if c.NotifyTimeout == 0 {
		c.NotifyTimeout = 5 * time.Second
	}
	return c
}
