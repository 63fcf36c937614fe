package config

const (
	defaultAgentPort       = 8123
	defaultAgentMaxPort    = 65535
	defaultAgentPartition  = "unit"
	defaultNotifyTimeoutMS = 5000

	defaultEventsTopic = "testwise.test.events"
)

// NewDefaultConfig returns a Config with sane defaults for all fields.
// This is the single source of truth for default values.
func NewDefaultConfig() *Config {
	return &Config{
		Version: CurrentV,
		Agent: AgentConfig{
			Port:            defaultAgentPort,
			MaxPort:         defaultAgentMaxPort,
			Partition:       defaultAgentPartition,
			NotifyTimeoutMS: defaultNotifyTimeoutMS,
		},
		Events: EventsConfig{
			Topic: defaultEventsTopic,
		},
	}
}
