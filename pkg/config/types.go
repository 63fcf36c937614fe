package config

import (
	"fmt"
	"strconv"
	"strings"
)

// Config represents the persistent testwise configuration stored as
// config.toml in the .testwise/ directory. The TOML layout uses sections for
// logical grouping.
type Config struct {
	Version  int            `toml:"version"`
	Agent    AgentConfig    `toml:"agent"`
	Filter   FilterConfig   `toml:"filter"`
	Report   ReportConfig   `toml:"report"`
	Analysis AnalysisConfig `toml:"analysis"`
	Events   EventsConfig   `toml:"events"`
	Run      RunConfig      `toml:"run"`
}

// AgentConfig holds coordination server settings.
type AgentConfig struct {
	// Port is the well-known control port shared by all agents of one
	// logical session.
	Port int `toml:"port,omitempty"`

	// MaxPort bounds the bind-and-probe port search.
	MaxPort int `toml:"max_port,omitempty"`

	// Partition labels this agent's coverage for the analysis service.
	Partition string `toml:"partition,omitempty"`

	// NotifyTimeoutMS bounds each outbound peer notification in
	// milliseconds.
	NotifyTimeoutMS int `toml:"notify_timeout_ms,omitempty"`
}

// FilterConfig holds the report path filter patterns.
type FilterConfig struct {
	Includes []string `toml:"includes,omitempty"`
	Excludes []string `toml:"excludes,omitempty"`
}

// ReportConfig selects where per-round artifacts are written. At most one
// backend is used: a postgres URL wins over a sqlite path, which wins over
// the directory (which defaults to the .testwise/reports dir).
type ReportConfig struct {
	Directory   string `toml:"directory,omitempty"`
	SQLitePath  string `toml:"sqlite_path,omitempty"`
	PostgresURL string `toml:"postgres_url,omitempty"`
}

// AnalysisConfig holds the remote impact-analysis service settings.
type AnalysisConfig struct {
	ServerURL   string `toml:"server_url,omitempty"`
	Project     string `toml:"project,omitempty"`
	AccessToken string `toml:"access_token,omitempty"`
}

// EventsConfig holds the optional Kafka event stream settings. Events are
// disabled while Brokers is empty.
type EventsConfig struct {
	Brokers []string `toml:"brokers,omitempty"`
	Topic   string   `toml:"topic,omitempty"`
}

// RunConfig holds the external execution-engine commands used by the run
// command.
type RunConfig struct {
	DiscoverCmd string `toml:"discover_cmd,omitempty"`
	RunCmd      string `toml:"run_cmd,omitempty"`
}

// configKeyInfo maps a user-facing dotted key name to a getter and setter on *Config.
type configKeyInfo struct {
	get func(c *Config) string
	set func(c *Config, v string) error
}

// configKeys is the authoritative map of all supported config keys. Keys use
// dotted notation matching the TOML section structure. List-valued keys use
// comma-separated values on the command line.
var configKeys = map[string]configKeyInfo{
	"agent.port": {
		get: func(c *Config) string { return formatInt(c.Agent.Port) },
		set: func(c *Config, v string) error { return parseInt(v, "agent.port", &c.Agent.Port) },
	},
	"agent.max_port": {
		get: func(c *Config) string { return formatInt(c.Agent.MaxPort) },
		set: func(c *Config, v string) error { return parseInt(v, "agent.max_port", &c.Agent.MaxPort) },
	},
	"agent.partition": {
		get: func(c *Config) string { return c.Agent.Partition },
		set: func(c *Config, v string) error { c.Agent.Partition = v; return nil },
	},
	"agent.notify_timeout_ms": {
		get: func(c *Config) string { return formatInt(c.Agent.NotifyTimeoutMS) },
		set: func(c *Config, v string) error {
			return parseInt(v, "agent.notify_timeout_ms", &c.Agent.NotifyTimeoutMS)
		},
	},
	"filter.includes": {
		get: func(c *Config) string { return strings.Join(c.Filter.Includes, ",") },
		set: func(c *Config, v string) error { c.Filter.Includes = splitList(v); return nil },
	},
	"filter.excludes": {
		get: func(c *Config) string { return strings.Join(c.Filter.Excludes, ",") },
		set: func(c *Config, v string) error { c.Filter.Excludes = splitList(v); return nil },
	},
	"report.directory": {
		get: func(c *Config) string { return c.Report.Directory },
		set: func(c *Config, v string) error { c.Report.Directory = v; return nil },
	},
	"report.sqlite_path": {
		get: func(c *Config) string { return c.Report.SQLitePath },
		set: func(c *Config, v string) error { c.Report.SQLitePath = v; return nil },
	},
	"report.postgres_url": {
		get: func(c *Config) string { return c.Report.PostgresURL },
		set: func(c *Config, v string) error { c.Report.PostgresURL = v; return nil },
	},
	"analysis.server_url": {
		get: func(c *Config) string { return c.Analysis.ServerURL },
		set: func(c *Config, v string) error { c.Analysis.ServerURL = v; return nil },
	},
	"analysis.project": {
		get: func(c *Config) string { return c.Analysis.Project },
		set: func(c *Config, v string) error { c.Analysis.Project = v; return nil },
	},
	"analysis.access_token": {
		get: func(c *Config) string { return c.Analysis.AccessToken },
		set: func(c *Config, v string) error { c.Analysis.AccessToken = v; return nil },
	},
	"events.brokers": {
		get: func(c *Config) string { return strings.Join(c.Events.Brokers, ",") },
		set: func(c *Config, v string) error { c.Events.Brokers = splitList(v); return nil },
	},
	"events.topic": {
		get: func(c *Config) string { return c.Events.Topic },
		set: func(c *Config, v string) error { c.Events.Topic = v; return nil },
	},
	"run.discover_cmd": {
		get: func(c *Config) string { return c.Run.DiscoverCmd },
		set: func(c *Config, v string) error { c.Run.DiscoverCmd = v; return nil },
	},
	"run.run_cmd": {
		get: func(c *Config) string { return c.Run.RunCmd },
		set: func(c *Config, v string) error { c.Run.RunCmd = v; return nil },
	},
}

func formatInt(n int) string {
	if n == 0 {
		return ""
	}
	return strconv.Itoa(n)
}

func parseInt(v, key string, target *int) error {
	n, err := strconv.Atoi(v)
	if err != nil {
		return fmt.Errorf("invalid value for %s: %w", key, err)
	}
	*target = n
	return nil
}

// splitList splits a comma-separated value, dropping empty entries.
func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		part = strings.TrimSpace(part)
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}
