package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"

	"github.com/testwiseco/testwise/pkg/dotdir"
)

// InitViper creates and returns a configured *viper.Viper.
// It sets defaults from NewDefaultConfig(), reads the config.toml file
// (if found via dotdir resolution), and binds environment variables
// with the TESTWISE_ prefix.
//
// Config precedence (highest to lowest):
//  1. CLI flags (once bound via BindRegisteredFlags)
//  2. Environment variables (TESTWISE_AGENT_PORT, TESTWISE_EVENTS_TOPIC, etc.)
//  3. config.toml file values
//  4. Defaults from NewDefaultConfig()
func InitViper(configDir string) (*viper.Viper, error) {
	v := viper.New()

	// 1. Register all defaults from NewDefaultConfig().
	setViperDefaults(v)

	// 2. Config file discovery via dotdir resolution.
	v.SetConfigName("config")
	v.SetConfigType("toml")

	ddm := dotdir.NewManager()
	target, err := ddm.Target(configDir)
	if err != nil {
		return nil, fmt.Errorf("resolving config dir: %w", err)
	}

	if target != "" {
		v.AddConfigPath(target)
	}

	if err := v.ReadInConfig(); err != nil {
		// Config file not found errors are fine, defaults will apply.
		if !errors.As(err, &viper.ConfigFileNotFoundError{}) {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	// 3. Environment variables: TESTWISE_AGENT_PORT, TESTWISE_ANALYSIS_ACCESS_TOKEN, etc.
	v.SetEnvPrefix("TESTWISE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	return v, nil
}

// setViperDefaults registers defaults from NewDefaultConfig() into viper
// using dotted-key notation. This keeps defaults.go as the single source of truth.
func setViperDefaults(v *viper.Viper) {
	d := NewDefaultConfig()

	v.SetDefault("version", d.Version)

	// Agent
	v.SetDefault("agent.port", d.Agent.Port)
	v.SetDefault("agent.max_port", d.Agent.MaxPort)
	v.SetDefault("agent.partition", d.Agent.Partition)
	v.SetDefault("agent.notify_timeout_ms", d.Agent.NotifyTimeoutMS)

	// Filter
	v.SetDefault("filter.includes", d.Filter.Includes)
	v.SetDefault("filter.excludes", d.Filter.Excludes)

	// Report
	v.SetDefault("report.directory", d.Report.Directory)
	v.SetDefault("report.sqlite_path", d.Report.SQLitePath)
	v.SetDefault("report.postgres_url", d.Report.PostgresURL)

	// Analysis
	v.SetDefault("analysis.server_url", d.Analysis.ServerURL)
	v.SetDefault("analysis.project", d.Analysis.Project)
	v.SetDefault("analysis.access_token", d.Analysis.AccessToken)

	// Events
	v.SetDefault("events.brokers", d.Events.Brokers)
	v.SetDefault("events.topic", d.Events.Topic)

	// Run
	v.SetDefault("run.discover_cmd", d.Run.DiscoverCmd)
	v.SetDefault("run.run_cmd", d.Run.RunCmd)
}
