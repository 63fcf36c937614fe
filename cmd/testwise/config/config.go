// Package configcmder provides the config command for managing persistent
// testwise configuration stored in the .testwise/ directory.
package configcmder

import (
	"github.com/spf13/cobra"
)

const configLongDesc string = `Manage persistent testwise configuration.

Configuration is stored as config.toml in the .testwise/ directory and
provides default values for command flags. CLI flags always take precedence
over config file values.

Keys use dotted notation matching the TOML section structure:
  agent.port, agent.max_port, agent.partition, agent.notify_timeout_ms,
  filter.includes, filter.excludes,
  report.directory, report.sqlite_path, report.postgres_url,
  analysis.server_url, analysis.project, analysis.access_token,
  events.brokers, events.topic,
  run.discover_cmd, run.run_cmd

Use subcommands to get, set, or list configuration values:
  testwise config set <key> <value>    Set a configuration value
  testwise config get <key>            Get a configuration value
  testwise config list                 List all configuration values

Examples:
  testwise config set agent.partition integration
  testwise config set filter.excludes "**/generated/**,**/testdata/**"
  testwise config get analysis.server_url
  testwise config list`

const configShortDesc string = "Manage persistent testwise configuration"

func NewConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: configShortDesc,
		Long:  configLongDesc,
	}

	cmd.AddCommand(newSetCmd())
	cmd.AddCommand(newGetCmd())
	cmd.AddCommand(newListCmd())

	return cmd
}
