// Package testwisecmder
package testwisecmder

import (
	"github.com/spf13/cobra"

	agentcmder "github.com/testwiseco/testwise/cmd/testwise/agent"
	configcmder "github.com/testwiseco/testwise/cmd/testwise/config"
	runcmder "github.com/testwiseco/testwise/cmd/testwise/run"
	versioncmder "github.com/testwiseco/testwise/cmd/version"
)

const testwiseLongDesc string = `Testwise collects per-test coverage and runs only the tests that matter.

Run services using:
  testwise agent       Run a coverage coordination agent
  testwise run         Discover, select, and execute impacted tests`

const testwiseShortDesc string = "Testwise - Test-wise Coverage"

func NewTestwiseCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "testwise",
		Short: testwiseShortDesc,
		Long:  testwiseLongDesc,
	}

	// Global flags
	cmd.PersistentFlags().BoolP("debug", "d", false, "Enable debug logging")
	cmd.PersistentFlags().String("config-dir", "", "Override path to .testwise/ config directory")

	// Add subcommands
	cmd.AddCommand(agentcmder.NewAgentCmd())
	cmd.AddCommand(runcmder.NewRunCmd())
	cmd.AddCommand(configcmder.NewConfigCmd())
	cmd.AddCommand(versioncmder.NewVersionCmd())

	return cmd
}
