// Package versioncmder
package versioncmder

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/testwiseco/testwise/pkg/cliui"
	"github.com/testwiseco/testwise/pkg/utils"
)

type VersionCommander struct{}

func NewVersionCmd() *cobra.Command {
	cmder := &VersionCommander{}

	cmd := &cobra.Command{
		Use:   "version",
		Short: "displays version",
		Long:  "displays the version of this CLI",
		RunE: func(_ *cobra.Command, _ []string) error {
			return cmder.run()
		},
	}

	return cmd
}

func (c *VersionCommander) run() error {
	fmt.Printf("%s %s\n", cliui.DimStyle.Render("Version:"), utils.Version)
	fmt.Printf("%s %s\n", cliui.DimStyle.Render("Sha:"), utils.Sha)
	fmt.Printf("%s %s\n", cliui.DimStyle.Render("Built at:"), utils.Buildtime)
	return nil
}
