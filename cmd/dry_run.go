package cmd

import "github.com/spf13/cobra"

// newDryRunCmd is "version --dry-run" under its own name.
func newDryRunCmd() *cobra.Command {
	return newReleaseCmd("dry-run [project]", "Show the next release without changing anything", true)
}
