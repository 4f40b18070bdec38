package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sflowg/workflow-compiler/internal/constants"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the compiler version",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, _ []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", constants.ServiceName, constants.Version)
	},
}
