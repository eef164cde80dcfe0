package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/hermes-soc/filesorter/internal/version"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version",
	RunE: func(cmd *cobra.Command, args []string) error {
		_, err := fmt.Fprintf(cmd.OutOrStdout(), "filesorter %s (%s)\n", version.Number(), version.Commit())
		return err
	},
}
