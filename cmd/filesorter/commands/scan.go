package commands

import (
	"fmt"
	"net/http"

	"github.com/spf13/cobra"

	"github.com/hermes-soc/filesorter/internal/config"
	"github.com/hermes-soc/filesorter/pkg/logx"
)

var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Sort every unsorted object of the incoming bucket",
	Long:  "Sort every object of the incoming bucket that is not already present in an instrument bucket",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.Get()
		a, err := buildApp(cmd, cfg)
		if err != nil {
			return err
		}

		if err := a.ensureBuckets(cmd.Context(), cfg.Storage.CreateBuckets); err != nil {
			return err
		}

		resp, err := a.handler.Handle(cmd.Context(), nil)
		if err != nil {
			return err
		}
		if resp.StatusCode != http.StatusOK {
			return fmt.Errorf("scan failed: %s", resp.Body)
		}

		logx.As().Info().Str("total_time", logx.ExecutionTime()).Msg("Scan completed")
		return nil
	},
}
