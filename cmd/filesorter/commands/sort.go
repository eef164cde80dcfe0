package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/hermes-soc/filesorter/internal/config"
	"github.com/hermes-soc/filesorter/internal/core"
	"github.com/hermes-soc/filesorter/pkg/logx"
)

var (
	flagBucket string
	flagKey    string
)

var sortCmd = &cobra.Command{
	Use:   "sort",
	Short: "Sort a single object",
	Long:  "Sort a single object of the incoming bucket, as an S3 event record would",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.Get()
		a, err := buildApp(cmd, cfg)
		if err != nil {
			return err
		}

		if err := a.ensureBuckets(cmd.Context(), cfg.Storage.CreateBuckets); err != nil {
			return err
		}

		bucket := flagBucket
		if bucket == "" {
			bucket = a.resolver.IncomingBucket(a.env)
		}

		res, err := a.router.Route(cmd.Context(), core.RoutingRequest{
			SourceBucket: bucket,
			Key:          flagKey,
			Environment:  a.env,
			DryRun:       a.dryRun,
		})
		if err != nil {
			return fmt.Errorf("failed to sort s3://%s/%s: %w", bucket, flagKey, err)
		}

		logx.As().Info().
			Str("state", string(res.State)).
			Str("action", string(res.Decision.Action)).
			Str("destination_bucket", res.Decision.DestinationBucket).
			Str("destination_key", res.Decision.DestinationKey).
			Str("warning", res.Warning).
			Str("total_time", logx.ExecutionTime()).
			Msg("Sort completed")
		return nil
	},
}

func init() {
	sortCmd.Flags().StringVarP(&flagBucket, "bucket", "b", "", "source bucket, the incoming bucket when empty")
	sortCmd.Flags().StringVarP(&flagKey, "key", "k", "", "object key")
	_ = sortCmd.MarkFlagRequired("key")
}
