package commands

import (
	"github.com/aws/aws-lambda-go/lambda"
	"github.com/spf13/cobra"

	"github.com/hermes-soc/filesorter/internal/config"
)

var lambdaCmd = &cobra.Command{
	Use:   "lambda",
	Short: "Run as an AWS Lambda function",
	Long:  "Run as an AWS Lambda function, sorting the objects of S3 events or scanning the incoming bucket on other triggers",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.Get()
		a, err := buildApp(cmd, cfg)
		if err != nil {
			return err
		}

		if cfg.Storage.CreateBuckets {
			if err := a.ensureBuckets(cmd.Context(), true); err != nil {
				return err
			}
		}

		lambda.Start(a.handler.Handle)
		return nil
	},
}
