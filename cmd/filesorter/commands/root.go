package commands

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/hermes-soc/filesorter/internal/config"
	"github.com/hermes-soc/filesorter/pkg/logx"
)

var (
	// Used for flags.
	flagConfig      string
	flagEnvironment string
	flagDryRun      bool

	rootCmd = &cobra.Command{
		Use:           "filesorter",
		Short:         "Sorts incoming science files into instrument buckets",
		Long:          "FileSorter - moves files landing in the incoming bucket to their instrument bucket, quarantining invalid and duplicate files",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return initConfig()
		},
	}
)

// Execute executes the root command. Inside the Lambda runtime, where the bootstrap is started
// without arguments, it runs the lambda command.
func Execute() error {
	if len(os.Args) == 1 && os.Getenv("AWS_LAMBDA_RUNTIME_API") != "" {
		rootCmd.SetArgs([]string{lambdaCmd.Name()})
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	return rootCmd.ExecuteContext(ctx)
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&flagConfig, "config", "c", "", "config file path")
	rootCmd.PersistentFlags().StringVarP(&flagEnvironment, "environment", "e", "", "PRODUCTION or DEVELOPMENT, overrides the configuration")
	rootCmd.PersistentFlags().BoolVar(&flagDryRun, "dry-run", false, "log what would be sorted without copying or deleting")

	rootCmd.AddCommand(lambdaCmd)
	rootCmd.AddCommand(sortCmd)
	rootCmd.AddCommand(scanCmd)
	rootCmd.AddCommand(versionCmd)
}

func initConfig() error {
	// .env is for local runs only
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to load .env file: %w", err)
	}

	if err := config.Initialize(flagConfig); err != nil {
		return fmt.Errorf("failed to initialize config: %w", err)
	}

	if err := logx.Initialize(config.Get().Log); err != nil {
		return fmt.Errorf("failed to initialize logging: %w", err)
	}

	logx.StartTimer()
	return nil
}
