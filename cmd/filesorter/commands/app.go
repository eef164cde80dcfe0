package commands

import (
	"context"
	"fmt"
	"strings"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/timestreamwrite"
	"github.com/spf13/cobra"

	"github.com/hermes-soc/filesorter/internal/audit"
	"github.com/hermes-soc/filesorter/internal/classifier"
	"github.com/hermes-soc/filesorter/internal/config"
	"github.com/hermes-soc/filesorter/internal/core"
	"github.com/hermes-soc/filesorter/internal/handler"
	"github.com/hermes-soc/filesorter/internal/notify"
	"github.com/hermes-soc/filesorter/internal/resolver"
	"github.com/hermes-soc/filesorter/internal/router"
	"github.com/hermes-soc/filesorter/internal/storage"
	"github.com/hermes-soc/filesorter/pkg/logx"
)

// app holds the collaborators built from the configuration.
type app struct {
	env      core.Environment
	dryRun   bool
	store    storage.Store
	resolver *resolver.Table
	router   *router.Router
	handler  *handler.Handler
}

// resolveMode applies the --environment and --dry-run flags on top of the configuration.
func resolveMode(cmd *cobra.Command, cfg config.Config) (core.Environment, bool, error) {
	env := cfg.EnvironmentValue()
	if flagEnvironment != "" {
		parsed, err := core.ParseEnvironment(flagEnvironment)
		if err != nil {
			return "", false, err
		}
		env = parsed
	}

	if cmd.Flags().Changed("dry-run") {
		return env, flagDryRun, nil
	}

	if strings.TrimSpace(cfg.DryRun) == "" {
		// the flag may have changed the environment
		return env, env.DefaultDryRun(), nil
	}
	dryRun, err := cfg.ResolveDryRun()
	if err != nil {
		return "", false, err
	}
	return env, dryRun, nil
}

func newAuditor(ctx context.Context, cfg config.Config) (core.Auditor, error) {
	if !cfg.Audit.Enabled {
		logx.As().Warn().Msg("Audit disabled, routing actions are not recorded")
		return audit.NopAuditor{}, nil
	}

	var opts []func(*awsconfig.LoadOptions) error
	region := cfg.Audit.Region
	if region == "" {
		region = cfg.Storage.Region
	}
	if region != "" {
		opts = append(opts, awsconfig.WithRegion(region))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("loading AWS config: %w", err)
	}

	return audit.NewTimestream(timestreamwrite.NewFromConfig(awsCfg), cfg.Audit.Database, cfg.Audit.Table), nil
}

func newNotifier(cfg config.Config) core.Notifier {
	if cfg.Notify.SlackToken == "" {
		logx.As().Debug().Msg("No Slack token configured, notifications disabled")
		return notify.NopNotifier{}
	}

	return notify.NewSlack(cfg.Notify.SlackToken, notify.SlackOptions{
		Channel:       cfg.Notify.SlackChannel,
		RatePerSecond: cfg.Notify.RatePerSecond,
		Burst:         cfg.Notify.Burst,
	})
}

func newResolver(cfg config.Config) *resolver.Table {
	devPrefix := cfg.Buckets.DevPrefix
	return resolver.New(resolver.Options{
		Instruments: cfg.Buckets.Instruments,
		Incoming:    cfg.Buckets.Incoming,
		Quarantine:  cfg.Buckets.Quarantine,
		DevPrefix:   &devPrefix,
	})
}

// buildApp wires the store, classifier, resolver, audit and notification sinks into a router and a handler.
func buildApp(cmd *cobra.Command, cfg config.Config) (*app, error) {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	env, dryRun, err := resolveMode(cmd, cfg)
	if err != nil {
		return nil, err
	}

	storageType := strings.ToLower(cfg.Storage.Type)
	if storageType == "" {
		storageType = config.StorageTypeS3
	}
	store, err := storage.New(fmt.Sprintf("%s-store", storageType), *cfg.Storage)
	if err != nil {
		return nil, err
	}

	c, err := classifier.Get(classifier.DefaultName)
	if err != nil {
		return nil, err
	}

	auditor, err := newAuditor(ctx, cfg)
	if err != nil {
		return nil, err
	}

	res := newResolver(cfg)
	r, err := router.New(router.Options{
		Store:      store,
		Classifier: c,
		Resolver:   res,
		Auditor:    auditor,
		Notifier:   newNotifier(cfg),
		KeyLayout:  cfg.KeyLayout,
	})
	if err != nil {
		return nil, err
	}

	h, err := handler.New(handler.Options{
		Router:      r,
		Store:       store,
		Resolver:    res,
		Classifier:  c,
		Environment: env,
		DryRun:      dryRun,
		KeyLayout:   cfg.KeyLayout,
		ScanPrefix:  cfg.Scan.Prefix,
		Ignore:      cfg.Scan.Ignore,
	})
	if err != nil {
		return nil, err
	}

	logx.As().Info().
		Str("environment", string(env)).
		Bool("dry_run", dryRun).
		Str("storage_type", store.Type()).
		Str("incoming_bucket", res.IncomingBucket(env)).
		Str("quarantine_bucket", res.QuarantineBucket(env)).
		Strs("instrument_buckets", res.Buckets(env)).
		Str("key_layout", cfg.KeyLayout).
		Bool("audit", cfg.Audit.Enabled).
		Bool("notify", cfg.Notify.SlackToken != "").
		Msg("FileSorter initialized")

	return &app{env: env, dryRun: dryRun, store: store, resolver: res, router: r, handler: h}, nil
}

// ensureBuckets checks every bucket of the environment, creating missing ones when the storage
// configuration allows it.
func (a *app) ensureBuckets(ctx context.Context, create bool) error {
	buckets := append([]string{a.resolver.IncomingBucket(a.env), a.resolver.QuarantineBucket(a.env)}, a.resolver.Buckets(a.env)...)
	return a.store.EnsureBuckets(ctx, create, buckets...)
}
