package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/viper"

	"github.com/hermes-soc/filesorter/internal/core"
	"github.com/hermes-soc/filesorter/pkg/logx"
)

const envPrefix = "filesorter"

// Storage backends.
const (
	StorageTypeS3    = "s3"
	StorageTypeLocal = "local"
)

// Config holds the global configuration for the application.
type Config struct {
	// Log contains logging-related configuration.
	Log *logx.LoggingConfig
	// Environment is PRODUCTION or DEVELOPMENT. Also read from LAMBDA_ENVIRONMENT.
	Environment string
	// DryRun overrides the environment's dry-run default when set to a boolean string.
	DryRun string
	// KeyLayout is the destination key layout, "flat" or "dated".
	KeyLayout string
	// Storage contains the object store connection settings.
	Storage *StorageConfig
	// Buckets overrides the bucket table.
	Buckets *BucketsConfig
	// Audit contains the Timestream audit settings.
	Audit *AuditConfig
	// Notify contains the Slack notification settings.
	Notify *NotifyConfig
	// Scan contains the scan trigger settings.
	Scan *ScanConfig
}

// StorageConfig holds the configuration for the S3-compatible object store.
type StorageConfig struct {
	// Type selects the backend, "s3" (default) or "local".
	Type string
	// LocalPath is the root directory of the local backend; each bucket is a subdirectory.
	LocalPath string
	// Endpoint is the S3 endpoint host, without scheme.
	Endpoint string
	// Region is the bucket region.
	Region string
	// AccessKey names the environment variable holding the access key. Empty uses the Lambda role.
	AccessKey string
	// SecretKey names the environment variable holding the secret key.
	SecretKey string
	// SessionToken names the environment variable holding the session token.
	SessionToken string
	// UseSSL enables TLS for the connection.
	UseSSL bool
	// MaxRetries is the client retry limit per request.
	MaxRetries int
	// CreateBuckets creates missing buckets on start, for local S3-compatible endpoints only.
	CreateBuckets bool
}

// BucketsConfig holds bucket name overrides.
type BucketsConfig struct {
	// Incoming is the bucket new objects land in.
	Incoming string
	// Quarantine receives invalid and duplicate objects.
	Quarantine string
	// DevPrefix is prepended to every bucket name in DEVELOPMENT.
	DevPrefix string
	// Instruments maps instrument names to destination buckets. Empty keeps the built-in table.
	Instruments map[string]string
}

// AuditConfig holds the configuration for the Timestream audit sink.
type AuditConfig struct {
	Enabled  bool
	Database string
	Table    string
	Region   string
}

// NotifyConfig holds the configuration for Slack notifications.
type NotifyConfig struct {
	// SlackToken is the bot token. Also read from SDC_AWS_SLACK_TOKEN. Empty disables notifications.
	SlackToken string
	// SlackChannel is the channel id. Also read from SDC_AWS_SLACK_CHANNEL.
	SlackChannel string
	// RatePerSecond limits the number of messages posted per second.
	RatePerSecond float64
	// Burst is the limiter burst size.
	Burst int
}

// ScanConfig holds the configuration for scan triggers.
type ScanConfig struct {
	// Prefix restricts the listing of the incoming bucket.
	Prefix string
	// Ignore is a list of glob patterns; matching keys are never sorted.
	Ignore []string
}

var config = defaultConfig()

func defaultConfig() Config {
	return Config{
		Log: &logx.LoggingConfig{
			Level:          "Info",
			Format:         logx.FormatJSON,
			ConsoleLogging: true,
			FileLogging:    false,
		},
		Environment: string(core.Development),
		KeyLayout:   core.KeyLayoutFlat,
		Storage:     &StorageConfig{},
		Buckets:     &BucketsConfig{},
		Audit:       &AuditConfig{},
		Notify:      &NotifyConfig{},
		Scan:        &ScanConfig{},
	}
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("log.level", "Info")
	v.SetDefault("log.format", logx.FormatJSON)
	v.SetDefault("log.consoleLogging", true)
	v.SetDefault("log.fileLogging", false)
	v.SetDefault("log.directory", "")
	v.SetDefault("log.filename", "filesorter.log")
	v.SetDefault("log.maxSize", 100)
	v.SetDefault("log.maxBackups", 3)
	v.SetDefault("log.maxAge", 28)
	v.SetDefault("log.compress", false)

	v.SetDefault("environment", string(core.Development))
	v.SetDefault("dryRun", "")
	v.SetDefault("keyLayout", core.KeyLayoutFlat)

	v.SetDefault("storage.type", StorageTypeS3)
	v.SetDefault("storage.localPath", "")
	v.SetDefault("storage.endpoint", "s3.amazonaws.com")
	v.SetDefault("storage.region", "us-east-1")
	v.SetDefault("storage.accessKey", "")
	v.SetDefault("storage.secretKey", "")
	v.SetDefault("storage.sessionToken", "")
	v.SetDefault("storage.useSSL", true)
	v.SetDefault("storage.maxRetries", 3)
	v.SetDefault("storage.createBuckets", false)

	v.SetDefault("buckets.incoming", "swsoc-incoming")
	v.SetDefault("buckets.quarantine", "swsoc-quarantine")
	v.SetDefault("buckets.devPrefix", "dev-")

	v.SetDefault("audit.enabled", true)
	v.SetDefault("audit.database", "sdc_aws_logs")
	v.SetDefault("audit.table", "sdc_aws_s3_bucket_log_table")
	v.SetDefault("audit.region", "")

	v.SetDefault("notify.slackToken", "")
	v.SetDefault("notify.slackChannel", "")
	v.SetDefault("notify.ratePerSecond", 1.0)
	v.SetDefault("notify.burst", 1)

	v.SetDefault("scan.prefix", "")
	v.SetDefault("scan.ignore", []string{})
}

// bindLegacyEnv binds the environment variables the deployed Lambda is configured with.
func bindLegacyEnv(v *viper.Viper) error {
	bindings := map[string][]string{
		"environment":         {"FILESORTER_ENVIRONMENT", "LAMBDA_ENVIRONMENT"},
		"notify.slackToken":   {"FILESORTER_NOTIFY_SLACKTOKEN", "SDC_AWS_SLACK_TOKEN"},
		"notify.slackChannel": {"FILESORTER_NOTIFY_SLACKCHANNEL", "SDC_AWS_SLACK_CHANNEL"},
		"storage.region":      {"FILESORTER_STORAGE_REGION", "AWS_REGION"},
	}
	for key, envs := range bindings {
		if err := v.BindEnv(append([]string{key}, envs...)...); err != nil {
			return fmt.Errorf("failed to bind %s: %w", key, err)
		}
	}
	return nil
}

// Initialize loads the configuration from the specified file and the environment.
//
// Parameters:
//   - path: The path to the configuration file. Empty means environment and defaults only.
//
// Returns:
//   - An error if the configuration cannot be loaded or is invalid.
func Initialize(path string) error {
	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	if err := bindLegacyEnv(v); err != nil {
		return err
	}

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return fmt.Errorf("failed to read configuration file: %w", err)
		}
	}

	loaded := defaultConfig()
	if err := v.Unmarshal(&loaded); err != nil {
		return fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	initializeNestedStructs(&loaded)
	overrideWithEnvVars(&loaded)

	if err := Validate(loaded); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	config = loaded
	return nil
}

// initializeNestedStructs ensures all nested structs are initialized.
func initializeNestedStructs(c *Config) {
	if c.Log == nil {
		c.Log = &logx.LoggingConfig{Level: "Info", Format: logx.FormatJSON, ConsoleLogging: true}
	}
	if c.Storage == nil {
		c.Storage = &StorageConfig{}
	}
	if c.Buckets == nil {
		c.Buckets = &BucketsConfig{}
	}
	if c.Audit == nil {
		c.Audit = &AuditConfig{}
	}
	if c.Notify == nil {
		c.Notify = &NotifyConfig{}
	}
	if c.Scan == nil {
		c.Scan = &ScanConfig{}
	}
}

// overrideWithEnvVars replaces the storage secrets, which name environment variables, with their values.
func overrideWithEnvVars(c *Config) {
	if c.Storage.AccessKey != "" {
		c.Storage.AccessKey = os.Getenv(c.Storage.AccessKey)
	}
	if c.Storage.SecretKey != "" {
		c.Storage.SecretKey = os.Getenv(c.Storage.SecretKey)
	}
	if c.Storage.SessionToken != "" {
		c.Storage.SessionToken = os.Getenv(c.Storage.SessionToken)
	}
}

// Get returns the loaded configuration.
//
// Returns:
//   - The global configuration.
func Get() Config {
	return config
}

// EnvironmentValue returns the parsed environment.
func (c Config) EnvironmentValue() core.Environment {
	env, err := core.ParseEnvironment(c.Environment)
	if err != nil {
		return core.Development
	}
	return env
}

// ResolveDryRun returns the dry-run mode: the explicit DryRun value when set, otherwise the environment default.
func (c Config) ResolveDryRun() (bool, error) {
	if strings.TrimSpace(c.DryRun) == "" {
		return c.EnvironmentValue().DefaultDryRun(), nil
	}
	dryRun, err := strconv.ParseBool(strings.TrimSpace(c.DryRun))
	if err != nil {
		return false, fmt.Errorf("invalid dryRun value %q: %w", c.DryRun, err)
	}
	return dryRun, nil
}
