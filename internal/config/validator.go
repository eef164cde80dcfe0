package config

import (
	"strconv"
	"strings"

	"github.com/gobwas/glob"
	"github.com/pkg/errors"

	"github.com/hermes-soc/filesorter/internal/core"
)

// ValidateStorageConfig validates the object store configuration.
//
// Parameters:
//   - storageConfig: The configuration to validate.
//
// Returns:
//   - An error if any required field is missing, otherwise nil.
func ValidateStorageConfig(storageConfig StorageConfig) error {
	switch strings.ToLower(storageConfig.Type) {
	case "", StorageTypeS3:
	case StorageTypeLocal:
		if storageConfig.LocalPath == "" {
			return errors.New("missing LocalPath in configuration")
		}
		return nil
	default:
		return errors.Errorf("unknown storage Type %q", storageConfig.Type)
	}
	if storageConfig.Endpoint == "" {
		return errors.New("missing Endpoint in configuration")
	}
	if strings.Contains(storageConfig.Endpoint, "://") {
		return errors.Errorf("Endpoint %q must not include a scheme", storageConfig.Endpoint)
	}
	if storageConfig.Region == "" {
		return errors.New("missing Region in configuration")
	}
	if (storageConfig.AccessKey == "") != (storageConfig.SecretKey == "") {
		return errors.New("AccessKey and SecretKey must be set together")
	}
	if storageConfig.MaxRetries < 0 {
		return errors.New("MaxRetries must not be negative")
	}
	return nil
}

// ValidateAuditConfig validates the audit configuration.
func ValidateAuditConfig(auditConfig AuditConfig) error {
	if !auditConfig.Enabled {
		return nil
	}
	if auditConfig.Database == "" {
		return errors.New("missing audit Database in configuration")
	}
	if auditConfig.Table == "" {
		return errors.New("missing audit Table in configuration")
	}
	return nil
}

// ValidateNotifyConfig validates the notification configuration.
func ValidateNotifyConfig(notifyConfig NotifyConfig) error {
	if notifyConfig.SlackToken == "" {
		return nil
	}
	if notifyConfig.SlackChannel == "" {
		return errors.New("missing SlackChannel for configured SlackToken")
	}
	if notifyConfig.RatePerSecond <= 0 {
		return errors.New("RatePerSecond must be positive")
	}
	if notifyConfig.Burst < 1 {
		return errors.New("Burst must be at least 1")
	}
	return nil
}

// ValidateScanConfig checks that every ignore pattern compiles.
func ValidateScanConfig(scanConfig ScanConfig) error {
	for _, pattern := range scanConfig.Ignore {
		if _, err := glob.Compile(pattern, '/'); err != nil {
			return errors.Wrapf(err, "invalid scan ignore pattern %q", pattern)
		}
	}
	return nil
}

// Validate validates the whole configuration.
func Validate(c Config) error {
	if _, err := core.ParseEnvironment(c.Environment); err != nil {
		return errors.WithStack(err)
	}
	if strings.TrimSpace(c.DryRun) != "" {
		if _, err := strconv.ParseBool(strings.TrimSpace(c.DryRun)); err != nil {
			return errors.Errorf("invalid DryRun value %q", c.DryRun)
		}
	}
	if !core.IsKeyLayout(c.KeyLayout) {
		return errors.Errorf("unknown KeyLayout %q", c.KeyLayout)
	}
	if c.Storage != nil {
		if err := ValidateStorageConfig(*c.Storage); err != nil {
			return err
		}
	}
	if c.Audit != nil {
		if err := ValidateAuditConfig(*c.Audit); err != nil {
			return err
		}
	}
	if c.Notify != nil {
		if err := ValidateNotifyConfig(*c.Notify); err != nil {
			return err
		}
	}
	if c.Scan != nil {
		if err := ValidateScanConfig(*c.Scan); err != nil {
			return err
		}
	}
	return nil
}
