package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateStorageConfig(t *testing.T) {
	tests := []struct {
		name        string
		config      StorageConfig
		expectedErr string
	}{
		{
			name:        "Valid configuration with role credentials",
			config:      StorageConfig{Endpoint: "s3.amazonaws.com", Region: "us-east-1"},
			expectedErr: "",
		},
		{
			name: "Valid configuration with static keys",
			config: StorageConfig{
				Endpoint:  "localhost:9000",
				Region:    "us-east-1",
				AccessKey: "test-access-key",
				SecretKey: "test-secret-key",
			},
			expectedErr: "",
		},
		{
			name:        "Valid local configuration",
			config:      StorageConfig{Type: StorageTypeLocal, LocalPath: "/tmp/buckets"},
			expectedErr: "",
		},
		{
			name:        "Local without path",
			config:      StorageConfig{Type: StorageTypeLocal},
			expectedErr: "missing LocalPath in configuration",
		},
		{
			name:        "Unknown type",
			config:      StorageConfig{Type: "gcs", Endpoint: "x", Region: "y"},
			expectedErr: "unknown storage Type",
		},
		{
			name:        "Missing Endpoint",
			config:      StorageConfig{Region: "us-east-1"},
			expectedErr: "missing Endpoint in configuration",
		},
		{
			name:        "Endpoint with scheme",
			config:      StorageConfig{Endpoint: "https://s3.amazonaws.com", Region: "us-east-1"},
			expectedErr: "must not include a scheme",
		},
		{
			name:        "Missing Region",
			config:      StorageConfig{Endpoint: "s3.amazonaws.com"},
			expectedErr: "missing Region in configuration",
		},
		{
			name:        "Only AccessKey",
			config:      StorageConfig{Endpoint: "s3.amazonaws.com", Region: "us-east-1", AccessKey: "a"},
			expectedErr: "AccessKey and SecretKey must be set together",
		},
		{
			name:        "Negative retries",
			config:      StorageConfig{Endpoint: "s3.amazonaws.com", Region: "us-east-1", MaxRetries: -1},
			expectedErr: "MaxRetries must not be negative",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateStorageConfig(tt.config)
			if tt.expectedErr == "" {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
				assert.Contains(t, err.Error(), tt.expectedErr)
			}
		})
	}
}

func TestValidateAuditConfig(t *testing.T) {
	assert.NoError(t, ValidateAuditConfig(AuditConfig{}))
	assert.NoError(t, ValidateAuditConfig(AuditConfig{Enabled: true, Database: "db", Table: "t"}))
	assert.Error(t, ValidateAuditConfig(AuditConfig{Enabled: true, Table: "t"}))
	assert.Error(t, ValidateAuditConfig(AuditConfig{Enabled: true, Database: "db"}))
}

func TestValidateNotifyConfig(t *testing.T) {
	assert.NoError(t, ValidateNotifyConfig(NotifyConfig{}))
	assert.NoError(t, ValidateNotifyConfig(NotifyConfig{SlackToken: "x", SlackChannel: "C1", RatePerSecond: 1, Burst: 1}))
	assert.Error(t, ValidateNotifyConfig(NotifyConfig{SlackToken: "x", RatePerSecond: 1, Burst: 1}))
	assert.Error(t, ValidateNotifyConfig(NotifyConfig{SlackToken: "x", SlackChannel: "C1", Burst: 1}))
	assert.Error(t, ValidateNotifyConfig(NotifyConfig{SlackToken: "x", SlackChannel: "C1", RatePerSecond: 1}))
}

func TestValidate(t *testing.T) {
	c := defaultConfig()
	c.Storage = &StorageConfig{Endpoint: "s3.amazonaws.com", Region: "us-east-1"}
	assert.NoError(t, Validate(c))

	bad := c
	bad.KeyLayout = "nested"
	assert.Error(t, Validate(bad))

	bad = c
	bad.DryRun = "sometimes"
	assert.Error(t, Validate(bad))

	bad = c
	bad.Scan = &ScanConfig{Ignore: []string{"[unclosed"}}
	assert.Error(t, Validate(bad))
}
