package classifier

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hermes-soc/filesorter/internal/core"
)

func TestParseHermes_Valid(t *testing.T) {
	tests := []struct {
		name string
		key  string
		want core.ParsedFilename
	}{
		{
			name: "raw l0 file",
			key:  "hermes_SPANI_l0_2023040-000018_v01.bin",
			want: core.ParsedFilename{
				Instrument: "spani",
				Level:      "l0",
				Version:    "01",
				Time:       time.Date(2023, 2, 9, 0, 0, 18, 0, time.UTC),
				Extension:  "bin",
			},
		},
		{
			name: "raw l0 file under a prefix",
			key:  "/tests/test_files/hermes_EEA_l0_2022335-200137_v01.bin",
			want: core.ParsedFilename{
				Instrument: "eea",
				Level:      "l0",
				Version:    "01",
				Time:       time.Date(2022, 12, 1, 20, 1, 37, 0, time.UTC),
				Extension:  "bin",
			},
		},
		{
			name: "processed test file without extension",
			key:  "hermes_spn_2s_l3test_burst_20240406_120621_v2.4",
			want: core.ParsedFilename{
				Instrument: "spani",
				Mode:       "2s",
				Level:      "l3",
				Test:       true,
				Descriptor: "burst",
				Version:    "2.4",
				Time:       time.Date(2024, 4, 6, 12, 6, 21, 0, time.UTC),
			},
		},
		{
			name: "processed cdf file",
			key:  "hermes_nem_default_l1_20240406_120621_v1.0.0.cdf",
			want: core.ParsedFilename{
				Instrument: "nemisis",
				Mode:       "default",
				Level:      "l1",
				Version:    "1.0.0",
				Time:       time.Date(2024, 4, 6, 12, 6, 21, 0, time.UTC),
				Extension:  "cdf",
			},
		},
		{
			name: "unknown instrument passes through",
			key:  "hermes_xyz_2s_ql_20240406_120621_v1.0.0.cdf",
			want: core.ParsedFilename{
				Instrument: "xyz",
				Mode:       "2s",
				Level:      "ql",
				Version:    "1.0.0",
				Time:       time.Date(2024, 4, 6, 12, 6, 21, 0, time.UTC),
				Extension:  "cdf",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseHermes(tt.key)
			require.NoError(t, err)
			assert.Equal(t, tt.want, *got)
		})
	}
}

func TestParseHermes_Invalid(t *testing.T) {
	keys := []string{
		"test-file-key.txt",
		"/tests/test_files/test-file-key.txt",
		"padre_SPANI_l0_2023040-000018_v01.bin",
		"hermes_SPANI_l0_2023400-000018_v01.bin",
		"hermes_SPANI_l0_2023366-000018_v01.bin",
		"hermes_SPANI_l0_2023040-250018_v01.bin",
		"hermes_spn_2s_l9_burst_20240406_120621_v2.4",
		"hermes_spn_2s_l3_burst_20241306_120621_v2.4",
		"",
		"folder/",
	}

	for _, key := range keys {
		t.Run(key, func(t *testing.T) {
			_, err := ParseHermes(key)
			require.Error(t, err)
			assert.True(t, errors.Is(err, core.ErrParse))
		})
	}
}

func TestHermesClassifier_Classify(t *testing.T) {
	c, err := Get(DefaultName)
	require.NoError(t, err)
	assert.Equal(t, NameHermes, c.Name())

	res := c.Classify("hermes_MERIT_l0_2023040-000018_v01.bin")
	require.True(t, res.Ok())
	assert.Equal(t, "merit", res.Parsed.Instrument)
	assert.Equal(t, "hermes_MERIT_l0_2023040-000018_v01.bin", res.Parsed.RawKey)

	res = c.Classify("test-file-key.txt")
	assert.False(t, res.Ok())
	assert.Nil(t, res.Parsed)
	assert.ErrorIs(t, res.Err, core.ErrParse)
}
