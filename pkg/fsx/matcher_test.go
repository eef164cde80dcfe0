package fsx

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMatcher(t *testing.T) {
	m, err := NewMatcher([]string{"*.tmp", "logs/**", "**/.keep"})
	require.NoError(t, err)

	tests := []struct {
		key     string
		pattern string
		matched bool
	}{
		{key: "upload.tmp", pattern: "*.tmp", matched: true},
		{key: "dir/upload.tmp", matched: false},
		{key: "logs/2024/04/run.log", pattern: "logs/**", matched: true},
		{key: "a/b/.keep", pattern: "**/.keep", matched: true},
		{key: "hermes_SPANI_l0_2023040-000018_v01.bin", matched: false},
	}

	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			pattern, ok := m.Match(tt.key)
			assert.Equal(t, tt.matched, ok)
			assert.Equal(t, tt.pattern, pattern)
		})
	}

	_, err = NewMatcher([]string{"[unclosed"})
	assert.Error(t, err)

	var none *Matcher
	_, ok := none.Match("anything")
	assert.False(t, ok)
}
