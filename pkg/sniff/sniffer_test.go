package sniff

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCollect(t *testing.T) {
	s := Collect()
	require.NotNil(t, s.MemStats)
	require.NotNil(t, s.CPUStats)
	assert.Equal(t, pid, s.Pid)
	assert.NotEmpty(t, s.Timestamp)
	assert.GreaterOrEqual(t, s.CPUStats.NumGoroutines, 1)
	assert.GreaterOrEqual(t, s.CPUStats.NumCPU, 1)
	assert.GreaterOrEqual(t, s.MemStats.TotalAllocMiB, s.MemStats.AllocMiB)
}

func TestStats_MarshalZerologObject(t *testing.T) {
	var buf bytes.Buffer
	log := zerolog.New(&buf)

	log.Info().Object("runtime", Collect()).Msg("stats")

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	rt, ok := line["runtime"].(map[string]any)
	require.True(t, ok)
	assert.Contains(t, rt, "alloc_mib")
	assert.Contains(t, rt, "num_goroutines")
	assert.Contains(t, rt, "timestamp")
}
