package classifier

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hermes-soc/filesorter/internal/core"
)

func TestRegistry(t *testing.T) {
	_, err := Get("missing")
	assert.Error(t, err)

	Register(NewFunc("static", func(key string) (*core.ParsedFilename, error) {
		return &core.ParsedFilename{Instrument: "eea", Level: "l1"}, nil
	}))

	c, err := Get("static")
	require.NoError(t, err)
	res := c.Classify("anything.bin")
	require.True(t, res.Ok())
	assert.Equal(t, "anything.bin", res.Parsed.RawKey)
	assert.Contains(t, Names(), "static")
	assert.Contains(t, Names(), NameHermes)
}

func TestFunc_WrapsErrors(t *testing.T) {
	c := NewFunc("failing", func(key string) (*core.ParsedFilename, error) {
		return nil, errors.New("bad input")
	})
	res := c.Classify("x")
	assert.ErrorIs(t, res.Err, core.ErrParse)
	assert.Contains(t, res.Err.Error(), "bad input")

	c = NewFunc("unknown", func(key string) (*core.ParsedFilename, error) {
		return nil, core.ErrUnknownInstrument
	})
	res = c.Classify("x")
	assert.ErrorIs(t, res.Err, core.ErrUnknownInstrument)
	assert.NotErrorIs(t, res.Err, core.ErrParse)

	c = NewFunc("empty", func(key string) (*core.ParsedFilename, error) {
		return nil, nil
	})
	res = c.Classify("x")
	assert.ErrorIs(t, res.Err, core.ErrParse)
}
