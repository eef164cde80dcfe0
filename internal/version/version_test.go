package version

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestVersion(t *testing.T) {
	assert.NotEmpty(t, Number())
	assert.NotEmpty(t, Commit())
	assert.NotContains(t, Number(), "\n")
}
