package id

import (
	"testing"

	"github.com/segmentio/ksuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewReturnsDistinctKSUIDs(t *testing.T) {
	a, b := New(), New()
	assert.NotEqual(t, a, b)

	parsed, err := ksuid.Parse(a)
	require.NoError(t, err)
	assert.Equal(t, a, parsed.String())
}
