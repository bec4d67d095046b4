package storage

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewClientValidatesConfig(t *testing.T) {
	_, err := NewClient(Config{Endpoint: "localhost:9000"})
	assert.ErrorContains(t, err, "bucket is required")

	_, err = NewClient(Config{Bucket: "logos"})
	assert.ErrorContains(t, err, "endpoint is required")
}

func TestNewClientKeepsBucket(t *testing.T) {
	client, err := NewClient(Config{
		Endpoint: "localhost:9000",
		Access:   "minioadmin",
		Secret:   "minioadmin",
		Bucket:   "brand-assets",
	})
	require.NoError(t, err)
	assert.Equal(t, "brand-assets", client.Bucket())
}
