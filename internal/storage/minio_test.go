package storage

import (
	"testing"

	"github.com/abduss/bucketlist/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeEndpoint(t *testing.T) {
	cases := []struct {
		raw      string
		useSSL   bool
		endpoint string
		secure   bool
	}{
		{"localhost", false, "localhost:9000", false},
		{"minio:9100", true, "minio:9100", true},
		{"https://objects.example.com:443/", false, "objects.example.com:443", true},
		{"http://minio", true, "minio:9000", false},
	}

	for _, tc := range cases {
		endpoint, secure := normalizeEndpoint(tc.raw, tc.useSSL)
		assert.Equal(t, tc.endpoint, endpoint, tc.raw)
		assert.Equal(t, tc.secure, secure, tc.raw)
	}
}

func TestNewMinIOClientDoesNotDial(t *testing.T) {
	client, err := NewMinIOClient(config.MinIOConfig{
		Endpoint:        "127.0.0.1:1",
		AccessKeyID:     "key",
		SecretAccessKey: "secret",
		Region:          "us-east-1",
	})
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1:1", client.EndpointURL().Host)
}
