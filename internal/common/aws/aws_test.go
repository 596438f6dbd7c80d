package aws

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewClients(t *testing.T) {
	t.Setenv("AWS_ACCESS_KEY_ID", "test")
	t.Setenv("AWS_SECRET_ACCESS_KEY", "test")

	sesClient, err := NewSESClient(context.Background(), "eu-west-1")
	require.NoError(t, err)
	assert.NotNil(t, sesClient.client)

	snsClient, err := NewSNSClient(context.Background(), "eu-west-1")
	require.NoError(t, err)
	assert.NotNil(t, snsClient.client)
}
