package observability

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSetupTracing_Noop_Without_Endpoint(t *testing.T) {
	req := require.New(t)

	shutdown, err := SetupTracing(context.Background(), "chat-relay-test", "")

	req.NoError(err)
	req.NoError(shutdown(context.Background()))
}

func TestSetupTracing_With_Endpoint(t *testing.T) {
	req := require.New(t)

	// Non-routable address, nothing is exported before shutdown
	shutdown, err := SetupTracing(context.Background(), "chat-relay-test", "http://192.0.2.1:4318")

	req.NoError(err)
	req.NoError(shutdown(context.Background()))
}
