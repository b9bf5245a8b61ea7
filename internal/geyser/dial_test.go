package geyser

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc/metadata"

	"github.com/sqoove/ghostreaver/internal/yellowstone"
)

func TestDialBuildsClientWithoutConnecting(t *testing.T) {
	c, err := Dial("localhost:10000", "", false)
	require.NoError(t, err)
	require.NotNil(t, c)
	assert.NoError(t, c.Close())
}

func TestAuthContextAttachesTokenWhenSet(t *testing.T) {
	c := &client{xToken: "secret-token"}
	ctx := c.authContext(context.Background())

	md, ok := metadata.FromOutgoingContext(ctx)
	require.True(t, ok)
	assert.Equal(t, []string{"secret-token"}, md.Get("x-token"))
}

func TestAuthContextLeavesContextUnchangedWhenNoToken(t *testing.T) {
	c := &client{}
	ctx := context.Background()
	got := c.authContext(ctx)

	_, ok := metadata.FromOutgoingContext(got)
	assert.False(t, ok)
}

func TestSubscribeErrorsWithoutAGeneratedClient(t *testing.T) {
	c, err := Dial("localhost:10000", "", false)
	require.NoError(t, err)
	defer c.Close()

	sub, err := c.Subscribe(context.Background(), &yellowstone.SubscribeRequest{})
	assert.Error(t, err)
	assert.Nil(t, sub)
}
