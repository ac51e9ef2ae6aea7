package cache

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

func TestInvalidateBumpsVersionedKeys(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	inv := NewInvalidator(client, nil)
	ctx := context.Background()

	before, err := inv.BuildKey(ctx, "balances", "client", "42")
	require.NoError(t, err)

	inv.Invalidate(ctx, "balances", "clients")

	after, err := inv.BuildKey(ctx, "balances", "client", "42")
	require.NoError(t, err)
	require.NotEqual(t, before, after)

	// Unrelated entity groups keep their keys.
	projectsBefore, err := inv.BuildKey(ctx, "projects", "7")
	require.NoError(t, err)
	inv.Invalidate(ctx, "balances")
	projectsAfter, err := inv.BuildKey(ctx, "projects", "7")
	require.NoError(t, err)
	require.Equal(t, projectsBefore, projectsAfter)
}

func TestInvalidatorNilClientIsNoop(t *testing.T) {
	var inv *Invalidator
	inv.Invalidate(context.Background(), "clients")

	key, err := NewInvalidator(nil, nil).BuildKey(context.Background(), "clients", "1")
	require.NoError(t, err)
	require.Equal(t, "clients:1", key)
}
