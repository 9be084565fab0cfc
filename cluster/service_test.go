package cluster_test

import (
	"context"
	"testing"
	"time"

	"github.com/junioryono/unify"
	"github.com/junioryono/unify/cluster"
	"github.com/junioryono/unify/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type node struct {
	c     *unify.Container
	cache *testutil.Cache
}

func startNode(t *testing.T, hub, id string, extra ...func(*testutil.ConfigBuilder)) node {
	t.Helper()

	b := testutil.NewConfigBuilder(t).
		Cluster(id).
		WithComponent(unify.ClusterServiceName, (*cluster.Service)(nil), unify.WithSetting("hub", hub)).
		WithComponent("cache", (*testutil.Cache)(nil))
	for _, fn := range extra {
		fn(b)
	}

	c := testutil.Start(t, b.Build())
	return node{c: c, cache: testutil.Get[*testutil.Cache](t, c, "cache")}
}

func TestService_Broadcast(t *testing.T) {
	hub := t.Name()
	a := startNode(t, hub, "a")
	b := startNode(t, hub, "b")
	c := startNode(t, hub, "c")

	assert.Equal(t, []string{"a", "b", "c"}, cluster.HubNamed(hub).Nodes())

	a.cache.Invalidate(t.Context(), []string{"k1", "k2"})

	for _, n := range []node{b, c} {
		testutil.WaitFor(t, func() bool { return len(n.cache.Invalidated()) == 1 })
		assert.Equal(t, [][]string{{"k1", "k2"}}, n.cache.Invalidated())
		assert.Equal(t, []bool{true}, n.cache.Suppressed())
	}

	time.Sleep(100 * time.Millisecond)
	assert.Len(t, a.cache.Invalidated(), 1, "the sender applies nothing it receives back")
	assert.Len(t, b.cache.Invalidated(), 1, "receivers do not re-broadcast")
}

func TestService_Locks(t *testing.T) {
	hub := t.Name()
	a := startNode(t, hub, "a")
	b := startNode(t, hub, "b")
	ctx := t.Context()

	ok, err := a.c.GrabClusterLock(ctx, "job")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = b.c.GrabClusterLock(ctx, "job")
	require.NoError(t, err)
	assert.False(t, ok)

	locked, err := b.c.IsClusterLocked(ctx, "job")
	require.NoError(t, err)
	assert.True(t, locked)

	ok, err = b.c.GrabClusterLockWait(ctx, "job", 50*time.Millisecond)
	require.NoError(t, err)
	assert.False(t, ok, "wait times out while a holds the lock")

	go func() {
		time.Sleep(30 * time.Millisecond)
		_, _ = a.c.ReleaseClusterLock(ctx, "job")
	}()
	ok, err = b.c.GrabClusterLockWait(ctx, "job", 2*time.Second)
	require.NoError(t, err)
	assert.True(t, ok)

	err = a.c.Synchronized(ctx, "job", 50*time.Millisecond, func(ctx context.Context) error { return nil })
	assert.ErrorIs(t, err, unify.ErrLockNotAcquired)
}

func TestService_Master(t *testing.T) {
	hub := t.Name()
	withTicker := func(b *testutil.ConfigBuilder) {
		b.WithComponent("master", (*testutil.MasterTicker)(nil))
	}
	a := startNode(t, hub, "a", withTicker)
	b := startNode(t, hub, "b", withTicker)

	ta := testutil.Get[*testutil.MasterTicker](t, a.c, "master")
	tb := testutil.Get[*testutil.MasterTicker](t, b.c, "master")

	testutil.WaitFor(t, func() bool { return ta.Runs()+tb.Runs() >= 3 })

	owner, held := cluster.HubNamed(hub).Owner(cluster.MasterLock)
	require.True(t, held)
	if owner == "a" {
		assert.Zero(t, tb.Runs())
	} else {
		assert.Zero(t, ta.Runs())
	}

	t.Run("master lock moves when the master leaves", func(t *testing.T) {
		leaving, staying := a, tb
		if owner == "b" {
			leaving, staying = b, ta
		}
		require.NoError(t, leaving.c.Shutdown(leaving.c.AccessKey()))

		before := staying.Runs()
		testutil.WaitFor(t, func() bool { return staying.Runs() > before })
	})
}

func TestService_RequiresNodeID(t *testing.T) {
	b := testutil.NewConfigBuilder(t).
		WithComponent(unify.ClusterServiceName, (*cluster.Service)(nil))

	c := testutil.NewContainer(t)
	err := c.Startup(unify.Environment{}, b.Build())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "node id")
}
