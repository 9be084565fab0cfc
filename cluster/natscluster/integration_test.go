package natscluster_test

import (
	"os"
	"testing"
	"time"

	"github.com/junioryono/unify"
	"github.com/junioryono/unify/cluster/natscluster"
	"github.com/junioryono/unify/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestService_RequiresNodeID(t *testing.T) {
	b := testutil.NewConfigBuilder(t).
		WithComponent(unify.ClusterServiceName, (*natscluster.Service)(nil))

	c := testutil.NewContainer(t)
	err := c.Startup(unify.Environment{}, b.Build())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "node id")
}

// TestService_NATS runs two nodes against the server named by UNIFY_NATS_URL.
// The server needs JetStream enabled.
func TestService_NATS(t *testing.T) {
	url := os.Getenv("UNIFY_NATS_URL")
	if url == "" {
		t.Skip("UNIFY_NATS_URL not set")
	}

	subject := "unify.test." + time.Now().Format("150405.000000")
	bucket := "unify_test_" + time.Now().Format("150405000000")

	start := func(id string) (*unify.Container, *testutil.Cache) {
		b := testutil.NewConfigBuilder(t).
			Cluster(id).
			WithComponent(unify.ClusterServiceName, (*natscluster.Service)(nil),
				unify.WithSetting("url", url),
				unify.WithSetting("subject", subject),
				unify.WithSetting("bucket", bucket),
				unify.WithSetting("lockTTL", "10s"),
			).
			WithComponent("cache", (*testutil.Cache)(nil))
		c := testutil.Start(t, b.Build())
		return c, testutil.Get[*testutil.Cache](t, c, "cache")
	}

	a, aCache := start("a")
	b, bCache := start("b")

	aCache.Invalidate(t.Context(), []string{"k1"})
	testutil.WaitFor(t, func() bool { return len(bCache.Invalidated()) == 1 })
	assert.Equal(t, [][]string{{"k1"}}, bCache.Invalidated())

	ok, err := a.GrabClusterLock(t.Context(), "import")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = b.GrabClusterLock(t.Context(), "import")
	require.NoError(t, err)
	assert.False(t, ok)

	released, err := a.ReleaseClusterLock(t.Context(), "import")
	require.NoError(t, err)
	assert.True(t, released)
}
