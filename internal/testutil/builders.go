package testutil

import (
	"errors"
	"testing"
	"time"

	"github.com/junioryono/unify"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/text/language"
)

// Types returns a type registry naming the fixture capabilities.
func Types(t *testing.T) *unify.TypeRegistry {
	t.Helper()

	types := unify.NewTypeRegistry()
	require.NoError(t, unify.RegisterType[Greeter](types, "greeter"))
	require.NoError(t, unify.RegisterType[Unimplemented](types, "unimplemented"))
	require.NoError(t, unify.RegisterType[*Recorder](types, "recorder"))
	require.NoError(t, unify.RegisterType[*EnglishGreeter](types, "english"))
	require.NoError(t, unify.RegisterType[*FrenchGreeter](types, "french"))
	require.NoError(t, unify.RegisterType[*Tracked](types, "tracked"))
	require.NoError(t, unify.RegisterType[*Widget](types, "widget"))
	return types
}

// ConfigBuilder provides a fluent interface for building test configurations
type ConfigBuilder struct {
	t       *testing.T
	builder *unify.ConfigBuilder
}

// NewConfigBuilder creates a new ConfigBuilder
func NewConfigBuilder(t *testing.T) *ConfigBuilder {
	return &ConfigBuilder{t: t, builder: unify.NewConfigBuilder()}
}

// WithComponent registers a component
func (b *ConfigBuilder) WithComponent(name string, sample any, opts ...unify.ComponentOption) *ConfigBuilder {
	require.NoError(b.t, b.builder.AddComponent(name, sample, opts...))
	return b
}

// WithRecorder registers a Recorder under "recorder"
func (b *ConfigBuilder) WithRecorder() *ConfigBuilder {
	return b.WithComponent("recorder", (*Recorder)(nil))
}

// WithModule installs a module
func (b *ConfigBuilder) WithModule(module unify.ModuleOption) *ConfigBuilder {
	require.NoError(b.t, b.builder.Install(module))
	return b
}

// WithProperty sets a container property
func (b *ConfigBuilder) WithProperty(name string, value any) *ConfigBuilder {
	b.builder.SetProperty(name, value)
	return b
}

// WithAlias registers an alias
func (b *ConfigBuilder) WithAlias(alias, target string) *ConfigBuilder {
	b.builder.Alias(alias, target)
	return b
}

// Cluster enables cluster mode under nodeID
func (b *ConfigBuilder) Cluster(nodeID string) *ConfigBuilder {
	b.builder.NodeID(nodeID).ClusterMode(true)
	return b
}

// Builder returns the underlying builder
func (b *ConfigBuilder) Builder() *unify.ConfigBuilder {
	return b.builder
}

// Build returns the configuration
func (b *ConfigBuilder) Build() *unify.Config {
	return b.builder.Build()
}

// NewContainer creates a container with a silent logger, the fixture type
// registry and fast background intervals.
func NewContainer(t *testing.T, opts ...unify.Option) *unify.Container {
	t.Helper()

	defaults := []unify.Option{
		unify.WithLogger(zap.NewNop()),
		unify.WithTypeRegistry(Types(t)),
		unify.WithCommandInterval(10 * time.Millisecond),
		unify.WithDrainPollInterval(5 * time.Millisecond),
		unify.WithPeriodicJitter(0),
	}

	c, err := unify.New(append(defaults, opts...)...)
	require.NoError(t, err)
	return c
}

// Start creates and starts a container for cfg. It is shut down when the
// test ends unless the test shut it down itself.
func Start(t *testing.T, cfg *unify.Config, opts ...unify.Option) *unify.Container {
	t.Helper()

	c := NewContainer(t, opts...)
	require.NoError(t, c.Startup(unify.Environment{Locale: language.English}, cfg))

	t.Cleanup(func() {
		if err := c.Shutdown(c.AccessKey()); err != nil && !errors.Is(err, unify.ErrContainerShutdown) {
			t.Errorf("shutdown: %v", err)
		}
	})
	return c
}

// Get resolves name as T and fails the test on error.
func Get[T any](t *testing.T, c *unify.Container, name string) T {
	t.Helper()
	v, err := unify.ResolveNamed[T](c, name)
	require.NoError(t, err, "failed to resolve component %q as %T", name, *new(T))
	return v
}

// WaitFor polls cond until it holds or the timeout elapses.
func WaitFor(t *testing.T, cond func() bool, msgAndArgs ...any) {
	t.Helper()
	require.Eventually(t, cond, 3*time.Second, 5*time.Millisecond, msgAndArgs...)
}
