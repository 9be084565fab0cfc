package bootstrap_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/junioryono/unify"
	"github.com/junioryono/unify/bootstrap"
	"github.com/junioryono/unify/commandiface"
	"github.com/junioryono/unify/internal/testutil"
	prommodel "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/text/language"
)

const appYAML = `
properties:
  application.name: orders
aliases:
  greeter: english
components:
  - name: english
    type: english
    settings:
      greeting: hi
`

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func options(t *testing.T, files ...string) bootstrap.Options {
	return bootstrap.Options{
		ConfigFiles: files,
		Types:       testutil.Types(t),
		Logger:      zap.NewNop(),
		Locale:      language.English,
		ContainerOptions: []unify.Option{
			unify.WithCommandInterval(10 * time.Millisecond),
			unify.WithDrainPollInterval(5 * time.Millisecond),
		},
	}
}

func TestNew(t *testing.T) {
	opts := options(t, writeFile(t, "app.yaml", appYAML))
	opts.NodeID = "node-7"
	opts.CommandAddress = "127.0.0.1:0"

	app, err := bootstrap.New(opts)
	require.NoError(t, err)

	assert.Equal(t, "node-7", app.Config.NodeID())
	assert.True(t, app.Config.BoolProperty(unify.PropertyCommandInterface))
	assert.Equal(t, language.English, app.Env.Locale)

	for _, name := range []string{bootstrap.ClusterServiceType, bootstrap.NATSClusterServiceType, bootstrap.CommandInterfaceType} {
		_, ok := opts.Types.Lookup(name)
		assert.True(t, ok, name)
	}

	require.NoError(t, app.Start())
	t.Cleanup(func() { assert.NoError(t, app.Shutdown()) })

	g := testutil.Get[testutil.Greeter](t, app.Container, "greeter")
	assert.Equal(t, "hi bob", g.Greet("bob"))

	iface := testutil.Get[*commandiface.Interface](t, app.Container, unify.CommandInterfaceName)
	assert.True(t, iface.IsServicingRequests())

	count, err := prommodel.GatherAndCount(app.Registry, "unify_container_instantiations_total", "go_goroutines")
	require.NoError(t, err)
	assert.Greater(t, count, 1)
}

func TestNew_Errors(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*bootstrap.Options)
	}{
		{"bad log level", func(o *bootstrap.Options) { o.Logger = nil; o.LogLevel = "loud" }},
		{"missing config file", func(o *bootstrap.Options) { o.ConfigFiles = []string{"/nonexistent/app.yaml"} }},
		{"missing message file", func(o *bootstrap.Options) { o.MessageFiles = []string{"/nonexistent/messages.yaml"} }},
		{"failing module", func(o *bootstrap.Options) {
			o.Modules = []unify.ModuleOption{unify.NewModule("bad", unify.AddComponent("x", nil))}
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts := options(t)
			tt.modify(&opts)

			_, err := bootstrap.New(opts)
			assert.Error(t, err)
		})
	}
}

func TestNew_Messages(t *testing.T) {
	opts := options(t)
	opts.MessageFiles = []string{
		writeFile(t, "base.yaml", "greeting: hello {0}\nfarewell: bye\n"),
		writeFile(t, "override.yaml", "greeting: hi {0}\n"),
	}

	app, err := bootstrap.New(opts)
	require.NoError(t, err)
	require.NotNil(t, app.Env.Messages)

	msg, err := app.Env.Messages.Message("greeting", "bob")
	require.NoError(t, err)
	assert.Equal(t, "hi bob", msg)

	msg, err = app.Env.Messages.Message("farewell")
	require.NoError(t, err)
	assert.Equal(t, "bye", msg)
}

func TestNew_LoggerFromLevel(t *testing.T) {
	opts := options(t)
	opts.Logger = nil
	opts.LogLevel = "warn"

	app, err := bootstrap.New(opts)
	require.NoError(t, err)
	assert.False(t, app.Logger.Core().Enabled(zap.InfoLevel))
	assert.True(t, app.Logger.Core().Enabled(zap.WarnLevel))
}

func TestApp_Run(t *testing.T) {
	t.Run("stops when the context ends", func(t *testing.T) {
		app, err := bootstrap.New(options(t))
		require.NoError(t, err)

		ctx, cancel := context.WithCancel(t.Context())
		done := make(chan error, 1)
		go func() { done <- app.Run(ctx) }()

		testutil.WaitFor(t, app.Container.IsStarted)
		cancel()

		select {
		case err := <-done:
			assert.NoError(t, err)
		case <-time.After(3 * time.Second):
			t.Fatal("Run did not return")
		}
		assert.False(t, app.Container.IsStarted())
	})

	t.Run("stops after the shutdown command", func(t *testing.T) {
		app, err := bootstrap.New(options(t))
		require.NoError(t, err)

		done := make(chan error, 1)
		go func() { done <- app.Run(t.Context()) }()

		testutil.WaitFor(t, app.Container.IsStarted)
		require.NoError(t, app.Container.Command(unify.ShutdownCommand))

		select {
		case err := <-done:
			assert.NoError(t, err)
		case <-time.After(3 * time.Second):
			t.Fatal("Run did not return")
		}
		assert.NoError(t, app.Shutdown(), "shutting down twice is harmless")
	})

	t.Run("startup failure", func(t *testing.T) {
		opts := options(t)
		opts.Modules = []unify.ModuleOption{unify.NewModule("app", unify.Property(unify.PropertyInterfaces, "missing"))}

		app, err := bootstrap.New(opts)
		require.NoError(t, err)
		assert.ErrorIs(t, app.Run(t.Context()), unify.ErrInvalidInterface)
	})
}
