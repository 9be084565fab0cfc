// Package bootstrap assembles a runnable unify application: logger,
// metrics registry, type registry, configuration and container, wired with
// dig.
package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/junioryono/unify"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/dig"
	"go.uber.org/zap"
	"golang.org/x/text/language"
)

// Options configures New.
type Options struct {
	// ConfigFiles are loaded in order; see configfile.Load.
	ConfigFiles []string

	// MessageFiles are YAML message bundles merged in order.
	MessageFiles []string

	// Modules are installed after the configuration files.
	Modules []unify.ModuleOption

	// Types names application component types for configuration files.
	// The cluster and command interface types are added to it.
	Types *unify.TypeRegistry

	// NodeID overrides the node id of the configuration when set.
	NodeID string

	// CommandAddress, when set, registers the HTTP command interface on
	// that address unless the configuration already has one.
	CommandAddress string

	// LogLevel is a zap level name. Empty means info.
	LogLevel string

	// Development selects zap's development logger.
	Development bool

	// Logger replaces the built logger.
	Logger *zap.Logger

	Locale           language.Tag
	ContainerOptions []unify.Option
}

// App is an assembled application.
type App struct {
	Container *unify.Container
	Config    *unify.Config
	Logger    *zap.Logger
	Registry  *prometheus.Registry
	Env       unify.Environment
}

type appParams struct {
	dig.In

	Container *unify.Container
	Config    *unify.Config
	Logger    *zap.Logger
	Registry  *prometheus.Registry
	Env       unify.Environment
}

// New builds the application. The container is not started.
func New(opts Options) (*App, error) {
	c := dig.New()

	providers := []any{
		func() Options { return opts },
		newLogger,
		newRegistry,
		newTypes,
		newEnvironment,
		newConfig,
		newContainer,
	}
	for _, p := range providers {
		if err := c.Provide(p); err != nil {
			return nil, fmt.Errorf("bootstrap: %w", err)
		}
	}

	var app *App
	err := c.Invoke(func(p appParams) {
		app = &App{
			Container: p.Container,
			Config:    p.Config,
			Logger:    p.Logger,
			Registry:  p.Registry,
			Env:       p.Env,
		}
	})
	if err != nil {
		return nil, fmt.Errorf("bootstrap: %w", dig.RootCause(err))
	}
	return app, nil
}

// Start starts the container.
func (a *App) Start() error {
	return a.Container.Startup(a.Env, a.Config)
}

// Shutdown stops the container. A container already shut down, for
// example by the shutdown command, is not an error.
func (a *App) Shutdown() error {
	err := a.Container.Shutdown(a.Container.AccessKey())
	if errors.Is(err, unify.ErrContainerShutdown) {
		return nil
	}
	return err
}

// Run starts the container and blocks until ctx is done or the container
// shuts itself down.
func (a *App) Run(ctx context.Context) error {
	if err := a.Start(); err != nil {
		return err
	}
	a.Logger.Info("Application started",
		zap.String("id", a.Container.ID()),
		zap.String("node", a.Container.NodeID()),
		zap.Int("pid", os.Getpid()))

	ticker := time.NewTicker(250 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			a.Logger.Info("Shutting down", zap.NamedError("reason", context.Cause(ctx)))
			return a.Shutdown()
		case <-ticker.C:
			if !a.Container.IsStarted() {
				a.Logger.Info("Container shut down by command")
				return nil
			}
		}
	}
}
