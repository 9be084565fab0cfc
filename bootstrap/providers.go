package bootstrap

import (
	"fmt"
	"os"

	"github.com/junioryono/unify"
	"github.com/junioryono/unify/cluster"
	"github.com/junioryono/unify/cluster/natscluster"
	"github.com/junioryono/unify/commandiface"
	"github.com/junioryono/unify/configfile"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Type names registered for configuration files.
const (
	ClusterServiceType     = "unify.cluster"
	NATSClusterServiceType = "unify.natscluster"
	CommandInterfaceType   = "unify.commandinterface"
)

func newLogger(opts Options) (*zap.Logger, error) {
	if opts.Logger != nil {
		return opts.Logger, nil
	}

	level := zapcore.InfoLevel
	if opts.LogLevel != "" {
		l, err := zapcore.ParseLevel(opts.LogLevel)
		if err != nil {
			return nil, fmt.Errorf("log level: %w", err)
		}
		level = l
	}

	cfg := zap.NewProductionConfig()
	if opts.Development {
		cfg = zap.NewDevelopmentConfig()
	}
	cfg.Level = zap.NewAtomicLevelAt(level)

	return cfg.Build()
}

func newRegistry() *prometheus.Registry {
	r := prometheus.NewRegistry()
	r.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return r
}

func newTypes(opts Options) (*unify.TypeRegistry, error) {
	types := opts.Types
	if types == nil {
		types = unify.NewTypeRegistry()
	}

	builtin := map[string]any{
		ClusterServiceType:     (*cluster.Service)(nil),
		NATSClusterServiceType: (*natscluster.Service)(nil),
		CommandInterfaceType:   (*commandiface.Interface)(nil),
	}
	for name, sample := range builtin {
		if err := types.Register(name, sample); err != nil {
			return nil, err
		}
	}
	return types, nil
}

func newEnvironment(opts Options, logger *zap.Logger) (unify.Environment, error) {
	env := unify.Environment{Locale: opts.Locale}
	if len(opts.MessageFiles) == 0 {
		return env, nil
	}

	bundle := unify.NewMessageBundle(nil)
	for _, path := range opts.MessageFiles {
		f, err := os.Open(path)
		if err != nil {
			return env, fmt.Errorf("messages: %w", err)
		}
		b, err := unify.LoadMessageBundle(f)
		f.Close()
		if err != nil {
			return env, fmt.Errorf("messages %s: %w", path, err)
		}
		bundle.Merge(b)
	}

	logger.Debug("Message bundles loaded", zap.Strings("files", opts.MessageFiles))
	env.Messages = bundle
	return env, nil
}

func newConfig(opts Options, types *unify.TypeRegistry, logger *zap.Logger) (*unify.Config, error) {
	b := unify.NewConfigBuilder()

	for _, path := range opts.ConfigFiles {
		doc, err := configfile.LoadFile(path)
		if err != nil {
			return nil, err
		}
		if err := doc.Apply(b, types); err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
	}

	if err := b.Install(opts.Modules...); err != nil {
		return nil, err
	}

	if opts.NodeID != "" {
		b.NodeID(opts.NodeID)
	}

	if opts.CommandAddress != "" && !b.HasComponent(unify.CommandInterfaceName) {
		err := b.AddComponent(unify.CommandInterfaceName, (*commandiface.Interface)(nil),
			unify.Description("HTTP command interface"),
			unify.WithSetting("address", opts.CommandAddress))
		if err != nil {
			return nil, err
		}
		b.SetProperty(unify.PropertyCommandInterface, true)
	}

	cfg := b.Build()
	logger.Info("Configuration loaded",
		zap.Strings("files", opts.ConfigFiles),
		zap.Int("components", len(cfg.Descriptors())),
		zap.String("node", cfg.NodeID()),
		zap.Bool("cluster", cfg.ClusterMode()))
	return cfg, nil
}

func newContainer(opts Options, logger *zap.Logger, registry *prometheus.Registry, types *unify.TypeRegistry) (*unify.Container, error) {
	base := []unify.Option{
		unify.WithLogger(logger),
		unify.WithRegisterer(registry),
		unify.WithTypeRegistry(types),
	}
	return unify.New(append(base, opts.ContainerOptions...)...)
}
