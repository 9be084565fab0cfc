package unify

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

const (
	defaultCommandInterval   = time.Second
	defaultDrainPollInterval = 100 * time.Millisecond
	defaultPeriodicJitter    = 2 * time.Second

	// periodicBaseDelay is the fixed part of every periodic task's initial delay.
	periodicBaseDelay = 200 * time.Millisecond
)

// Option configures a Container.
type Option interface {
	applyOption(*containerOptions)
}

type containerOptions struct {
	logger            *zap.Logger
	registerer        prometheus.Registerer
	types             *TypeRegistry
	commandInterval   time.Duration
	drainPollInterval time.Duration
	periodicJitter    time.Duration
	lenientAutoInject bool
}

type optionFunc func(*containerOptions)

func (f optionFunc) applyOption(o *containerOptions) {
	f(o)
}

func defaultContainerOptions() containerOptions {
	return containerOptions{
		logger:            zap.NewNop(),
		commandInterval:   defaultCommandInterval,
		drainPollInterval: defaultDrainPollInterval,
		periodicJitter:    defaultPeriodicJitter,
	}
}

// WithLogger sets the container logger. Components receive named children of it.
func WithLogger(logger *zap.Logger) Option {
	return optionFunc(func(o *containerOptions) {
		if logger != nil {
			o.logger = logger
		}
	})
}

// WithRegisterer registers the container metrics with r.
func WithRegisterer(r prometheus.Registerer) Option {
	return optionFunc(func(o *containerOptions) {
		o.registerer = r
	})
}

// WithTypeRegistry sets the registry used to resolve $c{} capability names.
func WithTypeRegistry(r *TypeRegistry) Option {
	return optionFunc(func(o *containerOptions) {
		o.types = r
	})
}

// WithCommandInterval sets the command loop poll interval.
func WithCommandInterval(d time.Duration) Option {
	return optionFunc(func(o *containerOptions) {
		if d > 0 {
			o.commandInterval = d
		}
	})
}

// WithDrainPollInterval sets how often shutdown polls running periodic tasks.
func WithDrainPollInterval(d time.Duration) Option {
	return optionFunc(func(o *containerOptions) {
		if d > 0 {
			o.drainPollInterval = d
		}
	})
}

// WithPeriodicJitter sets the upper bound of the random initial delay added
// to each periodic task. Zero disables jitter.
func WithPeriodicJitter(d time.Duration) Option {
	return optionFunc(func(o *containerOptions) {
		if d >= 0 {
			o.periodicJitter = d
		}
	})
}

// WithLenientAutoInject leaves ambiguous auto-injected properties unset
// instead of failing startup.
func WithLenientAutoInject() Option {
	return optionFunc(func(o *containerOptions) {
		o.lenientAutoInject = true
	})
}
