package unify

import (
	"context"
	"errors"
	"fmt"
	"io"
	"reflect"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/junioryono/unify/internal/graph"
	"github.com/junioryono/unify/internal/introspect"
	"go.uber.org/zap"
)

// ErrLockNotAcquired is returned by Synchronized when the cluster lock
// could not be taken in time.
var ErrLockNotAcquired = errors.New("cluster lock not acquired")

const (
	stateNew int32 = iota
	stateStarting
	stateStarted
	stateStopping
	stateShutdown
)

// Container manages the lifecycle of named components. Create it with New,
// then call Startup with a Config. All methods are safe for concurrent use
// once Startup has returned.
type Container struct {
	id        string
	accessKey string

	opts     containerOptions
	logger   *zap.Logger
	metrics  *containerMetrics
	types    *TypeRegistry
	analyzer *introspect.Analyzer

	state     atomic.Int32
	startTime time.Time

	// Read-only after startup.
	config      *Config
	env         Environment
	messages    Messages
	resolver    *nameResolver
	infos       map[string]*componentInfo
	order       []string
	suggestions map[reflect.Type]autoSuggestion
	graph       *graph.DependencyGraph

	periodic      []*periodicRegistration
	periodicIndex map[string]*periodicRegistration
	broadcasts    map[string]*broadcastRegistration

	pendingSockets map[string]*socketTable

	interfaces      []ContainerInterface
	requestContexts RequestContextManager
	cluster         ClusterService
	sessions        SessionManager
	taskManager     TaskManager
	viewCompiler    ViewCompiler
	attributes      map[string]any

	views *viewCache

	singletons sync.Map // map[string]*instanceHolder

	creationMu    sync.Mutex
	creationLocks map[string]*creationLock
	creationWaits map[*trail]string // request to the singleton it waits for

	terminationMu sync.Mutex
	termination   []*instanceHolder // most recent first

	commandsMu sync.Mutex
	commands   []queuedCommand
	loop       *commandLoop

	lastShutdownMu  sync.Mutex
	lastTermination error
}

// New creates a container.
func New(opts ...Option) (*Container, error) {
	o := defaultContainerOptions()
	for _, opt := range opts {
		if opt != nil {
			opt.applyOption(&o)
		}
	}

	metrics, err := newContainerMetrics(o.registerer)
	if err != nil {
		return nil, fmt.Errorf("register container metrics: %w", err)
	}

	c := &Container{
		id:        uuid.NewString(),
		accessKey: uuid.NewString(),
		opts:      o,
		logger:    o.logger,
		metrics:   metrics,
		types:     o.types,
		analyzer:  introspect.New(componentType, collectionElem),
		views:     newViewCache(),
	}

	return c, nil
}

// ID returns the unique identifier of the container instance.
func (c *Container) ID() string {
	return c.id
}

// AccessKey returns the key required by Shutdown.
func (c *Container) AccessKey() string {
	return c.accessKey
}

// IsStarted reports whether Startup completed and Shutdown has not begun.
func (c *Container) IsStarted() bool {
	return c.state.Load() == stateStarted
}

// StartTime returns when Startup completed.
func (c *Container) StartTime() time.Time {
	return c.startTime
}

// NodeID returns the cluster node id.
func (c *Container) NodeID() string {
	if c.config == nil {
		return ""
	}
	return c.config.NodeID()
}

// IsClusterMode reports whether the container runs in cluster mode.
func (c *Container) IsClusterMode() bool {
	return c.config != nil && c.config.ClusterMode()
}

// Property returns a container property.
func (c *Container) Property(name string) (any, bool) {
	if c.config == nil {
		return nil, false
	}
	return c.config.Property(name)
}

// ApplicationAttribute returns an attribute supplied by the attribute providers.
func (c *Container) ApplicationAttribute(name string) (any, bool) {
	v, ok := c.attributes[name]
	return v, ok
}

func (c *Container) checkServing() error {
	switch c.state.Load() {
	case stateStarted, stateStopping:
		return nil
	case stateShutdown:
		return ErrContainerShutdown
	default:
		return ErrContainerNotStarted
	}
}

// GetComponent returns the component registered under name, resolving
// aliases and customizations. Singletons are created on first use.
func (c *Container) GetComponent(name string) (Component, error) {
	return c.getComponent(&trail{}, name, nil)
}

// GetComponentWithSettings returns a new instance of a transient component
// with alt overriding its configured settings.
func (c *Container) GetComponentWithSettings(name string, alt Settings) (Component, error) {
	return c.getComponent(&trail{}, name, alt)
}

// GetComponentByType returns the unique component implementing t, or the
// single preferred one among several. t is an interface type, a pointer to
// a component struct, or the struct type itself.
func (c *Container) GetComponentByType(t reflect.Type) (Component, error) {
	if err := c.checkServing(); err != nil {
		return nil, err
	}

	if t == nil {
		return nil, fmt.Errorf("component type cannot be nil")
	}

	capability := capabilityOf(t)
	name, err := c.findUniqueImplementation(capability, "")
	if err != nil {
		return nil, err
	}
	if name == "" {
		return nil, ComponentError{Name: typeString(capability), Cause: ErrUnknownComponent}
	}

	return c.GetComponent(name)
}

// IsComponent reports whether name resolves to a registered component.
func (c *Container) IsComponent(name string) bool {
	if c.resolver == nil {
		return false
	}
	_, ok := c.resolver.resolve(name)
	return ok
}

// IsComponentType reports whether any registered component implements t.
func (c *Container) IsComponentType(t reflect.Type) bool {
	if t == nil || c.infos == nil {
		return false
	}
	return len(c.implementations(capabilityOf(t), "")) > 0
}

// ComponentNames returns the names of the components implementing t, in
// registration order.
func (c *Container) ComponentNames(t reflect.Type) []string {
	if t == nil || c.infos == nil {
		return nil
	}
	return c.implementations(capabilityOf(t), "")
}

// ComponentDescriptor returns the effective descriptor of name.
func (c *Container) ComponentDescriptor(name string) (Descriptor, bool) {
	if c.resolver == nil {
		return Descriptor{}, false
	}

	canonical, ok := c.resolver.resolve(name)
	if !ok {
		return Descriptor{}, false
	}
	return *c.infos[canonical].descriptor.clone(), true
}

// ComponentDescriptors returns the effective descriptors of the components
// implementing t.
func (c *Container) ComponentDescriptors(t reflect.Type) []Descriptor {
	names := c.ComponentNames(t)
	out := make([]Descriptor, 0, len(names))
	for _, n := range names {
		out = append(out, *c.infos[n].descriptor.clone())
	}
	return out
}

// BroadcastToOtherNodes sends command to the other cluster nodes. It does
// nothing outside cluster mode or when ctx suppresses broadcasts.
func (c *Container) BroadcastToOtherNodes(ctx context.Context, command string, params ...string) error {
	if IsBroadcastSuppressed(ctx) || !c.IsClusterMode() {
		return nil
	}

	if err := c.checkServing(); err != nil {
		return err
	}

	return c.cluster.BroadcastToOtherNodes(ctx, command, params...)
}

// GrabClusterLock attempts to take a cluster lock without waiting.
func (c *Container) GrabClusterLock(ctx context.Context, lock string) (bool, error) {
	if err := c.checkServing(); err != nil {
		return false, err
	}
	return c.cluster.GrabLock(ctx, lock)
}

// GrabClusterLockWait waits up to timeout for a cluster lock. A
// non-positive timeout waits until ctx is done.
func (c *Container) GrabClusterLockWait(ctx context.Context, lock string, timeout time.Duration) (bool, error) {
	if err := c.checkServing(); err != nil {
		return false, err
	}
	return c.cluster.GrabLockWait(ctx, lock, timeout)
}

// ReleaseClusterLock releases a cluster lock held by this node.
func (c *Container) ReleaseClusterLock(ctx context.Context, lock string) (bool, error) {
	if err := c.checkServing(); err != nil {
		return false, err
	}
	return c.cluster.ReleaseLock(ctx, lock)
}

// IsClusterLocked reports whether any node holds lock.
func (c *Container) IsClusterLocked(ctx context.Context, lock string) (bool, error) {
	if err := c.checkServing(); err != nil {
		return false, err
	}
	return c.cluster.IsLocked(ctx, lock)
}

// GrabClusterMasterLock reports whether this node is the cluster master.
func (c *Container) GrabClusterMasterLock(ctx context.Context) (bool, error) {
	if err := c.checkServing(); err != nil {
		return false, err
	}
	return c.cluster.GrabMasterLock(ctx)
}

// Synchronized runs fn while holding lock. The lock is released when fn
// returns, even on error. Sections nest: a Synchronized call under the ctx
// handed to fn for the same lock runs without grabbing or releasing it.
func (c *Container) Synchronized(ctx context.Context, lock string, timeout time.Duration, fn func(context.Context) error) error {
	if holdsLock(ctx, lock) {
		return fn(ctx)
	}

	ok, err := c.GrabClusterLockWait(ctx, lock, timeout)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: %s", ErrLockNotAcquired, lock)
	}

	defer func() {
		if _, err := c.cluster.ReleaseLock(context.WithoutCancel(ctx), lock); err != nil {
			c.logger.Warn("Failed to release cluster lock", zap.String("lock", lock), zap.Error(err))
		}
	}()

	return fn(withHeldLock(ctx, lock))
}

// WriteGraph writes the component reference graph in DOT format.
func (c *Container) WriteGraph(w io.Writer) error {
	if c.graph == nil {
		return ErrContainerNotStarted
	}
	return graph.NewVisualizer(c.graph).WriteDOT(w)
}

// message formats a diagnostic message. Failures fall back to the key.
func (c *Container) message(key string, params ...any) (msg string) {
	if c.messages == nil {
		return key
	}

	defer func() {
		if r := recover(); r != nil {
			c.logger.Debug("Message formatting panicked", zap.String("key", key), zap.Any("panic", r))
			msg = key
		}
	}()

	msg, err := c.messages.Message(key, params...)
	if err != nil {
		c.logger.Debug("Message formatting failed", zap.String("key", key), zap.Error(err))
		return key
	}
	return msg
}
