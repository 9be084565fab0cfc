package unify

import (
	"context"
	"reflect"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

// Component is implemented by every type managed by the container.
// Embed Base (or BusinessBase) in a struct to satisfy it:
//
//	type Greeter struct {
//	    unify.Base
//	    Greeting string `unify:"greeting,default=hello"`
//	}
type Component interface {
	// Context returns the container context bound at initialization.
	// It is nil for instances not created by a container.
	Context() *ComponentContext

	bind(cc *ComponentContext)
}

// Initializer is implemented by components that need work after injection.
type Initializer interface {
	OnInitialize() error
}

// Terminator is implemented by components that release resources at shutdown.
// Only singletons are terminated by the container.
type Terminator interface {
	OnTerminate() error
}

var (
	componentType = reflect.TypeOf((*Component)(nil)).Elem()
	contextType   = reflect.TypeOf((*context.Context)(nil)).Elem()
	stringsType   = reflect.TypeOf([]string(nil))
)

// Base provides the Component implementation.
type Base struct {
	cc *ComponentContext
}

// Context returns the component context.
func (b *Base) Context() *ComponentContext {
	return b.cc
}

func (b *Base) bind(cc *ComponentContext) {
	b.cc = cc
}

// ComponentName returns the name the component was created under.
func (b *Base) ComponentName() string {
	if b.cc == nil {
		return ""
	}
	return b.cc.name
}

// Logger returns the component's named logger.
func (b *Base) Logger() *zap.Logger {
	if b.cc == nil {
		return zap.NewNop()
	}
	return b.cc.logger
}

// ComponentContext gives a component access to its container.
type ComponentContext struct {
	container *Container
	name      string
	logger    *zap.Logger

	// active is the initialization trail while OnInitialize runs.
	active atomic.Pointer[trail]

	// applying is non-zero while an inbound broadcast command is applied.
	applying atomic.Int32
}

func newComponentContext(c *Container, name string) *ComponentContext {
	return &ComponentContext{
		container: c,
		name:      name,
		logger:    c.logger.Named(name),
	}
}

// Name returns the component name.
func (cc *ComponentContext) Name() string {
	return cc.name
}

// Logger returns the component's named logger.
func (cc *ComponentContext) Logger() *zap.Logger {
	return cc.logger
}

// Container returns the owning container.
func (cc *ComponentContext) Container() *Container {
	return cc.container
}

// GetComponent resolves another component by name.
func (cc *ComponentContext) GetComponent(name string) (Component, error) {
	if tr := cc.active.Load(); tr != nil {
		return cc.container.getComponent(tr, name, nil)
	}
	return cc.container.GetComponent(name)
}

// IsComponent reports whether name resolves to a registered component.
func (cc *ComponentContext) IsComponent(name string) bool {
	return cc.container.IsComponent(name)
}

// NodeID returns the cluster node id of the container.
func (cc *ComponentContext) NodeID() string {
	return cc.container.NodeID()
}

// IsClusterMode reports whether the container runs in cluster mode.
func (cc *ComponentContext) IsClusterMode() bool {
	return cc.container.IsClusterMode()
}

// Property returns a container property.
func (cc *ComponentContext) Property(name string) (any, bool) {
	return cc.container.Property(name)
}

// Message formats a message from the container's bundle. Failures yield the key.
func (cc *ComponentContext) Message(key string, params ...any) string {
	return cc.container.message(key, params...)
}

// Broadcast sends "<component>.<method>" to the other cluster nodes. It is a
// no-op when ctx carries the broadcast suppression flag or while the
// component is applying a broadcast it received.
func (cc *ComponentContext) Broadcast(ctx context.Context, method string, params ...string) error {
	if cc.applying.Load() > 0 {
		return nil
	}
	return cc.container.BroadcastToOtherNodes(ctx, CommandName(cc.name, method), params...)
}

// GrabLock attempts to take a cluster lock without waiting.
func (cc *ComponentContext) GrabLock(ctx context.Context, lock string) (bool, error) {
	return cc.container.GrabClusterLock(ctx, lock)
}

// ReleaseLock releases a cluster lock held by this node.
func (cc *ComponentContext) ReleaseLock(ctx context.Context, lock string) (bool, error) {
	return cc.container.ReleaseClusterLock(ctx, lock)
}

// Synchronized runs fn while holding the named cluster lock, waiting for
// it indefinitely (bounded by ctx).
func (cc *ComponentContext) Synchronized(ctx context.Context, lock string, fn func(context.Context) error) error {
	return cc.container.Synchronized(ctx, lock, 0, fn)
}

// SynchronizedWait is Synchronized with an explicit lock wait timeout.
func (cc *ComponentContext) SynchronizedWait(ctx context.Context, lock string, timeout time.Duration, fn func(context.Context) error) error {
	return cc.container.Synchronized(ctx, lock, timeout, fn)
}
