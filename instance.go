package unify

import (
	"fmt"
	"reflect"
	"sync"
	"sync/atomic"
	"time"

	"github.com/junioryono/unify/internal/introspect"
	"go.uber.org/zap"
)

// componentInfo is the runtime record of a descriptor.
type componentInfo struct {
	descriptor   *Descriptor
	typeInfo     *introspect.TypeInfo
	declarations *Declarations
	originalType string

	// directives are built once before the container is marked started.
	directives []*injectionDirective

	// sockets is installed at most once, before the first instantiation.
	sockets atomic.Pointer[socketTable]

	passCount atomic.Int64
	failCount atomic.Int64
	firstPass atomic.Int64 // unix nanos
	lastPass  atomic.Int64
	firstFail atomic.Int64
	lastFail  atomic.Int64
}

func newComponentInfo(d *Descriptor, ti *introspect.TypeInfo, decl *Declarations) *componentInfo {
	return &componentInfo{
		descriptor:   d,
		typeInfo:     ti,
		declarations: decl,
		originalType: d.TypeName(),
	}
}

// typeName returns the current implementation type name. It changes once,
// when a plugin socket table is installed.
func (info *componentInfo) typeName() string {
	if info.sockets.Load() != nil {
		return info.originalType + "+sockets"
	}
	return info.originalType
}

func (info *componentInfo) record(err error) {
	now := time.Now().UnixNano()
	if err != nil {
		info.failCount.Add(1)
		info.firstFail.CompareAndSwap(0, now)
		info.lastFail.Store(now)
		return
	}

	info.passCount.Add(1)
	info.firstPass.CompareAndSwap(0, now)
	info.lastPass.Store(now)
}

// instanceHolder pairs a live instance with its info.
type instanceHolder struct {
	info     *componentInfo
	name     string
	instance Component

	mu          sync.Mutex
	initialized bool
}

// getComponent resolves name and returns its instance. tr is the
// initialization trail of the enclosing request.
func (c *Container) getComponent(tr *trail, name string, alt Settings) (Component, error) {
	if err := c.checkServing(); err != nil {
		return nil, err
	}

	canonical, ok := c.resolver.resolve(name)
	if !ok {
		return nil, ComponentError{Name: name, Cause: ErrUnknownComponent}
	}

	info := c.infos[canonical]
	if info.descriptor.IsSingleton() {
		if len(alt) > 0 {
			return nil, ComponentError{Name: canonical, Cause: ErrAltSettingsOnSingleton}
		}
		return c.singleton(tr, info)
	}

	directives := info.directives
	if len(alt) > 0 {
		var err error
		if directives, err = c.alternateDirectives(info, alt); err != nil {
			return nil, err
		}
	}

	h, err := c.create(tr, info, directives, nil)
	if err != nil {
		return nil, err
	}
	return h.instance, nil
}

// singleton returns the shared instance of info, creating it on first use.
func (c *Container) singleton(tr *trail, info *componentInfo) (Component, error) {
	name := info.descriptor.Name
	if h, ok := c.singletons.Load(name); ok {
		return h.(*instanceHolder).instance, nil
	}

	// A singleton referenced while it is still being initialized up the
	// trail gets the partially initialized instance.
	if h := tr.find(name); h != nil {
		return h.instance, nil
	}

	cl, pending := c.acquireCreation(tr, name)
	if pending != nil {
		return pending, nil
	}
	defer c.releaseCreation(cl)

	if h, ok := c.singletons.Load(name); ok {
		return h.(*instanceHolder).instance, nil
	}

	h, err := c.create(tr, info, info.directives, func(comp Component) {
		c.creationMu.Lock()
		cl.pending = comp
		c.creationMu.Unlock()
	})
	if err != nil {
		return nil, err
	}

	c.singletons.Store(name, h)
	c.terminationMu.Lock()
	c.termination = append([]*instanceHolder{h}, c.termination...)
	c.terminationMu.Unlock()
	c.metrics.singletons.Inc()

	return h.instance, nil
}

// creationLock serializes the creation of one singleton. owner is the
// trail of the request creating it and pending its instance once
// constructed.
type creationLock struct {
	mu      sync.Mutex
	owner   *trail
	pending Component
}

// acquireCreation locks the creation of name for tr. When the current
// owner is itself waiting, directly or through other requests, on a
// singleton tr is creating, waiting would deadlock; the owner's partially
// initialized instance is returned instead, as for a cycle within one
// request.
func (c *Container) acquireCreation(tr *trail, name string) (*creationLock, Component) {
	c.creationMu.Lock()
	if c.creationLocks == nil {
		c.creationLocks = make(map[string]*creationLock)
		c.creationWaits = make(map[*trail]string)
	}
	cl, ok := c.creationLocks[name]
	if !ok {
		cl = &creationLock{}
		c.creationLocks[name] = cl
	}
	if cl.owner != nil && cl.pending != nil && c.waitsOn(cl.owner, tr) {
		pending := cl.pending
		c.creationMu.Unlock()
		return nil, pending
	}
	c.creationWaits[tr] = name
	c.creationMu.Unlock()

	cl.mu.Lock()

	c.creationMu.Lock()
	delete(c.creationWaits, tr)
	cl.owner = tr
	c.creationMu.Unlock()
	return cl, nil
}

func (c *Container) releaseCreation(cl *creationLock) {
	c.creationMu.Lock()
	cl.owner = nil
	cl.pending = nil
	c.creationMu.Unlock()
	cl.mu.Unlock()
}

// waitsOn reports whether from is blocked, through a chain of creation
// waits, on a lock owned by to. c.creationMu must be held.
func (c *Container) waitsOn(from, to *trail) bool {
	for range len(c.creationWaits) + 1 {
		name, waiting := c.creationWaits[from]
		if !waiting {
			return false
		}
		cl := c.creationLocks[name]
		if cl == nil {
			return false
		}
		owner := cl.owner
		if owner == to {
			return true
		}
		if owner == nil {
			return false
		}
		from = owner
	}
	return false
}

// create constructs, injects and initializes a new instance of info.
// prepare, when set, runs after construction and before injection.
func (c *Container) create(tr *trail, info *componentInfo, directives []*injectionDirective, prepare func(Component)) (*instanceHolder, error) {
	name := info.descriptor.Name
	if !info.descriptor.IsSingleton() && tr.find(name) != nil {
		return nil, CyclicInitializationError{Name: name, Trail: tr.names()}
	}

	instance, ok := reflect.New(info.descriptor.Type).Interface().(Component)
	if !ok {
		return nil, InstantiationError{Name: name, Type: info.descriptor.Type, Cause: ErrNotComponentType}
	}

	cc := newComponentContext(c, name)
	instance.bind(cc)
	if table := info.sockets.Load(); table != nil {
		if bs, ok := instance.(BusinessService); ok {
			bs.installSockets(table)
		}
	}
	if prepare != nil {
		prepare(instance)
	}

	h := &instanceHolder{info: info, name: name, instance: instance}
	tr.push(name, h)
	defer tr.pop()

	err := c.initialize(tr, cc, h, directives)
	c.metrics.instantiations.WithLabelValues(name, result(err)).Inc()
	if err != nil {
		c.logger.Debug("Component instantiation failed", zap.String("component", name), zap.Error(err))
		return nil, InstantiationError{Name: name, Type: info.descriptor.Type, Cause: err}
	}

	return h, nil
}

// initialize injects and runs OnInitialize at most once per holder.
func (c *Container) initialize(tr *trail, cc *ComponentContext, h *instanceHolder, directives []*injectionDirective) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.initialized {
		return nil
	}

	if err := c.inject(tr, h, directives); err != nil {
		return err
	}

	cc.active.Store(tr)
	defer cc.active.Store(nil)

	if init, ok := h.instance.(Initializer); ok {
		if err := init.OnInitialize(); err != nil {
			return err
		}
	}

	h.initialized = true
	return nil
}

// terminateSingletons runs OnTerminate on every singleton, most recently
// created first. Failures are logged and collected, never fatal.
func (c *Container) terminateSingletons() error {
	c.terminationMu.Lock()
	holders := c.termination
	c.termination = nil
	c.terminationMu.Unlock()

	var errs []error
	for _, h := range holders {
		t, ok := h.instance.(Terminator)
		if !ok {
			continue
		}

		if err := terminate(t); err != nil {
			c.logger.Warn("Component termination failed", zap.String("component", h.name), zap.Error(err))
			errs = append(errs, ComponentError{Name: h.name, Cause: err})
		}
	}

	c.singletons.Clear()
	c.creationMu.Lock()
	clear(c.creationLocks)
	clear(c.creationWaits)
	c.creationMu.Unlock()
	c.metrics.singletons.Set(0)

	if len(errs) > 0 {
		return TerminationError{Errors: errs}
	}
	return nil
}

// terminate runs OnTerminate, reporting a panic as an error.
func terminate(t Terminator) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("terminate panicked: %v", r)
		}
	}()
	return t.OnTerminate()
}
