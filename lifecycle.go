package unify

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"sort"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Startup validates cfg, wires every component and starts the container
// services. Configuration errors abort startup. A container can be
// started once; later calls fail with ErrContainerAlreadyInitialized.
func (c *Container) Startup(env Environment, cfg *Config) error {
	if cfg == nil {
		return LifecycleError{Operation: "startup", Cause: errors.New("config cannot be nil")}
	}

	if !c.state.CompareAndSwap(stateNew, stateStarting) {
		return LifecycleError{Operation: "startup", Cause: ErrContainerAlreadyInitialized}
	}

	started := time.Now()
	c.env = env
	c.config = cfg
	c.messages = env.Messages
	c.logger.Info("Container initialization started",
		zap.String("container", c.id),
		zap.String("node", cfg.NodeID()),
		zap.Bool("cluster", cfg.ClusterMode()))

	if err := c.prepare(); err != nil {
		c.state.Store(stateNew)
		return LifecycleError{Operation: "startup", Cause: err}
	}

	c.state.Store(stateStarted)

	if err := c.start(context.Background()); err != nil {
		c.abortStartup()
		return LifecycleError{Operation: "startup", Cause: err}
	}

	c.startTime = time.Now()
	c.logger.Info("Container initialization completed",
		zap.Int("components", len(c.order)),
		zap.Duration("elapsed", c.startTime.Sub(started)))
	return nil
}

// prepare runs everything that happens before the container is marked
// started: validation, resolution, detection, defaults and injection
// metadata.
func (c *Container) prepare() error {
	cfg := c.config

	c.logger.Debug("Validating configuration")
	if err := c.validateConfig(cfg); err != nil {
		return err
	}

	c.logger.Debug("Resolving customizations and aliases")
	c.resolver = newNameResolver(cfg.Aliases())
	descriptors := applyCustomizations(cfg.descriptors, cfg.StringsProperty(PropertyCustomization), c.resolver.overrides)

	c.infos = make(map[string]*componentInfo, len(descriptors))
	c.order = make([]string, 0, len(descriptors))
	for _, d := range descriptors {
		if err := c.addInfo(d); err != nil {
			return err
		}
	}

	if err := c.validateAliases(); err != nil {
		return err
	}

	c.logger.Debug("Detecting business services, plugins, periodic and broadcast methods")
	tables, err := c.planSockets()
	if err != nil {
		return err
	}
	if err := c.planDispatch(); err != nil {
		return err
	}

	c.logger.Debug("Installing default components")
	if err := c.installDefaults(); err != nil {
		return err
	}
	for _, name := range c.order {
		if _, ok := tables[name]; !ok && isBusinessService(c.infos[name].descriptor.Type) {
			tables[name] = newSocketTable(name)
		}
	}
	c.pendingSockets = tables

	c.computeSuggestions()

	c.logger.Debug("Building injection metadata")
	for _, name := range c.order {
		if err := c.buildDirectives(c.infos[name]); err != nil {
			return err
		}
	}

	return c.buildReferenceGraph()
}

func (c *Container) addInfo(d *Descriptor) error {
	ti, err := c.analyzeDescriptor(d)
	if err != nil {
		return err
	}

	c.infos[d.Name] = newComponentInfo(d, ti, declarationsOf(d.Type))
	c.order = append(c.order, d.Name)
	c.resolver.known[d.Name] = true
	return nil
}

// start runs the ordered startup steps that follow marking the container
// started.
func (c *Container) start(ctx context.Context) error {
	rcm, err := c.wellKnown(RequestContextManagerName, reflect.TypeFor[RequestContextManager]())
	if err != nil {
		return err
	}
	c.requestContexts = rcm.(RequestContextManager)

	vc, err := c.wellKnown(ViewCompilerName, reflect.TypeFor[ViewCompiler]())
	if err != nil {
		return err
	}
	c.viewCompiler = vc.(ViewCompiler)

	c.installSockets(c.pendingSockets)
	c.pendingSockets = nil

	if err := c.wireBroadcasts(); err != nil {
		return err
	}

	cs, err := c.wellKnown(ClusterServiceName, reflect.TypeFor[ClusterService]())
	if err != nil {
		return err
	}
	c.cluster = cs.(ClusterService)

	sm, err := c.wellKnown(SessionManagerName, reflect.TypeFor[SessionManager]())
	if err != nil {
		return err
	}
	c.sessions = sm.(SessionManager)

	boot, err := c.bootService()
	if err != nil {
		return err
	}
	c.logger.Debug("Running boot service startup")
	if err := boot.Startup(ctx); err != nil {
		return fmt.Errorf("boot service startup: %w", err)
	}

	c.logger.Debug("Initializing container interfaces")
	if err := c.initializeInterfaces(); err != nil {
		return err
	}

	tm, err := c.wellKnown(TaskManagerName, reflect.TypeFor[TaskManager]())
	if err != nil {
		return err
	}
	c.taskManager = tm.(TaskManager)
	if err := c.schedulePeriodic(); err != nil {
		return err
	}

	if err := c.installAttributeProviders(ctx); err != nil {
		return err
	}

	c.logger.Debug("Opening container interfaces")
	for _, ci := range c.interfaces {
		if err := ci.StartServicingRequests(ctx); err != nil {
			return fmt.Errorf("open interface %s: %w", ci.Context().Name(), err)
		}
	}

	c.startCommandLoop()
	return nil
}

// wellKnown resolves a well-known collaborator and checks its type.
func (c *Container) wellKnown(name string, want reflect.Type) (Component, error) {
	comp, err := c.GetComponent(name)
	if err != nil {
		return nil, err
	}

	if !reflect.TypeOf(comp).Implements(want) {
		return nil, ConfigurationError{Component: name, Cause: TypeMismatchError{
			Expected: want, Actual: reflect.TypeOf(comp), Context: "well-known component"}}
	}
	return comp, nil
}

func (c *Container) bootService() (BootService, error) {
	name := c.config.StringProperty(PropertyBoot)
	if name == "" {
		name = BootServiceName
	}

	comp, err := c.wellKnown(name, reflect.TypeFor[BootService]())
	if err != nil {
		return nil, err
	}
	return comp.(BootService), nil
}

func (c *Container) interfaceNames() []string {
	names := c.config.StringsProperty(PropertyInterfaces)
	if c.config.BoolProperty(PropertyCommandInterface) {
		names = append(names, CommandInterfaceName)
	}
	return names
}

func (c *Container) initializeInterfaces() error {
	for _, name := range c.interfaceNames() {
		if !c.IsComponent(name) {
			return ConfigurationError{Component: name, Cause: ErrInvalidInterface, Detail: "unknown component"}
		}

		comp, err := c.GetComponent(name)
		if err != nil {
			return err
		}

		ci, ok := comp.(ContainerInterface)
		if !ok {
			return ConfigurationError{Component: name, Cause: ErrInvalidInterface, Detail: typeString(reflect.TypeOf(comp))}
		}
		c.interfaces = append(c.interfaces, ci)
	}
	return nil
}

func (c *Container) installAttributeProviders(ctx context.Context) error {
	names := c.config.StringsProperty(PropertyAttributeProvider)
	if len(names) == 0 {
		names = []string{AttributeProviderName}
	}

	c.attributes = make(map[string]any)
	for _, name := range names {
		comp, err := c.wellKnown(name, reflect.TypeFor[AttributeProvider]())
		if err != nil {
			return err
		}

		attrs, err := comp.(AttributeProvider).ApplicationAttributes(ctx)
		if err != nil {
			return fmt.Errorf("attribute provider %q: %w", name, err)
		}
		for k, v := range attrs {
			c.attributes[k] = v
		}
	}
	return nil
}

// abortStartup releases what a failed startup created.
func (c *Container) abortStartup() {
	c.stopCommandLoop(true)
	c.closeInterfaces(context.Background())
	c.drainPeriodic()
	if err := c.terminateSingletons(); err != nil {
		c.recordTermination(err)
	}
	c.state.Store(stateShutdown)
}

// Shutdown stops the container. accessKey must equal AccessKey. Interfaces
// are closed, periodic tasks are cancelled and awaited, the boot service
// shuts down and singletons are terminated most recent first.
func (c *Container) Shutdown(accessKey string) error {
	if accessKey != c.accessKey {
		return LifecycleError{Operation: "shutdown", Cause: ErrInvalidAccessKey}
	}
	return c.shutdown(true)
}

// shutdown stops the container. waitLoop is false when called from the
// command loop.
func (c *Container) shutdown(waitLoop bool) error {
	switch c.state.Load() {
	case stateNew, stateStarting:
		return LifecycleError{Operation: "shutdown", Cause: ErrContainerNotStarted}
	}

	if !c.state.CompareAndSwap(stateStarted, stateStopping) {
		return LifecycleError{Operation: "shutdown", Cause: ErrContainerShutdown}
	}

	ctx := context.Background()
	c.logger.Info("Container shutdown started", zap.String("container", c.id))

	c.stopCommandLoop(waitLoop)
	c.closeInterfaces(ctx)

	c.logger.Debug("Cancelling periodic tasks", zap.Int("tasks", len(c.periodic)))
	c.drainPeriodic()

	if boot, err := c.bootService(); err != nil {
		c.logger.Warn("Boot service unavailable at shutdown", zap.Error(err))
	} else if err := boot.Shutdown(ctx); err != nil {
		c.logger.Warn("Boot service shutdown failed", zap.Error(err))
	}

	if err := c.terminateSingletons(); err != nil {
		c.recordTermination(err)
	}

	c.views.clear()
	c.analyzer.Clear()
	c.state.Store(stateShutdown)

	c.logger.Info("Container shutdown completed", zap.String("container", c.id))
	return nil
}

// closeInterfaces stops every open interface concurrently.
func (c *Container) closeInterfaces(ctx context.Context) {
	var g errgroup.Group
	for _, ci := range c.interfaces {
		if !ci.IsServicingRequests() {
			continue
		}

		g.Go(func() error {
			if err := ci.StopServicingRequests(ctx); err != nil {
				c.logger.Warn("Failed to close interface", zap.String("interface", ci.Context().Name()), zap.Error(err))
				return err
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		c.logger.Debug("Interfaces closed with errors", zap.Error(err))
	}
}

func (c *Container) recordTermination(err error) {
	c.logger.Warn("Singleton termination reported errors", zap.Error(err))
	c.lastShutdownMu.Lock()
	c.lastTermination = err
	c.lastShutdownMu.Unlock()
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
