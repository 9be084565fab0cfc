package unify

import (
	"context"
	"fmt"
	"math/rand/v2"
	"reflect"
	"time"

	"github.com/junioryono/unify/internal/introspect"
	"go.uber.org/zap"
)

var taskMonitorType = reflect.TypeOf((*TaskMonitor)(nil)).Elem()

// periodicRegistration is a periodic method scheduled at startup.
type periodicRegistration struct {
	component   string
	method      string
	schedule    PeriodicType
	clusterOnly bool
	monitor     TaskMonitor
}

// broadcastRegistration is a method invokable by cluster command.
type broadcastRegistration struct {
	command     string
	component   string
	method      string
	withContext bool
	withParams  bool

	// index is the method index on the component pointer type.
	index int
}

// broadcastShapes lists the accepted broadcast method signatures.
var broadcastShapes = []struct {
	in          []reflect.Type
	withContext bool
	withParams  bool
}{
	{in: nil},
	{in: []reflect.Type{stringsType}, withParams: true},
	{in: []reflect.Type{contextType}, withContext: true},
	{in: []reflect.Type{contextType, stringsType}, withContext: true, withParams: true},
}

// planDispatch validates every periodic and broadcast declaration and
// records the registrations.
func (c *Container) planDispatch() error {
	c.periodic = nil
	c.periodicIndex = make(map[string]*periodicRegistration)
	c.broadcasts = make(map[string]*broadcastRegistration)

	for _, name := range c.order {
		if err := c.planDispatchFor(name); err != nil {
			return err
		}
	}
	return nil
}

func (c *Container) planDispatchFor(name string) error {
	info := c.infos[name]

	for _, decl := range info.declarations.PeriodicMethods() {
		if err := checkPeriodicMethod(info, decl); err != nil {
			return ConfigurationError{Component: name, Member: decl.Method, Cause: ErrInvalidPeriodicMethod, Detail: err.Error()}
		}

		reg := &periodicRegistration{
			component:   name,
			method:      decl.Method,
			schedule:    decl.Schedule,
			clusterOnly: decl.ClusterOnly,
		}
		c.periodic = append(c.periodic, reg)
		c.periodicIndex[CommandName(name, decl.Method)] = reg
	}

	for _, method := range info.declarations.BroadcastMethods() {
		if !info.descriptor.IsSingleton() {
			return ConfigurationError{Component: name, Member: method, Cause: ErrInvalidBroadcastMethod, Detail: "owner must be a singleton"}
		}
		reg, err := broadcastRegistrationOf(info.descriptor.Type, name, method)
		if err != nil {
			return ConfigurationError{Component: name, Member: method, Cause: ErrInvalidBroadcastMethod, Detail: err.Error()}
		}
		c.broadcasts[reg.command] = reg
	}

	return nil
}

// wireBroadcasts binds every broadcast registration to its method handle.
func (c *Container) wireBroadcasts() error {
	for _, command := range sortedKeys(c.broadcasts) {
		reg := c.broadcasts[command]
		m, ok := introspect.Method(c.infos[reg.component].descriptor.Type, reg.method)
		if !ok {
			return ConfigurationError{Component: reg.component, Member: reg.method, Cause: ErrInvalidBroadcastMethod, Detail: "method not found"}
		}
		reg.index = m.Index

		c.logger.Debug("Wired broadcast method", zap.String("command", command))
	}
	return nil
}

func checkPeriodicMethod(info *componentInfo, decl PeriodicDeclaration) error {
	if !info.descriptor.IsSingleton() {
		return fmt.Errorf("owner must be a singleton")
	}

	if !decl.Schedule.IsValid() {
		return fmt.Errorf("invalid schedule %d", int(decl.Schedule))
	}

	m, ok := introspect.Method(info.descriptor.Type, decl.Method)
	if !ok {
		return fmt.Errorf("method not found")
	}

	if !introspect.ReturnsNothing(m) {
		return fmt.Errorf("method must not return values")
	}

	if !introspect.InputsMatch(m, []reflect.Type{taskMonitorType}) {
		return fmt.Errorf("method must take exactly one unify.TaskMonitor")
	}

	return nil
}

func broadcastRegistrationOf(t reflect.Type, component, method string) (*broadcastRegistration, error) {
	m, ok := introspect.Method(t, method)
	if !ok {
		return nil, fmt.Errorf("method not found")
	}

	if !introspect.ReturnsNothing(m) {
		return nil, fmt.Errorf("method must not return values")
	}

	for _, shape := range broadcastShapes {
		if introspect.InputsMatch(m, shape.in) {
			return &broadcastRegistration{
				command:     CommandName(component, method),
				component:   component,
				method:      method,
				withContext: shape.withContext,
				withParams:  shape.withParams,
			}, nil
		}
	}

	return nil, fmt.Errorf("method must take (), ([]string), (context.Context) or (context.Context, []string)")
}

// schedulePeriodic hands every periodic registration to the task manager
// with a randomized initial delay.
func (c *Container) schedulePeriodic() error {
	for _, reg := range c.periodic {
		delay := periodicBaseDelay
		if c.opts.periodicJitter > 0 {
			delay += rand.N(c.opts.periodicJitter)
		}

		monitor, err := c.taskManager.SchedulePeriodicExecution(reg.schedule, reg.component, reg.method, delay)
		if err != nil {
			return fmt.Errorf("schedule %s: %w", CommandName(reg.component, reg.method), err)
		}
		reg.monitor = monitor

		c.logger.Debug("Scheduled periodic method",
			zap.String("component", reg.component),
			zap.String("method", reg.method),
			zap.Stringer("schedule", reg.schedule),
			zap.Duration("initialDelay", delay))
	}
	return nil
}

// drainPeriodic cancels every task monitor and blocks until none reports
// running.
func (c *Container) drainPeriodic() {
	for _, reg := range c.periodic {
		if reg.monitor != nil {
			reg.monitor.Cancel()
		}
	}

	for {
		running := 0
		for _, reg := range c.periodic {
			if reg.monitor != nil && reg.monitor.IsRunning() {
				running++
			}
		}

		if running == 0 {
			return
		}

		c.logger.Debug("Waiting for periodic tasks", zap.Int("running", running))
		time.Sleep(c.opts.drainPollInterval)
	}
}

// InvokePeriodic runs a registered periodic method. Task managers call it
// on every tick. Cluster-only methods run only on the node holding the
// cluster master lock.
func (c *Container) InvokePeriodic(ctx context.Context, monitor TaskMonitor, component, method string) (err error) {
	command := CommandName(component, method)
	reg, ok := c.periodicIndex[command]
	if !ok {
		return fmt.Errorf("%w: no periodic method %s", ErrUnknownComponent, command)
	}

	if c.state.Load() != stateStarted || monitor.IsCanceled() {
		return nil
	}

	if reg.clusterOnly && c.config.ClusterMode() {
		master, err := c.cluster.GrabMasterLock(ctx)
		if err != nil {
			return err
		}
		if !master {
			return nil
		}
	}

	comp, err := c.GetComponent(component)
	if err != nil {
		return err
	}

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("periodic method %s panicked: %v", command, r)
		}
		c.metrics.periodicRuns.WithLabelValues(command, result(err)).Inc()
	}()

	reflect.ValueOf(comp).MethodByName(method).Call([]reflect.Value{reflect.ValueOf(&monitor).Elem()})
	return nil
}

// applyBroadcast invokes the broadcast method matching cmd with its exact
// parameters. Broadcasts issued while it runs are not sent.
func (c *Container) applyBroadcast(ctx context.Context, cmd ClusterCommand) (err error) {
	reg, ok := c.broadcasts[cmd.Command]
	if !ok {
		return fmt.Errorf("%w: no broadcast method %s", ErrUnknownComponent, cmd.Command)
	}

	comp, err := c.GetComponent(reg.component)
	if err != nil {
		return err
	}

	ctx = WithBroadcastSuppressed(ctx)
	cc := comp.Context()
	cc.applying.Add(1)
	defer cc.applying.Add(-1)

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("broadcast method %s panicked: %v", reg.command, r)
		}
		c.metrics.broadcasts.WithLabelValues(reg.command, result(err)).Inc()
	}()

	var args []reflect.Value
	if reg.withContext {
		args = append(args, reflect.ValueOf(&ctx).Elem())
	}
	if reg.withParams {
		args = append(args, reflect.ValueOf(cmd.Params))
	}

	reflect.ValueOf(comp).Method(reg.index).Call(args)
	return nil
}
