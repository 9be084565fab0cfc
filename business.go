package unify

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

// BusinessService is a component whose methods are plugin sockets.
// Embed BusinessBase to implement it.
type BusinessService interface {
	Component

	installSockets(t *socketTable)
}

// BusinessLogicUnit is implemented by plugins.
type BusinessLogicUnit interface {
	Component

	Execute(ctx context.Context, in *LogicInput, out *LogicOutput) error
}

// LogicInput describes the socket call a plugin is attached to.
type LogicInput struct {
	Component string
	Method    string
	Params    []any
}

// Param returns the i-th socket parameter, or nil when out of range.
func (in *LogicInput) Param(i int) any {
	if i < 0 || i >= len(in.Params) {
		return nil
	}
	return in.Params[i]
}

// LogicOutput collects the results of a socket call. It is shared by the
// plugins and the logic of one call.
type LogicOutput struct {
	mu     sync.RWMutex
	values map[string]any
}

// NewLogicOutput creates an empty output.
func NewLogicOutput() *LogicOutput {
	return &LogicOutput{values: make(map[string]any)}
}

// Set stores a result value.
func (o *LogicOutput) Set(key string, value any) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.values == nil {
		o.values = make(map[string]any)
	}
	o.values[key] = value
}

// Get returns a result value.
func (o *LogicOutput) Get(key string) (any, bool) {
	o.mu.RLock()
	defer o.mu.RUnlock()
	v, ok := o.values[key]
	return v, ok
}

// Append adds value to the list stored under key.
func (o *LogicOutput) Append(key string, value any) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.values == nil {
		o.values = make(map[string]any)
	}
	list, _ := o.values[key].([]any)
	o.values[key] = append(list, value)
}

// Keys returns the result keys in sorted order.
func (o *LogicOutput) Keys() []string {
	o.mu.RLock()
	defer o.mu.RUnlock()
	keys := make([]string, 0, len(o.values))
	for k := range o.values {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// BusinessBase implements BusinessService.
//
//	type OrderService struct {
//	    unify.BusinessBase
//	}
//
//	func (s *OrderService) PlaceOrder(ctx context.Context, id string) error {
//	    _, err := s.Socket(ctx, "PlaceOrder", func(ctx context.Context, out *unify.LogicOutput) error {
//	        out.Set("placed", id)
//	        return nil
//	    }, id)
//	    return err
//	}
type BusinessBase struct {
	Base

	sockets *socketTable
}

func (b *BusinessBase) installSockets(t *socketTable) {
	b.sockets = t
}

// Socket runs the pre-logic plugins attached to method, then logic, then
// the post-logic plugins, in registration order. The first error stops
// the call.
func (b *BusinessBase) Socket(ctx context.Context, method string, logic func(ctx context.Context, out *LogicOutput) error, params ...any) (*LogicOutput, error) {
	out := NewLogicOutput()
	in := &LogicInput{Component: b.ComponentName(), Method: method, Params: params}

	pre, post := b.sockets.plugins(method)
	if err := b.runPlugins(ctx, pre, in, out); err != nil {
		return out, err
	}

	if logic != nil {
		if err := logic(ctx, out); err != nil {
			return out, err
		}
	}

	if err := b.runPlugins(ctx, post, in, out); err != nil {
		return out, err
	}

	return out, nil
}

func (b *BusinessBase) runPlugins(ctx context.Context, names []string, in *LogicInput, out *LogicOutput) error {
	if len(names) == 0 {
		return nil
	}

	cc := b.Context()
	if cc == nil {
		return fmt.Errorf("business service %s.%s is not bound to a container", in.Component, in.Method)
	}

	for _, name := range names {
		comp, err := cc.GetComponent(name)
		if err != nil {
			return err
		}

		unit, ok := comp.(BusinessLogicUnit)
		if !ok {
			return ComponentError{Name: name, Cause: ErrInvalidPluginSocket}
		}

		if err := unit.Execute(ctx, in, out); err != nil {
			return fmt.Errorf("plugin %q on %s.%s: %w", name, in.Component, in.Method, err)
		}
	}

	return nil
}
