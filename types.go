package unify

import (
	"fmt"
	"reflect"
	"sync"
)

// TypeRegistry maps type names to component and capability types. Config
// files name component types through it, and $c{name} setting tokens
// resolve capabilities through it.
type TypeRegistry struct {
	mu     sync.RWMutex
	byName map[string]reflect.Type
	names  map[reflect.Type]string
}

// NewTypeRegistry creates an empty registry.
func NewTypeRegistry() *TypeRegistry {
	return &TypeRegistry{
		byName: make(map[string]reflect.Type),
		names:  make(map[reflect.Type]string),
	}
}

// Register adds a type under name. sample is a pointer to a component
// struct, (*Capability)(nil) for an interface capability, or a reflect.Type.
func (r *TypeRegistry) Register(name string, sample any) error {
	if sample == nil {
		return fmt.Errorf("type %q: sample cannot be nil", name)
	}

	t, ok := sample.(reflect.Type)
	if !ok {
		t = reflect.TypeOf(sample)
	}

	return r.register(name, t)
}

// RegisterType adds T under name. T is a pointer to a component struct or
// an interface type embedding Component.
func RegisterType[T any](r *TypeRegistry, name string) error {
	return r.register(name, reflect.TypeFor[T]())
}

func (r *TypeRegistry) register(name string, t reflect.Type) error {
	if t.Kind() == reflect.Pointer && t.Elem().Kind() == reflect.Interface {
		t = t.Elem()
	}
	if t.Kind() == reflect.Pointer {
		t = t.Elem()
	}

	switch t.Kind() {
	case reflect.Interface:
		if !t.Implements(componentType) {
			return ConfigurationError{Component: name, Cause: ErrNotComponentType, Detail: typeString(t)}
		}
	case reflect.Struct:
		if !reflect.PointerTo(t).Implements(componentType) {
			return ConfigurationError{Component: name, Cause: ErrNotComponentType, Detail: typeString(t)}
		}
	default:
		return ConfigurationError{Component: name, Cause: ErrNotComponentType, Detail: typeString(t)}
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if existing, ok := r.byName[name]; ok && existing != t {
		return fmt.Errorf("type name %q already registered for %s", name, typeString(existing))
	}

	r.byName[name] = t
	if _, ok := r.names[t]; !ok {
		r.names[t] = name
	}
	return nil
}

// Lookup returns the type registered under name. Struct types are returned
// as the struct, not the pointer.
func (r *TypeRegistry) Lookup(name string) (reflect.Type, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.byName[name]
	return t, ok
}

// NameOf returns the first name registered for t.
func (r *TypeRegistry) NameOf(t reflect.Type) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	name, ok := r.names[t]
	return name, ok
}

// Len returns the number of registered names.
func (r *TypeRegistry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byName)
}

// capabilityOf returns the interface or pointer type matched by a $c{} token.
func capabilityOf(t reflect.Type) reflect.Type {
	if t.Kind() == reflect.Struct {
		return reflect.PointerTo(t)
	}
	return t
}
