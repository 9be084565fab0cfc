package unify

import (
	"fmt"
	"reflect"
)

// Resolve returns the unique component implementing T, or the single
// preferred one among several.
func Resolve[T any](c *Container) (T, error) {
	var zero T

	instance, err := c.GetComponentByType(reflect.TypeFor[T]())
	if err != nil {
		return zero, err
	}

	result, ok := instance.(T)
	if !ok {
		return zero, TypeMismatchError{Expected: reflect.TypeFor[T](), Actual: reflect.TypeOf(instance), Context: "resolve"}
	}

	return result, nil
}

// ResolveNamed returns the component registered under name as T.
func ResolveNamed[T any](c *Container, name string) (T, error) {
	var zero T

	instance, err := c.GetComponent(name)
	if err != nil {
		return zero, err
	}

	result, ok := instance.(T)
	if !ok {
		return zero, TypeMismatchError{Expected: reflect.TypeFor[T](), Actual: reflect.TypeOf(instance), Context: fmt.Sprintf("component %q", name)}
	}

	return result, nil
}

// ResolveAll returns every component implementing T, in registration order.
func ResolveAll[T any](c *Container) ([]T, error) {
	names := c.ComponentNames(reflect.TypeFor[T]())
	results := make([]T, 0, len(names))
	for _, name := range names {
		result, err := ResolveNamed[T](c, name)
		if err != nil {
			return nil, err
		}
		results = append(results, result)
	}
	return results, nil
}

// MustResolve resolves a component and panics on error.
func MustResolve[T any](c *Container) T {
	result, err := Resolve[T](c)
	if err != nil {
		panic(fmt.Sprintf("failed to resolve %T: %v", *new(T), err))
	}
	return result
}

// MustResolveNamed resolves a named component and panics on error.
func MustResolveNamed[T any](c *Container, name string) T {
	result, err := ResolveNamed[T](c, name)
	if err != nil {
		panic(fmt.Sprintf("failed to resolve %q as %T: %v", name, *new(T), err))
	}
	return result
}
