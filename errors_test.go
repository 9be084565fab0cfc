package unify

import (
	"errors"
	"fmt"
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"
)

type errorsTestService struct {
	Base
}

func TestErrorMessages(t *testing.T) {
	svcType := reflect.TypeFor[errorsTestService]()

	tests := []struct {
		name string
		err  error
		want string
	}{
		{
			name: "component",
			err:  ComponentError{Name: "cache", Cause: ErrUnknownComponent},
			want: `component "cache": unknown component`,
		},
		{
			name: "conflict",
			err:  ConflictError{Name: "cache", Existing: svcType, Incoming: reflect.TypeFor[Base]()},
			want: `component "cache" registered twice: unify.errorsTestService and unify.Base (use unify.Overwrite or a customization suffix)`,
		},
		{
			name: "configuration with member and detail",
			err:  ConfigurationError{Component: "cache", Member: "size", Cause: ErrNotConfigurable, Detail: "no such field"},
			want: `configuration error in component "cache" (size): property is not configurable: no such field`,
		},
		{
			name: "configuration without component",
			err:  ConfigurationError{Cause: ErrNodeIDRequired},
			want: `configuration error: node id is required in cluster mode`,
		},
		{
			name: "instantiation",
			err:  InstantiationError{Name: "cache", Type: reflect.PointerTo(svcType), Cause: errors.New("boom")},
			want: `failed to instantiate component "cache" (*errorsTestService): boom`,
		},
		{
			name: "injection",
			err:  InjectionError{Component: "cache", Property: "size", Cause: errors.New("bad")},
			want: `inject cache.size: bad`,
		},
		{
			name: "lifecycle",
			err:  LifecycleError{Operation: "shutdown", Cause: ErrInvalidAccessKey},
			want: `shutdown: invalid container access key`,
		},
		{
			name: "cyclic initialization",
			err:  CyclicInitializationError{Name: "a", Trail: []string{"a", "b"}},
			want: `cyclic initialization of "a": a -> b -> a`,
		},
		{
			name: "multiple implementations",
			err:  MultipleImplementationsError{Type: reflect.TypeFor[Component](), Names: []string{"x", "y"}},
			want: `multiple implementations of Component found: [x, y] (mark one unify.Preferred)`,
		},
		{
			name: "type mismatch",
			err:  TypeMismatchError{Expected: reflect.TypeFor[[]string](), Actual: reflect.TypeFor[int](), Context: "resolve"},
			want: `resolve: expected []string, got int`,
		},
		{
			name: "module",
			err:  ModuleError{Module: "storage", Cause: errors.New("nope")},
			want: `module "storage": nope`,
		},
		{
			name: "single termination failure",
			err:  TerminationError{Errors: []error{errors.New("one")}},
			want: `termination failed: one`,
		},
		{
			name: "several termination failures",
			err:  TerminationError{Errors: []error{errors.New("one"), errors.New("two")}},
			want: "termination failed with 2 errors:\n  1. one\n  2. two",
		},
		{
			name: "lifetime",
			err:  LifetimeError{Value: Lifetime(9)},
			want: `invalid component lifetime: ` + Lifetime(9).String(),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.err.Error())
		})
	}
}

func TestErrorMatching(t *testing.T) {
	wrapped := LifecycleError{Operation: "startup", Cause: ConfigurationError{
		Component: "cache",
		Cause:     MultipleImplementationsError{Names: []string{"a", "b"}},
	}}

	tests := []struct {
		name          string
		err           error
		target        error
		configuration bool
		lifecycle     bool
	}{
		{"nested ambiguity", wrapped, ErrMultipleImplementations, true, true},
		{"conflict", ConflictError{Name: "x"}, ErrComponentConflict, true, false},
		{"cycle", CyclicInitializationError{Name: "x"}, ErrCyclicInitialization, false, false},
		{"type mismatch", fmt.Errorf("resolve: %w", TypeMismatchError{}), ErrTypeMismatch, false, false},
		{"termination", TerminationError{Errors: []error{errIntentional, ErrInvalidAccessKey}}, ErrInvalidAccessKey, false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.ErrorIs(t, tt.err, tt.target)
			assert.Equal(t, tt.configuration, IsConfigurationError(tt.err))
			assert.Equal(t, tt.lifecycle, IsLifecycleError(tt.err))
		})
	}

	assert.True(t, IsUnknownComponent(ComponentError{Name: "x", Cause: ErrUnknownComponent}))
	assert.False(t, IsUnknownComponent(nil))
}

var errIntentional = errors.New("intentional")
