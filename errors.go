package unify

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/junioryono/unify/internal/graph"
)

// ========================================
// Core Error Values (Sentinel Errors)
// ========================================
// These are base errors wrapped in typed errors when returned.
// Match them with errors.Is.

var (
	// Request-time errors.
	ErrUnknownComponent           = errors.New("unknown component")
	ErrAltSettingsOnSingleton     = errors.New("alternate settings are not allowed for singleton components")
	ErrAltSettingsUnknownProperty = errors.New("alternate setting property is not declared")
	ErrMultipleImplementations    = errors.New("multiple implementations found")
	ErrTypeMismatch               = errors.New("component type mismatch")
	ErrNotViewComponent           = errors.New("component is not a transient view component")

	// Configuration errors.
	ErrComponentConflict      = errors.New("conflicting component registration")
	ErrNotConfigurable        = errors.New("property is not configurable")
	ErrNotComponentType       = errors.New("type does not implement unify.Component")
	ErrUnknownCapability      = errors.New("unknown capability")
	ErrInvalidPeriodicMethod  = errors.New("invalid periodic method")
	ErrInvalidBroadcastMethod = errors.New("invalid broadcast method")
	ErrInvalidPluginSocket    = errors.New("invalid plugin socket")
	ErrInvalidInterface       = errors.New("component is not a container interface")
	ErrNodeIDRequired         = errors.New("node id is required in cluster mode")
	ErrCyclicInitialization   = errors.New("cyclic component initialization")

	// Lifecycle errors.
	ErrContainerAlreadyInitialized = errors.New("container is already initialized")
	ErrContainerNotStarted         = errors.New("container is not started")
	ErrContainerShutdown           = errors.New("container has been shut down")
	ErrInvalidAccessKey            = errors.New("invalid container access key")
)

var (
	_ error = ComponentError{}
	_ error = ConflictError{}
	_ error = ConfigurationError{}
	_ error = InstantiationError{}
	_ error = InjectionError{}
	_ error = LifecycleError{}
	_ error = CyclicInitializationError{}
	_ error = MultipleImplementationsError{}
	_ error = TypeMismatchError{}
	_ error = ModuleError{}
	_ error = LifetimeError{}
	_ error = TerminationError{}
	_ error = RegistrationError{}
)

// ========================================
// Typed Errors for Rich Context
// ========================================

// LifetimeError indicates an invalid lifetime value.
type LifetimeError struct {
	Value any
}

func (e LifetimeError) Error() string {
	return fmt.Sprintf("invalid component lifetime: %v", e.Value)
}

// ComponentError is a request-time failure attributed to a component name.
type ComponentError struct {
	Name  string
	Cause error
}

func (e ComponentError) Error() string {
	return fmt.Sprintf("component %q: %v", e.Name, e.Cause)
}

func (e ComponentError) Unwrap() error {
	return e.Cause
}

// ConflictError reports two descriptors registered under the same name.
type ConflictError struct {
	Name     string
	Existing reflect.Type
	Incoming reflect.Type
}

func (e ConflictError) Error() string {
	return fmt.Sprintf("component %q registered twice: %s and %s (use unify.Overwrite or a customization suffix)",
		e.Name, typeString(e.Existing), typeString(e.Incoming))
}

func (e ConflictError) Unwrap() error {
	return ErrComponentConflict
}

// ConfigurationError is a fatal startup error.
type ConfigurationError struct {
	Component string
	Member    string // property or method, optional
	Detail    string
	Cause     error
}

func (e ConfigurationError) Error() string {
	var b strings.Builder
	b.WriteString("configuration error")
	if e.Component != "" {
		b.WriteString(fmt.Sprintf(" in component %q", e.Component))
	}
	if e.Member != "" {
		b.WriteString(fmt.Sprintf(" (%s)", e.Member))
	}
	b.WriteString(": ")
	b.WriteString(e.Cause.Error())
	if e.Detail != "" {
		b.WriteString(": ")
		b.WriteString(e.Detail)
	}
	return b.String()
}

func (e ConfigurationError) Unwrap() error {
	return e.Cause
}

// InstantiationError wraps a construction, injection or initialization failure.
type InstantiationError struct {
	Name  string
	Type  reflect.Type
	Cause error
}

func (e InstantiationError) Error() string {
	return fmt.Sprintf("failed to instantiate component %q (%s): %v", e.Name, formatType(e.Type), e.Cause)
}

func (e InstantiationError) Unwrap() error {
	return e.Cause
}

// InjectionError reports a property that could not be injected.
type InjectionError struct {
	Component string
	Property  string
	Cause     error
}

func (e InjectionError) Error() string {
	return fmt.Sprintf("inject %s.%s: %v", e.Component, e.Property, e.Cause)
}

func (e InjectionError) Unwrap() error {
	return e.Cause
}

// LifecycleError is returned by Startup, Shutdown and other lifecycle operations.
type LifecycleError struct {
	Operation string
	Cause     error
}

func (e LifecycleError) Error() string {
	return fmt.Sprintf("%s: %v", e.Operation, e.Cause)
}

func (e LifecycleError) Unwrap() error {
	return e.Cause
}

// CyclicInitializationError reports a transient component requested while
// it is already being initialized further up the same resolution chain.
type CyclicInitializationError struct {
	Name  string
	Trail []string
}

func (e CyclicInitializationError) Error() string {
	return fmt.Sprintf("cyclic initialization of %q: %s -> %s", e.Name, strings.Join(e.Trail, " -> "), e.Name)
}

func (e CyclicInitializationError) Unwrap() error {
	return ErrCyclicInitialization
}

// MultipleImplementationsError reports an ambiguous capability lookup.
type MultipleImplementationsError struct {
	Type  reflect.Type
	Names []string
}

func (e MultipleImplementationsError) Error() string {
	return fmt.Sprintf("multiple implementations of %s found: [%s] (mark one unify.Preferred)",
		formatType(e.Type), strings.Join(e.Names, ", "))
}

func (e MultipleImplementationsError) Unwrap() error {
	return ErrMultipleImplementations
}

// TypeMismatchError indicates a component does not satisfy the requested type.
type TypeMismatchError struct {
	Expected reflect.Type
	Actual   reflect.Type
	Context  string
}

func (e TypeMismatchError) Error() string {
	return fmt.Sprintf("%s: expected %s, got %s", e.Context, formatType(e.Expected), formatType(e.Actual))
}

func (e TypeMismatchError) Unwrap() error {
	return ErrTypeMismatch
}

// ModuleError wraps errors from module registration.
type ModuleError struct {
	Module string
	Cause  error
}

func (e ModuleError) Error() string {
	return fmt.Sprintf("module %q: %v", e.Module, e.Cause)
}

func (e ModuleError) Unwrap() error {
	return e.Cause
}

// TerminationError aggregates OnTerminate failures collected during shutdown.
// Shutdown logs it and reports it through Info; it is never returned.
type TerminationError struct {
	Errors []error
}

func (e TerminationError) Error() string {
	if len(e.Errors) == 1 {
		return fmt.Sprintf("termination failed: %v", e.Errors[0])
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("termination failed with %d errors:", len(e.Errors)))
	for i, err := range e.Errors {
		sb.WriteString(fmt.Sprintf("\n  %d. %v", i+1, err))
	}
	return sb.String()
}

func (e TerminationError) Unwrap() []error {
	return e.Errors
}

// CircularReferenceError reports a reference cycle between transient components.
type CircularReferenceError = graph.CircularDependencyError

// IsUnknownComponent reports whether err is caused by an unknown component name.
func IsUnknownComponent(err error) bool {
	return errors.Is(err, ErrUnknownComponent)
}

// IsConfigurationError reports whether err is a fatal configuration error.
func IsConfigurationError(err error) bool {
	var cfgErr ConfigurationError
	var conflict ConflictError
	return errors.As(err, &cfgErr) || errors.As(err, &conflict)
}

// IsLifecycleError reports whether err came from a lifecycle operation.
func IsLifecycleError(err error) bool {
	var lcErr LifecycleError
	return errors.As(err, &lcErr)
}

func typeString(t reflect.Type) string {
	if t == nil {
		return "<nil>"
	}
	return t.String()
}

// formatType formats a reflect.Type for error messages.
func formatType(t reflect.Type) string {
	if t == nil {
		return "<nil>"
	}

	switch t.Kind() {
	case reflect.Pointer:
		elem := t.Elem()
		if elem.PkgPath() != "" && elem.Name() != "" {
			return "*" + elem.Name()
		}
		return t.String()
	case reflect.Slice:
		elem := t.Elem()
		if elem.PkgPath() != "" && elem.Name() != "" {
			return "[]" + elem.Name()
		}
		return t.String()
	default:
		if t.Name() != "" {
			return t.Name()
		}
		return t.String()
	}
}
