package unify

import (
	"fmt"
	"reflect"
	"sort"
	"strings"
)

// Setting is the configured value of a component property.
type Setting struct {
	Values []string `json:"values" yaml:"values"`

	// Hidden masks the value in diagnostics.
	Hidden bool `json:"hidden,omitempty" yaml:"hidden"`

	// AutoInject lets an unset component property be wired to the unique
	// implementation of its capability.
	AutoInject bool `json:"autoInject,omitempty" yaml:"autoInject"`
}

// Value creates a visible setting.
func Value(values ...string) Setting {
	return Setting{Values: values}
}

// HiddenValue creates a setting masked in diagnostics.
func HiddenValue(values ...string) Setting {
	return Setting{Values: values, Hidden: true}
}

// IsEmpty reports whether the setting carries no values.
func (s Setting) IsEmpty() bool {
	return len(s.Values) == 0
}

// Settings maps property names to settings.
type Settings map[string]Setting

// Clone returns a deep copy.
func (s Settings) Clone() Settings {
	if s == nil {
		return nil
	}

	out := make(Settings, len(s))
	for k, v := range s {
		v.Values = append([]string(nil), v.Values...)
		out[k] = v
	}
	return out
}

// Names returns the property names in sorted order.
func (s Settings) Names() []string {
	names := make([]string, 0, len(s))
	for k := range s {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

// Descriptor is the registration record of a component.
type Descriptor struct {
	// Name is unique among the components of a container.
	Name string

	// Type is the component struct type; instances are pointers to it.
	Type reflect.Type

	Description string
	Lifetime    Lifetime

	// Preferred selects this component when several implement a requested capability.
	Preferred bool

	Settings Settings
}

// IsSingleton reports whether the component has a single shared instance.
func (d *Descriptor) IsSingleton() bool {
	return d.Lifetime == Singleton
}

// TypeName returns the qualified type name, e.g. "app.Cache".
func (d *Descriptor) TypeName() string {
	return typeString(d.Type)
}

// Validate checks the descriptor for structural errors.
func (d *Descriptor) Validate() error {
	if strings.TrimSpace(d.Name) == "" {
		return fmt.Errorf("component name cannot be blank")
	}

	if d.Type == nil {
		return fmt.Errorf("component %q: type cannot be nil", d.Name)
	}

	if d.Type.Kind() != reflect.Struct || !reflect.PointerTo(d.Type).Implements(componentType) {
		return ConfigurationError{Component: d.Name, Cause: ErrNotComponentType, Detail: typeString(d.Type)}
	}

	if !d.Lifetime.IsValid() {
		return LifetimeError{Value: d.Lifetime}
	}

	return nil
}

func (d *Descriptor) clone() *Descriptor {
	out := *d
	out.Settings = d.Settings.Clone()
	return &out
}

// componentTypeOf returns the struct type behind a component sample.
func componentTypeOf(sample any) (reflect.Type, error) {
	if sample == nil {
		return nil, fmt.Errorf("component sample cannot be nil")
	}

	t, ok := sample.(reflect.Type)
	if !ok {
		t = reflect.TypeOf(sample)
	}

	if t.Kind() == reflect.Pointer {
		t = t.Elem()
	}

	if t.Kind() != reflect.Struct || !reflect.PointerTo(t).Implements(componentType) {
		return nil, ConfigurationError{Cause: ErrNotComponentType, Detail: typeString(t)}
	}

	return t, nil
}

// A ComponentOption modifies a component registration.
type ComponentOption interface {
	applyComponentOption(*componentOptions)
}

type componentOptions struct {
	descriptor *Descriptor
	overwrite  bool
}

type componentOptionFunc func(*componentOptions)

func (f componentOptionFunc) applyComponentOption(o *componentOptions) { f(o) }

// Description sets the human readable description.
func Description(text string) ComponentOption {
	return componentOptionFunc(func(o *componentOptions) {
		o.descriptor.Description = text
	})
}

// WithLifetime sets the component lifetime. Components are singletons by default.
func WithLifetime(l Lifetime) ComponentOption {
	return componentOptionFunc(func(o *componentOptions) {
		o.descriptor.Lifetime = l
	})
}

// AsTransient registers the component with the Transient lifetime.
func AsTransient() ComponentOption {
	return WithLifetime(Transient)
}

// Preferred marks the component as the preferred implementation of its capabilities.
func Preferred() ComponentOption {
	return componentOptionFunc(func(o *componentOptions) {
		o.descriptor.Preferred = true
	})
}

// WithSetting configures a property value.
func WithSetting(property string, values ...string) ComponentOption {
	return WithSettingValue(property, Value(values...))
}

// WithHiddenSetting configures a property value masked in diagnostics.
func WithHiddenSetting(property string, values ...string) ComponentOption {
	return WithSettingValue(property, HiddenValue(values...))
}

// WithSettingValue configures a property with a full Setting.
func WithSettingValue(property string, s Setting) ComponentOption {
	return componentOptionFunc(func(o *componentOptions) {
		if o.descriptor.Settings == nil {
			o.descriptor.Settings = make(Settings)
		}
		o.descriptor.Settings[property] = s
	})
}

// Overwrite replaces an existing registration of the same name instead of
// recording a conflict.
func Overwrite() ComponentOption {
	return componentOptionFunc(func(o *componentOptions) {
		o.overwrite = true
	})
}
