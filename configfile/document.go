// Package configfile loads container configurations from YAML and HCL
// files. Component types are named through a unify.TypeRegistry.
package configfile

import (
	"fmt"
	"reflect"
	"slices"

	"github.com/junioryono/unify"
)

// Document is the file form of a container configuration.
type Document struct {
	NodeID            string            `yaml:"nodeId" validate:"required_if=ClusterMode true"`
	DeploymentVersion string            `yaml:"deploymentVersion"`
	ClusterMode       bool              `yaml:"clusterMode"`
	ProductionMode    bool              `yaml:"productionMode"`
	Properties        map[string]any    `yaml:"properties" validate:"dive,keys,required,endkeys"`
	Aliases           map[string]string `yaml:"aliases" validate:"dive,keys,required,endkeys,required"`
	Components        []Component       `yaml:"components" validate:"dive"`
}

// Component is one component registration.
type Component struct {
	Name        string            `yaml:"name" validate:"required"`
	Type        string            `yaml:"type" validate:"required"`
	Description string            `yaml:"description"`
	Lifetime    string            `yaml:"lifetime" validate:"omitempty,oneof=singleton transient prototype"`
	Preferred   bool              `yaml:"preferred"`
	Overwrite   bool              `yaml:"overwrite"`
	Settings    map[string]Values `yaml:"settings" validate:"dive,keys,required,endkeys,required"`
	Hidden      []string          `yaml:"hidden" validate:"dive,required"`
}

// Values holds the values of one setting. Files may give a scalar or a list.
type Values []string

// Config builds the configuration described by d.
func (d *Document) Config(types *unify.TypeRegistry) (*unify.Config, error) {
	b := unify.NewConfigBuilder()
	if err := d.Apply(b, types); err != nil {
		return nil, err
	}
	return b.Build(), nil
}

// Apply adds the document to b. Components that appear in b already are
// recorded as conflicts unless marked overwrite.
func (d *Document) Apply(b *unify.ConfigBuilder, types *unify.TypeRegistry) error {
	if types == nil {
		return fmt.Errorf("configfile: type registry is required")
	}

	if d.NodeID != "" {
		b.NodeID(d.NodeID)
	}
	if d.DeploymentVersion != "" {
		b.DeploymentVersion(d.DeploymentVersion)
	}
	b.ClusterMode(d.ClusterMode)
	b.ProductionMode(d.ProductionMode)

	for _, name := range sortedKeys(d.Properties) {
		value, err := propertyValue(d.Properties[name])
		if err != nil {
			return fmt.Errorf("configfile: property %q: %w", name, err)
		}
		b.SetProperty(name, value)
	}

	for _, alias := range sortedKeys(d.Aliases) {
		b.Alias(alias, d.Aliases[alias])
	}

	for i := range d.Components {
		if err := d.Components[i].apply(b, types); err != nil {
			return err
		}
	}
	return nil
}

func (c *Component) apply(b *unify.ConfigBuilder, types *unify.TypeRegistry) error {
	t, ok := types.Lookup(c.Type)
	if !ok {
		return fmt.Errorf("configfile: component %q: unknown type %q", c.Name, c.Type)
	}
	if t.Kind() != reflect.Struct {
		return fmt.Errorf("configfile: component %q: type %q is a capability, not a component", c.Name, c.Type)
	}

	opts := []unify.ComponentOption{unify.Description(c.Description)}
	if c.Lifetime != "" {
		var l unify.Lifetime
		if err := l.UnmarshalText([]byte(c.Lifetime)); err != nil {
			return fmt.Errorf("configfile: component %q: %w", c.Name, err)
		}
		opts = append(opts, unify.WithLifetime(l))
	}
	if c.Preferred {
		opts = append(opts, unify.Preferred())
	}
	if c.Overwrite {
		opts = append(opts, unify.Overwrite())
	}

	for _, name := range c.Hidden {
		if _, ok := c.Settings[name]; !ok {
			return fmt.Errorf("configfile: component %q: hidden setting %q has no value", c.Name, name)
		}
	}
	for _, name := range sortedKeys(c.Settings) {
		s := unify.Value(c.Settings[name]...)
		s.Hidden = slices.Contains(c.Hidden, name)
		opts = append(opts, unify.WithSettingValue(name, s))
	}

	return b.AddComponent(c.Name, t, opts...)
}

// propertyValue normalizes a decoded property to the forms Config reads:
// string, bool or []string.
func propertyValue(v any) (any, error) {
	switch v := v.(type) {
	case nil:
		return "", nil
	case string, bool:
		return v, nil
	case []string:
		return v, nil
	case []any:
		out := make([]string, 0, len(v))
		for i, elem := range v {
			s, err := scalarString(elem)
			if err != nil {
				return nil, fmt.Errorf("element %d: %w", i, err)
			}
			out = append(out, s)
		}
		return out, nil
	default:
		return scalarString(v)
	}
}

func scalarString(v any) (string, error) {
	switch v := v.(type) {
	case string:
		return v, nil
	case bool, int, int64, uint64, float64:
		return fmt.Sprint(v), nil
	default:
		return "", fmt.Errorf("unsupported value of type %T", v)
	}
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}
