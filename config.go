package unify

import (
	"fmt"
	"reflect"
	"sort"
	"strconv"
	"strings"
)

// Well-known container properties.
const (
	PropertyApplicationName   = "application.name"
	PropertyCustomization     = "application.customization"
	PropertyBoot              = "application.boot"
	PropertyInterfaces        = "application.interfaces"
	PropertyCommandInterface  = "application.commandinterface"
	PropertyAttributeProvider = "application.attributeprovider"
)

// Conflict records a second registration under an existing component name.
type Conflict struct {
	Name     string
	Existing reflect.Type
	Incoming reflect.Type
}

// ConfigBuilder collects container configuration. It is not safe for
// concurrent use; Build produces the immutable Config consumed by Startup.
type ConfigBuilder struct {
	nodeID            string
	deploymentVersion string
	clusterMode       bool
	productionMode    bool

	properties  map[string]any
	aliases     map[string]string
	descriptors []*Descriptor
	index       map[string]int
	conflicts   []Conflict
}

// NewConfigBuilder creates an empty builder.
func NewConfigBuilder() *ConfigBuilder {
	return &ConfigBuilder{
		properties: make(map[string]any),
		aliases:    make(map[string]string),
		index:      make(map[string]int),
	}
}

// NodeID sets the cluster node id.
func (b *ConfigBuilder) NodeID(id string) *ConfigBuilder {
	b.nodeID = id
	return b
}

// DeploymentVersion sets the deployment version reported in diagnostics.
func (b *ConfigBuilder) DeploymentVersion(v string) *ConfigBuilder {
	b.deploymentVersion = v
	return b
}

// ClusterMode enables cluster mode.
func (b *ConfigBuilder) ClusterMode(enabled bool) *ConfigBuilder {
	b.clusterMode = enabled
	return b
}

// ProductionMode flags a production deployment.
func (b *ConfigBuilder) ProductionMode(enabled bool) *ConfigBuilder {
	b.productionMode = enabled
	return b
}

// SetProperty sets a container property. Values are strings, string slices,
// booleans or numbers.
func (b *ConfigBuilder) SetProperty(name string, value any) *ConfigBuilder {
	b.properties[name] = value
	return b
}

// SetPropertyIfBlank sets a property only when it has no value yet.
func (b *ConfigBuilder) SetPropertyIfBlank(name string, value any) *ConfigBuilder {
	if _, ok := b.properties[name]; !ok {
		b.properties[name] = value
	}
	return b
}

// Alias makes alias resolve to target.
func (b *ConfigBuilder) Alias(alias, target string) *ConfigBuilder {
	b.aliases[alias] = target
	return b
}

// AddComponent registers a component type under name. sample is a pointer
// to the component struct, e.g. (*Cache)(nil), or its reflect.Type.
func (b *ConfigBuilder) AddComponent(name string, sample any, opts ...ComponentOption) error {
	t, err := componentTypeOf(sample)
	if err != nil {
		return RegistrationError{Name: name, Cause: err}
	}

	o := &componentOptions{descriptor: &Descriptor{Name: name, Type: t, Lifetime: Singleton}}
	for _, opt := range opts {
		if opt != nil {
			opt.applyComponentOption(o)
		}
	}

	return b.add(o.descriptor, o.overwrite)
}

// AddDescriptor registers a prepared descriptor.
func (b *ConfigBuilder) AddDescriptor(d Descriptor, overwrite bool) error {
	return b.add(d.clone(), overwrite)
}

func (b *ConfigBuilder) add(d *Descriptor, overwrite bool) error {
	if err := d.Validate(); err != nil {
		return RegistrationError{Name: d.Name, Cause: err}
	}

	if i, ok := b.index[d.Name]; ok {
		if overwrite {
			b.descriptors[i] = d
			return nil
		}

		b.conflicts = append(b.conflicts, Conflict{Name: d.Name, Existing: b.descriptors[i].Type, Incoming: d.Type})
		return nil
	}

	b.index[d.Name] = len(b.descriptors)
	b.descriptors = append(b.descriptors, d)
	return nil
}

// Install applies modules to the builder.
func (b *ConfigBuilder) Install(modules ...ModuleOption) error {
	for _, m := range modules {
		if m == nil {
			continue
		}
		if err := m(b); err != nil {
			return err
		}
	}
	return nil
}

// HasComponent reports whether a component is registered under name.
func (b *ConfigBuilder) HasComponent(name string) bool {
	_, ok := b.index[name]
	return ok
}

// Build returns an immutable snapshot of the configuration.
func (b *ConfigBuilder) Build() *Config {
	cfg := &Config{
		nodeID:            b.nodeID,
		deploymentVersion: b.deploymentVersion,
		clusterMode:       b.clusterMode,
		productionMode:    b.productionMode,
		properties:        make(map[string]any, len(b.properties)),
		aliases:           make(map[string]string, len(b.aliases)),
		descriptors:       make([]*Descriptor, 0, len(b.descriptors)),
		conflicts:         append([]Conflict(nil), b.conflicts...),
	}

	for k, v := range b.properties {
		if s, ok := v.([]string); ok {
			v = append([]string(nil), s...)
		}
		cfg.properties[k] = v
	}

	for k, v := range b.aliases {
		cfg.aliases[k] = v
	}

	for _, d := range b.descriptors {
		cfg.descriptors = append(cfg.descriptors, d.clone())
	}

	return cfg
}

// RegistrationError wraps an invalid component registration.
type RegistrationError struct {
	Name  string
	Cause error
}

func (e RegistrationError) Error() string {
	return fmt.Sprintf("failed to register component %q: %v", e.Name, e.Cause)
}

func (e RegistrationError) Unwrap() error {
	return e.Cause
}

// Config is the immutable container configuration.
type Config struct {
	nodeID            string
	deploymentVersion string
	clusterMode       bool
	productionMode    bool

	properties  map[string]any
	aliases     map[string]string
	descriptors []*Descriptor
	conflicts   []Conflict
}

// NodeID returns the configured node id.
func (c *Config) NodeID() string { return c.nodeID }

// DeploymentVersion returns the deployment version.
func (c *Config) DeploymentVersion() string { return c.deploymentVersion }

// ClusterMode reports whether cluster mode is enabled.
func (c *Config) ClusterMode() bool { return c.clusterMode }

// ProductionMode reports whether this is a production deployment.
func (c *Config) ProductionMode() bool { return c.productionMode }

// Property returns a raw property value.
func (c *Config) Property(name string) (any, bool) {
	v, ok := c.properties[name]
	return v, ok
}

// PropertyNames returns the property names in sorted order.
func (c *Config) PropertyNames() []string {
	names := make([]string, 0, len(c.properties))
	for k := range c.properties {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

// StringProperty returns a property as a string.
func (c *Config) StringProperty(name string) string {
	switch v := c.properties[name].(type) {
	case nil:
		return ""
	case string:
		return v
	case []string:
		return strings.Join(v, ",")
	default:
		return fmt.Sprint(v)
	}
}

// StringsProperty returns a property as a list. A string value is split on commas.
func (c *Config) StringsProperty(name string) []string {
	switch v := c.properties[name].(type) {
	case nil:
		return nil
	case []string:
		return append([]string(nil), v...)
	case string:
		var out []string
		for _, part := range strings.Split(v, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
		return out
	default:
		return []string{fmt.Sprint(v)}
	}
}

// BoolProperty returns a property as a bool; unparsable values are false.
func (c *Config) BoolProperty(name string) bool {
	switch v := c.properties[name].(type) {
	case bool:
		return v
	case string:
		b, _ := strconv.ParseBool(strings.TrimSpace(v))
		return b
	default:
		return false
	}
}

// Aliases returns a copy of the alias table.
func (c *Config) Aliases() map[string]string {
	out := make(map[string]string, len(c.aliases))
	for k, v := range c.aliases {
		out[k] = v
	}
	return out
}

// Descriptors returns copies of the registered descriptors in registration order.
func (c *Config) Descriptors() []Descriptor {
	out := make([]Descriptor, 0, len(c.descriptors))
	for _, d := range c.descriptors {
		out = append(out, *d.clone())
	}
	return out
}

// Conflicts returns the recorded registration conflicts.
func (c *Config) Conflicts() []Conflict {
	return append([]Conflict(nil), c.conflicts...)
}
