package unify

import (
	"fmt"

	"github.com/junioryono/unify/internal/graph"
	"github.com/junioryono/unify/internal/introspect"
)

// validateConfig checks every descriptor and its settings before anything
// is resolved.
func (c *Container) validateConfig(cfg *Config) error {
	if conflicts := cfg.Conflicts(); len(conflicts) > 0 {
		first := conflicts[0]
		return ConflictError{Name: first.Name, Existing: first.Existing, Incoming: first.Incoming}
	}

	if cfg.ClusterMode() && cfg.NodeID() == "" {
		return ConfigurationError{Cause: ErrNodeIDRequired}
	}

	for _, d := range cfg.descriptors {
		if err := d.Validate(); err != nil {
			return err
		}

		if _, err := c.analyzeDescriptor(d); err != nil {
			return err
		}
	}

	return nil
}

// analyzeDescriptor analyzes the component type and checks that every
// configured setting names a declared property.
func (c *Container) analyzeDescriptor(d *Descriptor) (*introspect.TypeInfo, error) {
	ti, err := c.analyzer.Analyze(d.Type)
	if err != nil {
		return nil, ConfigurationError{Component: d.Name, Cause: ErrNotConfigurable, Detail: err.Error()}
	}

	for _, prop := range d.Settings.Names() {
		if !ti.HasProperty(prop) {
			return nil, ConfigurationError{Component: d.Name, Member: prop, Cause: ErrNotConfigurable,
				Detail: fmt.Sprintf("%s declares no property %q", d.TypeName(), prop)}
		}
	}

	return ti, nil
}

// validateAliases checks that every alias target resolves.
func (c *Container) validateAliases() error {
	for _, alias := range sortedKeys(c.resolver.aliases) {
		target := c.resolver.aliases[alias]
		if _, ok := c.resolver.resolve(alias); !ok {
			return ConfigurationError{Component: alias, Cause: ErrUnknownComponent, Detail: fmt.Sprintf("alias target %q", target)}
		}
	}
	return nil
}

// buildReferenceGraph records the component references of every injection
// plan. Reference cycles made only of transient components can never be
// satisfied and fail startup; cycles through a singleton resolve to the
// partially initialized instance.
func (c *Container) buildReferenceGraph() error {
	g := graph.NewDependencyGraph()
	for _, name := range c.order {
		info := c.infos[name]

		var refs []string
		for _, d := range info.directives {
			refs = append(refs, d.names...)
		}

		g.AddComponent(name, info.typeName(), info.descriptor.IsSingleton(), refs)
	}

	if err := g.DetectCycles(func(n graph.Node) bool { return !n.Singleton }); err != nil {
		return ConfigurationError{Cause: ErrCyclicInitialization, Detail: err.Error()}
	}

	g.CalculateDepths()
	c.graph = g
	return nil
}
