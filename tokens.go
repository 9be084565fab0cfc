package unify

import (
	"fmt"
	"reflect"

	"github.com/junioryono/unify/internal/token"
)

// expandTokens expands $c{} and $s{} tokens in raw setting values.
func (c *Container) expandTokens(values []string) ([]string, error) {
	out := make([]string, 0, len(values))
	for _, raw := range values {
		tok := token.Parse(raw)
		switch tok.Kind {
		case token.Components:
			capability, err := c.capabilityType(tok.Value)
			if err != nil {
				return nil, err
			}
			out = append(out, c.implementations(capability, "")...)
		case token.String:
			out = append(out, tok.Value)
		default:
			out = append(out, raw)
		}
	}
	return out, nil
}

// capabilityType resolves a capability name through the type registry,
// falling back to the registered component type names.
func (c *Container) capabilityType(name string) (reflect.Type, error) {
	if c.types != nil {
		if t, ok := c.types.Lookup(name); ok {
			return capabilityOf(t), nil
		}
	}

	for _, n := range c.order {
		t := c.infos[n].descriptor.Type
		if t.String() == name || t.Name() == name {
			return capabilityOf(t), nil
		}
	}

	return nil, fmt.Errorf("%w: %s", ErrUnknownCapability, name)
}

// implementations returns the canonical names of all components whose
// instances satisfy capability, in registration order. exclude is skipped.
func (c *Container) implementations(capability reflect.Type, exclude string) []string {
	var names []string
	for _, n := range c.order {
		if n == exclude {
			continue
		}
		if implements(c.infos[n].descriptor.Type, capability) {
			names = append(names, n)
		}
	}
	return names
}

// findUniqueImplementation returns the single implementation of capability,
// or the single preferred one among several. It returns "" when there is
// none and a MultipleImplementationsError when the choice is ambiguous.
func (c *Container) findUniqueImplementation(capability reflect.Type, exclude string) (string, error) {
	candidates := c.implementations(capability, exclude)
	switch len(candidates) {
	case 0:
		return "", nil
	case 1:
		return candidates[0], nil
	}

	var preferred []string
	for _, n := range candidates {
		if c.infos[n].descriptor.Preferred {
			preferred = append(preferred, n)
		}
	}

	if len(preferred) == 1 {
		return preferred[0], nil
	}

	if len(preferred) > 1 {
		candidates = preferred
	}
	return "", MultipleImplementationsError{Type: capability, Names: candidates}
}

type autoSuggestion struct {
	name string
	err  error
}

// computeSuggestions resolves the unique implementation of every
// capability referenced by an auto-injectable property.
func (c *Container) computeSuggestions() {
	c.suggestions = make(map[reflect.Type]autoSuggestion)
	for _, n := range c.order {
		for _, prop := range c.infos[n].typeInfo.Properties {
			if !prop.Kind.IsComponent() || prop.Capability == nil {
				continue
			}
			if _, done := c.suggestions[prop.Capability]; done {
				continue
			}

			name, err := c.findUniqueImplementation(prop.Capability, "")
			c.suggestions[prop.Capability] = autoSuggestion{name: name, err: err}
		}
	}
}

// suggestion returns the auto-injection target for capability on owner.
// The owner never injects itself.
func (c *Container) suggestion(capability reflect.Type, owner string) (string, error) {
	if s, ok := c.suggestions[capability]; ok && s.err == nil && s.name != owner {
		return s.name, nil
	}
	return c.findUniqueImplementation(capability, owner)
}

func implements(componentStruct, capability reflect.Type) bool {
	ptr := reflect.PointerTo(componentStruct)
	if capability.Kind() == reflect.Interface {
		return ptr.Implements(capability)
	}
	return ptr == capability
}
