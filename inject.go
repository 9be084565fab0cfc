package unify

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/junioryono/unify/internal/convert"
	"github.com/junioryono/unify/internal/introspect"
	"go.uber.org/zap"
)

// injectionDirective is the precomputed injection plan of one property.
type injectionDirective struct {
	prop introspect.Property

	// values are the configured raw values: settings over tag defaults.
	values []string
	hidden bool

	// names are the expanded canonical component names for component kinds.
	names []string

	// data are the expanded values of DataConverted properties. They are
	// converted on every injection so instances never share slices or
	// pointees.
	data []string
}

func (d *injectionDirective) empty() bool {
	if d.prop.Kind.IsComponent() {
		return len(d.names) == 0
	}
	return len(d.data) == 0
}

// buildDirectives computes the injection plan of info. Token expansion,
// name resolution, conversion and auto-injection all happen here, once.
func (c *Container) buildDirectives(info *componentInfo) error {
	name := info.descriptor.Name
	directives := make([]*injectionDirective, 0, len(info.typeInfo.Properties))

	for _, prop := range info.typeInfo.Properties {
		setting, configured := info.descriptor.Settings[prop.Name]

		var d *injectionDirective
		var err error
		if configured && !setting.IsEmpty() {
			d, err = c.newDirective(name, prop, setting.Values)
		} else {
			d, err = c.newDirective(name, prop, prop.Defaults)
		}
		if err != nil {
			return err
		}
		d.hidden = prop.Hidden || setting.Hidden

		autoInject := prop.AutoInject || (prop.Kind == introspect.ComponentInstance && setting.AutoInject)
		if len(d.values) == 0 && autoInject {
			target, err := c.suggestion(prop.Capability, name)
			switch {
			case err != nil && c.opts.lenientAutoInject:
				c.logger.Debug("Ambiguous auto-injection left unset",
					zap.String("component", name),
					zap.String("property", prop.Name),
					zap.Error(err))
			case err != nil:
				return ConfigurationError{Component: name, Member: prop.Name, Cause: err}
			case target != "":
				d.names = []string{target}
			}
		}

		directives = append(directives, d)
	}

	info.directives = directives
	return nil
}

// newDirective expands and resolves raw values for prop. Errors are
// configuration errors attributed to owner.
func (c *Container) newDirective(owner string, prop introspect.Property, values []string) (*injectionDirective, error) {
	d := &injectionDirective{prop: prop, values: append([]string(nil), values...)}
	if len(values) == 0 {
		return d, nil
	}

	expanded, err := c.expandTokens(values)
	if err != nil {
		return nil, ConfigurationError{Component: owner, Member: prop.Name, Cause: err}
	}

	if prop.Kind.IsComponent() {
		if prop.Kind == introspect.ComponentInstance && len(expanded) > 1 {
			return nil, ConfigurationError{
				Component: owner,
				Member:    prop.Name,
				Cause:     ErrMultipleImplementations,
				Detail:    fmt.Sprintf("single component property expands to %s", strings.Join(expanded, ", ")),
			}
		}
		for _, n := range expanded {
			canonical, ok := c.resolver.resolve(strings.TrimSpace(n))
			if !ok {
				return nil, ConfigurationError{Component: owner, Member: prop.Name, Cause: ErrUnknownComponent, Detail: n}
			}
			d.names = append(d.names, canonical)
		}
		return d, nil
	}

	if len(expanded) == 0 {
		return d, nil
	}

	if _, err := convert.To(expanded, prop.Type); err != nil {
		return nil, ConfigurationError{Component: owner, Member: prop.Name, Cause: err}
	}
	d.data = expanded
	return d, nil
}

// alternateDirectives returns info's directives with alt applied. Every
// property in alt must be declared by the component type.
func (c *Container) alternateDirectives(info *componentInfo, alt Settings) ([]*injectionDirective, error) {
	name := info.descriptor.Name
	for _, prop := range alt.Names() {
		if !info.typeInfo.HasProperty(prop) {
			return nil, ComponentError{Name: name, Cause: fmt.Errorf("%w: %s", ErrAltSettingsUnknownProperty, prop)}
		}
	}

	directives := make([]*injectionDirective, len(info.directives))
	for i, d := range info.directives {
		setting, ok := alt[d.prop.Name]
		if !ok {
			directives[i] = d
			continue
		}

		nd, err := c.newDirective(name, d.prop, setting.Values)
		if err != nil {
			return nil, ComponentError{Name: name, Cause: err}
		}
		nd.hidden = d.hidden || setting.Hidden
		directives[i] = nd
	}

	return directives, nil
}

// inject applies directives to h's instance. Every call bumps the pass or
// fail counter of the component.
func (c *Container) inject(tr *trail, h *instanceHolder, directives []*injectionDirective) (err error) {
	defer func() {
		h.info.record(err)
	}()

	target := reflect.ValueOf(h.instance)
	for _, d := range directives {
		if d.empty() {
			continue
		}

		v, err := c.directiveValue(tr, d)
		if err != nil {
			return InjectionError{Component: h.name, Property: d.prop.Name, Cause: err}
		}

		if err := assign(target, d.prop, v); err != nil {
			return InjectionError{Component: h.name, Property: d.prop.Name, Cause: err}
		}
	}

	return nil
}

func (c *Container) directiveValue(tr *trail, d *injectionDirective) (reflect.Value, error) {
	if d.prop.Kind == introspect.DataConverted {
		return convert.To(d.data, d.prop.Type)
	}

	components := make([]Component, len(d.names))
	for i, n := range d.names {
		comp, err := c.getComponent(tr, n, nil)
		if err != nil {
			return reflect.Value{}, err
		}
		components[i] = comp
	}

	ft := d.prop.Type
	switch d.prop.Kind {
	case introspect.ComponentInstance:
		return componentValue(components[0], ft, d.names[0])

	case introspect.ComponentArray:
		out := reflect.MakeSlice(ft, 0, len(components))
		for i, comp := range components {
			v, err := componentValue(comp, ft.Elem(), d.names[i])
			if err != nil {
				return reflect.Value{}, err
			}
			out = reflect.Append(out, v)
		}
		return out, nil

	case introspect.ComponentMap:
		out := reflect.MakeMapWithSize(ft, len(components))
		for i, comp := range components {
			v, err := componentValue(comp, ft.Elem(), d.names[i])
			if err != nil {
				return reflect.Value{}, err
			}
			out.SetMapIndex(reflect.ValueOf(d.names[i]).Convert(ft.Key()), v)
		}
		return out, nil

	case introspect.ComponentCollection:
		out := reflect.New(ft)
		if err := out.Interface().(componentLister).setComponents(d.names, components); err != nil {
			return reflect.Value{}, err
		}
		return out.Elem(), nil
	}

	return reflect.Value{}, fmt.Errorf("unsupported injection kind %s", d.prop.Kind)
}

func componentValue(comp Component, t reflect.Type, name string) (reflect.Value, error) {
	v := reflect.ValueOf(comp)
	if !v.Type().AssignableTo(t) {
		return reflect.Value{}, TypeMismatchError{Expected: t, Actual: v.Type(), Context: fmt.Sprintf("component %q", name)}
	}
	return v, nil
}

// assign writes v through the property's setter, or directly to the field.
func assign(target reflect.Value, prop introspect.Property, v reflect.Value) error {
	if prop.Setter != "" {
		out := target.MethodByName(prop.Setter).Call([]reflect.Value{v})
		if len(out) == 1 && !out[0].IsNil() {
			return out[0].Interface().(error)
		}
		return nil
	}

	target.Elem().FieldByIndex(prop.Index).Set(v)
	return nil
}
