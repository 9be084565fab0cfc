package unify

import (
	"fmt"
	"reflect"

	"github.com/junioryono/unify/internal/introspect"
	"go.uber.org/zap"
)

var (
	businessServiceType   = reflect.TypeOf((*BusinessService)(nil)).Elem()
	businessLogicUnitType = reflect.TypeOf((*BusinessLogicUnit)(nil)).Elem()
)

// socketTable maps the socket methods of one business service to the
// names of its plugins. It is immutable once installed.
type socketTable struct {
	component string
	methods   map[string]*socketPlugins
}

type socketPlugins struct {
	pre  []string
	post []string
}

func newSocketTable(component string) *socketTable {
	return &socketTable{component: component, methods: make(map[string]*socketPlugins)}
}

func (t *socketTable) add(method, plugin string, kind PluginKind) {
	p, ok := t.methods[method]
	if !ok {
		p = &socketPlugins{}
		t.methods[method] = p
	}

	if kind == PostLogic {
		p.post = append(p.post, plugin)
		return
	}
	p.pre = append(p.pre, plugin)
}

func (t *socketTable) plugins(method string) (pre, post []string) {
	if t == nil {
		return nil, nil
	}
	p, ok := t.methods[method]
	if !ok {
		return nil, nil
	}
	return p.pre, p.post
}

func (t *socketTable) size() int {
	n := 0
	for _, p := range t.methods {
		n += len(p.pre) + len(p.post)
	}
	return n
}

func isBusinessService(t reflect.Type) bool {
	return reflect.PointerTo(t).Implements(businessServiceType)
}

// planSockets builds the socket table of every business service from the
// plugin declarations, in registration order.
func (c *Container) planSockets() (map[string]*socketTable, error) {
	tables := make(map[string]*socketTable)
	for _, name := range c.order {
		if isBusinessService(c.infos[name].descriptor.Type) {
			tables[name] = newSocketTable(name)
		}
	}

	for _, name := range c.order {
		info := c.infos[name]
		plugins := info.declarations.Plugins()
		if len(plugins) == 0 {
			continue
		}

		if !reflect.PointerTo(info.descriptor.Type).Implements(businessLogicUnitType) {
			return nil, ConfigurationError{Component: name, Cause: ErrInvalidPluginSocket,
				Detail: "plugin does not implement unify.BusinessLogicUnit"}
		}

		for _, decl := range plugins {
			target, ok := c.resolver.resolve(decl.Target)
			if !ok {
				return nil, ConfigurationError{Component: name, Member: decl.Method, Cause: ErrInvalidPluginSocket,
					Detail: fmt.Sprintf("unknown target component %q", decl.Target)}
			}

			table, ok := tables[target]
			if !ok {
				return nil, ConfigurationError{Component: name, Member: decl.Method, Cause: ErrInvalidPluginSocket,
					Detail: fmt.Sprintf("target %q is not a business service", target)}
			}

			if err := checkSocketMethod(c.infos[target].descriptor.Type, decl); err != nil {
				return nil, ConfigurationError{Component: name, Member: decl.Method, Cause: ErrInvalidPluginSocket, Detail: err.Error()}
			}

			table.add(decl.Method, name, decl.Kind)
		}
	}

	return tables, nil
}

// checkSocketMethod verifies that the target declares the socket method and,
// when the declaration pins parameter types, that they match. A leading
// context.Context parameter is ignored.
func checkSocketMethod(target reflect.Type, decl PluginDeclaration) error {
	m, ok := introspect.Method(target, decl.Method)
	if !ok {
		return fmt.Errorf("%s has no method %s", target, decl.Method)
	}

	if len(decl.Params) == 0 {
		return nil
	}

	in := introspect.Inputs(m)
	if len(in) > 0 && in[0] == contextType {
		in = in[1:]
	}

	if len(in) != len(decl.Params) {
		return fmt.Errorf("%s.%s takes %d parameters, plugin declares %d", target, decl.Method, len(in), len(decl.Params))
	}

	for i := range in {
		if in[i] != decl.Params[i] {
			return fmt.Errorf("%s.%s parameter %d is %s, plugin declares %s", target, decl.Method, i, in[i], decl.Params[i])
		}
	}

	return nil
}

// installSockets swaps in the socket tables. It runs before any business
// service is instantiated.
func (c *Container) installSockets(tables map[string]*socketTable) {
	for _, name := range c.order {
		table, ok := tables[name]
		if !ok {
			continue
		}

		c.infos[name].sockets.Store(table)
		c.logger.Debug("Installed plugin sockets",
			zap.String("component", name),
			zap.Int("plugins", table.size()))
	}
}
