package unify

import (
	"context"
	"reflect"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/text/language"
)

// defaultComponents are installed for well-known names missing from the
// configuration, in this order.
var defaultComponents = []struct {
	name        string
	typ         reflect.Type
	description string
}{
	{RequestContextManagerName, reflect.TypeFor[defaultRequestContextManager](), "Default request context manager"},
	{ViewCompilerName, reflect.TypeFor[defaultViewCompiler](), "Default view descriptor compiler"},
	{ClusterServiceName, reflect.TypeFor[localClusterService](), "Single node cluster service"},
	{SessionManagerName, reflect.TypeFor[defaultSessionManager](), "Default session manager"},
	{TaskManagerName, reflect.TypeFor[defaultTaskManager](), "Default task manager"},
	{BootServiceName, reflect.TypeFor[defaultBootService](), "Default boot service"},
	{AttributeProviderName, reflect.TypeFor[defaultAttributeProvider](), "Default application attribute provider"},
}

// installDefaults registers a default implementation for every missing
// well-known singleton.
func (c *Container) installDefaults() error {
	for _, dc := range defaultComponents {
		if c.IsComponent(dc.name) {
			continue
		}

		d := &Descriptor{Name: dc.name, Type: dc.typ, Description: dc.description, Lifetime: Singleton}
		if err := c.addInfo(d); err != nil {
			return err
		}
		if err := c.planDispatchFor(dc.name); err != nil {
			return err
		}

		c.logger.Debug("Installed default component", zap.String("component", dc.name))
	}
	return nil
}

type defaultRequestContextManager struct {
	Base
}

func (m *defaultRequestContextManager) NewRequestContext(ctx context.Context, sessionID string, locale language.Tag) context.Context {
	return WithRequestContext(ctx, NewRequestContext(sessionID, locale))
}

type defaultBootService struct {
	Base
}

func (b *defaultBootService) Startup(context.Context) error {
	b.Logger().Debug("Application startup")
	return nil
}

func (b *defaultBootService) Shutdown(context.Context) error {
	b.Logger().Debug("Application shutdown")
	return nil
}

// defaultAttributeProvider publishes the container identity.
type defaultAttributeProvider struct {
	Base
}

func (p *defaultAttributeProvider) ApplicationAttributes(context.Context) (map[string]any, error) {
	c := p.Context().Container()
	attrs := map[string]any{
		"nodeId":      c.NodeID(),
		"clusterMode": c.IsClusterMode(),
	}
	if name, ok := c.Property(PropertyApplicationName); ok {
		attrs[PropertyApplicationName] = name
	}
	if v := c.config.DeploymentVersion(); v != "" {
		attrs["deploymentVersion"] = v
	}
	return attrs, nil
}

// defaultSessionManager keeps session attributes in memory and keeps the
// other nodes in step through the ApplyAttribute broadcast method.
type defaultSessionManager struct {
	Base

	mu       sync.RWMutex
	sessions map[string]map[string]string
}

func (m *defaultSessionManager) DeclareMethods(d *Declarations) {
	d.Broadcast("ApplyAttribute")
}

func (m *defaultSessionManager) OnInitialize() error {
	m.sessions = make(map[string]map[string]string)
	return nil
}

func (m *defaultSessionManager) SetAttribute(ctx context.Context, sessionID, name, value string) error {
	m.apply(sessionID, name, value)
	return m.Context().Broadcast(ctx, "ApplyAttribute", sessionID, name, value)
}

// ApplyAttribute applies an attribute change received from another node.
// params are session id, attribute name and value.
func (m *defaultSessionManager) ApplyAttribute(params []string) {
	if len(params) != 3 {
		m.Logger().Warn("Malformed session attribute broadcast", zap.Strings("params", params))
		return
	}
	m.apply(params[0], params[1], params[2])
}

func (m *defaultSessionManager) apply(sessionID, name, value string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	attrs, ok := m.sessions[sessionID]
	if !ok {
		attrs = make(map[string]string)
		m.sessions[sessionID] = attrs
	}
	attrs[name] = value
}

func (m *defaultSessionManager) Attribute(sessionID, name string) (string, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.sessions[sessionID][name]
	return v, ok
}

func (m *defaultSessionManager) Sessions() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return sortedKeys(m.sessions)
}
