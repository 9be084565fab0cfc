package unify

import (
	"context"
	"fmt"
	"reflect"
	"sync"

	"golang.org/x/sync/singleflight"
	"golang.org/x/text/language"
)

// viewCache memoizes view components by locale and descriptor. It is
// separate from the singleton cache: views are transient components.
type viewCache struct {
	entries sync.Map // map[string]ViewComponent
	group   singleflight.Group
}

func newViewCache() *viewCache {
	return &viewCache{}
}

func (vc *viewCache) clear() {
	vc.entries.Clear()
}

func (vc *viewCache) size() int {
	n := 0
	vc.entries.Range(func(_, _ any) bool {
		n++
		return true
	})
	return n
}

// View returns the view component described by descriptor for locale.
// Cached requests return the memoized instance for the pair, building it
// once; uncached requests always compile afresh and leave the cache alone.
// language.Und selects the environment locale.
func (c *Container) View(locale language.Tag, descriptor string, cached bool) (ViewComponent, error) {
	if err := c.checkServing(); err != nil {
		return nil, err
	}

	locale = c.viewLocale(locale)
	if !cached {
		return c.buildView(locale, descriptor)
	}

	key := viewKeyOf(locale, descriptor)
	if v, ok := c.views.entries.Load(key); ok {
		return v.(ViewComponent), nil
	}

	v, err, _ := c.views.group.Do(key, func() (any, error) {
		if v, ok := c.views.entries.Load(key); ok {
			return v, nil
		}

		view, err := c.buildView(locale, descriptor)
		if err != nil {
			return nil, err
		}
		c.views.entries.Store(key, view)
		return view, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(ViewComponent), nil
}

// ViewByKey builds a new view from attributes previously compiled under key.
func (c *Container) ViewByKey(locale language.Tag, key string) (ViewComponent, error) {
	if err := c.checkServing(); err != nil {
		return nil, err
	}

	locale = c.viewLocale(locale)
	attrs, ok := c.viewCompiler.Lookup(locale, key)
	if !ok {
		return nil, ComponentError{Name: key, Cause: fmt.Errorf("%w: no view compiled under key %q for %s", ErrUnknownComponent, key, locale)}
	}
	return c.viewFromAttributes(attrs)
}

// NewRequestContext returns ctx carrying a request context created by the
// request context manager.
func (c *Container) NewRequestContext(ctx context.Context, sessionID string, locale language.Tag) context.Context {
	return c.requestContexts.NewRequestContext(ctx, sessionID, c.viewLocale(locale))
}

func (c *Container) viewLocale(locale language.Tag) language.Tag {
	if locale == language.Und {
		return c.env.Locale
	}
	return locale
}

func (c *Container) buildView(locale language.Tag, descriptor string) (ViewComponent, error) {
	attrs, err := c.viewCompiler.Compile(locale, descriptor)
	if err != nil {
		return nil, ComponentError{Name: descriptor, Cause: err}
	}
	return c.viewFromAttributes(attrs)
}

func (c *Container) viewFromAttributes(attrs *ViewAttributes) (ViewComponent, error) {
	canonical, ok := c.resolver.resolve(attrs.Component)
	if !ok {
		return nil, ComponentError{Name: attrs.Component, Cause: ErrUnknownComponent}
	}

	info := c.infos[canonical]
	if info.descriptor.IsSingleton() || !isViewComponent(info) {
		return nil, ComponentError{Name: canonical, Cause: ErrNotViewComponent}
	}

	h, err := c.create(&trail{}, info, info.directives, func(comp Component) {
		comp.(ViewComponent).SetViewAttributes(attrs)
	})
	if err != nil {
		return nil, err
	}
	return h.instance.(ViewComponent), nil
}

var viewComponentType = reflect.TypeOf((*ViewComponent)(nil)).Elem()

func isViewComponent(info *componentInfo) bool {
	return reflect.PointerTo(info.descriptor.Type).Implements(viewComponentType)
}
