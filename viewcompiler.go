package unify

import (
	"sync"

	"github.com/junioryono/unify/upl"
	"golang.org/x/text/language"
)

// defaultViewCompiler compiles descriptors with the upl parser and
// remembers every compiled view by locale and key.
type defaultViewCompiler struct {
	Base

	mu    sync.RWMutex
	byKey map[string]*ViewAttributes
}

func (vc *defaultViewCompiler) OnInitialize() error {
	vc.byKey = make(map[string]*ViewAttributes)
	return nil
}

func (vc *defaultViewCompiler) Compile(locale language.Tag, descriptor string) (*ViewAttributes, error) {
	el, err := upl.Parse(descriptor)
	if err != nil {
		return nil, err
	}

	attrs := &ViewAttributes{
		Key:        el.Key(),
		Component:  el.Component,
		Attributes: el.Attributes,
	}

	vc.mu.Lock()
	vc.byKey[viewKeyOf(locale, attrs.Key)] = attrs
	vc.mu.Unlock()

	return attrs, nil
}

func (vc *defaultViewCompiler) Lookup(locale language.Tag, key string) (*ViewAttributes, bool) {
	vc.mu.RLock()
	defer vc.mu.RUnlock()
	attrs, ok := vc.byKey[viewKeyOf(locale, key)]
	return attrs, ok
}

func viewKeyOf(locale language.Tag, s string) string {
	return locale.String() + "\x00" + s
}
