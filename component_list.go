package unify

import (
	"fmt"
	"reflect"
)

// ComponentList is an ordered collection of named components. Declare a
// property of this type to receive every configured component together
// with its name:
//
//	type Router struct {
//	    unify.Base
//	    Handlers unify.ComponentList[Handler] `unify:"handlers,default=$c{handler}"`
//	}
type ComponentList[T Component] struct {
	names []string
	items []T
}

// Len returns the number of components.
func (l ComponentList[T]) Len() int {
	return len(l.items)
}

// Names returns the component names in injection order.
func (l ComponentList[T]) Names() []string {
	return append([]string(nil), l.names...)
}

// Items returns the components in injection order.
func (l ComponentList[T]) Items() []T {
	return append([]T(nil), l.items...)
}

// Get returns the component injected under name.
func (l ComponentList[T]) Get(name string) (T, bool) {
	for i, n := range l.names {
		if n == name {
			return l.items[i], true
		}
	}

	var zero T
	return zero, false
}

// All iterates over name and component pairs.
func (l ComponentList[T]) All(yield func(string, T) bool) {
	for i, n := range l.names {
		if !yield(n, l.items[i]) {
			return
		}
	}
}

func (l *ComponentList[T]) setComponents(names []string, items []Component) error {
	typed := make([]T, len(items))
	for i, item := range items {
		t, ok := item.(T)
		if !ok {
			return TypeMismatchError{
				Expected: reflect.TypeFor[T](),
				Actual:   reflect.TypeOf(item),
				Context:  fmt.Sprintf("collection element %q", names[i]),
			}
		}
		typed[i] = t
	}

	l.names = append([]string(nil), names...)
	l.items = typed
	return nil
}

func (l *ComponentList[T]) elemType() reflect.Type {
	return reflect.TypeFor[T]()
}

// componentLister is implemented by *ComponentList[T].
type componentLister interface {
	setComponents(names []string, items []Component) error
	elemType() reflect.Type
}

var componentListerType = reflect.TypeOf((*componentLister)(nil)).Elem()

// collectionElem recognizes ComponentList field types for the analyzer.
func collectionElem(t reflect.Type) (reflect.Type, bool) {
	if t.Kind() != reflect.Struct || !reflect.PointerTo(t).Implements(componentListerType) {
		return nil, false
	}

	lister := reflect.New(t).Interface().(componentLister)
	return lister.elemType(), true
}
