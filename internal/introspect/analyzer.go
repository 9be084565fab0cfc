// Package introspect analyzes component struct types for configurable
// properties and declared methods. Results are cached per type.
package introspect

import (
	"fmt"
	"reflect"
	"sync"
	"unicode"
	"unicode/utf8"

	"github.com/junioryono/unify/internal/convert"
)

// TagName is the struct tag key that marks a configurable property.
const TagName = "unify"

var errorType = reflect.TypeOf((*error)(nil)).Elem()

// Kind is the injection shape of a property.
type Kind int

const (
	// DataConverted values are parsed from strings.
	DataConverted Kind = iota

	// ComponentInstance is a single component reference.
	ComponentInstance

	// ComponentArray is a slice of component references.
	ComponentArray

	// ComponentCollection is an ordered collection of named component references.
	ComponentCollection

	// ComponentMap is a map of component name to component reference.
	ComponentMap
)

// String returns the string representation of the Kind.
func (k Kind) String() string {
	switch k {
	case DataConverted:
		return "DataConverted"
	case ComponentInstance:
		return "ComponentInstance"
	case ComponentArray:
		return "ComponentArray"
	case ComponentCollection:
		return "ComponentCollection"
	case ComponentMap:
		return "ComponentMap"
	default:
		return fmt.Sprintf("Unknown(%d)", int(k))
	}
}

// IsComponent reports whether the kind references components.
func (k Kind) IsComponent() bool {
	return k != DataConverted
}

// Property describes one configurable field of a component type.
type Property struct {
	// Name is the property name used in settings.
	Name string

	// Field is the Go field name.
	Field string

	// Index is the field index path, including embedded structs.
	Index []int

	// Type is the static field type.
	Type reflect.Type

	Kind Kind

	// Capability is the component type referenced by component kinds.
	Capability reflect.Type

	// Setter is the name of the Set<Field> method, empty when the field is written directly.
	Setter string

	Defaults   []string
	Hidden     bool
	AutoInject bool
}

// TypeInfo is the analysis result for a component struct type.
type TypeInfo struct {
	Type       reflect.Type
	Properties []Property

	byName map[string]int
}

// Property returns the property with the given name.
func (ti *TypeInfo) Property(name string) (Property, bool) {
	i, ok := ti.byName[name]
	if !ok {
		return Property{}, false
	}
	return ti.Properties[i], true
}

// HasProperty reports whether name is a declared property.
func (ti *TypeInfo) HasProperty(name string) bool {
	_, ok := ti.byName[name]
	return ok
}

// FieldError reports a field that cannot be analyzed.
type FieldError struct {
	Type   reflect.Type
	Field  string
	Reason string
}

func (e FieldError) Error() string {
	return fmt.Sprintf("%s.%s: %s", e.Type, e.Field, e.Reason)
}

// CollectionElem returns the component element type of a collection field type.
type CollectionElem func(t reflect.Type) (reflect.Type, bool)

// Analyzer performs reflection-based analysis of component types.
type Analyzer struct {
	component  reflect.Type
	collection CollectionElem

	mu    sync.RWMutex
	cache map[reflect.Type]*TypeInfo
}

// New creates an Analyzer. component is the interface every component
// implements; collection recognizes collection field types.
func New(component reflect.Type, collection CollectionElem) *Analyzer {
	if collection == nil {
		collection = func(reflect.Type) (reflect.Type, bool) { return nil, false }
	}

	return &Analyzer{
		component:  component,
		collection: collection,
		cache:      make(map[reflect.Type]*TypeInfo),
	}
}

// Analyze returns the TypeInfo for a struct type (or pointer to struct).
func (a *Analyzer) Analyze(t reflect.Type) (*TypeInfo, error) {
	if t == nil {
		return nil, fmt.Errorf("type cannot be nil")
	}

	if t.Kind() == reflect.Pointer {
		t = t.Elem()
	}

	if t.Kind() != reflect.Struct {
		return nil, fmt.Errorf("%s is not a struct type", t)
	}

	a.mu.RLock()
	info, ok := a.cache[t]
	a.mu.RUnlock()
	if ok {
		return info, nil
	}

	info = &TypeInfo{Type: t, byName: make(map[string]int)}
	if err := a.analyzeStruct(info, t, nil); err != nil {
		return nil, err
	}

	a.mu.Lock()
	a.cache[t] = info
	a.mu.Unlock()

	return info, nil
}

// IsComponentType reports whether t can hold a component reference.
func (a *Analyzer) IsComponentType(t reflect.Type) bool {
	switch t.Kind() {
	case reflect.Interface:
		return t.Implements(a.component)
	case reflect.Pointer:
		return t.Elem().Kind() == reflect.Struct && t.Implements(a.component)
	default:
		return false
	}
}

func (a *Analyzer) analyzeStruct(info *TypeInfo, t reflect.Type, parent []int) error {
	ptr := reflect.PointerTo(info.Type)

	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		index := append(append([]int(nil), parent...), i)

		tag, tagged := field.Tag.Lookup(TagName)
		if tag == "-" {
			continue
		}

		if !tagged {
			if field.Anonymous && field.Type.Kind() == reflect.Struct && field.IsExported() {
				if err := a.analyzeStruct(info, field.Type, index); err != nil {
					return err
				}
			}
			continue
		}

		prop, err := a.analyzeField(info.Type, ptr, field, index, parseTag(tag))
		if err != nil {
			return err
		}

		if _, dup := info.byName[prop.Name]; dup {
			return FieldError{Type: info.Type, Field: field.Name, Reason: fmt.Sprintf("duplicate property %q", prop.Name)}
		}

		info.byName[prop.Name] = len(info.Properties)
		info.Properties = append(info.Properties, prop)
	}

	return nil
}

func (a *Analyzer) analyzeField(owner, ptr reflect.Type, field reflect.StructField, index []int, tag tagInfo) (Property, error) {
	prop := Property{
		Name:     tag.Name,
		Field:    field.Name,
		Index:    index,
		Type:     field.Type,
		Defaults: tag.Defaults,
		Hidden:   tag.Hidden,
	}

	if prop.Name == "" {
		prop.Name = lowerFirst(field.Name)
	}

	ft := field.Type
	switch {
	case a.IsComponentType(ft):
		prop.Kind = ComponentInstance
		prop.Capability = ft
	case ft.Kind() == reflect.Slice && a.IsComponentType(ft.Elem()):
		prop.Kind = ComponentArray
		prop.Capability = ft.Elem()
	case ft.Kind() == reflect.Map && ft.Key().Kind() == reflect.String && a.IsComponentType(ft.Elem()):
		prop.Kind = ComponentMap
		prop.Capability = ft.Elem()
	default:
		if elem, ok := a.collection(ft); ok {
			prop.Kind = ComponentCollection
			prop.Capability = elem
			break
		}
		if !convert.Supported(ft) {
			return Property{}, FieldError{Type: owner, Field: field.Name, Reason: fmt.Sprintf("type %s is not injectable", ft)}
		}
		prop.Kind = DataConverted
	}

	prop.AutoInject = prop.Kind == ComponentInstance && len(prop.Defaults) == 0 && !tag.NoAuto

	if m, ok := ptr.MethodByName("Set" + upperFirst(field.Name)); ok {
		if !validSetter(m, ft) {
			return Property{}, FieldError{Type: owner, Field: field.Name, Reason: fmt.Sprintf("setter %s must take one %s and return nothing or error", m.Name, ft)}
		}
		prop.Setter = m.Name
	} else if !field.IsExported() {
		return Property{}, FieldError{Type: owner, Field: field.Name, Reason: "unexported property needs a Set" + upperFirst(field.Name) + " method"}
	}

	return prop, nil
}

func validSetter(m reflect.Method, ft reflect.Type) bool {
	mt := m.Type
	if mt.NumIn() != 2 || !ft.AssignableTo(mt.In(1)) {
		return false
	}

	switch mt.NumOut() {
	case 0:
		return true
	case 1:
		return mt.Out(0) == errorType
	default:
		return false
	}
}

func lowerFirst(s string) string {
	r, n := utf8.DecodeRuneInString(s)
	return string(unicode.ToLower(r)) + s[n:]
}

func upperFirst(s string) string {
	r, n := utf8.DecodeRuneInString(s)
	return string(unicode.ToUpper(r)) + s[n:]
}

// Clear clears the analysis cache.
func (a *Analyzer) Clear() {
	a.mu.Lock()
	a.cache = make(map[reflect.Type]*TypeInfo)
	a.mu.Unlock()
}

// CacheSize returns the number of cached analyses.
func (a *Analyzer) CacheSize() int {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return len(a.cache)
}
