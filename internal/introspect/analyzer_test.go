package introspect

import (
	"errors"
	"reflect"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type component interface{ id() string }

type store interface {
	component
	Get(key string) string
}

type memStore struct{}

func (*memStore) id() string             { return "mem" }
func (*memStore) Get(key string) string { return key }

type bag[T any] struct{ items []T }

var componentType = reflect.TypeOf((*component)(nil)).Elem()

func bagElem(t reflect.Type) (reflect.Type, bool) {
	if t.Kind() == reflect.Struct && t.NumField() == 1 && t.Field(0).Name == "items" {
		return t.Field(0).Type.Elem(), true
	}
	return nil, false
}

type Shared struct {
	Region string `unify:"region,default=eu"`
}

type sample struct {
	Shared

	Name     string            `unify:"name,default=svc"`
	Size     int               `unify:",default=10"`
	Timeout  time.Duration     `unify:"timeout"`
	Password string            `unify:"password,hidden"`
	Store    store             `unify:"store"`
	Backup   store             `unify:"backup,noauto"`
	Direct   *memStore         `unify:"direct,default=mem"`
	Stores   []store           `unify:"stores,default=$c{store}"`
	ByName   map[string]store  `unify:"byName"`
	Bag      bag[store]        `unify:"bag"`
	limit    int               `unify:"limit"`
	Skipped  string            `unify:"-"`
	plain    string
	Tags     []string          `unify:"tags,default=a|b"`
}

func (s *sample) SetLimit(n int) { s.limit = n }

func TestAnalyze(t *testing.T) {
	a := New(componentType, bagElem)

	info, err := a.Analyze(reflect.TypeOf(&sample{}))
	require.NoError(t, err)
	assert.Equal(t, reflect.TypeOf(sample{}), info.Type)

	tests := []struct {
		name       string
		kind       Kind
		field      string
		capability reflect.Type
		defaults   []string
		setter     string
		hidden     bool
		autoInject bool
	}{
		{name: "region", kind: DataConverted, field: "Region", defaults: []string{"eu"}},
		{name: "name", kind: DataConverted, field: "Name", defaults: []string{"svc"}},
		{name: "size", kind: DataConverted, field: "Size", defaults: []string{"10"}},
		{name: "timeout", kind: DataConverted, field: "Timeout"},
		{name: "password", kind: DataConverted, field: "Password", hidden: true},
		{name: "store", kind: ComponentInstance, field: "Store", capability: reflect.TypeOf((*store)(nil)).Elem(), autoInject: true},
		{name: "backup", kind: ComponentInstance, field: "Backup", capability: reflect.TypeOf((*store)(nil)).Elem()},
		{name: "direct", kind: ComponentInstance, field: "Direct", capability: reflect.TypeOf(&memStore{}), defaults: []string{"mem"}},
		{name: "stores", kind: ComponentArray, field: "Stores", capability: reflect.TypeOf((*store)(nil)).Elem(), defaults: []string{"$c{store}"}},
		{name: "byName", kind: ComponentMap, field: "ByName", capability: reflect.TypeOf((*store)(nil)).Elem()},
		{name: "bag", kind: ComponentCollection, field: "Bag", capability: reflect.TypeOf((*store)(nil)).Elem()},
		{name: "limit", kind: DataConverted, field: "limit", setter: "SetLimit"},
		{name: "tags", kind: DataConverted, field: "Tags", defaults: []string{"a", "b"}},
	}

	require.Len(t, info.Properties, len(tests))

	for i, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			prop, ok := info.Property(tt.name)
			require.True(t, ok)
			assert.Equal(t, info.Properties[i].Name, tt.name, "declaration order")
			assert.Equal(t, tt.kind, prop.Kind)
			assert.Equal(t, tt.field, prop.Field)
			assert.Equal(t, tt.capability, prop.Capability)
			assert.Equal(t, tt.defaults, prop.Defaults)
			assert.Equal(t, tt.setter, prop.Setter)
			assert.Equal(t, tt.hidden, prop.Hidden)
			assert.Equal(t, tt.autoInject, prop.AutoInject)
		})
	}

	assert.False(t, info.HasProperty("skipped"))
	assert.False(t, info.HasProperty("plain"))

	region, _ := info.Property("region")
	assert.Equal(t, []int{0, 0}, region.Index)
}

func TestAnalyzeCaches(t *testing.T) {
	a := New(componentType, nil)

	first, err := a.Analyze(reflect.TypeOf(Shared{}))
	require.NoError(t, err)
	second, err := a.Analyze(reflect.TypeOf(&Shared{}))
	require.NoError(t, err)

	assert.Same(t, first, second)
	assert.Equal(t, 1, a.CacheSize())

	a.Clear()
	assert.Equal(t, 0, a.CacheSize())
}

type unexportedNoSetter struct {
	limit int `unify:"limit"`
}

type badSetter struct {
	Limit int `unify:"limit"`
}

func (b *badSetter) SetLimit(s string) {}

type notInjectable struct {
	Ch chan int `unify:"ch"`
}

type duplicate struct {
	A string `unify:"x"`
	B string `unify:"x"`
}

func TestAnalyzeErrors(t *testing.T) {
	a := New(componentType, nil)

	tests := []struct {
		name   string
		sample any
	}{
		{"unexported without setter", unexportedNoSetter{}},
		{"setter with wrong type", badSetter{}},
		{"not injectable", notInjectable{}},
		{"duplicate property", duplicate{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := a.Analyze(reflect.TypeOf(tt.sample))
			var fieldErr FieldError
			assert.True(t, errors.As(err, &fieldErr), "got %v", err)
		})
	}

	_, err := a.Analyze(reflect.TypeOf(42))
	assert.Error(t, err)

	_, err = a.Analyze(nil)
	assert.Error(t, err)
}

func TestIsComponentType(t *testing.T) {
	a := New(componentType, nil)

	assert.True(t, a.IsComponentType(reflect.TypeOf((*store)(nil)).Elem()))
	assert.True(t, a.IsComponentType(reflect.TypeOf(&memStore{})))
	assert.False(t, a.IsComponentType(reflect.TypeOf(memStore{})))
	assert.False(t, a.IsComponentType(reflect.TypeOf("")))
}

func TestKindString(t *testing.T) {
	assert.Equal(t, "ComponentMap", ComponentMap.String())
	assert.Equal(t, "Unknown(9)", Kind(9).String())
	assert.True(t, ComponentArray.IsComponent())
	assert.False(t, DataConverted.IsComponent())
}

type methods struct{}

func (*methods) Run(n int, s []string)   {}
func (*methods) Fail() error             { return nil }
func (*methods) Value() (int, error)     { return 0, nil }

func TestMethodHelpers(t *testing.T) {
	run, ok := Method(reflect.TypeOf(methods{}), "Run")
	require.True(t, ok)
	assert.Equal(t, []reflect.Type{reflect.TypeOf(0), reflect.TypeOf([]string(nil))}, Inputs(run))
	assert.True(t, ReturnsNothing(run))
	assert.True(t, InputsMatch(run, []reflect.Type{reflect.TypeOf(0), reflect.TypeOf([]string(nil))}))
	assert.False(t, InputsMatch(run, []reflect.Type{reflect.TypeOf(0)}))

	fail, ok := Method(reflect.TypeOf(&methods{}), "Fail")
	require.True(t, ok)
	assert.True(t, ReturnsOnlyError(fail))

	value, _ := Method(reflect.TypeOf(methods{}), "Value")
	assert.False(t, ReturnsOnlyError(value))

	_, ok = Method(reflect.TypeOf(methods{}), "Missing")
	assert.False(t, ok)
}
