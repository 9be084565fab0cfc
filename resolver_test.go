package unify

import (
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type resolverTestComponent struct {
	Base
}

func descriptorsNamed(names ...string) []*Descriptor {
	out := make([]*Descriptor, len(names))
	for i, n := range names {
		out[i] = &Descriptor{Name: n, Type: reflect.TypeFor[resolverTestComponent]()}
	}
	return out
}

func namesOf(descriptors []*Descriptor) []string {
	names := make([]string, len(descriptors))
	for i, d := range descriptors {
		names[i] = d.Name
	}
	return names
}

func TestApplyCustomizations(t *testing.T) {
	tests := []struct {
		name          string
		descriptors   []string
		suffixes      []string
		wantNames     []string
		wantOverrides map[string]string
	}{
		{
			name:          "no suffixes",
			descriptors:   []string{"a", "a_x"},
			wantNames:     []string{"a", "a_x"},
			wantOverrides: map[string]string{},
		},
		{
			name:          "suffix replaces the base in place",
			descriptors:   []string{"a", "b", "a_x"},
			suffixes:      []string{"x"},
			wantNames:     []string{"a", "b"},
			wantOverrides: map[string]string{"a_x": "a"},
		},
		{
			name:          "suffix without a base adds the base name",
			descriptors:   []string{"b", "c_x"},
			suffixes:      []string{"x"},
			wantNames:     []string{"b", "c"},
			wantOverrides: map[string]string{"c_x": "c"},
		},
		{
			name:          "blank suffixes are ignored",
			descriptors:   []string{"a", "a_"},
			suffixes:      []string{" "},
			wantNames:     []string{"a", "a_"},
			wantOverrides: map[string]string{},
		},
		{
			name:          "a bare suffix is not a customization",
			descriptors:   []string{"_x"},
			suffixes:      []string{"x"},
			wantNames:     []string{"_x"},
			wantOverrides: map[string]string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			overrides := make(map[string]string)
			got := applyCustomizations(descriptorsNamed(tt.descriptors...), tt.suffixes, overrides)
			assert.Equal(t, tt.wantNames, namesOf(got))
			assert.Equal(t, tt.wantOverrides, overrides)
		})
	}

	t.Run("earlier suffixes take precedence", func(t *testing.T) {
		in := descriptorsNamed("a", "a_fr", "a_de")
		in[1].Description = "fr"
		in[2].Description = "de"

		got := applyCustomizations(in, []string{"de", "fr"}, make(map[string]string))
		require.Len(t, got, 1)
		assert.Equal(t, "a", got[0].Name)
		assert.Equal(t, "de", got[0].Description)
		assert.Equal(t, "a_fr", in[1].Name, "input descriptors are not modified")
	})
}

func TestNameResolver(t *testing.T) {
	r := newNameResolver(map[string]string{
		"primary":  "store",
		"fallback": "store_x",
		"dangling": "missing",
	})
	r.known["store"] = true
	r.overrides["store_x"] = "store"

	tests := []struct {
		name   string
		want   string
		wantOK bool
	}{
		{"store", "store", true},
		{"store_x", "store", true},
		{"primary", "store", true},
		{"fallback", "store", true},
		{"dangling", "", false},
		{"missing", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := r.resolve(tt.name)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestTrail(t *testing.T) {
	var tr trail
	a := &instanceHolder{name: "a"}
	b := &instanceHolder{name: "b"}

	tr.push("a", a)
	tr.push("b", b)
	assert.Equal(t, []string{"a", "b"}, tr.names())
	assert.Same(t, a, tr.find("a"))
	assert.Nil(t, tr.find("c"))

	tr.pop()
	assert.Nil(t, tr.find("b"))
	assert.Equal(t, []string{"a"}, tr.names())
}
