package unify_test

import (
	"reflect"
	"testing"

	"github.com/junioryono/unify"
	"github.com/junioryono/unify/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTypeRegistry(t *testing.T) {
	tests := []struct {
		name    string
		sample  any
		want    reflect.Type
		wantErr bool
	}{
		{"component pointer", (*testutil.Widget)(nil), reflect.TypeFor[testutil.Widget](), false},
		{"capability pointer", (*testutil.Greeter)(nil), reflect.TypeFor[testutil.Greeter](), false},
		{"reflect type", reflect.TypeFor[testutil.Greeter](), reflect.TypeFor[testutil.Greeter](), false},
		{"plain struct", (*notAComponent)(nil), nil, true},
		{"plain interface", (*interface{ Foo() })(nil), nil, true},
		{"scalar", 42, nil, true},
		{"nil", nil, nil, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := unify.NewTypeRegistry()
			err := r.Register("t", tt.sample)
			if tt.wantErr {
				assert.Error(t, err)
				assert.Zero(t, r.Len())
				return
			}

			require.NoError(t, err)
			got, ok := r.Lookup("t")
			require.True(t, ok)
			assert.Equal(t, tt.want, got)

			name, ok := r.NameOf(tt.want)
			require.True(t, ok)
			assert.Equal(t, "t", name)
		})
	}

	t.Run("names are unique per type", func(t *testing.T) {
		r := unify.NewTypeRegistry()
		require.NoError(t, unify.RegisterType[*testutil.Widget](r, "widget"))
		require.NoError(t, unify.RegisterType[*testutil.Widget](r, "widget"))
		require.NoError(t, unify.RegisterType[*testutil.Widget](r, "gadget"))
		assert.Error(t, unify.RegisterType[*testutil.Tracked](r, "widget"))

		name, _ := r.NameOf(reflect.TypeFor[testutil.Widget]())
		assert.Equal(t, "widget", name, "first name wins")
		assert.Equal(t, 2, r.Len())
	})
}

func TestCapabilityTokens(t *testing.T) {
	cfg := testutil.NewConfigBuilder(t).
		WithComponent("english", (*testutil.EnglishGreeter)(nil), unify.Preferred()).
		WithComponent("hub", (*testutil.Hub)(nil), unify.WithSetting("greeters", "$c{testutil.EnglishGreeter}")).
		Build()

	c := testutil.Start(t, cfg)

	hub := testutil.Get[*testutil.Hub](t, c, "hub")
	require.Len(t, hub.Greeters, 1, "names missing from the registry fall back to component type names")
}
