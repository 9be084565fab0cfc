package unify_test

import (
	"errors"
	"testing"

	"github.com/junioryono/unify"
	"github.com/junioryono/unify/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestModules(t *testing.T) {
	t.Run("nested modules register everything", func(t *testing.T) {
		greeters := unify.NewModule("greeters",
			unify.AddComponent("english", (*testutil.EnglishGreeter)(nil), unify.Preferred()),
			unify.AddComponent("french", (*testutil.FrenchGreeter)(nil)),
			nil,
		)
		app := unify.NewModule("app",
			greeters,
			unify.AddComponent("hub", (*testutil.Hub)(nil)),
			unify.Alias("greeter", "french"),
			unify.Property(unify.PropertyApplicationName, "demo"),
			unify.PropertyIfBlank(unify.PropertyApplicationName, "ignored"),
		)

		cfg := testutil.NewConfigBuilder(t).WithModule(app).Build()
		c := testutil.Start(t, cfg)

		hub := testutil.Get[*testutil.Hub](t, c, "hub")
		assert.Len(t, hub.Greeters, 2)

		g := testutil.Get[testutil.Greeter](t, c, "greeter")
		assert.Equal(t, "bonjour x", g.Greet("x"))

		name, ok := c.Property(unify.PropertyApplicationName)
		require.True(t, ok)
		assert.Equal(t, "demo", name)
	})

	t.Run("errors name the module chain", func(t *testing.T) {
		inner := unify.NewModule("inner", unify.AddComponent("bad", nil))
		outer := unify.NewModule("outer", inner)

		err := unify.NewConfigBuilder().Install(outer)
		require.Error(t, err)

		var modErr unify.ModuleError
		require.ErrorAs(t, err, &modErr)
		assert.Equal(t, "outer", modErr.Module)
		assert.Contains(t, err.Error(), `module "outer": module "inner"`)

		var regErr unify.RegistrationError
		require.ErrorAs(t, err, &regErr)
		assert.Equal(t, "bad", regErr.Name)
	})

	t.Run("custom module options", func(t *testing.T) {
		boom := errors.New("boom")
		m := unify.NewModule("custom", func(*unify.ConfigBuilder) error { return boom })

		err := unify.NewConfigBuilder().Install(nil, m)
		assert.ErrorIs(t, err, boom)
	})
}
