package upl_test

import (
	"testing"

	"github.com/junioryono/unify/upl"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		descriptor string
		component  string
		attributes map[string]string
	}{
		{
			name:       "component only",
			descriptor: "!ui-label",
			component:  "ui-label",
			attributes: map[string]string{},
		},
		{
			name:       "plain attributes",
			descriptor: "!ui-textfield key:userName maxLen:32",
			component:  "ui-textfield",
			attributes: map[string]string{"key": "userName", "maxLen": "32"},
		},
		{
			name:       "quoted value",
			descriptor: "  !ui-label caption:'User Name'  ",
			component:  "ui-label",
			attributes: map[string]string{"caption": "User Name"},
		},
		{
			name:       "escaped quote",
			descriptor: "!ui-label caption:'It''s here'",
			component:  "ui-label",
			attributes: map[string]string{"caption": "It's here"},
		},
		{
			name:       "empty quoted value",
			descriptor: "!ui-label caption:''",
			component:  "ui-label",
			attributes: map[string]string{"caption": ""},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			el, err := upl.Parse(tt.descriptor)
			require.NoError(t, err)
			assert.Equal(t, tt.component, el.Component)
			assert.Equal(t, tt.attributes, el.Attributes)
		})
	}
}

func TestParseErrors(t *testing.T) {
	t.Parallel()

	t.Run("empty", func(t *testing.T) {
		_, err := upl.Parse("   ")
		assert.ErrorIs(t, err, upl.ErrEmptyDescriptor)
	})

	for _, descriptor := range []string{
		"ui-label",
		"!",
		"!ui-label caption",
		"!ui-label caption:'open",
		"!ui-label a:1 a:2",
	} {
		t.Run(descriptor, func(t *testing.T) {
			_, err := upl.Parse(descriptor)
			var syntaxErr upl.SyntaxError
			require.ErrorAs(t, err, &syntaxErr)
			assert.Equal(t, descriptor, syntaxErr.Descriptor)
		})
	}
}

func TestElementKeyAndString(t *testing.T) {
	t.Parallel()

	el, err := upl.Parse("!ui-label caption:'Hello World' key:greeting")
	require.NoError(t, err)
	assert.Equal(t, "greeting", el.Key())
	assert.Equal(t, "!ui-label caption:'Hello World' key:greeting", el.String())

	again, err := upl.Parse(el.String())
	require.NoError(t, err)
	assert.Equal(t, el, again)

	noKey, err := upl.Parse("!ui-label")
	require.NoError(t, err)
	assert.Equal(t, "ui-label", noKey.Key())
}
