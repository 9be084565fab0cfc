package convert

import (
	"errors"
	"net/netip"
	"reflect"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTo(t *testing.T) {
	tests := []struct {
		name   string
		values []string
		target any
		want   any
	}{
		{"string", []string{"hello"}, "", "hello"},
		{"string keeps spaces", []string{" x "}, "", " x "},
		{"bool", []string{"true"}, false, true},
		{"int", []string{" 42 "}, 0, 42},
		{"int8", []string{"-7"}, int8(0), int8(-7)},
		{"uint16", []string{"65535"}, uint16(0), uint16(65535)},
		{"float64", []string{"2.5"}, float64(0), 2.5},
		{"first value wins", []string{"1", "2"}, 0, 1},
		{"duration", []string{"1500ms"}, time.Duration(0), 1500 * time.Millisecond},
		{"duration millis", []string{"250"}, time.Duration(0), 250 * time.Millisecond},
		{"string slice", []string{"a", "b"}, []string(nil), []string{"a", "b"}},
		{"int slice", []string{"1", "2", "3"}, []int(nil), []int{1, 2, 3}},
		{"text unmarshaler", []string{"10.0.0.1"}, netip.Addr{}, netip.MustParseAddr("10.0.0.1")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := To(tt.values, reflect.TypeOf(tt.target))
			require.NoError(t, err)
			assert.Equal(t, tt.want, got.Interface())
		})
	}
}

func TestToPointer(t *testing.T) {
	got, err := To([]string{"9"}, reflect.TypeOf((*int)(nil)))
	require.NoError(t, err)

	p, ok := got.Interface().(*int)
	require.True(t, ok)
	assert.Equal(t, 9, *p)
}

func TestToErrors(t *testing.T) {
	t.Run("no value", func(t *testing.T) {
		_, err := To(nil, reflect.TypeOf(0))
		assert.True(t, errors.Is(err, ErrNoValue))
	})

	t.Run("bad int", func(t *testing.T) {
		_, err := To([]string{"x"}, reflect.TypeOf(0))
		var convErr Error
		require.True(t, errors.As(err, &convErr))
		assert.Equal(t, "x", convErr.Value)
	})

	t.Run("overflow", func(t *testing.T) {
		_, err := To([]string{"300"}, reflect.TypeOf(int8(0)))
		assert.Error(t, err)
	})

	t.Run("unsupported", func(t *testing.T) {
		_, err := To([]string{"x"}, reflect.TypeOf(struct{}{}))
		assert.True(t, errors.Is(err, ErrUnsupported))
	})

	t.Run("empty slice", func(t *testing.T) {
		got, err := To(nil, reflect.TypeOf([]string(nil)))
		require.NoError(t, err)
		assert.Equal(t, 0, got.Len())
	})
}

func TestSupported(t *testing.T) {
	assert.True(t, Supported(reflect.TypeOf("")))
	assert.True(t, Supported(reflect.TypeOf([]int(nil))))
	assert.True(t, Supported(reflect.TypeOf(time.Second)))
	assert.True(t, Supported(reflect.TypeOf(netip.Addr{})))
	assert.False(t, Supported(reflect.TypeOf(struct{}{})))
	assert.False(t, Supported(reflect.TypeOf([][]string(nil))))
	assert.False(t, Supported(reflect.TypeOf(map[string]string(nil))))
}
