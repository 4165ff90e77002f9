package cascade

import (
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuiltinConverters(t *testing.T) {
	tests := []struct {
		name  string
		value any
		text  string
	}{
		{"string", "hello", "hello"},
		{"bool", true, "true"},
		{"int", int(-42), "-42"},
		{"int64", int64(1 << 40), "1099511627776"},
		{"uint16", uint16(65535), "65535"},
		{"float64", 3.25, "3.25"},
		{"duration", 90 * time.Second, "1m30s"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			conv, ok := converterFor(reflect.TypeOf(tt.value), nil)
			require.True(t, ok)

			s, err := conv.ToString(tt.value)
			require.NoError(t, err)
			assert.Equal(t, tt.text, s)

			v, err := conv.FromString(s)
			require.NoError(t, err)
			assert.Equal(t, tt.value, v)
		})
	}
}

func TestTimeConverterRoundTrip(t *testing.T) {
	conv, ok := converterFor(reflect.TypeOf(time.Time{}), nil)
	require.True(t, ok)

	now := time.Date(2025, 6, 1, 12, 30, 0, 123456789, time.UTC)
	s, err := conv.ToString(now)
	require.NoError(t, err)

	v, err := conv.FromString(s)
	require.NoError(t, err)
	assert.True(t, now.Equal(v.(time.Time)))
}

func TestSliceConverter(t *testing.T) {
	t.Run("string slice", func(t *testing.T) {
		conv, ok := converterFor(reflect.TypeOf([]string(nil)), nil)
		require.True(t, ok)

		s, err := conv.ToString([]string{"a", "b", "c"})
		require.NoError(t, err)
		assert.Equal(t, "a,b,c", s)

		v, err := conv.FromString("x, y ,z")
		require.NoError(t, err)
		assert.Equal(t, []string{"x", "y", "z"}, v)
	})

	t.Run("int slice", func(t *testing.T) {
		conv, ok := converterFor(reflect.TypeOf([]int(nil)), nil)
		require.True(t, ok)

		s, err := conv.ToString([]int{1, 2, 3})
		require.NoError(t, err)
		assert.Equal(t, "1,2,3", s)

		v, err := conv.FromString(s)
		require.NoError(t, err)
		assert.Equal(t, []int{1, 2, 3}, v)
	})

	t.Run("empty string yields empty slice", func(t *testing.T) {
		conv, ok := converterFor(reflect.TypeOf([]string(nil)), nil)
		require.True(t, ok)

		v, err := conv.FromString("")
		require.NoError(t, err)
		assert.Equal(t, []string{}, v)
	})

	t.Run("inconvertible element type", func(t *testing.T) {
		_, ok := converterFor(reflect.TypeOf([]chan int(nil)), nil)
		assert.False(t, ok)
	})
}

// logLevel exercises the automatic text conversion path for
// enumeration-style types.
type logLevel int

const (
	levelInfo logLevel = iota
	levelWarn
)

func (l logLevel) MarshalText() ([]byte, error) {
	if l == levelWarn {
		return []byte("warn"), nil
	}
	return []byte("info"), nil
}

func (l *logLevel) UnmarshalText(text []byte) error {
	if string(text) == "warn" {
		*l = levelWarn
	} else {
		*l = levelInfo
	}
	return nil
}

func TestTextMarshalerConverter(t *testing.T) {
	conv, ok := converterFor(reflect.TypeOf(levelInfo), nil)
	require.True(t, ok, "TextMarshaler types convert without registration")

	s, err := conv.ToString(levelWarn)
	require.NoError(t, err)
	assert.Equal(t, "warn", s)

	v, err := conv.FromString("warn")
	require.NoError(t, err)
	assert.Equal(t, levelWarn, v)
}

func TestConverterOverridePrecedence(t *testing.T) {
	overrides := NewConverters()
	overrides.Register(reflect.TypeOf(""), Converter{
		ToString:   func(v any) (string, error) { return strings.ToUpper(v.(string)), nil },
		FromString: func(s string) (any, error) { return strings.ToLower(s), nil },
	})

	conv, ok := converterFor(reflect.TypeOf(""), overrides)
	require.True(t, ok)

	s, err := conv.ToString("loud")
	require.NoError(t, err)
	assert.Equal(t, "LOUD", s, "override registry wins over the global one")

	// Without overrides the global converter is untouched.
	conv, ok = converterFor(reflect.TypeOf(""), nil)
	require.True(t, ok)
	s, err = conv.ToString("loud")
	require.NoError(t, err)
	assert.Equal(t, "loud", s)
}

func TestConvertible(t *testing.T) {
	assert.True(t, convertible(reflect.TypeOf(""), nil))
	assert.True(t, convertible(reflect.TypeOf(time.Duration(0)), nil))
	assert.True(t, convertible(reflect.TypeOf([]float64(nil)), nil))
	assert.False(t, convertible(reflect.TypeOf(make(chan int)), nil))
	assert.False(t, convertible(reflect.TypeOf(struct{ X int }{}), nil))
}
