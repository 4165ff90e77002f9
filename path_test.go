package cascade

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplitPath(t *testing.T) {
	tests := []struct {
		name string
		path string
		want []string
	}{
		{"single segment", "host", []string{"host"}},
		{"forward slashes", "server/http/port", []string{"server", "http", "port"}},
		{"backslash delimiter", `server\http\port`, []string{"server", "http", "port"}},
		{"mixed delimiters", `server\http/port`, []string{"server", "http", "port"}},
		{"leading slash", "/server/port", []string{"server", "port"}},
		{"trailing slash", "server/port/", []string{"server", "port"}},
		{"doubled slashes", "server//port", []string{"server", "port"}},
		{"escaped slash", `a\/b/c`, []string{"a/b", "c"}},
		{"escaped backslash", `a\\b/c`, []string{`a\b`, "c"}},
		{"escape at end", `a/b\/`, []string{"a", "b/"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := splitPath(tt.path)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	t.Run("empty paths rejected", func(t *testing.T) {
		for _, path := range []string{"", "   ", "/", "//", `\`} {
			_, err := splitPath(path)
			assert.ErrorIs(t, err, ErrEmptyPath, "path %q", path)
		}
	})
}

func TestEscapeName(t *testing.T) {
	tests := []struct {
		name    string
		escaped string
	}{
		{"plain", "plain"},
		{"a/b", `a\/b`},
		{`a\b`, `a\\b`},
		{`/`, `\/`},
		{`a/b\c`, `a\/b\\c`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.escaped, EscapeName(tt.name))
			assert.Equal(t, tt.name, UnescapeName(tt.escaped))
		})
	}
}

func TestEscapedNameRoundTrip(t *testing.T) {
	root, err := NewRoot("machine", nil)
	require.NoError(t, err)

	// A node whose name contains a delimiter must address cleanly once
	// escaped.
	odd := EscapeName("odd/name")
	_, err = SetValue(root, odd+"/port", 8080)
	require.NoError(t, err)

	v, err := GetValue[int](root, odd+"/port")
	require.NoError(t, err)
	assert.Equal(t, 8080, v)

	child, err := root.Child(odd, false)
	require.NoError(t, err)
	require.NotNil(t, child)
	assert.Equal(t, "odd/name", child.Name())
	assert.Equal(t, "/"+odd, child.Path())
}

func TestArgumentErrorsNotWrapped(t *testing.T) {
	root, err := NewRoot("machine", nil)
	require.NoError(t, err)

	_, err = GetValue[int](root, "  ")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrEmptyPath)

	var ce *ConfigError
	assert.False(t, errors.As(err, &ce), "argument errors stay bare sentinels")
}
