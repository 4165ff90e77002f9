package cascade

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type serverConfig struct {
	Host    string        `config:"host"`
	Port    int           `config:"port"`
	Timeout time.Duration `config:"timeout"`
	Tags    []string      `config:"tags"`
}

type appConfig struct {
	Name   string       `config:"name"`
	Server serverConfig `config:"server"`
}

func TestScan(t *testing.T) {
	root, err := NewRoot("machine", nil)
	require.NoError(t, err)
	_, err = SetValue(root, "name", "edge-1")
	require.NoError(t, err)
	_, err = SetValue(root, "server/host", "example.org")
	require.NoError(t, err)
	_, err = SetValue(root, "server/port", 8443)
	require.NoError(t, err)
	_, err = SetValue(root, "server/timeout", 30*time.Second)
	require.NoError(t, err)
	_, err = SetValue(root, "server/tags", []string{"prod", "dmz"})
	require.NoError(t, err)

	var cfg appConfig
	require.NoError(t, root.Scan(&cfg))

	assert.Equal(t, "edge-1", cfg.Name)
	assert.Equal(t, "example.org", cfg.Server.Host)
	assert.Equal(t, 8443, cfg.Server.Port)
	assert.Equal(t, 30*time.Second, cfg.Server.Timeout)
	assert.Equal(t, []string{"prod", "dmz"}, cfg.Server.Tags)
}

func TestScanResolvesInheritance(t *testing.T) {
	defaults, err := NewRoot("machine", nil)
	require.NoError(t, err)
	_, err = SetValue(defaults, "server/host", "default.example")
	require.NoError(t, err)
	_, err = SetValue(defaults, "server/port", 8080)
	require.NoError(t, err)

	derived := NewDerived(defaults, nil)
	_, err = SetValue(derived, "server/port", 9090)
	require.NoError(t, err)

	var cfg appConfig
	require.NoError(t, derived.Scan(&cfg))

	assert.Equal(t, "default.example", cfg.Server.Host, "inherited value resolves")
	assert.Equal(t, 9090, cfg.Server.Port, "own value overrides")
}

func TestScanSkipsUnresolvedItems(t *testing.T) {
	root, err := NewRoot("machine", nil)
	require.NoError(t, err)
	_, err = SetItem[string](root, "server/host")
	require.NoError(t, err)
	_, err = SetValue(root, "server/port", 8443)
	require.NoError(t, err)

	cfg := appConfig{Server: serverConfig{Host: "unchanged"}}
	require.NoError(t, root.Scan(&cfg))

	assert.Equal(t, "unchanged", cfg.Server.Host, "valueless items leave the field alone")
	assert.Equal(t, 8443, cfg.Server.Port)
}

func TestScanWeakTyping(t *testing.T) {
	root, err := NewRoot("machine", nil)
	require.NoError(t, err)
	_, err = SetValue(root, "server/timeout", "45s")
	require.NoError(t, err)
	_, err = SetValue(root, "server/tags", "prod,dmz")
	require.NoError(t, err)
	_, err = SetValue(root, "server/port", int64(8443))
	require.NoError(t, err)

	var cfg appConfig
	require.NoError(t, root.Scan(&cfg))

	assert.Equal(t, 45*time.Second, cfg.Server.Timeout, "duration strings decode")
	assert.Equal(t, []string{"prod", "dmz"}, cfg.Server.Tags, "comma-joined strings decode")
	assert.Equal(t, 8443, cfg.Server.Port, "integer widths convert")
}
