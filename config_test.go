package wasm2rs

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestOptionsWithDefaults(t *testing.T) {
	opts := Options{}.withDefaults()
	require.Equal(t, DefaultMaxPages, opts.MaxPages)
	require.Equal(t, "safe", opts.Mode)

	custom := Options{MaxPages: 10, Mode: "safe"}.withDefaults()
	require.Equal(t, 10, custom.MaxPages)
}

func TestLoadOptionsFromYAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "wasm2rs.yaml")
	require.NoError(t, os.WriteFile(path, []byte("max_pages: 64\nmode: safe\n"), 0o644))

	opts, err := LoadOptions(path)
	require.NoError(t, err)
	require.Equal(t, 64, opts.MaxPages)
	require.Equal(t, "safe", opts.Mode)
}

func TestLoadOptionsMissingFile(t *testing.T) {
	_, err := LoadOptions(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
}

func TestValidMode(t *testing.T) {
	require.True(t, validMode("safe"))
	require.True(t, validMode("SAFE"))
	require.False(t, validMode("unsafe"))
}
