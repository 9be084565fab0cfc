package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/language"
)

func TestParse(t *testing.T) {
	t.Run("help exits cleanly", func(t *testing.T) {
		var out bytes.Buffer
		cfg, shouldExit, err := parse([]string{"-h"}, &out)
		require.NoError(t, err)
		assert.True(t, shouldExit)
		assert.Nil(t, cfg)
		assert.Contains(t, out.String(), "Usage:")
	})

	t.Run("flags and arguments", func(t *testing.T) {
		cfg, shouldExit, err := parse([]string{
			"-config", "a.yaml", "-config", "b.hcl",
			"-messages", "m.yaml",
			"-node", "n1", "-command-addr", ":7070",
			"-log-level", "DEBUG", "-locale", "fr", "-check",
			"c.yml",
		}, &bytes.Buffer{})
		require.NoError(t, err)
		assert.False(t, shouldExit)

		assert.Equal(t, []string{"a.yaml", "b.hcl", "c.yml"}, cfg.options.ConfigFiles)
		assert.Equal(t, []string{"m.yaml"}, cfg.options.MessageFiles)
		assert.Equal(t, "n1", cfg.options.NodeID)
		assert.Equal(t, ":7070", cfg.options.CommandAddress)
		assert.Equal(t, "debug", cfg.options.LogLevel)
		assert.Equal(t, language.French, cfg.options.Locale)
		assert.True(t, cfg.check)
	})

	tests := []struct {
		name string
		args []string
	}{
		{"no configuration", nil},
		{"unknown flag", []string{"-nope", "a.yaml"}},
		{"bad log level", []string{"-log-level", "loud", "a.yaml"}},
		{"bad locale", []string{"-locale", "!!", "a.yaml"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := parse(tt.args, &bytes.Buffer{})
			var exitErr *ExitError
			require.ErrorAs(t, err, &exitErr)
			assert.Equal(t, 2, exitErr.Code)
		})
	}
}

func TestRun(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "app.hcl")
	require.NoError(t, os.WriteFile(path, []byte(`
node_id = "node-1"
properties = {
  "application.name" = "demo"
}
`), 0o600))

	t.Run("check", func(t *testing.T) {
		var out bytes.Buffer
		require.NoError(t, run(t.Context(), &out, []string{"-check", "-log-level", "error", path}))
		assert.Contains(t, out.String(), `configuration ok: 0 components, node "node-1"`)
	})

	t.Run("runs until the context ends", func(t *testing.T) {
		ctx, cancel := context.WithTimeout(t.Context(), 200*time.Millisecond)
		defer cancel()

		assert.NoError(t, run(ctx, &bytes.Buffer{}, []string{"-log-level", "error", path}))
	})

	t.Run("invalid configuration", func(t *testing.T) {
		bad := filepath.Join(dir, "bad.hcl")
		require.NoError(t, os.WriteFile(bad, []byte(`component "x" {`), 0o600))

		err := run(t.Context(), &bytes.Buffer{}, []string{"-log-level", "error", bad})
		assert.ErrorContains(t, err, "parse")
	})
}
