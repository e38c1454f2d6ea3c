package setup

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigurePreservesOtherEntries(t *testing.T) {
	dir := t.TempDir()
	configPath := filepath.Join(dir, "Claude", "claude_desktop_config.json")
	require.NoError(t, os.MkdirAll(filepath.Dir(configPath), 0755))
	require.NoError(t, os.WriteFile(configPath, []byte(`{
  "globalShortcut": "Ctrl+Space",
  "mcpServers": {"other": {"command": "/bin/other"}}
}`), 0644))

	binary := filepath.Join(dir, "mcp-server")
	require.NoError(t, os.WriteFile(binary, []byte("#!/bin/sh\n"), 0755))

	written, err := Configure(Options{
		ConfigPath: configPath,
		BinaryPath: binary,
		DataDir:    "/data/emcalc",
		Env:        map[string]string{"EMCALC_LOG_LEVEL": "debug"},
	})
	require.NoError(t, err)
	assert.Equal(t, configPath, written)

	raw, err := os.ReadFile(configPath)
	require.NoError(t, err)
	var doc map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(raw, &doc))
	assert.JSONEq(t, `"Ctrl+Space"`, string(doc["globalShortcut"]))

	config, err := LoadClaudeDesktopConfig(configPath)
	require.NoError(t, err)
	assert.Contains(t, config.MCPServers, "other")
	server := config.MCPServers[ServerName]
	assert.Equal(t, binary, server.Command)
	assert.Equal(t, "/data/emcalc", server.Env["EMCALC_DATA_DIR"])
	assert.Equal(t, "debug", server.Env["EMCALC_LOG_LEVEL"])

	status, err := GetStatus(configPath)
	require.NoError(t, err)
	assert.True(t, status.Configured)
	assert.Empty(t, status.Issues)
	assert.Equal(t, "/data/emcalc", status.DataDir)
}

func TestStatusAndRemove(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "claude_desktop_config.json")

	status, err := GetStatus(configPath)
	require.NoError(t, err)
	assert.False(t, status.Configured)
	assert.NotEmpty(t, status.Issues)

	_, err = Configure(Options{ConfigPath: configPath, BinaryPath: "/missing/mcp-server"})
	require.NoError(t, err)

	status, err = GetStatus(configPath)
	require.NoError(t, err)
	assert.True(t, status.Configured)
	require.Len(t, status.Issues, 1)
	assert.Contains(t, status.Issues[0], "/missing/mcp-server")

	removed, err := Remove(configPath)
	require.NoError(t, err)
	assert.True(t, removed)

	removed, err = Remove(configPath)
	require.NoError(t, err)
	assert.False(t, removed)
}

func TestLoadClaudeDesktopConfigRejectsGarbage(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "claude_desktop_config.json")
	require.NoError(t, os.WriteFile(configPath, []byte("not json"), 0644))

	_, err := LoadClaudeDesktopConfig(configPath)
	assert.Error(t, err)
}
