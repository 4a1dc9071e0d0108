package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigInitAndValidate(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("HOME", dir)
	target := filepath.Join(dir, "concierge.toml")

	out, _, err := runCLI(t, []string{"config", "init", "--path", target}, "", "")
	require.NoError(t, err)
	requireContains(t, out, "Wrote sample configuration to "+target)
	_, err = os.Stat(target)
	require.NoError(t, err)

	_, _, err = runCLI(t, []string{"config", "init", "--path", target}, "", "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--overwrite")

	_, _, err = runCLI(t, []string{"config", "init", "--path", target, "--overwrite"}, "", "")
	require.NoError(t, err)

	out, _, err = runCLI(t, []string{"config", "validate"}, "", target)
	require.NoError(t, err)
	requireContains(t, out, "Config path: "+target)
	requireContains(t, out, "Configuration valid")
}

func TestConfigValidateReportsParseErrors(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("HOME", dir)
	target := filepath.Join(dir, "broken.toml")
	require.NoError(t, os.WriteFile(target, []byte("[queue\nmax_concurrency = "), 0o644))

	_, _, err := runCLI(t, []string{"config", "validate"}, "", target)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "load config")
}
