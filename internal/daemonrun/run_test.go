package daemonrun

import (
	"context"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"concierge/internal/testsupport"
)

func TestWritePIDFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "concierge.pid")
	require.NoError(t, writePIDFile(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, strconv.Itoa(os.Getpid()), strings.TrimSpace(string(data)))

	assert.NoError(t, writePIDFile(""))
}

func TestEnsureCurrentLogPointerReplacesExisting(t *testing.T) {
	dir := t.TempDir()
	first := filepath.Join(dir, "concierge-1.log")
	second := filepath.Join(dir, "concierge-2.log")
	require.NoError(t, os.WriteFile(first, []byte("first\n"), 0o644))
	require.NoError(t, os.WriteFile(second, []byte("second\n"), 0o644))

	require.NoError(t, ensureCurrentLogPointer(dir, first))
	require.NoError(t, ensureCurrentLogPointer(dir, second))

	data, err := os.ReadFile(filepath.Join(dir, "concierge.log"))
	require.NoError(t, err)
	assert.Equal(t, "second\n", string(data))
}

func TestRunRequiresConfig(t *testing.T) {
	require.Error(t, Run(context.Background(), nil, Options{}))
}

func TestRunFailsWithoutProviderKey(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.Research.APIKey = ""

	err := Run(context.Background(), cfg, Options{LogLevel: "error"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "research provider")
	_, statErr := os.Stat(cfg.PIDPath())
	assert.True(t, os.IsNotExist(statErr), "pid file should be removed")
}
