package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"

	"github.com/pelletier/go-toml/v2"
	"github.com/stretchr/testify/require"

	"concierge/internal/config"
	"concierge/internal/daemon"
	"concierge/internal/logging"
	"concierge/internal/queue"
	"concierge/internal/research"
	"concierge/internal/testsupport"
	"concierge/internal/workflow"
)

type stubProvider struct {
	lookup func(ctx context.Context, guest queue.Guest) (research.Finding, error)
}

func (p stubProvider) Name() string { return "stub" }

func (p stubProvider) Lookup(ctx context.Context, guest queue.Guest) (research.Finding, error) {
	if p.lookup != nil {
		return p.lookup(ctx, guest)
	}
	return research.Finding{
		Summary:    "Public profile of " + guest.Name,
		Occupation: "Hotelier",
		Provider:   "stub",
	}, nil
}

func blockingLookup(ctx context.Context, _ queue.Guest) (research.Finding, error) {
	<-ctx.Done()
	return research.Finding{}, ctx.Err()
}

type cliTestEnv struct {
	cfg        *config.Config
	store      *queue.Store
	daemon     *daemon.Daemon
	guestIDs   []int64
	apiURL     string
	configPath string
}

func setupCLITestEnv(t *testing.T, provider research.Provider) *cliTestEnv {
	t.Helper()

	cfg := testsupport.NewConfig(t)
	home := filepath.Join(testsupport.BaseDir(cfg), "home")
	require.NoError(t, os.MkdirAll(home, 0o755))
	t.Setenv("HOME", home)

	configPath := filepath.Join(home, ".config", "concierge", "config.toml")
	writeTestConfig(t, configPath, cfg)

	store := testsupport.MustOpenStore(t, cfg)
	ids := testsupport.SeedGuests(t, store, 3)
	if provider == nil {
		provider = stubProvider{}
	}
	logger := logging.NewNop()
	mgr := workflow.NewManager(cfg, store, provider, logger)
	d, err := daemon.New(cfg, store, logger, mgr)
	require.NoError(t, err)
	require.NoError(t, d.Start(context.Background()))
	t.Cleanup(d.Stop)

	return &cliTestEnv{
		cfg:        cfg,
		store:      store,
		daemon:     d,
		guestIDs:   ids,
		apiURL:     "http://" + d.APIAddress(),
		configPath: configPath,
	}
}

func writeTestConfig(t *testing.T, path string, cfg *config.Config) {
	t.Helper()
	data, err := toml.Marshal(cfg)
	require.NoError(t, err)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, data, 0o644))
}

func runCLI(t *testing.T, args []string, apiURL, configPath string) (string, string, error) {
	t.Helper()
	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	var flags []string
	if apiURL != "" {
		flags = append(flags, "--api", apiURL)
	}
	if configPath != "" {
		flags = append(flags, "--config", configPath)
	}
	cmd.SetArgs(append(flags, args...))
	err := cmd.ExecuteContext(context.Background())
	return stdout.String(), stderr.String(), err
}

func (e *cliTestEnv) run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	out, _, err := runCLI(t, args, e.apiURL, e.configPath)
	return out, err
}

var startedPattern = regexp.MustCompile(`Queue (\S+) started`)

func startedQueueID(t *testing.T, output string) string {
	t.Helper()
	match := startedPattern.FindStringSubmatch(output)
	require.Len(t, match, 2, "no queue id in %q", output)
	return match[1]
}

func requireContains(t *testing.T, output, substr string) {
	t.Helper()
	if !strings.Contains(output, substr) {
		t.Fatalf("expected %q to contain %q", output, substr)
	}
}
