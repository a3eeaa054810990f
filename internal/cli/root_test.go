package cli

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/ogulcanaydogan/slack-alert-processor/internal/config"
	"github.com/ogulcanaydogan/slack-alert-processor/pkg/platform"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	return &config.Config{
		Device:  config.DeviceConfig{AgentID: "pump-7", IncludeName: true},
		Storage: config.StorageConfig{Backend: "sqlite", Path: filepath.Join(t.TempDir(), "tags.db")},
	}
}

func TestInitDeps_RequiresAgentID(t *testing.T) {
	cfg := testConfig(t)
	cfg.Device.AgentID = ""

	_, _, err := initDeps(context.Background(), cfg, "")
	assert.ErrorContains(t, err, "device.agent_id")
}

func TestInitDeps_RequiresPlatform(t *testing.T) {
	_, _, err := initDeps(context.Background(), testConfig(t), "")
	assert.ErrorContains(t, err, "platform.base_url")
}

func TestInitDeps_StateFile(t *testing.T) {
	state := filepath.Join(t.TempDir(), "state.yaml")
	require.NoError(t, os.WriteFile(state, []byte("pump-7:\n  name: Pump 7\n"), 0o644))

	plat, store, err := initDeps(context.Background(), testConfig(t), state)
	require.NoError(t, err)
	defer store.Close()

	assert.IsType(t, &platform.Static{}, plat)
	name, err := plat.AgentName(context.Background(), "pump-7")
	require.NoError(t, err)
	assert.Equal(t, "Pump 7", name)
}

func TestInitDeps_RESTPlatform(t *testing.T) {
	cfg := testConfig(t)
	cfg.Platform.BaseURL = "http://platform.invalid"

	plat, store, err := initDeps(context.Background(), cfg, "")
	require.NoError(t, err)
	defer store.Close()
	assert.IsType(t, &platform.Client{}, plat)
}

func TestInitProcessor_UsesSharedDeps(t *testing.T) {
	cfg := testConfig(t)
	cfg.Device.AgentID = ""
	_, _, err := initProcessor(context.Background(), cfg, "", nil)
	assert.ErrorContains(t, err, "device.agent_id")
}
