package cmd

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/refixhq/refix-cli/internal/output"
)

// testEnv sets up isolated config dir, viper, and output for testing.
func testEnv(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()

	origFunc := configDirFunc
	configDirFunc = func() (string, error) { return dir, nil }
	t.Cleanup(func() { configDirFunc = origFunc })

	viper.Reset()
	viper.SetDefault("api.base_url", "https://api.refix.dev")
	viper.SetDefault("api.key", "")
	viper.SetDefault("auth.token", "")
	viper.SetDefault("auth.user_id", "")
	viper.SetDefault("db_path", filepath.Join(dir, "refix.db"))

	ui = output.New()

	return dir
}

func TestConfigInit_CreatesFile(t *testing.T) {
	dir := testEnv(t)

	err := configInitRun()
	require.NoError(t, err)

	data, err := os.ReadFile(filepath.Join(dir, "config.yaml"))
	require.NoError(t, err)
	assert.Contains(t, string(data), "api:")
	assert.Contains(t, string(data), "https://api.refix.dev")
}

func TestConfigInit_RefusesOverwrite(t *testing.T) {
	dir := testEnv(t)

	cfgPath := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte("api:\n  base_url: x\n"), 0644))

	configForce = false
	err := configInitRun()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already exists")
}

func TestConfigInit_ForceOverwrites(t *testing.T) {
	dir := testEnv(t)

	cfgPath := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte("old: true\n"), 0644))

	configForce = true
	t.Cleanup(func() { configForce = false })

	err := configInitRun()
	require.NoError(t, err)

	data, err := os.ReadFile(cfgPath)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "old: true")
}

func TestConfigShow_RunsWithoutFile(t *testing.T) {
	testEnv(t)

	err := configShowRun()
	assert.NoError(t, err)
}

func TestFlattenKeys(t *testing.T) {
	result := map[string]bool{}
	flattenKeys("", map[string]any{
		"db_path": "x",
		"api":     map[string]any{"base_url": "y"},
	}, result)

	assert.True(t, result["db_path"])
	assert.True(t, result["api.base_url"])
	assert.False(t, result["api"])
}

func TestDetectSource(t *testing.T) {
	t.Setenv("REFIX_TEST_SOURCE_KEY", "1")

	assert.Contains(t, detectSource("x", "REFIX_TEST_SOURCE_KEY", nil), "env")
	assert.Equal(t, "(file)", detectSource("db_path", "REFIX_NOPE", map[string]bool{"db_path": true}))
	assert.Equal(t, "(default)", detectSource("db_path", "REFIX_NOPE", nil))
}

func TestManifestLanguage(t *testing.T) {
	assert.Equal(t, "javascript", manifestLanguage("/a/package.json"))
	assert.Equal(t, "python", manifestLanguage("requirements.txt"))
	assert.Equal(t, "go", manifestLanguage("go.mod"))
	assert.Equal(t, "", manifestLanguage("README.md"))
}
