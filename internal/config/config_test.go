package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestLoadDefaults(t *testing.T) {
	// Change to temp dir so no config.yaml is found
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(origDir) })

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "Leads", cfg.Airtable.LeadsTable)
	assert.Equal(t, "Outreach Log", cfg.Airtable.OutreachTable)
	assert.Equal(t, "https://api.airtable.com/v0", cfg.Airtable.BaseURL)
	assert.Equal(t, 10, cfg.Airtable.DeleteBatchSize)
	assert.Equal(t, "claude-haiku-4-5-20251001", cfg.Anthropic.Model)
	assert.Equal(t, int64(256), cfg.Anthropic.MaxTokens)
	assert.Equal(t, 25, cfg.Reddit.PostLimit)
	assert.Contains(t, cfg.Reddit.Subreddits, "caregivers")
	assert.Equal(t, "https://newhaven.craigslist.org", cfg.Craigslist.BaseURL)
	assert.Equal(t, "lss", cfg.Craigslist.Section)
	assert.Equal(t, 3, cfg.Craigslist.Pages)
	assert.Equal(t, 40, cfg.Pipeline.DeleteThreshold)
	assert.Equal(t, 80, cfg.Pipeline.OutreachThreshold)
	assert.Equal(t, 30, cfg.Pipeline.OutreachSleepSecs)
	assert.Equal(t, 5, cfg.Pipeline.OutreachRetryCap)
	assert.Equal(t, 1200, cfg.Pipeline.ScoreDelayMs)
	assert.Equal(t, 2, cfg.Pipeline.SourceDelaySecs)
	assert.Equal(t, "New Haven County", cfg.Pipeline.Region)
	assert.Contains(t, cfg.Pipeline.Keywords, "caregiver")
	assert.Equal(t, "leadgen.db", cfg.Ledger.Path)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
}

func TestLoadFromYAML(t *testing.T) {
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(origDir) })

	yaml := `
airtable:
  leads_table: Prospects
pipeline:
  outreach_threshold: 70
log:
  level: debug
  format: console
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0644))

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "Prospects", cfg.Airtable.LeadsTable)
	assert.Equal(t, 70, cfg.Pipeline.OutreachThreshold)
	assert.Equal(t, "debug", cfg.Log.Level)
	// Defaults still apply for unset values
	assert.Equal(t, 40, cfg.Pipeline.DeleteThreshold)
}

func TestLoadEnvOverridesFile(t *testing.T) {
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(origDir) })

	yaml := `
log:
  level: debug
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0644))

	t.Setenv("LEADGEN_LOG_LEVEL", "warn")
	t.Setenv("LEADGEN_AIRTABLE_API_KEY", "pat-from-env")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "warn", cfg.Log.Level)
	assert.Equal(t, "pat-from-env", cfg.Airtable.APIKey)
}

func TestInitLoggerConsole(t *testing.T) {
	err := InitLogger(LogConfig{Level: "debug", Format: "console"})
	require.NoError(t, err)
	assert.NotNil(t, zap.L())
}

func TestInitLoggerInvalidLevel(t *testing.T) {
	err := InitLogger(LogConfig{Level: "invalid", Format: "json"})
	assert.Error(t, err)
}

func TestValidateStore(t *testing.T) {
	cfg := &Config{}
	cfg.Airtable.APIKey = "pat"
	cfg.Airtable.BaseID = "appX"
	assert.NoError(t, cfg.Validate("store"))

	cfg.Airtable.BaseID = ""
	err := cfg.Validate("store")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "airtable.base_id")
}

func TestValidateScore(t *testing.T) {
	cfg := &Config{}
	err := cfg.Validate("score")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "anthropic.key")

	cfg.Anthropic.Key = "sk-ant"
	assert.NoError(t, cfg.Validate("score"))
}

func TestValidateOutreach_CollectsAllMissing(t *testing.T) {
	cfg := &Config{}
	cfg.Reddit.ClientID = "cid"

	err := cfg.Validate("outreach")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "reddit.client_secret")
	assert.Contains(t, err.Error(), "reddit.username")
	assert.Contains(t, err.Error(), "reddit.password")
	assert.NotContains(t, err.Error(), "reddit.client_id")
}

func TestValidateMultipleModes(t *testing.T) {
	cfg := &Config{}
	cfg.Airtable.APIKey = "pat"
	cfg.Airtable.BaseID = "appX"
	cfg.Anthropic.Key = "sk-ant"

	assert.NoError(t, cfg.Validate("store", "score"))
}

func TestValidateUnknownMode(t *testing.T) {
	cfg := &Config{}
	assert.Error(t, cfg.Validate("bogus"))
}
