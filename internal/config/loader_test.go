package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dealflow/internal/directory"
)

func writeConfigFile(t *testing.T, dir, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, configFileName), []byte(content), 0o644))
}

func TestLoadConfig_MissingFileUsesDefaults(t *testing.T) {
	config, err := LoadConfig(t.TempDir())
	require.NoError(t, err)

	assert.Equal(t, DefaultBaseURL, config.CRM.BaseURL)
	assert.Equal(t, DefaultInterval, config.Scheduler.Interval.Std())
	assert.Equal(t, DefaultDealNameLayout, config.DealNameLayout)
	assert.Equal(t, "info", config.LogLevel)
}

func TestLoadConfig_YAMLOverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	writeConfigFile(t, dir, `
crm:
  accessToken: file-token
  deviceUuid: 7b0cbb7a-6ba4-4a6f-b807-1b871e25e3fb
roles:
  salesReps:
    strategy: email-pattern
    values: ["+salesrep@"]
  accountManagers:
    values: ["manager@example.com"]
onDuty:
  email: manager@example.com
scheduler:
  interval: 2m
dealNameLayout: "02 Jan 2006"
logLevel: debug
`)

	config, err := LoadConfig(dir)
	require.NoError(t, err)

	assert.Equal(t, "file-token", config.CRM.AccessToken)
	assert.Equal(t, "7b0cbb7a-6ba4-4a6f-b807-1b871e25e3fb", config.CRM.DeviceUUID)
	assert.Equal(t, directory.StrategyEmailPattern, config.Roles.SalesReps.Strategy)
	assert.Equal(t, []string{"+salesrep@"}, config.Roles.SalesReps.Values)
	assert.Equal(t, "manager@example.com", config.OnDuty.Email)
	assert.Equal(t, 2*time.Minute, config.Scheduler.Interval.Std())
	assert.Equal(t, "02 Jan 2006", config.DealNameLayout)
	// Untouched keys keep their defaults.
	assert.Equal(t, DefaultBaseURL, config.CRM.BaseURL)
	assert.False(t, config.Validate().HasErrors())
}

func TestLoadConfig_EnvOverridesYAML(t *testing.T) {
	dir := t.TempDir()
	writeConfigFile(t, dir, `
crm:
  accessToken: file-token
scheduler:
  interval: 2m
`)
	t.Setenv("DEALFLOW_CRM_ACCESS_TOKEN", "env-token")
	t.Setenv("DEALFLOW_SCHEDULER_INTERVAL", "30s")
	t.Setenv("DEALFLOW_ROLES_SALES_REPS_VALUES", "a@example.com,b@example.com")

	config, err := LoadConfig(dir)
	require.NoError(t, err)

	assert.Equal(t, "env-token", config.CRM.AccessToken)
	assert.Equal(t, 30*time.Second, config.Scheduler.Interval.Std())
	assert.Equal(t, []string{"a@example.com", "b@example.com"}, config.Roles.SalesReps.Values)
}

func TestLoadConfig_MalformedYAML(t *testing.T) {
	dir := t.TempDir()
	writeConfigFile(t, dir, "crm: [broken")

	_, err := LoadConfig(dir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "error loading config")
}

func TestLoadConfig_InvalidDuration(t *testing.T) {
	dir := t.TempDir()
	writeConfigFile(t, dir, "scheduler:\n  interval: soon\n")

	_, err := LoadConfig(dir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid duration")
}

func TestLoadConfig_GeneratesDeviceUUIDWhenPermitted(t *testing.T) {
	dir := t.TempDir()
	writeConfigFile(t, dir, "crm:\n  generateDeviceUuid: true\n")

	config, err := LoadConfig(dir)
	require.NoError(t, err)
	assert.NotEmpty(t, config.CRM.DeviceUUID)
}

func TestLoadConfig_NoUUIDGenerationByDefault(t *testing.T) {
	config, err := LoadConfig(t.TempDir())
	require.NoError(t, err)
	assert.Empty(t, config.CRM.DeviceUUID)
}
