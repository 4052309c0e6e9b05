package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWatcher_ReloadDeliversValidSnapshot(t *testing.T) {
	dir := t.TempDir()
	writeConfigFile(t, dir, `
crm:
  accessToken: token
  deviceUuid: 7b0cbb7a-6ba4-4a6f-b807-1b871e25e3fb
roles:
  salesReps:
    values: ["rep@example.com"]
  accountManagers:
    values: ["manager@example.com"]
onDuty:
  email: manager@example.com
`)

	var delivered []Config
	watcher := NewWatcher(dir, func(c Config) { delivered = append(delivered, c) })
	watcher.reload()

	require.Len(t, delivered, 1)
	assert.Equal(t, "token", delivered[0].CRM.AccessToken)
}

func TestWatcher_ReloadRejectsInvalidSnapshot(t *testing.T) {
	dir := t.TempDir()
	// Missing token, roles and on-duty identity: must not be delivered.
	writeConfigFile(t, dir, "logLevel: debug\n")

	var delivered []Config
	watcher := NewWatcher(dir, func(c Config) { delivered = append(delivered, c) })
	watcher.reload()

	assert.Empty(t, delivered)
}

func TestWatcher_ReloadRejectsMalformedFile(t *testing.T) {
	dir := t.TempDir()
	writeConfigFile(t, dir, "crm: [broken")

	var delivered []Config
	watcher := NewWatcher(dir, func(c Config) { delivered = append(delivered, c) })
	watcher.reload()

	assert.Empty(t, delivered)
}
