package services

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultQueueDelayPolicy(t *testing.T) {
	p := DefaultQueueDelayPolicy()
	assert.Equal(t, time.Minute, p.DelayFor("Nasenabstrich"))
	assert.Equal(t, time.Minute, p.DelayFor("Nach Spontanmeldung: Nasenabstrich"))
	assert.Zero(t, p.DelayFor("nasenabstrich"))
	assert.Zero(t, p.DelayFor("Symptomtagebuch"))

	var nilPolicy *QueueDelayPolicy
	assert.Zero(t, nilPolicy.DelayFor("Nasenabstrich"))
}

func TestLoadQueueDelayPolicy(t *testing.T) {
	path := filepath.Join(t.TempDir(), "delays.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
delays:
  - names: [Speichelprobe]
    delay: 90s
  - names: ["", Blutprobe]
    delay: 2h
`), 0o600))

	p, err := LoadQueueDelayPolicy(path)
	require.NoError(t, err)
	assert.Equal(t, 90*time.Second, p.DelayFor("Speichelprobe"))
	assert.Equal(t, 2*time.Hour, p.DelayFor("Blutprobe"))
	assert.Zero(t, p.DelayFor("Nasenabstrich"))

	def, err := LoadQueueDelayPolicy("  ")
	require.NoError(t, err)
	assert.Equal(t, time.Minute, def.DelayFor("Nasenabstrich"))

	_, err = LoadQueueDelayPolicy(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestParseQueueDelayPolicyRejectsNegativeDelay(t *testing.T) {
	_, err := ParseQueueDelayPolicy([]byte("delays:\n  - names: [x]\n    delay: -1m\n"))
	assert.Error(t, err)
}
