package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func writeConfigFile(t *testing.T, contents string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))
	return path
}

func TestDefaultConfigIsValid(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, cfg.Validate())
	require.Equal(t, StoreBackendMemory, cfg.Store.Backend)
}

func TestLoadOverlaysOntoDefaults(t *testing.T) {
	path := writeConfigFile(t, `
listen_addr: ":9090"
store:
  backend: memory
orchestrator:
  queue_capacity: 32
`)
	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, ":9090", cfg.ListenAddr)
	require.Equal(t, 32, cfg.Orchestrator.QueueCapacity)
	// RequestTimeout was not overridden by the file, so the default survives.
	require.NotZero(t, cfg.Orchestrator.RequestTimeout)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "does-not-exist.yaml"))
	require.Error(t, err)
}

func TestValidateRejectsUnknownBackend(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Store.Backend = "bogus"
	require.Error(t, cfg.Validate())
}

func TestValidateRequiresRedisAddr(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Store.Backend = StoreBackendRedis
	require.Error(t, cfg.Validate())

	cfg.Store.Redis.Addr = "localhost:6379"
	require.NoError(t, cfg.Validate())
}

func TestValidateRequiresMongoURIAndDatabase(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Store.Backend = StoreBackendMongo
	require.Error(t, cfg.Validate())

	cfg.Store.Mongo.URI = "mongodb://localhost:27017"
	require.Error(t, cfg.Validate())

	cfg.Store.Mongo.Database = "a2a"
	require.NoError(t, cfg.Validate())
}

func TestValidateRejectsNegativeQueueCapacity(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Orchestrator.QueueCapacity = -1
	require.Error(t, cfg.Validate())
}

func TestValidateRequiresPulseRedisAddrWhenEnabled(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Pulse = &PulseConfig{Enabled: true}
	require.Error(t, cfg.Validate())

	cfg.Pulse.RedisAddr = "localhost:6379"
	require.NoError(t, cfg.Validate())
}

func TestOrchestratorConfigDefaultsWhenUnset(t *testing.T) {
	var o OrchestratorConfig
	converted := o.ToOrchestratorConfig()
	require.True(t, converted.AutoAppendHistory)
	require.True(t, converted.AutoPersistEvents)
}

func TestOrchestratorConfigRespectsExplicitFalse(t *testing.T) {
	no := false
	o := OrchestratorConfig{AutoAppendHistory: &no, AutoPersistEvents: &no}
	converted := o.ToOrchestratorConfig()
	require.False(t, converted.AutoAppendHistory)
	require.False(t, converted.AutoPersistEvents)
}
