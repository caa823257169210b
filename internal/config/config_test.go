package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleYAML = `
server:
  port: 8080
database:
  driver: sqlite
  dsn: "file::memory:"
worker:
  resolve_retry_interval: 500ms
  resolve_max_wait: 10m
resolver:
  rpc_endpoint: http://node:3050
retriever:
  proxy_url: http://proxy:3100
prover:
  base_url: http://prover:8000
eigenda:
  relay_keys: [0, 1]
  payload_form: eval
srs:
  g1_path: resources/g1.point
  g2_path: resources/g2.point
`

func TestParseDefaults(t *testing.T) {
	cfg, err := Parse([]byte(sampleYAML))
	require.NoError(t, err)

	assert.Equal(t, "0.0.0.0:8080", cfg.ListenAddr())
	assert.Equal(t, 500*time.Millisecond, cfg.Worker.ResolveRetryInterval)
	assert.Equal(t, 10*time.Minute, cfg.Worker.ResolveMaxWait)
	assert.Equal(t, 2*time.Second, cfg.Worker.IdleBackoff)
	assert.Equal(t, "eigenda_getCertificate", cfg.Resolver.Method)
	assert.Equal(t, "http://node:3050", cfg.Verifier.RPCEndpoint)
	assert.Equal(t, []uint32{0, 1}, cfg.EigenDA.RelayKeys)
	assert.Equal(t, uint64(1<<16), cfg.SRS.NumPoints)
	assert.Equal(t, "sidecar.proof", cfg.NATS.SubjectPrefix)
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("SIDECAR_DATABASE_DSN", "postgres://u:p@db/sidecar")
	t.Setenv("SIDECAR_DATABASE_DRIVER", "postgres")
	t.Setenv("SIDECAR_RESOLVE_MAX_WAIT", "30s")
	t.Setenv("SIDECAR_RELAY_KEYS", "3, 4")
	t.Setenv("SIDECAR_SERVER_PORT", "9000")

	cfg, err := Parse([]byte(sampleYAML))
	require.NoError(t, err)
	assert.Equal(t, "postgres://u:p@db/sidecar", cfg.Database.DSN)
	assert.Equal(t, 30*time.Second, cfg.Worker.ResolveMaxWait)
	assert.Equal(t, []uint32{3, 4}, cfg.EigenDA.RelayKeys)
	assert.Equal(t, 9000, cfg.Server.Port)

	t.Setenv("SIDECAR_SERVER_PORT", "nope")
	_, err = Parse([]byte(sampleYAML))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	_, err := Parse([]byte("server:\n  port: 1\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "database.dsn is required")
	assert.Contains(t, err.Error(), "resolver.rpc_endpoint is required")

	t.Setenv("SIDECAR_PREFLIGHT", "true")
	_, err = Parse([]byte(sampleYAML))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "verifier.verifier_address")
}

func TestLoadConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sidecar.yaml")
	require.NoError(t, os.WriteFile(path, []byte(sampleYAML), 0o600))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "sqlite", cfg.Database.Driver)

	_, err = LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
