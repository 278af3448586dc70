package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o600))
}

func TestLoadFromLayersAndOverrides(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "base.yaml", `
db:
  host: localhost
  port: 5432
  name: sciencehub
jwt:
  secret: ${JWT_SECRET}
  audience: authenticated
outbox:
  batch_size: 50
rate_limit:
  messages_per_second: 5
  burst: 10
`)
	writeFile(t, dir, "prod.yaml", `
db:
  host: db.internal
`)
	writeFile(t, dir, "secrets.env", "JWT_SECRET=from-secrets\n")
	t.Setenv("DB_NAME", "override")
	t.Setenv("DB_HOST", "")
	t.Setenv("JWT_SECRET", "")
	t.Setenv("SERVER_PORT", "")

	cfg, err := LoadFrom("prod", dir)
	require.NoError(t, err)

	assert.Equal(t, "db.internal", cfg.DB.Host)
	assert.Equal(t, 5432, cfg.DB.Port)
	assert.Equal(t, "override", cfg.DB.Name)
	assert.Equal(t, "from-secrets", cfg.JWT.Secret)
	assert.Equal(t, 50, cfg.Outbox.BatchSize)
	assert.Equal(t, 10, cfg.RateLimit.Burst)
	assert.Equal(t, ":8080", cfg.Server.Port)
}

func TestLoadFromRequiresSecret(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "base.yaml", "server:\n  port: \":9000\"\n")
	t.Setenv("JWT_SECRET", "")

	_, err := LoadFrom("local", dir)
	assert.Error(t, err)
}
