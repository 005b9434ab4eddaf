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
  port: "9000"
  mode: "test"
database:
  driver: "sqlite"
  dsn: "file::memory:"
identity:
  keycloak_url: "http://kc.local/"
  realm: "school"
realtime:
  write_timeout: "2s"
kafka:
  enabled: true
  brokers: "kafka:9092"
`

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoad_FileValuesAndDefaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, sampleYAML))
	require.NoError(t, err)

	assert.Equal(t, "9000", cfg.Server.Port)
	assert.Equal(t, "sqlite", cfg.Database.Driver)
	assert.Equal(t, 2*time.Second, cfg.Realtime.WriteTimeout)
	assert.Equal(t, 60*time.Second, cfg.Realtime.PongWait)
	assert.True(t, cfg.Kafka.Enabled)
	assert.Equal(t, "ent-messages", cfg.Kafka.Topic)
	assert.Equal(t, "prof", cfg.Identity.ProfessorRole)
	assert.Equal(t, "etudiant", cfg.Identity.StudentRole)
	assert.Equal(t, 30, cfg.Assistant.TimeoutSeconds)
}

func TestLoad_EnvOverride(t *testing.T) {
	t.Setenv("ENT_DATABASE_DSN", "from-env")
	t.Setenv("ENT_SERVER_PORT", "7000")

	cfg, err := Load(writeConfig(t, sampleYAML))
	require.NoError(t, err)
	assert.Equal(t, "from-env", cfg.Database.DSN)
	assert.Equal(t, "7000", cfg.Server.Port)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestIdentityConfig_URLs(t *testing.T) {
	c := IdentityConfig{KeycloakURL: "http://kc.local/", Realm: "school"}
	assert.Equal(t, "http://kc.local/realms/school/protocol/openid-connect/certs", c.CertsURL())
	assert.Equal(t, "http://kc.local/realms/school/protocol/openid-connect/token", c.TokenURL())

	c.JWKSURL = "http://other/certs"
	assert.Equal(t, "http://other/certs", c.CertsURL())
}
