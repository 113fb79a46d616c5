package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadConfigDevelopmentDefaults(t *testing.T) {
	path := writeConfig(t, `
app:
  env: development
  base_url: http://localhost:3000/
storage:
  driver: memory
server:
  port: "9090"
`)
	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.True(t, cfg.IsDevelopment())
	assert.Equal(t, "http://localhost:3000", cfg.App.BaseURL)
	assert.Equal(t, ":9090", cfg.Server.Port)
	assert.Equal(t, 15*time.Second, cfg.Server.RequestTimeout)
	assert.Equal(t, 10*time.Minute, cfg.Janitor.Interval)
	assert.False(t, cfg.TwilioEnabled())
}

func TestLoadConfigEnvOverrides(t *testing.T) {
	t.Setenv("TWILIO_ACCOUNT_SID", "AC123")
	t.Setenv("TWILIO_AUTH_TOKEN", "secret")
	t.Setenv("TWILIO_PHONE_NUMBER", "+15005550006")
	t.Setenv("RESEND_API_KEY", "re_123")
	t.Setenv("FIREBASE_CREDENTIALS_PATH", "/run/secrets/firebase.json")
	t.Setenv("ADMIN_EMAIL", "ops@toolntask.app")

	path := writeConfig(t, `
app:
  env: production
resend:
  from: no-reply@toolntask.app
server:
  request_timeout: 5s
`)
	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.True(t, cfg.TwilioEnabled())
	assert.True(t, cfg.ResendEnabled())
	assert.Equal(t, StorageFirestore, cfg.Storage.Driver)
	assert.Equal(t, "/run/secrets/firebase.json", cfg.Firebase.CredentialsPath)
	assert.Equal(t, "ops@toolntask.app", cfg.Admin.Email)
	assert.Equal(t, 5*time.Second, cfg.Server.RequestTimeout)
}

func TestLoadConfigRejectsMemoryStorageInProduction(t *testing.T) {
	path := writeConfig(t, `
app:
  env: production
storage:
  driver: memory
`)
	_, err := LoadConfig(path)
	assert.Error(t, err)
}

func TestLoadConfigRequiresCredentialsForFirestore(t *testing.T) {
	path := writeConfig(t, `
app:
  env: development
storage:
  driver: firestore
`)
	_, err := LoadConfig(path)
	assert.ErrorContains(t, err, "credentials_path")
}
