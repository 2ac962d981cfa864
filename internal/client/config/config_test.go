package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrijs2005/medkeeper/internal/common"
)

func writeTemp(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load(nil)
	require.NoError(t, err)

	assert.Equal(t, "http://127.0.0.1:8080/api", cfg.Server.URL)
	assert.Equal(t, 15*time.Second, cfg.Server.RequestTimeout)
	assert.Equal(t, 45*time.Second, cfg.Server.RecognitionTimeout)
	assert.Equal(t, 60*time.Second, cfg.Subscription.PollInterval)
	assert.Equal(t, common.ExpiryWarningHours, cfg.Subscription.WarnHours)
	assert.Equal(t, common.DefaultFreeMedicationAllowance, cfg.Quota.FreeMedications)
	assert.Equal(t, 10*time.Second, cfg.Capture.ResultTTL)
	assert.Equal(t, common.LanguageEnglish, cfg.Language)
	require.NoError(t, cfg.Validate())
}

func TestLoad_Precedence(t *testing.T) {
	path := writeTemp(t, "medkeeper.yaml", `
server:
  url: https://file.example.com/api/
  request_timeout: 5s
subscription:
  poll_interval: 120s
language: ar
log:
  level: debug
`)
	t.Setenv("MEDKEEPER_SERVER__REQUEST_TIMEOUT", "7s")
	t.Setenv("MEDKEEPER_LOG__FORMAT", "json")

	cfg, err := Load([]string{"-c", path, "-i", "30", "-l", "en", "-unrelated", "x"})
	require.NoError(t, err)

	want := ServerConfig{URL: "https://file.example.com/api", RequestTimeout: 7 * time.Second, RecognitionTimeout: 45 * time.Second}
	assert.Empty(t, cmp.Diff(want, cfg.Server))
	assert.Equal(t, 30*time.Second, cfg.Subscription.PollInterval)
	assert.Equal(t, common.LanguageEnglish, cfg.Language)
	assert.Equal(t, LogConfig{Level: "debug", Format: "json"}, cfg.Log)
}

func TestLoad_JSONFile(t *testing.T) {
	path := writeTemp(t, "medkeeper.json", `{"server": {"url": "https://json.example.com"}, "quota": {"free_medications": 5}}`)

	cfg, err := Load([]string{"-config", path})
	require.NoError(t, err)
	assert.Equal(t, "https://json.example.com", cfg.Server.URL)
	assert.Equal(t, 5, cfg.Quota.FreeMedications)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load([]string{"-c", filepath.Join(t.TempDir(), "nope.yaml")})
	require.Error(t, err)
}

func TestLoad_ServerFlag(t *testing.T) {
	cfg, err := Load([]string{"-a", "https://flag.example.com"})
	require.NoError(t, err)
	assert.Equal(t, "https://flag.example.com", cfg.Server.URL)
}

func TestLoad_BadInterval(t *testing.T) {
	_, err := Load([]string{"-i", "abc"})
	require.Error(t, err)
}

func TestValidate(t *testing.T) {
	cfg, err := Load(nil)
	require.NoError(t, err)

	cfg.Server.URL = "ftp://x"
	cfg.Language = "fr"
	cfg.Subscription.PollInterval = 0

	err = cfg.Validate()
	require.ErrorIs(t, err, common.ErrValidation)
	assert.Contains(t, err.Error(), "server.url")
	assert.Contains(t, err.Error(), "language")
	assert.Contains(t, err.Error(), "subscription.poll_interval")
}

func TestSessionSecret(t *testing.T) {
	c := &Config{Session: SessionConfig{Secret: "s3cret"}}
	assert.Equal(t, "s3cret", c.SessionSecret())

	c.Session.Secret = ""
	assert.NotEmpty(t, c.SessionSecret())
}

func TestEnvKey(t *testing.T) {
	assert.Equal(t, "server.url", envKey("MEDKEEPER_SERVER__URL"))
	assert.Equal(t, "capture.camera_command", envKey("MEDKEEPER_CAPTURE__CAMERA_COMMAND"))
	assert.Equal(t, "language", envKey("MEDKEEPER_LANGUAGE"))
}
