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

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)

	assert.Equal(t, "8000", cfg.Port)
	assert.Equal(t, "podcasts", cfg.GridDBContainer)
	assert.Equal(t, filepath.Join("./public", "audio"), cfg.AudioDir)
	assert.Equal(t, 7*24*time.Hour, cfg.MinioURLExpiry)
}

func TestLoadYAMLThenEnvOverride(t *testing.T) {
	path := writeConfig(t, `
port: "9000"
ttsVoice: nova
griddbContainer: episodes
minioUrlExpiry: 2h
`)
	t.Setenv("TTS_VOICE", "alloy")
	t.Setenv("ALLOWED_ORIGINS", "http://a.test, http://b.test")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "9000", cfg.Port)
	assert.Equal(t, "alloy", cfg.TTSVoice)
	assert.Equal(t, "episodes", cfg.GridDBContainer)
	assert.Equal(t, 2*time.Hour, cfg.MinioURLExpiry)
	assert.Equal(t, []string{"http://a.test", "http://b.test"}, cfg.AllowedOrigins)
}

func TestLoadRejectsUnknownProvider(t *testing.T) {
	t.Setenv("TTS_PROVIDER", "espeak")
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.ErrorContains(t, err, "ttsProvider")
}

func TestLoadRejectsMinioWithoutBucket(t *testing.T) {
	t.Setenv("MINIO_ENDPOINT", "localhost:9000")
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.ErrorContains(t, err, "minioBucket")
}

func TestMissingCredentialsIsNotFatal(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "")
	t.Setenv("GRIDDB_WEBAPI_URL", "")
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)

	missing := cfg.MissingCredentials()
	assert.Contains(t, missing, "GEMINI_API_KEY")
	assert.Contains(t, missing, "GRIDDB_WEBAPI_URL")
}
