package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLoad_RequiredFields(t *testing.T) {
	t.Setenv("API_BASE_URL", "")
	t.Setenv("TOKEN_FILE_PASSPHRASE", "")

	_, err := Load()
	assert.ErrorContains(t, err, "API_BASE_URL is required")

	t.Setenv("API_BASE_URL", "https://api.example.com")
	_, err = Load()
	assert.ErrorContains(t, err, "TOKEN_FILE_PASSPHRASE is required")
}

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("API_BASE_URL", "https://api.example.com")
	t.Setenv("TOKEN_FILE_PASSPHRASE", "s3cret")
	t.Setenv("TOKEN_FILE", "/tmp/tokens.enc")
	t.Setenv("HTTP_TIMEOUT_SECONDS", "")
	t.Setenv("GO_ENV", "")

	cfg, err := Load()

	assert.NoError(t, err)
	assert.Equal(t, 10, cfg.HTTPTimeoutSeconds)
	assert.Equal(t, "dev", cfg.GoEnv)
	assert.Equal(t, "/tmp/tokens.enc", cfg.TokenFile)
}

func TestLoad_BadTimeout(t *testing.T) {
	t.Setenv("API_BASE_URL", "https://api.example.com")
	t.Setenv("TOKEN_FILE_PASSPHRASE", "s3cret")
	t.Setenv("HTTP_TIMEOUT_SECONDS", "soon")

	_, err := Load()
	assert.ErrorContains(t, err, "HTTP_TIMEOUT_SECONDS must be number")
}
