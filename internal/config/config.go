package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
)

// Config is everything the client needs from the environment.
type Config struct {
	APIBaseURL string // backend base URL

	HTTPTimeoutSeconds int // per-request timeout

	TokenFile           string // encrypted token/cache file path
	TokenFilePassphrase string // key material for the token file

	GoEnv string // dev/prod
}

// Load reads the environment.
func Load() (Config, error) {
	timeout, err := atoiOr("HTTP_TIMEOUT_SECONDS", 10)
	if err != nil {
		return Config{}, err
	}

	cfg := Config{
		APIBaseURL:          os.Getenv("API_BASE_URL"),
		HTTPTimeoutSeconds:  timeout,
		TokenFile:           os.Getenv("TOKEN_FILE"),
		TokenFilePassphrase: os.Getenv("TOKEN_FILE_PASSPHRASE"),
		GoEnv:               os.Getenv("GO_ENV"),
	}

	// required
	if cfg.APIBaseURL == "" {
		return Config{}, fmt.Errorf("API_BASE_URL is required")
	}
	if cfg.TokenFilePassphrase == "" {
		return Config{}, fmt.Errorf("TOKEN_FILE_PASSPHRASE is required")
	}

	if cfg.TokenFile == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return Config{}, fmt.Errorf("TOKEN_FILE is required when no home dir: %w", err)
		}
		cfg.TokenFile = filepath.Join(home, ".agroconexion", "tokens.enc")
	}
	if cfg.GoEnv == "" {
		cfg.GoEnv = "dev"
	}

	return cfg, nil
}

func atoiOr(key string, def int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s must be number: %w", key, err)
	}
	return i, nil
}
