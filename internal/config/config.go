package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/PabloGalante/chatbot/internal/domain"
)

// DefaultSecretsPath is where the secret store is read from.
const DefaultSecretsPath = ".chatbot/secrets.env"

const (
	KeyAPIKey             = "GEMINI_API_KEY"
	KeyModel              = "CHATBOT_MODEL"
	KeyListenAddr         = "CHATBOT_LISTEN_ADDR"
	KeySessionIdleTimeout = "CHATBOT_SESSION_IDLE_TIMEOUT"
	KeyUseMockLLM         = "CHATBOT_USE_MOCK_LLM"
)

type Config struct {
	APIKey    string
	ModelName string

	ListenAddr         string
	SessionIdleTimeout time.Duration

	UseMockLLM bool // echo replies instead of calling Gemini
}

// Load reads the secret store at path and builds the config.
// The API key may also come from the process environment. A missing key is
// reported as *domain.ConfigurationError.
func Load(path string) (*Config, error) {
	if path == "" {
		path = DefaultSecretsPath
	}

	secrets, err := godotenv.Read(path)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			return nil, &domain.ConfigurationError{
				Message: fmt.Sprintf("reading secret store %s: %v", path, err),
			}
		}
		secrets = map[string]string{}
	}

	get := func(key, def string) string {
		if v := strings.TrimSpace(secrets[key]); v != "" {
			return v
		}
		return def
	}

	apiKey := get(KeyAPIKey, strings.TrimSpace(os.Getenv(KeyAPIKey)))
	if apiKey == "" {
		return nil, &domain.ConfigurationError{
			Key:     KeyAPIKey,
			Message: fmt.Sprintf("API key missing! Ensure %s is set up.", path),
		}
	}

	idle, err := time.ParseDuration(get(KeySessionIdleTimeout, "30m"))
	if err != nil || idle <= 0 {
		return nil, &domain.ConfigurationError{
			Key:     KeySessionIdleTimeout,
			Message: "must be a positive duration such as 30m",
		}
	}

	return &Config{
		APIKey:             apiKey,
		ModelName:          get(KeyModel, domain.DefaultModelID),
		ListenAddr:         get(KeyListenAddr, ":8501"),
		SessionIdleTimeout: idle,
		UseMockLLM:         parseBool(get(KeyUseMockLLM, "")),
	}, nil
}

func parseBool(v string) bool {
	switch strings.ToLower(v) {
	case "1", "true", "yes":
		return true
	}
	return false
}
