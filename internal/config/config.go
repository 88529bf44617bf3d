// Package config provides configuration loading and path management.
package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"regexp"
	"strconv"

	"github.com/tidwall/jsonc"
)

// Config holds client configuration.
type Config struct {
	// Model is the backend model identifier.
	Model string `json:"model,omitempty"`
	// MaxTokens caps response length per turn.
	MaxTokens int `json:"maxTokens,omitempty"`
	// APIKey overrides ANTHROPIC_API_KEY.
	APIKey string `json:"apiKey,omitempty"`
	// BaseURL overrides the backend endpoint.
	BaseURL string `json:"baseUrl,omitempty"`
	// TutorMode sets the startup value of the tutoring constraint.
	TutorMode *bool `json:"tutorMode,omitempty"`
	// WebSearch sets the startup value of the web-search capability.
	WebSearch *bool `json:"webSearch,omitempty"`
	// LogLevel is the minimum log level (DEBUG|INFO|WARN|ERROR).
	LogLevel string `json:"logLevel,omitempty"`
}

// Load loads configuration from (priority order):
// 1. ~/.config/tutorchat/tutorchat.json[c]
// 2. TUTORCHAT_CONFIG file
// 3. Environment variables
func Load() (*Config, error) {
	config := &Config{}

	paths := GetPaths()
	for _, name := range []string{"tutorchat.json", "tutorchat.jsonc"} {
		loadConfigFile(filepath.Join(paths.Config, name), config)
	}

	if path := os.Getenv("TUTORCHAT_CONFIG"); path != "" {
		loadConfigFile(path, config)
	}

	applyEnvOverrides(config)

	return config, nil
}

// loadConfigFile loads a single config file with {env:VAR} interpolation.
// Missing or malformed files are skipped.
func loadConfigFile(path string, config *Config) {
	data, err := os.ReadFile(path)
	if err != nil {
		return
	}

	data = jsonc.ToJSON(data)
	data = interpolate(data)

	var fileConfig Config
	if err := json.Unmarshal(data, &fileConfig); err != nil {
		return
	}

	mergeConfig(config, &fileConfig)
}

var envPattern = regexp.MustCompile(`\{env:([^}]+)\}`)

// interpolate processes {env:VAR} placeholders.
func interpolate(data []byte) []byte {
	return envPattern.ReplaceAllFunc(data, func(match []byte) []byte {
		varName := envPattern.FindSubmatch(match)[1]
		return []byte(os.Getenv(string(varName)))
	})
}

func mergeConfig(target, source *Config) {
	if source.Model != "" {
		target.Model = source.Model
	}
	if source.MaxTokens != 0 {
		target.MaxTokens = source.MaxTokens
	}
	if source.APIKey != "" {
		target.APIKey = source.APIKey
	}
	if source.BaseURL != "" {
		target.BaseURL = source.BaseURL
	}
	if source.TutorMode != nil {
		target.TutorMode = source.TutorMode
	}
	if source.WebSearch != nil {
		target.WebSearch = source.WebSearch
	}
	if source.LogLevel != "" {
		target.LogLevel = source.LogLevel
	}
}

// applyEnvOverrides applies environment variable overrides.
func applyEnvOverrides(config *Config) {
	if model := os.Getenv("TUTORCHAT_MODEL"); model != "" {
		config.Model = model
	}
	if raw := os.Getenv("TUTORCHAT_MAX_TOKENS"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil {
			config.MaxTokens = n
		}
	}
	if key := os.Getenv("ANTHROPIC_API_KEY"); key != "" && config.APIKey == "" {
		config.APIKey = key
	}
	if level := os.Getenv("TUTORCHAT_LOG_LEVEL"); level != "" {
		config.LogLevel = level
	}
}
