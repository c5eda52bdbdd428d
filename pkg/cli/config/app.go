package config

import (
	"os"

	"github.com/m-mizutani/goerr/v2"
	"github.com/pelletier/go-toml/v2"
)

// AppConfig represents the optional TOML application configuration
type AppConfig struct {
	Chat  ChatConfig  `toml:"chat"`
	Index IndexConfig `toml:"index"`
}

// ChatConfig holds conversational defaults
type ChatConfig struct {
	TopK         int    `toml:"top_k"`
	HistoryLimit int    `toml:"history_limit"`
	Instructions string `toml:"instructions"`
}

// IndexConfig holds default artifact paths
type IndexConfig struct {
	Path        string `toml:"path"`
	DatasetPath string `toml:"dataset"`
}

// DefaultAppConfig returns the configuration used when no file is given
func DefaultAppConfig() *AppConfig {
	return &AppConfig{
		Chat: ChatConfig{
			TopK:         5,
			HistoryLimit: 10,
		},
		Index: IndexConfig{
			Path:        "index.bin",
			DatasetPath: "data.json",
		},
	}
}

// Validate checks if the AppConfig is valid
func (a *AppConfig) Validate() error {
	if a.Chat.TopK < 1 || a.Chat.TopK > 100 {
		return goerr.Wrap(ErrInvalidConfig, "chat.top_k must be between 1 and 100",
			goerr.V("top_k", a.Chat.TopK),
		)
	}
	if a.Chat.HistoryLimit < 1 {
		return goerr.Wrap(ErrInvalidConfig, "chat.history_limit must be at least 1",
			goerr.V("history_limit", a.Chat.HistoryLimit),
		)
	}
	if a.Index.Path == "" {
		return goerr.Wrap(ErrInvalidConfig, "index.path is required")
	}
	if a.Index.DatasetPath == "" {
		return goerr.Wrap(ErrInvalidConfig, "index.dataset is required")
	}
	return nil
}

// LoadAppConfig loads the application configuration from a TOML file.
// An empty path returns the defaults. Fields omitted from the file keep
// their default values.
func LoadAppConfig(path string) (*AppConfig, error) {
	config := DefaultAppConfig()
	if path == "" {
		return config, nil
	}

	// #nosec G304 - path is expected to be provided by CLI argument
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, goerr.Wrap(ErrConfigNotFound, "failed to read config file",
			goerr.V(ConfigPathKey, path),
			goerr.V("error", err.Error()),
		)
	}

	if err := toml.Unmarshal(data, config); err != nil {
		return nil, goerr.Wrap(ErrInvalidConfig, "failed to parse TOML config",
			goerr.V(ConfigPathKey, path),
			goerr.V("error", err.Error()),
		)
	}

	if err := config.Validate(); err != nil {
		return nil, goerr.Wrap(err, "config validation failed", goerr.V(ConfigPathKey, path))
	}

	return config, nil
}
