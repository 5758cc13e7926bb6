package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// Config holds application configuration.
type Config struct {
	Database DatabaseConfig
	Paths    PathsConfig
	LLM      LLMConfig
	UI       UIConfig
}

// DatabaseConfig holds sqlite catalog settings.
type DatabaseConfig struct {
	Path string
}

// PathsConfig holds the working directories of the editor.
type PathsConfig struct {
	// ConfigsDir is where model files live and where the catalog scan
	// looks for them.
	ConfigsDir string `mapstructure:"configs_dir"`
	// TemplatesDir overrides the embedded scaffold templates when set.
	TemplatesDir string `mapstructure:"templates_dir"`
	// ExportsDir is the default output directory for generated code.
	ExportsDir string `mapstructure:"exports_dir"`
}

// LLMConfig holds drafting provider settings.
type LLMConfig struct {
	Provider  string
	APIKeyEnv string `mapstructure:"api_key_env"`
	APIKey    string `mapstructure:"api_key"`
	Model     string
}

// UIConfig holds presentation settings.
type UIConfig struct {
	DateFormat string `mapstructure:"date_format"`
}

// Load reads configuration from file and env. Env var overrides use prefix ABMCONF_.
func Load() (Config, error) {
	v := viper.New()

	dataDir := filepath.Join(os.Getenv("HOME"), ".local", "share", "abmconf")

	// default values
	v.SetDefault("database.path", filepath.Join(dataDir, "abmconf.db"))
	v.SetDefault("paths.configs_dir", filepath.Join(dataDir, "configs"))
	v.SetDefault("paths.templates_dir", "")
	v.SetDefault("paths.exports_dir", filepath.Join(dataDir, "exports"))
	v.SetDefault("llm.provider", "openai")
	v.SetDefault("llm.api_key_env", "OPENAI_API_KEY")
	v.SetDefault("llm.api_key", "")
	v.SetDefault("llm.model", "gpt-4o-2024-08-06")
	v.SetDefault("ui.date_format", "2006-01-02 15:04")

	v.SetConfigType("toml")

	cfgPath := os.Getenv("ABMCONF_CONFIG")
	if cfgPath != "" {
		v.SetConfigFile(cfgPath)
	} else {
		v.AddConfigPath(filepath.Join(os.Getenv("HOME"), ".config", "abmconf"))
		v.SetConfigName("config")
	}

	v.SetEnvPrefix("ABMCONF")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// read config file if present
	_ = v.ReadInConfig()

	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}
	return c, nil
}

// Save writes the provided config to disk, creating the config directory if needed.
// This is primarily used by the TUI settings view for non-sensitive preferences.
// The API key is stored in plain text in the config file; encourage users to
// prefer env vars or the encrypted key store.
func Save(cfg Config) error {
	path := os.Getenv("ABMCONF_CONFIG")
	if path == "" {
		path = filepath.Join(os.Getenv("HOME"), ".config", "abmconf", "config.toml")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("mkdir config dir: %w", err)
	}

	v := viper.New()
	v.SetConfigType("toml")
	v.Set("database.path", cfg.Database.Path)
	v.Set("paths.configs_dir", cfg.Paths.ConfigsDir)
	v.Set("paths.templates_dir", cfg.Paths.TemplatesDir)
	v.Set("paths.exports_dir", cfg.Paths.ExportsDir)
	v.Set("llm.provider", cfg.LLM.Provider)
	v.Set("llm.api_key_env", cfg.LLM.APIKeyEnv)
	v.Set("llm.api_key", cfg.LLM.APIKey)
	v.Set("llm.model", cfg.LLM.Model)
	v.Set("ui.date_format", cfg.UI.DateFormat)

	if err := v.WriteConfigAs(path); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}
