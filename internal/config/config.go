package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment override, e.g. CHATROOMS_LLM_API_KEY.
const EnvPrefix = "CHATROOMS"

// Config holds the application configuration
type Config struct {
	LLM       LLMConfig       `mapstructure:"llm"`
	Server    ServerConfig    `mapstructure:"server"`
	Log       LogConfig       `mapstructure:"log"`
	Incidents IncidentsConfig `mapstructure:"incidents"`
	Rooms     []RoomConfig    `mapstructure:"rooms" validate:"dive"`
}

// LLMConfig holds the completion endpoint configuration.
// APIKey is a secret and must never be logged.
type LLMConfig struct {
	Provider    string        `mapstructure:"provider"`
	BaseURL     string        `mapstructure:"base_url" validate:"required,url"`
	APIKey      string        `mapstructure:"api_key" validate:"required"`
	Model       string        `mapstructure:"model" validate:"required"`
	Temperature float32       `mapstructure:"temperature" validate:"gte=0,lte=2"`
	Timeout     time.Duration `mapstructure:"timeout" validate:"gte=0"`
}

// ServerConfig holds the server configuration
type ServerConfig struct {
	Host string `mapstructure:"host"`
	Port string `mapstructure:"port" validate:"required"`
}

// LogConfig selects log verbosity and output format.
type LogConfig struct {
	Level  string `mapstructure:"level" validate:"omitempty,oneof=debug info warn error"`
	Format string `mapstructure:"format" validate:"omitempty,oneof=json console"`
}

// IncidentsConfig controls where gateway failures are recorded.
// An empty DBPath keeps incidents in memory only.
type IncidentsConfig struct {
	DBPath string `mapstructure:"db_path"`
}

// RoomConfig overrides one entry of the built-in persona catalog.
type RoomConfig struct {
	ID             string `mapstructure:"id" validate:"required"`
	Title          string `mapstructure:"title"`
	EnglishTitle   string `mapstructure:"english_title"`
	Character      string `mapstructure:"character" validate:"required"`
	Avatar         string `mapstructure:"avatar"`
	Description    string `mapstructure:"description"`
	Role           string `mapstructure:"role"`
	SystemPrompt   string `mapstructure:"system_prompt" validate:"required"`
	WelcomeMessage string `mapstructure:"welcome_message" validate:"required"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("llm.provider", "moonshot")
	v.SetDefault("llm.base_url", "https://api.moonshot.cn/v1")
	v.SetDefault("llm.model", "moonshot-v1-8k")
	v.SetDefault("llm.temperature", 0.7)
	v.SetDefault("llm.timeout", 60*time.Second)
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", "8080")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("incidents.db_path", "incidents.db")
}

// Load reads config.yaml from the working directory (or the file named by
// CONFIG_PATH), applies CHATROOMS_* environment overrides and validates the
// result. A missing config file is not an error; a missing API key is.
func Load() (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	// api_key has no default, so AutomaticEnv alone would not surface it to Unmarshal.
	if err := v.BindEnv("llm.api_key"); err != nil {
		return nil, fmt.Errorf("bind llm.api_key: %w", err)
	}

	if path := os.Getenv("CONFIG_PATH"); path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("read config: %w", err)
			}
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}

	validate := validator.New(validator.WithRequiredStructEnabled())
	if err := validate.Struct(config); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return &config, nil
}
