package commands

import (
	"errors"

	"github.com/spf13/viper"
)

type Config struct {
	DataRoot string `mapstructure:"data_root"`
	Database string `mapstructure:"database"`
	LogDir   string `mapstructure:"log_dir"`
	Format   string `mapstructure:"format"`
	Output   string `mapstructure:"output"`
	Provider string `mapstructure:"provider"`

	User      UserConfig      `mapstructure:"user"`
	Model     ModelConfig     `mapstructure:"model"`
	Executor  ExecutorConfig  `mapstructure:"executor"`
	OpenAI    OpenAIConfig    `mapstructure:"openai"`
	Anthropic AnthropicConfig `mapstructure:"anthropic"`
}

type UserConfig struct {
	ID   string `mapstructure:"id"`
	Name string `mapstructure:"name"`
}

type ModelConfig struct {
	Name         string `mapstructure:"name"`
	MockResponse string `mapstructure:"mock_response"`
}

type ExecutorConfig struct {
	Workers        int `mapstructure:"workers"`
	IntervalMillis int `mapstructure:"interval_millis"`
	QueueSize      int `mapstructure:"queue_size"`
}

type OpenAIConfig struct {
	Model          string `mapstructure:"model"`
	TimeoutSeconds int    `mapstructure:"timeout_seconds"`
}

type AnthropicConfig struct {
	Model          string `mapstructure:"model"`
	TimeoutSeconds int    `mapstructure:"timeout_seconds"`
	MaxTokens      int    `mapstructure:"max_tokens"`
}

func LoadConfig(path string) (Config, error) {
	cfg := Config{}
	v := viper.New()
	v.SetConfigType("yaml")
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName(".prompetition")
		v.AddConfigPath(".")
	}

	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			return cfg, nil
		}
		return cfg, err
	}

	if err := v.Unmarshal(&cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func resolveString(value string, fallback string) string {
	if value != "" {
		return value
	}
	return fallback
}

func resolveInt(value int, fallback int, def int) int {
	if value > 0 {
		return value
	}
	if fallback > 0 {
		return fallback
	}
	return def
}
