package config

import (
	"os"
	"regexp"
	"time"

	"github.com/fortitwin/interview-relay/pkg/helper"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type (
	// RelayConfig is the top-level configuration for the interview relay.
	RelayConfig struct {
		Port    int           `yaml:"port"`
		Logger  LoggerConfig  `yaml:"logger"`
		JWT     JWTConfig     `yaml:"jwt"`
		Engine  EngineConfig  `yaml:"engine"`
		Session SessionConfig `yaml:"session"`
		Audio   AudioConfig   `yaml:"audio"`
		Metrics MetricsConfig `yaml:"metrics"`
	}

	// JWTConfig configures validation of the signed session credential.
	JWTConfig struct {
		SecretKey string        `yaml:"secret_key"`
		Duration  time.Duration `yaml:"duration"`
	}

	// EngineConfig points the relay at the conversational-AI engine.
	EngineConfig struct {
		BaseURL   string        `yaml:"base_url"`    // text endpoints, e.g. http://127.0.0.1:8000
		WSBaseURL string        `yaml:"ws_base_url"` // streaming endpoint, e.g. ws://127.0.0.1:8000
		Timeout   time.Duration `yaml:"timeout"`     // bound on a single next-turn call
	}

	// SessionConfig tunes the in-memory session registry.
	SessionConfig struct {
		Shards        int           `yaml:"shards"`
		IdleTTL       time.Duration `yaml:"idle_ttl"`       // zero disables eviction
		SweepInterval time.Duration `yaml:"sweep_interval"` // how often the evictor runs
	}

	// AudioConfig describes the fixed frame format both ends agree on.
	AudioConfig struct {
		SampleRate int `yaml:"sample_rate"`
		Channels   int `yaml:"channels"`
	}

	// MetricsConfig configures the prometheus exposition.
	MetricsConfig struct {
		Enabled   bool      `yaml:"enabled"`
		Namespace string    `yaml:"namespace"`
		Buckets   []float64 `yaml:"buckets"`
	}

	// LoggerConfig represents the logger configuration.
	LoggerConfig struct {
		Level      string `yaml:"level"`       // debug, info, warn, error
		Format     string `yaml:"format"`      // json, console
		Output     string `yaml:"output"`      // stdout, file
		FilePath   string `yaml:"file_path"`   // path to log file when output is file
		MaxSize    int    `yaml:"max_size"`    // max size of log file in MB
		MaxBackups int    `yaml:"max_backups"` // max number of backup files
		MaxAge     int    `yaml:"max_age"`     // max age of backup files in days
		Compress   bool   `yaml:"compress"`    // whether to compress backup files
		Color      bool   `yaml:"color"`       // whether to use color in console output
		Stacktrace bool   `yaml:"stacktrace"`  // whether to include stacktrace in error logs
	}
)

// LoadConfig loads configuration from a YAML file with environment variable support.
func LoadConfig(filename string) (*RelayConfig, string, error) {
	// Load .env file if exists
	_ = godotenv.Load()

	cfgPath := helper.GetCfgPath(filename)
	data, err := os.ReadFile(cfgPath)
	if err != nil {
		return nil, cfgPath, err
	}

	data = resolveEnv(data)
	var cfg RelayConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, cfgPath, err
	}

	cfg.setDefaults()
	return &cfg, cfgPath, nil
}

func (c *RelayConfig) setDefaults() {
	if c.Port == 0 {
		c.Port = 5310
	}
	if c.Engine.Timeout <= 0 {
		c.Engine.Timeout = 30 * time.Second
	}
	if c.Session.Shards <= 0 {
		c.Session.Shards = 16
	}
	if c.Session.SweepInterval <= 0 {
		c.Session.SweepInterval = time.Minute
	}
	if c.Audio.SampleRate <= 0 {
		c.Audio.SampleRate = 48000
	}
	if c.Audio.Channels <= 0 {
		c.Audio.Channels = 1
	}
	if c.Metrics.Namespace == "" {
		c.Metrics.Namespace = "interview_relay"
	}
}

// resolveEnv replaces ${VAR} and ${VAR:default} placeholders in YAML content.
func resolveEnv(content []byte) []byte {
	regex := regexp.MustCompile(`\$\{(\w+)(?::([^}]*))?\}`)

	return regex.ReplaceAllFunc(content, func(match []byte) []byte {
		matches := regex.FindSubmatch(match)
		envKey := string(matches[1])
		var defaultValue string

		if len(matches) > 2 {
			defaultValue = string(matches[2])
		}

		if value, exists := os.LookupEnv(envKey); exists {
			return []byte(value)
		}
		return []byte(defaultValue)
	})
}
