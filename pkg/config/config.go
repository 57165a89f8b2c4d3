package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"voiceauth-server/pkg/errors"
	"voiceauth-server/pkg/ratelimit"
)

// Config represents the complete application configuration
type Config struct {
	HTTP      HTTPConfig       `json:"http"`
	Auth      AuthConfig       `json:"auth"`
	Models    ModelConfig      `json:"models"`
	Audio     AudioConfig      `json:"audio"`
	Messaging MessagingConfig  `json:"messaging"`
	Logging   LoggingConfig    `json:"logging"`
	RateLimit ratelimit.Config `json:"rate_limit"`
}

// HTTPConfig holds HTTP server configuration
type HTTPConfig struct {
	Port          int           `json:"port"`
	ReadTimeout   time.Duration `json:"read_timeout"`
	WriteTimeout  time.Duration `json:"write_timeout"`
	EnableMetrics bool          `json:"enable_metrics"`
}

// AuthConfig holds API authentication configuration
type AuthConfig struct {
	Enabled bool   `json:"enabled"`
	APIKey  string `json:"-"`
}

// ModelConfig holds model artifact configuration
type ModelConfig struct {
	// Dir is where classifier and scaler artifacts are persisted.
	Dir string `json:"dir"`
}

// AudioConfig bounds audio acquisition
type AudioConfig struct {
	// MaxBytes caps decoded request payloads and URL fetches.
	MaxBytes     int64         `json:"max_bytes"`
	FetchTimeout time.Duration `json:"fetch_timeout"`
}

// MessagingConfig holds the optional AMQP result publisher configuration
type MessagingConfig struct {
	Enabled   bool   `json:"enabled"`
	AMQPUrl   string `json:"-"`
	QueueName string `json:"queue_name"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string `json:"level"`
	Format string `json:"format"`
}

// Load reads configuration from the environment, with a .env file applied
// first when present.
func Load(logger *logrus.Logger) (*Config, error) {
	if err := godotenv.Load(); err == nil {
		logger.Info("Loaded configuration from .env file")
	}

	config := &Config{}

	port, err := getEnvInt("HTTP_PORT", 8080)
	if err != nil {
		return nil, err
	}
	config.HTTP.Port = port
	if config.HTTP.Port <= 0 || config.HTTP.Port > 65535 {
		return nil, errors.New("invalid HTTP_PORT").WithField("port", config.HTTP.Port)
	}

	config.HTTP.ReadTimeout, err = getEnvDuration("HTTP_READ_TIMEOUT", 30*time.Second)
	if err != nil {
		return nil, err
	}
	config.HTTP.WriteTimeout, err = getEnvDuration("HTTP_WRITE_TIMEOUT", 60*time.Second)
	if err != nil {
		return nil, err
	}
	config.HTTP.EnableMetrics = getEnvBool("HTTP_ENABLE_METRICS", true)

	config.Auth.APIKey = getEnv("API_KEY", "")
	config.Auth.Enabled = getEnvBool("AUTH_ENABLED", true)
	if config.Auth.Enabled && config.Auth.APIKey == "" {
		return nil, errors.New("API_KEY must be set when AUTH_ENABLED is true")
	}

	config.Models.Dir = getEnv("MODEL_DIR", "models")

	maxBytes, err := getEnvInt("AUDIO_MAX_BYTES", 20*1024*1024)
	if err != nil {
		return nil, err
	}
	config.Audio.MaxBytes = int64(maxBytes)
	config.Audio.FetchTimeout, err = getEnvDuration("AUDIO_FETCH_TIMEOUT", 15*time.Second)
	if err != nil {
		return nil, err
	}

	config.Messaging.Enabled = getEnvBool("AMQP_ENABLED", false)
	config.Messaging.AMQPUrl = getEnv("AMQP_URL", "")
	config.Messaging.QueueName = getEnv("AMQP_QUEUE_NAME", "voice_detections")
	if config.Messaging.Enabled && config.Messaging.AMQPUrl == "" {
		return nil, errors.New("AMQP_URL must be set when AMQP_ENABLED is true")
	}

	config.RateLimit = ratelimit.DefaultConfig()
	config.RateLimit.Enabled = getEnvBool("RATE_LIMIT_ENABLED", false)
	rps, err := getEnvFloat("RATE_LIMIT_RPS", config.RateLimit.RequestsPerSecond)
	if err != nil {
		return nil, err
	}
	config.RateLimit.RequestsPerSecond = rps
	burst, err := getEnvInt("RATE_LIMIT_BURST", config.RateLimit.BurstSize)
	if err != nil {
		return nil, err
	}
	config.RateLimit.BurstSize = burst
	if config.RateLimit.Enabled && (config.RateLimit.RequestsPerSecond <= 0 || config.RateLimit.BurstSize <= 0) {
		return nil, errors.New("RATE_LIMIT_RPS and RATE_LIMIT_BURST must be positive when rate limiting is enabled")
	}

	config.Logging.Level = getEnv("LOG_LEVEL", "info")
	config.Logging.Format = getEnv("LOG_FORMAT", "json")

	return config, nil
}

// ApplyLogging configures the logger from the loaded configuration.
func (c *Config) ApplyLogging(logger *logrus.Logger) {
	level, err := logrus.ParseLevel(c.Logging.Level)
	if err != nil {
		logger.WithField("level", c.Logging.Level).Warn("Unknown log level, defaulting to info")
		level = logrus.InfoLevel
	}
	logger.SetLevel(level)

	if c.Logging.Format == "text" {
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	} else {
		logger.SetFormatter(&logrus.JSONFormatter{})
	}
}

func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	value, exists := os.LookupEnv(key)
	if !exists {
		return defaultValue
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		return defaultValue
	}
	return parsed
}

func getEnvInt(key string, defaultValue int) (int, error) {
	value, exists := os.LookupEnv(key)
	if !exists {
		return defaultValue, nil
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return 0, errors.Wrap(err, "invalid integer environment variable").WithField("key", key)
	}
	return parsed, nil
}

func getEnvFloat(key string, defaultValue float64) (float64, error) {
	value, exists := os.LookupEnv(key)
	if !exists {
		return defaultValue, nil
	}
	parsed, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return 0, errors.Wrap(err, "invalid float environment variable").WithField("key", key)
	}
	return parsed, nil
}

func getEnvDuration(key string, defaultValue time.Duration) (time.Duration, error) {
	value, exists := os.LookupEnv(key)
	if !exists {
		return defaultValue, nil
	}
	parsed, err := time.ParseDuration(value)
	if err != nil {
		return 0, errors.Wrap(err, "invalid duration environment variable").WithField("key", key)
	}
	return parsed, nil
}
