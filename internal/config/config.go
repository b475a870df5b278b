package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds runtime configuration values for the evaluation service.
type Config struct {
	AppName          string
	AppEnv           string
	AppPort          string
	DatabaseURL      string
	RedisURL         string
	NATSURL          string
	RegistryPath     string
	WorkerPoolSize   int
	TaskTimeout      time.Duration
	MaxArtifactBytes int
	CacheTTL         time.Duration
	HistoryEnabled   bool
	CORSOrigins      string
}

// HTTPAddress returns the address the HTTP server should listen on.
func (c Config) HTTPAddress() string {
	if strings.HasPrefix(c.AppPort, ":") {
		return c.AppPort
	}

	return fmt.Sprintf(":%s", c.AppPort)
}

// Load reads configuration values from environment variables and optional .env file.
func Load() (Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetEnvPrefix("UIMA")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	v.SetDefault("app.name", "UIMA API")
	v.SetDefault("app.env", "development")
	v.SetDefault("app.port", "8888")
	v.SetDefault("registry.path", "configs/metrics.json")
	v.SetDefault("worker.pool_size", 0)
	v.SetDefault("task.timeout", "60s")
	v.SetDefault("artifact.max_bytes", 5242880)
	v.SetDefault("cache.ttl", "24h")
	v.SetDefault("history.enabled", true)
	v.SetDefault("cors.origins", "*")

	timeout, err := time.ParseDuration(v.GetString("task.timeout"))
	if err != nil {
		return Config{}, fmt.Errorf("invalid task timeout: %w", err)
	}
	if timeout <= 0 {
		return Config{}, fmt.Errorf("task timeout must be positive")
	}

	cacheTTL, err := time.ParseDuration(v.GetString("cache.ttl"))
	if err != nil {
		return Config{}, fmt.Errorf("invalid cache ttl: %w", err)
	}

	cfg := Config{
		AppName:          v.GetString("app.name"),
		AppEnv:           v.GetString("app.env"),
		AppPort:          v.GetString("app.port"),
		DatabaseURL:      v.GetString("database.url"),
		RedisURL:         v.GetString("redis.url"),
		NATSURL:          v.GetString("nats.url"),
		RegistryPath:     v.GetString("registry.path"),
		WorkerPoolSize:   v.GetInt("worker.pool_size"),
		TaskTimeout:      timeout,
		MaxArtifactBytes: v.GetInt("artifact.max_bytes"),
		CacheTTL:         cacheTTL,
		HistoryEnabled:   v.GetBool("history.enabled"),
		CORSOrigins:      v.GetString("cors.origins"),
	}

	if cfg.RegistryPath == "" {
		return Config{}, fmt.Errorf("metric registry path must be provided")
	}

	if cfg.MaxArtifactBytes <= 0 {
		cfg.MaxArtifactBytes = 5242880
	}

	return cfg, nil
}
