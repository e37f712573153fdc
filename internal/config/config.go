package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/bassista/go_cast/internal/logger"
	"github.com/bassista/go_cast/internal/pagination"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config is the full gateway configuration.
type Config struct {
	Server ServerConfig
	API    APIConfig
	Data   DataConfig
	Misc   MiscConfig
}

// ServerConfig configures the local gateway HTTP server.
type ServerConfig struct {
	Port               int
	ReadTimeout        time.Duration
	WriteTimeout       time.Duration
	IdleTimeout        time.Duration
	ShutDownTimeout    time.Duration
	RequestTimeout     time.Duration
	CORSAllowedOrigins string
}

// APIConfig configures the remote governance API client.
type APIConfig struct {
	BaseURL  string
	Timeout  time.Duration
	PageSize int
}

// DataConfig holds local file locations.
type DataConfig struct {
	SessionFilePath string
}

type MiscConfig struct {
	LogLevel string
	GinMode  string
}

// LoadConfig reads .env, config.yaml and GO_CAST_* environment variables, in increasing priority.
func LoadConfig() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		logger.WithComponent("config").Warnf("cannot load .env file: %v", err)
	}

	confPath := getEnvOrDefault("GO_CAST_CONFIG_PATH", "./config")

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(confPath)

	// Defaults to allow running without config file
	v.SetDefault("server.port", 8084)
	v.SetDefault("server.read_timeout", 10*time.Second)
	v.SetDefault("server.write_timeout", 0)
	v.SetDefault("server.idle_timeout", 120*time.Second)
	v.SetDefault("server.shutdown_timeout", 5*time.Second)
	v.SetDefault("server.request_timeout", 30*time.Second)
	v.SetDefault("server.cors_allowed_origins", "*")
	v.SetDefault("api.base_url", "http://localhost:5001")
	v.SetDefault("api.timeout", 30*time.Second)
	v.SetDefault("api.page_size", pagination.DefaultPageSize)
	v.SetDefault("data.session_file", "./config/data/session.json")
	v.SetDefault("misc.log_level", "info")
	v.SetDefault("misc.gin_mode", "release")

	// Environment variables like GO_CAST_API_BASE_URL override api.base_url
	v.SetEnvPrefix("GO_CAST")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("config file error: %w", err)
		}
		logger.WithComponent("config").Info("no config file found, using defaults and env vars")
	}

	port, err := getEnvOrViperPort(v, "PORT", "server.port")
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		Server: ServerConfig{
			Port:               port,
			ReadTimeout:        v.GetDuration("server.read_timeout"),
			WriteTimeout:       v.GetDuration("server.write_timeout"),
			IdleTimeout:        v.GetDuration("server.idle_timeout"),
			ShutDownTimeout:    v.GetDuration("server.shutdown_timeout"),
			RequestTimeout:     v.GetDuration("server.request_timeout"),
			CORSAllowedOrigins: v.GetString("server.cors_allowed_origins"),
		},
		API: APIConfig{
			BaseURL:  strings.TrimRight(v.GetString("api.base_url"), "/"),
			Timeout:  v.GetDuration("api.timeout"),
			PageSize: v.GetInt("api.page_size"),
		},
		Data: DataConfig{
			SessionFilePath: v.GetString("data.session_file"),
		},
		Misc: MiscConfig{
			LogLevel: v.GetString("misc.log_level"),
			GinMode:  v.GetString("misc.gin_mode"),
		},
	}

	if cfg.API.PageSize > pagination.MaxPageSize {
		logger.WithComponent("config").Warnf("api.page_size %d exceeds maximum, using %d", cfg.API.PageSize, pagination.MaxPageSize)
		cfg.API.PageSize = pagination.MaxPageSize
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	if err := ensureSessionFile(cfg.Data.SessionFilePath); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}
	if c.Server.ReadTimeout <= 0 || c.Server.IdleTimeout <= 0 || c.Server.ShutDownTimeout <= 0 {
		return errors.New("server timeouts must be positive")
	}
	if c.Server.WriteTimeout < 0 {
		return errors.New("server write timeout must not be negative")
	}
	if c.Server.RequestTimeout <= 0 {
		return errors.New("server request timeout must be positive")
	}
	if c.API.BaseURL == "" {
		return errors.New("api base url is required")
	}
	u, err := url.Parse(c.API.BaseURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("invalid api base url: %q", c.API.BaseURL)
	}
	if c.API.Timeout <= 0 {
		return errors.New("api timeout must be positive")
	}
	if c.API.PageSize <= 0 || c.API.PageSize > pagination.MaxPageSize {
		return fmt.Errorf("api page size must be between 1 and %d, got %d", pagination.MaxPageSize, c.API.PageSize)
	}
	if c.Data.SessionFilePath == "" {
		return errors.New("session file path is required")
	}
	return nil
}

// ensureSessionFile creates an empty session document when none exists yet.
func ensureSessionFile(path string) error {
	if _, err := os.Stat(path); err == nil {
		return nil
	} else if !os.IsNotExist(err) {
		return fmt.Errorf("stat session file: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create session dir: %w", err)
	}
	if err := os.WriteFile(path, []byte("{}"), 0o644); err != nil {
		return fmt.Errorf("create session file: %w", err)
	}
	logger.WithComponent("config").Infof("created empty session file at %s", path)
	return nil
}

func getEnvOrDefault(key, def string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return def
}

// getEnvOrViperPort prefers the bare env var (e.g. PORT set by a PaaS) over the viper key.
func getEnvOrViperPort(v *viper.Viper, envKey, viperKey string) (int, error) {
	if raw := os.Getenv(envKey); raw != "" {
		port, err := strconv.Atoi(raw)
		if err != nil {
			return 0, fmt.Errorf("invalid %s value %q: %w", envKey, raw, err)
		}
		return port, nil
	}
	return v.GetInt(viperKey), nil
}
