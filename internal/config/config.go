package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

const (
	appName             = "mcwatch"
	defaultConfigName   = "config.json"
	defaultDatabaseFile = "mcwatch.db"
	defaultYAMLFile     = "servers.yaml"
	defaultPort         = 8080
	defaultBackend      = "sqlite"
	defaultInterval     = 30 * time.Second
	defaultTimeout      = 5 * time.Second
	defaultConcurrency  = 20
	defaultEventHistory = 50
)

// Duration reads and writes Go duration strings such as "30s".
type Duration time.Duration

func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(time.Duration(d).String())
}

func (d *Duration) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return fmt.Errorf("duration must be a string like \"30s\": %w", err)
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return err
	}
	*d = Duration(parsed)
	return nil
}

func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

type Config struct {
	StoreBackend  string   `json:"store_backend"`
	DatabasePath  string   `json:"database_path"`
	YAMLPath      string   `json:"yaml_path"`
	DatabaseURL   string   `json:"database_url,omitempty"`
	Port          int      `json:"port"`
	PollInterval  Duration `json:"poll_interval"`
	PollTimeout   Duration `json:"poll_timeout"`
	MaxConcurrent int      `json:"max_concurrent"`
	EventHistory  int      `json:"event_history"`
	LogLevel      string   `json:"log_level"`
	LogFormat     string   `json:"log_format"`
}

// StoreLocation is the path or DSN handed to storage.Open.
func (c *Config) StoreLocation() string {
	switch c.StoreBackend {
	case "postgres", "postgresql":
		return c.DatabaseURL
	case "yaml":
		return c.YAMLPath
	default:
		return c.DatabasePath
	}
}

// LoadEnv reads a .env file from the working directory if there is one.
func LoadEnv() {
	_ = godotenv.Load()
}

func IsDev() bool {
	v, _ := strconv.ParseBool(os.Getenv("MCWATCH_DEV"))
	return v
}

// Dir is the per-user configuration directory.
func Dir() (string, error) {
	userConfigDir, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	name := appName
	if IsDev() {
		name = appName + "-dev"
	}
	return filepath.Join(userConfigDir, name), nil
}

func GetPort() int {
	if v := os.Getenv("MCWATCH_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil && port > 0 {
			return port
		}
	}
	if dir, err := Dir(); err == nil {
		if cfg, err := readConfig(filepath.Join(dir, defaultConfigName)); err == nil && cfg.Port > 0 {
			return cfg.Port
		}
	}
	return defaultPort
}

// GetURL is the daemon base URL used by the CLI.
func GetURL() string {
	if v := os.Getenv("MCWATCH_URL"); v != "" {
		return v
	}
	return fmt.Sprintf("http://localhost:%d", GetPort())
}

func LoadConfig(configDir string) (*Config, error) {
	if err := os.MkdirAll(configDir, 0755); err != nil {
		return nil, err
	}

	configPath := filepath.Join(configDir, defaultConfigName)

	var cfg *Config
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		cfg, err = createDefaultConfig(configPath, configDir)
		if err != nil {
			return nil, err
		}
	} else {
		cfg, err = readConfig(configPath)
		if err != nil {
			return nil, err
		}
		cfg.applyDefaults(configDir)
	}

	cfg.applyEnv()
	return cfg, nil
}

func readConfig(path string) (*Config, error) {
	file, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := json.Unmarshal(file, &cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return &cfg, nil
}

func defaults(configDir string) Config {
	return Config{
		StoreBackend:  defaultBackend,
		DatabasePath:  filepath.Join(configDir, defaultDatabaseFile),
		YAMLPath:      filepath.Join(configDir, defaultYAMLFile),
		Port:          defaultPort,
		PollInterval:  Duration(defaultInterval),
		PollTimeout:   Duration(defaultTimeout),
		MaxConcurrent: defaultConcurrency,
		EventHistory:  defaultEventHistory,
		LogLevel:      "info",
		LogFormat:     "text",
	}
}

func (c *Config) applyDefaults(configDir string) {
	d := defaults(configDir)
	if c.StoreBackend == "" {
		c.StoreBackend = d.StoreBackend
	}
	if c.DatabasePath == "" {
		c.DatabasePath = d.DatabasePath
	}
	if c.YAMLPath == "" {
		c.YAMLPath = d.YAMLPath
	}
	if c.Port == 0 {
		c.Port = d.Port
	}
	if c.PollInterval <= 0 {
		c.PollInterval = d.PollInterval
	}
	if c.PollTimeout <= 0 {
		c.PollTimeout = d.PollTimeout
	}
	if c.MaxConcurrent <= 0 {
		c.MaxConcurrent = d.MaxConcurrent
	}
	if c.EventHistory < 0 {
		c.EventHistory = 0
	}
	if c.LogLevel == "" {
		c.LogLevel = d.LogLevel
	}
	if c.LogFormat == "" {
		c.LogFormat = d.LogFormat
	}
}

func (c *Config) applyEnv() {
	if v := os.Getenv("MCWATCH_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil && port > 0 {
			c.Port = port
		}
	}
	if v := os.Getenv("MCWATCH_STORE_BACKEND"); v != "" {
		c.StoreBackend = v
	}
	if v := os.Getenv("MCWATCH_DATABASE_URL"); v != "" {
		c.DatabaseURL = v
	}
	if v := os.Getenv("MCWATCH_LOG_LEVEL"); v != "" {
		c.LogLevel = v
	}
}

func createDefaultConfig(configPath, configDir string) (*Config, error) {
	cfg := defaults(configDir)

	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return nil, err
	}

	if err := os.WriteFile(configPath, data, 0644); err != nil {
		return nil, err
	}

	return &cfg, nil
}
