// Package config loads the dashboard configuration file.
package config

import (
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Backend   BackendConfig   `yaml:"backend"`
	Database  DatabaseConfig  `yaml:"database"`
	Dashboard DashboardConfig `yaml:"dashboard"`
	Upload    UploadConfig    `yaml:"upload"`
	Log       LogConfig       `yaml:"log"`
}

type ServerConfig struct {
	Host       string `yaml:"host"`
	Port       int    `yaml:"port"`
	PathPrefix string `yaml:"path_prefix"`
	// SecureCookie marks cookies Secure, for deployments behind HTTPS.
	SecureCookie bool `yaml:"secure_cookie"`
}

// BackendConfig points at the generation backend API.
type BackendConfig struct {
	BaseURL  string `yaml:"base_url"`
	Timeout  string `yaml:"timeout"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

type DatabaseConfig struct {
	Path string `yaml:"path"`
}

type DashboardConfig struct {
	StatsRetry         string   `yaml:"stats_retry"`
	JobRefreshInterval string   `yaml:"job_refresh_interval"`
	UpdatePollInterval string   `yaml:"update_poll_interval"`
	SessionMaxAge      string   `yaml:"session_max_age"`
	DiffStrategy       string   `yaml:"diff_strategy"`
	Services           []string `yaml:"services"`
}

type UploadConfig struct {
	MaxSize    int64  `yaml:"max_size"`
	RateLimit  int    `yaml:"rate_limit"`
	RateWindow string `yaml:"rate_window"`
}

type LogConfig struct {
	Debug bool `yaml:"debug"`
}

// GetTimeout returns the backend request timeout.
func (c *BackendConfig) GetTimeout() time.Duration {
	return parseDuration(c.Timeout, 30*time.Second)
}

// GetStatsRetry returns the delay before a deferred statistics render.
func (c *DashboardConfig) GetStatsRetry() time.Duration {
	return parseDuration(c.StatsRetry, 100*time.Millisecond)
}

// GetJobRefreshInterval returns the job list auto-refresh period.
func (c *DashboardConfig) GetJobRefreshInterval() time.Duration {
	return parseDuration(c.JobRefreshInterval, 5*time.Second)
}

// GetUpdatePollInterval returns the update log polling period.
func (c *DashboardConfig) GetUpdatePollInterval() time.Duration {
	return parseDuration(c.UpdatePollInterval, 2*time.Second)
}

// GetSessionMaxAge returns how long an idle session is kept.
func (c *DashboardConfig) GetSessionMaxAge() time.Duration {
	return parseDuration(c.SessionMaxAge, 7*24*time.Hour)
}

// GetRateWindow returns the upload rate limit window.
func (c *UploadConfig) GetRateWindow() time.Duration {
	return parseDuration(c.RateWindow, time.Minute)
}

func parseDuration(s string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	setDefaults(&cfg)

	return &cfg, nil
}

// Default returns a configuration with every default applied.
func Default() *Config {
	var cfg Config
	setDefaults(&cfg)
	return &cfg
}

func setDefaults(cfg *Config) {
	if cfg.Server.Host == "" {
		cfg.Server.Host = "0.0.0.0"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8090
	}
	cfg.Server.PathPrefix = strings.TrimRight(cfg.Server.PathPrefix, "/")
	if cfg.Backend.BaseURL == "" {
		cfg.Backend.BaseURL = "http://127.0.0.1:8085"
	}
	if cfg.Backend.Timeout == "" {
		cfg.Backend.Timeout = "30s"
	}
	if cfg.Database.Path == "" {
		cfg.Database.Path = "./data/dashboard.db"
	}
	if cfg.Dashboard.StatsRetry == "" {
		cfg.Dashboard.StatsRetry = "100ms"
	}
	if cfg.Dashboard.JobRefreshInterval == "" {
		cfg.Dashboard.JobRefreshInterval = "5s"
	}
	if cfg.Dashboard.UpdatePollInterval == "" {
		cfg.Dashboard.UpdatePollInterval = "2s"
	}
	if cfg.Dashboard.SessionMaxAge == "" {
		cfg.Dashboard.SessionMaxAge = "168h"
	}
	if cfg.Dashboard.DiffStrategy == "" {
		cfg.Dashboard.DiffStrategy = "lookahead"
	}
	if len(cfg.Dashboard.Services) == 0 {
		cfg.Dashboard.Services = []string{"openhab", "knxohui"}
	}
	if cfg.Upload.MaxSize == 0 {
		cfg.Upload.MaxSize = 50 << 20
	}
	if cfg.Upload.RateLimit == 0 {
		cfg.Upload.RateLimit = 10
	}
	if cfg.Upload.RateWindow == "" {
		cfg.Upload.RateWindow = "1m"
	}
}
