// Package config loads the bridge's YAML configuration. The candidate path
// lists live here rather than in code because the spelling a controller
// accepts depends on its firmware revision; operators adjust them per cabinet.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Controller ControllerConfig `yaml:"controller"`
	Stream     StreamConfig     `yaml:"stream"`
	Log        LogConfig        `yaml:"log"`
}

type ControllerConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Task     string `yaml:"task"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

type StreamConfig struct {
	PreferSocket      *bool    `yaml:"prefer_socket"`
	PollingIntervalMs int      `yaml:"polling_interval_ms"`
	RequestTimeoutMs  int      `yaml:"request_timeout_ms"`
	ResourcePaths     []string `yaml:"resource_paths"`
	SocketEndpoints   []string `yaml:"socket_endpoints"`
	PollingPath       string   `yaml:"polling_path"`
	Priority          int      `yaml:"priority"`
}

type LogConfig struct {
	FilePath string `yaml:"file_path"`
	Console  bool   `yaml:"console"`
}

func Load(path string) (*Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	return &cfg, nil
}

// Validate checks configuration correctness. It does not mutate.
func Validate(cfg *Config) error {
	if cfg.Controller.Host == "" {
		return fmt.Errorf("controller.host is required")
	}
	if cfg.Controller.Port <= 0 || cfg.Controller.Port > 65535 {
		return fmt.Errorf("controller.port must be in 1-65535, got %d", cfg.Controller.Port)
	}
	if cfg.Controller.Task == "" {
		return fmt.Errorf("controller.task is required")
	}
	if cfg.Controller.Username == "" {
		return fmt.Errorf("controller.username is required")
	}
	if cfg.Stream.PollingIntervalMs != 0 && cfg.Stream.PollingIntervalMs < 10 {
		return fmt.Errorf("stream.polling_interval_ms must be at least 10, got %d", cfg.Stream.PollingIntervalMs)
	}
	if cfg.Stream.RequestTimeoutMs < 0 {
		return fmt.Errorf("stream.request_timeout_ms must not be negative")
	}
	return nil
}

// PreferSocketOrDefault resolves the tri-state yaml field; unset means true
func (s StreamConfig) PreferSocketOrDefault() bool {
	if s.PreferSocket == nil {
		return true
	}
	return *s.PreferSocket
}

func (s StreamConfig) PollingInterval() time.Duration {
	return time.Duration(s.PollingIntervalMs) * time.Millisecond
}

func (s StreamConfig) RequestTimeout() time.Duration {
	return time.Duration(s.RequestTimeoutMs) * time.Millisecond
}
