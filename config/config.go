package config

import (
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the top-level application configuration.
type Config struct {
	DaemonURL    string        `yaml:"daemon_url"`
	LocalTest    bool          `yaml:"local_test"`
	PingInterval time.Duration `yaml:"ping_interval"`

	Web WebConfig `yaml:"web"`
}

// WebConfig defines the diagnostics API listener.
type WebConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// Defaults returns a Config with sane defaults.
func Defaults() *Config {
	return &Config{
		DaemonURL:    "ws://localhost:55400",
		LocalTest:    false,
		PingInterval: time.Second,
		Web: WebConfig{
			Host: "127.0.0.1",
			Port: 9780,
		},
	}
}

// Load reads a YAML config file. If the file doesn't exist, defaults are used.
func Load(path string) (*Config, error) {
	cfg := Defaults()
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, err
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}
