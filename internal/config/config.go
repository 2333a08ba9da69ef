package config

import (
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Server struct {
		Port string `yaml:"port"`
	} `yaml:"server"`
	Redis struct {
		Addr     string `yaml:"addr"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
	} `yaml:"redis"`
	Postgres struct {
		URL string `yaml:"url"`
	} `yaml:"postgres"`
	Simulation struct {
		TTL string `yaml:"ttl"`
	} `yaml:"simulation"`
	Scoring struct {
		// WeakAreaThreshold is the topic accuracy percentage below which a
		// topic is flagged; 0 means use the default of 70.
		WeakAreaThreshold float64 `yaml:"weak_area_threshold"`
	} `yaml:"scoring"`
	Stats struct {
		// RecentWindow bounds recent results in statistics; 0 means the
		// default of 10.
		RecentWindow int `yaml:"recent_window"`
	} `yaml:"stats"`
	Session struct {
		EnforceDeadline bool   `yaml:"enforce_deadline"`
		LateGrace       string `yaml:"late_grace"`
	} `yaml:"session"`
}

// Load reads YAML config from path.
func Load(path string) (Config, error) {
	cfg := Config{}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// TTLDuration parses a duration string or returns the fallback if empty.
func TTLDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}
	if d, err := time.ParseDuration(raw); err == nil {
		return d
	}
	return fallback
}
