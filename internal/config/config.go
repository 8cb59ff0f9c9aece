package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the application configuration
type Config struct {
	Server struct {
		Host string `yaml:"host"`
		Port int    `yaml:"port"`
	} `yaml:"server"`

	DIP struct {
		BaseURL        string  `yaml:"base_url"`
		APIKey         string  `yaml:"api_key"`
		TimeoutSeconds float64 `yaml:"timeout_seconds"`
		MaxRetries     int     `yaml:"max_retries"`
	} `yaml:"dip"`

	Gemini struct {
		APIKey               string  `yaml:"api_key"`
		BaseURL              string  `yaml:"base_url"`
		Model                string  `yaml:"model"`
		TimeoutSeconds       float64 `yaml:"timeout_seconds"`
		MaxRetries           int     `yaml:"max_retries"`
		EnableSafetySettings bool    `yaml:"enable_safety_settings"`
	} `yaml:"gemini"`

	Storage struct {
		Database string `yaml:"database"`
	} `yaml:"storage"`

	Workers struct {
		Count int `yaml:"count"`
	} `yaml:"workers"`

	Schedule struct {
		// Cron spec for automatic imports; empty disables the scheduler.
		Cron             string `yaml:"cron"`
		UpdatedSinceDays int    `yaml:"updated_since_days"`
	} `yaml:"schedule"`
}

// Load reads the configuration file, applies defaults and picks up the
// DIP_API_KEY and GEMINI_API_KEY environment overrides for secrets.
func Load(path string) (*Config, error) {
	config := defaults()

	if data, err := os.ReadFile(path); err == nil {
		if err := yaml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse config %s: %v", path, err)
		}
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to read config %s: %v", path, err)
	}

	if key := os.Getenv("DIP_API_KEY"); key != "" {
		config.DIP.APIKey = key
	}
	if key := os.Getenv("GEMINI_API_KEY"); key != "" {
		config.Gemini.APIKey = key
	}
	return config, nil
}

func defaults() *Config {
	config := &Config{}
	config.Server.Host = "127.0.0.1"
	config.Server.Port = 8080
	config.DIP.BaseURL = "https://search.dip.bundestag.de/api/v1"
	config.DIP.TimeoutSeconds = 30
	config.DIP.MaxRetries = 3
	config.Gemini.BaseURL = "https://generativelanguage.googleapis.com"
	config.Gemini.Model = "gemini-2.5-pro"
	config.Gemini.TimeoutSeconds = 120
	config.Gemini.MaxRetries = 3
	config.Storage.Database = "protokollmine.db"
	config.Workers.Count = 1
	config.Schedule.UpdatedSinceDays = 7
	return config
}

// DIPTimeout returns the DIP client timeout as a duration
func (c *Config) DIPTimeout() time.Duration {
	return time.Duration(c.DIP.TimeoutSeconds * float64(time.Second))
}

// GeminiTimeout returns the per-request summarization timeout as a duration
func (c *Config) GeminiTimeout() time.Duration {
	return time.Duration(c.Gemini.TimeoutSeconds * float64(time.Second))
}
