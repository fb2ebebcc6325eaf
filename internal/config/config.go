// Package config loads pipeline configuration from a YAML file with
// environment variable overrides.
package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the harmonization pipeline.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Storage  StorageConfig  `yaml:"storage"`
	Queue    QueueConfig    `yaml:"queue"`
	Notify   NotifyConfig   `yaml:"notify"`
	Redis    RedisConfig    `yaml:"redis"`
	Pipeline PipelineConfig `yaml:"pipeline"`
	LogLevel string         `yaml:"log_level"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// GetHost returns the configured host, defaulting to localhost.
func (s ServerConfig) GetHost() string {
	if s.Host == "" {
		return "127.0.0.1"
	}
	return s.Host
}

// GetPort returns the configured port, defaulting to 8080.
func (s ServerConfig) GetPort() int {
	if s.Port == 0 {
		return 8080
	}
	return s.Port
}

// StorageConfig holds artifact store settings. Type selects the backend:
// "aws" for S3, "local" for a filesystem directory (dev and tests).
type StorageConfig struct {
	Type            string `yaml:"type"`
	S3Bucket        string `yaml:"s3_bucket"`
	AWSRegion       string `yaml:"aws_region"`
	AWSProfile      string `yaml:"aws_profile"`
	LocalPath       string `yaml:"local_path"`
	RawPrefix       string `yaml:"raw_prefix"`
	ProcessedPrefix string `yaml:"processed_prefix"`
}

// GetRawPrefix returns the container prefix raw inputs are read from.
func (s StorageConfig) GetRawPrefix() string {
	if s.RawPrefix == "" {
		return "raw"
	}
	return s.RawPrefix
}

// GetProcessedPrefix returns the container prefix artifacts are written to.
func (s StorageConfig) GetProcessedPrefix() string {
	if s.ProcessedPrefix == "" {
		return "processed"
	}
	return s.ProcessedPrefix
}

// QueueConfig holds the SQS queue that receives artifact-created events.
type QueueConfig struct {
	URL string `yaml:"url"`
}

// NotifyConfig holds chat-ops notification settings.
type NotifyConfig struct {
	TeamsWebhookURL string `yaml:"teams_webhook_url"`
}

// RedisConfig holds the optional Redis connection used for run locking.
// An empty Addr disables locking entirely.
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

// PipelineConfig holds harmonization naming conventions and run locking.
type PipelineConfig struct {
	LatestPrefix   string `yaml:"latest_prefix"`
	HistoryPrefix  string `yaml:"history_prefix"`
	LockTTLSeconds int    `yaml:"lock_ttl_seconds"`
}

// GetLatestPrefix returns the prefix for mutable snapshot artifacts.
func (p PipelineConfig) GetLatestPrefix() string {
	if p.LatestPrefix == "" {
		return "latest"
	}
	return p.LatestPrefix
}

// GetHistoryPrefix returns the prefix for immutable history artifacts.
func (p PipelineConfig) GetHistoryPrefix() string {
	if p.HistoryPrefix == "" {
		return "by-timestamp"
	}
	return p.HistoryPrefix
}

// GetLockTTLSeconds returns the run lock TTL, defaulting to 60 seconds.
func (p PipelineConfig) GetLockTTLSeconds() int {
	if p.LockTTLSeconds == 0 {
		return 60
	}
	return p.LockTTLSeconds
}

// Load reads configuration from a YAML file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	if cfg.Storage.Type == "" {
		cfg.Storage.Type = "local"
	}
	if cfg.Storage.LocalPath == "" {
		cfg.Storage.LocalPath = "./data"
	}

	return &cfg, nil
}

// LoadFromEnv loads configuration with environment variable overrides.
// A .env file (if present) is loaded first, so secrets can live in .env
// locally and in real env vars on the deployment host.
func LoadFromEnv(path string) (*Config, error) {
	_ = godotenv.Load()

	cfg, err := Load(path)
	if err != nil {
		return nil, err
	}

	if v := os.Getenv("STORAGE_TYPE"); v != "" {
		cfg.Storage.Type = v
	}
	if v := os.Getenv("STORAGE_S3_BUCKET"); v != "" {
		cfg.Storage.S3Bucket = v
	}
	if v := os.Getenv("AWS_REGION"); v != "" {
		cfg.Storage.AWSRegion = v
	}
	if v := os.Getenv("SQS_QUEUE_URL"); v != "" {
		cfg.Queue.URL = v
	}
	if v := os.Getenv("TEAMS_WEBHOOK_URL"); v != "" {
		cfg.Notify.TeamsWebhookURL = v
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		cfg.Redis.Addr = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}
	if v := os.Getenv("PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}

	return cfg, nil
}
