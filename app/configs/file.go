package config

import (
	"encoding/json"
	"os"
	"strings"
)

// DefaultConfig returns a normalized copy of the built-in default config.
func DefaultConfig() Config {
	cfg := defaultConfig()
	applyDefaults(&cfg)
	return cfg
}

// NormalizeConfig applies defaults and sanitization to a config copy.
func NormalizeConfig(cfg Config) Config {
	normalized := cfg
	applyDefaults(&normalized)
	return normalized
}

// LoadConfigFile reads and normalizes a config file without mutating it on disk.
func LoadConfigFile(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, err
	}
	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return Config{}, err
	}
	applyDefaults(&cfg)
	return cfg, nil
}

// ApplyEnvOverrides layers well-known environment variables over a config.
// The variable names match the ones the deployment pipeline already exports.
func ApplyEnvOverrides(cfg *Config) {
	if v := strings.TrimSpace(os.Getenv("KUBERNETES_NAMESPACE")); v != "" {
		cfg.Kube.Namespace = v
	}
	if v := strings.TrimSpace(os.Getenv("KUBERNETES_DEPLOYMENT")); v != "" {
		cfg.Kube.Deployment = v
	}
	if v := strings.TrimSpace(os.Getenv("CLOUDWATCH_LOG_GROUP")); v != "" {
		cfg.Logs.Group = v
	}
	if v := strings.TrimSpace(os.Getenv("AWS_REGION")); v != "" {
		cfg.Logs.AWSRegion = v
	}
	if v := strings.TrimSpace(os.Getenv("OPENAI_MODEL")); v != "" {
		cfg.Model.Name = v
	}
	applyDefaults(cfg)
}
