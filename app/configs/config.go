package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

type Config struct {
	Kube     KubeConfig     `json:"kube"`
	Logs     LogsConfig     `json:"logs"`
	Model    ModelConfig    `json:"model"`
	Rollback RollbackConfig `json:"rollback"`
	Replicas ReplicaConfig  `json:"replicas"`
	API      APIConfig      `json:"api"`
}

type KubeConfig struct {
	Namespace         string `json:"namespace"`
	Deployment        string `json:"deployment"`
	CommandTimeoutSec int    `json:"command_timeout_sec"`
}

type LogsConfig struct {
	Group         string `json:"group"`
	HoursBack     int    `json:"hours_back"`
	EventLimit    int    `json:"event_limit"`
	PromptCharCap int    `json:"prompt_char_cap"`
	AWSRegion     string `json:"aws_region,omitempty"`
	FilterPattern string `json:"filter_pattern,omitempty"`
}

type ModelConfig struct {
	Name              string  `json:"name"`
	Temperature       float64 `json:"temperature"`
	MaxTokens         int     `json:"max_tokens"`
	RequestTimeoutSec int     `json:"request_timeout_sec"`
}

type RollbackConfig struct {
	ErrorThreshold int `json:"error_threshold"`
}

type ReplicaConfig struct {
	Min            int    `json:"min"`
	Max            int    `json:"max"`
	TrafficPattern string `json:"traffic_pattern"`
}

type APIConfig struct {
	Port               int `json:"port"`
	ShutdownTimeoutSec int `json:"shutdown_timeout_sec"`
}

type Manager struct {
	path string
	mu   sync.RWMutex
	cfg  Config
}

func DefaultPath() string {
	return filepath.Join("config", "config.json")
}

func NewManager(path string) (*Manager, error) {
	cfg := defaultConfig()
	mgr := &Manager{
		path: path,
		cfg:  cfg,
	}
	if err := mgr.load(); err != nil {
		if !os.IsNotExist(err) {
			return nil, err
		}
	}
	if err := mgr.save(); err != nil {
		return nil, err
	}
	return mgr, nil
}

func (m *Manager) Get() Config {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.cfg
}

func (m *Manager) Update(apply func(*Config)) (Config, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	apply(&m.cfg)
	applyDefaults(&m.cfg)
	if err := m.saveLocked(); err != nil {
		return Config{}, err
	}
	return m.cfg, nil
}

func (m *Manager) load() error {
	data, err := os.ReadFile(m.path)
	if err != nil {
		return err
	}
	var fileCfg Config
	if err := json.Unmarshal(data, &fileCfg); err != nil {
		return err
	}
	m.cfg = fileCfg
	applyDefaults(&m.cfg)
	return nil
}

func (m *Manager) save() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.saveLocked()
}

func (m *Manager) saveLocked() error {
	if err := os.MkdirAll(filepath.Dir(m.path), 0755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(m.cfg, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(m.path, data, 0644)
}

func defaultConfig() Config {
	return Config{
		Kube: KubeConfig{
			Namespace:         "ideas-api",
			Deployment:        "ideas-api",
			CommandTimeoutSec: 30,
		},
		Logs: LogsConfig{
			Group:         "/aws/eks/ideas-api-dev/cluster",
			HoursBack:     1,
			EventLimit:    1000,
			PromptCharCap: 5000,
		},
		Model: ModelConfig{
			Name:              "gpt-4o-mini",
			Temperature:       0.3,
			MaxTokens:         500,
			RequestTimeoutSec: 60,
		},
		Rollback: RollbackConfig{
			ErrorThreshold: 3,
		},
		Replicas: ReplicaConfig{
			Min:            2,
			Max:            10,
			TrafficPattern: "normal",
		},
		API: APIConfig{
			Port:               8000,
			ShutdownTimeoutSec: 5,
		},
	}
}

func applyDefaults(cfg *Config) {
	if strings.TrimSpace(cfg.Kube.Namespace) == "" {
		cfg.Kube.Namespace = "ideas-api"
	}
	if strings.TrimSpace(cfg.Kube.Deployment) == "" {
		cfg.Kube.Deployment = "ideas-api"
	}
	if cfg.Kube.CommandTimeoutSec <= 0 {
		cfg.Kube.CommandTimeoutSec = 30
	}
	if strings.TrimSpace(cfg.Logs.Group) == "" {
		cfg.Logs.Group = "/aws/eks/ideas-api-dev/cluster"
	}
	if cfg.Logs.HoursBack <= 0 {
		cfg.Logs.HoursBack = 1
	}
	if cfg.Logs.EventLimit <= 0 || cfg.Logs.EventLimit > 10000 {
		cfg.Logs.EventLimit = 1000
	}
	if cfg.Logs.PromptCharCap <= 0 {
		cfg.Logs.PromptCharCap = 5000
	}
	if strings.TrimSpace(cfg.Model.Name) == "" {
		cfg.Model.Name = "gpt-4o-mini"
	}
	if cfg.Model.Temperature < 0 || cfg.Model.Temperature > 2 {
		cfg.Model.Temperature = 0.3
	}
	if cfg.Model.MaxTokens <= 0 {
		cfg.Model.MaxTokens = 500
	}
	if cfg.Model.RequestTimeoutSec <= 0 {
		cfg.Model.RequestTimeoutSec = 60
	}
	if cfg.Rollback.ErrorThreshold <= 0 {
		cfg.Rollback.ErrorThreshold = 3
	}
	if cfg.Replicas.Min <= 0 {
		cfg.Replicas.Min = 2
	}
	if cfg.Replicas.Max < cfg.Replicas.Min {
		cfg.Replicas.Max = 10
	}
	if strings.TrimSpace(cfg.Replicas.TrafficPattern) == "" {
		cfg.Replicas.TrafficPattern = "normal"
	}
	if cfg.API.Port <= 0 || cfg.API.Port > 65535 {
		cfg.API.Port = 8000
	}
	if cfg.API.ShutdownTimeoutSec <= 0 {
		cfg.API.ShutdownTimeoutSec = 5
	}
}
