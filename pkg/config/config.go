// Package config provides hierarchical configuration management.
// Priority: defaults < system < user < project < env < flags
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all TraceLens configuration.
type Config struct {
	Version int `yaml:"version"`

	Analysis  AnalysisConfig  `yaml:"analysis"`
	Results   ResultsConfig   `yaml:"results"`
	Export    ExportConfig    `yaml:"export"`
	Cache     CacheConfig     `yaml:"cache"`
	Publish   PublishConfig   `yaml:"publish"`
	Telemetry TelemetryConfig `yaml:"telemetry"`
}

// AnalysisConfig controls analysis parameters.
type AnalysisConfig struct {
	TopVariants        int           `yaml:"top_variants"`        // rows shown in variant reports
	TailThreshold      int           `yaml:"tail_threshold"`      // variants at or below this count form the tail
	LevelThreshold     float64       `yaml:"level_threshold"`     // case-level attribute classification cutoff
	BucketWidth        time.Duration `yaml:"bucket_width"`        // arrival histogram bucket width
	RollingWindow      int           `yaml:"rolling_window"`      // 0 = derive from bucket count
	TargetActivity     string        `yaml:"target_activity"`     // arrival analysis subject
	CreateActivity     string        `yaml:"create_activity"`     // case creation marker
	ExcludedActivities []string      `yaml:"excluded_activities"` // terminal activities excluded from open cases
	AttributeSamples   int           `yaml:"attribute_samples"`   // distinct values kept per attribute
}

// ResultsConfig controls where result files land.
type ResultsConfig struct {
	Dir       string `yaml:"dir"`
	Overwrite bool   `yaml:"overwrite"`
}

// ExportConfig controls default export behavior.
type ExportConfig struct {
	Engine      string `yaml:"engine"`      // duckdb | arrow
	Compression string `yaml:"compression"` // snappy | zstd | gzip | none
	BatchSize   int    `yaml:"batch_size"`
	MemoryLimit string `yaml:"memory_limit"` // e.g., "4GB"
	Threads     int    `yaml:"threads"`      // 0 = auto
}

// CacheConfig for the Redis analysis cache.
type CacheConfig struct {
	Enabled  bool          `yaml:"enabled"`
	Addr     string        `yaml:"addr"`
	Password string        `yaml:"password"`
	DB       int           `yaml:"db"`
	TTL      time.Duration `yaml:"ttl"`
	Prefix   string        `yaml:"prefix"`
}

// PublishConfig for S3 result publishing.
type PublishConfig struct {
	Enabled   bool   `yaml:"enabled"`
	Bucket    string `yaml:"bucket"`
	Prefix    string `yaml:"prefix"`
	Region    string `yaml:"region"`
	Endpoint  string `yaml:"endpoint"`   // custom endpoint (MinIO etc.)
	PathStyle bool   `yaml:"path_style"` // force path-style addressing
}

// TelemetryConfig for optional tracing.
type TelemetryConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Endpoint string `yaml:"endpoint"`
}

// Default returns the default configuration.
func Default() *Config {
	return &Config{
		Version: 1,
		Analysis: AnalysisConfig{
			TopVariants:    20,
			TailThreshold:  2,
			LevelThreshold: 0.8,
			BucketWidth:    7 * 24 * time.Hour,
			RollingWindow:  0, // auto
			TargetActivity: "A_Concept",
			CreateActivity: "A_Create Application",
			ExcludedActivities: []string{
				"A_Pending", "A_Cancelled", "A_Declined",
			},
			AttributeSamples: 20,
		},
		Results: ResultsConfig{
			Dir:       "results",
			Overwrite: true,
		},
		Export: ExportConfig{
			Engine:      "duckdb",
			Compression: "snappy",
			BatchSize:   8192,
			MemoryLimit: "4GB",
			Threads:     0, // auto
		},
		Cache: CacheConfig{
			Enabled: false,
			Addr:    "localhost:6379",
			TTL:     24 * time.Hour,
			Prefix:  "tracelens",
		},
		Publish: PublishConfig{
			Enabled: false,
			Region:  "us-east-1",
		},
		Telemetry: TelemetryConfig{
			Enabled: false,
		},
	}
}

// Manager handles configuration loading and merging.
type Manager struct {
	mu     sync.RWMutex
	config *Config
	paths  []string // Paths that were loaded
}

// NewManager creates a new configuration manager.
func NewManager() *Manager {
	return &Manager{
		config: Default(),
	}
}

// Load loads configuration from all sources in priority order.
func (m *Manager) Load() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	// Start with defaults
	m.config = Default()

	// Load from paths in order (later overrides earlier)
	paths := m.getConfigPaths()
	for _, path := range paths {
		if err := m.loadFile(path); err != nil {
			if !os.IsNotExist(err) {
				return err
			}
		} else {
			m.paths = append(m.paths, path)
		}
	}

	// Override with environment variables
	m.loadEnv()

	return nil
}

// getConfigPaths returns config file paths in priority order.
func (m *Manager) getConfigPaths() []string {
	var paths []string

	// System config
	if runtime.GOOS != "windows" {
		paths = append(paths, "/etc/tracelens/config.yaml")
	}

	// User config
	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(home, ".tracelens", "config.yaml"))
	}

	// Project config (current directory)
	if cwd, err := os.Getwd(); err == nil {
		paths = append(paths, filepath.Join(cwd, ".tracelens.yaml"))
	}

	return paths
}

// loadFile loads a single config file and merges it.
func (m *Manager) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	var partial Config
	if err := yaml.Unmarshal(data, &partial); err != nil {
		return err
	}

	// Merge non-zero values
	m.merge(&partial)
	return nil
}

// merge merges non-zero values from src into config.
func (m *Manager) merge(src *Config) {
	// Analysis
	if src.Analysis.TopVariants != 0 {
		m.config.Analysis.TopVariants = src.Analysis.TopVariants
	}
	if src.Analysis.TailThreshold != 0 {
		m.config.Analysis.TailThreshold = src.Analysis.TailThreshold
	}
	if src.Analysis.LevelThreshold != 0 {
		m.config.Analysis.LevelThreshold = src.Analysis.LevelThreshold
	}
	if src.Analysis.BucketWidth != 0 {
		m.config.Analysis.BucketWidth = src.Analysis.BucketWidth
	}
	if src.Analysis.RollingWindow != 0 {
		m.config.Analysis.RollingWindow = src.Analysis.RollingWindow
	}
	if src.Analysis.TargetActivity != "" {
		m.config.Analysis.TargetActivity = src.Analysis.TargetActivity
	}
	if src.Analysis.CreateActivity != "" {
		m.config.Analysis.CreateActivity = src.Analysis.CreateActivity
	}
	if len(src.Analysis.ExcludedActivities) > 0 {
		m.config.Analysis.ExcludedActivities = src.Analysis.ExcludedActivities
	}
	if src.Analysis.AttributeSamples != 0 {
		m.config.Analysis.AttributeSamples = src.Analysis.AttributeSamples
	}

	// Results
	if src.Results.Dir != "" {
		m.config.Results.Dir = src.Results.Dir
	}

	// Export
	if src.Export.Engine != "" {
		m.config.Export.Engine = src.Export.Engine
	}
	if src.Export.Compression != "" {
		m.config.Export.Compression = src.Export.Compression
	}
	if src.Export.BatchSize != 0 {
		m.config.Export.BatchSize = src.Export.BatchSize
	}
	if src.Export.MemoryLimit != "" {
		m.config.Export.MemoryLimit = src.Export.MemoryLimit
	}
	if src.Export.Threads != 0 {
		m.config.Export.Threads = src.Export.Threads
	}

	// Cache
	if src.Cache.Enabled {
		m.config.Cache.Enabled = true
	}
	if src.Cache.Addr != "" {
		m.config.Cache.Addr = src.Cache.Addr
	}
	if src.Cache.Password != "" {
		m.config.Cache.Password = src.Cache.Password
	}
	if src.Cache.DB != 0 {
		m.config.Cache.DB = src.Cache.DB
	}
	if src.Cache.TTL != 0 {
		m.config.Cache.TTL = src.Cache.TTL
	}
	if src.Cache.Prefix != "" {
		m.config.Cache.Prefix = src.Cache.Prefix
	}

	// Publish
	if src.Publish.Enabled {
		m.config.Publish.Enabled = true
	}
	if src.Publish.Bucket != "" {
		m.config.Publish.Bucket = src.Publish.Bucket
	}
	if src.Publish.Prefix != "" {
		m.config.Publish.Prefix = src.Publish.Prefix
	}
	if src.Publish.Region != "" {
		m.config.Publish.Region = src.Publish.Region
	}
	if src.Publish.Endpoint != "" {
		m.config.Publish.Endpoint = src.Publish.Endpoint
	}
	if src.Publish.PathStyle {
		m.config.Publish.PathStyle = true
	}

	// Telemetry
	if src.Telemetry.Enabled {
		m.config.Telemetry.Enabled = true
	}
	if src.Telemetry.Endpoint != "" {
		m.config.Telemetry.Endpoint = src.Telemetry.Endpoint
	}
}

// loadEnv loads configuration from environment variables.
func (m *Manager) loadEnv() {
	if v := os.Getenv("TRACELENS_RESULTS_DIR"); v != "" {
		m.config.Results.Dir = v
	}

	if v := os.Getenv("TRACELENS_ENGINE"); v != "" {
		m.config.Export.Engine = v
	}

	if v := os.Getenv("TRACELENS_COMPRESSION"); v != "" {
		m.config.Export.Compression = v
	}

	if v := os.Getenv("TRACELENS_REDIS_ADDR"); v != "" {
		m.config.Cache.Addr = v
		m.config.Cache.Enabled = true
	}

	if v := os.Getenv("TRACELENS_S3_BUCKET"); v != "" {
		m.config.Publish.Bucket = v
		m.config.Publish.Enabled = true
	}

	if v := os.Getenv("TRACELENS_TOP_VARIANTS"); v != "" {
		var n int
		if _, err := fmt.Sscanf(v, "%d", &n); err == nil && n > 0 {
			m.config.Analysis.TopVariants = n
		}
	}
}

// Get returns the current configuration.
func (m *Manager) Get() *Config {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.config
}

// GetPaths returns the paths that were loaded.
func (m *Manager) GetPaths() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.paths
}

// Save writes the current config to the user config file.
func (m *Manager) Save() error {
	m.mu.RLock()
	defer m.mu.RUnlock()

	home, err := os.UserHomeDir()
	if err != nil {
		return err
	}

	configDir := filepath.Join(home, ".tracelens")
	if err := os.MkdirAll(configDir, 0755); err != nil {
		return err
	}

	data, err := yaml.Marshal(m.config)
	if err != nil {
		return err
	}

	return os.WriteFile(filepath.Join(configDir, "config.yaml"), data, 0644)
}

// Global instance
var (
	globalManager *Manager
	globalOnce    sync.Once
)

// Global returns the global configuration manager.
func Global() *Manager {
	globalOnce.Do(func() {
		globalManager = NewManager()
		globalManager.Load()
	})
	return globalManager
}
