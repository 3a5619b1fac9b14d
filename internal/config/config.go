// Package config provides configuration management for dispatcher pools
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"sync"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

// Config represents the global configuration for dispatcher pools
type Config struct {
	// Pool sizing
	Workers    int `json:"workers" yaml:"workers" toml:"workers"`             // Number of worker goroutines (0 = hardware parallelism)
	MaxWorkers int `json:"max_workers" yaml:"max_workers" toml:"max_workers"` // Upper bound applied after auto-detection

	// Failure handling
	FailFast      bool `json:"fail_fast" yaml:"fail_fast" toml:"fail_fast"`                // Stop claiming indices after the first task failure
	RecoverPanics bool `json:"recover_panics" yaml:"recover_panics" toml:"recover_panics"` // Convert task panics into round failures

	// Observability
	MetricsCollection bool   `json:"metrics_collection" yaml:"metrics_collection" toml:"metrics_collection"` // Record per-round metrics
	VerboseLogging    bool   `json:"verbose_logging" yaml:"verbose_logging" toml:"verbose_logging"`          // Log at debug level
	LogFormat         string `json:"log_format" yaml:"log_format" toml:"log_format"`                         // "text" or "json"
	MonitorAddr       string `json:"monitor_addr" yaml:"monitor_addr" toml:"monitor_addr"`                   // Listen address of the monitoring server
}

// SystemInfo contains system information for configuration validation
type SystemInfo struct {
	CPUCount     int
	Architecture string
	OSType       string
}

// ConfigValidator validates and provides recommendations for configuration
type ConfigValidator struct {
	systemInfo SystemInfo
}

// Global configuration instance
var (
	globalConfig Config
	configMutex  sync.RWMutex
)

// Default configuration values
const (
	DefaultMaxWorkers  = 256
	DefaultLogFormat   = LogFormatText
	DefaultMonitorAddr = ":9090"

	LogFormatText = "text"
	LogFormatJSON = "json"
)

func init() {
	globalConfig = NewConfig()
}

// NewConfig creates a new configuration with default values
func NewConfig() Config {
	return Config{
		Workers:    0, // Auto-detect
		MaxWorkers: DefaultMaxWorkers,

		FailFast:      true,
		RecoverPanics: true,

		MetricsCollection: false,
		VerboseLogging:    false,
		LogFormat:         DefaultLogFormat,
		MonitorAddr:       DefaultMonitorAddr,
	}
}

// Validate validates the configuration and returns an error if invalid
func (c *Config) Validate() error {
	if c.Workers < 0 {
		return fmt.Errorf("Workers must be non-negative, got %d", c.Workers)
	}

	if c.MaxWorkers <= 0 {
		return fmt.Errorf("MaxWorkers must be positive, got %d", c.MaxWorkers)
	}

	if c.Workers > c.MaxWorkers {
		return fmt.Errorf("Workers (%d) exceeds MaxWorkers (%d)", c.Workers, c.MaxWorkers)
	}

	switch c.LogFormat {
	case LogFormatText, LogFormatJSON:
	default:
		return fmt.Errorf("LogFormat must be %q or %q, got %q", LogFormatText, LogFormatJSON, c.LogFormat)
	}

	return nil
}

// WithDefaults returns a new configuration with default values filled in for zero values
func (c Config) WithDefaults() Config {
	defaults := NewConfig()

	if c.MaxWorkers == 0 {
		c.MaxWorkers = defaults.MaxWorkers
	}
	if c.LogFormat == "" {
		c.LogFormat = defaults.LogFormat
	}
	if c.MonitorAddr == "" {
		c.MonitorAddr = defaults.MonitorAddr
	}

	// Booleans are left alone so an explicit false survives.
	return c
}

// ResolveWorkers returns the effective pool size for a machine with cpus
// hardware threads: Workers when set, cpus otherwise, capped by MaxWorkers
// and never below one.
func (c Config) ResolveWorkers(cpus int) int {
	n := c.Workers
	if n <= 0 {
		n = cpus
	}
	if c.MaxWorkers > 0 && n > c.MaxWorkers {
		n = c.MaxWorkers
	}
	return max(1, n)
}

// SetGlobalConfig sets the global configuration
func SetGlobalConfig(config Config) {
	configMutex.Lock()
	defer configMutex.Unlock()
	globalConfig = config
}

// GetGlobalConfig returns the current global configuration
func GetGlobalConfig() Config {
	configMutex.RLock()
	defer configMutex.RUnlock()
	return globalConfig
}

// LoadFromJSON loads configuration from JSON data
func LoadFromJSON(data []byte) (Config, error) {
	config := NewConfig()
	if err := json.Unmarshal(data, &config); err != nil {
		return Config{}, fmt.Errorf("parsing JSON configuration: %w", err)
	}
	return config.WithDefaults(), nil
}

// LoadFromFile loads configuration from a file (supports JSON, YAML, TOML).
// Keys missing from the file keep their NewConfig defaults.
func LoadFromFile(filename string) (Config, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return Config{}, fmt.Errorf("reading config file %s: %w", filename, err)
	}

	config := NewConfig()
	ext := strings.ToLower(filepath.Ext(filename))

	switch ext {
	case ".json":
		err = json.Unmarshal(data, &config)
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &config)
	case ".toml":
		_, err = toml.Decode(string(data), &config)
	default:
		return Config{}, fmt.Errorf("unsupported config file format: %s", ext)
	}

	if err != nil {
		return Config{}, fmt.Errorf("parsing config file %s: %w", filename, err)
	}

	return config.WithDefaults(), nil
}

// LoadFromEnv loads configuration from environment variables
func LoadFromEnv() Config {
	return ApplyEnv(NewConfig())
}

// ApplyEnv overlays DISPATCH_* environment variables on config.
// Unparseable values are ignored.
func ApplyEnv(config Config) Config {
	if val := os.Getenv("DISPATCH_WORKERS"); val != "" {
		if parsed, err := strconv.Atoi(val); err == nil {
			config.Workers = parsed
		}
	}

	if val := os.Getenv("DISPATCH_MAX_WORKERS"); val != "" {
		if parsed, err := strconv.Atoi(val); err == nil {
			config.MaxWorkers = parsed
		}
	}

	if val := os.Getenv("DISPATCH_FAIL_FAST"); val != "" {
		if parsed, err := strconv.ParseBool(val); err == nil {
			config.FailFast = parsed
		}
	}

	if val := os.Getenv("DISPATCH_RECOVER_PANICS"); val != "" {
		if parsed, err := strconv.ParseBool(val); err == nil {
			config.RecoverPanics = parsed
		}
	}

	if val := os.Getenv("DISPATCH_METRICS_COLLECTION"); val != "" {
		if parsed, err := strconv.ParseBool(val); err == nil {
			config.MetricsCollection = parsed
		}
	}

	if val := os.Getenv("DISPATCH_VERBOSE_LOGGING"); val != "" {
		if parsed, err := strconv.ParseBool(val); err == nil {
			config.VerboseLogging = parsed
		}
	}

	if val := os.Getenv("DISPATCH_LOG_FORMAT"); val != "" {
		config.LogFormat = strings.ToLower(val)
	}

	if val := os.Getenv("DISPATCH_MONITOR_ADDR"); val != "" {
		config.MonitorAddr = val
	}

	return config
}

// GetSystemInfo returns system information for configuration validation
func GetSystemInfo() SystemInfo {
	return SystemInfo{
		CPUCount:     runtime.NumCPU(),
		Architecture: runtime.GOARCH,
		OSType:       runtime.GOOS,
	}
}

// NewConfigValidator creates a new configuration validator
func NewConfigValidator() *ConfigValidator {
	return &ConfigValidator{
		systemInfo: GetSystemInfo(),
	}
}

// Validate validates a configuration and provides recommendations
func (cv *ConfigValidator) Validate(config Config) (Config, []string, error) {
	var warnings []string
	validated := config

	if err := config.Validate(); err != nil {
		return Config{}, warnings, err
	}

	if config.Workers > cv.systemInfo.CPUCount*2 {
		warnings = append(warnings,
			fmt.Sprintf("Worker count (%d) exceeds 2x CPU count (%d), may cause contention",
				config.Workers, cv.systemInfo.CPUCount))
	}

	if !config.RecoverPanics {
		warnings = append(warnings, "Panic recovery disabled, a panicking task will crash the process")
	}

	if config.Workers == 0 {
		validated.Workers = config.ResolveWorkers(cv.systemInfo.CPUCount)
		warnings = append(warnings,
			fmt.Sprintf("Auto-setting worker count to %d (CPU count)",
				validated.Workers))
	}

	return validated, warnings, nil
}
