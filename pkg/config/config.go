package config

import (
	"github.com/sdejongh/treefill/pkg/models"
)

// Config represents the application configuration
type Config struct {
	Sync        SyncConfig        `yaml:"sync"`
	Performance PerformanceConfig `yaml:"performance"`
	Output      OutputConfig      `yaml:"output"`
	Logging     LoggingConfig     `yaml:"logging"`
	Exclude     []string          `yaml:"exclude"`
}

// SyncConfig holds sync-related settings
type SyncConfig struct {
	Recursive bool `yaml:"recursive"`
	MkPath    bool `yaml:"mkpath"`
}

// PerformanceConfig holds performance-related settings
type PerformanceConfig struct {
	CompareWorkers int   `yaml:"compare_workers"` // 0 = pick from recursion
	CopyWorkers    int   `yaml:"copy_workers"`
	CopyQueueSize  int   `yaml:"copy_queue_size"`
	BufferSize     int   `yaml:"buffer_size"`
	BandwidthLimit int64 `yaml:"bandwidth_limit"` // bytes per second
}

// OutputConfig holds output-related settings
type OutputConfig struct {
	Format   string `yaml:"format"`   // "human" or "json"
	Progress bool   `yaml:"progress"` // Show progress bar on terminals
	Quiet    bool   `yaml:"quiet"`    // Suppress non-error output
}

// LoggingConfig holds logging-related settings
type LoggingConfig struct {
	Format string `yaml:"format"` // "json" or "text"
	Level  string `yaml:"level"`  // "debug", "info", "warn", "error"
	File   string `yaml:"file"`   // Log file path (empty = stderr only)
}

// Default returns the default configuration
func Default() *Config {
	return &Config{
		Performance: PerformanceConfig{
			CopyWorkers:   models.DefaultCopyWorkers,
			CopyQueueSize: models.DefaultCopyQueueSize,
			BufferSize:    models.DefaultBufferSize,
		},
		Output: OutputConfig{
			Format: "human",
		},
		Logging: LoggingConfig{
			Format: "text",
			Level:  "info",
		},
	}
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Performance.CompareWorkers < 0 {
		return &models.ValidationError{
			Field:   "performance.compare_workers",
			Message: "cannot be negative",
		}
	}

	if c.Performance.CopyWorkers < 1 {
		return &models.ValidationError{
			Field:   "performance.copy_workers",
			Message: "must be at least 1",
		}
	}

	if c.Performance.CopyQueueSize < 1 {
		return &models.ValidationError{
			Field:   "performance.copy_queue_size",
			Message: "must be at least 1",
		}
	}

	if c.Performance.BufferSize < 1024 {
		return &models.ValidationError{
			Field:   "performance.buffer_size",
			Message: "must be at least 1024 bytes",
		}
	}

	if c.Performance.BandwidthLimit < 0 {
		return &models.ValidationError{
			Field:   "performance.bandwidth_limit",
			Message: "cannot be negative",
		}
	}

	validFormats := map[string]bool{"human": true, "json": true}
	if !validFormats[c.Output.Format] {
		return &models.ValidationError{
			Field:   "output.format",
			Message: "must be 'human' or 'json'",
		}
	}

	validLogFormats := map[string]bool{"json": true, "text": true}
	if !validLogFormats[c.Logging.Format] {
		return &models.ValidationError{
			Field:   "logging.format",
			Message: "must be 'json' or 'text'",
		}
	}

	validLogLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLogLevels[c.Logging.Level] {
		return &models.ValidationError{
			Field:   "logging.level",
			Message: "must be 'debug', 'info', 'warn', or 'error'",
		}
	}

	return nil
}

// Apply copies the configured settings onto an operation.
// Flags parsed later override what is set here.
func (c *Config) Apply(op *models.SyncOperation) {
	op.Recursive = c.Sync.Recursive
	op.MkPath = c.Sync.MkPath
	op.CompareWorkers = c.Performance.CompareWorkers
	op.CopyWorkers = c.Performance.CopyWorkers
	op.CopyQueueSize = c.Performance.CopyQueueSize
	op.BufferSize = c.Performance.BufferSize
	op.BandwidthLimit = c.Performance.BandwidthLimit
	op.ExcludePatterns = append([]string(nil), c.Exclude...)
}
