package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config contains the tunable settings for the recognition pipeline and the
// AI worker process. All fields have working defaults; a YAML file only needs
// to name the values it overrides.
type Config struct {
	Pipeline PipelineConfig `yaml:"pipeline"`
	Worker   WorkerConfig   `yaml:"worker"`
}

// PipelineConfig holds the sampling cadences and acceptance thresholds.
type PipelineConfig struct {
	ScanStride      int     `yaml:"scanStride"`      // analyze every Nth frame (3 reduces a 30fps source to ~10fps of analysis)
	DisplayStride   int     `yaml:"displayStride"`   // emit a display heartbeat every Nth original frame
	PrimeZoneArea   int     `yaml:"primeZoneArea"`   // minimum box area (px^2) before a track is worth scanning
	MinPlateLength  int     `yaml:"minPlateLength"`  // cleaned text shorter than this is rejected
	VideoConfidence float64 `yaml:"videoConfidence"` // OCR confidence must exceed this on the video path
	ImageConfidence float64 `yaml:"imageConfidence"` // OCR confidence must exceed this on the still-image path
}

// WorkerConfig holds the settings used to launch the Python AI worker.
type WorkerConfig struct {
	Command string   `yaml:"command"` // interpreter, e.g. python3
	Args    []string `yaml:"args"`    // script + flags, e.g. [-u, python/plate_worker.py]
}

// Default returns the configuration matching the tuned production values.
func Default() Config {
	return Config{
		Pipeline: PipelineConfig{
			ScanStride:      3,
			DisplayStride:   10,
			PrimeZoneArea:   10000,
			MinPlateLength:  3,
			VideoConfidence: 0.4,
			ImageConfidence: 0.35,
		},
		Worker: WorkerConfig{
			Command: "python3",
			Args:    []string{"-u", "python/plate_worker.py"},
		},
	}
}

// Load reads a YAML config file over the defaults. An empty path returns the
// defaults untouched.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("config read error: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("config parse error: %w", err)
	}

	return cfg, cfg.Validate()
}

// Validate rejects values that would stall or break the pipeline.
func (c Config) Validate() error {
	p := c.Pipeline
	if p.ScanStride < 1 {
		return fmt.Errorf("scanStride must be >= 1, got %d", p.ScanStride)
	}
	if p.DisplayStride < 1 {
		return fmt.Errorf("displayStride must be >= 1, got %d", p.DisplayStride)
	}
	if p.PrimeZoneArea < 0 {
		return fmt.Errorf("primeZoneArea must be >= 0, got %d", p.PrimeZoneArea)
	}
	if p.MinPlateLength < 1 {
		return fmt.Errorf("minPlateLength must be >= 1, got %d", p.MinPlateLength)
	}
	if p.VideoConfidence < 0 || p.VideoConfidence >= 1 {
		return fmt.Errorf("videoConfidence must be in [0,1), got %f", p.VideoConfidence)
	}
	if p.ImageConfidence < 0 || p.ImageConfidence >= 1 {
		return fmt.Errorf("imageConfidence must be in [0,1), got %f", p.ImageConfidence)
	}
	if c.Worker.Command == "" {
		return fmt.Errorf("worker command must not be empty")
	}
	return nil
}
