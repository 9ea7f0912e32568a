// Package config loads the desktop app's settings file. Every field is
// optional; the Get* accessors supply defaults for anything left out.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/magicphoto/relief/pkg/depth"
	"github.com/magicphoto/relief/pkg/pipeline"
)

// DefaultPath is where the app looks for settings when none is given.
const DefaultPath = "relief.json"

// Defaults for settings left unset.
const (
	DefaultExportDir   = "exports"
	DefaultDepthSuffix = "_depth"
)

const maxFileSize = 1 * 1024 * 1024 // 1MB

// Settings is the root of the settings file.
type Settings struct {
	// Depth estimation
	EstimateTimeout *string  `json:"estimate_timeout,omitempty"` // duration string like "30s"
	InputSize       *int     `json:"input_size,omitempty"`
	BlurRadius      *float64 `json:"blur_radius,omitempty"`
	DepthSuffix     *string  `json:"depth_suffix,omitempty"` // sidecar depth file: photo<suffix>.png
	Disparity       *bool    `json:"disparity,omitempty"`    // sidecar files hold inverse depth

	// Meshing
	Recipe  *string `json:"recipe,omitempty"` // Lisp applied before each build's own recipe
	Workers *int    `json:"workers,omitempty"`

	// Output
	ExportDir *string `json:"export_dir,omitempty"`
}

// Empty returns Settings with every field unset.
func Empty() *Settings {
	return &Settings{}
}

// Load reads settings from a JSON file. The file must have a .json
// extension and be under 1MB. Omitted fields keep their defaults.
func Load(path string) (*Settings, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("settings file must have .json extension, got %q", ext)
	}

	info, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat settings file: %w", err)
	}
	if info.Size() > maxFileSize {
		return nil, fmt.Errorf("settings file too large: %d bytes (max %d)", info.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read settings file: %w", err)
	}

	s := Empty()
	if err := json.Unmarshal(data, s); err != nil {
		return nil, fmt.Errorf("failed to parse settings JSON: %w", err)
	}
	if err := s.Validate(); err != nil {
		return nil, fmt.Errorf("invalid settings: %w", err)
	}
	return s, nil
}

// LoadOrDefault loads path if it exists and returns empty settings when it
// does not. Any other failure is returned.
func LoadOrDefault(path string) (*Settings, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return Empty(), nil
	}
	return Load(path)
}

// Validate checks that set values are usable.
func (s *Settings) Validate() error {
	if s.EstimateTimeout != nil && *s.EstimateTimeout != "" {
		d, err := time.ParseDuration(*s.EstimateTimeout)
		if err != nil {
			return fmt.Errorf("invalid estimate_timeout '%s': %w", *s.EstimateTimeout, err)
		}
		if d <= 0 {
			return fmt.Errorf("estimate_timeout must be positive, got %s", d)
		}
	}
	if s.InputSize != nil && *s.InputSize < 0 {
		return fmt.Errorf("input_size must be non-negative, got %d", *s.InputSize)
	}
	if s.BlurRadius != nil && *s.BlurRadius < 0 {
		return fmt.Errorf("blur_radius must be non-negative, got %f", *s.BlurRadius)
	}
	if s.Workers != nil && *s.Workers < 0 {
		return fmt.Errorf("workers must be non-negative, got %d", *s.Workers)
	}
	if s.DepthSuffix != nil && strings.ContainsAny(*s.DepthSuffix, `/\`) {
		return fmt.Errorf("depth_suffix must not contain path separators, got %q", *s.DepthSuffix)
	}
	return nil
}

// GetEstimateTimeout returns the estimation deadline.
func (s *Settings) GetEstimateTimeout() time.Duration {
	if s.EstimateTimeout == nil || *s.EstimateTimeout == "" {
		return pipeline.DefaultTimeout
	}
	d, err := time.ParseDuration(*s.EstimateTimeout)
	if err != nil || d <= 0 {
		return pipeline.DefaultTimeout
	}
	return d
}

// GetInputSize returns the estimator's output resolution.
func (s *Settings) GetInputSize() int {
	if s.InputSize == nil {
		return depth.DefaultInputSize
	}
	return *s.InputSize
}

// GetBlurRadius returns the estimator's smoothing radius.
func (s *Settings) GetBlurRadius() float64 {
	if s.BlurRadius == nil {
		return 0
	}
	return *s.BlurRadius
}

// GetDepthSuffix returns the sidecar depth file suffix.
func (s *Settings) GetDepthSuffix() string {
	if s.DepthSuffix == nil || *s.DepthSuffix == "" {
		return DefaultDepthSuffix
	}
	return *s.DepthSuffix
}

// GetDisparity reports whether sidecar depth files hold inverse depth.
func (s *Settings) GetDisparity() bool {
	if s.Disparity == nil {
		return false
	}
	return *s.Disparity
}

// GetRecipe returns the base recipe source, empty when unset.
func (s *Settings) GetRecipe() string {
	if s.Recipe == nil {
		return ""
	}
	return *s.Recipe
}

// GetWorkers returns the triangulation worker count; 0 means GOMAXPROCS.
func (s *Settings) GetWorkers() int {
	if s.Workers == nil {
		return 0
	}
	return *s.Workers
}

// GetExportDir returns the export directory.
func (s *Settings) GetExportDir() string {
	if s.ExportDir == nil || *s.ExportDir == "" {
		return DefaultExportDir
	}
	return *s.ExportDir
}

// Estimator returns the luminance estimator these settings describe.
func (s *Settings) Estimator() depth.LuminanceEstimator {
	return depth.LuminanceEstimator{Size: s.GetInputSize(), BlurRadius: s.GetBlurRadius()}
}

// SidecarPath returns where a precomputed depth map for photo would live:
// the photo's name with the depth suffix and a .png extension, in the same
// directory.
func (s *Settings) SidecarPath(photo string) string {
	base := strings.TrimSuffix(photo, filepath.Ext(photo))
	return base + s.GetDepthSuffix() + ".png"
}
