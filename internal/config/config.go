// Package config handles configuration loading for the point list server and CLI.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/joaomamede/lowCostHCA/internal/plate"
	"github.com/joaomamede/lowCostHCA/internal/tiling"
	"gopkg.in/yaml.v3"
)

// Config represents the server configuration.
type Config struct {
	Server  ServerConfig  `yaml:"server"`
	Logging LoggingConfig `yaml:"logging"`
	Tiling  TilingConfig  `yaml:"tiling"`
	Plate   PlateConfig   `yaml:"plate"`
	Cache   CacheConfig   `yaml:"cache"`
	Render  RenderConfig  `yaml:"render"`
	Runs    RunsConfig    `yaml:"runs"`
}

// ServerConfig contains HTTP server settings.
type ServerConfig struct {
	Port        int      `yaml:"port"`
	CORSOrigins []string `yaml:"cors_origins"`
	Title       string   `yaml:"title"`
}

// LoggingConfig controls log output. An empty File logs to stderr only.
type LoggingConfig struct {
	File       string `yaml:"file"`
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
	MaxAgeDays int    `yaml:"max_age_days"`
}

// TilingConfig holds the acquisition camera defaults for ROI tiling.
type TilingConfig struct {
	TargetPixelSizeUM float64 `yaml:"target_pixel_size_um"`
	SensorPixels      int     `yaml:"sensor_pixels"`
	Overlap           float64 `yaml:"overlap"`
	StableROIIDs      bool    `yaml:"stable_roi_ids"`
	MaxTiles          int     `yaml:"max_tiles"`
}

// PlateConfig holds plate geometry and sampling defaults.
type PlateConfig struct {
	Rows               int     `yaml:"rows"`
	Cols               int     `yaml:"cols"`
	WellSpacingMM      float64 `yaml:"well_spacing_mm"`
	WellDiameterUM     float64 `yaml:"well_diameter_um"`
	OffsetXUM          float64 `yaml:"offset_x_um"`
	OffsetYUM          float64 `yaml:"offset_y_um"`
	Z                  float64 `yaml:"z"`
	PSFOffset          float64 `yaml:"psf_offset"`
	PointsPerWell      int     `yaml:"points_per_well"`
	MinPointDistanceUM float64 `yaml:"min_point_distance_um"`
	DrawsPerPoint      int     `yaml:"draws_per_point"`
	Strategy           string  `yaml:"strategy"`
}

// CacheConfig contains caching settings.
type CacheConfig struct {
	PreviewSizeMB     int `yaml:"preview_size_mb"`
	PreviewTTLMinutes int `yaml:"preview_ttl_minutes"`
	DocumentCacheSize int `yaml:"document_cache_size"`
}

// RenderConfig contains preview rendering settings.
type RenderConfig struct {
	MaxDimensionPx int    `yaml:"max_dimension_px"`
	WellPixels     int    `yaml:"well_pixels"`
	OrderColormap  string `yaml:"order_colormap"`
}

// RunsConfig controls the run history database.
type RunsConfig struct {
	SQLitePath     string `yaml:"sqlite_path"`
	RetentionDays  int    `yaml:"retention_days"`
	CleanupMinutes int    `yaml:"cleanup_minutes"`
}

// Load reads configuration from a YAML file. A missing file yields the
// defaults. Keys absent from the file keep their default values.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return DefaultConfig(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
	}

	applyDefaults(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	pp := plate.DefaultParams()
	return &Config{
		Server: ServerConfig{
			Port:        8080,
			CORSOrigins: []string{"http://localhost:3000", "http://localhost:5173"},
			Title:       "lowCostHCA point lists",
		},
		Logging: LoggingConfig{
			MaxSizeMB:  10,
			MaxBackups: 3,
			MaxAgeDays: 28,
		},
		Tiling: TilingConfig{
			TargetPixelSizeUM: 0.160,
			SensorPixels:      2040,
			Overlap:           0.05,
			MaxTiles:          tiling.DefaultMaxTiles,
		},
		Plate: PlateConfig{
			Rows:               pp.Layout.Rows,
			Cols:               pp.Layout.Cols,
			WellSpacingMM:      pp.WellSpacingMM,
			WellDiameterUM:     pp.WellDiameterUM,
			OffsetXUM:          pp.OffsetXUM,
			OffsetYUM:          pp.OffsetYUM,
			Z:                  pp.Z,
			PSFOffset:          pp.PSFOffset,
			PointsPerWell:      pp.PointsPerWell,
			MinPointDistanceUM: pp.MinDistanceUM,
			DrawsPerPoint:      pp.DrawsPerPoint,
			Strategy:           string(pp.Strategy),
		},
		Cache: CacheConfig{
			PreviewSizeMB:     64,
			PreviewTTLMinutes: 10,
			DocumentCacheSize: 256,
		},
		Render: RenderConfig{
			MaxDimensionPx: 1024,
			WellPixels:     48,
			OrderColormap:  "viridis",
		},
		Runs: RunsConfig{
			SQLitePath:     "./data/runs.sqlite",
			RetentionDays:  30,
			CleanupMinutes: 60,
		},
	}
}

// applyDefaults restores defaults for values that were explicitly zeroed but
// have no meaningful zero.
func applyDefaults(cfg *Config) {
	defaults := DefaultConfig()

	if cfg.Server.Port == 0 {
		cfg.Server.Port = defaults.Server.Port
	}
	if len(cfg.Server.CORSOrigins) == 0 {
		cfg.Server.CORSOrigins = defaults.Server.CORSOrigins
	}
	if cfg.Logging.MaxSizeMB == 0 {
		cfg.Logging.MaxSizeMB = defaults.Logging.MaxSizeMB
	}
	if cfg.Tiling.TargetPixelSizeUM == 0 {
		cfg.Tiling.TargetPixelSizeUM = defaults.Tiling.TargetPixelSizeUM
	}
	if cfg.Tiling.SensorPixels == 0 {
		cfg.Tiling.SensorPixels = defaults.Tiling.SensorPixels
	}
	if cfg.Tiling.MaxTiles == 0 {
		cfg.Tiling.MaxTiles = defaults.Tiling.MaxTiles
	}
	if cfg.Plate.Rows == 0 {
		cfg.Plate.Rows = defaults.Plate.Rows
	}
	if cfg.Plate.Cols == 0 {
		cfg.Plate.Cols = defaults.Plate.Cols
	}
	if cfg.Plate.WellSpacingMM == 0 {
		cfg.Plate.WellSpacingMM = defaults.Plate.WellSpacingMM
	}
	if cfg.Plate.WellDiameterUM == 0 {
		cfg.Plate.WellDiameterUM = defaults.Plate.WellDiameterUM
	}
	if cfg.Plate.PointsPerWell == 0 {
		cfg.Plate.PointsPerWell = defaults.Plate.PointsPerWell
	}
	if cfg.Plate.DrawsPerPoint == 0 {
		cfg.Plate.DrawsPerPoint = defaults.Plate.DrawsPerPoint
	}
	if cfg.Plate.Strategy == "" {
		cfg.Plate.Strategy = defaults.Plate.Strategy
	}
	if cfg.Cache.PreviewSizeMB == 0 {
		cfg.Cache.PreviewSizeMB = defaults.Cache.PreviewSizeMB
	}
	if cfg.Cache.PreviewTTLMinutes == 0 {
		cfg.Cache.PreviewTTLMinutes = defaults.Cache.PreviewTTLMinutes
	}
	if cfg.Cache.DocumentCacheSize == 0 {
		cfg.Cache.DocumentCacheSize = defaults.Cache.DocumentCacheSize
	}
	if cfg.Render.MaxDimensionPx == 0 {
		cfg.Render.MaxDimensionPx = defaults.Render.MaxDimensionPx
	}
	if cfg.Render.WellPixels == 0 {
		cfg.Render.WellPixels = defaults.Render.WellPixels
	}
	if cfg.Render.OrderColormap == "" {
		cfg.Render.OrderColormap = defaults.Render.OrderColormap
	}
	if cfg.Runs.SQLitePath == "" {
		cfg.Runs.SQLitePath = defaults.Runs.SQLitePath
	}
	if cfg.Runs.RetentionDays == 0 {
		cfg.Runs.RetentionDays = defaults.Runs.RetentionDays
	}
	if cfg.Runs.CleanupMinutes == 0 {
		cfg.Runs.CleanupMinutes = defaults.Runs.CleanupMinutes
	}
}

// Validate checks the tiling and plate sections.
func (c *Config) Validate() error {
	if err := c.Tiling.Params().Validate(); err != nil {
		return fmt.Errorf("tiling: %w", err)
	}
	if err := c.Plate.Params().Validate(); err != nil {
		return fmt.Errorf("plate: %w", err)
	}
	return nil
}

// Params converts the section to tiling parameters.
func (c TilingConfig) Params() tiling.Params {
	return tiling.Params{
		TargetPixelSizeUM: c.TargetPixelSizeUM,
		SensorPixels:      c.SensorPixels,
		Overlap:           c.Overlap,
		MaxTiles:          c.MaxTiles,
	}
}

// Numbering returns the configured ROI numbering policy.
func (c TilingConfig) Numbering() tiling.Numbering {
	if c.StableROIIDs {
		return tiling.NumberByID
	}
	return tiling.NumberByPosition
}

// Params converts the section to plate parameters.
func (c PlateConfig) Params() plate.Params {
	return plate.Params{
		Layout:         plate.Layout{Rows: c.Rows, Cols: c.Cols},
		WellSpacingMM:  c.WellSpacingMM,
		WellDiameterUM: c.WellDiameterUM,
		OffsetXUM:      c.OffsetXUM,
		OffsetYUM:      c.OffsetYUM,
		Z:              c.Z,
		PSFOffset:      c.PSFOffset,
		PointsPerWell:  c.PointsPerWell,
		MinDistanceUM:  c.MinPointDistanceUM,
		DrawsPerPoint:  c.DrawsPerPoint,
		Strategy:       plate.Strategy(c.Strategy),
	}
}

// PreviewTTL returns the preview cache lifetime.
func (c CacheConfig) PreviewTTL() time.Duration {
	return time.Duration(c.PreviewTTLMinutes) * time.Minute
}

// CleanupPeriod returns the run cleanup interval.
func (c RunsConfig) CleanupPeriod() time.Duration {
	return time.Duration(c.CleanupMinutes) * time.Minute
}
