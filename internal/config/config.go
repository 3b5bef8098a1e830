package config

import (
	"fmt"
	"slices"
	"strings"

	"github.com/ironsheep/rrn-masker/internal/detection"
	"github.com/ironsheep/rrn-masker/internal/imaging"
	"github.com/ironsheep/rrn-masker/internal/mask"
	"github.com/ironsheep/rrn-masker/internal/pipeline"
)

// Config represents the complete configuration for rrn-masker. It covers the
// mask and serve commands and is loaded from a config file, environment
// variables and command-line flags.
type Config struct {
	LogLevel  string `mapstructure:"log_level" yaml:"log_level" json:"log_level"`
	LogFormat string `mapstructure:"log_format" yaml:"log_format" json:"log_format"`

	Pipeline PipelineConfig `mapstructure:"pipeline" yaml:"pipeline" json:"pipeline"`
	Server   ServerConfig   `mapstructure:"server" yaml:"server" json:"server"`
}

// PipelineConfig contains the settings of every pipeline stage.
type PipelineConfig struct {
	// MaxPixels bounds the decoded size of input images (width times height).
	MaxPixels int64 `mapstructure:"max_pixels" yaml:"max_pixels" json:"max_pixels"`

	Preprocess PreprocessConfig `mapstructure:"preprocess" yaml:"preprocess" json:"preprocess"`
	OCR        OCRConfig        `mapstructure:"ocr" yaml:"ocr" json:"ocr"`
	Matcher    MatcherConfig    `mapstructure:"matcher" yaml:"matcher" json:"matcher"`
	Mask       MaskConfig       `mapstructure:"mask" yaml:"mask" json:"mask"`
}

// PreprocessConfig contains image preparation settings.
type PreprocessConfig struct {
	MinLongSide  int     `mapstructure:"min_long_side" yaml:"min_long_side" json:"min_long_side"`
	MaxLongSide  int     `mapstructure:"max_long_side" yaml:"max_long_side" json:"max_long_side"`
	MaxScale     float64 `mapstructure:"max_scale" yaml:"max_scale" json:"max_scale"`
	Contrast     float64 `mapstructure:"contrast" yaml:"contrast" json:"contrast"`
	Denoise      string  `mapstructure:"denoise" yaml:"denoise" json:"denoise"`
	BlurSigma    float64 `mapstructure:"blur_sigma" yaml:"blur_sigma" json:"blur_sigma"`
	MedianRadius float64 `mapstructure:"median_radius" yaml:"median_radius" json:"median_radius"`
	Binarize     bool    `mapstructure:"binarize" yaml:"binarize" json:"binarize"`
}

// OCRConfig contains Tesseract settings.
type OCRConfig struct {
	Languages      []string `mapstructure:"languages" yaml:"languages" json:"languages"`
	TessdataPrefix string   `mapstructure:"tessdata_prefix" yaml:"tessdata_prefix" json:"tessdata_prefix"`
	PageSegMode    int      `mapstructure:"page_seg_mode" yaml:"page_seg_mode" json:"page_seg_mode"`
	Whitelist      string   `mapstructure:"whitelist" yaml:"whitelist" json:"whitelist"`
	PoolSize       int      `mapstructure:"pool_size" yaml:"pool_size" json:"pool_size"`
	MinConfidence  float64  `mapstructure:"min_confidence" yaml:"min_confidence" json:"min_confidence"`
}

// MatcherConfig contains ID matching settings.
type MatcherConfig struct {
	MaxJoinFragments  int     `mapstructure:"max_join_fragments" yaml:"max_join_fragments" json:"max_join_fragments"`
	VerticalTolerance float64 `mapstructure:"vertical_tolerance" yaml:"vertical_tolerance" json:"vertical_tolerance"`
	MaxGapRatio       float64 `mapstructure:"max_gap_ratio" yaml:"max_gap_ratio" json:"max_gap_ratio"`
	MaxOverlapRatio   float64 `mapstructure:"max_overlap_ratio" yaml:"max_overlap_ratio" json:"max_overlap_ratio"`
	MaxCorrections    int     `mapstructure:"max_corrections" yaml:"max_corrections" json:"max_corrections"`
}

// MaskConfig contains masking settings.
type MaskConfig struct {
	Style     string `mapstructure:"style" yaml:"style" json:"style"`
	CellSize  int    `mapstructure:"cell_size" yaml:"cell_size" json:"cell_size"`
	FillColor string `mapstructure:"fill_color" yaml:"fill_color" json:"fill_color"`
	Padding   int    `mapstructure:"padding" yaml:"padding" json:"padding"`
}

// ServerConfig contains HTTP server settings (serve command).
type ServerConfig struct {
	Host            string `mapstructure:"host" yaml:"host" json:"host"`
	Port            int    `mapstructure:"port" yaml:"port" json:"port"`
	MaxUploadMB     int    `mapstructure:"max_upload_mb" yaml:"max_upload_mb" json:"max_upload_mb"`
	TimeoutSec      int    `mapstructure:"timeout_sec" yaml:"timeout_sec" json:"timeout_sec"`
	ShutdownTimeout int    `mapstructure:"shutdown_timeout" yaml:"shutdown_timeout" json:"shutdown_timeout"`
}

// DefaultConfig returns a configuration with sensible defaults.
func DefaultConfig() Config {
	pre := imaging.DefaultPreprocessOptions()
	match := detection.DefaultOptions()
	msk := mask.DefaultOptions()

	return Config{
		LogLevel:  "info",
		LogFormat: "json",
		Pipeline: PipelineConfig{
			MaxPixels: imaging.DefaultMaxPixels,
			Preprocess: PreprocessConfig{
				MinLongSide:  pre.MinLongSide,
				MaxLongSide:  pre.MaxLongSide,
				MaxScale:     pre.MaxScale,
				Contrast:     pre.Contrast,
				Denoise:      pre.Denoise,
				BlurSigma:    pre.BlurSigma,
				MedianRadius: pre.MedianRadius,
				Binarize:     pre.Binarize,
			},
			OCR: OCRConfig{
				Languages:     []string{"kor", "eng"},
				PageSegMode:   3,
				PoolSize:      2,
				MinConfidence: 0.3,
			},
			Matcher: MatcherConfig{
				MaxJoinFragments:  match.MaxJoin,
				VerticalTolerance: match.VerticalTolerance,
				MaxGapRatio:       match.MaxGapRatio,
				MaxOverlapRatio:   match.MaxOverlapRatio,
				MaxCorrections:    match.MaxCorrections,
			},
			Mask: MaskConfig{
				Style:   msk.Style,
				Padding: msk.Padding,
			},
		},
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            8000,
			MaxUploadMB:     20,
			TimeoutSec:      60,
			ShutdownTimeout: 10,
		},
	}
}

// Validate validates the configuration and returns the first error found.
func (c *Config) Validate() error {
	validLogLevels := []string{"debug", "info", "warn", "error"}
	if !slices.Contains(validLogLevels, c.LogLevel) {
		return fmt.Errorf("invalid log level: %s (must be one of: %s)", c.LogLevel, strings.Join(validLogLevels, ", "))
	}
	validLogFormats := []string{"json", "text"}
	if !slices.Contains(validLogFormats, c.LogFormat) {
		return fmt.Errorf("invalid log format: %s (must be one of: %s)", c.LogFormat, strings.Join(validLogFormats, ", "))
	}

	if c.Pipeline.MaxPixels <= 0 {
		return fmt.Errorf("invalid pipeline.max_pixels: %d (must be positive)", c.Pipeline.MaxPixels)
	}

	pre := c.Pipeline.Preprocess
	if pre.MinLongSide < 0 || pre.MaxLongSide < 0 {
		return fmt.Errorf("invalid preprocess long side bounds: %d..%d (must not be negative)", pre.MinLongSide, pre.MaxLongSide)
	}
	if pre.MinLongSide > 0 && pre.MaxLongSide > 0 && pre.MinLongSide > pre.MaxLongSide {
		return fmt.Errorf("invalid preprocess long side bounds: min %d exceeds max %d", pre.MinLongSide, pre.MaxLongSide)
	}
	if pre.MaxScale != 0 && pre.MaxScale < 1 {
		return fmt.Errorf("invalid preprocess.max_scale: %.2f (must be at least 1)", pre.MaxScale)
	}
	if pre.Contrast < -100 || pre.Contrast > 100 {
		return fmt.Errorf("invalid preprocess.contrast: %.1f (must be between -100 and 100)", pre.Contrast)
	}
	validDenoise := []string{imaging.DenoiseNone, imaging.DenoiseGaussian, imaging.DenoiseMedian}
	if !slices.Contains(validDenoise, pre.Denoise) {
		return fmt.Errorf("invalid preprocess.denoise: %s (must be one of: %s)", pre.Denoise, strings.Join(validDenoise, ", "))
	}

	o := c.Pipeline.OCR
	if len(o.Languages) == 0 {
		return fmt.Errorf("invalid ocr.languages: at least one language is required")
	}
	if o.PageSegMode < 0 || o.PageSegMode > 13 {
		return fmt.Errorf("invalid ocr.page_seg_mode: %d (must be between 0 and 13)", o.PageSegMode)
	}
	if o.PoolSize <= 0 {
		return fmt.Errorf("invalid ocr.pool_size: %d (must be positive)", o.PoolSize)
	}
	if err := validateThreshold(o.MinConfidence, "ocr.min_confidence"); err != nil {
		return err
	}

	m := c.Pipeline.Matcher
	if m.MaxJoinFragments < 1 || m.MaxJoinFragments > detection.MaxJoinLimit {
		return fmt.Errorf("invalid matcher.max_join_fragments: %d (must be between 1 and %d)", m.MaxJoinFragments, detection.MaxJoinLimit)
	}
	if m.VerticalTolerance <= 0 || m.MaxGapRatio <= 0 || m.MaxOverlapRatio < 0 {
		return fmt.Errorf("invalid matcher tolerances: vertical %.2f, gap %.2f, overlap %.2f", m.VerticalTolerance, m.MaxGapRatio, m.MaxOverlapRatio)
	}
	if m.MaxCorrections < 0 || m.MaxCorrections > detection.IDLength-1 {
		return fmt.Errorf("invalid matcher.max_corrections: %d (must be between 0 and %d)", m.MaxCorrections, detection.IDLength-1)
	}

	if err := c.maskOptions().Validate(); err != nil {
		return fmt.Errorf("invalid mask settings: %w", err)
	}

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d (must be between 1 and 65535)", c.Server.Port)
	}
	if c.Server.MaxUploadMB <= 0 {
		return fmt.Errorf("invalid max upload size: %d (must be positive)", c.Server.MaxUploadMB)
	}
	if c.Server.TimeoutSec <= 0 {
		return fmt.Errorf("invalid timeout: %d (must be positive)", c.Server.TimeoutSec)
	}
	if c.Server.ShutdownTimeout < 0 {
		return fmt.Errorf("invalid shutdown timeout: %d (must not be negative)", c.Server.ShutdownTimeout)
	}

	return nil
}

// ToPipelineConfig converts the config to the internal pipeline configuration format.
func (c *Config) ToPipelineConfig() pipeline.Config {
	pre := c.Pipeline.Preprocess
	m := c.Pipeline.Matcher

	return pipeline.Config{
		Preprocess: imaging.PreprocessOptions{
			MinLongSide:  pre.MinLongSide,
			MaxLongSide:  pre.MaxLongSide,
			MaxScale:     pre.MaxScale,
			Contrast:     pre.Contrast,
			Denoise:      pre.Denoise,
			BlurSigma:    pre.BlurSigma,
			MedianRadius: pre.MedianRadius,
			Binarize:     pre.Binarize,
		},
		MinConfidence: c.Pipeline.OCR.MinConfidence,
		Matcher: detection.Options{
			MaxJoin:           m.MaxJoinFragments,
			VerticalTolerance: m.VerticalTolerance,
			MaxGapRatio:       m.MaxGapRatio,
			MaxOverlapRatio:   m.MaxOverlapRatio,
			MaxCorrections:    m.MaxCorrections,
			Confusions:        detection.DefaultConfusions(),
		},
		Mask: c.maskOptions(),
	}
}

func (c *Config) maskOptions() mask.Options {
	return mask.Options{
		Style:     c.Pipeline.Mask.Style,
		CellSize:  c.Pipeline.Mask.CellSize,
		FillColor: c.Pipeline.Mask.FillColor,
		Padding:   c.Pipeline.Mask.Padding,
	}
}

// Addr returns the server listen address.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// validateThreshold validates that a value is between 0.0 and 1.0.
func validateThreshold(value float64, name string) error {
	if value < 0.0 || value > 1.0 {
		return fmt.Errorf("invalid %s: %.2f (must be between 0.0 and 1.0)", name, value)
	}
	return nil
}
