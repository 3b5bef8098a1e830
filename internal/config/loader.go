package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	// ConfigFileName is the base name for configuration files (without extension).
	ConfigFileName = "rrn-masker"

	// EnvPrefix is the prefix for environment variables.
	EnvPrefix = "RRN_MASKER"
)

// Loader handles loading configuration from various sources.
type Loader struct {
	v *viper.Viper
}

// NewLoaderWithViper creates a loader on v. Flags bound to v with
// BindPFlag take precedence over every other source.
func NewLoaderWithViper(v *viper.Viper) *Loader {
	return &Loader{v: v}
}

// Load reads configuration from an optional file, environment variables and
// defaults, then validates it. An empty configFile searches the standard
// locations; a missing file there is not an error.
func (l *Loader) Load(configFile string) (*Config, error) {
	l.setupEnvironmentVariables()
	l.setDefaults()

	if configFile != "" {
		if _, err := os.Stat(configFile); err != nil {
			return nil, fmt.Errorf("config file does not exist: %s", configFile)
		}
		l.v.SetConfigFile(configFile)
	} else {
		l.v.SetConfigName(ConfigFileName)
		l.v.SetConfigType("yaml")
		l.addConfigPaths()
	}

	if err := l.v.ReadInConfig(); err != nil {
		var configFileNotFoundError viper.ConfigFileNotFoundError
		if configFile != "" || !errors.As(err, &configFileNotFoundError) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var config Config
	if err := l.v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return &config, nil
}

// ConfigFileUsed returns the path of the config file used, if any.
func (l *Loader) ConfigFileUsed() string {
	return l.v.ConfigFileUsed()
}

// addConfigPaths adds the standard configuration search paths.
func (l *Loader) addConfigPaths() {
	for _, p := range SearchPaths() {
		l.v.AddConfigPath(p)
	}
}

// SearchPaths returns the directories searched for rrn-masker.yaml.
func SearchPaths() []string {
	paths := []string{"."}
	if configDir, exists := os.LookupEnv("XDG_CONFIG_HOME"); exists {
		paths = append(paths, filepath.Join(configDir, "rrn-masker"))
	} else if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(home, ".config", "rrn-masker"))
	}
	return append(paths, "/etc/rrn-masker")
}

// setupEnvironmentVariables configures environment variable handling.
//
// Every key maps to RRN_MASKER_<KEY> with dots replaced by underscores.
// server.port also honours PORT, the variable container platforms set.
func (l *Loader) setupEnvironmentVariables() {
	l.v.SetEnvPrefix(EnvPrefix)
	l.v.AutomaticEnv()
	l.v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))

	_ = l.v.BindEnv("server.port", EnvPrefix+"_SERVER_PORT", "PORT")
}

// setDefaults sets default values for all configuration options.
func (l *Loader) setDefaults() {
	d := DefaultConfig()

	l.v.SetDefault("log_level", d.LogLevel)
	l.v.SetDefault("log_format", d.LogFormat)

	l.v.SetDefault("pipeline.max_pixels", d.Pipeline.MaxPixels)

	l.v.SetDefault("pipeline.preprocess.min_long_side", d.Pipeline.Preprocess.MinLongSide)
	l.v.SetDefault("pipeline.preprocess.max_long_side", d.Pipeline.Preprocess.MaxLongSide)
	l.v.SetDefault("pipeline.preprocess.max_scale", d.Pipeline.Preprocess.MaxScale)
	l.v.SetDefault("pipeline.preprocess.contrast", d.Pipeline.Preprocess.Contrast)
	l.v.SetDefault("pipeline.preprocess.denoise", d.Pipeline.Preprocess.Denoise)
	l.v.SetDefault("pipeline.preprocess.blur_sigma", d.Pipeline.Preprocess.BlurSigma)
	l.v.SetDefault("pipeline.preprocess.median_radius", d.Pipeline.Preprocess.MedianRadius)
	l.v.SetDefault("pipeline.preprocess.binarize", d.Pipeline.Preprocess.Binarize)

	l.v.SetDefault("pipeline.ocr.languages", d.Pipeline.OCR.Languages)
	l.v.SetDefault("pipeline.ocr.tessdata_prefix", d.Pipeline.OCR.TessdataPrefix)
	l.v.SetDefault("pipeline.ocr.page_seg_mode", d.Pipeline.OCR.PageSegMode)
	l.v.SetDefault("pipeline.ocr.whitelist", d.Pipeline.OCR.Whitelist)
	l.v.SetDefault("pipeline.ocr.pool_size", d.Pipeline.OCR.PoolSize)
	l.v.SetDefault("pipeline.ocr.min_confidence", d.Pipeline.OCR.MinConfidence)

	l.v.SetDefault("pipeline.matcher.max_join_fragments", d.Pipeline.Matcher.MaxJoinFragments)
	l.v.SetDefault("pipeline.matcher.vertical_tolerance", d.Pipeline.Matcher.VerticalTolerance)
	l.v.SetDefault("pipeline.matcher.max_gap_ratio", d.Pipeline.Matcher.MaxGapRatio)
	l.v.SetDefault("pipeline.matcher.max_overlap_ratio", d.Pipeline.Matcher.MaxOverlapRatio)
	l.v.SetDefault("pipeline.matcher.max_corrections", d.Pipeline.Matcher.MaxCorrections)

	l.v.SetDefault("pipeline.mask.style", d.Pipeline.Mask.Style)
	l.v.SetDefault("pipeline.mask.cell_size", d.Pipeline.Mask.CellSize)
	l.v.SetDefault("pipeline.mask.fill_color", d.Pipeline.Mask.FillColor)
	l.v.SetDefault("pipeline.mask.padding", d.Pipeline.Mask.Padding)

	l.v.SetDefault("server.host", d.Server.Host)
	l.v.SetDefault("server.port", d.Server.Port)
	l.v.SetDefault("server.max_upload_mb", d.Server.MaxUploadMB)
	l.v.SetDefault("server.timeout_sec", d.Server.TimeoutSec)
	l.v.SetDefault("server.shutdown_timeout", d.Server.ShutdownTimeout)
}

// LoadDotEnv loads KEY=VALUE pairs from the given files (".env" when none are
// given) into the process environment. Missing files are ignored; variables
// already set are not overridden.
func LoadDotEnv(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if err := godotenv.Load(f); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return fmt.Errorf("failed to load %s: %w", f, err)
		}
	}
	return nil
}
