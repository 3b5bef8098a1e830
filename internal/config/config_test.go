package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ironsheep/rrn-masker/internal/mask"
	"github.com/ironsheep/rrn-masker/internal/pipeline"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	require.NoError(t, cfg.Validate())
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "json", cfg.LogFormat)
	assert.Equal(t, []string{"kor", "eng"}, cfg.Pipeline.OCR.Languages)
	assert.Equal(t, 0.3, cfg.Pipeline.OCR.MinConfidence)
	assert.Equal(t, 2, cfg.Pipeline.Matcher.MaxJoinFragments)
	assert.Equal(t, mask.StyleMosaic, cfg.Pipeline.Mask.Style)
	assert.Equal(t, 6, cfg.Pipeline.Mask.Padding)
	assert.Equal(t, 8000, cfg.Server.Port)
	assert.Equal(t, "0.0.0.0:8000", cfg.Server.Addr())
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"log level", func(c *Config) { c.LogLevel = "verbose" }, "invalid log level"},
		{"log format", func(c *Config) { c.LogFormat = "xml" }, "invalid log format"},
		{"long side order", func(c *Config) { c.Pipeline.Preprocess.MinLongSide = 5000 }, "exceeds max"},
		{"max scale", func(c *Config) { c.Pipeline.Preprocess.MaxScale = 0.5 }, "max_scale"},
		{"contrast", func(c *Config) { c.Pipeline.Preprocess.Contrast = 150 }, "contrast"},
		{"denoise", func(c *Config) { c.Pipeline.Preprocess.Denoise = "bilateral" }, "denoise"},
		{"languages", func(c *Config) { c.Pipeline.OCR.Languages = nil }, "ocr.languages"},
		{"page seg mode", func(c *Config) { c.Pipeline.OCR.PageSegMode = 14 }, "page_seg_mode"},
		{"pool size", func(c *Config) { c.Pipeline.OCR.PoolSize = 0 }, "pool_size"},
		{"min confidence", func(c *Config) { c.Pipeline.OCR.MinConfidence = 1.5 }, "ocr.min_confidence"},
		{"max join", func(c *Config) { c.Pipeline.Matcher.MaxJoinFragments = 4 }, "max_join_fragments"},
		{"tolerance", func(c *Config) { c.Pipeline.Matcher.MaxGapRatio = 0 }, "matcher tolerances"},
		{"corrections", func(c *Config) { c.Pipeline.Matcher.MaxCorrections = -1 }, "max_corrections"},
		{"mask style", func(c *Config) { c.Pipeline.Mask.Style = "blur" }, "invalid mask settings"},
		{"fill color", func(c *Config) { c.Pipeline.Mask.FillColor = "black" }, "invalid mask settings"},
		{"port", func(c *Config) { c.Server.Port = 70000 }, "invalid server port"},
		{"upload size", func(c *Config) { c.Server.MaxUploadMB = 0 }, "max upload size"},
		{"max pixels", func(c *Config) { c.Pipeline.MaxPixels = 0 }, "pipeline.max_pixels"},
		{"timeout", func(c *Config) { c.Server.TimeoutSec = -1 }, "invalid timeout"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestToPipelineConfig(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Pipeline.OCR.MinConfidence = 0.5
	cfg.Pipeline.Matcher.MaxCorrections = 1
	cfg.Pipeline.Mask.Style = mask.StyleFill
	cfg.Pipeline.Mask.FillColor = "#000000"
	cfg.Pipeline.Mask.Padding = 3

	pc := cfg.ToPipelineConfig()
	def := pipeline.DefaultConfig()

	assert.Equal(t, def.Preprocess, pc.Preprocess)
	assert.Equal(t, 0.5, pc.MinConfidence)
	assert.Equal(t, 1, pc.Matcher.MaxCorrections)
	assert.Equal(t, def.Matcher.MaxJoin, pc.Matcher.MaxJoin)
	assert.NotEmpty(t, pc.Matcher.Confusions.Digits)
	assert.Equal(t, mask.Options{Style: mask.StyleFill, FillColor: "#000000", Padding: 3}, pc.Mask)
	assert.Nil(t, pc.DebugPreprocessed)
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{"PORT", "RRN_MASKER_SERVER_PORT", "RRN_MASKER_LOG_LEVEL", "RRN_MASKER_PIPELINE_MASK_STYLE"} {
		t.Setenv(k, "")
		os.Unsetenv(k)
	}
}

func TestLoader_Defaults(t *testing.T) {
	clearEnv(t)
	t.Chdir(t.TempDir())
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())

	cfg, err := NewLoaderWithViper(viper.New()).Load("")
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), *cfg)
}

func TestLoader_File(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	path := filepath.Join(dir, "custom.yaml")
	content := `
log_level: debug
pipeline:
  ocr:
    languages: [kor]
    min_confidence: 0.6
  mask:
    style: fill
    fill_color: "#202020"
server:
  port: 9090
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	l := NewLoaderWithViper(viper.New())
	cfg, err := l.Load(path)
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, []string{"kor"}, cfg.Pipeline.OCR.Languages)
	assert.Equal(t, 0.6, cfg.Pipeline.OCR.MinConfidence)
	assert.Equal(t, "fill", cfg.Pipeline.Mask.Style)
	assert.Equal(t, "#202020", cfg.Pipeline.Mask.FillColor)
	assert.Equal(t, 9090, cfg.Server.Port)
	// untouched keys keep defaults
	assert.Equal(t, 6, cfg.Pipeline.Mask.Padding)
	assert.Equal(t, path, l.ConfigFileUsed())
}

func TestLoader_SearchPath(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	t.Chdir(dir)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "rrn-masker.yaml"), []byte("log_format: text\n"), 0o644))

	cfg, err := NewLoaderWithViper(viper.New()).Load("")
	require.NoError(t, err)
	assert.Equal(t, "text", cfg.LogFormat)
}

func TestLoader_Environment(t *testing.T) {
	clearEnv(t)
	t.Chdir(t.TempDir())

	t.Run("prefixed keys", func(t *testing.T) {
		t.Setenv("RRN_MASKER_LOG_LEVEL", "warn")
		t.Setenv("RRN_MASKER_PIPELINE_MASK_STYLE", "fill")

		cfg, err := NewLoaderWithViper(viper.New()).Load("")
		require.NoError(t, err)
		assert.Equal(t, "warn", cfg.LogLevel)
		assert.Equal(t, "fill", cfg.Pipeline.Mask.Style)
	})

	t.Run("PORT", func(t *testing.T) {
		t.Setenv("PORT", "5050")

		cfg, err := NewLoaderWithViper(viper.New()).Load("")
		require.NoError(t, err)
		assert.Equal(t, 5050, cfg.Server.Port)
	})

	t.Run("prefixed port wins", func(t *testing.T) {
		t.Setenv("PORT", "5050")
		t.Setenv("RRN_MASKER_SERVER_PORT", "6060")

		cfg, err := NewLoaderWithViper(viper.New()).Load("")
		require.NoError(t, err)
		assert.Equal(t, 6060, cfg.Server.Port)
	})
}

func TestLoader_Errors(t *testing.T) {
	clearEnv(t)

	t.Run("missing explicit file", func(t *testing.T) {
		_, err := NewLoaderWithViper(viper.New()).Load(filepath.Join(t.TempDir(), "nope.yaml"))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "does not exist")
	})

	t.Run("malformed file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "bad.yaml")
		require.NoError(t, os.WriteFile(path, []byte("log_level: [unclosed\n"), 0o644))
		_, err := NewLoaderWithViper(viper.New()).Load(path)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "error reading config file")
	})

	t.Run("invalid value", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "invalid.yaml")
		require.NoError(t, os.WriteFile(path, []byte("server:\n  port: 0\n"), 0o644))
		_, err := NewLoaderWithViper(viper.New()).Load(path)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "validation failed")
	})
}

func TestLoadDotEnv(t *testing.T) {
	t.Run("missing file ignored", func(t *testing.T) {
		assert.NoError(t, LoadDotEnv(filepath.Join(t.TempDir(), ".env")))
	})

	t.Run("sets unset variables only", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), ".env")
		require.NoError(t, os.WriteFile(path, []byte("RRN_MASKER_DOTENV_A=from-file\nRRN_MASKER_DOTENV_B=from-file\n"), 0o644))
		t.Setenv("RRN_MASKER_DOTENV_A", "")
		os.Unsetenv("RRN_MASKER_DOTENV_A")
		t.Setenv("RRN_MASKER_DOTENV_B", "preset")

		require.NoError(t, LoadDotEnv(path))
		assert.Equal(t, "from-file", os.Getenv("RRN_MASKER_DOTENV_A"))
		assert.Equal(t, "preset", os.Getenv("RRN_MASKER_DOTENV_B"))
		os.Unsetenv("RRN_MASKER_DOTENV_A")
	})
}

func TestSearchPaths(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", "/tmp/xdg")
	assert.Equal(t, []string{".", "/tmp/xdg/rrn-masker", "/etc/rrn-masker"}, SearchPaths())
}
