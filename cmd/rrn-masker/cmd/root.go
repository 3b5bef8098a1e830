// Package cmd implements the rrn-masker command line.
package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/ironsheep/rrn-masker/internal/apperr"
	"github.com/ironsheep/rrn-masker/internal/config"
	"github.com/ironsheep/rrn-masker/internal/ocr"
	"github.com/ironsheep/rrn-masker/internal/ocr/tesseract"
)

// Exit codes.
const (
	ExitOK            = 0
	ExitFailure       = 1
	ExitInvalidImage  = 2
	ExitOCREngine     = 3
	ExitInvalidRegion = 4
)

// BuildInfo is stamped into the binary with ldflags.
type BuildInfo struct {
	Version   string
	BuildTime string
	GitCommit string
}

// engineFactory creates the OCR engine for a command.
type engineFactory func(opts tesseract.Options) (ocr.Engine, error)

func newTesseractEngine(opts tesseract.Options) (ocr.Engine, error) {
	return tesseract.New(opts)
}

// app is the state shared by all commands of one invocation.
type app struct {
	build     BuildInfo
	v         *viper.Viper
	cfgFile   string
	cfg       *config.Config
	newEngine engineFactory
}

// Execute runs the command line and returns the process exit code.
func Execute(build BuildInfo) int {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	root := newRootCommand(&app{build: build, v: viper.New(), newEngine: newTesseractEngine})
	err := root.ExecuteContext(ctx)
	if err != nil {
		fmt.Fprintf(root.ErrOrStderr(), "Error: %v\n", err)
	}
	return exitCode(err)
}

// exitCode maps an error to the documented exit codes.
func exitCode(err error) int {
	if err == nil {
		return ExitOK
	}
	code, ok := apperr.CodeOf(err)
	if !ok {
		return ExitFailure
	}
	switch code {
	case apperr.CodeInvalidImage:
		return ExitInvalidImage
	case apperr.CodeOCREngine:
		return ExitOCREngine
	case apperr.CodeInvalidRegion:
		return ExitInvalidRegion
	default:
		return ExitFailure
	}
}

func newRootCommand(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:   "rrn-masker",
		Short: "Find and mask Korean resident registration numbers in images",
		Long: `rrn-masker detects resident registration numbers (DDDDDD-DDDDDDD) in
scanned or photographed documents and obscures them.

Text is read with Tesseract OCR after the image is upscaled and cleaned up.
Common OCR misreads (O for 0, l for 1, ...) are corrected before matching, and
numbers split across neighbouring words are joined.

Examples:
  rrn-masker mask scan.jpg masked.jpg
  rrn-masker mask id.png out.png --style fill --fill-color "#000000"
  rrn-masker serve --port 8000`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.initialize(cmd)
		},
	}

	root.PersistentFlags().StringVar(&a.cfgFile, "config", "",
		"config file (default is rrn-masker.yaml in ., $HOME/.config/rrn-masker, /etc/rrn-masker)")
	root.PersistentFlags().BoolP("verbose", "v", false, "verbose output (equivalent to --log-level=debug)")
	root.PersistentFlags().String("log-level", "info", "log level (debug, info, warn, error)")
	root.PersistentFlags().String("log-format", "json", "log format (json, text)")

	_ = a.v.BindPFlag("verbose", root.PersistentFlags().Lookup("verbose"))
	_ = a.v.BindPFlag("log_level", root.PersistentFlags().Lookup("log-level"))
	_ = a.v.BindPFlag("log_format", root.PersistentFlags().Lookup("log-format"))

	root.AddCommand(newMaskCommand(a), newServeCommand(a), newVersionCommand(a))
	return root
}

// initialize loads .env and configuration, then installs the default logger.
func (a *app) initialize(cmd *cobra.Command) error {
	if err := config.LoadDotEnv(); err != nil {
		return err
	}

	cfg, err := config.NewLoaderWithViper(a.v).Load(a.cfgFile)
	if err != nil {
		return err
	}
	a.cfg = cfg

	level := parseLevel(cfg.LogLevel)
	if a.v.GetBool("verbose") {
		level = slog.LevelDebug
	}
	slog.SetDefault(newLogger(cmd.ErrOrStderr(), cfg.LogFormat, level))

	if used := a.v.ConfigFileUsed(); used != "" {
		slog.Debug("configuration loaded", "file", used)
	}
	return nil
}

func parseLevel(s string) slog.Level {
	switch s {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// newLogger writes to w, never stdout, so CLI output stays clean.
func newLogger(w io.Writer, format string, level slog.Level) *slog.Logger {
	opts := &slog.HandlerOptions{Level: level}
	if format == "text" {
		return slog.New(slog.NewTextHandler(w, opts))
	}
	return slog.New(slog.NewJSONHandler(w, opts))
}

// tesseractOptions converts OCR settings to engine options.
func tesseractOptions(c config.OCRConfig) tesseract.Options {
	return tesseract.Options{
		Languages:      c.Languages,
		TessdataPrefix: c.TessdataPrefix,
		PageSegMode:    c.PageSegMode,
		Whitelist:      c.Whitelist,
		PoolSize:       c.PoolSize,
	}
}

// startEngine creates the OCR engine, classifying failures as OCR engine
// errors.
func (a *app) startEngine() (ocr.Engine, error) {
	engine, err := a.newEngine(tesseractOptions(a.cfg.Pipeline.OCR))
	if err != nil {
		var e *apperr.Error
		if errors.As(err, &e) {
			return nil, err
		}
		return nil, apperr.OCREngine("failed to start OCR engine", err)
	}
	return engine, nil
}

// engineInfo reports the engine's state for health checks.
func engineInfo(engine ocr.Engine) any {
	if e, ok := engine.(interface{ Info() tesseract.Info }); ok {
		return e.Info()
	}
	return tesseract.Probe()
}
