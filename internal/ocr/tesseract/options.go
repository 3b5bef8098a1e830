package tesseract

import (
	"errors"
	"fmt"
)

// ErrClosed is returned by Recognize after Close.
var ErrClosed = errors.New("tesseract engine closed")

// DefaultPageSegMode is Tesseract's fully automatic page segmentation (PSM 3).
const DefaultPageSegMode = 3

// Options configures an Engine.
type Options struct {
	// Languages are Tesseract language codes, joined with "+" when the engine
	// initializes. Korean labels and Latin digits both appear on ID documents.
	Languages []string

	// TessdataPrefix points at the directory holding *.traineddata files.
	// Empty uses TESSDATA_PREFIX or the library default.
	TessdataPrefix string

	// PageSegMode is the Tesseract PSM number (0-13). Values <= 0 keep the
	// library default.
	PageSegMode int

	// Whitelist restricts recognized characters. Leave empty: letters that look
	// like digits must reach the matcher to be corrected.
	Whitelist string

	// PoolSize is the number of native clients kept ready. Each client holds a
	// fully loaded model, so this bounds both memory and OCR concurrency.
	PoolSize int
}

// DefaultOptions returns Korean plus English recognition with two clients.
func DefaultOptions() Options {
	return Options{
		Languages:   []string{"kor", "eng"},
		PageSegMode: DefaultPageSegMode,
		PoolSize:    2,
	}
}

func (o Options) validate() error {
	if len(o.Languages) == 0 {
		return fmt.Errorf("at least one OCR language is required")
	}
	for _, l := range o.Languages {
		if l == "" {
			return fmt.Errorf("empty OCR language code")
		}
	}
	if o.PageSegMode > 13 {
		return fmt.Errorf("invalid page segmentation mode %d (0-13)", o.PageSegMode)
	}
	if o.PoolSize < 1 {
		return fmt.Errorf("pool size must be at least 1, got %d", o.PoolSize)
	}
	return nil
}

// Info describes the OCR backend for health reporting.
type Info struct {
	Available      bool     `json:"available"`
	Version        string   `json:"version,omitempty"`
	Error          string   `json:"error,omitempty"`
	Backend        string   `json:"backend"`
	Languages      []string `json:"languages,omitempty"`
	TessdataPrefix string   `json:"tessdata_prefix,omitempty"`
	PoolSize       int      `json:"pool_size,omitempty"`
}
