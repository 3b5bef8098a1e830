package ocr

import (
	"context"
	"image"
	"log/slog"
	"strings"

	"github.com/ironsheep/rrn-masker/internal/apperr"
)

// DefaultMinConfidence is the confidence below which fragments are dropped.
const DefaultMinConfidence = 0.3

// Fragment is a word recognized by an engine together with its location.
type Fragment struct {
	// Text is the recognized text content.
	Text string `json:"text"`

	// Bounds is the box around the word, in the coordinates of the image the
	// engine was given.
	Bounds image.Rectangle `json:"bounds"`

	// Confidence is the engine's confidence score (0.0 to 1.0).
	Confidence float64 `json:"confidence"`
}

// Engine recognizes words in an image.
//
// Implementations must return fragments in reading order and must be safe for
// concurrent use.
type Engine interface {
	Recognize(ctx context.Context, img image.Image) ([]Fragment, error)
	Close() error
}

// Extractor runs an Engine and cleans up what it returns.
type Extractor struct {
	engine        Engine
	minConfidence float64
	logger        *slog.Logger
}

// NewExtractor wraps engine. A negative minConfidence selects DefaultMinConfidence.
func NewExtractor(engine Engine, minConfidence float64) *Extractor {
	if minConfidence < 0 {
		minConfidence = DefaultMinConfidence
	}
	return &Extractor{
		engine:        engine,
		minConfidence: minConfidence,
		logger:        slog.Default().With("component", "ocr"),
	}
}

// Extract recognizes text in img and returns the usable fragments.
//
// Whitespace is trimmed from every word; empty words, empty boxes and words
// below the minimum confidence are dropped. The engine's order is preserved.
//
// Any engine failure, including a context deadline reached while the engine
// ran, is returned as an apperr.CodeOCREngine error. The original cause stays
// reachable through errors.Is.
func (e *Extractor) Extract(ctx context.Context, img image.Image) ([]Fragment, error) {
	if e.engine == nil {
		return nil, apperr.OCREngine("no OCR engine configured", nil)
	}
	if err := ctx.Err(); err != nil {
		return nil, apperr.OCREngine("text extraction not started", err)
	}

	raw, err := e.engine.Recognize(ctx, img)
	if err != nil {
		return nil, apperr.OCREngine("text recognition failed", err)
	}

	fragments := make([]Fragment, 0, len(raw))
	dropped := 0
	for _, f := range raw {
		text := strings.TrimSpace(f.Text)
		if text == "" || f.Bounds.Empty() || f.Confidence < e.minConfidence {
			dropped++
			continue
		}
		f.Text = text
		fragments = append(fragments, f)
	}

	e.logger.Debug("text extracted",
		"fragments", len(fragments),
		"dropped", dropped,
		"min_confidence", e.minConfidence)

	return fragments, nil
}

// MinConfidence reports the threshold in use.
func (e *Extractor) MinConfidence() float64 {
	return e.minConfidence
}
