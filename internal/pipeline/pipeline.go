package pipeline

import (
	"context"
	"fmt"
	"image"
	"log/slog"
	"time"

	"github.com/ironsheep/rrn-masker/internal/detection"
	"github.com/ironsheep/rrn-masker/internal/imaging"
	"github.com/ironsheep/rrn-masker/internal/mask"
	"github.com/ironsheep/rrn-masker/internal/ocr"
)

// Config holds configuration for the masking pipeline and its components.
type Config struct {
	Preprocess    imaging.PreprocessOptions
	MinConfidence float64
	Matcher       detection.Options
	Mask          mask.Options

	// DebugPreprocessed, when set, receives every preprocessed image before
	// OCR runs. Used to inspect what the engine sees.
	DebugPreprocessed func(image.Image)
}

// DefaultConfig returns a default pipeline config with component defaults.
func DefaultConfig() Config {
	return Config{
		Preprocess:    imaging.DefaultPreprocessOptions(),
		MinConfidence: ocr.DefaultMinConfidence,
		Matcher:       detection.DefaultOptions(),
		Mask:          mask.DefaultOptions(),
	}
}

// Timings records how long each stage took.
type Timings struct {
	Preprocess time.Duration `json:"preprocess_ns"`
	OCR        time.Duration `json:"ocr_ns"`
	Match      time.Duration `json:"match_ns"`
	Mask       time.Duration `json:"mask_ns"`
	Total      time.Duration `json:"total_ns"`
}

// Result is the outcome of one Process call.
type Result struct {
	// Image is the masked copy of the input.
	Image *image.NRGBA

	// Matches are the IDs found, in reading order, with boxes in
	// original-image space.
	Matches []detection.Match

	// Regions are the padded, clipped areas that were masked, one per match.
	Regions []mask.Region

	// ScaleX and ScaleY are the preprocessing resize factors.
	ScaleX float64
	ScaleY float64

	Timings Timings
}

// Pipeline detects and masks resident-registration numbers.
//
// A Pipeline keeps no per-call state: concurrent calls are independent and
// only share the OCR engine, which must itself be safe for concurrent use.
type Pipeline struct {
	cfg       Config
	extractor *ocr.Extractor
	matcher   *detection.Matcher
	logger    *slog.Logger
}

// New creates a pipeline around engine. The engine is not closed by the
// pipeline.
func New(cfg Config, engine ocr.Engine) *Pipeline {
	return &Pipeline{
		cfg:       cfg,
		extractor: ocr.NewExtractor(engine, cfg.MinConfidence),
		matcher:   detection.NewMatcher(cfg.Matcher),
		logger:    slog.Default().With("component", "pipeline"),
	}
}

// Mask returns a copy of img with every detected ID obscured. An image
// without IDs comes back pixel-equal.
func (p *Pipeline) Mask(ctx context.Context, img image.Image) (image.Image, error) {
	res, err := p.Process(ctx, img)
	if err != nil {
		return nil, err
	}
	return res.Image, nil
}

// Process runs preprocess, OCR, matching and masking on img.
//
// The call is all-or-nothing: on any error no image is returned. Errors from
// the stages carry apperr codes; a done ctx is checked between stages and
// reported as its own error (context.Canceled or context.DeadlineExceeded).
func (p *Pipeline) Process(ctx context.Context, img image.Image) (*Result, error) {
	start := time.Now()
	var timings Timings

	if err := imaging.Validate(img); err != nil {
		return nil, err
	}

	t := time.Now()
	pre, err := imaging.Preprocess(img, p.cfg.Preprocess)
	if err != nil {
		return nil, fmt.Errorf("failed to preprocess image: %w", err)
	}
	timings.Preprocess = time.Since(t)

	if p.cfg.DebugPreprocessed != nil {
		p.cfg.DebugPreprocessed(pre.Image)
	}
	if err := stageCheck(ctx, "text extraction"); err != nil {
		return nil, err
	}

	t = time.Now()
	fragments, err := p.extractor.Extract(ctx, pre.Image)
	if err != nil {
		return nil, err
	}
	timings.OCR = time.Since(t)

	if err := stageCheck(ctx, "pattern matching"); err != nil {
		return nil, err
	}

	t = time.Now()
	matches := p.matcher.FindMatches(fragments, pre)
	timings.Match = time.Since(t)

	for i, m := range matches {
		p.logger.Debug("resident number detected", "index", i, "match", m)
	}

	if err := stageCheck(ctx, "masking"); err != nil {
		return nil, err
	}

	t = time.Now()
	rects := make([]image.Rectangle, len(matches))
	for i, m := range matches {
		rects[i] = m.Bounds
	}
	regions, err := mask.Regions(rects, img.Bounds(), p.cfg.Mask.Padding)
	if err != nil {
		return nil, err
	}
	out, err := mask.Apply(img, regions, p.cfg.Mask)
	if err != nil {
		return nil, err
	}
	timings.Mask = time.Since(t)
	timings.Total = time.Since(start)

	p.logger.Info("image processed",
		"width", img.Bounds().Dx(),
		"height", img.Bounds().Dy(),
		"fragments", len(fragments),
		"matches", len(matches),
		"scale", pre.ScaleX,
		"duration_ms", timings.Total.Milliseconds())

	return &Result{
		Image:   out,
		Matches: matches,
		Regions: regions,
		ScaleX:  pre.ScaleX,
		ScaleY:  pre.ScaleY,
		Timings: timings,
	}, nil
}

func stageCheck(ctx context.Context, next string) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("masking aborted before %s: %w", next, err)
	}
	return nil
}
