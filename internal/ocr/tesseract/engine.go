//go:build cgo

package tesseract

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"log/slog"
	"slices"
	"sync"

	"github.com/otiai10/gosseract/v2"

	"github.com/ironsheep/rrn-masker/internal/imaging"
	"github.com/ironsheep/rrn-masker/internal/ocr"
)

// Engine implements ocr.Engine with a fixed pool of gosseract clients.
//
// A client is initialized lazily by Tesseract on its first use and then
// reused, so the model load cost is paid once per client rather than once per
// image. Callers block while all clients are busy; the wait honours ctx.
type Engine struct {
	opts    Options
	clients chan *gosseract.Client
	done    chan struct{}
	once    sync.Once
	logger  *slog.Logger
}

var _ ocr.Engine = (*Engine)(nil)

// New creates an engine and its client pool.
//
// When Tesseract can list its installed languages, every requested language
// must be among them; otherwise the first recognition reports the problem.
func New(opts Options) (*Engine, error) {
	if err := opts.validate(); err != nil {
		return nil, err
	}
	if err := checkLanguages(opts); err != nil {
		return nil, err
	}

	e := &Engine{
		opts:    opts,
		clients: make(chan *gosseract.Client, opts.PoolSize),
		done:    make(chan struct{}),
		logger:  slog.Default().With("component", "tesseract"),
	}

	for i := 0; i < opts.PoolSize; i++ {
		c, err := newClient(opts)
		if err != nil {
			close(e.done)
			e.drain(i)
			return nil, err
		}
		e.clients <- c
	}

	e.logger.Debug("tesseract engine ready",
		"languages", opts.Languages,
		"pool_size", opts.PoolSize,
		"psm", opts.PageSegMode)

	return e, nil
}

func newClient(opts Options) (*gosseract.Client, error) {
	c := gosseract.NewClient()

	if err := c.SetLanguage(opts.Languages...); err != nil {
		c.Close()
		return nil, fmt.Errorf("failed to set language: %w", err)
	}
	if opts.TessdataPrefix != "" {
		if err := c.SetTessdataPrefix(opts.TessdataPrefix); err != nil {
			c.Close()
			return nil, fmt.Errorf("failed to set tessdata path: %w", err)
		}
	}
	if opts.PageSegMode > 0 {
		if err := c.SetPageSegMode(gosseract.PageSegMode(opts.PageSegMode)); err != nil {
			c.Close()
			return nil, fmt.Errorf("failed to set page segmentation mode: %w", err)
		}
	}
	if opts.Whitelist != "" {
		if err := c.SetWhitelist(opts.Whitelist); err != nil {
			c.Close()
			return nil, fmt.Errorf("failed to set whitelist: %w", err)
		}
	}
	return c, nil
}

func checkLanguages(opts Options) error {
	if opts.TessdataPrefix != "" {
		// GetAvailableLanguages only looks at the default data path.
		return nil
	}
	available, err := gosseract.GetAvailableLanguages()
	if err != nil || len(available) == 0 {
		return nil
	}
	for _, l := range opts.Languages {
		if !slices.Contains(available, l) {
			return fmt.Errorf("tesseract language %q not installed (available: %v)", l, available)
		}
	}
	return nil
}

// Recognize runs word-level OCR on img.
//
// Boxes are in img's coordinate space; confidences are scaled from
// Tesseract's 0-100 to 0-1. Words come back in Tesseract's iteration order,
// which is reading order.
func (e *Engine) Recognize(ctx context.Context, img image.Image) ([]ocr.Fragment, error) {
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, "png"); err != nil {
		return nil, fmt.Errorf("failed to encode image for OCR: %w", err)
	}

	c, err := e.acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer e.release(c)

	if err := c.SetImageFromBytes(buf.Bytes()); err != nil {
		return nil, fmt.Errorf("failed to set image: %w", err)
	}

	boxes, err := c.GetBoundingBoxes(gosseract.RIL_WORD)
	if err != nil {
		return nil, fmt.Errorf("failed to get bounding boxes: %w", err)
	}

	// The native call cannot be interrupted; report an expired deadline
	// rather than a late result.
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	origin := img.Bounds().Min
	fragments := make([]ocr.Fragment, 0, len(boxes))
	for _, box := range boxes {
		if box.Word == "" {
			continue
		}
		fragments = append(fragments, ocr.Fragment{
			Text:       box.Word,
			Bounds:     box.Box.Add(origin),
			Confidence: box.Confidence / 100.0,
		})
	}

	return fragments, nil
}

func (e *Engine) acquire(ctx context.Context) (*gosseract.Client, error) {
	select {
	case <-e.done:
		return nil, ErrClosed
	default:
	}

	select {
	case c := <-e.clients:
		return c, nil
	case <-e.done:
		return nil, ErrClosed
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (e *Engine) release(c *gosseract.Client) {
	e.clients <- c
}

// Close waits for in-flight recognitions and frees every client.
func (e *Engine) Close() error {
	e.once.Do(func() {
		close(e.done)
		e.drain(e.opts.PoolSize)
	})
	return nil
}

func (e *Engine) drain(n int) {
	for i := 0; i < n; i++ {
		c := <-e.clients
		c.Close()
	}
}

// Info reports whether Tesseract is usable and how the engine is configured.
func (e *Engine) Info() Info {
	info := Probe()
	info.Languages = e.opts.Languages
	info.TessdataPrefix = e.opts.TessdataPrefix
	info.PoolSize = e.opts.PoolSize
	return info
}

// Probe reports Tesseract availability without creating an engine.
func Probe() Info {
	version := gosseract.Version()
	if version == "" {
		return Info{
			Available: false,
			Error:     "tesseract returned no version",
			Backend:   "gosseract",
		}
	}
	return Info{
		Available: true,
		Version:   version,
		Backend:   "gosseract",
	}
}
