//go:build !cgo

package tesseract

import (
	"context"
	"errors"
	"image"

	"github.com/ironsheep/rrn-masker/internal/ocr"
)

var errNoCgo = errors.New("tesseract support requires a cgo build with libtesseract")

// Engine is unavailable in builds without cgo.
type Engine struct {
	opts Options
}

var _ ocr.Engine = (*Engine)(nil)

// New always fails without cgo.
func New(opts Options) (*Engine, error) {
	if err := opts.validate(); err != nil {
		return nil, err
	}
	return nil, errNoCgo
}

// Recognize implements ocr.Engine.
func (e *Engine) Recognize(ctx context.Context, img image.Image) ([]ocr.Fragment, error) {
	return nil, errNoCgo
}

// Close implements ocr.Engine.
func (e *Engine) Close() error { return nil }

// Info reports the engine as unavailable.
func (e *Engine) Info() Info {
	info := Probe()
	info.Languages = e.opts.Languages
	info.PoolSize = e.opts.PoolSize
	return info
}

// Probe reports Tesseract as unavailable.
func Probe() Info {
	return Info{Available: false, Error: errNoCgo.Error(), Backend: "gosseract"}
}
