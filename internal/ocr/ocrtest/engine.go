// Package ocrtest provides a scripted ocr.Engine for tests.
package ocrtest

import (
	"context"
	"image"
	"sync"
	"sync/atomic"

	"github.com/ironsheep/rrn-masker/internal/ocr"
)

// Engine returns fixed fragments instead of running OCR.
//
// When Func is set it takes precedence over Fragments and Err, which lets a
// test compute fragments from the image it receives.
type Engine struct {
	Fragments []ocr.Fragment
	Err       error
	Func      func(ctx context.Context, img image.Image) ([]ocr.Fragment, error)

	calls  atomic.Int32
	mu     sync.Mutex
	last   image.Image
	closed bool
}

// Recognize implements ocr.Engine.
func (e *Engine) Recognize(ctx context.Context, img image.Image) ([]ocr.Fragment, error) {
	e.calls.Add(1)
	e.mu.Lock()
	e.last = img
	e.mu.Unlock()

	if e.Func != nil {
		return e.Func(ctx, img)
	}
	if e.Err != nil {
		return nil, e.Err
	}
	out := make([]ocr.Fragment, len(e.Fragments))
	copy(out, e.Fragments)
	return out, nil
}

// Close implements ocr.Engine.
func (e *Engine) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.closed = true
	return nil
}

// Calls reports how many times Recognize ran.
func (e *Engine) Calls() int { return int(e.calls.Load()) }

// LastImage returns the image passed to the most recent Recognize call.
func (e *Engine) LastImage() image.Image {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.last
}

// Closed reports whether Close was called.
func (e *Engine) Closed() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.closed
}
