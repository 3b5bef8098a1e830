// Package ocr turns images into positioned text fragments.
//
// The package defines the Engine contract and the Extractor that sits between
// an engine and the ID matcher. Engines live in subpackages; the Tesseract
// engine is in ocr/tesseract so that everything else can be built and tested
// without the native library.
//
// # Fragments
//
// A Fragment is one recognized word: its text, its bounding box in the
// coordinates of the image handed to the engine, and a confidence in [0,1].
// Mapping boxes back to the original image is the caller's job (see
// imaging.Preprocessed.ToOriginal).
//
// # Filtering
//
// Extractor trims whitespace and drops:
//   - empty words
//   - empty boxes
//   - words below the minimum confidence (DefaultMinConfidence unless configured)
//
// # Error Handling
//
// Engine failures are reported once, as apperr.CodeOCREngine errors, and are
// never retried. A cancelled or expired context remains detectable with
// errors.Is(err, context.DeadlineExceeded).
package ocr
