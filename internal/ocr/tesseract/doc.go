// Package tesseract is the Tesseract OCR engine, built on gosseract/v2.
//
// # Prerequisites
//
// Tesseract and its language data must be installed on the system:
//   - Ubuntu/Debian: apt-get install tesseract-ocr tesseract-ocr-kor
//   - macOS: brew install tesseract tesseract-lang
//
// The default languages are Korean and English ("kor", "eng"). Set
// Options.TessdataPrefix when the traineddata files live outside the
// library's default path.
//
// # Client Pool
//
// An Engine owns Options.PoolSize gosseract clients. Recognize borrows one,
// runs word-level recognition (RIL_WORD) and returns it. When every client is
// busy, Recognize waits until one is free or ctx is done. Close waits for
// in-flight calls and frees all clients; it must be called once the engine is
// no longer needed.
//
// # Builds Without cgo
//
// gosseract needs cgo. Without it, New returns an error and Probe reports the
// engine as unavailable, while the rest of the program still builds.
package tesseract
