// Package imaging loads images and prepares them for OCR.
//
// It wraps disintegration/imaging and bild for the pixel work the masking
// pipeline needs: decoding uploads and files, grayscale conversion, resizing,
// denoising and Otsu binarization, and mapping OCR coordinates back onto the
// original image.
//
// # Coordinate System
//
// All pixel coordinates are 0-based with the origin at the top-left corner.
// Rectangles follow image.Rectangle semantics: Min is inclusive, Max is
// exclusive.
//
// A Preprocessed image always starts at (0,0) and may be resized. Use
// Preprocessed.ToOriginal to map a rectangle found on it back to the source
// image; the mapping rounds outward so a mapped box never covers less than
// the glyphs it was computed from.
//
// # Thread Safety
//
// Every function is stateless and returns new images. Inputs are never
// modified, so the same source image may be shared by concurrent calls.
//
// # Error Handling
//
// Decode, Load, Validate and Preprocess report unusable input as
// apperr.CodeInvalidImage errors. Encoding and saving failures are plain
// wrapped errors.
package imaging
