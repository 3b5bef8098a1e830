// Package pipeline wires preprocessing, OCR, ID matching and masking into a
// single entry point, Pipeline.Mask.
//
//	img -> imaging.Preprocess -> ocr.Extractor -> detection.Matcher
//	    -> mask.Regions (pad, clip) -> mask.Apply(original img) -> masked img
//
// OCR runs on the preprocessed image; masking always runs on the original.
// Match boxes are mapped back with the recorded scale factors, rounding
// outward.
package pipeline
