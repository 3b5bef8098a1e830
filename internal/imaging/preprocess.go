package imaging

import (
	"fmt"
	"image"
	"math"

	"github.com/anthonynsimon/bild/effect"
	"github.com/anthonynsimon/bild/histogram"
	"github.com/anthonynsimon/bild/segment"
	"github.com/disintegration/imaging"
)

// Denoise filters applied before binarization.
const (
	DenoiseNone     = "none"
	DenoiseGaussian = "gaussian"
	DenoiseMedian   = "median"
)

// PreprocessOptions controls how an image is prepared for OCR.
type PreprocessOptions struct {
	// MinLongSide upscales images whose longer side is shorter than this many
	// pixels. Small scans of ID cards recognize poorly at native size. 0 disables.
	MinLongSide int

	// MaxLongSide downscales images whose longer side exceeds this many pixels.
	// 0 disables.
	MaxLongSide int

	// MaxScale caps the upscale factor.
	MaxScale float64

	// Contrast is passed to imaging.AdjustContrast (-100..100). 0 skips the step.
	Contrast float64

	// Denoise selects DenoiseGaussian (scans), DenoiseMedian (photographs) or DenoiseNone.
	Denoise string

	// BlurSigma is the Gaussian sigma for DenoiseGaussian.
	BlurSigma float64

	// MedianRadius is the window radius for DenoiseMedian.
	MedianRadius float64

	// Binarize applies an Otsu threshold as the last step.
	Binarize bool
}

// DefaultPreprocessOptions mirrors the classic grayscale, 5x5 Gaussian, Otsu chain.
func DefaultPreprocessOptions() PreprocessOptions {
	return PreprocessOptions{
		MinLongSide:  1000,
		MaxLongSide:  4000,
		MaxScale:     3.0,
		Contrast:     0,
		Denoise:      DenoiseGaussian,
		BlurSigma:    1.0,
		MedianRadius: 1.5,
		Binarize:     true,
	}
}

// Preprocessed is an OCR-ready image plus what is needed to map coordinates
// back onto the image it was derived from.
type Preprocessed struct {
	// Image is the grayscale (or binary) image handed to the OCR engine.
	// Its bounds always start at (0,0).
	Image image.Image

	// ScaleX and ScaleY are the effective resize factors
	// (preprocessed size = source size * scale). Both are 1 when no resize happened.
	ScaleX float64
	ScaleY float64

	// Source is the bounds of the original image.
	Source image.Rectangle

	// Threshold is the Otsu level used for binarization (0 when disabled).
	Threshold uint8
}

// Preprocess converts img into an image optimized for OCR.
//
// The steps are:
//  1. Grayscale conversion
//  2. Resize towards [MinLongSide, MaxLongSide] (Lanczos), recording the factor
//  3. Optional contrast adjustment
//  4. Denoising (Gaussian or median)
//  5. Otsu binarization
//
// The source image is never modified.
func Preprocess(img image.Image, opts PreprocessOptions) (*Preprocessed, error) {
	if err := Validate(img); err != nil {
		return nil, err
	}

	src := img.Bounds()
	var out image.Image = imaging.Grayscale(img)

	scale := resizeFactor(src.Dx(), src.Dy(), opts)
	if scale != 1.0 {
		w := int(math.Max(1, math.Round(float64(src.Dx())*scale)))
		h := int(math.Max(1, math.Round(float64(src.Dy())*scale)))
		out = imaging.Resize(out, w, h, imaging.Lanczos)
	}

	if opts.Contrast != 0 {
		out = imaging.AdjustContrast(out, opts.Contrast)
	}

	switch opts.Denoise {
	case DenoiseGaussian:
		if opts.BlurSigma > 0 {
			out = imaging.Blur(out, opts.BlurSigma)
		}
	case DenoiseMedian:
		if opts.MedianRadius > 0 {
			out = effect.Median(out, opts.MedianRadius)
		}
	case DenoiseNone, "":
	default:
		return nil, fmt.Errorf("unknown denoise mode %q", opts.Denoise)
	}

	var level uint8
	if opts.Binarize {
		level = OtsuLevel(out)
		out = segment.Threshold(out, level)
	}

	ob := out.Bounds()
	return &Preprocessed{
		Image:     out,
		ScaleX:    float64(ob.Dx()) / float64(src.Dx()),
		ScaleY:    float64(ob.Dy()) / float64(src.Dy()),
		Source:    src,
		Threshold: level,
	}, nil
}

// resizeFactor picks the scale that brings the long side into range.
func resizeFactor(w, h int, opts PreprocessOptions) float64 {
	long := float64(w)
	if h > w {
		long = float64(h)
	}

	if opts.MinLongSide > 0 && long < float64(opts.MinLongSide) {
		s := float64(opts.MinLongSide) / long
		if opts.MaxScale > 0 && s > opts.MaxScale {
			s = opts.MaxScale
		}
		return s
	}
	if opts.MaxLongSide > 0 && long > float64(opts.MaxLongSide) {
		return float64(opts.MaxLongSide) / long
	}
	return 1.0
}

// ToOriginal maps a rectangle in preprocessed-image coordinates to the source
// image. The min corner is floored and the max corner ceiled so the result
// always encloses the full source-space glyph area; it is clipped to Source.
func (p *Preprocessed) ToOriginal(r image.Rectangle) image.Rectangle {
	sx, sy := p.ScaleX, p.ScaleY
	if sx <= 0 {
		sx = 1
	}
	if sy <= 0 {
		sy = 1
	}

	out := image.Rect(
		int(math.Floor(float64(r.Min.X)/sx)),
		int(math.Floor(float64(r.Min.Y)/sy)),
		int(math.Ceil(float64(r.Max.X)/sx)),
		int(math.Ceil(float64(r.Max.Y)/sy)),
	).Add(p.Source.Min)

	return out.Intersect(p.Source)
}

// OtsuLevel computes the Otsu threshold of a grayscale image's luminance
// histogram. For color input the red channel is used, so callers should pass
// a grayscale image.
func OtsuLevel(img image.Image) uint8 {
	hist := histogram.NewRGBAHistogram(img)
	return otsu(hist.R.Bins)
}

// otsu maximizes the between-class variance over a 256-bin histogram.
func otsu(bins []int) uint8 {
	var total, sum float64
	for i, c := range bins {
		total += float64(c)
		sum += float64(i) * float64(c)
	}
	if total == 0 {
		return 128
	}

	var (
		sumB, wB float64
		best     float64
		level    int
	)
	for t, c := range bins {
		wB += float64(c)
		if wB == 0 {
			continue
		}
		wF := total - wB
		if wF == 0 {
			break
		}
		sumB += float64(t) * float64(c)
		mB := sumB / wB
		mF := (sum - sumB) / wF
		between := wB * wF * (mB - mF) * (mB - mF)
		if between > best {
			best = between
			level = t
		}
	}

	// segment.Threshold keeps pixels >= level as white; Otsu's t is the last
	// background level, so the split starts one above it.
	if level < 255 {
		level++
	}
	return uint8(level)
}
