package mask

import (
	"fmt"
	"image"
	"image/color"

	"github.com/disintegration/imaging"
	"github.com/lucasb-eyer/go-colorful"

	rrnimaging "github.com/ironsheep/rrn-masker/internal/imaging"
)

// Mask styles.
const (
	StyleMosaic = "mosaic"
	StyleFill   = "fill"
)

// minCellSize keeps mosaic cells large enough to destroy glyph shapes.
const minCellSize = 4

// Options selects how regions are obscured.
type Options struct {
	// Style is StyleMosaic (default) or StyleFill.
	Style string

	// CellSize is the mosaic cell edge in pixels. 0 uses each region's full
	// height (at least 4), so a cell spans one to two glyphs of a padded text
	// line. Smaller cells keep more of each glyph's ink density, which a
	// known-font brute force can match digit by digit; use StyleFill when the
	// output must carry no trace of the text.
	CellSize int

	// FillColor is a hex colour for StyleFill. Empty fills with the region's
	// mean colour.
	FillColor string

	// Padding is added around each match box before masking.
	Padding int
}

// DefaultOptions returns the mosaic style with 6 pixels of padding.
func DefaultOptions() Options {
	return Options{Style: StyleMosaic, Padding: 6}
}

// Validate checks the style and fill colour.
func (o Options) Validate() error {
	switch o.Style {
	case StyleMosaic, StyleFill, "":
	default:
		return fmt.Errorf("unknown mask style %q (want %s or %s)", o.Style, StyleMosaic, StyleFill)
	}
	if o.CellSize < 0 {
		return fmt.Errorf("cell size must not be negative, got %d", o.CellSize)
	}
	if o.Padding < 0 {
		return fmt.Errorf("padding must not be negative, got %d", o.Padding)
	}
	if o.FillColor != "" {
		if _, err := colorful.Hex(o.FillColor); err != nil {
			return fmt.Errorf("invalid fill color %q: %w", o.FillColor, err)
		}
	}
	return nil
}

// Apply returns a copy of img with every region obscured.
//
// img is never modified. With no regions the copy is pixel-equal to img.
// Regions are clipped to the image (see Region.Clip) and overlapping regions
// are merged, so every pixel is filtered at most once and pixels outside all
// regions are untouched. Both styles replace each cell with a single colour
// derived from it, so applying the same regions again changes nothing.
func Apply(img image.Image, regions []Region, opts Options) (*image.NRGBA, error) {
	if err := rrnimaging.Validate(img); err != nil {
		return nil, err
	}
	if err := opts.Validate(); err != nil {
		return nil, err
	}

	bounds := img.Bounds()
	clipped := make([]Region, 0, len(regions))
	for _, r := range regions {
		c, err := r.Clip(bounds)
		if err != nil {
			return nil, err
		}
		clipped = append(clipped, c)
	}

	out := imaging.Clone(img)
	// Clone rebases to (0,0); keep the source origin so regions line up.
	out.Rect = bounds

	var fill *color.NRGBA
	if opts.Style == StyleFill && opts.FillColor != "" {
		c, _ := colorful.Hex(opts.FillColor)
		r, g, b := c.RGB255()
		fill = &color.NRGBA{R: r, G: g, B: b, A: 255}
	}

	for _, r := range Merge(clipped) {
		switch opts.Style {
		case StyleFill:
			if fill != nil {
				paint(out, r.Rectangle, *fill)
			} else {
				paint(out, r.Rectangle, mean(out, r.Rectangle))
			}
		default:
			pixelate(out, r.Rectangle, cellSize(r.Rectangle, opts.CellSize))
		}
	}

	return out, nil
}

func cellSize(r image.Rectangle, configured int) int {
	size := configured
	if size <= 0 {
		size = r.Dy()
	}
	if size < minCellSize {
		size = minCellSize
	}
	return size
}

// pixelate replaces each cell of a grid anchored at r.Min with its mean.
func pixelate(img *image.NRGBA, r image.Rectangle, size int) {
	for y := r.Min.Y; y < r.Max.Y; y += size {
		for x := r.Min.X; x < r.Max.X; x += size {
			cell := image.Rect(x, y, x+size, y+size).Intersect(r)
			paint(img, cell, mean(img, cell))
		}
	}
}

// mean averages the non-premultiplied channels of r, rounding to nearest.
func mean(img *image.NRGBA, r image.Rectangle) color.NRGBA {
	var sr, sg, sb, sa, n int
	for y := r.Min.Y; y < r.Max.Y; y++ {
		i := img.PixOffset(r.Min.X, y)
		for x := r.Min.X; x < r.Max.X; x++ {
			sr += int(img.Pix[i])
			sg += int(img.Pix[i+1])
			sb += int(img.Pix[i+2])
			sa += int(img.Pix[i+3])
			i += 4
			n++
		}
	}
	if n == 0 {
		return color.NRGBA{}
	}
	return color.NRGBA{
		R: uint8((sr + n/2) / n),
		G: uint8((sg + n/2) / n),
		B: uint8((sb + n/2) / n),
		A: uint8((sa + n/2) / n),
	}
}

func paint(img *image.NRGBA, r image.Rectangle, c color.NRGBA) {
	for y := r.Min.Y; y < r.Max.Y; y++ {
		i := img.PixOffset(r.Min.X, y)
		for x := r.Min.X; x < r.Max.X; x++ {
			img.Pix[i] = c.R
			img.Pix[i+1] = c.G
			img.Pix[i+2] = c.B
			img.Pix[i+3] = c.A
			i += 4
		}
	}
}
