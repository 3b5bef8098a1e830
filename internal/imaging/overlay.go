package imaging

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"strconv"

	"github.com/lucasb-eyer/go-colorful"
)

// Outline draws a numbered rectangle outline around each region.
//
// This is a review aid: it lets an operator check which areas were masked
// without exposing anything the mask removed. The source image is copied, not
// modified. Labels use a 3x5 pixel digit font and are placed just inside the
// top-left corner of each region.
func Outline(img image.Image, regions []image.Rectangle, colorHex string, thickness int) (*image.NRGBA, error) {
	c, err := colorful.Hex(colorHex)
	if err != nil {
		return nil, fmt.Errorf("invalid outline color %q: %w", colorHex, err)
	}
	r, g, b := c.RGB255()
	fg := color.NRGBA{R: r, G: g, B: b, A: 255}

	if thickness < 1 {
		thickness = 1
	}

	bounds := img.Bounds()
	result := image.NewNRGBA(bounds)
	draw.Draw(result, bounds, img, bounds.Min, draw.Src)

	for i, rect := range regions {
		rect = rect.Intersect(bounds)
		if rect.Empty() {
			continue
		}
		for t := 0; t < thickness; t++ {
			// Horizontal edges
			for x := rect.Min.X; x < rect.Max.X; x++ {
				setIn(result, x, rect.Min.Y+t, fg)
				setIn(result, x, rect.Max.Y-1-t, fg)
			}
			// Vertical edges
			for y := rect.Min.Y; y < rect.Max.Y; y++ {
				setIn(result, rect.Min.X+t, y, fg)
				setIn(result, rect.Max.X-1-t, y, fg)
			}
		}
		drawLabel(result, rect.Min.X+thickness+1, rect.Min.Y+thickness+1, strconv.Itoa(i+1), color.NRGBA{R: 255, G: 255, B: 255, A: 255}, fg)
	}

	return result, nil
}

func setIn(img *image.NRGBA, x, y int, c color.NRGBA) {
	if (image.Point{X: x, Y: y}).In(img.Bounds()) {
		img.SetNRGBA(x, y, c)
	}
}

// drawLabel draws a region number with a filled background.
func drawLabel(img *image.NRGBA, x, y int, text string, fg, bg color.NRGBA) {
	glyphs := map[rune][]string{
		'0': {"111", "101", "101", "101", "111"},
		'1': {"010", "110", "010", "010", "111"},
		'2': {"111", "001", "111", "100", "111"},
		'3': {"111", "001", "111", "001", "111"},
		'4': {"101", "101", "111", "001", "001"},
		'5': {"111", "100", "111", "001", "111"},
		'6': {"111", "100", "111", "101", "111"},
		'7': {"111", "001", "001", "001", "001"},
		'8': {"111", "101", "111", "101", "111"},
		'9': {"111", "101", "111", "001", "111"},
	}

	charWidth := 4
	labelWidth := len(text) * charWidth
	labelHeight := 7

	for dy := -1; dy < labelHeight-1; dy++ {
		for dx := -1; dx < labelWidth; dx++ {
			setIn(img, x+dx, y+dy, bg)
		}
	}

	cx := x
	for _, ch := range text {
		glyph, ok := glyphs[ch]
		if !ok {
			cx += charWidth
			continue
		}
		for row, line := range glyph {
			for col, pixel := range line {
				if pixel == '1' {
					setIn(img, cx+col, y+row, fg)
				}
			}
		}
		cx += charWidth
	}
}
