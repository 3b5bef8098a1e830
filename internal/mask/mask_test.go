package mask

import (
	"image"
	"image/color"
	"testing"

	"github.com/ironsheep/rrn-masker/internal/apperr"
)

// createStripedImage creates an opaque image with a per-pixel pattern so that
// any averaging is visible.
func createStripedImage(width, height int) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			v := uint8(0)
			if (x/2+y)%2 == 0 {
				v = 255
			}
			img.SetNRGBA(x, y, color.NRGBA{v, uint8(x * 3), uint8(y * 5), 255})
		}
	}
	return img
}

func pixelsEqual(t *testing.T, a, b image.Image) bool {
	t.Helper()
	if a.Bounds() != b.Bounds() {
		t.Errorf("bounds differ: %v vs %v", a.Bounds(), b.Bounds())
		return false
	}
	r := a.Bounds()
	for y := r.Min.Y; y < r.Max.Y; y++ {
		for x := r.Min.X; x < r.Max.X; x++ {
			if color.NRGBAModel.Convert(a.At(x, y)) != color.NRGBAModel.Convert(b.At(x, y)) {
				return false
			}
		}
	}
	return true
}

func TestApply_NoRegions(t *testing.T) {
	src := createStripedImage(60, 40)

	out, err := Apply(src, nil, DefaultOptions())
	if err != nil {
		t.Fatalf("Apply failed: %v", err)
	}
	if !pixelsEqual(t, src, out) {
		t.Error("output should be pixel-equal to input without regions")
	}
	if &out.Pix[0] == &src.Pix[0] {
		t.Error("output must be a copy")
	}
}

func TestApply_ChangesOnlyRegion(t *testing.T) {
	for _, style := range []string{StyleMosaic, StyleFill} {
		t.Run(style, func(t *testing.T) {
			src := createStripedImage(100, 60)
			before := append([]uint8(nil), src.Pix...)
			region, _ := NewRegion(20, 10, 40, 20)

			out, err := Apply(src, []Region{region}, Options{Style: style})
			if err != nil {
				t.Fatalf("Apply failed: %v", err)
			}

			changed := 0
			for y := 0; y < 60; y++ {
				for x := 0; x < 100; x++ {
					same := out.NRGBAAt(x, y) == src.NRGBAAt(x, y)
					inside := image.Pt(x, y).In(region.Rectangle)
					if !inside && !same {
						t.Fatalf("pixel (%d,%d) outside region was modified", x, y)
					}
					if inside && !same {
						changed++
					}
				}
			}
			if changed == 0 {
				t.Error("no pixel inside the region was modified")
			}
			for i := range before {
				if src.Pix[i] != before[i] {
					t.Fatal("source image was modified")
				}
			}
		})
	}
}

func TestApply_Idempotent(t *testing.T) {
	tests := []struct {
		name string
		opts Options
	}{
		{"mosaic auto cell", Options{Style: StyleMosaic}},
		{"mosaic fixed cell", Options{Style: StyleMosaic, CellSize: 7}},
		{"fill mean", Options{Style: StyleFill}},
		{"fill color", Options{Style: StyleFill, FillColor: "#202020"}},
	}

	src := createStripedImage(120, 80)
	a, _ := NewRegion(10, 10, 50, 23)
	b, _ := NewRegion(40, 20, 30, 30) // overlaps a
	c, _ := NewRegion(90, 60, 50, 50) // partly outside
	regions := []Region{a, b, c}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			once, err := Apply(src, regions, tt.opts)
			if err != nil {
				t.Fatalf("Apply failed: %v", err)
			}
			twice, err := Apply(once, regions, tt.opts)
			if err != nil {
				t.Fatalf("second Apply failed: %v", err)
			}
			if !pixelsEqual(t, once, twice) {
				t.Error("masking twice should equal masking once")
			}
		})
	}
}

func TestApply_FillColor(t *testing.T) {
	src := createStripedImage(50, 50)
	region, _ := NewRegion(5, 5, 10, 10)

	out, err := Apply(src, []Region{region}, Options{Style: StyleFill, FillColor: "#000000"})
	if err != nil {
		t.Fatalf("Apply failed: %v", err)
	}
	for y := 5; y < 15; y++ {
		for x := 5; x < 15; x++ {
			if got := out.NRGBAAt(x, y); got != (color.NRGBA{0, 0, 0, 255}) {
				t.Fatalf("pixel (%d,%d): got %v, want black", x, y, got)
			}
		}
	}
}

func TestApply_MosaicCells(t *testing.T) {
	src := createStripedImage(40, 40)
	region, _ := NewRegion(0, 0, 8, 8)

	out, err := Apply(src, []Region{region}, Options{Style: StyleMosaic, CellSize: 4})
	if err != nil {
		t.Fatalf("Apply failed: %v", err)
	}

	// Every 4x4 cell is uniform
	for cy := 0; cy < 8; cy += 4 {
		for cx := 0; cx < 8; cx += 4 {
			want := out.NRGBAAt(cx, cy)
			for y := cy; y < cy+4; y++ {
				for x := cx; x < cx+4; x++ {
					if got := out.NRGBAAt(x, y); got != want {
						t.Fatalf("cell (%d,%d) not uniform at (%d,%d): %v vs %v", cx, cy, x, y, got, want)
					}
				}
			}
		}
	}
}

func TestApply_OffsetOrigin(t *testing.T) {
	full := createStripedImage(60, 60)
	sub := full.SubImage(image.Rect(20, 20, 60, 60))
	region, _ := NewRegion(30, 30, 10, 10)

	out, err := Apply(sub, []Region{region}, Options{Style: StyleFill, FillColor: "#ff0000"})
	if err != nil {
		t.Fatalf("Apply failed: %v", err)
	}
	if out.Bounds() != sub.Bounds() {
		t.Errorf("bounds: got %v, want %v", out.Bounds(), sub.Bounds())
	}
	if got := out.NRGBAAt(35, 35); got != (color.NRGBA{255, 0, 0, 255}) {
		t.Errorf("pixel inside region: got %v, want red", got)
	}
	if got, want := out.NRGBAAt(25, 25), full.NRGBAAt(25, 25); got != want {
		t.Errorf("pixel outside region: got %v, want %v", got, want)
	}
}

func TestApply_InvalidRegion(t *testing.T) {
	src := createStripedImage(50, 50)

	tests := []struct {
		name   string
		region Region
	}{
		{"entirely outside", FromBounds(image.Rect(60, 60, 80, 80))},
		{"negative origin outside", FromBounds(image.Rect(-30, -30, -10, -10))},
		{"negative size", Region{image.Rectangle{Min: image.Pt(20, 20), Max: image.Pt(10, 30)}}},
		{"zero height", FromBounds(image.Rect(10, 10, 20, 10))},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Apply(src, []Region{tt.region}, DefaultOptions())
			if err == nil {
				t.Fatal("Apply should fail")
			}
			if code, _ := apperr.CodeOf(err); code != apperr.CodeInvalidRegion {
				t.Errorf("code: got %q, want %q", code, apperr.CodeInvalidRegion)
			}
		})
	}
}

func TestApply_InvalidOptions(t *testing.T) {
	src := createStripedImage(10, 10)

	for _, opts := range []Options{
		{Style: "blur"},
		{Style: StyleFill, FillColor: "black"},
		{CellSize: -1},
		{Padding: -2},
	} {
		if _, err := Apply(src, nil, opts); err == nil {
			t.Errorf("Apply should fail for %+v", opts)
		}
	}

	if _, err := Apply(nil, nil, DefaultOptions()); err == nil {
		t.Error("Apply should fail for nil image")
	}
}

func TestCellSize(t *testing.T) {
	tests := []struct {
		name       string
		region     image.Rectangle
		configured int
		want       int
	}{
		{"full region height by default", image.Rect(0, 0, 200, 30), 0, 30},
		{"configured wins", image.Rect(0, 0, 200, 30), 7, 7},
		{"minimum", image.Rect(0, 0, 200, 2), 0, minCellSize},
		{"configured below minimum", image.Rect(0, 0, 200, 30), 1, minCellSize},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := cellSize(tt.region, tt.configured); got != tt.want {
				t.Errorf("cellSize: got %d, want %d", got, tt.want)
			}
		})
	}
}

func TestApply_MosaicDefaultCellSpansLine(t *testing.T) {
	src := createStripedImage(60, 20)
	region, _ := NewRegion(0, 0, 48, 12)

	out, err := Apply(src, []Region{region}, Options{Style: StyleMosaic})
	if err != nil {
		t.Fatalf("Apply failed: %v", err)
	}

	// One row of 12x12 cells: every column is uniform over the region height.
	for x := 0; x < 48; x++ {
		top := out.NRGBAAt(x, 0)
		for y := 1; y < 12; y++ {
			if got := out.NRGBAAt(x, y); got != top {
				t.Fatalf("column %d not uniform at y=%d: %v vs %v", x, y, got, top)
			}
		}
		if cellStart := x - x%12; out.NRGBAAt(cellStart, 0) != top {
			t.Fatalf("pixel (%d,0) differs from its cell origin (%d,0)", x, cellStart)
		}
	}
}
