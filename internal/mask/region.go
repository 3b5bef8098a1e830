package mask

import (
	"fmt"
	"image"
	"sort"

	"github.com/ironsheep/rrn-masker/internal/apperr"
)

// Region is an area of the original image to obscure.
type Region struct {
	image.Rectangle
}

// NewRegion builds a region from a top-left corner and a size.
// A non-positive width or height is an apperr.CodeInvalidRegion error.
func NewRegion(x, y, w, h int) (Region, error) {
	if w <= 0 || h <= 0 {
		return Region{}, apperr.InvalidRegion(fmt.Sprintf("region size %dx%d is not positive", w, h))
	}
	return Region{image.Rect(x, y, x+w, y+h)}, nil
}

// FromBounds wraps a rectangle without validating it; Clip does that.
func FromBounds(r image.Rectangle) Region {
	return Region{r}
}

// Pad grows the region by n pixels on every side. Negative n is treated as 0.
func (r Region) Pad(n int) Region {
	if n <= 0 {
		return r
	}
	return Region{image.Rectangle{
		Min: image.Pt(r.Min.X-n, r.Min.Y-n),
		Max: image.Pt(r.Max.X+n, r.Max.Y+n),
	}}
}

// Clip restricts the region to bounds.
//
// A region with non-positive width or height, or one lying entirely outside
// bounds, is malformed and yields an apperr.CodeInvalidRegion error rather
// than an empty region. A region partially outside is clipped.
func (r Region) Clip(bounds image.Rectangle) (Region, error) {
	if r.Dx() <= 0 || r.Dy() <= 0 {
		return Region{}, apperr.InvalidRegion(fmt.Sprintf("region %v has non-positive size", r.Rectangle))
	}
	clipped := r.Intersect(bounds)
	if clipped.Empty() {
		return Region{}, apperr.InvalidRegion(fmt.Sprintf("region %v lies outside image bounds %v", r.Rectangle, bounds))
	}
	return Region{clipped}, nil
}

// Regions pads every rectangle by padding and clips it to bounds.
func Regions(rects []image.Rectangle, bounds image.Rectangle, padding int) ([]Region, error) {
	out := make([]Region, 0, len(rects))
	for _, rect := range rects {
		r, err := FromBounds(rect).Pad(padding).Clip(bounds)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, nil
}

// Merge combines overlapping regions into their union, repeating until no
// two regions overlap. The result is sorted top-to-bottom, left-to-right.
func Merge(regions []Region) []Region {
	merged := make([]Region, len(regions))
	copy(merged, regions)

	for changed := true; changed; {
		changed = false
		next := make([]Region, 0, len(merged))
		for _, r := range merged {
			foundMerge := false
			for i := range next {
				if regionsOverlap(r.Rectangle, next[i].Rectangle) {
					next[i] = Region{next[i].Union(r.Rectangle)}
					foundMerge = true
					changed = true
					break
				}
			}
			if !foundMerge {
				next = append(next, r)
			}
		}
		merged = next
	}

	sort.Slice(merged, func(i, j int) bool {
		if merged[i].Min.Y != merged[j].Min.Y {
			return merged[i].Min.Y < merged[j].Min.Y
		}
		return merged[i].Min.X < merged[j].Min.X
	})
	return merged
}

// regionsOverlap checks if two rectangles share any pixel
func regionsOverlap(a, b image.Rectangle) bool {
	return a.Min.X < b.Max.X && a.Max.X > b.Min.X && a.Min.Y < b.Max.Y && a.Max.Y > b.Min.Y
}
