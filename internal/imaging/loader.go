package imaging

import (
	"bytes"
	"fmt"
	"image"
	"io"
	"os"
	"strings"

	"github.com/disintegration/imaging"
	_ "golang.org/x/image/bmp"  // Register BMP format decoder
	_ "golang.org/x/image/tiff" // Register TIFF format decoder
	_ "golang.org/x/image/webp" // Register WebP format decoder (phone uploads)

	"github.com/ironsheep/rrn-masker/internal/apperr"
)

// DefaultMaxPixels is the decode limit used when none is given. A 50 MP
// raster is already about 200 MB in memory.
const DefaultMaxPixels = 50_000_000

// Decoded is an image read from a file or an upload.
type Decoded struct {
	// Image is the decoded image with EXIF orientation applied.
	Image image.Image

	// Format is the name reported by the registered decoder ("png", "jpeg", ...).
	Format string
}

// Decode reads and decodes an image from r.
//
// JPEG images are rotated according to their EXIF orientation tag so that the
// pixel grid matches what a viewer shows; detection and masking both operate
// on that grid.
//
// # Errors
//
// The header is checked before the pixels are decoded: images with more than
// maxPixels pixels (DefaultMaxPixels when maxPixels <= 0) are rejected, since a
// small compressed file can expand to a raster of gigabytes.
//
// Every failure, including an empty reader or a zero-dimension image, is
// reported as an apperr.CodeInvalidImage error.
func Decode(r io.Reader, maxPixels int64) (*Decoded, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, apperr.InvalidImage("failed to read image data", err)
	}
	if len(data) == 0 {
		return nil, apperr.InvalidImage("empty image data", nil)
	}

	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, apperr.InvalidImage("unrecognized image format", err)
	}
	if maxPixels <= 0 {
		maxPixels = DefaultMaxPixels
	}
	if pixels := int64(cfg.Width) * int64(cfg.Height); pixels > maxPixels {
		return nil, apperr.InvalidImage(
			fmt.Sprintf("image is %dx%d, more than the %d pixel limit", cfg.Width, cfg.Height, maxPixels), nil)
	}

	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return nil, apperr.InvalidImage("failed to decode image", err)
	}
	if err := Validate(img); err != nil {
		return nil, err
	}

	return &Decoded{Image: img, Format: format}, nil
}

// Load opens and decodes the image file at path with the same pixel limit as
// Decode.
func Load(path string, maxPixels int64) (*Decoded, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, apperr.InvalidImage(fmt.Sprintf("failed to open image %s", path), err)
	}
	defer f.Close()

	return Decode(f, maxPixels)
}

// Validate rejects nil and zero-dimension images.
func Validate(img image.Image) error {
	if img == nil {
		return apperr.InvalidImage("image is nil", nil)
	}
	b := img.Bounds()
	if b.Dx() <= 0 || b.Dy() <= 0 {
		return apperr.InvalidImage(fmt.Sprintf("image has zero dimensions (%dx%d)", b.Dx(), b.Dy()), nil)
	}
	return nil
}

// Save writes img to path, choosing the encoder from the file extension.
func Save(img image.Image, path string) error {
	if _, err := imaging.FormatFromFilename(path); err != nil {
		return fmt.Errorf("unsupported output format for %s: %w", path, err)
	}
	if err := imaging.Save(img, path, imaging.JPEGQuality(95)); err != nil {
		return fmt.Errorf("failed to save image: %w", err)
	}
	return nil
}

// Encode writes img to w in the named format ("png", "jpeg", "gif", "tiff", "bmp").
func Encode(w io.Writer, img image.Image, format string) error {
	f, err := imaging.FormatFromExtension(strings.ToLower(format))
	if err != nil {
		return fmt.Errorf("unsupported output format %q: %w", format, err)
	}
	if err := imaging.Encode(w, img, f, imaging.JPEGQuality(95)); err != nil {
		return fmt.Errorf("failed to encode image: %w", err)
	}
	return nil
}

// ContentType returns the MIME type for an output format name.
func ContentType(format string) string {
	switch strings.ToLower(format) {
	case "jpg", "jpeg":
		return "image/jpeg"
	case "gif":
		return "image/gif"
	case "tif", "tiff":
		return "image/tiff"
	case "bmp":
		return "image/bmp"
	default:
		return "image/png"
	}
}
