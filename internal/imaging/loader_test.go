package imaging

import (
	"bytes"
	"encoding/binary"
	"hash/crc32"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ironsheep/rrn-masker/internal/apperr"
)

// createInMemoryImage creates a uniformly colored RGBA image.
func createInMemoryImage(width, height int, c color.Color) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.Set(x, y, c)
		}
	}
	return img
}

// createTestImage writes a uniformly colored PNG into a temp dir and returns its path.
func createTestImage(t *testing.T, width, height int, c color.Color) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "test-image.png")
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("failed to create temp file: %v", err)
	}
	defer f.Close()

	if err := png.Encode(f, createInMemoryImage(width, height, c)); err != nil {
		t.Fatalf("failed to encode image: %v", err)
	}
	return path
}

func TestLoad(t *testing.T) {
	path := createTestImage(t, 100, 50, color.RGBA{255, 0, 0, 255})

	decoded, err := Load(path, 0)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	b := decoded.Image.Bounds()
	if b.Dx() != 100 || b.Dy() != 50 {
		t.Errorf("dimensions: got %dx%d, want 100x50", b.Dx(), b.Dy())
	}
	if decoded.Format != "png" {
		t.Errorf("Format: got %s, want png", decoded.Format)
	}
}

func TestLoad_NonExistent(t *testing.T) {
	_, err := Load("/nonexistent/path/image.png", 0)
	if err == nil {
		t.Fatal("Load should fail for non-existent file")
	}
	if code, _ := apperr.CodeOf(err); code != apperr.CodeInvalidImage {
		t.Errorf("code: got %q, want %q", code, apperr.CodeInvalidImage)
	}
}

func TestDecode_Invalid(t *testing.T) {
	tests := []struct {
		name string
		data []byte
	}{
		{"empty", nil},
		{"text", []byte("this is not an image")},
		{"truncated png", []byte("\x89PNG\r\n\x1a\n\x00\x00")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decode(bytes.NewReader(tt.data), 0)
			if err == nil {
				t.Fatal("Decode should fail")
			}
			if code, _ := apperr.CodeOf(err); code != apperr.CodeInvalidImage {
				t.Errorf("code: got %q, want %q", code, apperr.CodeInvalidImage)
			}
		})
	}
}

// pngHeader returns a PNG signature and IHDR chunk for an 8-bit RGB image of
// the given size, with no pixel data.
func pngHeader(width, height uint32) []byte {
	ihdr := make([]byte, 13)
	binary.BigEndian.PutUint32(ihdr[0:4], width)
	binary.BigEndian.PutUint32(ihdr[4:8], height)
	ihdr[8] = 8 // bit depth
	ihdr[9] = 2 // truecolor

	var buf bytes.Buffer
	buf.WriteString("\x89PNG\r\n\x1a\n")
	_ = binary.Write(&buf, binary.BigEndian, uint32(len(ihdr)))
	chunk := append([]byte("IHDR"), ihdr...)
	buf.Write(chunk)
	_ = binary.Write(&buf, binary.BigEndian, crc32.ChecksumIEEE(chunk))
	return buf.Bytes()
}

func TestDecode_PixelLimit(t *testing.T) {
	t.Run("oversized header rejected before decoding", func(t *testing.T) {
		_, err := Decode(bytes.NewReader(pngHeader(16000, 16000)), 0)
		if err == nil {
			t.Fatal("Decode should reject a 256 MP image")
		}
		if code, _ := apperr.CodeOf(err); code != apperr.CodeInvalidImage {
			t.Errorf("code: got %q, want %q", code, apperr.CodeInvalidImage)
		}
		if !strings.Contains(err.Error(), "16000x16000") {
			t.Errorf("error should name the size: %v", err)
		}
	})

	var buf bytes.Buffer
	if err := png.Encode(&buf, createInMemoryImage(40, 30, color.White)); err != nil {
		t.Fatalf("failed to encode png: %v", err)
	}
	data := buf.Bytes()

	t.Run("custom limit", func(t *testing.T) {
		if _, err := Decode(bytes.NewReader(data), 40*30-1); err == nil {
			t.Error("Decode should reject an image one pixel over the limit")
		}
		if _, err := Decode(bytes.NewReader(data), 40*30); err != nil {
			t.Errorf("Decode at the limit failed: %v", err)
		}
	})
}

func TestDecode_JPEG(t *testing.T) {
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, createInMemoryImage(40, 30, color.White), nil); err != nil {
		t.Fatalf("failed to encode jpeg: %v", err)
	}

	decoded, err := Decode(&buf, 0)
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if decoded.Format != "jpeg" {
		t.Errorf("Format: got %s, want jpeg", decoded.Format)
	}
}

func TestValidate(t *testing.T) {
	if err := Validate(nil); err == nil {
		t.Error("Validate(nil) should fail")
	}
	if err := Validate(image.NewGray(image.Rect(0, 0, 0, 10))); err == nil {
		t.Error("Validate should fail for zero width")
	}
	if err := Validate(image.NewGray(image.Rect(0, 0, 1, 1))); err != nil {
		t.Errorf("Validate failed for 1x1 image: %v", err)
	}
}

func TestSave_FormatFromExtension(t *testing.T) {
	img := createInMemoryImage(10, 10, color.Black)
	dir := t.TempDir()

	for _, name := range []string{"out.png", "out.jpg", "out.JPEG", "out.bmp", "out.tiff", "out.gif"} {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(dir, name)
			if err := Save(img, path); err != nil {
				t.Fatalf("Save failed: %v", err)
			}
			if _, err := Load(path, 0); err != nil {
				t.Errorf("reload failed: %v", err)
			}
		})
	}

	if err := Save(img, filepath.Join(dir, "out.xyz")); err == nil {
		t.Error("Save should fail for unknown extension")
	}
}

func TestEncode(t *testing.T) {
	img := createInMemoryImage(10, 10, color.Black)

	var buf bytes.Buffer
	if err := Encode(&buf, img, "png"); err != nil {
		t.Fatalf("Encode failed: %v", err)
	}
	if !strings.HasPrefix(buf.String(), "\x89PNG") {
		t.Error("output is not a PNG")
	}

	if err := Encode(&buf, img, "heic"); err == nil {
		t.Error("Encode should fail for unsupported format")
	}
}

func TestContentType(t *testing.T) {
	tests := map[string]string{
		"png":  "image/png",
		"jpeg": "image/jpeg",
		"JPG":  "image/jpeg",
		"gif":  "image/gif",
		"tiff": "image/tiff",
		"bmp":  "image/bmp",
		"":     "image/png",
	}
	for format, want := range tests {
		if got := ContentType(format); got != want {
			t.Errorf("ContentType(%q): got %s, want %s", format, got, want)
		}
	}
}
