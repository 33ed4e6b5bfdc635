package gallery

import (
	"bytes"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"os"
	"path/filepath"
	"testing"
)

// writeTestPNG writes a w×h PNG into the library.
func writeTestPNG(t *testing.T, lib *Library, rel string, w, h int) {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x), G: uint8(y), B: 128, A: 255})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatal(err)
	}
	p := filepath.Join(lib.Root(), filepath.FromSlash(rel))
	if err := os.WriteFile(p, buf.Bytes(), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestRenderScalesDown(t *testing.T) {
	lib := testLibrary(t)
	writeTestPNG(t, lib, "big.png", 1600, 800)

	thumbs := NewThumbnailer(lib, 320)
	out, err := thumbs.Render("/big.png")
	if err != nil {
		t.Fatalf("Render: %v", err)
	}

	decoded, err := jpeg.Decode(bytes.NewReader(out))
	if err != nil {
		t.Fatalf("decode thumbnail: %v", err)
	}
	b := decoded.Bounds()
	if b.Dx() != 320 || b.Dy() != 160 {
		t.Errorf("thumbnail size: got %dx%d, want 320x160", b.Dx(), b.Dy())
	}
}

func TestRenderNoUpscale(t *testing.T) {
	lib := testLibrary(t)
	writeTestPNG(t, lib, "small.png", 100, 60)

	thumbs := NewThumbnailer(lib, 320)
	out, err := thumbs.Render("/small.png")
	if err != nil {
		t.Fatalf("Render: %v", err)
	}

	decoded, err := jpeg.Decode(bytes.NewReader(out))
	if err != nil {
		t.Fatalf("decode thumbnail: %v", err)
	}
	b := decoded.Bounds()
	if b.Dx() != 100 || b.Dy() != 60 {
		t.Errorf("thumbnail size: got %dx%d, want unchanged 100x60", b.Dx(), b.Dy())
	}
}

func TestRenderTallImage(t *testing.T) {
	lib := testLibrary(t)
	writeTestPNG(t, lib, "tall.png", 400, 1200)

	thumbs := NewThumbnailer(lib, 300)
	out, err := thumbs.Render("/tall.png")
	if err != nil {
		t.Fatalf("Render: %v", err)
	}

	decoded, err := jpeg.Decode(bytes.NewReader(out))
	if err != nil {
		t.Fatalf("decode thumbnail: %v", err)
	}
	b := decoded.Bounds()
	if b.Dx() != 100 || b.Dy() != 300 {
		t.Errorf("thumbnail size: got %dx%d, want 100x300", b.Dx(), b.Dy())
	}
}

func TestRenderNonImageFails(t *testing.T) {
	lib := testLibrary(t)

	thumbs := NewThumbnailer(lib, 320)
	if _, err := thumbs.Render("/beach.jpg"); err == nil {
		// beach.jpg is zero bytes in the fixture — not a decodable image.
		t.Error("expected a decode error for a non-image file")
	}
}

func TestRenderMissingFile(t *testing.T) {
	lib := testLibrary(t)

	thumbs := NewThumbnailer(lib, 320)
	if _, err := thumbs.Render("/nope.png"); err == nil {
		t.Error("expected an error for a missing file")
	}
}
