package media

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

func writePNG(t *testing.T, w, h int) string {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		img.Set(x, h/2, color.RGBA{R: 255, A: 255})
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("failed to encode png: %v", err)
	}
	path := filepath.Join(t.TempDir(), "cover art.png")
	if err := os.WriteFile(path, buf.Bytes(), 0644); err != nil {
		t.Fatalf("failed to write png: %v", err)
	}
	return path
}

func TestCover(t *testing.T) {
	t.Run("CoverSize", func(t *testing.T) {
		tc := map[int]int{10: 1400, 1400: 1400, 2000: 2000, 3000: 3000, 5000: 3000}
		for in, want := range tc {
			if got := CoverSize(in); got != want {
				t.Errorf("CoverSize(%d): expected %d, got %d", in, want, got)
			}
		}
	})

	t.Run("NormalizeCover Crops To Square", func(t *testing.T) {
		img := image.NewRGBA(image.Rect(0, 0, 1600, 1500))
		b := NormalizeCover(img).Bounds()
		if b.Dx() != 1500 || b.Dy() != 1500 {
			t.Errorf("expected 1500x1500, got %dx%d", b.Dx(), b.Dy())
		}
	})

	t.Run("PrepareCover Upscales Small Images", func(t *testing.T) {
		path := writePNG(t, 200, 100)
		att, err := PrepareCover(path)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if att.Name != "cover art.jpg" {
			t.Errorf("expected cover art.jpg, got %s", att.Name)
		}

		img, err := jpeg.Decode(bytes.NewReader(att.Data))
		if err != nil {
			t.Fatalf("expected jpeg output, got %v", err)
		}
		if b := img.Bounds(); b.Dx() != MinCoverSize || b.Dy() != MinCoverSize {
			t.Errorf("expected %dx%d, got %dx%d", MinCoverSize, MinCoverSize, b.Dx(), b.Dy())
		}
	})

	t.Run("PrepareCover Errors", func(t *testing.T) {
		if _, err := PrepareCover(filepath.Join(t.TempDir(), "missing.png")); err == nil {
			t.Error("expected error for missing file")
		}

		path := filepath.Join(t.TempDir(), "notes.png")
		os.WriteFile(path, []byte("not an image"), 0644)
		if _, err := PrepareCover(path); err == nil {
			t.Error("expected decode error")
		}
	})
}
