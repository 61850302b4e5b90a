// package media prepares podcast cover art for upload
package media

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"os"
	"path/filepath"
	"strings"

	"github.com/desertthunder/ytpod/internal/models"
	"github.com/disintegration/imaging"
)

// Podcast directories accept square artwork between these sizes.
const (
	MinCoverSize = 1400
	MaxCoverSize = 3000
)

// CoverQuality is the JPEG quality of prepared covers.
const CoverQuality = 90

// CoverSize returns the edge length a square crop of side n is scaled to.
func CoverSize(n int) int {
	switch {
	case n < MinCoverSize:
		return MinCoverSize
	case n > MaxCoverSize:
		return MaxCoverSize
	default:
		return n
	}
}

// NormalizeCover center-crops img to a square and scales it into the accepted size range.
func NormalizeCover(img image.Image) image.Image {
	b := img.Bounds()
	side := min(b.Dx(), b.Dy())
	square := imaging.CropCenter(img, side, side)

	size := CoverSize(side)
	if size == side {
		return square
	}
	return imaging.Resize(square, size, size, imaging.Lanczos)
}

// EncodeCover decodes jpeg, png or gif data and returns the normalized cover as JPEG.
func EncodeCover(data []byte) ([]byte, error) {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %v", err)
	}

	buf := new(bytes.Buffer)
	if err := imaging.Encode(buf, NormalizeCover(img), imaging.JPEG, imaging.JPEGQuality(CoverQuality)); err != nil {
		return nil, fmt.Errorf("failed to encode cover: %v", err)
	}
	return buf.Bytes(), nil
}

// PrepareCover reads the image at path and returns it as an upload-ready JPEG attachment
// named after the source file.
func PrepareCover(path string) (*models.Attachment, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read cover: %w", err)
	}

	out, err := EncodeCover(data)
	if err != nil {
		return nil, err
	}

	base := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	return &models.Attachment{Name: base + ".jpg", Data: out}, nil
}
