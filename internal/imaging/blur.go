// Package imaging applies destructive transforms to local image files.
package imaging

import (
	"context"
	"fmt"
	"image"
	"io"
	"os"
	"path/filepath"

	"github.com/disintegration/imaging"
)

// DefaultSigma matches a 0x24 blur geometry.
const DefaultSigma = 24.0

// decodable lists the content types the blurrer can read and write back.
var decodable = map[string]struct{}{
	"image/jpeg": {},
	"image/png":  {},
	"image/gif":  {},
	"image/bmp":  {},
	"image/tiff": {},
}

// CanDecode reports whether images of the given content type can be blurred.
func CanDecode(contentType string) bool {
	_, ok := decodable[contentType]
	return ok
}

// Blurrer blurs image files in place.
type Blurrer struct {
	Sigma float64
}

// NewBlurrer returns a Blurrer with the given Gaussian sigma.
func NewBlurrer(sigma float64) *Blurrer {
	if sigma <= 0 {
		sigma = DefaultSigma
	}
	return &Blurrer{Sigma: sigma}
}

// Blur applies a Gaussian blur to the file at localPath, rewriting it in the same format.
// The format is sniffed from the file content; the name is ignored.
func (b *Blurrer) Blur(ctx context.Context, localPath string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	f, err := os.Open(localPath)
	if err != nil {
		return "", fmt.Errorf("open image: %w", err)
	}
	defer f.Close()

	_, name, err := image.DecodeConfig(f)
	if err != nil {
		return "", fmt.Errorf("detect format: %w", err)
	}
	format, err := imaging.FormatFromExtension(name)
	if err != nil {
		return "", fmt.Errorf("detect format %s: %w", name, err)
	}

	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return "", fmt.Errorf("rewind image: %w", err)
	}
	img, err := imaging.Decode(f, imaging.AutoOrientation(true))
	if err != nil {
		return "", fmt.Errorf("decode %s image: %w", format, err)
	}

	blurred := imaging.Blur(img, b.Sigma)

	if err := replace(localPath, blurred, format); err != nil {
		return "", fmt.Errorf("save %s image: %w", format, err)
	}
	return localPath, nil
}

// replace encodes img next to path and renames it over the original.
func replace(path string, img image.Image, format imaging.Format) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".blur-*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if err := imaging.Encode(tmp, img, format, imaging.JPEGQuality(90)); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}
