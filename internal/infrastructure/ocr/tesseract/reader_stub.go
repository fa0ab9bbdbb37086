//go:build !tesseract

package tesseract

import (
	"context"
	"fmt"
	"image"
)

type Reader struct{}

func NewReader() *Reader {
	return &Reader{}
}

func (r *Reader) ReadText(_ context.Context, _ image.Image) (string, error) {
	return "", fmt.Errorf("read scale text: %w", ErrUnavailable)
}
