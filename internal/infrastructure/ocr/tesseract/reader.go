//go:build tesseract

package tesseract

import (
	"bytes"
	"context"
	"fmt"
	"image"

	"github.com/disintegration/imaging"
	"github.com/otiai10/gosseract/v2"
)

type Reader struct{}

func NewReader() *Reader {
	return &Reader{}
}

func (r *Reader) ReadText(ctx context.Context, region image.Image) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, region, imaging.PNG); err != nil {
		return "", fmt.Errorf("encode ocr region: %w", err)
	}

	client := gosseract.NewClient()
	defer client.Close()

	// Scale annotations use a narrow alphabet; restricting it cuts
	// misreads on noisy linework.
	if err := client.SetWhitelist(`0123456789/=:'".- SCALENT`); err != nil {
		return "", fmt.Errorf("configure ocr whitelist: %w", err)
	}
	if err := client.SetImageFromBytes(buf.Bytes()); err != nil {
		return "", fmt.Errorf("load ocr region: %w", err)
	}

	text, err := client.Text()
	if err != nil {
		return "", fmt.Errorf("ocr text: %w", err)
	}
	return text, nil
}
