package localfs

import (
	"context"
	"errors"
	"fmt"
	"image"
	"io"
	"os"
	"path/filepath"

	"github.com/disintegration/imaging"

	"github.com/planscale/takeoff-engine/internal/core/domain"
)

// Storage keeps page rasters and template crops on the local filesystem
// under a configurable base directory.
type Storage struct {
	basePath string
}

func New(basePath string) (*Storage, error) {
	if basePath == "" {
		basePath = "./data/storage"
	}
	if err := os.MkdirAll(basePath, 0o755); err != nil {
		return nil, fmt.Errorf("create storage dir: %w", err)
	}
	return &Storage{basePath: basePath}, nil
}

func (s *Storage) Save(_ context.Context, key string, data io.Reader) error {
	path := filepath.Join(s.basePath, key)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create object dir: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create file: %w", err)
	}
	defer f.Close()

	if _, err := io.Copy(f, data); err != nil {
		return fmt.Errorf("write file: %w", err)
	}
	return nil
}

func (s *Storage) Open(_ context.Context, key string) (io.ReadCloser, error) {
	path := filepath.Join(s.basePath, key)
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, domain.WrapError(domain.ErrNotFound, "open object", err)
		}
		return nil, fmt.Errorf("open file: %w", err)
	}
	return f, nil
}

// PageImages decodes stored page rasters for detection runs.
type PageImages struct {
	storage *Storage
}

func NewPageImages(storage *Storage) *PageImages {
	return &PageImages{storage: storage}
}

func (p *PageImages) GetPageImage(ctx context.Context, page *domain.Page) (image.Image, error) {
	if page.ImageKey == "" {
		return nil, domain.WrapError(domain.ErrValidation, "get page image", fmt.Errorf("page %s has no image", page.ID))
	}
	rc, err := p.storage.Open(ctx, page.ImageKey)
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	img, err := imaging.Decode(rc)
	if err != nil {
		return nil, fmt.Errorf("decode page image %s: %w", page.ImageKey, err)
	}
	return img, nil
}
