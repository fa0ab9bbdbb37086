package usecase

import (
	"context"
	"fmt"
	"image"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/planscale/takeoff-engine/internal/core/domain"
	"github.com/planscale/takeoff-engine/internal/core/geometry"
	"github.com/planscale/takeoff-engine/internal/core/ports"
	"github.com/planscale/takeoff-engine/internal/core/scale"
)

// CalibrateScaleUseCase creates calibration records for pages. Specs are
// immutable once created; recalibration binds a fresh spec id to the page so
// historical revisions keep the factor they were converted with.
type CalibrateScaleUseCase struct {
	scales ports.ScaleRepository
	pages  ports.PageRepository
	images ports.PageImageProvider
	reader ports.ScaleTextReader
}

func NewCalibrateScaleUseCase(
	scales ports.ScaleRepository,
	pages ports.PageRepository,
	images ports.PageImageProvider,
	reader ports.ScaleTextReader,
) *CalibrateScaleUseCase {
	return &CalibrateScaleUseCase{scales: scales, pages: pages, images: images, reader: reader}
}

// ParseAndBind recognizes a scale annotation and makes it the page's active
// calibration. Unrecognized text surfaces ErrParse with no side effect.
func (uc *CalibrateScaleUseCase) ParseAndBind(ctx context.Context, pageID, text string, method domain.ScaleDetectionMethod) (*domain.ScaleSpec, error) {
	parsed, err := scale.ParseText(text)
	if err != nil {
		return nil, err
	}
	if method == "" {
		method = parsed.Method
	}

	page, err := uc.pages.GetByID(ctx, pageID)
	if err != nil {
		return nil, fmt.Errorf("fetch page: %w", err)
	}

	spec := &domain.ScaleSpec{
		ID:              uuid.NewString(),
		PageID:          page.ID,
		RawText:         text,
		Ratio:           parsed.Ratio,
		Unit:            parsed.Unit,
		DetectionMethod: method,
		NotToScale:      parsed.NotToScale,
		CreatedAt:       time.Now().UTC(),
	}
	if err := uc.bind(ctx, spec); err != nil {
		return nil, err
	}
	return spec, nil
}

// DetectFromRegion crops the given page region, reads its text via OCR and
// binds the recognized annotation as the page's active calibration. Text the
// parser does not recognize surfaces ErrParse so the caller can fall back to
// manual calibration.
func (uc *CalibrateScaleUseCase) DetectFromRegion(ctx context.Context, pageID string, region geometry.Rect) (*domain.ScaleSpec, error) {
	if region.Width <= 0 || region.Height <= 0 {
		return nil, domain.WrapError(domain.ErrValidation, "detect scale",
			fmt.Errorf("region must have positive size, got %vx%v", region.Width, region.Height))
	}

	page, err := uc.pages.GetByID(ctx, pageID)
	if err != nil {
		return nil, fmt.Errorf("fetch page: %w", err)
	}
	img, err := uc.images.GetPageImage(ctx, page)
	if err != nil {
		return nil, fmt.Errorf("load page image: %w", err)
	}

	crop, err := cropRegion(img, region)
	if err != nil {
		return nil, domain.WrapError(domain.ErrValidation, "detect scale", err)
	}
	text, err := uc.reader.ReadText(ctx, crop)
	if err != nil {
		return nil, domain.WrapError(domain.ErrDetection, "read scale text", err)
	}

	return uc.ParseAndBind(ctx, page.ID, strings.TrimSpace(text), domain.ScaleDetectedOCR)
}

// CalibrateManual derives pixels-per-foot from a user-drawn reference
// distance and binds it as the page's active calibration.
func (uc *CalibrateScaleUseCase) CalibrateManual(ctx context.Context, pageID string, pixelDistance, realDistance float64, unit domain.ScaleUnit) (*domain.ScaleSpec, error) {
	ppf, err := scale.Calibrate(pixelDistance, realDistance, unit)
	if err != nil {
		return nil, err
	}

	page, err := uc.pages.GetByID(ctx, pageID)
	if err != nil {
		return nil, fmt.Errorf("fetch page: %w", err)
	}

	spec := &domain.ScaleSpec{
		ID:              uuid.NewString(),
		PageID:          page.ID,
		Ratio:           ppf,
		Unit:            domain.ScaleUnitFoot,
		DetectionMethod: domain.ScaleDetectedManual,
		CreatedAt:       time.Now().UTC(),
	}
	if err := uc.bind(ctx, spec); err != nil {
		return nil, err
	}
	return spec, nil
}

func cropRegion(img image.Image, region geometry.Rect) (image.Image, error) {
	sub, ok := img.(interface {
		SubImage(r image.Rectangle) image.Image
	})
	if !ok {
		return nil, fmt.Errorf("page image format does not support cropping")
	}
	rect := image.Rect(int(region.X), int(region.Y),
		int(region.X+region.Width), int(region.Y+region.Height))
	rect = rect.Intersect(img.Bounds())
	if rect.Empty() {
		return nil, fmt.Errorf("region lies outside the page image")
	}
	return sub.SubImage(rect), nil
}

func (uc *CalibrateScaleUseCase) bind(ctx context.Context, spec *domain.ScaleSpec) error {
	if err := uc.scales.Create(ctx, spec); err != nil {
		return fmt.Errorf("create scale spec: %w", err)
	}
	if err := uc.pages.SetScaleSpec(ctx, spec.PageID, spec.ID); err != nil {
		return fmt.Errorf("bind scale spec to page: %w", err)
	}
	return nil
}
