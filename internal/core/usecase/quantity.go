package usecase

import (
	"context"
	"fmt"

	"github.com/planscale/takeoff-engine/internal/core/domain"
	"github.com/planscale/takeoff-engine/internal/core/geometry"
	"github.com/planscale/takeoff-engine/internal/core/ports"
	"github.com/planscale/takeoff-engine/internal/core/scale"
)

// quantifier converts pixel quantities using a page's active calibration.
// Pages without a usable scale keep the raw pixel quantity with a pixel unit
// so nothing is silently mis-scaled.
type quantifier struct {
	conditions ports.ConditionRepository
	pages      ports.PageRepository
	scales     ports.ScaleRepository
}

func (q quantifier) realQuantity(ctx context.Context, conditionID, pageID string, g geometry.Geometry, pixelQty float64) (float64, string, error) {
	if g.Kind == geometry.KindPoint {
		return 1, "EA", nil
	}

	page, err := q.pages.GetByID(ctx, pageID)
	if err != nil {
		return 0, "", fmt.Errorf("fetch page: %w", err)
	}
	if page.ScaleSpecID == "" {
		return pixelQty, pixelUnit(g.Kind), nil
	}
	spec, err := q.scales.GetByID(ctx, page.ScaleSpecID)
	if err != nil {
		return 0, "", fmt.Errorf("fetch scale spec: %w", err)
	}
	if spec.NotToScale {
		return pixelQty, pixelUnit(g.Kind), nil
	}

	ppf, err := scale.PixelsPerFoot(*spec, page.RenderDPI)
	if err != nil {
		return 0, "", err
	}
	quantity, err := scale.ConvertQuantity(pixelQty, g.Kind, ppf)
	if err != nil {
		return 0, "", err
	}

	condition, err := q.conditions.GetByID(ctx, conditionID)
	if err != nil {
		return 0, "", fmt.Errorf("fetch condition: %w", err)
	}
	if condition.MeasurementType == domain.MeasurementTypeVolume && g.Kind == geometry.KindPolygon {
		// Square feet to cubic feet through the condition depth.
		return quantity * condition.DepthInches / 12, condition.Unit, nil
	}
	return quantity, condition.Unit, nil
}

func pixelUnit(kind geometry.Kind) string {
	if kind == geometry.KindPolygon {
		return "px2"
	}
	return "px"
}
