package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/planscale/takeoff-engine/internal/core/domain"
	"github.com/planscale/takeoff-engine/internal/core/geometry"
	"github.com/planscale/takeoff-engine/internal/core/ports"
	"github.com/planscale/takeoff-engine/internal/core/revision"
)

// CreateMeasurementUseCase records a manually drawn (or AI takeoff) geometry
// as a measurement with its initial revision node.
type CreateMeasurementUseCase struct {
	measurements ports.MeasurementRepository
	conditions   ports.ConditionRepository
	pages        ports.PageRepository
	scales       ports.ScaleRepository
	revisions    *revision.Engine
}

func NewCreateMeasurementUseCase(
	measurements ports.MeasurementRepository,
	conditions ports.ConditionRepository,
	pages ports.PageRepository,
	scales ports.ScaleRepository,
	revisions *revision.Engine,
) *CreateMeasurementUseCase {
	return &CreateMeasurementUseCase{
		measurements: measurements,
		conditions:   conditions,
		pages:        pages,
		scales:       scales,
		revisions:    revisions,
	}
}

type CreateMeasurementRequest struct {
	ConditionID  string
	PageID       string
	Geometry     geometry.Geometry
	Actor        string
	ActorType    domain.ActorType
	AIConfidence float64
	Notes        string
}

func (uc *CreateMeasurementUseCase) Create(ctx context.Context, req CreateMeasurementRequest) (*domain.Measurement, error) {
	if err := req.Geometry.Validate(); err != nil {
		return nil, err
	}

	pixelQty := req.Geometry.PixelQuantity()
	q := quantifier{conditions: uc.conditions, pages: uc.pages, scales: uc.scales}
	quantity, unit, err := q.realQuantity(ctx, req.ConditionID, req.PageID, req.Geometry, pixelQty)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	m := &domain.Measurement{
		ID:            uuid.NewString(),
		ConditionID:   req.ConditionID,
		PageID:        req.PageID,
		Geometry:      req.Geometry,
		Quantity:      quantity,
		Unit:          unit,
		Status:        domain.MeasurementCreated,
		IsAIGenerated: req.ActorType == domain.ActorTypeAI,
		AIConfidence:  req.AIConfidence,
		Notes:         req.Notes,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	m.ApplyPixelQuantity(pixelQty)

	if err := uc.measurements.Create(ctx, m); err != nil {
		return nil, fmt.Errorf("create measurement: %w", err)
	}
	if _, err := uc.revisions.Append(ctx, revision.AppendParams{
		MeasurementID: m.ID,
		ParentIDs:     []string{},
		Action:        domain.RevisionActionCreated,
		Actor:         req.Actor,
		ActorType:     req.ActorType,
		NewStatus:     domain.MeasurementCreated,
		NewGeom:       &m.Geometry,
		NewQty:        m.Quantity,
	}); err != nil {
		return nil, err
	}
	return m, nil
}
