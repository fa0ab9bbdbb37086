package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/planscale/takeoff-engine/internal/core/domain"
	"github.com/planscale/takeoff-engine/internal/core/geometry"
	"github.com/planscale/takeoff-engine/internal/core/ports"
	"github.com/planscale/takeoff-engine/internal/core/revision"
)

// AdjustMeasurementUseCase applies one geometry adjustment to a measurement,
// recomputes its quantity through the page calibration and records the change
// in the revision graph.
type AdjustMeasurementUseCase struct {
	measurements ports.MeasurementRepository
	conditions   ports.ConditionRepository
	pages        ports.PageRepository
	scales       ports.ScaleRepository
	revisions    *revision.Engine
}

func NewAdjustMeasurementUseCase(
	measurements ports.MeasurementRepository,
	conditions ports.ConditionRepository,
	pages ports.PageRepository,
	scales ports.ScaleRepository,
	revisions *revision.Engine,
) *AdjustMeasurementUseCase {
	return &AdjustMeasurementUseCase{
		measurements: measurements,
		conditions:   conditions,
		pages:        pages,
		scales:       scales,
		revisions:    revisions,
	}
}

func (uc *AdjustMeasurementUseCase) Adjust(ctx context.Context, req ports.AdjustRequest) (*ports.AdjustResponse, error) {
	m, err := uc.measurements.GetByID(ctx, req.MeasurementID)
	if err != nil {
		return nil, fmt.Errorf("fetch measurement: %w", err)
	}

	if req.Action == "split" {
		return uc.split(ctx, m, req)
	}
	if req.Action == "join" {
		return uc.join(ctx, m, req)
	}

	result, err := uc.applyAction(ctx, m, req)
	if err != nil {
		return nil, err
	}

	updated, err := uc.commitAdjustment(ctx, m, result, req)
	if err != nil {
		return nil, err
	}
	return &ports.AdjustResponse{Measurement: updated}, nil
}

func (uc *AdjustMeasurementUseCase) applyAction(_ context.Context, m *domain.Measurement, req ports.AdjustRequest) (geometry.Result, error) {
	switch req.Action {
	case "nudge":
		return geometry.Nudge(m.Geometry, req.Direction, req.Distance)
	case "snap_to_grid":
		return geometry.SnapToGrid(m.Geometry, req.GridSize)
	case "extend":
		if req.Target == nil {
			return geometry.Result{}, domain.WrapError(domain.ErrValidation, "extend", errors.New("target point is required"))
		}
		return geometry.Extend(m.Geometry, *req.Target)
	case "trim":
		if req.Target == nil {
			return geometry.Result{}, domain.WrapError(domain.ErrValidation, "trim", errors.New("trim point is required"))
		}
		return geometry.Trim(m.Geometry, *req.Target)
	case "offset":
		return geometry.Offset(m.Geometry, req.Distance, req.Side)
	default:
		return geometry.Result{}, domain.WrapError(domain.ErrValidation, "adjust",
			fmt.Errorf("unknown action %q", req.Action))
	}
}

func (uc *AdjustMeasurementUseCase) split(ctx context.Context, m *domain.Measurement, req ports.AdjustRequest) (*ports.AdjustResponse, error) {
	if req.Target == nil {
		return nil, domain.WrapError(domain.ErrValidation, "split", errors.New("split point is required"))
	}
	parts, err := geometry.Split(m.Geometry, *req.Target)
	if err != nil {
		return nil, err
	}

	sibling := &domain.Measurement{
		ID:          uuid.NewString(),
		ConditionID: m.ConditionID,
		PageID:      m.PageID,
		Geometry:    parts.Second.Geometry,
		Unit:        m.Unit,
		Status:      domain.MeasurementCreated,
		Notes:       m.Notes,
		CreatedAt:   time.Now().UTC(),
		UpdatedAt:   time.Now().UTC(),
	}
	sibling.ApplyPixelQuantity(parts.Second.PixelQuantity)
	if sibling.Quantity, sibling.Unit, err = uc.realQuantity(ctx, m, parts.Second.Geometry, parts.Second.PixelQuantity); err != nil {
		return nil, err
	}
	if err := uc.measurements.Create(ctx, sibling); err != nil {
		return nil, fmt.Errorf("create sibling measurement: %w", err)
	}
	if _, err := uc.revisions.Append(ctx, revision.AppendParams{
		MeasurementID: sibling.ID,
		ParentIDs:     []string{},
		Action:        domain.RevisionActionCreated,
		Actor:         req.Actor,
		ActorType:     req.ActorType,
		NewStatus:     domain.MeasurementCreated,
		NewGeom:       &sibling.Geometry,
		NewQty:        sibling.Quantity,
	}); err != nil {
		return nil, err
	}

	updated, err := uc.commitAdjustment(ctx, m, parts.First, req)
	if err != nil {
		return nil, err
	}
	return &ports.AdjustResponse{Measurement: updated, Sibling: sibling}, nil
}

// join merges another linear measurement into this one. The absorbed
// measurement is soft-removed via rejection so the audit trail survives.
func (uc *AdjustMeasurementUseCase) join(ctx context.Context, m *domain.Measurement, req ports.AdjustRequest) (*ports.AdjustResponse, error) {
	if req.Other == "" {
		return nil, domain.WrapError(domain.ErrValidation, "join", errors.New("other measurement id is required"))
	}
	other, err := uc.measurements.GetByID(ctx, req.Other)
	if err != nil {
		return nil, fmt.Errorf("fetch join target: %w", err)
	}
	// Rejection is terminal for the absorbed side; checking up front keeps
	// the primary untouched when the join cannot complete.
	if other.IsRejected || other.Status == domain.MeasurementRejected {
		return nil, domain.WrapError(domain.ErrValidation, "join",
			fmt.Errorf("measurement %s is already rejected", other.ID))
	}

	result, err := geometry.Join(m.Geometry, other.Geometry)
	if err != nil {
		return nil, err
	}

	updated, err := uc.commitAdjustment(ctx, m, result, req)
	if err != nil {
		return nil, err
	}

	prevStatus := other.Status
	other.IsRejected = true
	other.RejectionReason = fmt.Sprintf("joined into measurement %s", m.ID)
	other.Status = domain.MeasurementRejected
	other.UpdatedAt = time.Now().UTC()
	if err := uc.measurements.Update(ctx, other); err != nil {
		return nil, fmt.Errorf("soft-remove joined measurement: %w", err)
	}
	if _, err := uc.revisions.Append(ctx, revision.AppendParams{
		MeasurementID:  other.ID,
		Action:         domain.RevisionActionRejected,
		Actor:          req.Actor,
		ActorType:      req.ActorType,
		PreviousStatus: prevStatus,
		NewStatus:      domain.MeasurementRejected,
		PreviousGeom:   &other.Geometry,
	}); err != nil {
		return nil, err
	}
	return &ports.AdjustResponse{Measurement: updated}, nil
}

func (uc *AdjustMeasurementUseCase) commitAdjustment(ctx context.Context, m *domain.Measurement, result geometry.Result, req ports.AdjustRequest) (*domain.Measurement, error) {
	prevGeom := m.Geometry.Clone()
	prevQty := m.Quantity
	prevStatus := m.Status

	quantity, unit, err := uc.realQuantity(ctx, m, result.Geometry, result.PixelQuantity)
	if err != nil {
		return nil, err
	}

	updated := *m
	updated.Geometry = result.Geometry
	updated.Quantity = quantity
	updated.Unit = unit
	updated.IsModified = true
	updated.IsRejected = false
	updated.RejectionReason = ""
	updated.Status = domain.MeasurementModified
	updated.UpdatedAt = time.Now().UTC()
	updated.ApplyPixelQuantity(result.PixelQuantity)

	if err := uc.measurements.Update(ctx, &updated); err != nil {
		return nil, fmt.Errorf("update measurement: %w", err)
	}
	if _, err := uc.revisions.Append(ctx, revision.AppendParams{
		MeasurementID:  updated.ID,
		Action:         domain.RevisionActionModified,
		Actor:          req.Actor,
		ActorType:      req.ActorType,
		PreviousStatus: prevStatus,
		NewStatus:      domain.MeasurementModified,
		PreviousGeom:   &prevGeom,
		NewGeom:        &updated.Geometry,
		PreviousQty:    prevQty,
		NewQty:         updated.Quantity,
	}); err != nil {
		return nil, err
	}
	return &updated, nil
}

func (uc *AdjustMeasurementUseCase) realQuantity(ctx context.Context, m *domain.Measurement, g geometry.Geometry, pixelQty float64) (float64, string, error) {
	q := quantifier{conditions: uc.conditions, pages: uc.pages, scales: uc.scales}
	return q.realQuantity(ctx, m.ConditionID, m.PageID, g, pixelQty)
}
