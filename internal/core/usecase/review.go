package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/planscale/takeoff-engine/internal/core/domain"
	"github.com/planscale/takeoff-engine/internal/core/ports"
	"github.com/planscale/takeoff-engine/internal/core/revision"
)

// ReviewMeasurementUseCase records estimator review decisions. Rejection is a
// soft removal; a rejected measurement can only re-enter the workflow through
// Reopen, which attaches a modified node under the rejection node.
type ReviewMeasurementUseCase struct {
	measurements ports.MeasurementRepository
	revisions    *revision.Engine
}

func NewReviewMeasurementUseCase(measurements ports.MeasurementRepository, revisions *revision.Engine) *ReviewMeasurementUseCase {
	return &ReviewMeasurementUseCase{measurements: measurements, revisions: revisions}
}

func (uc *ReviewMeasurementUseCase) Approve(ctx context.Context, measurementID, actor string) (*domain.Measurement, error) {
	m, err := uc.measurements.GetByID(ctx, measurementID)
	if err != nil {
		return nil, fmt.Errorf("fetch measurement: %w", err)
	}
	if m.IsRejected {
		return nil, domain.WrapError(domain.ErrValidation, "approve",
			errors.New("rejected measurement must be reopened before approval"))
	}

	prev := m.Status
	m.IsVerified = true
	m.Status = domain.MeasurementApproved
	m.UpdatedAt = time.Now().UTC()
	if err := uc.measurements.Update(ctx, m); err != nil {
		return nil, fmt.Errorf("update measurement: %w", err)
	}

	if _, err := uc.revisions.Append(ctx, revision.AppendParams{
		MeasurementID:  m.ID,
		Action:         domain.RevisionActionApproved,
		Actor:          actor,
		ActorType:      domain.ActorTypeUser,
		PreviousStatus: prev,
		NewStatus:      domain.MeasurementApproved,
		PreviousQty:    m.Quantity,
		NewQty:         m.Quantity,
	}); err != nil {
		return nil, err
	}
	return m, nil
}

func (uc *ReviewMeasurementUseCase) Reject(ctx context.Context, measurementID, actor, reason string) (*domain.Measurement, error) {
	m, err := uc.measurements.GetByID(ctx, measurementID)
	if err != nil {
		return nil, fmt.Errorf("fetch measurement: %w", err)
	}
	if m.IsRejected {
		return nil, domain.WrapError(domain.ErrValidation, "reject",
			errors.New("measurement is already rejected"))
	}

	prev := m.Status
	m.IsRejected = true
	m.IsVerified = false
	m.RejectionReason = reason
	m.Status = domain.MeasurementRejected
	m.UpdatedAt = time.Now().UTC()
	if err := uc.measurements.Update(ctx, m); err != nil {
		return nil, fmt.Errorf("update measurement: %w", err)
	}

	if _, err := uc.revisions.Append(ctx, revision.AppendParams{
		MeasurementID:  m.ID,
		Action:         domain.RevisionActionRejected,
		Actor:          actor,
		ActorType:      domain.ActorTypeUser,
		PreviousStatus: prev,
		NewStatus:      domain.MeasurementRejected,
	}); err != nil {
		return nil, err
	}
	return m, nil
}

// Reopen lifts a rejection. The modified node takes the current graph heads
// as parents, so it hangs off the rejection node rather than rewriting it.
func (uc *ReviewMeasurementUseCase) Reopen(ctx context.Context, measurementID, actor string) (*domain.Measurement, error) {
	m, err := uc.measurements.GetByID(ctx, measurementID)
	if err != nil {
		return nil, fmt.Errorf("fetch measurement: %w", err)
	}
	if !m.IsRejected {
		return nil, domain.WrapError(domain.ErrValidation, "reopen",
			errors.New("measurement is not rejected"))
	}

	m.IsRejected = false
	m.RejectionReason = ""
	m.Status = domain.MeasurementModified
	m.IsModified = true
	m.UpdatedAt = time.Now().UTC()
	if err := uc.measurements.Update(ctx, m); err != nil {
		return nil, fmt.Errorf("update measurement: %w", err)
	}

	if _, err := uc.revisions.Append(ctx, revision.AppendParams{
		MeasurementID:  m.ID,
		Action:         domain.RevisionActionModified,
		Actor:          actor,
		ActorType:      domain.ActorTypeUser,
		PreviousStatus: domain.MeasurementRejected,
		NewStatus:      domain.MeasurementModified,
	}); err != nil {
		return nil, err
	}
	return m, nil
}
