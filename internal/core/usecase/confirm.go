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

const fallbackAutoConfirmThreshold = 0.8

// ConfirmDetectionsUseCase folds confirmed detections back into measurements
// and their revision history.
type ConfirmDetectionsUseCase struct {
	sessions     ports.SessionRepository
	measurements ports.MeasurementRepository
	conditions   ports.ConditionRepository
	revisions    *revision.Engine

	defaultThreshold float64
}

func NewConfirmDetectionsUseCase(
	sessions ports.SessionRepository,
	measurements ports.MeasurementRepository,
	conditions ports.ConditionRepository,
	revisions *revision.Engine,
	defaultThreshold float64,
) *ConfirmDetectionsUseCase {
	if defaultThreshold <= 0 || defaultThreshold > 1 {
		defaultThreshold = fallbackAutoConfirmThreshold
	}
	return &ConfirmDetectionsUseCase{
		sessions:         sessions,
		measurements:     measurements,
		conditions:       conditions,
		revisions:        revisions,
		defaultThreshold: defaultThreshold,
	}
}

// DefaultThreshold is the confidence cutoff used when a confirm request does
// not carry one.
func (uc *ConfirmDetectionsUseCase) DefaultThreshold() float64 {
	return uc.defaultThreshold
}

// AutoConfirm marks every pending detection at or above the threshold as
// auto-confirmed and materializes a measurement for each.
func (uc *ConfirmDetectionsUseCase) AutoConfirm(ctx context.Context, sessionID string, threshold float64) (*domain.AutoCountSession, error) {
	return uc.confirmAboveThreshold(ctx, sessionID, threshold, "", domain.ActorTypeAutoAccept, true)
}

// BulkConfirm is the manual variant of AutoConfirm: same confirmation
// effect, recorded against the acting user.
func (uc *ConfirmDetectionsUseCase) BulkConfirm(ctx context.Context, sessionID string, threshold float64, actor string) (*domain.AutoCountSession, error) {
	return uc.confirmAboveThreshold(ctx, sessionID, threshold, actor, domain.ActorTypeUser, false)
}

func (uc *ConfirmDetectionsUseCase) confirmAboveThreshold(
	ctx context.Context,
	sessionID string,
	threshold float64,
	actor string,
	actorType domain.ActorType,
	auto bool,
) (*domain.AutoCountSession, error) {
	if threshold < 0 || threshold > 1 {
		return nil, domain.WrapError(domain.ErrValidation, "confirm detections",
			fmt.Errorf("threshold must be in [0,1], got %v", threshold))
	}

	session, err := uc.sessions.GetByID(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("fetch session: %w", err)
	}
	detections, err := uc.sessions.ListDetections(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("list detections: %w", err)
	}

	for i := range detections {
		detection := &detections[i]
		if detection.Status != domain.DetectionPending || detection.Confidence < threshold {
			continue
		}
		if err := uc.confirmOne(ctx, session, detection, actor, actorType, auto); err != nil {
			return nil, err
		}
	}

	if err := uc.checkCounters(session); err != nil {
		return nil, err
	}
	session.UpdatedAt = time.Now().UTC()
	if err := uc.sessions.Update(ctx, session); err != nil {
		return nil, fmt.Errorf("update session counters: %w", err)
	}
	return session, nil
}

// ConfirmDetection confirms one detection regardless of its confidence.
func (uc *ConfirmDetectionsUseCase) ConfirmDetection(ctx context.Context, detectionID, actor string) (*domain.Detection, error) {
	detection, err := uc.sessions.GetDetection(ctx, detectionID)
	if err != nil {
		return nil, fmt.Errorf("fetch detection: %w", err)
	}
	if detection.Status != domain.DetectionPending {
		return nil, domain.WrapError(domain.ErrValidation, "confirm detection",
			fmt.Errorf("detection is %s", detection.Status))
	}
	session, err := uc.sessions.GetByID(ctx, detection.SessionID)
	if err != nil {
		return nil, fmt.Errorf("fetch session: %w", err)
	}

	if err := uc.confirmOne(ctx, session, detection, actor, domain.ActorTypeUser, false); err != nil {
		return nil, err
	}
	if err := uc.checkCounters(session); err != nil {
		return nil, err
	}
	session.UpdatedAt = time.Now().UTC()
	if err := uc.sessions.Update(ctx, session); err != nil {
		return nil, fmt.Errorf("update session counters: %w", err)
	}
	return detection, nil
}

// RejectDetection discards one pending candidate.
func (uc *ConfirmDetectionsUseCase) RejectDetection(ctx context.Context, detectionID string) (*domain.Detection, error) {
	detection, err := uc.sessions.GetDetection(ctx, detectionID)
	if err != nil {
		return nil, fmt.Errorf("fetch detection: %w", err)
	}
	if detection.Status != domain.DetectionPending {
		return nil, domain.WrapError(domain.ErrValidation, "reject detection",
			fmt.Errorf("detection is %s", detection.Status))
	}
	session, err := uc.sessions.GetByID(ctx, detection.SessionID)
	if err != nil {
		return nil, fmt.Errorf("fetch session: %w", err)
	}

	detection.Status = domain.DetectionRejected
	if err := uc.sessions.UpdateDetection(ctx, detection); err != nil {
		return nil, fmt.Errorf("update detection: %w", err)
	}

	session.RejectedDetections++
	if err := uc.checkCounters(session); err != nil {
		return nil, err
	}
	session.UpdatedAt = time.Now().UTC()
	if err := uc.sessions.Update(ctx, session); err != nil {
		return nil, fmt.Errorf("update session counters: %w", err)
	}
	return detection, nil
}

func (uc *ConfirmDetectionsUseCase) confirmOne(
	ctx context.Context,
	session *domain.AutoCountSession,
	detection *domain.Detection,
	actor string,
	actorType domain.ActorType,
	auto bool,
) error {
	condition, err := uc.conditions.GetByID(ctx, session.ConditionID)
	if err != nil {
		return fmt.Errorf("fetch condition: %w", err)
	}

	m := uc.materialize(session, detection, condition)
	action := domain.RevisionActionCreated
	if auto {
		action = domain.RevisionActionAutoAccepted
		m.Status = domain.MeasurementAutoAccepted
	}
	if err := uc.measurements.Create(ctx, m); err != nil {
		return fmt.Errorf("create measurement: %w", err)
	}

	if _, err := uc.revisions.Append(ctx, revision.AppendParams{
		MeasurementID: m.ID,
		ParentIDs:     []string{},
		Action:        action,
		Actor:         actor,
		ActorType:     actorType,
		NewStatus:     m.Status,
		NewGeom:       &m.Geometry,
		NewQty:        m.Quantity,
	}); err != nil {
		return err
	}

	detection.Status = domain.DetectionConfirmed
	detection.IsAutoConfirmed = auto
	detection.MeasurementID = m.ID
	if err := uc.sessions.UpdateDetection(ctx, detection); err != nil {
		return fmt.Errorf("update detection: %w", err)
	}

	session.ConfirmedDetections++
	return nil
}

// materialize builds the measurement a confirmed detection instantiates:
// a count point at the detection center for count conditions, the detection
// bounding box as a polygon otherwise.
func (uc *ConfirmDetectionsUseCase) materialize(
	session *domain.AutoCountSession,
	detection *domain.Detection,
	condition *domain.Condition,
) *domain.Measurement {
	now := time.Now().UTC()
	m := &domain.Measurement{
		ID:            uuid.NewString(),
		ConditionID:   session.ConditionID,
		PageID:        session.PageID,
		Status:        domain.MeasurementCreated,
		IsAIGenerated: true,
		AIConfidence:  detection.Confidence,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	if condition.MeasurementType == domain.MeasurementTypeCount {
		m.Geometry = geometry.NewPoint(geometry.Point{X: detection.CenterX, Y: detection.CenterY})
		m.Quantity = 1
		m.Unit = "EA"
		return m
	}

	m.Geometry = detection.BBox.ToPolygon()
	m.Quantity = m.Geometry.PixelQuantity()
	m.Unit = pixelUnit(m.Geometry.Kind)
	m.ApplyPixelQuantity(m.Quantity)
	return m
}

func (uc *ConfirmDetectionsUseCase) checkCounters(session *domain.AutoCountSession) error {
	if session.ConfirmedDetections+session.RejectedDetections > session.TotalDetections {
		return domain.WrapError(domain.ErrValidation, "confirm detections",
			errors.New("confirmed+rejected exceeds total detections"))
	}
	return nil
}
