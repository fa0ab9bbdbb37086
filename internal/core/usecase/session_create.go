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
)

// CreateSessionUseCase creates auto-count sessions and hands them to the
// detection queue. The run itself happens on a worker.
type CreateSessionUseCase struct {
	sessions   ports.SessionRepository
	pages      ports.PageRepository
	conditions ports.ConditionRepository
	queue      ports.DetectionQueue
}

func NewCreateSessionUseCase(
	sessions ports.SessionRepository,
	pages ports.PageRepository,
	conditions ports.ConditionRepository,
	queue ports.DetectionQueue,
) *CreateSessionUseCase {
	return &CreateSessionUseCase{
		sessions:   sessions,
		pages:      pages,
		conditions: conditions,
		queue:      queue,
	}
}

type CreateSessionRequest struct {
	PageID              string
	ConditionID         string
	TemplateBBox        geometry.Rect
	TemplateImageKey    string
	ConfidenceThreshold float64
	ScaleTolerance      float64
	RotationTolerance   float64
	DetectionMethod     domain.DetectionMethod
}

func (uc *CreateSessionUseCase) Create(ctx context.Context, req CreateSessionRequest) (*domain.AutoCountSession, error) {
	if req.TemplateBBox.Width <= 0 || req.TemplateBBox.Height <= 0 {
		return nil, domain.WrapError(domain.ErrValidation, "create session",
			errors.New("template bbox must have positive width and height"))
	}
	if req.ConfidenceThreshold < 0 || req.ConfidenceThreshold > 1 {
		return nil, domain.WrapError(domain.ErrValidation, "create session",
			fmt.Errorf("confidence threshold must be in [0,1], got %v", req.ConfidenceThreshold))
	}
	switch req.DetectionMethod {
	case domain.DetectionMethodTemplate, domain.DetectionMethodLLM, domain.DetectionMethodHybrid:
	default:
		return nil, domain.WrapError(domain.ErrValidation, "create session",
			fmt.Errorf("unknown detection method %q", req.DetectionMethod))
	}

	if _, err := uc.pages.GetByID(ctx, req.PageID); err != nil {
		return nil, fmt.Errorf("fetch page: %w", err)
	}
	if _, err := uc.conditions.GetByID(ctx, req.ConditionID); err != nil {
		return nil, fmt.Errorf("fetch condition: %w", err)
	}

	now := time.Now().UTC()
	session := &domain.AutoCountSession{
		ID:                  uuid.NewString(),
		PageID:              req.PageID,
		ConditionID:         req.ConditionID,
		TemplateBBox:        req.TemplateBBox,
		TemplateImageKey:    req.TemplateImageKey,
		ConfidenceThreshold: req.ConfidenceThreshold,
		ScaleTolerance:      req.ScaleTolerance,
		RotationTolerance:   req.RotationTolerance,
		DetectionMethod:     req.DetectionMethod,
		Status:              domain.SessionPending,
		CreatedAt:           now,
		UpdatedAt:           now,
	}
	if err := uc.sessions.Create(ctx, session); err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}
	return session, nil
}

// Enqueue requests an asynchronous detection run for a pending session.
func (uc *CreateSessionUseCase) Enqueue(ctx context.Context, sessionID string) error {
	session, err := uc.sessions.GetByID(ctx, sessionID)
	if err != nil {
		return fmt.Errorf("fetch session: %w", err)
	}
	if session.Status != domain.SessionPending {
		return domain.WrapError(domain.ErrValidation, "enqueue session",
			fmt.Errorf("session is %s, expected %s", session.Status, domain.SessionPending))
	}
	if err := uc.queue.PublishRunRequested(ctx, session.ID); err != nil {
		return fmt.Errorf("publish run request: %w", err)
	}
	return nil
}
