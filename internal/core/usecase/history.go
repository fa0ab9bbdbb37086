package usecase

import (
	"context"
	"fmt"

	"github.com/planscale/takeoff-engine/internal/core/domain"
	"github.com/planscale/takeoff-engine/internal/core/ports"
	"github.com/planscale/takeoff-engine/internal/core/revision"
)

// HistoryUseCase serves the audit view of a measurement's revision graph in
// topological order.
type HistoryUseCase struct {
	measurements ports.MeasurementRepository
	revisions    *revision.Engine
}

func NewHistoryUseCase(measurements ports.MeasurementRepository, revisions *revision.Engine) *HistoryUseCase {
	return &HistoryUseCase{measurements: measurements, revisions: revisions}
}

func (uc *HistoryUseCase) History(ctx context.Context, measurementID string) ([]domain.RevisionNode, error) {
	if _, err := uc.measurements.GetByID(ctx, measurementID); err != nil {
		return nil, fmt.Errorf("fetch measurement: %w", err)
	}
	nodes, err := uc.revisions.TopologicalOrder(ctx, measurementID)
	if err != nil {
		return nil, err
	}
	return nodes, nil
}
