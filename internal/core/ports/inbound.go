package ports

import (
	"context"

	"github.com/planscale/takeoff-engine/internal/core/domain"
	"github.com/planscale/takeoff-engine/internal/core/geometry"
)

// MeasurementAdjuster is the inbound contract for geometry adjustments.
type MeasurementAdjuster interface {
	Adjust(ctx context.Context, req AdjustRequest) (*AdjustResponse, error)
}

// AdjustRequest carries one adjustment action against a measurement.
type AdjustRequest struct {
	MeasurementID string
	Action        string
	Actor         string
	ActorType     domain.ActorType

	Direction Direction
	Distance  float64
	GridSize  float64
	Target    *geometry.Point
	Side      int
	Other     string
}

// Direction aliases the geometry nudge direction for request payloads.
type Direction = geometry.Direction

// AdjustResponse returns the updated measurement and, for split, the created
// sibling.
type AdjustResponse struct {
	Measurement *domain.Measurement `json:"measurement"`
	Sibling     *domain.Measurement `json:"sibling,omitempty"`
}

// SessionRunner is the inbound contract for asynchronous detection runs.
type SessionRunner interface {
	RunByID(ctx context.Context, sessionID string) error
}

// HistoryReader serves the authoritative audit ordering of a measurement's
// revision graph.
type HistoryReader interface {
	History(ctx context.Context, measurementID string) ([]domain.RevisionNode, error)
}
