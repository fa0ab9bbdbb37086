package domain

import (
	"time"

	"github.com/planscale/takeoff-engine/internal/core/geometry"
)

type MeasurementStatus string

const (
	MeasurementCreated      MeasurementStatus = "created"
	MeasurementApproved     MeasurementStatus = "approved"
	MeasurementRejected     MeasurementStatus = "rejected"
	MeasurementModified     MeasurementStatus = "modified"
	MeasurementAutoAccepted MeasurementStatus = "auto_accepted"
)

// Measurement is one geometric quantity entry tied to a page and a condition.
// Reviewed measurements are soft-removed through rejection, never deleted.
type Measurement struct {
	ID              string              `json:"id"`
	ConditionID     string              `json:"condition_id"`
	PageID          string              `json:"page_id"`
	Geometry        geometry.Geometry   `json:"geometry"`
	Quantity        float64             `json:"quantity"`
	Unit            string              `json:"unit"`
	PixelLength     float64             `json:"pixel_length,omitempty"`
	PixelArea       float64             `json:"pixel_area,omitempty"`
	Status          MeasurementStatus   `json:"status"`
	IsAIGenerated   bool                `json:"is_ai_generated"`
	AIConfidence    float64             `json:"ai_confidence,omitempty"`
	IsModified      bool                `json:"is_modified"`
	IsVerified      bool                `json:"is_verified"`
	IsRejected      bool                `json:"is_rejected"`
	RejectionReason string              `json:"rejection_reason,omitempty"`
	Notes           string              `json:"notes,omitempty"`
	CreatedAt       time.Time           `json:"created_at"`
	UpdatedAt       time.Time           `json:"updated_at"`
}

// ApplyPixelQuantity stores the raw pixel quantity into the field matching the
// geometry's dimensionality.
func (m *Measurement) ApplyPixelQuantity(pixelQuantity float64) {
	switch m.Geometry.Kind {
	case geometry.KindPolygon:
		m.PixelArea = pixelQuantity
		m.PixelLength = 0
	case geometry.KindLine, geometry.KindPolyline:
		m.PixelLength = pixelQuantity
		m.PixelArea = 0
	default:
		m.PixelLength = 0
		m.PixelArea = 0
	}
}
