package domain

import "time"

type MeasurementType string

const (
	MeasurementTypeArea   MeasurementType = "area"
	MeasurementTypeLinear MeasurementType = "linear"
	MeasurementTypeVolume MeasurementType = "volume"
	MeasurementTypeCount  MeasurementType = "count"
)

// Condition is a takeoff line item (e.g. `4" concrete slab`) that owns many
// measurements.
type Condition struct {
	ID              string          `json:"id"`
	ProjectID       string          `json:"project_id"`
	Name            string          `json:"name"`
	MeasurementType MeasurementType `json:"measurement_type"`
	Unit            string          `json:"unit"`
	DepthInches     float64         `json:"depth_inches,omitempty"`
	CreatedAt       time.Time       `json:"created_at"`
}

// Page is one sheet of a drawing set. ScaleSpecID points at the calibration
// in effect; recalibrating binds a new spec id so historical revisions keep
// the factor they were converted with.
type Page struct {
	ID          string    `json:"id"`
	ProjectID   string    `json:"project_id"`
	SheetNumber string    `json:"sheet_number"`
	ImageKey    string    `json:"image_key"`
	WidthPx     int       `json:"width_px"`
	HeightPx    int       `json:"height_px"`
	RenderDPI   float64   `json:"render_dpi"`
	ScaleSpecID string    `json:"scale_spec_id,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

type ScaleUnit string

const (
	ScaleUnitFoot ScaleUnit = "foot"
	ScaleUnitInch ScaleUnit = "inch"
)

type ScaleDetectionMethod string

const (
	ScaleDetectedVisionLLM     ScaleDetectionMethod = "vision_llm"
	ScaleDetectedOCR           ScaleDetectionMethod = "ocr_predetected"
	ScaleDetectedOCRPattern    ScaleDetectionMethod = "ocr_pattern_match"
	ScaleDetectedManual        ScaleDetectionMethod = "manual_calibration"
	ScaleDetectedScaleBar      ScaleDetectionMethod = "scale_bar"
)

// ScaleSpec is an immutable calibration record for one page. Ratio is the
// architectural ratio (real inches represented by one drawing inch) or, for
// manual calibrations, pixels per foot directly; NotToScale marks `N.T.S.`
// sheets whose ratio is 0 and must never be used for conversion.
type ScaleSpec struct {
	ID              string               `json:"id"`
	PageID          string               `json:"page_id"`
	RawText         string               `json:"raw_text,omitempty"`
	Ratio           float64              `json:"ratio"`
	Unit            ScaleUnit            `json:"unit"`
	DetectionMethod ScaleDetectionMethod `json:"detection_method"`
	NotToScale      bool                 `json:"not_to_scale"`
	CreatedAt       time.Time            `json:"created_at"`
}
