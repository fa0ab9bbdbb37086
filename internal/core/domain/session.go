package domain

import (
	"time"

	"github.com/planscale/takeoff-engine/internal/core/geometry"
)

type SessionStatus string

const (
	SessionPending    SessionStatus = "pending"
	SessionProcessing SessionStatus = "processing"
	SessionCompleted  SessionStatus = "completed"
	SessionFailed     SessionStatus = "failed"
)

type DetectionMethod string

const (
	DetectionMethodTemplate DetectionMethod = "template"
	DetectionMethodLLM      DetectionMethod = "llm"
	DetectionMethodHybrid   DetectionMethod = "hybrid"
)

type DetectionSource string

const (
	DetectionSourceTemplate DetectionSource = "template"
	DetectionSourceLLM      DetectionSource = "llm"
)

type DetectionStatus string

const (
	DetectionPending   DetectionStatus = "pending"
	DetectionConfirmed DetectionStatus = "confirmed"
	DetectionRejected  DetectionStatus = "rejected"
)

// AutoCountSession drives one template/LLM element-counting run over a page.
// Zero detections is a valid completion, not a failure.
type AutoCountSession struct {
	ID                  string          `json:"id"`
	PageID              string          `json:"page_id"`
	ConditionID         string          `json:"condition_id"`
	TemplateBBox        geometry.Rect   `json:"template_bbox"`
	TemplateImageKey    string          `json:"template_image_key,omitempty"`
	ConfidenceThreshold float64         `json:"confidence_threshold"`
	ScaleTolerance      float64         `json:"scale_tolerance"`
	RotationTolerance   float64         `json:"rotation_tolerance"`
	DetectionMethod     DetectionMethod `json:"detection_method"`
	Status              SessionStatus   `json:"status"`
	TotalDetections     int             `json:"total_detections"`
	ConfirmedDetections int             `json:"confirmed_detections"`
	RejectedDetections  int             `json:"rejected_detections"`
	TemplateMatchCount  int             `json:"template_match_count"`
	LLMMatchCount       int             `json:"llm_match_count"`
	ErrorMessage        string          `json:"error_message,omitempty"`
	ProcessingTimeMs    int64           `json:"processing_time_ms"`
	CreatedAt           time.Time       `json:"created_at"`
	UpdatedAt           time.Time       `json:"updated_at"`
}

// Detection is one candidate match produced by a session, prior to review.
// Confirmation instantiates a Measurement and links it back via MeasurementID.
type Detection struct {
	ID              string          `json:"id"`
	SessionID       string          `json:"session_id"`
	MeasurementID   string          `json:"measurement_id,omitempty"`
	BBox            geometry.Rect   `json:"bbox"`
	CenterX         float64         `json:"center_x"`
	CenterY         float64         `json:"center_y"`
	Confidence      float64         `json:"confidence"`
	DetectionSource DetectionSource `json:"detection_source"`
	Status          DetectionStatus `json:"status"`
	IsAutoConfirmed bool            `json:"is_auto_confirmed"`
	CreatedAt       time.Time       `json:"created_at"`
}
