package ports

import (
	"context"
	"image"
	"io"

	"github.com/planscale/takeoff-engine/internal/core/domain"
	"github.com/planscale/takeoff-engine/internal/core/geometry"
)

// MeasurementRepository persists and reads measurement state.
type MeasurementRepository interface {
	Create(ctx context.Context, m *domain.Measurement) error
	GetByID(ctx context.Context, id string) (*domain.Measurement, error)
	Update(ctx context.Context, m *domain.Measurement) error
	ListByCondition(ctx context.Context, conditionID string) ([]domain.Measurement, error)
}

// RevisionRepository stores the append-only history nodes of measurements.
type RevisionRepository interface {
	Create(ctx context.Context, node *domain.RevisionNode) error
	ListByMeasurement(ctx context.Context, measurementID string) ([]domain.RevisionNode, error)
}

// SessionRepository persists auto-count sessions and their detections.
type SessionRepository interface {
	Create(ctx context.Context, s *domain.AutoCountSession) error
	GetByID(ctx context.Context, id string) (*domain.AutoCountSession, error)
	Update(ctx context.Context, s *domain.AutoCountSession) error
	CreateDetection(ctx context.Context, d *domain.Detection) error
	GetDetection(ctx context.Context, id string) (*domain.Detection, error)
	UpdateDetection(ctx context.Context, d *domain.Detection) error
	ListDetections(ctx context.Context, sessionID string) ([]domain.Detection, error)
}

// ConditionRepository reads takeoff line items.
type ConditionRepository interface {
	Create(ctx context.Context, c *domain.Condition) error
	GetByID(ctx context.Context, id string) (*domain.Condition, error)
}

// ScaleRepository stores immutable calibration records.
type ScaleRepository interface {
	Create(ctx context.Context, spec *domain.ScaleSpec) error
	GetByID(ctx context.Context, id string) (*domain.ScaleSpec, error)
}

// PageRepository reads drawing pages and binds their active calibration.
type PageRepository interface {
	Create(ctx context.Context, page *domain.Page) error
	GetByID(ctx context.Context, id string) (*domain.Page, error)
	SetScaleSpec(ctx context.Context, pageID, scaleSpecID string) error
}

// ObjectStorage stores page raster images by key.
type ObjectStorage interface {
	Save(ctx context.Context, key string, data io.Reader) error
	Open(ctx context.Context, key string) (io.ReadCloser, error)
}

// PageImageProvider decodes the raster image for a page.
type PageImageProvider interface {
	GetPageImage(ctx context.Context, page *domain.Page) (image.Image, error)
}

// DetectionCandidate is a raw match prior to Detection materialization.
type DetectionCandidate struct {
	BBox       geometry.Rect
	Confidence float64
}

// DetectionTolerances bounds the template sweep.
type DetectionTolerances struct {
	Scale    float64
	Rotation float64
}

// TemplateMatcher finds template occurrences in a page image within
// scale/rotation tolerances.
type TemplateMatcher interface {
	Match(ctx context.Context, page image.Image, templateRegion geometry.Rect, tol DetectionTolerances) ([]DetectionCandidate, error)
}

// ElementDetector queries a vision model for element bounding boxes.
type ElementDetector interface {
	DetectElements(ctx context.Context, page image.Image, templateRegion geometry.Rect, tol DetectionTolerances) ([]DetectionCandidate, error)
}

// ScaleTextReader extracts scale-annotation text from a page region via OCR.
type ScaleTextReader interface {
	ReadText(ctx context.Context, region image.Image) (string, error)
}

// ProgressNotifier receives progress updates during long-running detection
// runs. Implementations must tolerate being called from worker goroutines.
type ProgressNotifier interface {
	Progress(ctx context.Context, sessionID string, percent int, step string)
}

// DetectionQueue transports detection-run requests to workers.
type DetectionQueue interface {
	PublishRunRequested(ctx context.Context, sessionID string) error
	SubscribeRunRequested(ctx context.Context, handler func(context.Context, string) error) error
}
