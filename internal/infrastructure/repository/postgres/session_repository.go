package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/planscale/takeoff-engine/internal/core/domain"
	"github.com/planscale/takeoff-engine/internal/core/geometry"
)

type SessionRepository struct {
	db *sql.DB
}

func NewSessionRepository(db *sql.DB) *SessionRepository {
	return &SessionRepository{db: db}
}

func (r *SessionRepository) Create(ctx context.Context, s *domain.AutoCountSession) error {
	bbox, err := marshalJSONB(s.TemplateBBox)
	if err != nil {
		return fmt.Errorf("create session: %w", err)
	}
	_, err = r.db.ExecContext(ctx, `
INSERT INTO auto_count_sessions (id, page_id, condition_id, template_bbox, template_image_key,
	confidence_threshold, scale_tolerance, rotation_tolerance, detection_method, status,
	total_detections, confirmed_detections, rejected_detections,
	template_match_count, llm_match_count, error_message, processing_time_ms,
	created_at, updated_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19)
`, s.ID, s.PageID, s.ConditionID, bbox, s.TemplateImageKey,
		s.ConfidenceThreshold, s.ScaleTolerance, s.RotationTolerance, string(s.DetectionMethod), string(s.Status),
		s.TotalDetections, s.ConfirmedDetections, s.RejectedDetections,
		s.TemplateMatchCount, s.LLMMatchCount, s.ErrorMessage, s.ProcessingTimeMs,
		s.CreatedAt, s.UpdatedAt)
	if err != nil {
		return fmt.Errorf("create session: %w", err)
	}
	return nil
}

func (r *SessionRepository) GetByID(ctx context.Context, id string) (*domain.AutoCountSession, error) {
	row := r.db.QueryRowContext(ctx, `
SELECT id, page_id, condition_id, template_bbox, template_image_key,
	confidence_threshold, scale_tolerance, rotation_tolerance, detection_method, status,
	total_detections, confirmed_detections, rejected_detections,
	template_match_count, llm_match_count, error_message, processing_time_ms,
	created_at, updated_at
FROM auto_count_sessions
WHERE id = $1
`, id)

	s, err := scanSession(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.WrapError(domain.ErrNotFound, "get session", fmt.Errorf("id=%s", id))
		}
		return nil, fmt.Errorf("get session by id: %w", err)
	}
	return &s, nil
}

func (r *SessionRepository) Update(ctx context.Context, s *domain.AutoCountSession) error {
	result, err := r.db.ExecContext(ctx, `
UPDATE auto_count_sessions
SET status = $2, total_detections = $3, confirmed_detections = $4, rejected_detections = $5,
	template_match_count = $6, llm_match_count = $7, error_message = $8,
	processing_time_ms = $9, updated_at = $10
WHERE id = $1
`, s.ID, string(s.Status), s.TotalDetections, s.ConfirmedDetections, s.RejectedDetections,
		s.TemplateMatchCount, s.LLMMatchCount, s.ErrorMessage, s.ProcessingTimeMs, s.UpdatedAt)
	if err != nil {
		return fmt.Errorf("update session: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("update session rows affected: %w", err)
	}
	if rows == 0 {
		return domain.WrapError(domain.ErrNotFound, "update session", fmt.Errorf("id=%s", s.ID))
	}
	return nil
}

func (r *SessionRepository) CreateDetection(ctx context.Context, d *domain.Detection) error {
	bbox, err := marshalJSONB(d.BBox)
	if err != nil {
		return fmt.Errorf("create detection: %w", err)
	}
	_, err = r.db.ExecContext(ctx, `
INSERT INTO detections (id, session_id, measurement_id, bbox, center_x, center_y,
	confidence, detection_source, status, is_auto_confirmed, created_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
`, d.ID, d.SessionID, nullIfEmpty(d.MeasurementID), bbox, d.CenterX, d.CenterY,
		d.Confidence, string(d.DetectionSource), string(d.Status), d.IsAutoConfirmed, d.CreatedAt)
	if err != nil {
		return fmt.Errorf("create detection: %w", err)
	}
	return nil
}

func (r *SessionRepository) GetDetection(ctx context.Context, id string) (*domain.Detection, error) {
	row := r.db.QueryRowContext(ctx, `
SELECT id, session_id, measurement_id, bbox, center_x, center_y,
	confidence, detection_source, status, is_auto_confirmed, created_at
FROM detections
WHERE id = $1
`, id)

	d, err := scanDetection(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.WrapError(domain.ErrNotFound, "get detection", fmt.Errorf("id=%s", id))
		}
		return nil, fmt.Errorf("get detection by id: %w", err)
	}
	return &d, nil
}

func (r *SessionRepository) UpdateDetection(ctx context.Context, d *domain.Detection) error {
	result, err := r.db.ExecContext(ctx, `
UPDATE detections
SET measurement_id = $2, status = $3, is_auto_confirmed = $4
WHERE id = $1
`, d.ID, nullIfEmpty(d.MeasurementID), string(d.Status), d.IsAutoConfirmed)
	if err != nil {
		return fmt.Errorf("update detection: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("update detection rows affected: %w", err)
	}
	if rows == 0 {
		return domain.WrapError(domain.ErrNotFound, "update detection", fmt.Errorf("id=%s", d.ID))
	}
	return nil
}

func (r *SessionRepository) ListDetections(ctx context.Context, sessionID string) ([]domain.Detection, error) {
	rows, err := r.db.QueryContext(ctx, `
SELECT id, session_id, measurement_id, bbox, center_x, center_y,
	confidence, detection_source, status, is_auto_confirmed, created_at
FROM detections
WHERE session_id = $1
ORDER BY confidence DESC, id ASC
`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("list detections: %w", err)
	}
	defer rows.Close()

	out := make([]domain.Detection, 0)
	for rows.Next() {
		d, err := scanDetection(rows)
		if err != nil {
			return nil, fmt.Errorf("scan detection: %w", err)
		}
		out = append(out, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate detections: %w", err)
	}
	return out, nil
}

func nullIfEmpty(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func scanSession(row rowScanner) (domain.AutoCountSession, error) {
	var s domain.AutoCountSession
	var method, status string
	var bbox []byte
	err := row.Scan(
		&s.ID,
		&s.PageID,
		&s.ConditionID,
		&bbox,
		&s.TemplateImageKey,
		&s.ConfidenceThreshold,
		&s.ScaleTolerance,
		&s.RotationTolerance,
		&method,
		&status,
		&s.TotalDetections,
		&s.ConfirmedDetections,
		&s.RejectedDetections,
		&s.TemplateMatchCount,
		&s.LLMMatchCount,
		&s.ErrorMessage,
		&s.ProcessingTimeMs,
		&s.CreatedAt,
		&s.UpdatedAt,
	)
	if err != nil {
		return domain.AutoCountSession{}, err
	}
	s.DetectionMethod = domain.DetectionMethod(method)
	s.Status = domain.SessionStatus(status)
	var r geometry.Rect
	if err := unmarshalJSONB(bbox, &r); err != nil {
		return domain.AutoCountSession{}, err
	}
	s.TemplateBBox = r
	return s, nil
}

func scanDetection(row rowScanner) (domain.Detection, error) {
	var d domain.Detection
	var source, status string
	var measurementID sql.NullString
	var bbox []byte
	err := row.Scan(
		&d.ID,
		&d.SessionID,
		&measurementID,
		&bbox,
		&d.CenterX,
		&d.CenterY,
		&d.Confidence,
		&source,
		&status,
		&d.IsAutoConfirmed,
		&d.CreatedAt,
	)
	if err != nil {
		return domain.Detection{}, err
	}
	d.MeasurementID = measurementID.String
	d.DetectionSource = domain.DetectionSource(source)
	d.Status = domain.DetectionStatus(status)
	var r geometry.Rect
	if err := unmarshalJSONB(bbox, &r); err != nil {
		return domain.Detection{}, err
	}
	d.BBox = r
	return d, nil
}
