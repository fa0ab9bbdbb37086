package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/planscale/takeoff-engine/internal/core/domain"
	"github.com/planscale/takeoff-engine/internal/core/geometry"
)

type MeasurementRepository struct {
	db *sql.DB
}

func NewMeasurementRepository(db *sql.DB) *MeasurementRepository {
	return &MeasurementRepository{db: db}
}

func (r *MeasurementRepository) Create(ctx context.Context, m *domain.Measurement) error {
	geom, err := marshalJSONB(m.Geometry)
	if err != nil {
		return fmt.Errorf("create measurement: %w", err)
	}
	_, err = r.db.ExecContext(ctx, `
INSERT INTO measurements (id, condition_id, page_id, geometry, quantity, unit, pixel_length, pixel_area,
	status, is_ai_generated, ai_confidence, is_modified, is_verified, is_rejected,
	rejection_reason, notes, created_at, updated_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18)
`, m.ID, m.ConditionID, m.PageID, geom, m.Quantity, m.Unit, m.PixelLength, m.PixelArea,
		string(m.Status), m.IsAIGenerated, m.AIConfidence, m.IsModified, m.IsVerified, m.IsRejected,
		m.RejectionReason, m.Notes, m.CreatedAt, m.UpdatedAt)
	if err != nil {
		return fmt.Errorf("create measurement: %w", err)
	}
	return nil
}

func (r *MeasurementRepository) GetByID(ctx context.Context, id string) (*domain.Measurement, error) {
	row := r.db.QueryRowContext(ctx, `
SELECT id, condition_id, page_id, geometry, quantity, unit, pixel_length, pixel_area,
	status, is_ai_generated, ai_confidence, is_modified, is_verified, is_rejected,
	rejection_reason, notes, created_at, updated_at
FROM measurements
WHERE id = $1
`, id)

	m, err := scanMeasurement(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.WrapError(domain.ErrNotFound, "get measurement", fmt.Errorf("id=%s", id))
		}
		return nil, fmt.Errorf("get measurement by id: %w", err)
	}
	return &m, nil
}

func (r *MeasurementRepository) Update(ctx context.Context, m *domain.Measurement) error {
	geom, err := marshalJSONB(m.Geometry)
	if err != nil {
		return fmt.Errorf("update measurement: %w", err)
	}
	result, err := r.db.ExecContext(ctx, `
UPDATE measurements
SET geometry = $2, quantity = $3, unit = $4, pixel_length = $5, pixel_area = $6,
	status = $7, is_modified = $8, is_verified = $9, is_rejected = $10,
	rejection_reason = $11, notes = $12, updated_at = $13
WHERE id = $1
`, m.ID, geom, m.Quantity, m.Unit, m.PixelLength, m.PixelArea,
		string(m.Status), m.IsModified, m.IsVerified, m.IsRejected,
		m.RejectionReason, m.Notes, m.UpdatedAt)
	if err != nil {
		return fmt.Errorf("update measurement: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("update measurement rows affected: %w", err)
	}
	if rows == 0 {
		return domain.WrapError(domain.ErrNotFound, "update measurement", fmt.Errorf("id=%s", m.ID))
	}
	return nil
}

func (r *MeasurementRepository) ListByCondition(ctx context.Context, conditionID string) ([]domain.Measurement, error) {
	rows, err := r.db.QueryContext(ctx, `
SELECT id, condition_id, page_id, geometry, quantity, unit, pixel_length, pixel_area,
	status, is_ai_generated, ai_confidence, is_modified, is_verified, is_rejected,
	rejection_reason, notes, created_at, updated_at
FROM measurements
WHERE condition_id = $1
ORDER BY created_at ASC
`, conditionID)
	if err != nil {
		return nil, fmt.Errorf("list measurements: %w", err)
	}
	defer rows.Close()

	out := make([]domain.Measurement, 0)
	for rows.Next() {
		m, err := scanMeasurement(rows)
		if err != nil {
			return nil, fmt.Errorf("scan measurement: %w", err)
		}
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate measurements: %w", err)
	}
	return out, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanMeasurement(row rowScanner) (domain.Measurement, error) {
	var m domain.Measurement
	var status string
	var geom []byte
	err := row.Scan(
		&m.ID,
		&m.ConditionID,
		&m.PageID,
		&geom,
		&m.Quantity,
		&m.Unit,
		&m.PixelLength,
		&m.PixelArea,
		&status,
		&m.IsAIGenerated,
		&m.AIConfidence,
		&m.IsModified,
		&m.IsVerified,
		&m.IsRejected,
		&m.RejectionReason,
		&m.Notes,
		&m.CreatedAt,
		&m.UpdatedAt,
	)
	if err != nil {
		return domain.Measurement{}, err
	}
	m.Status = domain.MeasurementStatus(status)
	var g geometry.Geometry
	if err := unmarshalJSONB(geom, &g); err != nil {
		return domain.Measurement{}, err
	}
	m.Geometry = g
	return m, nil
}
