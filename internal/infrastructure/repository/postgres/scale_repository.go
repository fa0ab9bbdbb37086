package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/planscale/takeoff-engine/internal/core/domain"
)

type ScaleRepository struct {
	db *sql.DB
}

func NewScaleRepository(db *sql.DB) *ScaleRepository {
	return &ScaleRepository{db: db}
}

func (r *ScaleRepository) Create(ctx context.Context, spec *domain.ScaleSpec) error {
	_, err := r.db.ExecContext(ctx, `
INSERT INTO scale_specs (id, page_id, raw_text, ratio, unit, detection_method, not_to_scale, created_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
`, spec.ID, spec.PageID, spec.RawText, spec.Ratio, string(spec.Unit), string(spec.DetectionMethod), spec.NotToScale, spec.CreatedAt)
	if err != nil {
		return fmt.Errorf("create scale spec: %w", err)
	}
	return nil
}

func (r *ScaleRepository) GetByID(ctx context.Context, id string) (*domain.ScaleSpec, error) {
	row := r.db.QueryRowContext(ctx, `
SELECT id, page_id, raw_text, ratio, unit, detection_method, not_to_scale, created_at
FROM scale_specs
WHERE id = $1
`, id)

	var spec domain.ScaleSpec
	var unit, method string
	err := row.Scan(
		&spec.ID,
		&spec.PageID,
		&spec.RawText,
		&spec.Ratio,
		&unit,
		&method,
		&spec.NotToScale,
		&spec.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.WrapError(domain.ErrNotFound, "get scale spec", fmt.Errorf("id=%s", id))
		}
		return nil, fmt.Errorf("get scale spec by id: %w", err)
	}
	spec.Unit = domain.ScaleUnit(unit)
	spec.DetectionMethod = domain.ScaleDetectionMethod(method)
	return &spec, nil
}
