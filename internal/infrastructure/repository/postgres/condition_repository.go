package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/planscale/takeoff-engine/internal/core/domain"
)

type ConditionRepository struct {
	db *sql.DB
}

func NewConditionRepository(db *sql.DB) *ConditionRepository {
	return &ConditionRepository{db: db}
}

func (r *ConditionRepository) Create(ctx context.Context, c *domain.Condition) error {
	_, err := r.db.ExecContext(ctx, `
INSERT INTO conditions (id, project_id, name, measurement_type, unit, depth_inches, created_at)
VALUES ($1,$2,$3,$4,$5,$6,$7)
`, c.ID, c.ProjectID, c.Name, string(c.MeasurementType), c.Unit, c.DepthInches, c.CreatedAt)
	if err != nil {
		return fmt.Errorf("create condition: %w", err)
	}
	return nil
}

func (r *ConditionRepository) GetByID(ctx context.Context, id string) (*domain.Condition, error) {
	row := r.db.QueryRowContext(ctx, `
SELECT id, project_id, name, measurement_type, unit, depth_inches, created_at
FROM conditions
WHERE id = $1
`, id)

	var c domain.Condition
	var measurementType string
	err := row.Scan(
		&c.ID,
		&c.ProjectID,
		&c.Name,
		&measurementType,
		&c.Unit,
		&c.DepthInches,
		&c.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.WrapError(domain.ErrNotFound, "get condition", fmt.Errorf("id=%s", id))
		}
		return nil, fmt.Errorf("get condition by id: %w", err)
	}
	c.MeasurementType = domain.MeasurementType(measurementType)
	return &c, nil
}
