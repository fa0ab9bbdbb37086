package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/planscale/takeoff-engine/internal/core/domain"
)

type PageRepository struct {
	db *sql.DB
}

func NewPageRepository(db *sql.DB) *PageRepository {
	return &PageRepository{db: db}
}

func (r *PageRepository) Create(ctx context.Context, page *domain.Page) error {
	_, err := r.db.ExecContext(ctx, `
INSERT INTO pages (id, project_id, sheet_number, image_key, width_px, height_px, render_dpi, scale_spec_id, created_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
`, page.ID, page.ProjectID, page.SheetNumber, page.ImageKey, page.WidthPx, page.HeightPx, page.RenderDPI, nullIfEmpty(page.ScaleSpecID), page.CreatedAt)
	if err != nil {
		return fmt.Errorf("create page: %w", err)
	}
	return nil
}

func (r *PageRepository) GetByID(ctx context.Context, id string) (*domain.Page, error) {
	row := r.db.QueryRowContext(ctx, `
SELECT id, project_id, sheet_number, image_key, width_px, height_px, render_dpi, scale_spec_id, created_at
FROM pages
WHERE id = $1
`, id)

	var page domain.Page
	var scaleSpecID sql.NullString
	err := row.Scan(
		&page.ID,
		&page.ProjectID,
		&page.SheetNumber,
		&page.ImageKey,
		&page.WidthPx,
		&page.HeightPx,
		&page.RenderDPI,
		&scaleSpecID,
		&page.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.WrapError(domain.ErrNotFound, "get page", fmt.Errorf("id=%s", id))
		}
		return nil, fmt.Errorf("get page by id: %w", err)
	}
	page.ScaleSpecID = scaleSpecID.String
	return &page, nil
}

func (r *PageRepository) SetScaleSpec(ctx context.Context, pageID, scaleSpecID string) error {
	result, err := r.db.ExecContext(ctx, `
UPDATE pages
SET scale_spec_id = $2
WHERE id = $1
`, pageID, scaleSpecID)
	if err != nil {
		return fmt.Errorf("set page scale spec: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("set page scale spec rows affected: %w", err)
	}
	if rows == 0 {
		return domain.WrapError(domain.ErrNotFound, "set page scale spec", fmt.Errorf("id=%s", pageID))
	}
	return nil
}
