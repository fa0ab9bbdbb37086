package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/planscale/takeoff-engine/internal/core/domain"
	"github.com/planscale/takeoff-engine/internal/core/geometry"
)

type RevisionRepository struct {
	db *sql.DB
}

func NewRevisionRepository(db *sql.DB) *RevisionRepository {
	return &RevisionRepository{db: db}
}

func (r *RevisionRepository) Create(ctx context.Context, node *domain.RevisionNode) error {
	parents, err := marshalJSONB(node.ParentIDs)
	if err != nil {
		return fmt.Errorf("create revision node: %w", err)
	}
	prevGeom, err := marshalOptionalGeometry(node.PreviousGeom)
	if err != nil {
		return fmt.Errorf("create revision node: %w", err)
	}
	newGeom, err := marshalOptionalGeometry(node.NewGeom)
	if err != nil {
		return fmt.Errorf("create revision node: %w", err)
	}

	_, err = r.db.ExecContext(ctx, `
INSERT INTO revision_nodes (id, measurement_id, parent_ids, action, actor, actor_type,
	previous_status, new_status, previous_geometry, new_geometry,
	previous_quantity, new_quantity, created_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)
`, node.ID, node.MeasurementID, parents, string(node.Action), node.Actor, string(node.ActorType),
		string(node.PreviousStatus), string(node.NewStatus), prevGeom, newGeom,
		node.PreviousQty, node.NewQty, node.CreatedAt)
	if err != nil {
		return fmt.Errorf("create revision node: %w", err)
	}
	return nil
}

func (r *RevisionRepository) ListByMeasurement(ctx context.Context, measurementID string) ([]domain.RevisionNode, error) {
	rows, err := r.db.QueryContext(ctx, `
SELECT id, measurement_id, parent_ids, action, actor, actor_type,
	previous_status, new_status, previous_geometry, new_geometry,
	previous_quantity, new_quantity, created_at
FROM revision_nodes
WHERE measurement_id = $1
ORDER BY created_at ASC, id ASC
`, measurementID)
	if err != nil {
		return nil, fmt.Errorf("list revision nodes: %w", err)
	}
	defer rows.Close()

	out := make([]domain.RevisionNode, 0)
	for rows.Next() {
		node, err := scanRevisionNode(rows)
		if err != nil {
			return nil, fmt.Errorf("scan revision node: %w", err)
		}
		out = append(out, node)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate revision nodes: %w", err)
	}
	return out, nil
}

func marshalOptionalGeometry(g *geometry.Geometry) ([]byte, error) {
	if g == nil {
		return nil, nil
	}
	return marshalJSONB(g)
}

func scanRevisionNode(row rowScanner) (domain.RevisionNode, error) {
	var node domain.RevisionNode
	var action, actorType string
	var prevStatus, newStatus sql.NullString
	var parents, prevGeom, newGeom []byte
	err := row.Scan(
		&node.ID,
		&node.MeasurementID,
		&parents,
		&action,
		&node.Actor,
		&actorType,
		&prevStatus,
		&newStatus,
		&prevGeom,
		&newGeom,
		&node.PreviousQty,
		&node.NewQty,
		&node.CreatedAt,
	)
	if err != nil {
		return domain.RevisionNode{}, err
	}
	node.Action = domain.RevisionAction(action)
	node.ActorType = domain.ActorType(actorType)
	node.PreviousStatus = domain.MeasurementStatus(prevStatus.String)
	node.NewStatus = domain.MeasurementStatus(newStatus.String)

	node.ParentIDs = make([]string, 0)
	if err := unmarshalJSONB(parents, &node.ParentIDs); err != nil {
		return domain.RevisionNode{}, err
	}
	if len(prevGeom) > 0 {
		var g geometry.Geometry
		if err := unmarshalJSONB(prevGeom, &g); err != nil {
			return domain.RevisionNode{}, err
		}
		node.PreviousGeom = &g
	}
	if len(newGeom) > 0 {
		var g geometry.Geometry
		if err := unmarshalJSONB(newGeom, &g); err != nil {
			return domain.RevisionNode{}, err
		}
		node.NewGeom = &g
	}
	return node, nil
}
