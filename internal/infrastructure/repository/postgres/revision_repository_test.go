package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/planscale/takeoff-engine/internal/core/domain"
)

func TestRevisionRepositoryListDecodesParents(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New() error = %v", err)
	}
	defer db.Close()

	repo := NewRevisionRepository(db)
	rows := sqlmock.NewRows([]string{
		"id", "measurement_id", "parent_ids", "action", "actor", "actor_type",
		"previous_status", "new_status", "previous_geometry", "new_geometry",
		"previous_quantity", "new_quantity", "created_at",
	}).
		AddRow("r-1", "m-1", []byte(`[]`), string(domain.RevisionActionCreated), "alice", string(domain.ActorTypeUser),
			"", string(domain.MeasurementCreated), nil, nil, 0.0, 10.0, time.Now()).
		AddRow("r-2", "m-1", []byte(`["r-1"]`), string(domain.RevisionActionModified), "alice", string(domain.ActorTypeUser),
			string(domain.MeasurementCreated), string(domain.MeasurementModified), nil,
			[]byte(`{"kind":"line","points":[{"x":0,"y":0},{"x":1,"y":0}]}`), 10.0, 12.0, time.Now())

	mock.ExpectQuery("FROM revision_nodes").
		WithArgs("m-1").
		WillReturnRows(rows)

	nodes, err := repo.ListByMeasurement(context.Background(), "m-1")
	if err != nil {
		t.Fatalf("ListByMeasurement() error = %v", err)
	}
	if len(nodes) != 2 {
		t.Fatalf("expected 2 nodes, got %d", len(nodes))
	}
	if len(nodes[0].ParentIDs) != 0 {
		t.Fatalf("root node should have no parents, got %v", nodes[0].ParentIDs)
	}
	if len(nodes[1].ParentIDs) != 1 || nodes[1].ParentIDs[0] != "r-1" {
		t.Fatalf("unexpected parents: %v", nodes[1].ParentIDs)
	}
	if nodes[1].NewGeom == nil || len(nodes[1].NewGeom.Points) != 2 {
		t.Fatalf("expected decoded new geometry, got %+v", nodes[1].NewGeom)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestRevisionRepositoryCreateInsertsNode(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New() error = %v", err)
	}
	defer db.Close()

	repo := NewRevisionRepository(db)
	mock.ExpectExec("INSERT INTO revision_nodes").
		WillReturnResult(sqlmock.NewResult(1, 1))

	node := &domain.RevisionNode{
		ID:            "r-1",
		MeasurementID: "m-1",
		ParentIDs:     []string{},
		Action:        domain.RevisionActionCreated,
		Actor:         "alice",
		ActorType:     domain.ActorTypeUser,
		NewStatus:     domain.MeasurementCreated,
		CreatedAt:     time.Now(),
	}
	if err := repo.Create(context.Background(), node); err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}
