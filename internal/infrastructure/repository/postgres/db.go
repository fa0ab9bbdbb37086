package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
)

func OpenDB(dsn string) (*sql.DB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("sql open: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(30 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("db ping: %w", err)
	}
	return db, nil
}

func EnsureSchema(ctx context.Context, db *sql.DB) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin schema tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	// Serialize bootstrap DDL across api/worker startups.
	if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock($1)`, int64(2026053001)); err != nil {
		return fmt.Errorf("acquire schema lock: %w", err)
	}

	const query = `
CREATE TABLE IF NOT EXISTS conditions (
	id TEXT PRIMARY KEY,
	project_id TEXT NOT NULL,
	name TEXT NOT NULL,
	measurement_type TEXT NOT NULL,
	unit TEXT NOT NULL,
	depth_inches DOUBLE PRECISION NOT NULL DEFAULT 0,
	created_at TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS pages (
	id TEXT PRIMARY KEY,
	project_id TEXT NOT NULL,
	sheet_number TEXT NOT NULL,
	image_key TEXT NOT NULL,
	width_px INTEGER NOT NULL,
	height_px INTEGER NOT NULL,
	render_dpi DOUBLE PRECISION NOT NULL DEFAULT 150,
	scale_spec_id TEXT,
	created_at TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS scale_specs (
	id TEXT PRIMARY KEY,
	page_id TEXT NOT NULL,
	raw_text TEXT,
	ratio DOUBLE PRECISION NOT NULL,
	unit TEXT NOT NULL,
	detection_method TEXT NOT NULL,
	not_to_scale BOOLEAN NOT NULL DEFAULT FALSE,
	created_at TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS measurements (
	id TEXT PRIMARY KEY,
	condition_id TEXT NOT NULL,
	page_id TEXT NOT NULL,
	geometry JSONB NOT NULL,
	quantity DOUBLE PRECISION NOT NULL,
	unit TEXT NOT NULL,
	pixel_length DOUBLE PRECISION NOT NULL DEFAULT 0,
	pixel_area DOUBLE PRECISION NOT NULL DEFAULT 0,
	status TEXT NOT NULL,
	is_ai_generated BOOLEAN NOT NULL DEFAULT FALSE,
	ai_confidence DOUBLE PRECISION NOT NULL DEFAULT 0,
	is_modified BOOLEAN NOT NULL DEFAULT FALSE,
	is_verified BOOLEAN NOT NULL DEFAULT FALSE,
	is_rejected BOOLEAN NOT NULL DEFAULT FALSE,
	rejection_reason TEXT,
	notes TEXT,
	created_at TIMESTAMPTZ NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_measurements_condition ON measurements(condition_id);
CREATE INDEX IF NOT EXISTS idx_measurements_page ON measurements(page_id);

CREATE TABLE IF NOT EXISTS revision_nodes (
	id TEXT PRIMARY KEY,
	measurement_id TEXT NOT NULL,
	parent_ids JSONB NOT NULL DEFAULT '[]'::jsonb,
	action TEXT NOT NULL,
	actor TEXT,
	actor_type TEXT NOT NULL,
	previous_status TEXT,
	new_status TEXT,
	previous_geometry JSONB,
	new_geometry JSONB,
	previous_quantity DOUBLE PRECISION NOT NULL DEFAULT 0,
	new_quantity DOUBLE PRECISION NOT NULL DEFAULT 0,
	created_at TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_revision_nodes_measurement ON revision_nodes(measurement_id);

CREATE TABLE IF NOT EXISTS auto_count_sessions (
	id TEXT PRIMARY KEY,
	page_id TEXT NOT NULL,
	condition_id TEXT NOT NULL,
	template_bbox JSONB NOT NULL,
	template_image_key TEXT,
	confidence_threshold DOUBLE PRECISION NOT NULL,
	scale_tolerance DOUBLE PRECISION NOT NULL DEFAULT 0,
	rotation_tolerance DOUBLE PRECISION NOT NULL DEFAULT 0,
	detection_method TEXT NOT NULL,
	status TEXT NOT NULL,
	total_detections INTEGER NOT NULL DEFAULT 0,
	confirmed_detections INTEGER NOT NULL DEFAULT 0,
	rejected_detections INTEGER NOT NULL DEFAULT 0,
	template_match_count INTEGER NOT NULL DEFAULT 0,
	llm_match_count INTEGER NOT NULL DEFAULT 0,
	error_message TEXT,
	processing_time_ms BIGINT NOT NULL DEFAULT 0,
	created_at TIMESTAMPTZ NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS detections (
	id TEXT PRIMARY KEY,
	session_id TEXT NOT NULL,
	measurement_id TEXT,
	bbox JSONB NOT NULL,
	center_x DOUBLE PRECISION NOT NULL,
	center_y DOUBLE PRECISION NOT NULL,
	confidence DOUBLE PRECISION NOT NULL,
	detection_source TEXT NOT NULL,
	status TEXT NOT NULL,
	is_auto_confirmed BOOLEAN NOT NULL DEFAULT FALSE,
	created_at TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_detections_session ON detections(session_id);
`
	if _, err := tx.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("execute schema ddl: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit schema tx: %w", err)
	}
	return nil
}
