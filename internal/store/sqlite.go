package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/sells-group/atlas-cli/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS runs (
	id         TEXT PRIMARY KEY,
	mode       TEXT NOT NULL,
	status     TEXT NOT NULL DEFAULT 'queued',
	stages     TEXT NOT NULL DEFAULT '[]',
	error      TEXT NOT NULL DEFAULT '',
	created_at DATETIME NOT NULL DEFAULT (datetime('now')),
	updated_at DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS targets (
	id                  TEXT PRIMARY KEY,
	run_id              TEXT NOT NULL REFERENCES runs(id),
	rank                INTEGER NOT NULL,
	geometry            TEXT NOT NULL,
	area_km2            REAL NOT NULL,
	centroid_lon        REAL NOT NULL,
	centroid_lat        REAL NOT NULL,
	mean_score          REAL NOT NULL,
	max_score           REAL NOT NULL,
	distance_to_road_m  REAL,
	distance_to_river_m REAL,
	evidence            TEXT NOT NULL,
	evidence_summary    TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_runs_status ON runs(status);
CREATE INDEX IF NOT EXISTS idx_runs_mode ON runs(mode);
CREATE INDEX IF NOT EXISTS idx_targets_run_id ON targets(run_id);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) CreateRun(ctx context.Context, id string, mode model.Mode) (*model.Run, error) {
	if id == "" {
		id = uuid.New().String()
	}
	now := time.Now().UTC()

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO runs (id, mode, status, created_at, updated_at) VALUES (?, ?, ?, ?, ?)`,
		id, string(mode), string(model.RunStatusQueued), now, now,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: insert run")
	}

	return &model.Run{
		ID:        id,
		Mode:      mode,
		Status:    model.RunStatusQueued,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

func (s *SQLiteStore) UpdateRunStatus(ctx context.Context, runID string, status model.RunStatus) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE runs SET status = ?, updated_at = ? WHERE id = ?`,
		string(status), time.Now().UTC(), runID,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: update run status %s", runID)
	}
	return checkRowsAffected(res, "run", runID)
}

func (s *SQLiteStore) AppendRunStage(ctx context.Context, runID string, stage string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return eris.Wrap(err, "sqlite: begin append stage")
	}
	defer tx.Rollback() //nolint:errcheck

	var stagesJSON string
	err = tx.QueryRowContext(ctx, `SELECT stages FROM runs WHERE id = ?`, runID).Scan(&stagesJSON)
	if err == sql.ErrNoRows {
		return eris.Errorf("run not found: %s", runID)
	}
	if err != nil {
		return eris.Wrapf(err, "sqlite: read stages %s", runID)
	}

	stages, err := decodeStages(stagesJSON)
	if err != nil {
		return err
	}
	stages = append(stages, stage)
	updated, err := json.Marshal(stages)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal stages")
	}

	_, err = tx.ExecContext(ctx,
		`UPDATE runs SET stages = ?, updated_at = ? WHERE id = ?`,
		string(updated), time.Now().UTC(), runID,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: update stages %s", runID)
	}
	return eris.Wrap(tx.Commit(), "sqlite: commit append stage")
}

func (s *SQLiteStore) CompleteRun(ctx context.Context, runID string) error {
	return s.UpdateRunStatus(ctx, runID, model.RunStatusCompleted)
}

func (s *SQLiteStore) FailRun(ctx context.Context, runID string, cause error) error {
	msg := ""
	if cause != nil {
		msg = cause.Error()
	}
	res, err := s.db.ExecContext(ctx,
		`UPDATE runs SET status = ?, error = ?, updated_at = ? WHERE id = ?`,
		string(model.RunStatusFailed), msg, time.Now().UTC(), runID,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: fail run %s", runID)
	}
	return checkRowsAffected(res, "run", runID)
}

func (s *SQLiteStore) GetRun(ctx context.Context, runID string) (*model.Run, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, mode, status, stages, error, created_at, updated_at FROM runs WHERE id = ?`,
		runID,
	)
	return scanRun(row)
}

func (s *SQLiteStore) ListRuns(ctx context.Context, filter RunFilter) ([]model.Run, error) {
	query := `SELECT id, mode, status, stages, error, created_at, updated_at FROM runs WHERE 1=1`
	var args []any

	if filter.Status != "" {
		query += ` AND status = ?`
		args = append(args, string(filter.Status))
	}
	if filter.Mode != "" {
		query += ` AND mode = ?`
		args = append(args, string(filter.Mode))
	}
	query += ` ORDER BY created_at DESC`

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	query += ` LIMIT ?`
	args = append(args, limit)

	if filter.Offset > 0 {
		query += ` OFFSET ?`
		args = append(args, filter.Offset)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list runs")
	}
	defer rows.Close()

	var runs []model.Run
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, *r)
	}
	return runs, eris.Wrap(rows.Err(), "sqlite: list runs iterate")
}

func (s *SQLiteStore) SaveTargets(ctx context.Context, runID string, targets []model.Target) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return eris.Wrap(err, "sqlite: begin save targets")
	}
	defer tx.Rollback() //nolint:errcheck

	if _, err := tx.ExecContext(ctx, `DELETE FROM targets WHERE run_id = ?`, runID); err != nil {
		return eris.Wrapf(err, "sqlite: clear targets %s", runID)
	}

	for rank, t := range targets {
		geomJSON, evJSON, sumJSON, err := encodeTarget(t)
		if err != nil {
			return err
		}
		_, err = tx.ExecContext(ctx,
			`INSERT INTO targets (
				id, run_id, rank, geometry, area_km2, centroid_lon, centroid_lat,
				mean_score, max_score, distance_to_road_m, distance_to_river_m,
				evidence, evidence_summary
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			t.ID, runID, rank, geomJSON, t.AreaKM2, t.CentroidLon, t.CentroidLat,
			t.MeanScore, t.MaxScore, t.DistanceToRoadM, t.DistanceToRiverM,
			evJSON, sumJSON,
		)
		if err != nil {
			return eris.Wrapf(err, "sqlite: insert target %s", t.ID)
		}
	}
	return eris.Wrap(tx.Commit(), "sqlite: commit save targets")
}

func (s *SQLiteStore) ListTargets(ctx context.Context, runID string) ([]model.Target, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, run_id, geometry, area_km2, centroid_lon, centroid_lat,
			mean_score, max_score, distance_to_road_m, distance_to_river_m,
			evidence, evidence_summary
		 FROM targets WHERE run_id = ? ORDER BY rank`,
		runID,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: list targets %s", runID)
	}
	defer rows.Close()

	var targets []model.Target
	for rows.Next() {
		t, err := scanTarget(rows)
		if err != nil {
			return nil, err
		}
		targets = append(targets, *t)
	}
	return targets, eris.Wrap(rows.Err(), "sqlite: list targets iterate")
}

// helpers

func checkRowsAffected(res sql.Result, entity, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return eris.Wrap(err, "rows affected")
	}
	if n == 0 {
		return eris.Errorf("%s not found: %s", entity, id)
	}
	return nil
}

type scannable interface {
	Scan(dest ...any) error
}

func scanRun(row scannable) (*model.Run, error) {
	var r model.Run
	var stagesJSON string

	err := row.Scan(&r.ID, &r.Mode, &r.Status, &stagesJSON, &r.Error, &r.CreatedAt, &r.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, eris.New("run not found")
	}
	if err != nil {
		return nil, eris.Wrap(err, "store: scan run")
	}

	r.Stages, err = decodeStages(stagesJSON)
	if err != nil {
		return nil, err
	}
	return &r, nil
}

func scanTarget(row scannable) (*model.Target, error) {
	var t model.Target
	var geomJSON, evJSON, sumJSON string
	var road, river sql.NullFloat64

	err := row.Scan(&t.ID, &t.RunID, &geomJSON, &t.AreaKM2, &t.CentroidLon, &t.CentroidLat,
		&t.MeanScore, &t.MaxScore, &road, &river,
		&evJSON, &sumJSON)
	if err != nil {
		return nil, eris.Wrap(err, "store: scan target")
	}
	if road.Valid {
		t.DistanceToRoadM = &road.Float64
	}
	if river.Valid {
		t.DistanceToRiverM = &river.Float64
	}

	if t.Geometry, err = decodeTargetGeometry(geomJSON); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(evJSON), &t.Evidence); err != nil {
		return nil, eris.Wrap(err, "store: unmarshal target evidence")
	}
	if err := json.Unmarshal([]byte(sumJSON), &t.EvidenceSummary); err != nil {
		return nil, eris.Wrap(err, "store: unmarshal target summary")
	}
	return &t, nil
}
