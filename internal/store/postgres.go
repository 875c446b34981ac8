package store

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/sells-group/atlas-cli/internal/db"
	"github.com/sells-group/atlas-cli/internal/model"
)

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool    db.Pool
	closeFn func()
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
}

// targetColumns is the column order used by SaveTargets' COPY.
var targetColumns = []string{
	"id", "run_id", "rank", "geometry", "area_km2", "centroid_lon", "centroid_lat",
	"mean_score", "max_score", "distance_to_road_m", "distance_to_river_m",
	"evidence", "evidence_summary",
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string, poolCfg *PoolConfig) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	maxConns := int32(10)
	minConns := int32(2)
	if poolCfg != nil {
		if poolCfg.MaxConns > 0 {
			maxConns = poolCfg.MaxConns
		}
		if poolCfg.MinConns > 0 {
			minConns = poolCfg.MinConns
		}
	}
	pgxCfg.MaxConns = maxConns
	pgxCfg.MinConns = minConns
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool, closeFn: pool.Close}, nil
}

// NewPostgresWithPool wraps an existing pool, primarily for tests.
func NewPostgresWithPool(pool db.Pool) *PostgresStore {
	return &PostgresStore{pool: pool, closeFn: func() {}}
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS runs (
	id         TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	mode       TEXT NOT NULL,
	status     TEXT NOT NULL DEFAULT 'queued',
	stages     JSONB NOT NULL DEFAULT '[]',
	error      TEXT NOT NULL DEFAULT '',
	created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS targets (
	id                  TEXT PRIMARY KEY,
	run_id              TEXT NOT NULL REFERENCES runs(id),
	rank                INTEGER NOT NULL,
	geometry            JSONB NOT NULL,
	area_km2            DOUBLE PRECISION NOT NULL,
	centroid_lon        DOUBLE PRECISION NOT NULL,
	centroid_lat        DOUBLE PRECISION NOT NULL,
	mean_score          DOUBLE PRECISION NOT NULL,
	max_score           DOUBLE PRECISION NOT NULL,
	distance_to_road_m  DOUBLE PRECISION,
	distance_to_river_m DOUBLE PRECISION,
	evidence            JSONB NOT NULL,
	evidence_summary    JSONB NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_runs_status ON runs(status);
CREATE INDEX IF NOT EXISTS idx_runs_mode ON runs(mode);
CREATE INDEX IF NOT EXISTS idx_targets_run_id ON targets(run_id);
`

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	if s.closeFn != nil {
		s.closeFn()
	}
	return nil
}

func (s *PostgresStore) CreateRun(ctx context.Context, id string, mode model.Mode) (*model.Run, error) {
	if id == "" {
		id = uuid.New().String()
	}
	now := time.Now().UTC()

	_, err := s.pool.Exec(ctx,
		`INSERT INTO runs (id, mode, status, created_at, updated_at) VALUES ($1, $2, $3, $4, $5)`,
		id, string(mode), string(model.RunStatusQueued), now, now,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: insert run")
	}

	return &model.Run{
		ID:        id,
		Mode:      mode,
		Status:    model.RunStatusQueued,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

func (s *PostgresStore) UpdateRunStatus(ctx context.Context, runID string, status model.RunStatus) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE runs SET status = $1, updated_at = $2 WHERE id = $3`,
		string(status), time.Now().UTC(), runID,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: update run status %s", runID)
	}
	if tag.RowsAffected() == 0 {
		return eris.Errorf("run not found: %s", runID)
	}
	return nil
}

func (s *PostgresStore) AppendRunStage(ctx context.Context, runID string, stage string) error {
	stageJSON, err := json.Marshal(stage)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal stage")
	}
	tag, err := s.pool.Exec(ctx,
		`UPDATE runs SET stages = stages || $1::jsonb, updated_at = $2 WHERE id = $3`,
		string(stageJSON), time.Now().UTC(), runID,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: append run stage %s", runID)
	}
	if tag.RowsAffected() == 0 {
		return eris.Errorf("run not found: %s", runID)
	}
	return nil
}

func (s *PostgresStore) CompleteRun(ctx context.Context, runID string) error {
	return s.UpdateRunStatus(ctx, runID, model.RunStatusCompleted)
}

func (s *PostgresStore) FailRun(ctx context.Context, runID string, cause error) error {
	msg := ""
	if cause != nil {
		msg = cause.Error()
	}
	tag, err := s.pool.Exec(ctx,
		`UPDATE runs SET status = $1, error = $2, updated_at = $3 WHERE id = $4`,
		string(model.RunStatusFailed), msg, time.Now().UTC(), runID,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: fail run %s", runID)
	}
	if tag.RowsAffected() == 0 {
		return eris.Errorf("run not found: %s", runID)
	}
	return nil
}

func (s *PostgresStore) GetRun(ctx context.Context, runID string) (*model.Run, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT id, mode, status, stages::text, error, created_at, updated_at FROM runs WHERE id = $1`,
		runID,
	)
	r, err := scanRunPgx(row)
	if err == pgx.ErrNoRows {
		return nil, eris.Errorf("run not found: %s", runID)
	}
	return r, err
}

func (s *PostgresStore) ListRuns(ctx context.Context, filter RunFilter) ([]model.Run, error) {
	query := `SELECT id, mode, status, stages::text, error, created_at, updated_at FROM runs WHERE 1=1`
	var args []any

	if filter.Status != "" {
		args = append(args, string(filter.Status))
		query += ` AND status = $1`
	}
	if filter.Mode != "" {
		args = append(args, string(filter.Mode))
		query += ` AND mode = $` + strconv.Itoa(len(args))
	}
	query += ` ORDER BY created_at DESC`

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	args = append(args, limit)
	query += ` LIMIT $` + strconv.Itoa(len(args))

	if filter.Offset > 0 {
		args = append(args, filter.Offset)
		query += ` OFFSET $` + strconv.Itoa(len(args))
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list runs")
	}
	defer rows.Close()

	var runs []model.Run
	for rows.Next() {
		r, err := scanRunPgx(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, *r)
	}
	return runs, eris.Wrap(rows.Err(), "postgres: list runs iterate")
}

func (s *PostgresStore) SaveTargets(ctx context.Context, runID string, targets []model.Target) error {
	if _, err := s.pool.Exec(ctx, `DELETE FROM targets WHERE run_id = $1`, runID); err != nil {
		return eris.Wrapf(err, "postgres: clear targets %s", runID)
	}

	rows := make([][]any, 0, len(targets))
	for rank, t := range targets {
		geomJSON, evJSON, sumJSON, err := encodeTarget(t)
		if err != nil {
			return err
		}
		rows = append(rows, []any{
			t.ID, runID, rank, geomJSON, t.AreaKM2, t.CentroidLon, t.CentroidLat,
			t.MeanScore, t.MaxScore, t.DistanceToRoadM, t.DistanceToRiverM,
			evJSON, sumJSON,
		})
	}
	_, err := db.CopyFrom(ctx, s.pool, "targets", targetColumns, rows)
	return err
}

func (s *PostgresStore) ListTargets(ctx context.Context, runID string) ([]model.Target, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, run_id, geometry::text, area_km2, centroid_lon, centroid_lat,
			mean_score, max_score, distance_to_road_m, distance_to_river_m,
			evidence::text, evidence_summary::text
		 FROM targets WHERE run_id = $1 ORDER BY rank`,
		runID,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: list targets %s", runID)
	}
	defer rows.Close()

	var targets []model.Target
	for rows.Next() {
		t, err := scanTargetPgx(rows)
		if err != nil {
			return nil, err
		}
		targets = append(targets, *t)
	}
	return targets, eris.Wrap(rows.Err(), "postgres: list targets iterate")
}

func scanRunPgx(row pgx.Row) (*model.Run, error) {
	var r model.Run
	var stagesJSON string
	err := row.Scan(&r.ID, &r.Mode, &r.Status, &stagesJSON, &r.Error, &r.CreatedAt, &r.UpdatedAt)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, err
		}
		return nil, eris.Wrap(err, "postgres: scan run")
	}
	r.Stages, err = decodeStages(stagesJSON)
	if err != nil {
		return nil, err
	}
	return &r, nil
}

func scanTargetPgx(row pgx.Row) (*model.Target, error) {
	var t model.Target
	var geomJSON, evJSON, sumJSON string
	err := row.Scan(&t.ID, &t.RunID, &geomJSON, &t.AreaKM2, &t.CentroidLon, &t.CentroidLat,
		&t.MeanScore, &t.MaxScore, &t.DistanceToRoadM, &t.DistanceToRiverM,
		&evJSON, &sumJSON)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: scan target")
	}
	if t.Geometry, err = decodeTargetGeometry(geomJSON); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(evJSON), &t.Evidence); err != nil {
		return nil, eris.Wrap(err, "postgres: unmarshal target evidence")
	}
	if err := json.Unmarshal([]byte(sumJSON), &t.EvidenceSummary); err != nil {
		return nil, eris.Wrap(err, "postgres: unmarshal target summary")
	}
	return &t, nil
}
