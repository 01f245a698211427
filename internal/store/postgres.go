package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/sells-group/landcover-aoa/internal/db"
	"github.com/sells-group/landcover-aoa/internal/model"
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

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string, poolCfg *PoolConfig) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	maxConns := int32(4)
	minConns := int32(1)
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

const postgresMigration = `
CREATE TABLE IF NOT EXISTS models (
	id          TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	name        TEXT NOT NULL,
	features    JSONB NOT NULL,
	samples     INTEGER NOT NULL,
	reference   DOUBLE PRECISION NOT NULL,
	threshold   DOUBLE PRECISION NOT NULL,
	rule        TEXT NOT NULL,
	space       JSONB NOT NULL,
	calibration JSONB NOT NULL,
	created_at  TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS model_samples (
	model_id   TEXT NOT NULL REFERENCES models(id) ON DELETE CASCADE,
	sample_row INTEGER NOT NULL,
	unit       TEXT NOT NULL,
	label      TEXT NOT NULL,
	distance   DOUBLE PRECISION,
	di         DOUBLE PRECISION,
	PRIMARY KEY (model_id, sample_row)
);

CREATE TABLE IF NOT EXISTS runs (
	id         TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	model_id   TEXT NOT NULL REFERENCES models(id),
	grid       TEXT NOT NULL,
	status     TEXT NOT NULL DEFAULT 'running',
	result     JSONB,
	error      TEXT,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_models_name ON models(name);
CREATE INDEX IF NOT EXISTS idx_model_samples_di ON model_samples(model_id, di DESC);
CREATE INDEX IF NOT EXISTS idx_runs_status ON runs(status);
CREATE INDEX IF NOT EXISTS idx_runs_model_id ON runs(model_id);
`

var modelSampleColumns = []string{"model_id", "sample_row", "unit", "label", "distance", "di"}

func (s *PostgresStore) Ping(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, "SELECT 1")
	return eris.Wrap(err, "postgres: ping")
}

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

// SaveModel inserts the model row and COPYs its per-sample calibration in
// one transaction.
func (s *PostgresStore) SaveModel(ctx context.Context, m *model.Model) error {
	rec, err := prepareModel(m)
	if err != nil {
		return eris.Wrap(err, "postgres: save model")
	}
	blobs, err := encodeModel(rec)
	if err != nil {
		return eris.Wrap(err, "postgres: save model")
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return eris.Wrap(err, "postgres: begin tx")
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	_, err = tx.Exec(ctx,
		`INSERT INTO models (id, name, features, samples, reference, threshold, rule, space, calibration, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		rec.ID, rec.Name, blobs.features, rec.Space.Len(), rec.Calibration.Reference, rec.Calibration.Threshold,
		rec.Calibration.Rule, blobs.space, blobs.calibration, rec.CreatedAt,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: insert model %s", rec.ID)
	}

	samples := rec.TrainingSamples()
	rows := make([][]any, len(samples))
	for i, ts := range samples {
		rows[i] = []any{rec.ID, ts.Row, ts.Unit, ts.Label, nullable(ts.Distance), nullable(ts.DI)}
	}
	if _, err := db.CopyFrom(ctx, tx, "model_samples", modelSampleColumns, rows); err != nil {
		return eris.Wrapf(err, "postgres: copy samples of model %s", rec.ID)
	}

	if err := tx.Commit(ctx); err != nil {
		return eris.Wrap(err, "postgres: commit model")
	}
	m.ID, m.CreatedAt = rec.ID, rec.CreatedAt
	return nil
}

func (s *PostgresStore) GetModel(ctx context.Context, id string) (*model.Model, error) {
	var m model.Model
	var blobs modelBlobs
	err := s.pool.QueryRow(ctx,
		`SELECT id, name, space, calibration, created_at FROM models WHERE id = $1`, id,
	).Scan(&m.ID, &m.Name, &blobs.space, &blobs.calibration, &m.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, eris.Errorf("model not found: %s", id)
	}
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: get model %s", id)
	}
	if err := decodeModel(&m, blobs); err != nil {
		return nil, eris.Wrapf(err, "postgres: get model %s", id)
	}

	rows, err := s.pool.Query(ctx,
		`SELECT sample_row, distance, di FROM model_samples WHERE model_id = $1 ORDER BY sample_row`, id)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: get samples of model %s", id)
	}
	defer rows.Close()

	for rows.Next() {
		var row int
		var dist, di *float64
		if err := rows.Scan(&row, &dist, &di); err != nil {
			return nil, eris.Wrap(err, "postgres: scan sample")
		}
		if err := setSample(&m, row, dist, di); err != nil {
			return nil, eris.Wrapf(err, "postgres: model %s", id)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrap(err, "postgres: iterate samples")
	}
	return &m, nil
}

func (s *PostgresStore) ListModels(ctx context.Context, filter ModelFilter) ([]model.ModelInfo, error) {
	query := `SELECT id, name, features, samples, reference, threshold, rule, created_at FROM models WHERE true`
	args := []any{}
	argIdx := 1

	if filter.Name != "" {
		query += fmt.Sprintf(` AND name = $%d`, argIdx)
		args = append(args, filter.Name)
		argIdx++
	}
	query += fmt.Sprintf(` ORDER BY created_at DESC LIMIT $%d`, argIdx)
	args = append(args, listLimit(filter.Limit))
	argIdx++

	if filter.Offset > 0 {
		query += fmt.Sprintf(` OFFSET $%d`, argIdx)
		args = append(args, filter.Offset)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list models")
	}
	defer rows.Close()

	var out []model.ModelInfo
	for rows.Next() {
		var info model.ModelInfo
		var features []byte
		if err := rows.Scan(&info.ID, &info.Name, &features, &info.Samples, &info.Reference,
			&info.Threshold, &info.Rule, &info.CreatedAt); err != nil {
			return nil, eris.Wrap(err, "postgres: scan model")
		}
		if err := json.Unmarshal(features, &info.Features); err != nil {
			return nil, eris.Wrap(err, "postgres: unmarshal features")
		}
		out = append(out, info)
	}
	return out, eris.Wrap(rows.Err(), "postgres: list models iterate")
}

func (s *PostgresStore) TrainingOutliers(ctx context.Context, modelID string, limit int) ([]model.TrainingSample, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT sample_row, unit, label, distance, di FROM model_samples
		 WHERE model_id = $1 AND di IS NOT NULL ORDER BY di DESC, sample_row LIMIT $2`,
		modelID, listLimit(limit),
	)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: training outliers of model %s", modelID)
	}
	defer rows.Close()

	var out []model.TrainingSample
	for rows.Next() {
		var ts model.TrainingSample
		if err := rows.Scan(&ts.Row, &ts.Unit, &ts.Label, &ts.Distance, &ts.DI); err != nil {
			return nil, eris.Wrap(err, "postgres: scan training sample")
		}
		out = append(out, ts)
	}
	return out, eris.Wrap(rows.Err(), "postgres: training outliers iterate")
}

func (s *PostgresStore) CreateRun(ctx context.Context, modelID, grid string) (*model.Run, error) {
	id := uuid.New().String()
	now := time.Now().UTC()

	_, err := s.pool.Exec(ctx,
		`INSERT INTO runs (id, model_id, grid, status, created_at, updated_at) VALUES ($1, $2, $3, $4, $5, $6)`,
		id, modelID, grid, string(model.RunStatusRunning), now, now,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: insert run for model %s", modelID)
	}

	return &model.Run{
		ID:        id,
		ModelID:   modelID,
		Grid:      grid,
		Status:    model.RunStatusRunning,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

func (s *PostgresStore) CompleteRun(ctx context.Context, runID string, summary *model.RunSummary) error {
	resultJSON, err := json.Marshal(summary)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal result")
	}

	tag, err := s.pool.Exec(ctx,
		`UPDATE runs SET result = $1, status = $2, updated_at = $3 WHERE id = $4`,
		resultJSON, string(model.RunStatusComplete), time.Now().UTC(), runID,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: complete run %s", runID)
	}
	if tag.RowsAffected() == 0 {
		return eris.Errorf("run not found: %s", runID)
	}
	return nil
}

func (s *PostgresStore) FailRun(ctx context.Context, runID string, reason string) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE runs SET error = $1, status = $2, updated_at = $3 WHERE id = $4`,
		reason, string(model.RunStatusFailed), time.Now().UTC(), runID,
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
		`SELECT id, model_id, grid, status, result, error, created_at, updated_at FROM runs WHERE id = $1`,
		runID,
	)
	r, err := scanPostgresRun(row)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: get run %s", runID)
	}
	return r, nil
}

func (s *PostgresStore) ListRuns(ctx context.Context, filter RunFilter) ([]model.Run, error) {
	query := `SELECT id, model_id, grid, status, result, error, created_at, updated_at FROM runs WHERE true`
	args := []any{}
	argIdx := 1

	if filter.Status != "" {
		query += fmt.Sprintf(` AND status = $%d`, argIdx)
		args = append(args, string(filter.Status))
		argIdx++
	}
	if filter.ModelID != "" {
		query += fmt.Sprintf(` AND model_id = $%d`, argIdx)
		args = append(args, filter.ModelID)
		argIdx++
	}
	query += fmt.Sprintf(` ORDER BY created_at DESC LIMIT $%d`, argIdx)
	args = append(args, listLimit(filter.Limit))
	argIdx++

	if filter.Offset > 0 {
		query += fmt.Sprintf(` OFFSET $%d`, argIdx)
		args = append(args, filter.Offset)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list runs")
	}
	defer rows.Close()

	var runs []model.Run
	for rows.Next() {
		r, err := scanPostgresRun(rows)
		if err != nil {
			return nil, eris.Wrap(err, "postgres: scan run")
		}
		runs = append(runs, *r)
	}
	return runs, eris.Wrap(rows.Err(), "postgres: list runs iterate")
}

func scanPostgresRun(row scannable) (*model.Run, error) {
	var r model.Run
	var status string
	var resultJSON []byte
	var errMsg *string

	if err := row.Scan(&r.ID, &r.ModelID, &r.Grid, &status, &resultJSON, &errMsg, &r.CreatedAt, &r.UpdatedAt); err != nil {
		return nil, err
	}
	r.Status = model.RunStatus(status)
	if resultJSON != nil {
		r.Result = &model.RunSummary{}
		if err := json.Unmarshal(resultJSON, r.Result); err != nil {
			return nil, eris.Wrap(err, "unmarshal result")
		}
	}
	if errMsg != nil {
		r.Error = *errMsg
	}
	return &r, nil
}
