package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/sells-group/landcover-aoa/internal/model"
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
		"PRAGMA foreign_keys=ON",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS models (
	id          TEXT PRIMARY KEY,
	name        TEXT NOT NULL,
	features    TEXT NOT NULL,
	samples     INTEGER NOT NULL,
	reference   REAL NOT NULL,
	threshold   REAL NOT NULL,
	rule        TEXT NOT NULL,
	space       TEXT NOT NULL,
	calibration TEXT NOT NULL,
	created_at  DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS model_samples (
	model_id   TEXT NOT NULL REFERENCES models(id),
	sample_row INTEGER NOT NULL,
	unit       TEXT NOT NULL,
	label      TEXT NOT NULL,
	distance   REAL,
	di         REAL,
	PRIMARY KEY (model_id, sample_row)
);

CREATE TABLE IF NOT EXISTS runs (
	id         TEXT PRIMARY KEY,
	model_id   TEXT NOT NULL REFERENCES models(id),
	grid       TEXT NOT NULL,
	status     TEXT NOT NULL DEFAULT 'running',
	result     TEXT,
	error      TEXT,
	created_at DATETIME NOT NULL DEFAULT (datetime('now')),
	updated_at DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_models_name ON models(name);
CREATE INDEX IF NOT EXISTS idx_model_samples_di ON model_samples(model_id, di);
CREATE INDEX IF NOT EXISTS idx_runs_status ON runs(status);
CREATE INDEX IF NOT EXISTS idx_runs_model_id ON runs(model_id);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) SaveModel(ctx context.Context, m *model.Model) error {
	rec, err := prepareModel(m)
	if err != nil {
		return eris.Wrap(err, "sqlite: save model")
	}
	blobs, err := encodeModel(rec)
	if err != nil {
		return eris.Wrap(err, "sqlite: save model")
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return eris.Wrap(err, "sqlite: begin tx")
	}
	defer tx.Rollback() //nolint:errcheck

	_, err = tx.ExecContext(ctx,
		`INSERT INTO models (id, name, features, samples, reference, threshold, rule, space, calibration, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.Name, string(blobs.features), rec.Space.Len(), rec.Calibration.Reference, rec.Calibration.Threshold,
		rec.Calibration.Rule, string(blobs.space), string(blobs.calibration), rec.CreatedAt,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: insert model %s", rec.ID)
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO model_samples (model_id, sample_row, unit, label, distance, di) VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return eris.Wrap(err, "sqlite: prepare sample insert")
	}
	defer stmt.Close() //nolint:errcheck

	for _, ts := range rec.TrainingSamples() {
		if _, err := stmt.ExecContext(ctx, rec.ID, ts.Row, ts.Unit, ts.Label, nullable(ts.Distance), nullable(ts.DI)); err != nil {
			return eris.Wrapf(err, "sqlite: insert sample %d of model %s", ts.Row, rec.ID)
		}
	}

	if err := tx.Commit(); err != nil {
		return eris.Wrap(err, "sqlite: commit model")
	}
	m.ID, m.CreatedAt = rec.ID, rec.CreatedAt
	return nil
}

func (s *SQLiteStore) GetModel(ctx context.Context, id string) (*model.Model, error) {
	var m model.Model
	var space, calibration string
	err := s.db.QueryRowContext(ctx,
		`SELECT id, name, space, calibration, created_at FROM models WHERE id = ?`, id,
	).Scan(&m.ID, &m.Name, &space, &calibration, &m.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, eris.Errorf("model not found: %s", id)
	}
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: get model %s", id)
	}
	if err := decodeModel(&m, modelBlobs{space: []byte(space), calibration: []byte(calibration)}); err != nil {
		return nil, eris.Wrapf(err, "sqlite: get model %s", id)
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT sample_row, distance, di FROM model_samples WHERE model_id = ? ORDER BY sample_row`, id)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: get samples of model %s", id)
	}
	defer rows.Close()

	for rows.Next() {
		var row int
		var dist, di sql.NullFloat64
		if err := rows.Scan(&row, &dist, &di); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan sample")
		}
		if err := setSample(&m, row, nullPtr(dist), nullPtr(di)); err != nil {
			return nil, eris.Wrapf(err, "sqlite: model %s", id)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrap(err, "sqlite: iterate samples")
	}
	return &m, nil
}

func nullPtr(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	return &v.Float64
}

func (s *SQLiteStore) ListModels(ctx context.Context, filter ModelFilter) ([]model.ModelInfo, error) {
	query := `SELECT id, name, features, samples, reference, threshold, rule, created_at FROM models WHERE 1=1`
	var args []any

	if filter.Name != "" {
		query += ` AND name = ?`
		args = append(args, filter.Name)
	}
	query += ` ORDER BY created_at DESC LIMIT ?`
	args = append(args, listLimit(filter.Limit))

	if filter.Offset > 0 {
		query += ` OFFSET ?`
		args = append(args, filter.Offset)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list models")
	}
	defer rows.Close()

	var out []model.ModelInfo
	for rows.Next() {
		var info model.ModelInfo
		var features string
		if err := rows.Scan(&info.ID, &info.Name, &features, &info.Samples, &info.Reference,
			&info.Threshold, &info.Rule, &info.CreatedAt); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan model")
		}
		if err := json.Unmarshal([]byte(features), &info.Features); err != nil {
			return nil, eris.Wrap(err, "sqlite: unmarshal features")
		}
		out = append(out, info)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: list models iterate")
}

func (s *SQLiteStore) TrainingOutliers(ctx context.Context, modelID string, limit int) ([]model.TrainingSample, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT sample_row, unit, label, distance, di FROM model_samples
		 WHERE model_id = ? AND di IS NOT NULL ORDER BY di DESC, sample_row LIMIT ?`,
		modelID, listLimit(limit),
	)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: training outliers of model %s", modelID)
	}
	defer rows.Close()

	var out []model.TrainingSample
	for rows.Next() {
		var ts model.TrainingSample
		if err := rows.Scan(&ts.Row, &ts.Unit, &ts.Label, &ts.Distance, &ts.DI); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan training sample")
		}
		out = append(out, ts)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: training outliers iterate")
}

func (s *SQLiteStore) CreateRun(ctx context.Context, modelID, grid string) (*model.Run, error) {
	id := uuid.New().String()
	now := time.Now().UTC()

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO runs (id, model_id, grid, status, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?)`,
		id, modelID, grid, string(model.RunStatusRunning), now, now,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: insert run for model %s", modelID)
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

func (s *SQLiteStore) CompleteRun(ctx context.Context, runID string, summary *model.RunSummary) error {
	resultJSON, err := json.Marshal(summary)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal result")
	}

	res, err := s.db.ExecContext(ctx,
		`UPDATE runs SET result = ?, status = ?, updated_at = ? WHERE id = ?`,
		string(resultJSON), string(model.RunStatusComplete), time.Now().UTC(), runID,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: complete run %s", runID)
	}
	return checkRowsAffected(res, "run", runID)
}

func (s *SQLiteStore) FailRun(ctx context.Context, runID string, reason string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE runs SET error = ?, status = ?, updated_at = ? WHERE id = ?`,
		reason, string(model.RunStatusFailed), time.Now().UTC(), runID,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: fail run %s", runID)
	}
	return checkRowsAffected(res, "run", runID)
}

func (s *SQLiteStore) GetRun(ctx context.Context, runID string) (*model.Run, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, model_id, grid, status, result, error, created_at, updated_at FROM runs WHERE id = ?`,
		runID,
	)
	return scanRun(row)
}

func (s *SQLiteStore) ListRuns(ctx context.Context, filter RunFilter) ([]model.Run, error) {
	query := `SELECT id, model_id, grid, status, result, error, created_at, updated_at FROM runs WHERE 1=1`
	var args []any

	if filter.Status != "" {
		query += ` AND status = ?`
		args = append(args, string(filter.Status))
	}
	if filter.ModelID != "" {
		query += ` AND model_id = ?`
		args = append(args, filter.ModelID)
	}
	query += ` ORDER BY created_at DESC LIMIT ?`
	args = append(args, listLimit(filter.Limit))

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
	var resultJSON, errMsg sql.NullString

	err := row.Scan(&r.ID, &r.ModelID, &r.Grid, &r.Status, &resultJSON, &errMsg, &r.CreatedAt, &r.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, eris.New("run not found")
	}
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: scan run")
	}

	if resultJSON.Valid {
		r.Result = &model.RunSummary{}
		if err := json.Unmarshal([]byte(resultJSON.String), r.Result); err != nil {
			return nil, eris.Wrap(err, "sqlite: unmarshal result")
		}
	}
	r.Error = errMsg.String
	return &r, nil
}
