// Package ledger は model 段の実行履歴を SQLite に記録します。
package ledger

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	_ "modernc.org/sqlite" // registers the "sqlite" driver

	"github.com/YuminosukeSato/forestfire/pkg/errors"
	"github.com/YuminosukeSato/forestfire/report"
)

// ErrRunNotFound is returned by Get for an unknown run id.
var ErrRunNotFound = errors.New("run not found")

const schema = `CREATE TABLE IF NOT EXISTS runs (
	id           TEXT PRIMARY KEY,
	created_at   TEXT NOT NULL,
	input        TEXT NOT NULL,
	report       TEXT NOT NULL,
	label        TEXT NOT NULL,
	train_size   INTEGER NOT NULL,
	test_size    INTEGER NOT NULL,
	n_features   INTEGER NOT NULL,
	accuracy     REAL NOT NULL,
	roc_auc      REAL,
	cv_mean      REAL,
	importances  TEXT NOT NULL,
	params       TEXT NOT NULL
)`

// Run is one row of the ledger.
type Run struct {
	ID          string
	CreatedAt   time.Time
	Input       string
	Report      string
	Label       string
	TrainSize   int
	TestSize    int
	NFeatures   int
	Accuracy    float64
	ROCAUC      *float64
	CVMean      *float64
	Importances []report.Importance
	Params      string
}

// FromReport builds a ledger row from a finished model report.
func FromReport(r *report.Report, reportPath string) Run {
	run := Run{
		ID:          r.RunID,
		CreatedAt:   r.CreatedAt,
		Input:       r.Input,
		Report:      reportPath,
		Label:       r.Label,
		TrainSize:   r.TrainSize,
		TestSize:    r.TestSize,
		NFeatures:   len(r.Features),
		ROCAUC:      r.ROCAUC,
		Importances: r.Importances,
		Params:      report.FormatParams(r.Params),
	}
	if r.Classification != nil {
		run.Accuracy = r.Classification.Accuracy
	}
	if r.CrossValidation != nil {
		mean := r.CrossValidation.Mean
		run.CVMean = &mean
	}
	return run
}

// Ledger is an open run ledger.
type Ledger struct {
	db *sql.DB
}

// Open opens (creating if needed) the ledger database at path.
func Open(ctx context.Context, path string) (*Ledger, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, errors.Wrapf(err, "open ledger %s", path)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, errors.Wrapf(err, "open ledger %s", path)
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "create runs table")
	}
	return &Ledger{db: db}, nil
}

// Close closes the database.
func (l *Ledger) Close() error { return l.db.Close() }

// Record inserts a run. Run ids are unique.
func (l *Ledger) Record(ctx context.Context, run Run) error {
	if run.ID == "" {
		return errors.NewValidationError("id", "run id is required", run.ID)
	}
	imps, err := json.Marshal(run.Importances)
	if err != nil {
		return errors.Wrap(err, "encode importances")
	}
	_, err = l.db.ExecContext(ctx, `INSERT INTO runs
		(id, created_at, input, report, label, train_size, test_size, n_features, accuracy, roc_auc, cv_mean, importances, params)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID, run.CreatedAt.UTC().Format(time.RFC3339Nano), run.Input, run.Report, run.Label,
		run.TrainSize, run.TestSize, run.NFeatures, run.Accuracy,
		nullable(run.ROCAUC), nullable(run.CVMean), string(imps), run.Params)
	if err != nil {
		return errors.Wrapf(err, "record run %s", run.ID)
	}
	return nil
}

func nullable(v *float64) sql.NullFloat64 {
	if v == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *v, Valid: true}
}

const selectRuns = `SELECT id, created_at, input, report, label, train_size, test_size, n_features,
	accuracy, roc_auc, cv_mean, importances, params FROM runs`

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(s scanner) (Run, error) {
	var (
		run       Run
		created   string
		auc, cv   sql.NullFloat64
		importStr string
	)
	if err := s.Scan(&run.ID, &created, &run.Input, &run.Report, &run.Label, &run.TrainSize,
		&run.TestSize, &run.NFeatures, &run.Accuracy, &auc, &cv, &importStr, &run.Params); err != nil {
		return Run{}, err
	}
	t, err := time.Parse(time.RFC3339Nano, created)
	if err != nil {
		return Run{}, errors.Wrapf(err, "run %s: created_at", run.ID)
	}
	run.CreatedAt = t
	if auc.Valid {
		run.ROCAUC = &auc.Float64
	}
	if cv.Valid {
		run.CVMean = &cv.Float64
	}
	if err := json.Unmarshal([]byte(importStr), &run.Importances); err != nil {
		return Run{}, errors.Wrapf(err, "run %s: importances", run.ID)
	}
	return run, nil
}

// List returns the most recent runs first. limit <= 0 returns all runs.
func (l *Ledger) List(ctx context.Context, limit int) ([]Run, error) {
	q := selectRuns + ` ORDER BY created_at DESC, rowid DESC`
	args := []any{}
	if limit > 0 {
		q += ` LIMIT ?`
		args = append(args, limit)
	}
	rows, err := l.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, errors.Wrap(err, "list runs")
	}
	defer rows.Close()

	var out []Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, run)
	}
	return out, rows.Err()
}

// Get returns a single run by id.
func (l *Ledger) Get(ctx context.Context, id string) (*Run, error) {
	run, err := scanRun(l.db.QueryRowContext(ctx, selectRuns+` WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, errors.Wrapf(ErrRunNotFound, "%s", id)
	}
	if err != nil {
		return nil, err
	}
	return &run, nil
}
