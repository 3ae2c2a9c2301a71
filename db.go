package stratus

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"
	"sync"
	"time"

	"github.com/tailscale/squibble"
	_ "modernc.org/sqlite"

	"github.com/mgaillard/stratus/evaluate"
)

//go:embed db/latest_schema.sql
var dbSchema string

var schema = &squibble.Schema{
	Current: dbSchema,
}

// DB archives completed runs so past descriptions and their scores can
// be reviewed.
type DB struct {
	mu sync.Mutex
	db *sql.DB

	filepath string
}

// Run is one archived orchestrator run.
type Run struct {
	Id          int64
	ImagePath   string
	Provider    string
	Model       string
	Description string
	Iterations  int
	Passed      bool
	CreatedAt   time.Time

	Scores []evaluate.Result
}

// NewDB opens (creating if needed) the run archive at fname and brings
// its schema up to date.
func NewDB(ctx context.Context, fname string) (*DB, error) {
	// Open the DB but flip on the cleaner timestamps from Go
	sqldb, err := sql.Open("sqlite", fname+"?_time_format=sqlite")
	if err != nil {
		return nil, err
	}
	if err := sqldb.PingContext(ctx); err != nil {
		return nil, err
	}
	if err := schema.Apply(ctx, sqldb); err != nil {
		return nil, err
	}

	return &DB{db: sqldb, filepath: fname}, nil
}

func (db *DB) Close() {
	db.mu.Lock()
	defer db.mu.Unlock()

	db.db.Close()
}

// SaveRun inserts a run and its per-criterion scores in one transaction
// and returns the new run id.
func (db *DB) SaveRun(ctx context.Context, run *Run) (int64, error) {
	txn, err := db.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer txn.Rollback()

	createdAt := run.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	res, err := txn.ExecContext(ctx, `
		INSERT INTO runs
		(image_path, provider, model, description, iterations, passed, created_at)
		VALUES (?,?,?,?,?,?,?)`,
		run.ImagePath, run.Provider, run.Model, run.Description,
		run.Iterations, run.Passed, createdAt,
	)
	if err != nil {
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}

	for _, s := range run.Scores {
		if _, err := txn.ExecContext(ctx, `
			INSERT INTO scores (run_id, criterion, score, reasoning)
			VALUES (?,?,?,?)`,
			id, string(s.Criterion), s.Score, s.Reasoning,
		); err != nil {
			return 0, err
		}
	}

	if err := txn.Commit(); err != nil {
		return 0, err
	}
	run.Id = id
	run.CreatedAt = createdAt
	return id, nil
}

// GetRun loads one run with its scores.
func (db *DB) GetRun(ctx context.Context, id int64) (*Run, error) {
	row := db.db.QueryRowContext(ctx, `
		SELECT id, image_path, provider, model, description, iterations, passed, created_at
		FROM runs WHERE id=?`, id)

	run := &Run{}
	err := row.Scan(&run.Id, &run.ImagePath, &run.Provider, &run.Model,
		&run.Description, &run.Iterations, &run.Passed, &run.CreatedAt)
	if err != nil {
		return nil, err
	}

	if err := db.loadScores(ctx, run); err != nil {
		return nil, err
	}
	return run, nil
}

// RecentRuns returns up to limit runs, newest first, with their scores.
func (db *DB) RecentRuns(ctx context.Context, limit int) ([]*Run, error) {
	rows, err := db.db.QueryContext(ctx, `
		SELECT id, image_path, provider, model, description, iterations, passed, created_at
		FROM runs ORDER BY created_at DESC, id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []*Run
	for rows.Next() {
		run := &Run{}
		err := rows.Scan(&run.Id, &run.ImagePath, &run.Provider, &run.Model,
			&run.Description, &run.Iterations, &run.Passed, &run.CreatedAt)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for _, run := range runs {
		if err := db.loadScores(ctx, run); err != nil {
			return nil, err
		}
	}
	return runs, nil
}

// CountRuns returns the number of archived runs.
func (db *DB) CountRuns(ctx context.Context) (int, error) {
	row := db.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM runs`)
	if row.Err() != nil {
		return 0, row.Err()
	}

	var n int
	if err := row.Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}

func (db *DB) loadScores(ctx context.Context, run *Run) error {
	rows, err := db.db.QueryContext(ctx, `
		SELECT criterion, score, reasoning
		FROM scores WHERE run_id=? ORDER BY id`, run.Id)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var criterion string
		var score int
		var reasoning sql.NullString
		if err := rows.Scan(&criterion, &score, &reasoning); err != nil {
			return err
		}
		run.Scores = append(run.Scores, evaluate.Result{
			Criterion: evaluate.Criterion(criterion),
			Score:     score,
			Reasoning: reasoning.String,
		})
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("error iterating scores: %w", err)
	}
	return nil
}
