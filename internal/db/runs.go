package db

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// ErrRunNotFound is returned when no run has the requested id.
var ErrRunNotFound = errors.New("run not found")

// RunStatus is the lifecycle state of an analysis run.
type RunStatus string

const (
	RunRunning   RunStatus = "running"
	RunSucceeded RunStatus = "succeeded"
	RunFailed    RunStatus = "failed"
)

// Run is one execution of the analysis pipeline.
type Run struct {
	ID         string     `json:"run_id"`
	Status     RunStatus  `json:"status"`
	Years      []int      `json:"years"`
	Pixels     int        `json:"pixels"`
	Version    string     `json:"version"`
	Error      string     `json:"error,omitempty"`
	StartedAt  time.Time  `json:"started_at"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
}

// CreateRun inserts run in the running state, assigning an id and start
// time when they are unset.
func (db *DB) CreateRun(run *Run) error {
	if run.ID == "" {
		run.ID = uuid.New().String()
	}
	if run.StartedAt.IsZero() {
		run.StartedAt = time.Now().UTC()
	}
	run.Status = RunRunning

	years, err := json.Marshal(run.Years)
	if err != nil {
		return fmt.Errorf("failed to encode run years: %w", err)
	}
	_, err = db.Exec(`
		INSERT INTO analysis_runs (run_id, status, years, pixels, version, started_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, run.ID, run.Status, string(years), run.Pixels, run.Version, run.StartedAt)
	if err != nil {
		return fmt.Errorf("failed to create run: %w", err)
	}
	return nil
}

// FinishRun marks a run succeeded, or failed with runErr's message.
func (db *DB) FinishRun(id string, runErr error) error {
	status, msg := RunSucceeded, sql.NullString{}
	if runErr != nil {
		status = RunFailed
		msg = sql.NullString{String: runErr.Error(), Valid: true}
	}
	res, err := db.Exec(`
		UPDATE analysis_runs SET status = ?, error = ?, finished_at = ?
		WHERE run_id = ?
	`, status, msg, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("failed to finish run: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", ErrRunNotFound, id)
	}
	return nil
}

const runColumns = `run_id, status, years, pixels, version, error, started_at, finished_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(row rowScanner) (*Run, error) {
	var (
		run      Run
		years    string
		errMsg   sql.NullString
		finished sql.NullTime
	)
	if err := row.Scan(&run.ID, &run.Status, &years, &run.Pixels, &run.Version, &errMsg, &run.StartedAt, &finished); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(years), &run.Years); err != nil {
		return nil, fmt.Errorf("failed to decode years of run %s: %w", run.ID, err)
	}
	run.Error = errMsg.String
	if finished.Valid {
		t := finished.Time
		run.FinishedAt = &t
	}
	return &run, nil
}

// GetRun retrieves a run by id.
func (db *DB) GetRun(id string) (*Run, error) {
	run, err := scanRun(db.QueryRow(`SELECT `+runColumns+` FROM analysis_runs WHERE run_id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get run: %w", err)
	}
	return run, nil
}

// ListRuns returns the most recent runs first. A non-positive limit returns all.
func (db *DB) ListRuns(limit int) ([]Run, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := db.Query(`
		SELECT `+runColumns+` FROM analysis_runs
		ORDER BY started_at DESC, run_id
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer rows.Close()

	runs := []Run{}
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		runs = append(runs, *run)
	}
	return runs, rows.Err()
}
