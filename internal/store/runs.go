package store

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/banshee-data/pathing/internal/optimizer"
)

// ErrRunNotFound is returned for unknown run IDs.
var ErrRunNotFound = errors.New("run not found")

// RunRecord is one persisted optimizer run. The JSON columns are kept
// raw so callers can forward them without a decode/encode round trip.
type RunRecord struct {
	RunID       string          `json:"run_id"`
	Status      string          `json:"status"`
	Config      json.RawMessage `json:"config"`
	Result      json.RawMessage `json:"result,omitempty"`
	Log         json.RawMessage `json:"log,omitempty"`
	Fitness     *float64        `json:"fitness,omitempty"`
	Generations int             `json:"generations"`
	Error       string          `json:"error,omitempty"`
	StartedAt   time.Time       `json:"started_at"`
	CompletedAt *time.Time      `json:"completed_at,omitempty"`
}

// RunStore reads and writes optimizer_runs. It implements
// optimizer.RunRecorder.
type RunStore struct {
	db *DB
}

var _ optimizer.RunRecorder = (*RunStore)(nil)

// NewRunStore returns a store over a migrated database.
func NewRunStore(db *DB) *RunStore {
	return &RunStore{db: db}
}

// InsertRun stores a new run.
func (s *RunStore) InsertRun(r RunRecord) error {
	if r.RunID == "" {
		return fmt.Errorf("insert run: empty run id")
	}
	cfg := r.Config
	if len(cfg) == 0 {
		cfg = json.RawMessage("{}")
	}
	_, err := s.db.Exec(`
		INSERT INTO optimizer_runs (run_id, status, config_json, started_at)
		VALUES (?, ?, ?, ?)`,
		r.RunID, r.Status, string(cfg), r.StartedAt.UnixNano())
	if err != nil {
		return fmt.Errorf("insert run %s: %w", r.RunID, err)
	}
	return nil
}

// UpdateRunResult records the outcome of a run.
func (s *RunStore) UpdateRunResult(runID, status string, fitness *float64, generations int, result, log json.RawMessage, completedAt time.Time, errMsg string) error {
	res, err := s.db.Exec(`
		UPDATE optimizer_runs
		SET status = ?, fitness = ?, generations = ?, result_json = ?, log_json = ?, completed_at = ?, error = ?
		WHERE run_id = ?`,
		status, fitness, generations, nullableJSON(result), nullableJSON(log), completedAt.UnixNano(), errMsg, runID)
	if err != nil {
		return fmt.Errorf("update run %s: %w", runID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update run %s: %w", runID, err)
	}
	if n == 0 {
		return fmt.Errorf("update run %s: %w", runID, ErrRunNotFound)
	}
	return nil
}

func nullableJSON(b json.RawMessage) any {
	if len(b) == 0 {
		return nil
	}
	return string(b)
}

const runColumns = `run_id, status, config_json, result_json, log_json, fitness, generations, error, started_at, completed_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(row rowScanner) (RunRecord, error) {
	var (
		r           RunRecord
		cfg         string
		result, log sql.NullString
		fitness     sql.NullFloat64
		started     int64
		completed   sql.NullInt64
	)
	if err := row.Scan(&r.RunID, &r.Status, &cfg, &result, &log, &fitness, &r.Generations, &r.Error, &started, &completed); err != nil {
		return RunRecord{}, err
	}
	r.Config = json.RawMessage(cfg)
	if result.Valid {
		r.Result = json.RawMessage(result.String)
	}
	if log.Valid {
		r.Log = json.RawMessage(log.String)
	}
	if fitness.Valid {
		f := fitness.Float64
		r.Fitness = &f
	}
	r.StartedAt = time.Unix(0, started).UTC()
	if completed.Valid {
		c := time.Unix(0, completed.Int64).UTC()
		r.CompletedAt = &c
	}
	return r, nil
}

// GetRun returns one run with its result and log.
func (s *RunStore) GetRun(runID string) (RunRecord, error) {
	row := s.db.QueryRow(`SELECT `+runColumns+` FROM optimizer_runs WHERE run_id = ?`, runID)
	r, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return RunRecord{}, fmt.Errorf("get run %s: %w", runID, ErrRunNotFound)
	}
	if err != nil {
		return RunRecord{}, fmt.Errorf("get run %s: %w", runID, err)
	}
	return r, nil
}

// ListRuns returns the newest runs first. Result and Log are omitted;
// limit <= 0 means 50.
func (s *RunStore) ListRuns(limit int) ([]RunRecord, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.Query(`
		SELECT run_id, status, config_json, NULL, NULL, fitness, generations, error, started_at, completed_at
		FROM optimizer_runs
		ORDER BY started_at DESC, run_id
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	runs := []RunRecord{}
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("list runs: %w", err)
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// RecordStart implements optimizer.RunRecorder.
func (s *RunStore) RecordStart(runID string, cfg optimizer.Config, startedAt time.Time) error {
	b, err := json.Marshal(cfg)
	if err != nil {
		return err
	}
	return s.InsertRun(RunRecord{
		RunID:     runID,
		Status:    string(optimizer.StatusRunning),
		Config:    b,
		StartedAt: startedAt,
	})
}

// RecordResult implements optimizer.RunRecorder. The generation log is
// stored apart from the result body.
func (s *RunStore) RecordResult(runID string, res *optimizer.Result, completedAt time.Time, runErr error) error {
	if runErr != nil || res == nil {
		msg := "no result"
		if runErr != nil {
			msg = runErr.Error()
		}
		return s.UpdateRunResult(runID, string(optimizer.StatusError), nil, 0, nil, nil, completedAt, msg)
	}

	body := *res
	body.Log = nil
	result, err := json.Marshal(body)
	if err != nil {
		return err
	}
	log, err := json.Marshal(res.Log)
	if err != nil {
		return err
	}
	fitness := res.Fitness
	return s.UpdateRunResult(runID, string(res.Status), &fitness, res.Generations, result, log, completedAt, "")
}
