package storage

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"csvjson/internal/etl"
)

// RunStore persists conversion run logs.
type RunStore struct {
	db *DB
}

// NewRunStore creates a new RunStore.
func NewRunStore(db *DB) *RunStore {
	return &RunStore{db: db}
}

// CreateRun stores a run log, assigning it a fresh ID.
func (s *RunStore) CreateRun(log *etl.RunLog) error {
	log.ID = uuid.New().String()
	outputs, _ := json.Marshal(nonNil(log.Outputs))
	errs, _ := json.Marshal(nonNil(log.Errors))

	_, err := s.db.conn.Exec(
		`INSERT INTO conversion_runs (id, job_id, started_at, finished_at, status, merge,
		 output_dir, files_total, files_failed, rows_written, outputs_json, errors_json)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		log.ID, log.JobID, log.StartedAt.UTC(), log.FinishedAt.UTC(), log.Status, log.Merge,
		log.OutputDir, log.FilesTotal, log.FilesFailed, log.RowsWritten,
		string(outputs), string(errs),
	)
	if err != nil {
		return fmt.Errorf("insert run: %w", err)
	}
	return nil
}

// ListRuns returns up to limit run logs, newest first.
func (s *RunStore) ListRuns(limit int) ([]etl.RunLog, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.conn.Query(
		`SELECT id, job_id, started_at, finished_at, status, merge, output_dir,
		 files_total, files_failed, rows_written, outputs_json, errors_json
		 FROM conversion_runs ORDER BY started_at DESC LIMIT ?`, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	logs := []etl.RunLog{}
	for rows.Next() {
		var l etl.RunLog
		var startedAt, finishedAt time.Time
		var outputs, errs string
		if err := rows.Scan(
			&l.ID, &l.JobID, &startedAt, &finishedAt, &l.Status, &l.Merge, &l.OutputDir,
			&l.FilesTotal, &l.FilesFailed, &l.RowsWritten, &outputs, &errs,
		); err != nil {
			return nil, err
		}
		l.StartedAt = startedAt
		l.FinishedAt = finishedAt
		json.Unmarshal([]byte(outputs), &l.Outputs)
		json.Unmarshal([]byte(errs), &l.Errors)
		logs = append(logs, l)
	}
	return logs, rows.Err()
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
