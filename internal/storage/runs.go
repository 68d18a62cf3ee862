package storage

import (
	"github.com/google/uuid"

	"foodprice/internal/domain"
)

// RunStore implements domain.RunLogStore on SQLite.
type RunStore struct {
	db *DB
}

var _ domain.RunLogStore = (*RunStore)(nil)

// NewRunStore creates a new RunStore.
func NewRunStore(db *DB) *RunStore {
	return &RunStore{db: db}
}

// CreateRunLog inserts log, assigning it a fresh ID.
func (s *RunStore) CreateRunLog(log *domain.RunLog) error {
	log.ID = uuid.New().String()
	if log.Trigger == "" {
		log.Trigger = "manual"
	}
	_, err := s.db.conn.Exec(
		`INSERT INTO run_logs (id, manifest_path, target_folder, trigger_type, started_at, finished_at,
		 status, files_written, rows_written, error)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		log.ID, log.ManifestPath, log.TargetFolder, log.Trigger,
		log.StartedAt.UTC(), log.FinishedAt.UTC(),
		string(log.Status), log.FilesWritten, log.RowsWritten, log.Error,
	)
	return err
}

// ListRunLogs returns the newest runs first. An empty manifestPath lists
// runs for every manifest.
func (s *RunStore) ListRunLogs(manifestPath string, limit int) ([]domain.RunLog, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.conn.Query(
		`SELECT id, manifest_path, target_folder, trigger_type, started_at, finished_at,
		 status, files_written, rows_written, error
		 FROM run_logs WHERE (? = '' OR manifest_path = ?)
		 ORDER BY started_at DESC LIMIT ?`,
		manifestPath, manifestPath, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var logs []domain.RunLog
	for rows.Next() {
		var l domain.RunLog
		var status string
		if err := rows.Scan(&l.ID, &l.ManifestPath, &l.TargetFolder, &l.Trigger, &l.StartedAt, &l.FinishedAt,
			&status, &l.FilesWritten, &l.RowsWritten, &l.Error); err != nil {
			return nil, err
		}
		l.Status = domain.RunStatus(status)
		logs = append(logs, l)
	}
	return logs, rows.Err()
}
