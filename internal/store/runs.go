package store

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Decision actions.
const (
	ActionKeep         = "keep"
	ActionDelete       = "delete"
	ActionWouldDelete  = "would_delete"
	ActionDeleteFailed = "delete_failed"
	ActionSkip         = "skip"
)

// ErrRunNotFound is returned when no run matches an ID.
var ErrRunNotFound = errors.New("run not found")

// Run is one recorded deduplication run.
type Run struct {
	ID             string
	FolderID       int64
	Folder         string
	Mode           string
	Algorithm      string
	Threshold      int
	DryRun         bool
	Processed      int
	Kept           int
	Deleted        int
	Skipped        int
	DeleteFailed   int
	Groups         int
	ReclaimedBytes int64
	StartedAt      time.Time
	FinishedAt     time.Time
}

// Decision is the recorded outcome for one file of a run.
type Decision struct {
	ID             int64
	RunID          string
	Seq            int
	Path           string
	Action         string
	Representative string
	Distance       int
	Error          string
}

// RecordRun stores a run and its decisions in one transaction. The folder
// record is created on first use. An empty run.ID is replaced by a new UUID.
func (d *DB) RecordRun(run *Run, decisions []Decision) error {
	if run.ID == "" {
		run.ID = uuid.NewString()
	}

	tx, err := d.db.Begin()
	if err != nil {
		return fmt.Errorf("beginning run transaction: %w", err)
	}
	defer tx.Rollback()

	finished := run.FinishedAt.UTC().Format(time.RFC3339)
	if _, err := tx.Exec(
		`INSERT INTO folders (path, created_at) VALUES (?, ?) ON CONFLICT(path) DO NOTHING`,
		run.Folder, finished,
	); err != nil {
		return fmt.Errorf("upserting folder: %w", err)
	}
	if err := tx.QueryRow(`SELECT id FROM folders WHERE path = ?`, run.Folder).Scan(&run.FolderID); err != nil {
		return fmt.Errorf("looking up folder: %w", err)
	}
	if _, err := tx.Exec(`UPDATE folders SET last_run_at = ? WHERE id = ?`, finished, run.FolderID); err != nil {
		return fmt.Errorf("updating last run: %w", err)
	}

	_, err = tx.Exec(`
		INSERT INTO runs (id, folder_id, mode, algorithm, threshold, dry_run, processed, kept, deleted,
		                  skipped, delete_failed, groups_count, reclaimed_bytes, started_at, finished_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID, run.FolderID, run.Mode, run.Algorithm, run.Threshold, run.DryRun,
		run.Processed, run.Kept, run.Deleted, run.Skipped, run.DeleteFailed, run.Groups,
		run.ReclaimedBytes, run.StartedAt.UTC().Format(timestampLayout), run.FinishedAt.UTC().Format(timestampLayout),
	)
	if err != nil {
		return fmt.Errorf("inserting run: %w", err)
	}

	stmt, err := tx.Prepare(`
		INSERT INTO decisions (run_id, seq, path, action, representative, distance, error)
		VALUES (?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("preparing decision insert: %w", err)
	}
	defer stmt.Close()

	for i := range decisions {
		dec := &decisions[i]
		dec.RunID = run.ID
		if _, err := stmt.Exec(run.ID, dec.Seq, dec.Path, dec.Action,
			nullStr(dec.Representative), dec.Distance, nullStr(dec.Error)); err != nil {
			return fmt.Errorf("inserting decision for %s: %w", dec.Path, err)
		}
	}

	return tx.Commit()
}

// timestampLayout is fixed width so stored timestamps sort lexically.
const timestampLayout = "2006-01-02T15:04:05.000000000Z07:00"

const runColumns = `r.id, r.folder_id, f.path, r.mode, r.algorithm, r.threshold, r.dry_run, r.processed,
	r.kept, r.deleted, r.skipped, r.delete_failed, r.groups_count, r.reclaimed_bytes, r.started_at, r.finished_at`

// ListRuns returns the most recent runs first. A limit <= 0 returns all runs.
func (d *DB) ListRuns(limit int) ([]Run, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := d.db.Query(`
		SELECT `+runColumns+`
		FROM runs r JOIN folders f ON f.id = r.folder_id
		ORDER BY r.started_at DESC LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("listing runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, *r)
	}
	return runs, rows.Err()
}

// GetRun retrieves a run by its full ID or a unique ID prefix.
func (d *DB) GetRun(id string) (*Run, error) {
	rows, err := d.db.Query(`
		SELECT `+runColumns+`
		FROM runs r JOIN folders f ON f.id = r.folder_id
		WHERE r.id = ? OR substr(r.id, 1, length(?)) = ?
		LIMIT 2`,
		id, id, id,
	)
	if err != nil {
		return nil, fmt.Errorf("querying run: %w", err)
	}
	defer rows.Close()

	var found []*Run
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		if r.ID == id {
			return r, nil
		}
		found = append(found, r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	switch len(found) {
	case 0:
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, id)
	case 1:
		return found[0], nil
	default:
		return nil, fmt.Errorf("run prefix %q is ambiguous", id)
	}
}

// GetDecisions returns a run's decisions in traversal order.
func (d *DB) GetDecisions(runID string) ([]Decision, error) {
	rows, err := d.db.Query(`
		SELECT id, run_id, seq, path, action, representative, distance, error
		FROM decisions WHERE run_id = ? ORDER BY seq`,
		runID,
	)
	if err != nil {
		return nil, fmt.Errorf("querying decisions: %w", err)
	}
	defer rows.Close()

	var decisions []Decision
	for rows.Next() {
		var dec Decision
		var rep, errStr sql.NullString
		if err := rows.Scan(&dec.ID, &dec.RunID, &dec.Seq, &dec.Path, &dec.Action, &rep, &dec.Distance, &errStr); err != nil {
			return nil, fmt.Errorf("scanning decision: %w", err)
		}
		dec.Representative = rep.String
		dec.Error = errStr.String
		decisions = append(decisions, dec)
	}
	return decisions, rows.Err()
}

func scanRun(row rowScanner) (*Run, error) {
	var r Run
	var startedAt, finishedAt string

	err := row.Scan(
		&r.ID, &r.FolderID, &r.Folder, &r.Mode, &r.Algorithm, &r.Threshold, &r.DryRun,
		&r.Processed, &r.Kept, &r.Deleted, &r.Skipped, &r.DeleteFailed, &r.Groups,
		&r.ReclaimedBytes, &startedAt, &finishedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("scanning run: %w", err)
	}

	r.StartedAt, _ = time.Parse(timestampLayout, startedAt)
	r.FinishedAt, _ = time.Parse(timestampLayout, finishedAt)
	return &r, nil
}

func nullStr(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}
