package store

import (
	"database/sql"
	"fmt"
	"time"
)

// Folder represents a folder that has been deduplicated at least once.
type Folder struct {
	ID        int64
	Path      string
	LastRunAt *time.Time
	CreatedAt time.Time
}

// CreateFolder inserts a new folder record.
func (d *DB) CreateFolder(path string) (*Folder, error) {
	result, err := d.db.Exec(
		`INSERT INTO folders (path, created_at) VALUES (?, ?)`,
		path, time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		return nil, fmt.Errorf("creating folder: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("getting folder id: %w", err)
	}

	return d.GetFolder(id)
}

// GetFolder retrieves a folder by its ID.
func (d *DB) GetFolder(id int64) (*Folder, error) {
	row := d.db.QueryRow(
		`SELECT id, path, last_run_at, created_at FROM folders WHERE id = ?`,
		id,
	)
	return scanFolder(row)
}

// GetFolderByPath retrieves a folder by its path.
func (d *DB) GetFolderByPath(path string) (*Folder, error) {
	row := d.db.QueryRow(
		`SELECT id, path, last_run_at, created_at FROM folders WHERE path = ?`,
		path,
	)
	return scanFolder(row)
}

// UpdateLastRun sets last_run_at for a folder.
func (d *DB) UpdateLastRun(id int64, at time.Time) error {
	_, err := d.db.Exec(
		`UPDATE folders SET last_run_at = ? WHERE id = ?`,
		at.UTC().Format(time.RFC3339), id,
	)
	if err != nil {
		return fmt.Errorf("updating last run: %w", err)
	}
	return nil
}

// ListFolders returns all known folders.
func (d *DB) ListFolders() ([]Folder, error) {
	rows, err := d.db.Query(
		`SELECT id, path, last_run_at, created_at FROM folders ORDER BY path`,
	)
	if err != nil {
		return nil, fmt.Errorf("listing folders: %w", err)
	}
	defer rows.Close()

	var folders []Folder
	for rows.Next() {
		f, err := scanFolder(rows)
		if err != nil {
			return nil, err
		}
		folders = append(folders, *f)
	}
	return folders, rows.Err()
}

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanFolder(row rowScanner) (*Folder, error) {
	var f Folder
	var lastRun sql.NullString
	var createdAt string

	if err := row.Scan(&f.ID, &f.Path, &lastRun, &createdAt); err != nil {
		return nil, fmt.Errorf("scanning folder: %w", err)
	}

	if lastRun.Valid {
		t, _ := time.Parse(time.RFC3339, lastRun.String)
		f.LastRunAt = &t
	}
	f.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)

	return &f, nil
}
