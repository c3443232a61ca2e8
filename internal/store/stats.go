package store

import "fmt"

// FolderStats holds aggregate statistics for a single folder.
type FolderStats struct {
	Folder         Folder
	Runs           int
	Deleted        int
	ReclaimedBytes int64
	LastRun        *Run
}

// GetFolderStats returns aggregate statistics for a single folder. Dry runs
// are counted as runs but contribute nothing to the deleted totals.
func (d *DB) GetFolderStats(folderID int64) (*FolderStats, error) {
	folder, err := d.GetFolder(folderID)
	if err != nil {
		return nil, fmt.Errorf("getting folder: %w", err)
	}

	stats := &FolderStats{Folder: *folder}

	err = d.db.QueryRow(`
		SELECT COUNT(*),
		       COALESCE(SUM(CASE WHEN dry_run = 0 THEN deleted ELSE 0 END), 0),
		       COALESCE(SUM(reclaimed_bytes), 0)
		FROM runs WHERE folder_id = ?`, folderID,
	).Scan(&stats.Runs, &stats.Deleted, &stats.ReclaimedBytes)
	if err != nil {
		return nil, fmt.Errorf("counting runs: %w", err)
	}

	if stats.Runs == 0 {
		return stats, nil
	}

	row := d.db.QueryRow(`
		SELECT `+runColumns+`
		FROM runs r JOIN folders f ON f.id = r.folder_id
		WHERE r.folder_id = ?
		ORDER BY r.started_at DESC LIMIT 1`, folderID)
	last, err := scanRun(row)
	if err != nil {
		return nil, fmt.Errorf("getting last run: %w", err)
	}
	stats.LastRun = last

	return stats, nil
}

// GetAllFolderStats returns statistics for all known folders.
func (d *DB) GetAllFolderStats() ([]FolderStats, error) {
	folders, err := d.ListFolders()
	if err != nil {
		return nil, fmt.Errorf("listing folders: %w", err)
	}

	var results []FolderStats
	for _, f := range folders {
		stats, err := d.GetFolderStats(f.ID)
		if err != nil {
			return nil, fmt.Errorf("getting stats for %s: %w", f.Path, err)
		}
		results = append(results, *stats)
	}

	return results, nil
}
