package store

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jacklau/picdedup/internal/fingerprint"
)

// GetFingerprint returns the cached fingerprint for key. The entry only
// matches when the stored size and modification time equal the key's.
func (d *DB) GetFingerprint(key fingerprint.CacheKey) (fingerprint.Fingerprint, bool, error) {
	var data []byte
	var bits int
	err := d.db.QueryRow(`
		SELECT fingerprint, bits FROM fingerprints
		WHERE path = ? AND mode = ? AND algorithm = ? AND size = ? AND mod_time = ?`,
		key.Path, key.Mode.String(), key.Algorithm, key.Size, formatModTime(key.ModTime),
	).Scan(&data, &bits)
	if errors.Is(err, sql.ErrNoRows) {
		return fingerprint.Fingerprint{}, false, nil
	}
	if err != nil {
		return fingerprint.Fingerprint{}, false, fmt.Errorf("querying fingerprint: %w", err)
	}

	fp, err := fingerprint.New(key.Mode, data, bits)
	if err != nil {
		return fingerprint.Fingerprint{}, false, fmt.Errorf("decoding cached fingerprint for %s: %w", key.Path, err)
	}
	return fp, true, nil
}

// PutFingerprint inserts or replaces the cached fingerprint for key.
func (d *DB) PutFingerprint(key fingerprint.CacheKey, fp fingerprint.Fingerprint) error {
	_, err := d.db.Exec(`
		INSERT INTO fingerprints (path, mode, algorithm, size, mod_time, bits, fingerprint, computed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(path, mode, algorithm) DO UPDATE SET
			size = excluded.size,
			mod_time = excluded.mod_time,
			bits = excluded.bits,
			fingerprint = excluded.fingerprint,
			computed_at = excluded.computed_at`,
		key.Path, key.Mode.String(), key.Algorithm, key.Size, formatModTime(key.ModTime),
		fp.Len(), fp.Bytes(), time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("storing fingerprint: %w", err)
	}
	return nil
}

// DeleteFingerprints drops cache entries for the given paths in every mode.
func (d *DB) DeleteFingerprints(paths []string) error {
	if len(paths) == 0 {
		return nil
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(paths)), ",")
	args := make([]any, len(paths))
	for i, p := range paths {
		args[i] = p
	}

	_, err := d.db.Exec(`DELETE FROM fingerprints WHERE path IN (`+placeholders+`)`, args...)
	if err != nil {
		return fmt.Errorf("deleting fingerprints: %w", err)
	}
	return nil
}

// CountFingerprints returns the number of cached fingerprints per mode.
func (d *DB) CountFingerprints() (map[string]int, error) {
	rows, err := d.db.Query(`SELECT mode, COUNT(*) FROM fingerprints GROUP BY mode`)
	if err != nil {
		return nil, fmt.Errorf("counting fingerprints: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var mode string
		var n int
		if err := rows.Scan(&mode, &n); err != nil {
			return nil, fmt.Errorf("scanning fingerprint count: %w", err)
		}
		counts[mode] = n
	}
	return counts, rows.Err()
}

func formatModTime(t time.Time) string {
	return t.UTC().Format(timestampLayout)
}
