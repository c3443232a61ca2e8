package report

import (
	"fmt"
	"log/slog"
	"os"
)

// Deleter removes the file behind a planned deletion and returns the number
// of bytes reclaimed.
type Deleter interface {
	Remove(path string) (int64, error)
}

// DeleteError reports a failed deletion. The file stays on disk.
type DeleteError struct {
	Path string
	Err  error
}

func (e *DeleteError) Error() string {
	return fmt.Sprintf("delete %s: %v", e.Path, e.Err)
}

func (e *DeleteError) Unwrap() error { return e.Err }

// FileDeleter removes files from the local filesystem.
type FileDeleter struct{}

// Remove stats and removes path.
func (FileDeleter) Remove(path string) (int64, error) {
	info, err := os.Lstat(path)
	if err != nil {
		return 0, err
	}
	if err := os.Remove(path); err != nil {
		return 0, err
	}
	return info.Size(), nil
}

var _ Deleter = FileDeleter{}

// Execute attempts every deletion in plan order. A failed deletion is logged
// and recorded in the summary; it never stops the remaining deletions.
func Execute(plan *Plan, deleter Deleter, logger *slog.Logger) Summary {
	if logger == nil {
		logger = slog.Default()
	}

	s := Summary{
		Folder:    plan.Folder,
		Mode:      plan.Mode,
		Threshold: plan.Threshold,
		Processed: plan.Processed,
		Kept:      len(plan.Kept),
		Skipped:   len(plan.Skipped),
		Groups:    plan.Groups(),
	}

	for _, d := range plan.Deletions {
		n, err := deleter.Remove(d.Path)
		if err != nil {
			logger.Warn("delete failed", "path", d.Path, "error", err)
			s.DeleteFailed++
			s.Failures = append(s.Failures, &DeleteError{Path: d.Path, Err: err})
			continue
		}
		logger.Debug("deleted duplicate", "path", d.Path, "duplicate_of", d.Representative, "distance", d.Distance)
		s.Deleted++
		s.ReclaimedBytes += n
	}
	return s
}
