package notify

import (
	"fmt"
	"strings"

	"github.com/dustin/go-humanize"

	"github.com/jacklau/picdedup/internal/fingerprint"
	"github.com/jacklau/picdedup/internal/report"
)

// maxFailuresShown caps the failure list in a notification.
const maxFailuresShown = 5

// FormatMode describes the run mode, including the threshold for perceptual runs.
// Example: "perceptual (threshold 3)"
func FormatMode(s report.Summary) string {
	if s.Mode == fingerprint.ModePerceptual {
		return fmt.Sprintf("%s (threshold %d)", s.Mode, s.Threshold)
	}
	return s.Mode.String()
}

// FormatCounts renders the summary counters on one line.
// Example: "Processed 10 | Kept 6 | Deleted 3 | Skipped 1 | Failed 0"
func FormatCounts(s report.Summary) string {
	deleted := "Deleted"
	if s.DryRun {
		deleted = "Would delete"
	}
	return fmt.Sprintf("Processed %d | Kept %d | %s %d | Skipped %d | Failed %d",
		s.Processed, s.Kept, deleted, s.Deleted, s.Skipped, s.DeleteFailed)
}

// FormatReclaimed returns the reclaimed space, or "n/a" for dry runs.
func FormatReclaimed(s report.Summary) string {
	if s.DryRun {
		return "n/a (dry run)"
	}
	return humanize.Bytes(uint64(s.ReclaimedBytes))
}

// FormatFailures lists failed deletions, one per line.
func FormatFailures(failures []*report.DeleteError) string {
	if len(failures) == 0 {
		return "None"
	}
	shown := failures
	if len(shown) > maxFailuresShown {
		shown = shown[:maxFailuresShown]
	}
	parts := make([]string, len(shown))
	for i, f := range shown {
		parts[i] = fmt.Sprintf("- %s: %v", f.Path, f.Err)
	}
	if extra := len(failures) - len(shown); extra > 0 {
		parts = append(parts, fmt.Sprintf("...and %d more", extra))
	}
	return strings.Join(parts, "\n")
}

// Title returns the notification headline for a run.
func Title(s report.Summary) string {
	if s.DryRun {
		return "picdedup dry run finished"
	}
	if s.DeleteFailed > 0 {
		return "picdedup finished with failures"
	}
	return "picdedup finished"
}
