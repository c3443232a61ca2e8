package report

import (
	"fmt"
	"io"

	"github.com/dustin/go-humanize"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/jacklau/picdedup/internal/fingerprint"
)

// Summary is the final accounting of a run.
type Summary struct {
	Folder    string
	Mode      fingerprint.Mode
	Threshold int
	// DryRun summaries count planned deletions in Deleted.
	DryRun bool

	Processed    int
	Kept         int
	Deleted      int
	Skipped      int
	DeleteFailed int
	Groups       int

	ReclaimedBytes int64
	Failures       []*DeleteError
}

// Reconcile checks that every processed file is accounted for exactly once.
func (s Summary) Reconcile() error {
	sum := s.Kept + s.Deleted + s.Skipped + s.DeleteFailed
	if sum != s.Processed {
		return fmt.Errorf("summary does not reconcile: processed %d != kept %d + deleted %d + skipped %d + delete-failed %d",
			s.Processed, s.Kept, s.Deleted, s.Skipped, s.DeleteFailed)
	}
	return nil
}

// Line returns the one-line result.
func (s Summary) Line() string {
	if s.DryRun {
		return fmt.Sprintf("DRY RUN - Kept: %d | Would delete: %d | Unique groups: %d", s.Kept, s.Deleted, s.Groups)
	}
	return fmt.Sprintf("OK - Kept: %d | Deleted: %d | Unique groups: %d", s.Kept, s.Deleted, s.Groups)
}

// Render writes a summary table followed by the result line and any
// deletion failures.
func (s Summary) Render(w io.Writer) error {
	deletedLabel := "Deleted"
	if s.DryRun {
		deletedLabel = "Would delete"
	}

	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)
	tw.AppendHeader(table.Row{"Result", "Value"})
	mode := s.Mode.String()
	if s.Mode == fingerprint.ModePerceptual {
		mode = fmt.Sprintf("%s (threshold %d)", mode, s.Threshold)
	}
	tw.AppendRows([]table.Row{
		{"Folder", s.Folder},
		{"Mode", mode},
		{"Processed", s.Processed},
		{"Kept", s.Kept},
		{deletedLabel, s.Deleted},
		{"Skipped", s.Skipped},
		{"Delete failed", s.DeleteFailed},
		{"Unique groups", s.Groups},
	})
	if !s.DryRun {
		tw.AppendRow(table.Row{"Reclaimed", humanize.Bytes(uint64(s.ReclaimedBytes))})
	}
	tw.SetColumnConfigs([]table.ColumnConfig{
		{Number: 1, Align: text.AlignLeft},
		{Number: 2, Align: text.AlignRight, AlignHeader: text.AlignLeft},
	})

	if _, err := fmt.Fprintln(w, tw.Render()); err != nil {
		return err
	}
	if _, err := fmt.Fprintln(w, s.Line()); err != nil {
		return err
	}
	for _, f := range s.Failures {
		if _, err := fmt.Fprintf(w, "FAILED: %s (%v)\n", f.Path, f.Err); err != nil {
			return err
		}
	}
	return nil
}
