// Package report turns a grouping result into keep/delete decisions, renders
// them, and carries out deletions.
package report

import (
	"fmt"
	"io"

	"github.com/jacklau/picdedup/internal/dedup"
	"github.com/jacklau/picdedup/internal/fingerprint"
)

// Deletion is a duplicate scheduled for removal.
type Deletion struct {
	Path           string
	Representative string
	Distance       int
}

// Skip is a file excluded from grouping because it could not be fingerprinted.
type Skip struct {
	Path string
	Err  error
}

// Plan is the full set of decisions for one run, before anything is deleted.
type Plan struct {
	Folder    string
	Mode      fingerprint.Mode
	Threshold int
	// Processed counts every file found, including skipped ones.
	Processed int
	// Kept holds the representative of every group, in discovery order.
	Kept []string
	// Deletions holds every duplicate, in traversal order.
	Deletions []Deletion
	Skipped   []Skip
}

// NewPlan builds a plan from a grouping result and the files that were
// skipped before grouping.
func NewPlan(folder string, res *dedup.Result, skipped []Skip) *Plan {
	p := &Plan{
		Folder:    folder,
		Mode:      res.Mode,
		Threshold: res.Threshold,
		Processed: len(res.Assignments) + len(skipped),
		Skipped:   skipped,
	}
	for _, rep := range res.Representatives() {
		p.Kept = append(p.Kept, rep.ID)
	}
	for _, a := range res.Duplicates() {
		p.Deletions = append(p.Deletions, Deletion{
			Path:           a.Item.ID,
			Representative: a.Representative,
			Distance:       a.Distance,
		})
	}
	return p
}

// Groups returns the number of distinct groups, which equals the number of
// kept files.
func (p *Plan) Groups() int { return len(p.Kept) }

// DeletionPaths returns the paths of all planned deletions, in order.
func (p *Plan) DeletionPaths() []string {
	out := make([]string, len(p.Deletions))
	for i, d := range p.Deletions {
		out[i] = d.Path
	}
	return out
}

// RenderDryRun lists planned deletions without performing them.
func (p *Plan) RenderDryRun(w io.Writer) error {
	if _, err := fmt.Fprintln(w, "=== DRY RUN ==="); err != nil {
		return err
	}
	for _, d := range p.Deletions {
		if _, err := fmt.Fprintf(w, "DELETE: %s\n", d.Path); err != nil {
			return err
		}
	}
	_, err := fmt.Fprintf(w, "Duplicates found: %d | Unique groups: %d\n", len(p.Deletions), p.Groups())
	return err
}

// DryRunSummary summarizes the plan as if every deletion had succeeded,
// without touching any file.
func (p *Plan) DryRunSummary() Summary {
	return Summary{
		Folder:    p.Folder,
		Mode:      p.Mode,
		Threshold: p.Threshold,
		DryRun:    true,
		Processed: p.Processed,
		Kept:      len(p.Kept),
		Deleted:   len(p.Deletions),
		Skipped:   len(p.Skipped),
		Groups:    p.Groups(),
	}
}
