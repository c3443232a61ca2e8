// Package pipeline runs one deduplication pass over a folder: list, fingerprint,
// group, decide, delete, record.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/gofrs/flock"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/jacklau/picdedup/internal/dedup"
	"github.com/jacklau/picdedup/internal/fingerprint"
	"github.com/jacklau/picdedup/internal/notify"
	"github.com/jacklau/picdedup/internal/report"
	"github.com/jacklau/picdedup/internal/scan"
	"github.com/jacklau/picdedup/internal/store"
)

// ErrFolderLocked is returned when another run holds the folder lock.
var ErrFolderLocked = errors.New("folder is locked by another picdedup run")

// Options configures a single run.
type Options struct {
	Folder     string
	Mode       fingerprint.Mode
	Threshold  int
	Algorithm  fingerprint.Algorithm
	Workers    int
	Extensions []string
	DryRun     bool
	NoCache    bool
}

// PipelineDeps holds the dependencies for the Pipeline. Only Logger has a
// usable zero value; everything else is optional.
type PipelineDeps struct {
	// Hasher overrides the hasher built from Options.
	Hasher   fingerprint.Hasher
	Store    store.Store
	Deleter  report.Deleter
	Notifier notify.Notifier
	// Progress is called after each file is fingerprinted. Calls are serialized.
	Progress func(done, total int)
	// LockDir holds per-folder lock files. Defaults to os.TempDir().
	LockDir string
	Logger  *slog.Logger
}

// Result is the outcome of a run.
type Result struct {
	RunID     string
	Plan      *report.Plan
	Summary   report.Summary
	Decisions []store.Decision
}

// Pipeline orchestrates the dedupe workflow.
type Pipeline struct {
	deps PipelineDeps
}

// New creates a new Pipeline with the given dependencies.
func New(deps PipelineDeps) *Pipeline {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if deps.Deleter == nil {
		deps.Deleter = report.FileDeleter{}
	}
	if deps.LockDir == "" {
		deps.LockDir = os.TempDir()
	}
	return &Pipeline{deps: deps}
}

// Run performs one pass over opts.Folder. Setup failures are returned as
// *scan.SetupError. Per-file fingerprint and delete failures are reported in
// the summary and never abort the run.
func (p *Pipeline) Run(ctx context.Context, opts Options) (*Result, error) {
	started := time.Now()

	folder, err := filepath.Abs(opts.Folder)
	if err != nil {
		return nil, &scan.SetupError{Folder: opts.Folder, Err: err}
	}
	logger := p.deps.Logger.With("folder", folder, "mode", opts.Mode.String())

	unlock, err := p.lock(folder)
	if err != nil {
		return nil, err
	}
	defer unlock()

	exts := opts.Extensions
	if len(exts) == 0 {
		exts = scan.DefaultExtensions
	}
	entries, err := scan.List(folder, exts)
	if err != nil {
		return nil, err
	}
	logger.Info("scanning folder", "files", len(entries))

	hasher, err := p.hasher(opts)
	if err != nil {
		return nil, err
	}

	items, skipped, err := p.fingerprintAll(ctx, hasher, entries, opts.Workers, logger)
	if err != nil {
		return nil, err
	}

	engine := dedup.NewEngine(dedup.WithMode(opts.Mode), dedup.WithThreshold(opts.Threshold))
	grouped, err := engine.Group(items)
	if err != nil {
		return nil, fmt.Errorf("grouping: %w", err)
	}

	plan := report.NewPlan(folder, grouped, skipped)

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var summary report.Summary
	if opts.DryRun {
		summary = plan.DryRunSummary()
	} else {
		summary = report.Execute(plan, p.deps.Deleter, logger)
	}
	if err := summary.Reconcile(); err != nil {
		return nil, err
	}

	logger.Info("run finished",
		"processed", summary.Processed,
		"kept", summary.Kept,
		"deleted", summary.Deleted,
		"skipped", summary.Skipped,
		"delete_failed", summary.DeleteFailed,
		"dry_run", opts.DryRun,
		"duration", time.Since(started),
	)

	result := &Result{
		Plan:      plan,
		Summary:   summary,
		Decisions: buildDecisions(entries, grouped, skipped, summary),
	}

	if p.deps.Store != nil {
		p.record(result, opts, hasher.Name(), started, logger)
	}

	if p.deps.Notifier != nil {
		if err := p.deps.Notifier.Notify(ctx, summary); err != nil {
			logger.Warn("notification failed", "error", err)
		}
	}

	return result, nil
}

// lock takes an advisory lock for folder so two runs never delete in the same
// folder at once.
func (p *Pipeline) lock(folder string) (func(), error) {
	name := "picdedup-" + uuid.NewSHA1(uuid.NameSpaceURL, []byte("file://"+folder)).String() + ".lock"
	fl := flock.New(filepath.Join(p.deps.LockDir, name))

	ok, err := fl.TryLock()
	if err != nil {
		return nil, &scan.SetupError{Folder: folder, Err: fmt.Errorf("acquiring lock: %w", err)}
	}
	if !ok {
		return nil, &scan.SetupError{Folder: folder, Err: ErrFolderLocked}
	}
	return func() { fl.Unlock() }, nil
}

func (p *Pipeline) hasher(opts Options) (fingerprint.Hasher, error) {
	if p.deps.Hasher != nil {
		if p.deps.Hasher.Mode() != opts.Mode {
			return nil, fmt.Errorf("hasher mode %s does not match run mode %s", p.deps.Hasher.Mode(), opts.Mode)
		}
		return p.deps.Hasher, nil
	}

	var h fingerprint.Hasher
	switch opts.Mode {
	case fingerprint.ModeExact:
		h = fingerprint.NewContentHasher()
	case fingerprint.ModePerceptual:
		ph, err := fingerprint.NewPerceptualHasher(opts.Algorithm)
		if err != nil {
			return nil, err
		}
		h = ph
	default:
		return nil, fmt.Errorf("unsupported mode %s", opts.Mode)
	}

	if p.deps.Store != nil && !opts.NoCache {
		h = fingerprint.NewCachedHasher(h, p.deps.Store, p.deps.Logger)
	}
	return h, nil
}

type slot struct {
	fp  fingerprint.Fingerprint
	err error
}

// fingerprintAll hashes entries in parallel. Results land in per-entry slots
// so traversal order is kept. Files that fail to hash become skips; only
// cancellation is fatal.
func (p *Pipeline) fingerprintAll(ctx context.Context, h fingerprint.Hasher, entries []scan.Entry, workers int, logger *slog.Logger) ([]dedup.Item, []report.Skip, error) {
	if workers <= 0 {
		workers = 1
	}

	slots := make([]slot, len(entries))
	var mu sync.Mutex
	done := 0

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, e := range entries {
		g.Go(func() error {
			fp, err := h.Hash(gctx, e.Path)
			if err != nil && (errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)) {
				return err
			}
			slots[i] = slot{fp: fp, err: err}

			if p.deps.Progress != nil {
				mu.Lock()
				done++
				p.deps.Progress(done, len(entries))
				mu.Unlock()
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}

	items := make([]dedup.Item, 0, len(entries))
	var skipped []report.Skip
	for i, e := range entries {
		if err := slots[i].err; err != nil {
			logger.Warn("skipping unreadable file", "path", e.Path, "error", err)
			skipped = append(skipped, report.Skip{Path: e.Path, Err: err})
			continue
		}
		items = append(items, dedup.Item{ID: e.Path, Fingerprint: slots[i].fp})
	}
	return items, skipped, nil
}

// buildDecisions lists one decision per scanned file, in traversal order.
func buildDecisions(entries []scan.Entry, grouped *dedup.Result, skipped []report.Skip, summary report.Summary) []store.Decision {
	assigned := make(map[string]dedup.Assignment, len(grouped.Assignments))
	for _, a := range grouped.Assignments {
		assigned[a.Item.ID] = a
	}
	skipErr := make(map[string]error, len(skipped))
	for _, s := range skipped {
		skipErr[s.Path] = s.Err
	}
	failed := make(map[string]error, len(summary.Failures))
	for _, f := range summary.Failures {
		failed[f.Path] = f.Err
	}

	decisions := make([]store.Decision, 0, len(entries))
	for i, e := range entries {
		d := store.Decision{Seq: i, Path: e.Path}

		if err, ok := skipErr[e.Path]; ok {
			d.Action = store.ActionSkip
			d.Error = err.Error()
			decisions = append(decisions, d)
			continue
		}

		a := assigned[e.Path]
		if !a.Duplicate {
			d.Action = store.ActionKeep
			decisions = append(decisions, d)
			continue
		}

		d.Representative = a.Representative
		d.Distance = a.Distance
		switch err, ok := failed[e.Path]; {
		case ok:
			d.Action = store.ActionDeleteFailed
			d.Error = err.Error()
		case summary.DryRun:
			d.Action = store.ActionWouldDelete
		default:
			d.Action = store.ActionDelete
		}
		decisions = append(decisions, d)
	}
	return decisions
}

// record stores the run in history and drops cache entries for deleted files.
// Storage failures are logged; the files are already gone.
func (p *Pipeline) record(res *Result, opts Options, algorithm string, started time.Time, logger *slog.Logger) {
	s := res.Summary
	run := &store.Run{
		Folder:         s.Folder,
		Mode:           s.Mode.String(),
		Algorithm:      algorithm,
		Threshold:      s.Threshold,
		DryRun:         s.DryRun,
		Processed:      s.Processed,
		Kept:           s.Kept,
		Deleted:        s.Deleted,
		Skipped:        s.Skipped,
		DeleteFailed:   s.DeleteFailed,
		Groups:         s.Groups,
		ReclaimedBytes: s.ReclaimedBytes,
		StartedAt:      started,
		FinishedAt:     time.Now(),
	}
	if err := p.deps.Store.RecordRun(run, res.Decisions); err != nil {
		logger.Error("failed to record run", "error", err)
		return
	}
	res.RunID = run.ID

	if opts.DryRun {
		return
	}
	var gone []string
	for _, d := range res.Decisions {
		if d.Action == store.ActionDelete {
			gone = append(gone, d.Path)
		}
	}
	if err := p.deps.Store.DeleteFingerprints(gone); err != nil {
		logger.Warn("failed to prune fingerprint cache", "error", err)
	}
}
