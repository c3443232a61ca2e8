package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/jacklau/picdedup/internal/config"
	"github.com/jacklau/picdedup/internal/fingerprint"
	"github.com/jacklau/picdedup/internal/pipeline"
)

var (
	dedupeMode       string
	dedupeThreshold  int
	dedupeAlgorithm  string
	dedupeWorkers    int
	dedupeExtensions []string
	dedupeDryRun     bool
	dedupeNoCache    bool
	dedupeNotify     string
)

var dedupeCmd = &cobra.Command{
	Use:   "dedupe <folder>",
	Short: "Delete duplicate images in a folder",
	Long: `Scan a folder (non-recursively), group images that are duplicates of an
earlier file in path order, keep the first file of each group and delete the
rest. Use --dry-run to list what would be deleted without touching anything.`,
	Args: cobra.ExactArgs(1),
	RunE: runDedupe,
}

func init() {
	f := dedupeCmd.Flags()
	f.StringVar(&dedupeMode, "mode", "exact", "matching mode: exact or perceptual")
	f.IntVar(&dedupeThreshold, "threshold", 1, "maximum Hamming distance for perceptual matches (inclusive)")
	f.StringVar(&dedupeAlgorithm, "algorithm", string(fingerprint.DefaultAlgorithm), "perceptual hash: phash, ahash or dhash")
	f.IntVar(&dedupeWorkers, "workers", 4, "number of files fingerprinted in parallel")
	f.StringSliceVar(&dedupeExtensions, "ext", nil, "image extensions to include (default .png,.jpg,.jpeg,.webp,.bmp,.tif,.tiff)")
	f.BoolVar(&dedupeDryRun, "dry-run", false, "list planned deletions without deleting")
	f.BoolVar(&dedupeNoCache, "no-cache", false, "ignore cached fingerprints")
	f.StringVar(&dedupeNotify, "notify", "", "send a run summary: slack, discord or both")
	rootCmd.AddCommand(dedupeCmd)
}

// applyDedupeFlags overrides config values with flags the user set explicitly.
func applyDedupeFlags(cmd *cobra.Command, cfg *config.Config) {
	flags := cmd.Flags()
	if flags.Changed("mode") {
		cfg.Dedupe.Mode = dedupeMode
	}
	if flags.Changed("threshold") {
		t := dedupeThreshold
		cfg.Dedupe.Threshold = &t
	}
	if flags.Changed("algorithm") {
		cfg.Dedupe.Algorithm = dedupeAlgorithm
	}
	if flags.Changed("workers") {
		cfg.Dedupe.Workers = dedupeWorkers
	}
	if flags.Changed("ext") {
		cfg.Dedupe.Extensions = dedupeExtensions
	}
	if dedupeNoCache {
		disabled := false
		cfg.Cache.Enabled = &disabled
	}
}

// dedupeOptions validates the merged settings and builds run options.
func dedupeOptions(folder string, cfg *config.Config) (pipeline.Options, error) {
	mode, err := cfg.Dedupe.ModeValue()
	if err != nil {
		return pipeline.Options{}, err
	}
	algorithm, err := fingerprint.ParseAlgorithm(cfg.Dedupe.Algorithm)
	if err != nil {
		return pipeline.Options{}, err
	}
	threshold := cfg.Dedupe.ThresholdValue()
	if threshold < 0 {
		return pipeline.Options{}, fmt.Errorf("threshold must be non-negative, got %d", threshold)
	}
	if cfg.Dedupe.Workers < 1 {
		return pipeline.Options{}, fmt.Errorf("workers must be at least 1, got %d", cfg.Dedupe.Workers)
	}

	return pipeline.Options{
		Folder:     folder,
		Mode:       mode,
		Threshold:  threshold,
		Algorithm:  algorithm,
		Workers:    cfg.Dedupe.Workers,
		Extensions: cfg.Dedupe.Extensions,
		DryRun:     dedupeDryRun,
		NoCache:    !cfg.Cache.CacheEnabled(),
	}, nil
}

func runDedupe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	applyDedupeFlags(cmd, cfg)

	opts, err := dedupeOptions(args[0], cfg)
	if err != nil {
		return err
	}

	logger, closeLog := setupLogger(cfg.Log)
	defer closeLog()

	c, err := initComponents(cfg, logger)
	if err != nil {
		return fmt.Errorf("initializing components: %w", err)
	}
	defer c.Store.Close()

	n, err := createNotifier(cfg, dedupeNotify)
	if err != nil {
		return fmt.Errorf("creating notifier: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	deps := pipeline.PipelineDeps{
		Store:    c.Store,
		Notifier: n,
		Logger:   logger,
	}

	var progress *fingerprintProgress
	if !verbose && isInteractive(os.Stderr) {
		progress = newFingerprintProgress("Fingerprinting", os.Stderr)
		deps.Progress = progress.Update
	}

	result, err := pipeline.New(deps).Run(ctx, opts)
	if progress != nil {
		progress.Finish()
	}
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if opts.DryRun {
		if err := result.Plan.RenderDryRun(out); err != nil {
			return err
		}
		fmt.Fprintln(out)
	}
	if err := result.Summary.Render(out); err != nil {
		return err
	}
	if result.RunID != "" {
		fmt.Fprintf(out, "Run ID: %s (see 'picdedup history %s')\n", result.RunID, shortID(result.RunID))
	}
	return nil
}
