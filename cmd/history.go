package cmd

import (
	"fmt"
	"io"
	"strconv"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/jacklau/picdedup/internal/store"
)

var historyLimit int

var historyCmd = &cobra.Command{
	Use:   "history [run-id]",
	Short: "Show past runs, or the decisions of one run",
	Long: `Without arguments, list recent runs newest first. With a run ID (or a
unique prefix of one), list every file of that run with the action taken.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runHistory,
}

func init() {
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "n", 20, "maximum number of runs to list (0 for all)")
	rootCmd.AddCommand(historyCmd)
}

func runHistory(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	logger, closeLog := setupLogger(cfg.Log)
	defer closeLog()

	c, err := initComponents(cfg, logger)
	if err != nil {
		return fmt.Errorf("initializing components: %w", err)
	}
	defer c.Store.Close()

	out := cmd.OutOrStdout()

	if len(args) == 1 {
		run, err := c.Store.GetRun(args[0])
		if err != nil {
			return err
		}
		decisions, err := c.Store.GetDecisions(run.ID)
		if err != nil {
			return fmt.Errorf("loading decisions: %w", err)
		}
		renderRunDetail(out, run, decisions)
		return nil
	}

	runs, err := c.Store.ListRuns(historyLimit)
	if err != nil {
		return fmt.Errorf("listing runs: %w", err)
	}
	if len(runs) == 0 {
		fmt.Fprintln(out, "No runs recorded yet.")
		fmt.Fprintln(out, "Run 'picdedup dedupe <folder>' to get started.")
		return nil
	}
	renderRuns(out, runs)
	return nil
}

// shortID returns the first block of a run ID, which is enough to look it up.
func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func modeLabel(mode string, threshold int) string {
	if mode == "perceptual" {
		return fmt.Sprintf("%s/%d", mode, threshold)
	}
	return mode
}

func renderRuns(w io.Writer, runs []store.Run) {
	tw := table.NewWriter()
	tw.SetOutputMirror(w)
	tw.SetStyle(table.StyleRounded)
	tw.AppendHeader(table.Row{"Run", "Folder", "Mode", "Processed", "Kept", "Deleted", "Skipped", "Failed", "When"})
	for _, r := range runs {
		deleted := strconv.Itoa(r.Deleted)
		if r.DryRun {
			deleted += " (dry)"
		}
		tw.AppendRow(table.Row{
			shortID(r.ID), r.Folder, modeLabel(r.Mode, r.Threshold),
			r.Processed, r.Kept, deleted, r.Skipped, r.DeleteFailed,
			formatTimeAgo(r.StartedAt),
		})
	}
	tw.Render()
}

func renderRunDetail(w io.Writer, run *store.Run, decisions []store.Decision) {
	fmt.Fprintf(w, "Run:       %s\n", run.ID)
	fmt.Fprintf(w, "Folder:    %s\n", run.Folder)
	fmt.Fprintf(w, "Mode:      %s (%s)\n", modeLabel(run.Mode, run.Threshold), run.Algorithm)
	fmt.Fprintf(w, "Started:   %s\n", run.StartedAt.Local().Format("2006-01-02 15:04:05"))
	if run.DryRun {
		fmt.Fprintln(w, "Dry run:   yes")
	}
	fmt.Fprintln(w)

	tw := table.NewWriter()
	tw.SetOutputMirror(w)
	tw.SetStyle(table.StyleRounded)
	tw.AppendHeader(table.Row{"#", "Action", "File", "Duplicate of", "Distance", "Error"})
	for _, d := range decisions {
		distance := ""
		if d.Representative != "" {
			distance = strconv.Itoa(d.Distance)
		}
		tw.AppendRow(table.Row{d.Seq + 1, d.Action, d.Path, d.Representative, distance, d.Error})
	}
	tw.Render()
}
