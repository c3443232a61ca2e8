package cmd

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/jacklau/picdedup/internal/store"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show store statistics",
	Long: `Display statistics about deduplicated folders including run counts,
files deleted, space reclaimed, cached fingerprints, and database size.`,
	Args: cobra.NoArgs,
	RunE: runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) error {
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

	allStats, err := c.Store.GetAllFolderStats()
	if err != nil {
		return fmt.Errorf("querying stats: %w", err)
	}

	if len(allStats) == 0 {
		fmt.Fprintln(out, "No folders deduplicated yet.")
		fmt.Fprintln(out, "Run 'picdedup dedupe <folder>' to get started.")
	} else {
		renderFolderStats(out, allStats)
	}

	counts, err := c.Store.CountFingerprints()
	if err != nil {
		return fmt.Errorf("counting fingerprints: %w", err)
	}

	fmt.Fprintln(out)
	fmt.Fprintf(out, "Cached fingerprints: %d exact, %d perceptual\n", counts["exact"], counts["perceptual"])
	dbSize, err := dbFileSize(cfg.Store.Path)
	if err != nil {
		fmt.Fprintf(out, "Database: %s (size unknown)\n", cfg.Store.Path)
	} else {
		fmt.Fprintf(out, "Database: %s (%s)\n", cfg.Store.Path, humanize.Bytes(uint64(dbSize)))
	}

	return nil
}

func renderFolderStats(w io.Writer, stats []store.FolderStats) {
	tw := table.NewWriter()
	tw.SetOutputMirror(w)
	tw.SetStyle(table.StyleRounded)
	tw.AppendHeader(table.Row{"Folder", "Runs", "Deleted", "Reclaimed", "Last run"})

	var totalRuns, totalDeleted int
	var totalBytes int64
	for _, s := range stats {
		lastRun := "never"
		if s.Folder.LastRunAt != nil {
			lastRun = formatTimeAgo(*s.Folder.LastRunAt)
		}
		tw.AppendRow(table.Row{
			s.Folder.Path, s.Runs, s.Deleted, humanize.Bytes(uint64(s.ReclaimedBytes)), lastRun,
		})
		totalRuns += s.Runs
		totalDeleted += s.Deleted
		totalBytes += s.ReclaimedBytes
	}

	if len(stats) > 1 {
		tw.AppendFooter(table.Row{"Total", totalRuns, totalDeleted, humanize.Bytes(uint64(totalBytes)), ""})
	}
	tw.Render()
}

// formatTimeAgo formats a time as a human-readable relative string.
func formatTimeAgo(t time.Time) string {
	d := time.Since(t)

	switch {
	case d < time.Minute:
		return "just now"
	case d < time.Hour:
		mins := int(d.Minutes())
		if mins == 1 {
			return "1 minute ago"
		}
		return fmt.Sprintf("%d minutes ago", mins)
	case d < 24*time.Hour:
		hours := int(d.Hours())
		if hours == 1 {
			return "1 hour ago"
		}
		return fmt.Sprintf("%d hours ago", hours)
	default:
		days := int(d.Hours() / 24)
		if days == 1 {
			return "1 day ago"
		}
		return fmt.Sprintf("%d days ago", days)
	}
}

// dbFileSize returns the size in bytes of the database file.
func dbFileSize(path string) (int64, error) {
	info, err := os.Stat(path)
	if err != nil {
		return 0, err
	}
	return info.Size(), nil
}
