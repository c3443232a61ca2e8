package cmd

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	slogmulti "github.com/samber/slog-multi"
	"github.com/spf13/cobra"

	"github.com/jacklau/picdedup/internal/config"
	"github.com/jacklau/picdedup/internal/notify"
	"github.com/jacklau/picdedup/internal/scan"
	"github.com/jacklau/picdedup/internal/store"
)

// Exit codes.
const (
	exitOK         = 0
	exitFailure    = 1
	exitSetupError = 2
)

var (
	cfgFile string
	verbose bool
)

var rootCmd = &cobra.Command{
	Use:   "picdedup",
	Short: "Find and delete duplicate images in a folder",
	Long: `picdedup finds duplicate images in a single folder, either byte-for-byte
(exact mode) or by visual similarity within a Hamming distance threshold
(perceptual mode), keeps the first file of each group and deletes the rest.`,
	SilenceUsage: true,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

// ExitCode maps an error returned by Execute to a process exit code.
func ExitCode(err error) int {
	if err == nil {
		return exitOK
	}
	var setupErr *scan.SetupError
	if errors.As(err, &setupErr) {
		return exitSetupError
	}
	return exitFailure
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default "+config.DefaultPath+")")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose output")
}

func logLevel(cfg config.LogConfig) slog.Level {
	if verbose {
		return slog.LevelDebug
	}
	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
		return slog.LevelInfo
	}
	return level
}

// newLogger builds a JSON logger on stderr, fanned out to file when non-nil.
func newLogger(stderr, file io.Writer, level slog.Level) *slog.Logger {
	opts := &slog.HandlerOptions{Level: level}
	stderrHandler := slog.NewJSONHandler(stderr, opts)
	if file == nil {
		return slog.New(stderrHandler)
	}
	return slog.New(slogmulti.Fanout(stderrHandler, slog.NewJSONHandler(file, opts)))
}

// setupLogger creates the process logger. The returned cleanup closes the
// log file, if any.
func setupLogger(cfg config.LogConfig) (*slog.Logger, func()) {
	level := logLevel(cfg)
	if cfg.File == "" {
		return newLogger(os.Stderr, nil, level), func() {}
	}

	if err := os.MkdirAll(filepath.Dir(cfg.File), 0o755); err == nil {
		f, err := os.OpenFile(cfg.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err == nil {
			return newLogger(os.Stderr, f, level), func() { f.Close() }
		}
	}

	logger := newLogger(os.Stderr, nil, level)
	logger.Warn("failed to open log file, logging to stderr only", "file", cfg.File)
	return logger, func() {}
}

func loadConfig() (*config.Config, error) {
	if cfgFile != "" {
		return config.Load(cfgFile, false)
	}
	return config.Load(config.DefaultPath, true)
}

// components holds initialized components for use by subcommands.
type components struct {
	Config *config.Config
	Store  *store.DB
	Logger *slog.Logger
}

// initComponents opens the store described by cfg.
func initComponents(cfg *config.Config, logger *slog.Logger) (*components, error) {
	db, err := store.Open(cfg.Store.Path)
	if err != nil {
		return nil, fmt.Errorf("opening store: %w", err)
	}
	return &components{Config: cfg, Store: db, Logger: logger}, nil
}

// createNotifier builds a Notifier from config and flag override.
func createNotifier(cfg *config.Config, notifyFlag string) (notify.Notifier, error) {
	notifyType := notifyFlag
	if notifyType == "" {
		hasSlack := cfg.Notify.SlackWebhook != ""
		hasDiscord := cfg.Notify.DiscordWebhook != ""
		switch {
		case hasSlack && hasDiscord:
			notifyType = "both"
		case hasSlack:
			notifyType = "slack"
		case hasDiscord:
			notifyType = "discord"
		default:
			return nil, nil // no notification configured
		}
	}

	return notify.NewNotifier(notifyType, cfg.Notify.SlackWebhook, cfg.Notify.DiscordWebhook)
}
