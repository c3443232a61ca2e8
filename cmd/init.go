package cmd

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jacklau/picdedup/internal/config"
	"github.com/jacklau/picdedup/internal/fingerprint"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Interactive setup for picdedup configuration",
	Long:  `Creates a default configuration file with guided prompts.`,
	RunE:  runInit,
}

func init() {
	rootCmd.AddCommand(initCmd)
}

// initAnswers holds the values gathered by the init prompts.
type initAnswers struct {
	Mode       string
	Threshold  int
	Algorithm  string
	SlackURL   string
	DiscordURL string
}

func prompt(r *bufio.Reader, w io.Writer, question, fallback string) string {
	fmt.Fprint(w, question)
	answer, _ := r.ReadString('\n')
	answer = strings.TrimSpace(answer)
	if answer == "" {
		return fallback
	}
	return answer
}

func runInit(cmd *cobra.Command, args []string) error {
	reader := bufio.NewReader(cmd.InOrStdin())
	out := cmd.OutOrStdout()

	fmt.Fprintln(out, "Welcome to picdedup setup!")
	fmt.Fprintln(out, "This will create a configuration file for you.")
	fmt.Fprintln(out)

	configPath := cfgFile
	if configPath == "" {
		configPath = config.DefaultFile()
	}

	if _, err := os.Stat(configPath); err == nil {
		fmt.Fprintf(out, "Config file already exists at %s\n", configPath)
		answer := prompt(reader, out, "Overwrite? [y/N]: ", "n")
		answer = strings.ToLower(answer)
		if answer != "y" && answer != "yes" {
			fmt.Fprintln(out, "Aborted.")
			return nil
		}
	}

	var a initAnswers
	a.Mode = prompt(reader, out, "Default mode (exact/perceptual) [exact]: ", "exact")
	if _, err := fingerprint.ParseMode(a.Mode); err != nil {
		return err
	}

	a.Threshold = 1
	a.Algorithm = string(fingerprint.DefaultAlgorithm)
	if a.Mode == "perceptual" {
		raw := prompt(reader, out, "Perceptual threshold (max differing bits) [1]: ", "1")
		t, err := strconv.Atoi(raw)
		if err != nil || t < 0 {
			return fmt.Errorf("threshold must be a non-negative integer, got %q", raw)
		}
		a.Threshold = t

		a.Algorithm = prompt(reader, out, "Perceptual hash (phash/ahash/dhash) [phash]: ", a.Algorithm)
		if _, err := fingerprint.ParseAlgorithm(a.Algorithm); err != nil {
			return err
		}
	}

	a.SlackURL = prompt(reader, out, "Slack webhook URL (or press Enter to skip): ", "")
	a.DiscordURL = prompt(reader, out, "Discord webhook URL (or press Enter to skip): ", "")

	content := buildConfigYAML(a)

	if err := os.MkdirAll(filepath.Dir(configPath), 0o755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	if err := os.WriteFile(configPath, []byte(content), 0o600); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}

	fmt.Fprintf(out, "\nConfig written to %s\n", configPath)
	return nil
}

func buildConfigYAML(a initAnswers) string {
	var b strings.Builder

	b.WriteString("# picdedup configuration\n")
	b.WriteString("# Command-line flags override these values.\n\n")

	b.WriteString("dedupe:\n")
	b.WriteString(fmt.Sprintf("  mode: %s\n", a.Mode))
	b.WriteString(fmt.Sprintf("  threshold: %d\n", a.Threshold))
	b.WriteString(fmt.Sprintf("  algorithm: %s\n", a.Algorithm))
	b.WriteString("  workers: 4\n")
	b.WriteString("  # extensions: [.png, .jpg, .jpeg, .webp, .bmp, .tif, .tiff]\n")
	b.WriteString("\n")

	b.WriteString("cache:\n")
	b.WriteString("  enabled: true\n")
	b.WriteString("\n")

	b.WriteString("notify:\n")
	if a.SlackURL != "" {
		b.WriteString(fmt.Sprintf("  slack_webhook: %s\n", a.SlackURL))
	} else {
		b.WriteString("  # slack_webhook: https://hooks.slack.com/services/...\n")
	}
	if a.DiscordURL != "" {
		b.WriteString(fmt.Sprintf("  discord_webhook: %s\n", a.DiscordURL))
	} else {
		b.WriteString("  # discord_webhook: https://discord.com/api/webhooks/...\n")
	}
	b.WriteString("\n")

	b.WriteString("log:\n")
	b.WriteString("  level: info\n")
	b.WriteString("  # file: ~/.picdedup/picdedup.log\n")
	b.WriteString("\n")

	b.WriteString("store:\n")
	b.WriteString("  path: ~/.picdedup/picdedup.db\n")

	return b.String()
}
