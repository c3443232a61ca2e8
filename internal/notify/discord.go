package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/jacklau/picdedup/internal/report"
	"github.com/jacklau/picdedup/internal/retry"
)

const (
	colorOK      = 3066993  // green
	colorDryRun  = 3447003  // blue
	colorFailure = 15158332 // red
)

// DiscordNotifier sends run summaries to a Discord webhook.
type DiscordNotifier struct {
	webhookURL  string
	client      *http.Client
	maxAttempts int
}

// NewDiscordNotifier creates a DiscordNotifier with the given webhook URL.
func NewDiscordNotifier(webhookURL string) *DiscordNotifier {
	return &DiscordNotifier{
		webhookURL: webhookURL,
		client: &http.Client{
			Timeout: 30 * time.Second,
		},
		maxAttempts: retry.DefaultMaxAttempts,
	}
}

// discordEmbed represents a Discord embed object.
type discordEmbed struct {
	Title  string         `json:"title"`
	Color  int            `json:"color"`
	Fields []discordField `json:"fields"`
	Footer *discordFooter `json:"footer,omitempty"`
}

// discordField represents a field in a Discord embed.
type discordField struct {
	Name   string `json:"name"`
	Value  string `json:"value"`
	Inline bool   `json:"inline"`
}

// discordFooter represents the footer of a Discord embed.
type discordFooter struct {
	Text string `json:"text"`
}

// discordPayload is the top-level Discord webhook payload.
type discordPayload struct {
	Embeds []discordEmbed `json:"embeds"`
}

// BuildDiscordPayload creates the Discord embed message payload for a run summary.
func BuildDiscordPayload(s report.Summary) discordPayload {
	deleted := "Deleted"
	if s.DryRun {
		deleted = "Would delete"
	}

	fields := []discordField{
		{Name: "Mode", Value: FormatMode(s), Inline: true},
		{Name: "Processed", Value: strconv.Itoa(s.Processed), Inline: true},
		{Name: "Kept", Value: strconv.Itoa(s.Kept), Inline: true},
		{Name: deleted, Value: strconv.Itoa(s.Deleted), Inline: true},
		{Name: "Skipped", Value: strconv.Itoa(s.Skipped), Inline: true},
		{Name: "Unique groups", Value: strconv.Itoa(s.Groups), Inline: true},
		{Name: "Reclaimed", Value: FormatReclaimed(s), Inline: true},
	}

	color := colorOK
	switch {
	case s.DeleteFailed > 0:
		color = colorFailure
		fields = append(fields, discordField{
			Name:   "Failed deletions",
			Value:  FormatFailures(s.Failures),
			Inline: false,
		})
	case s.DryRun:
		color = colorDryRun
	}

	embed := discordEmbed{
		Title:  Title(s),
		Color:  color,
		Fields: fields,
		Footer: &discordFooter{
			Text: fmt.Sprintf("picdedup - %s", s.Folder),
		},
	}

	return discordPayload{
		Embeds: []discordEmbed{embed},
	}
}

// Notify sends a Discord notification for the given summary, retrying with
// backoff on failure.
func (d *DiscordNotifier) Notify(ctx context.Context, summary report.Summary) error {
	body, err := json.Marshal(BuildDiscordPayload(summary))
	if err != nil {
		return fmt.Errorf("marshaling discord payload: %w", err)
	}

	if err := retry.Do(ctx, d.maxAttempts, func() error { return d.post(ctx, body) }); err != nil {
		return fmt.Errorf("discord notify failed: %w", err)
	}
	return nil
}

func (d *DiscordNotifier) post(ctx context.Context, body []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.webhookURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := d.client.Do(req)
	if err != nil {
		return fmt.Errorf("sending request: %w", err)
	}
	defer func() {
		io.Copy(io.Discard, resp.Body)
		resp.Body.Close()
	}()

	return checkStatus("discord", resp)
}
