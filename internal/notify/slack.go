package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/jacklau/picdedup/internal/report"
	"github.com/jacklau/picdedup/internal/retry"
)

// SlackNotifier sends run summaries to a Slack webhook.
type SlackNotifier struct {
	webhookURL  string
	client      *http.Client
	maxAttempts int
}

// NewSlackNotifier creates a SlackNotifier with the given webhook URL.
func NewSlackNotifier(webhookURL string) *SlackNotifier {
	return &SlackNotifier{
		webhookURL: webhookURL,
		client: &http.Client{
			Timeout: 10 * time.Second,
		},
		maxAttempts: retry.DefaultMaxAttempts,
	}
}

// slackBlock represents a Slack Block Kit block.
type slackBlock struct {
	Type string     `json:"type"`
	Text *slackText `json:"text,omitempty"`
}

// slackText represents a text object in Slack Block Kit.
type slackText struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// slackPayload is the top-level Slack message payload.
type slackPayload struct {
	Blocks []slackBlock `json:"blocks"`
}

func mrkdwn(format string, args ...any) slackBlock {
	return slackBlock{
		Type: "section",
		Text: &slackText{Type: "mrkdwn", Text: fmt.Sprintf(format, args...)},
	}
}

// BuildSlackPayload creates the Slack Block Kit message payload for a run summary.
func BuildSlackPayload(s report.Summary) slackPayload {
	blocks := []slackBlock{
		{
			Type: "header",
			Text: &slackText{
				Type: "plain_text",
				Text: Title(s),
			},
		},
		mrkdwn(":file_folder: *Folder:* `%s`", s.Folder),
		mrkdwn("*Mode:* %s", FormatMode(s)),
		mrkdwn("*Result:* %s\n*Unique groups:* %d\n*Reclaimed:* %s", FormatCounts(s), s.Groups, FormatReclaimed(s)),
	}

	if len(s.Failures) > 0 {
		blocks = append(blocks, mrkdwn("*Failed deletions:*\n%s", FormatFailures(s.Failures)))
	}

	return slackPayload{Blocks: blocks}
}

// Notify sends a Slack notification for the given summary, retrying with
// backoff on failure.
func (s *SlackNotifier) Notify(ctx context.Context, summary report.Summary) error {
	body, err := json.Marshal(BuildSlackPayload(summary))
	if err != nil {
		return fmt.Errorf("marshaling slack payload: %w", err)
	}

	if err := retry.Do(ctx, s.maxAttempts, func() error { return s.post(ctx, body) }); err != nil {
		return fmt.Errorf("slack notify failed: %w", err)
	}
	return nil
}

func (s *SlackNotifier) post(ctx context.Context, body []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.webhookURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("sending request: %w", err)
	}
	defer resp.Body.Close()

	return checkStatus("slack", resp)
}
