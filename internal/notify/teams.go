// Package notify delivers pipeline status reports to a chat-ops channel
// via a Teams incoming webhook.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"path"
	"time"

	"github.com/ignite/pos-harmonizer/internal/pkg/logger"
	"github.com/ignite/pos-harmonizer/internal/validate"
)

// MessageCard is the legacy Teams webhook payload format.
type MessageCard struct {
	Title      string    `json:"title"`
	Text       string    `json:"text"`
	Sections   []Section `json:"sections"`
	ThemeColor string    `json:"themeColor"`
}

// Section is one activity block inside a MessageCard.
type Section struct {
	ActivityTitle    string `json:"activityTitle"`
	ActivitySubtitle string `json:"activitySubtitle"`
	Facts            []Fact `json:"facts"`
	Markdown         bool   `json:"markdown"`
}

// Fact is a name/value row rendered in the card.
type Fact struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// TeamsNotifier posts validation verdicts to a Teams webhook. An empty
// webhook URL disables delivery; reports are then logged and dropped.
type TeamsNotifier struct {
	webhookURL string
	client     *http.Client
	now        func() time.Time
}

// NewTeamsNotifier creates a notifier for the given webhook URL.
func NewTeamsNotifier(webhookURL string) *TeamsNotifier {
	return &TeamsNotifier{
		webhookURL: webhookURL,
		client:     &http.Client{Timeout: 10 * time.Second},
		now:        time.Now,
	}
}

// Report sends one verdict to the channel. artifact is the blob name the
// verdict was produced for; detail carries extra failure context (fetch or
// decode problems) and may be empty.
func (n *TeamsNotifier) Report(ctx context.Context, v validate.Verdict, artifact, detail string) error {
	if n.webhookURL == "" {
		logger.Warn("teams webhook URL is not configured, skipping notification",
			"device_id", v.DeviceID, "status", v.Status())
		return nil
	}

	statusText := "SUCCESSFUL PROCESSING"
	color := "00FF00"
	if !v.Valid {
		statusText = "VALIDATION FAILED"
		color = "FF0000"
	}

	details := fmt.Sprintf("Artifact path: %s", artifact)
	if !v.Valid {
		reason := string(v.Reason)
		if detail != "" {
			reason = fmt.Sprintf("%s (%s)", reason, detail)
		}
		details = fmt.Sprintf("FAILURE REASON: %s. %s", reason, details)
	}

	card := MessageCard{
		Title:      fmt.Sprintf("ETL Pipeline: Status %s", statusText),
		Text:       fmt.Sprintf("Processing report for artifact %s.", path.Base(artifact)),
		ThemeColor: color,
		Sections: []Section{
			{
				ActivityTitle:    fmt.Sprintf("Device %s", v.DeviceID),
				ActivitySubtitle: fmt.Sprintf("Generated: %s", n.now().UTC().Format(time.RFC3339)),
				Facts: []Fact{
					{Name: "Final Status:", Value: statusText},
					{Name: "Total Revenue (Summary):", Value: fmt.Sprintf("%.2f", v.Revenue)},
					{Name: "Details:", Value: details},
				},
				Markdown: true,
			},
		},
	}

	payload, err := json.Marshal(card)
	if err != nil {
		return fmt.Errorf("marshaling Teams payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.webhookURL, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("building Teams request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("posting Teams notification: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return fmt.Errorf("teams webhook returned status %d", resp.StatusCode)
	}

	logger.Info("teams notification sent", "device_id", v.DeviceID, "status", v.Status())
	return nil
}
