package notifier

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/iulianpascalau/telemetry-monitoring/services/agent/common"
)

// SlackChannelName is the name under which the slack channel is registered
const SlackChannelName = "slack"

type slackChannel struct {
	webhookURL string
	channel    string
	username   string
	client     *http.Client
}

type slackMessage struct {
	Channel  string       `json:"channel,omitempty"`
	Username string       `json:"username,omitempty"`
	Blocks   []slackBlock `json:"blocks"`
}

type slackBlock struct {
	Type string     `json:"type"`
	Text *slackText `json:"text,omitempty"`
}

type slackText struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// NewSlackChannel creates a channel posting block kit messages to a slack incoming webhook
func NewSlackChannel(webhookURL string, channel string, username string, timeout time.Duration) (*slackChannel, error) {
	if len(webhookURL) == 0 {
		return nil, fmt.Errorf("%w for the slack channel", ErrEmptyURL)
	}

	return &slackChannel{
		webhookURL: webhookURL,
		channel:    channel,
		username:   username,
		client: &http.Client{
			Timeout: timeout,
		},
	}, nil
}

// Name returns the channel name
func (sc *slackChannel) Name() string {
	return SlackChannelName
}

// Send posts the alert to the webhook
func (sc *slackChannel) Send(ctx context.Context, alert common.AlertEvent) error {
	err := postJSON(ctx, sc.client, sc.webhookURL, nil, sc.buildMessage(alert))
	if err != nil {
		return fmt.Errorf("posting to slack webhook: %w", err)
	}

	return nil
}

func (sc *slackChannel) buildMessage(alert common.AlertEvent) slackMessage {
	text := fmt.Sprintf("%s *[%s]* %s\n_%s_",
		severityEmoji(alert.Severity),
		strings.ToUpper(string(alert.Severity)),
		alert.Message,
		common.FromMillis(alert.Timestamp).UTC().Format("2006-01-02 15:04 UTC"),
	)

	return slackMessage{
		Channel:  sc.channel,
		Username: sc.username,
		Blocks: []slackBlock{
			{
				Type: "header",
				Text: &slackText{Type: "plain_text", Text: "Monitoring alert"},
			},
			{
				Type: "section",
				Text: &slackText{Type: "mrkdwn", Text: text},
			},
		},
	}
}

func severityEmoji(severity common.Severity) string {
	switch severity {
	case common.SeverityCritical:
		return "\U0001f6a8"
	case common.SeverityHigh:
		return "\U0001f534"
	case common.SeverityMedium:
		return "\U0001f7e1"
	case common.SeverityLow:
		return "\U0001f535"
	default:
		return "❓"
	}
}

// IsInterfaceNil returns true if the value under the interface is nil
func (sc *slackChannel) IsInterfaceNil() bool {
	return sc == nil
}
