package notifier

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/iulianpascalau/telemetry-monitoring/services/agent/common"
)

// WebhookChannelName is the name under which the webhook channel is registered
const WebhookChannelName = "webhook"

type webhookChannel struct {
	url     string
	headers map[string]string
	client  *http.Client
}

// NewWebhookChannel creates a channel posting the alert as JSON to the provided URL
func NewWebhookChannel(url string, headers map[string]string, timeout time.Duration) (*webhookChannel, error) {
	if len(url) == 0 {
		return nil, fmt.Errorf("%w for the webhook channel", ErrEmptyURL)
	}

	return &webhookChannel{
		url:     url,
		headers: common.CloneStrings(headers),
		client: &http.Client{
			Timeout: timeout,
		},
	}, nil
}

// Name returns the channel name
func (wc *webhookChannel) Name() string {
	return WebhookChannelName
}

// Send posts the alert to the configured URL
func (wc *webhookChannel) Send(ctx context.Context, alert common.AlertEvent) error {
	err := postJSON(ctx, wc.client, wc.url, wc.headers, alert)
	if err != nil {
		return fmt.Errorf("posting to webhook: %w", err)
	}

	return nil
}

// IsInterfaceNil returns true if the value under the interface is nil
func (wc *webhookChannel) IsInterfaceNil() bool {
	return wc == nil
}
