package notify

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
)

// WebhookBroadcaster 通过 HTTP 网关（WhatsApp 群）推送
type WebhookBroadcaster struct {
	httpClient *resty.Client
	url        string
	target     string
	logger     *zap.Logger
}

type webhookRequest struct {
	Target  string  `json:"target"`
	Message string  `json:"message"`
	Meta    Message `json:"meta"`
}

// NewWebhookBroadcaster 创建网关客户端
func NewWebhookBroadcaster(url, token, target string, logger *zap.Logger) *WebhookBroadcaster {
	client := resty.New().
		SetTimeout(10*time.Second).
		SetRetryCount(2).
		SetRetryWaitTime(500*time.Millisecond).
		SetRetryMaxWaitTime(2*time.Second).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json")
	if token != "" {
		client.SetHeader("Authorization", token)
	}
	return &WebhookBroadcaster{httpClient: client, url: url, target: target, logger: logger}
}

func (w *WebhookBroadcaster) Broadcast(ctx context.Context, msg Message) error {
	resp, err := w.httpClient.R().
		SetContext(ctx).
		SetBody(webhookRequest{Target: w.target, Message: msg.Text(), Meta: msg}).
		Post(w.url)
	if err != nil {
		return fmt.Errorf("failed to call broadcast gateway: %w", err)
	}
	if resp.IsError() {
		return fmt.Errorf("broadcast gateway returned %d", resp.StatusCode())
	}
	w.logger.Debug("Broadcast delivered",
		zap.String("kind", msg.Kind),
		zap.Int("status_code", resp.StatusCode()),
	)
	return nil
}
