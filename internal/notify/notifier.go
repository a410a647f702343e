// Package notify fans announcements and incident alerts out to the neighborhood
// channels (WhatsApp gateway, MQTT). Delivery is fire-and-forget: failures are
// logged and never reach the request that triggered them.
package notify

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Message kinds
const (
	KindIncident = "incident"
	KindBulletin = "bulletin"
)

// Message 推送内容
type Message struct {
	Kind        string    `json:"kind"`
	Title       string    `json:"title"`
	Body        string    `json:"body"`
	Subdivision string    `json:"subdivision,omitempty"`
	SentAt      time.Time `json:"sent_at"`
}

// Text renders the message for plain-text channels.
func (m Message) Text() string {
	prefix := ""
	if m.Kind == KindIncident {
		prefix = "[DARURAT] "
	}
	if m.Subdivision != "" {
		return fmt.Sprintf("%s%s (RT %s)\n%s", prefix, m.Title, m.Subdivision, m.Body)
	}
	return fmt.Sprintf("%s%s\n%s", prefix, m.Title, m.Body)
}

type Notifier interface {
	Broadcast(ctx context.Context, msg Message) error
}

// Noop 未配置任何通道时使用
type Noop struct{}

func (Noop) Broadcast(context.Context, Message) error { return nil }

// Multi sends to every channel and joins the errors.
type Multi []Notifier

func (m Multi) Broadcast(ctx context.Context, msg Message) error {
	var errs []error
	for _, n := range m {
		if err := n.Broadcast(ctx, msg); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Dispatcher 异步投递
type Dispatcher struct {
	notifier Notifier
	logger   *zap.Logger
	timeout  time.Duration
	wg       sync.WaitGroup
}

func NewDispatcher(n Notifier, logger *zap.Logger) *Dispatcher {
	if n == nil {
		n = Noop{}
	}
	return &Dispatcher{notifier: n, logger: logger, timeout: 15 * time.Second}
}

// Fire delivers msg in the background. The request context only contributes values;
// its cancellation does not abort delivery.
func (d *Dispatcher) Fire(ctx context.Context, msg Message) {
	if msg.SentAt.IsZero() {
		msg.SentAt = time.Now().UTC()
	}
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		sendCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), d.timeout)
		defer cancel()
		if err := d.notifier.Broadcast(sendCtx, msg); err != nil {
			d.logger.Warn("Broadcast failed",
				zap.String("kind", msg.Kind),
				zap.String("title", msg.Title),
				zap.Error(err),
			)
		}
	}()
}

// Wait blocks until every fired message has been attempted.
func (d *Dispatcher) Wait() { d.wg.Wait() }
