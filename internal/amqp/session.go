package amqp

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/rabbitmq/amqp091-go"

	"ledgerlite/internal/session"
)

// Notifier receives session changes made on other instances.
// *session.Hub implements it.
type Notifier interface {
	NotifyExternal(browserID, key string)
}

var _ session.Publisher = (*Client)(nil)

var ErrSessionFanoutDisabled = errors.New("session fanout disabled")

// PublishSessionChanged broadcasts a session write to every instance.
func (c *Client) PublishSessionChanged(ctx context.Context, browserID, key string) error {
	if c.sessionExchange == "" {
		return ErrSessionFanoutDisabled
	}
	body, err := (&SessionChangedMessage{
		BrowserID: browserID,
		Key:       key,
		Origin:    c.instanceID,
		Timestamp: time.Now(),
	}).ToJSON()
	if err != nil {
		return fmt.Errorf("marshal session message: %w", err)
	}

	c.mu.Lock()
	ch := c.sessionChannel
	c.mu.Unlock()
	return c.publish(ctx, ch, c.sessionExchange, "", false, body)
}

// decodeSessionChange parses a fanout delivery and reports whether it should
// be applied locally. Messages from this instance are skipped.
func decodeSessionChange(body []byte, self string) (*SessionChangedMessage, bool, error) {
	msg, err := SessionChangedMessageFromJSON(body)
	if err != nil {
		return nil, false, err
	}
	if msg.BrowserID == "" {
		return msg, false, errors.New("session message without browser id")
	}
	return msg, msg.Origin != self, nil
}

// ConsumeSessionChanges binds an exclusive queue to the fanout exchange and
// forwards foreign changes to n until ctx ends.
func (c *Client) ConsumeSessionChanges(ctx context.Context, n Notifier) error {
	if c.sessionExchange == "" {
		return ErrSessionFanoutDisabled
	}
	for {
		err := c.consumeSessionChanges(ctx, n)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if !isConnectionError(err) {
			return err
		}
		slog.WarnContext(ctx, "Lost AMQP connection on session fanout", "error", err)
		if err := c.reconnect(ctx); err != nil {
			return err
		}
	}
}

func (c *Client) consumeSessionChanges(ctx context.Context, n Notifier) error {
	c.mu.Lock()
	ch := c.sessionChannel
	c.mu.Unlock()

	q, err := ch.QueueDeclare("", false, true, true, false, nil)
	if err != nil {
		return fmt.Errorf("declare session queue: %w", err)
	}
	if err := ch.QueueBind(q.Name, "", c.sessionExchange, false, nil); err != nil {
		return fmt.Errorf("bind session queue: %w", err)
	}
	msgs, err := ch.Consume(q.Name, "", true, true, false, false, nil)
	if err != nil {
		return fmt.Errorf("consume session queue: %w", err)
	}

	slog.InfoContext(ctx, "Listening for session changes", "exchange", c.sessionExchange, "instance_id", c.instanceID)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case d, ok := <-msgs:
			if !ok {
				return fmt.Errorf("session channel closed: %w", amqp091.ErrClosed)
			}
			msg, apply, err := decodeSessionChange(d.Body, c.instanceID)
			if err != nil {
				slog.WarnContext(ctx, "Dropping malformed session message", "error", err)
				continue
			}
			if apply {
				n.NotifyExternal(msg.BrowserID, msg.Key)
			}
		}
	}
}
