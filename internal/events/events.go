// Package events encodes domain events onto the message queue and decodes
// them for consumers.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/focusboard/apiserver/internal/mq"
	"github.com/focusboard/apiserver/types"
)

const (
	publishTimeout = 5 * time.Second

	// AttrEventType carries the event type so consumers can filter
	// without decoding the body.
	AttrEventType = "event_type"
)

// Publisher writes events to one topic.
type Publisher struct {
	backend mq.Backend
	topic   string
}

func NewPublisher(backend mq.Backend, topic string) *Publisher {
	return &Publisher{backend: backend, topic: topic}
}

// Publish assigns an ID and timestamp when missing and sends the event.
func (p *Publisher) Publish(ctx context.Context, event types.Event) error {
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.OccurredAt.IsZero() {
		event.OccurredAt = time.Now().UTC()
	}

	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("encode event: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()
	if _, err := p.backend.Publish(ctx, p.topic, data, map[string]string{AttrEventType: string(event.Type)}); err != nil {
		return fmt.Errorf("publish %s: %w", event.Type, err)
	}
	return nil
}

// HandlerFunc processes one decoded event.
type HandlerFunc func(ctx context.Context, event types.Event) error

// Consume subscribes to topic and passes each decoded event to fn until
// ctx is done. Undecodable messages are logged and acknowledged.
func Consume(ctx context.Context, backend mq.Backend, topic string, logger *slog.Logger, fn HandlerFunc) error {
	return backend.Subscribe(ctx, topic, func(ctx context.Context, msg mq.Message) error {
		var event types.Event
		if err := json.Unmarshal(msg.Data, &event); err != nil {
			logger.WarnContext(ctx, "dropping malformed event",
				slog.String("message_id", msg.ID),
				slog.String("error", err.Error()),
			)
			return nil
		}
		return fn(ctx, event)
	})
}

// LogHandler logs every event it receives.
func LogHandler(logger *slog.Logger) HandlerFunc {
	return func(ctx context.Context, event types.Event) error {
		logger.InfoContext(ctx, "event received",
			slog.String("id", event.ID),
			slog.String("type", string(event.Type)),
			slog.Int64("user_id", event.UserID),
			slog.Int64("task_id", event.TaskID),
			slog.Int64("session_id", event.SessionID),
			slog.Int("minutes", event.Minutes),
			slog.Time("occurred_at", event.OccurredAt),
		)
		return nil
	}
}
