package services

import (
	"context"
	"log/slog"

	"github.com/focusboard/apiserver/types"
)

// EventPublisher delivers domain events after the write that caused them
// has been committed.
type EventPublisher interface {
	Publish(ctx context.Context, event types.Event) error
}

func publishEvent(ctx context.Context, publisher EventPublisher, logger *slog.Logger, event types.Event) {
	if publisher == nil {
		return
	}
	if err := publisher.Publish(ctx, event); err != nil {
		logger.WarnContext(ctx, "failed to publish event",
			slog.String("type", string(event.Type)),
			slog.Int64("user_id", event.UserID),
			slog.String("error", err.Error()),
		)
	}
}
