package mq

import (
	"context"
	"errors"
	"testing"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/focusboard/apiserver/config"
)

func TestOpenWithoutBackend(t *testing.T) {
	if _, err := Open(context.Background(), config.QueueConfig{}); !errors.Is(err, ErrDisabled) {
		t.Errorf("err = %v, want ErrDisabled", err)
	}
	if _, err := Open(context.Background(), config.QueueConfig{Backend: "kafka"}); err == nil {
		t.Error("expected an error for an unknown backend")
	}
	if _, err := Open(context.Background(), config.QueueConfig{Backend: "rabbitmq"}); err == nil {
		t.Error("expected an error for rabbitmq without a url")
	}
	if _, err := Open(context.Background(), config.QueueConfig{Backend: "pubsub"}); err == nil {
		t.Error("expected an error for pubsub without a project")
	}
}

func TestHeadersToAttributes(t *testing.T) {
	if attrs := headersToAttributes(nil); attrs != nil {
		t.Errorf("attrs = %v, want nil", attrs)
	}

	attrs := headersToAttributes(amqp.Table{
		"event_type": "pomodoro.completed",
		"raw":        []byte("bytes"),
		"retries":    int32(2),
	})
	want := map[string]string{
		"event_type": "pomodoro.completed",
		"raw":        "bytes",
		"retries":    "2",
	}
	for key, value := range want {
		if attrs[key] != value {
			t.Errorf("attrs[%q] = %q, want %q", key, attrs[key], value)
		}
	}
}
