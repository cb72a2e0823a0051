package notify

import (
	"context"
	"fmt"
)

// EventPublisher publishes one message to the event broker.
type EventPublisher interface {
	Publish(message interface{}) error
}

// AMQPNotifier publishes status change events to a RabbitMQ exchange for
// downstream consumers (dashboards, analytics pipelines).
type AMQPNotifier struct {
	publisher EventPublisher
}

// NewAMQPNotifier wraps an existing publisher.
func NewAMQPNotifier(publisher EventPublisher) *AMQPNotifier {
	return &AMQPNotifier{publisher: publisher}
}

func (n *AMQPNotifier) Name() string { return "rabbitmq" }

// NotifyStatusChange publishes the event as a JSON message. The underlying
// publish has no context support, so a stuck publish is abandoned when ctx
// expires rather than holding the dispatch goroutine.
func (n *AMQPNotifier) NotifyStatusChange(ctx context.Context, event StatusChangeEvent) error {
	done := make(chan error, 1)
	go func() {
		done <- n.publisher.Publish(event)
	}()

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return fmt.Errorf("publish of event %s abandoned: %w", event.EventID, ctx.Err())
	}
}
