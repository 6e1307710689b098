package queue

import (
	"context"
	"fmt"

	"github.com/nats-io/nats.go"
)

// natsPublisher publishes through NATS JetStream for at-least-once
// durability of forecast events
type natsPublisher struct {
	conn *nats.Conn
	js   nats.JetStreamContext
}

func newNATSPublisher(url, username, password string) (*natsPublisher, error) {
	opts := []nats.Option{nats.Name("gridcast")}
	if username != "" {
		opts = append(opts, nats.UserInfo(username, password))
	}

	conn, err := nats.Connect(url, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	js, err := conn.JetStream()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to create JetStream context: %w", err)
	}

	return &natsPublisher{conn: conn, js: js}, nil
}

// Publish publishes one message and waits for the stream acknowledgment
func (p *natsPublisher) Publish(ctx context.Context, subject string, data []byte) error {
	if _, err := p.js.Publish(subject, data, nats.Context(ctx)); err != nil {
		return fmt.Errorf("failed to publish to subject %s: %w", subject, err)
	}
	return nil
}

// PublishBatch queues all messages asynchronously and waits once for
// the acknowledgments
func (p *natsPublisher) PublishBatch(ctx context.Context, messages []BatchMessage) (int, error) {
	if len(messages) == 0 {
		return 0, nil
	}

	futures := make([]nats.PubAckFuture, 0, len(messages))
	for _, msg := range messages {
		future, err := p.js.PublishAsync(msg.Subject, msg.Data)
		if err != nil {
			continue
		}
		futures = append(futures, future)
	}

	select {
	case <-p.js.PublishAsyncComplete():
	case <-ctx.Done():
		return 0, fmt.Errorf("timeout waiting for batch publish: %w", ctx.Err())
	}

	success := 0
	for _, future := range futures {
		select {
		case <-future.Ok():
			success++
		case <-future.Err():
		default:
			// Completed without an error signal
			success++
		}
	}
	return success, nil
}

func (p *natsPublisher) Close() error {
	p.conn.Close()
	return nil
}
