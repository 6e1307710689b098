package queue

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

type redisConfig struct {
	URL      string
	Password string
	DB       int
	Stream   string // Stream name prefix (default: "gridcast")
}

// redisPublisher publishes to Redis Streams, one stream per subject
type redisPublisher struct {
	client *redis.Client
	config redisConfig
}

func newRedisPublisher(cfg redisConfig) (*redisPublisher, error) {
	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		// Plain host:port addresses are also accepted
		opts = &redis.Options{
			Addr:     cfg.URL,
			Password: cfg.Password,
			DB:       cfg.DB,
		}
	}

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	if cfg.Stream == "" {
		cfg.Stream = "gridcast"
	}

	return &redisPublisher{client: client, config: cfg}, nil
}

func (p *redisPublisher) streamName(subject string) string {
	return fmt.Sprintf("%s:%s", p.config.Stream, subject)
}

func (p *redisPublisher) Publish(ctx context.Context, subject string, data []byte) error {
	stream := p.streamName(subject)

	_, err := p.client.XAdd(ctx, &redis.XAddArgs{
		Stream: stream,
		ID:     "*",
		Values: map[string]interface{}{"data": data},
	}).Result()
	if err != nil {
		return fmt.Errorf("failed to publish to Redis stream %s: %w", stream, err)
	}
	return nil
}

// PublishBatch publishes all messages in one pipeline round trip
func (p *redisPublisher) PublishBatch(ctx context.Context, messages []BatchMessage) (int, error) {
	if len(messages) == 0 {
		return 0, nil
	}

	pipe := p.client.Pipeline()
	for _, msg := range messages {
		pipe.XAdd(ctx, &redis.XAddArgs{
			Stream: p.streamName(msg.Subject),
			ID:     "*",
			Values: map[string]interface{}{"data": msg.Data},
		})
	}

	cmds, err := pipe.Exec(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to execute batch publish: %w", err)
	}

	success := 0
	for _, cmd := range cmds {
		if cmd.Err() == nil {
			success++
		}
	}
	return success, nil
}

func (p *redisPublisher) Close() error {
	return p.client.Close()
}
