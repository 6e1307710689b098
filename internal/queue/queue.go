// Package queue publishes pipeline events (forecasts, run reports) to
// a message broker. The pipeline only produces events; consumption
// belongs to downstream services.
package queue

import (
	"context"
	"fmt"
	"strings"

	"github.com/gridcast/gridcast/internal/config"
)

// Publisher publishes messages to a subject/topic
type Publisher interface {
	Publish(ctx context.Context, subject string, data []byte) error

	// PublishBatch publishes multiple messages and returns how many
	// were accepted
	PublishBatch(ctx context.Context, messages []BatchMessage) (int, error)

	Close() error
}

// BatchMessage is one message of a batch publish
type BatchMessage struct {
	Subject string
	Data    []byte
}

// Supported queue types
const (
	TypeNATS   = "nats"
	TypeRedis  = "redis"
	TypeKafka  = "kafka"
	TypeMemory = "memory"
)

// NewPublisher creates a publisher from configuration. NATS is the
// default when no type is set.
func NewPublisher(cfg config.QueueConfig) (Publisher, error) {
	queueType := strings.ToLower(cfg.Type)
	if queueType == "" {
		queueType = TypeNATS
	}

	switch queueType {
	case TypeNATS:
		return newNATSPublisher(cfg.URL, cfg.Username, cfg.Password)

	case TypeRedis:
		return newRedisPublisher(redisConfig{
			URL:      cfg.URL,
			Password: cfg.Password,
			DB:       cfg.RedisDB,
			Stream:   cfg.RedisStream,
		})

	case TypeKafka:
		return newKafkaPublisher(cfg.KafkaBrokers)

	case TypeMemory:
		return NewMemoryPublisher(), nil

	default:
		return nil, fmt.Errorf("unsupported queue type: %s (supported: nats, redis, kafka, memory)", queueType)
	}
}
