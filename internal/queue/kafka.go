package queue

import (
	"context"
	"fmt"
	"sync"

	"github.com/segmentio/kafka-go"
)

// kafkaPublisher publishes to Kafka, lazily creating one writer per
// topic
type kafkaPublisher struct {
	brokers []string
	writers map[string]*kafka.Writer
	mu      sync.RWMutex
}

func newKafkaPublisher(brokers []string) (*kafkaPublisher, error) {
	if len(brokers) == 0 {
		return nil, fmt.Errorf("at least one Kafka broker is required")
	}
	return &kafkaPublisher{
		brokers: brokers,
		writers: make(map[string]*kafka.Writer),
	}, nil
}

func (p *kafkaPublisher) getOrCreateWriter(topic string) *kafka.Writer {
	p.mu.RLock()
	if w, exists := p.writers[topic]; exists {
		p.mu.RUnlock()
		return w
	}
	p.mu.RUnlock()

	p.mu.Lock()
	defer p.mu.Unlock()
	if w, exists := p.writers[topic]; exists {
		return w
	}

	w := &kafka.Writer{
		Addr:                   kafka.TCP(p.brokers...),
		Topic:                  topic,
		Balancer:               &kafka.LeastBytes{},
		AllowAutoTopicCreation: true,
	}
	p.writers[topic] = w
	return w
}

func (p *kafkaPublisher) Publish(ctx context.Context, subject string, data []byte) error {
	writer := p.getOrCreateWriter(subject)
	if err := writer.WriteMessages(ctx, kafka.Message{Value: data}); err != nil {
		return fmt.Errorf("failed to publish to topic %s: %w", subject, err)
	}
	return nil
}

// PublishBatch groups messages by topic so each writer gets one call
func (p *kafkaPublisher) PublishBatch(ctx context.Context, messages []BatchMessage) (int, error) {
	if len(messages) == 0 {
		return 0, nil
	}

	byTopic := make(map[string][]kafka.Message)
	for _, msg := range messages {
		byTopic[msg.Subject] = append(byTopic[msg.Subject], kafka.Message{Value: msg.Data})
	}

	success := 0
	var firstErr error
	for topic, batch := range byTopic {
		writer := p.getOrCreateWriter(topic)
		if err := writer.WriteMessages(ctx, batch...); err != nil {
			if firstErr == nil {
				firstErr = fmt.Errorf("failed to publish to topic %s: %w", topic, err)
			}
			continue
		}
		success += len(batch)
	}
	return success, firstErr
}

func (p *kafkaPublisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	var firstErr error
	for topic, w := range p.writers {
		if err := w.Close(); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("failed to close writer for topic %s: %w", topic, err)
		}
		delete(p.writers, topic)
	}
	return firstErr
}
