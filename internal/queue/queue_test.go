package queue

import (
	"context"
	"testing"

	"github.com/gridcast/gridcast/internal/config"
)

func TestMemoryPublisher(t *testing.T) {
	p := NewMemoryPublisher()
	ctx := context.Background()

	if err := p.Publish(ctx, "gridcast.forecasts", []byte(`{"v":1}`)); err != nil {
		t.Fatalf("publish failed: %v", err)
	}

	n, err := p.PublishBatch(ctx, []BatchMessage{
		{Subject: "gridcast.forecasts", Data: []byte(`{"v":2}`)},
		{Subject: "gridcast.runs", Data: []byte(`{"run":"a"}`)},
	})
	if err != nil {
		t.Fatalf("batch publish failed: %v", err)
	}
	if n != 2 {
		t.Errorf("expected 2 accepted messages, got %d", n)
	}

	forecasts := p.Messages("gridcast.forecasts")
	if len(forecasts) != 2 {
		t.Fatalf("expected 2 forecast messages, got %d", len(forecasts))
	}
	if string(forecasts[0]) != `{"v":1}` {
		t.Errorf("unexpected first message: %s", forecasts[0])
	}
	if len(p.Messages("gridcast.runs")) != 1 {
		t.Error("expected 1 run message")
	}
	if len(p.Messages("unknown")) != 0 {
		t.Error("expected no messages on an unused subject")
	}
}

func TestNewPublisherMemory(t *testing.T) {
	p, err := NewPublisher(config.QueueConfig{Type: "memory"})
	if err != nil {
		t.Fatalf("factory failed: %v", err)
	}
	defer p.Close()

	if _, ok := p.(*MemoryPublisher); !ok {
		t.Errorf("expected memory publisher, got %T", p)
	}
}

func TestNewPublisherUnsupported(t *testing.T) {
	if _, err := NewPublisher(config.QueueConfig{Type: "rabbitmq"}); err == nil {
		t.Fatal("expected error for unsupported queue type")
	}
}

func TestKafkaPublisherRequiresBrokers(t *testing.T) {
	if _, err := newKafkaPublisher(nil); err == nil {
		t.Fatal("expected error when no brokers are configured")
	}
}
