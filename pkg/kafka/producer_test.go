package kafka

import (
	"context"
	"testing"

	"github.com/searchlab/termindex/pkg/config"
)

func TestEncode(t *testing.T) {
	msgs, err := encode([]Event{
		{Key: "bm25", Value: map[string]any{"query": "gato", "total_hits": 2}},
		{Key: "boolean", Value: []string{"doc1"}},
	})
	if err != nil {
		t.Fatalf("encode() error = %v", err)
	}
	if len(msgs) != 2 {
		t.Fatalf("got %d messages, want 2", len(msgs))
	}
	if string(msgs[0].Key) != "bm25" || string(msgs[0].Value) != `{"query":"gato","total_hits":2}` {
		t.Errorf("msgs[0] = %s / %s", msgs[0].Key, msgs[0].Value)
	}
	if string(msgs[1].Value) != `["doc1"]` {
		t.Errorf("msgs[1].Value = %s", msgs[1].Value)
	}
}

func TestEncodeUnsupportedValue(t *testing.T) {
	if _, err := encode([]Event{{Key: "bad", Value: make(chan int)}}); err == nil {
		t.Error("expected marshal error")
	}
}

func TestPublishBatchEmpty(t *testing.T) {
	p := NewProducer(config.KafkaConfig{Brokers: []string{"localhost:9092"}, SearchTopic: "search-events"})
	defer p.Close()
	if err := p.PublishBatch(context.Background(), nil); err != nil {
		t.Errorf("PublishBatch(nil) error = %v", err)
	}
}
