package sink

import (
	"errors"
	"testing"

	"github.com/segmentio/kafka-go"

	"github.com/vothanachyes/telegram-user-tracking-sub004/cfg"
	"github.com/vothanachyes/telegram-user-tracking-sub004/relay"
)

var (
	_ relay.Sink = (*NatsSink)(nil)
	_ relay.Sink = (*KafkaSink)(nil)
	_ relay.Sink = (*MockSink)(nil)
)

func TestNewKafkaSink(t *testing.T) {
	sink, err := NewKafkaSink(KafkaConfig{
		Brokers:      []string{"localhost:9092"},
		BatchSize:    50,
		RequiredAcks: kafka.RequireOne,
	})
	if err != nil {
		t.Fatalf("unexpected error creating sink: %v", err)
	}
	defer sink.Close()

	if sink.writer.BatchSize != 50 {
		t.Errorf("expected batch size 50, got %d", sink.writer.BatchSize)
	}
	if sink.writer.BatchBytes != DefaultKafkaBatchBytes {
		t.Errorf("expected default batch bytes, got %d", sink.writer.BatchBytes)
	}
	if _, ok := sink.writer.Balancer.(*kafka.Hash); !ok {
		t.Errorf("expected hash balancer, got %T", sink.writer.Balancer)
	}
}

func TestNewKafkaSink_RequiresBrokers(t *testing.T) {
	if _, err := NewKafkaSink(KafkaConfig{}); err == nil {
		t.Fatal("expected error without brokers")
	}
}

func TestKafkaSinkClose_NilWriter(t *testing.T) {
	if err := (&KafkaSink{}).Close(); err != nil {
		t.Errorf("expected nil error, got %v", err)
	}
}

func TestSanitizeStreamName(t *testing.T) {
	tests := map[string]string{
		"docwatch.users.u1.notifications": "docwatch_users_u1_notifications",
		"notes":                           "notes",
		"":                                "",
	}
	for in, want := range tests {
		if got := sanitizeStreamName(in); got != want {
			t.Errorf("sanitizeStreamName(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestNatsFactory_RequiresURL(t *testing.T) {
	_, err := relay.NewRegistry(relay.RegistryConfig{
		SinkConfigs: []cfg.SinkConfiguration{{Name: "n", Type: "nats"}},
	})
	if err == nil {
		t.Fatal("expected error for nats sink without url")
	}
}

func TestMockSink(t *testing.T) {
	m := &MockSink{}
	if err := m.Publish("t", "k", []byte("v")); err != nil {
		t.Fatalf("publish: %v", err)
	}
	if err := m.Publish("t", "k", nil); err != nil {
		t.Fatalf("publish tombstone: %v", err)
	}

	msgs := m.Snapshot()
	if len(msgs) != 2 || msgs[1].Value != nil {
		t.Fatalf("unexpected messages: %+v", msgs)
	}

	m.PublishErr = errors.New("down")
	if err := m.Publish("t", "k", nil); err == nil {
		t.Error("expected publish error")
	}

	m.Reset()
	if len(m.Snapshot()) != 0 {
		t.Error("expected reset to clear messages")
	}
}
