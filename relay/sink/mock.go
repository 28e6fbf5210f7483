package sink

import (
	"sync"

	"github.com/vothanachyes/telegram-user-tracking-sub004/cfg"
	"github.com/vothanachyes/telegram-user-tracking-sub004/relay"
)

func init() {
	relay.RegisterSink("memory", func(cfg.SinkConfiguration) (relay.Sink, error) {
		return &MockSink{}, nil
	})
}

// MockSink records published messages in memory. Registered as "memory"
// for local runs without a broker.
type MockSink struct {
	Messages   []MockMessage
	PublishErr error
	mu         sync.Mutex
}

// MockMessage represents a published message
type MockMessage struct {
	Topic string
	Key   string
	Value []byte
}

// Publish records a message for later inspection
func (m *MockSink) Publish(topic, key string, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.PublishErr != nil {
		return m.PublishErr
	}

	m.Messages = append(m.Messages, MockMessage{Topic: topic, Key: key, Value: value})
	return nil
}

// Snapshot returns a copy of the recorded messages
func (m *MockSink) Snapshot() []MockMessage {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]MockMessage(nil), m.Messages...)
}

// Close is a no-op
func (m *MockSink) Close() error {
	return nil
}

// Reset clears all recorded messages
func (m *MockSink) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Messages = nil
}
