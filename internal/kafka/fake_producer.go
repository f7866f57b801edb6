package kafka

import (
	"context"
	"errors"
	"sync"
)

// NoopProducer drops every message. It stands in when Kafka is disabled.
type NoopProducer struct{}

// NewNoopProducer returns a producer that discards messages.
func NewNoopProducer() NoopProducer { return NoopProducer{} }

func (NoopProducer) SendMessage(context.Context, string, []byte, []byte) error { return nil }
func (NoopProducer) Close()                                                   {}

// SentMessage is one message captured by RecordingProducer.
type SentMessage struct {
	Topic   string
	Key     []byte
	Payload []byte
}

// RecordingProducer keeps every message in memory for tests.
type RecordingProducer struct {
	mu         sync.Mutex
	Messages   []SentMessage
	ShouldFail bool // flag to simulate broker failures
}

func (p *RecordingProducer) SendMessage(_ context.Context, topic string, key []byte, payload []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.ShouldFail {
		return errors.New("mock kafka write failed")
	}
	p.Messages = append(p.Messages, SentMessage{Topic: topic, Key: key, Payload: payload})
	return nil
}

func (p *RecordingProducer) Close() {}

// Sent returns a copy of the captured messages.
func (p *RecordingProducer) Sent() []SentMessage {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]SentMessage, len(p.Messages))
	copy(out, p.Messages)
	return out
}

var (
	_ MessageProducer = NoopProducer{}
	_ MessageProducer = (*RecordingProducer)(nil)
)
