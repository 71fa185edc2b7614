package live

import (
	"context"
	"sync"
)

const memoryStreamBuffer = 16

// MemoryBroker is an in-process Broker used when Redis is unavailable and in
// tests.
type MemoryBroker struct {
	mu      sync.Mutex
	streams map[string]map[*memoryStream]struct{}
}

func NewMemoryBroker() *MemoryBroker {
	return &MemoryBroker{streams: make(map[string]map[*memoryStream]struct{})}
}

// Publish never blocks. When a subscriber's buffer is full the payload is
// dropped for that subscriber; the notices still queued there already force
// a reload that observes this change.
func (b *MemoryBroker) Publish(ctx context.Context, topic string, payload []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	for s := range b.streams[topic] {
		select {
		case s.ch <- payload:
		default:
		}
	}
	return nil
}

func (b *MemoryBroker) Subscribe(ctx context.Context, topic string) (Stream, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s := &memoryStream{broker: b, topic: topic, ch: make(chan []byte, memoryStreamBuffer)}
	b.mu.Lock()
	if b.streams[topic] == nil {
		b.streams[topic] = make(map[*memoryStream]struct{})
	}
	b.streams[topic][s] = struct{}{}
	b.mu.Unlock()
	return s, nil
}

// Subscribers returns the number of open streams on topic.
func (b *MemoryBroker) Subscribers(topic string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.streams[topic])
}

// CloseTopic ends every stream on topic as if the transport dropped them.
func (b *MemoryBroker) CloseTopic(topic string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for s := range b.streams[topic] {
		s.closeLocked()
	}
}

type memoryStream struct {
	broker *MemoryBroker
	topic  string
	ch     chan []byte
	closed bool
}

func (s *memoryStream) Messages() <-chan []byte {
	return s.ch
}

func (s *memoryStream) Close() error {
	s.broker.mu.Lock()
	defer s.broker.mu.Unlock()
	s.closeLocked()
	return nil
}

func (s *memoryStream) closeLocked() {
	if s.closed {
		return
	}
	s.closed = true
	close(s.ch)
	delete(s.broker.streams[s.topic], s)
	if len(s.broker.streams[s.topic]) == 0 {
		delete(s.broker.streams, s.topic)
	}
}
