package live

import (
	"context"
	"errors"
)

// ErrStreamClosed is reported to an observer when the transport ends a
// subscription it did not ask to end.
var ErrStreamClosed = errors.New("live stream closed")

// Stream delivers the raw payloads published on one topic.
type Stream interface {
	Messages() <-chan []byte
	Close() error
}

// Broker is the change-notification bus. A Stream returned by Subscribe
// receives every payload published after Subscribe returns.
type Broker interface {
	Publish(ctx context.Context, topic string, payload []byte) error
	Subscribe(ctx context.Context, topic string) (Stream, error)
}
