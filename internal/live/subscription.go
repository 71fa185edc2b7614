package live

import (
	"context"
	"sync"

	"github.com/noteduco342/moim-backend/internal/metrics"
)

// Observer receives full snapshots of a watched entity. OnError is terminal:
// after it is called the subscription delivers nothing else.
type Observer[T any] interface {
	OnSnapshot(snapshot T)
	OnError(err error)
}

// ObserverFuncs adapts a pair of functions to Observer. Nil funcs are skipped.
type ObserverFuncs[T any] struct {
	Snapshot func(T)
	Error    func(error)
}

func (o ObserverFuncs[T]) OnSnapshot(snapshot T) {
	if o.Snapshot != nil {
		o.Snapshot(snapshot)
	}
}

func (o ObserverFuncs[T]) OnError(err error) {
	if o.Error != nil {
		o.Error(err)
	}
}

// Loader reads the current full snapshot of a watched entity.
type Loader[T any] func(ctx context.Context) (T, error)

// Subscription is one registered observer of a topic.
type Subscription struct {
	topic  string
	cancel context.CancelFunc
	done   chan struct{}
	once   sync.Once

	mu     sync.Mutex
	closed bool
}

// Subscribe opens a stream on topic, then delivers the snapshot returned by
// load, and a fresh snapshot after every change notice. Notices that queue up
// while a reload runs are folded into the next single reload.
//
// Callbacks run on one goroutine, never concurrently. They must not call
// Unsubscribe on their own subscription.
func Subscribe[T any](ctx context.Context, broker Broker, topic string, load Loader[T], observer Observer[T]) (*Subscription, error) {
	stream, err := broker.Subscribe(ctx, topic)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(ctx)
	s := &Subscription{
		topic:  topic,
		cancel: cancel,
		done:   make(chan struct{}),
	}
	metrics.LiveSubscriptions.Inc()
	go deliver(ctx, s, stream, load, observer)
	return s, nil
}

func (s *Subscription) Topic() string {
	return s.topic
}

// Done is closed once the subscription has ended for any reason.
func (s *Subscription) Done() <-chan struct{} {
	return s.done
}

// Unsubscribe ends the subscription. It is safe to call more than once, and
// once it returns the observer receives no further callbacks.
func (s *Subscription) Unsubscribe() {
	s.once.Do(func() {
		s.mu.Lock()
		s.closed = true
		s.mu.Unlock()
		s.cancel()
	})
	<-s.done
}

func deliver[T any](ctx context.Context, s *Subscription, stream Stream, load Loader[T], observer Observer[T]) {
	defer func() {
		stream.Close()
		metrics.LiveSubscriptions.Dec()
		close(s.done)
	}()

	// emit runs a callback unless the subscription was closed meanwhile and
	// reports whether delivery should continue.
	emit := func(snapshot T, err error) bool {
		s.mu.Lock()
		defer s.mu.Unlock()
		if s.closed || ctx.Err() != nil {
			return false
		}
		if err != nil {
			s.closed = true
			observer.OnError(err)
			return false
		}
		observer.OnSnapshot(snapshot)
		return true
	}

	if !emit(load(ctx)) {
		return
	}

	messages := stream.Messages()
	for {
		select {
		case <-ctx.Done():
			return
		case _, ok := <-messages:
			if !ok {
				var zero T
				emit(zero, ErrStreamClosed)
				return
			}
			open := drain(messages)
			if !emit(load(ctx)) {
				return
			}
			if !open {
				var zero T
				emit(zero, ErrStreamClosed)
				return
			}
		}
	}
}

// drain discards queued notices and reports whether the channel is still open.
func drain(messages <-chan []byte) bool {
	for {
		select {
		case _, ok := <-messages:
			if !ok {
				return false
			}
		default:
			return true
		}
	}
}
