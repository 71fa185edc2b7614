package live

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const waitFor = 2 * time.Second

type recorder struct {
	snapshots chan int
	errs      chan error
}

func newRecorder() *recorder {
	return &recorder{snapshots: make(chan int, 32), errs: make(chan error, 4)}
}

func (r *recorder) observer() ObserverFuncs[int] {
	return ObserverFuncs[int]{
		Snapshot: func(v int) { r.snapshots <- v },
		Error:    func(err error) { r.errs <- err },
	}
}

func (r *recorder) nextSnapshot(t *testing.T) int {
	t.Helper()
	select {
	case v := <-r.snapshots:
		return v
	case <-time.After(waitFor):
		t.Fatal("timed out waiting for snapshot")
		return 0
	}
}

func TestSubscribeDeliversInitialAndChangedSnapshots(t *testing.T) {
	broker := NewMemoryBroker()
	publisher := NewPublisher(broker)
	ctx := context.Background()

	var version atomic.Int32
	load := func(context.Context) (int, error) { return int(version.Load()), nil }

	rec := newRecorder()
	sub, err := Subscribe[int](ctx, broker, GroupTopic("g1"), load, rec.observer())
	require.NoError(t, err)
	defer sub.Unsubscribe()

	assert.Equal(t, 0, rec.nextSnapshot(t))

	version.Store(1)
	require.NoError(t, publisher.Notify(ctx, GroupTopic("g1")))
	assert.Equal(t, 1, rec.nextSnapshot(t))

	// Notices on other topics are not delivered.
	version.Store(2)
	require.NoError(t, publisher.Notify(ctx, GroupTopic("g2")))
	select {
	case v := <-rec.snapshots:
		t.Fatalf("unexpected snapshot %d", v)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestSubscribeLoaderFailureIsTerminal(t *testing.T) {
	broker := NewMemoryBroker()
	boom := errors.New("boom")
	load := func(context.Context) (int, error) { return 0, boom }

	rec := newRecorder()
	sub, err := Subscribe[int](context.Background(), broker, "t", load, rec.observer())
	require.NoError(t, err)

	select {
	case err := <-rec.errs:
		assert.ErrorIs(t, err, boom)
	case <-time.After(waitFor):
		t.Fatal("timed out waiting for error")
	}
	select {
	case <-sub.Done():
	case <-time.After(waitFor):
		t.Fatal("subscription did not end")
	}
	assert.Equal(t, 0, broker.Subscribers("t"))
	assert.Empty(t, rec.snapshots)
	sub.Unsubscribe()
	assert.Empty(t, rec.errs)
}

func TestSubscribeTransportCloseReportsError(t *testing.T) {
	broker := NewMemoryBroker()
	load := func(context.Context) (int, error) { return 7, nil }

	rec := newRecorder()
	sub, err := Subscribe[int](context.Background(), broker, "t", load, rec.observer())
	require.NoError(t, err)
	defer sub.Unsubscribe()
	assert.Equal(t, 7, rec.nextSnapshot(t))

	broker.CloseTopic("t")
	select {
	case err := <-rec.errs:
		assert.ErrorIs(t, err, ErrStreamClosed)
	case <-time.After(waitFor):
		t.Fatal("timed out waiting for error")
	}
}

func TestUnsubscribeStopsCallbacks(t *testing.T) {
	broker := NewMemoryBroker()
	publisher := NewPublisher(broker)
	ctx := context.Background()

	var loads atomic.Int32
	load := func(context.Context) (int, error) { return int(loads.Add(1)), nil }

	rec := newRecorder()
	sub, err := Subscribe[int](ctx, broker, "t", load, rec.observer())
	require.NoError(t, err)
	rec.nextSnapshot(t)

	sub.Unsubscribe()
	sub.Unsubscribe()
	assert.Equal(t, 0, broker.Subscribers("t"))

	require.NoError(t, publisher.Notify(ctx, "t"))
	time.Sleep(20 * time.Millisecond)
	assert.Empty(t, rec.snapshots)
	assert.Empty(t, rec.errs)
	assert.Equal(t, int32(1), loads.Load())
}

func TestSubscribeCoalescesQueuedNotices(t *testing.T) {
	broker := NewMemoryBroker()
	publisher := NewPublisher(broker)
	ctx := context.Background()

	var loads atomic.Int32
	entered := make(chan struct{}, 1)
	gate := make(chan struct{})
	load := func(context.Context) (int, error) {
		n := loads.Add(1)
		if n == 2 {
			entered <- struct{}{}
			<-gate
		}
		return int(n), nil
	}

	rec := newRecorder()
	sub, err := Subscribe[int](ctx, broker, "t", load, rec.observer())
	require.NoError(t, err)
	defer sub.Unsubscribe()
	assert.Equal(t, 1, rec.nextSnapshot(t))

	require.NoError(t, publisher.Notify(ctx, "t"))
	<-entered
	for i := 0; i < 5; i++ {
		require.NoError(t, publisher.Notify(ctx, "t"))
	}
	close(gate)

	assert.Equal(t, 2, rec.nextSnapshot(t))
	assert.Equal(t, 3, rec.nextSnapshot(t))
	select {
	case v := <-rec.snapshots:
		t.Fatalf("queued notices were not coalesced, got snapshot %d", v)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestPublisherNotify(t *testing.T) {
	broker := NewMemoryBroker()
	ctx := context.Background()
	stream, err := broker.Subscribe(ctx, PostCommentsTopic("p1"))
	require.NoError(t, err)
	defer stream.Close()

	require.NoError(t, NewPublisher(broker).Notify(ctx, PostCommentsTopic("p1")))

	payload := <-stream.Messages()
	notice, err := DecodeNotice(payload)
	require.NoError(t, err)
	assert.Equal(t, "post:p1:comments", notice.Topic)
	assert.False(t, notice.At.IsZero())

	var nilPublisher *Publisher
	assert.NoError(t, nilPublisher.Notify(ctx, "anything"))
}

func TestTopicKind(t *testing.T) {
	tests := []struct {
		topic string
		want  string
	}{
		{GroupTopic("g1"), "group"},
		{GroupPostsTopic("g1"), "group:posts"},
		{PostTopic("p1"), "post"},
		{PostCommentsTopic("p1"), "post:comments"},
	}
	for _, tt := range tests {
		t.Run(tt.topic, func(t *testing.T) {
			assert.Equal(t, tt.want, topicKind(tt.topic))
		})
	}
}
