package live

import (
	"context"
	"sync"

	"github.com/noteduco342/moim-backend/internal/cache"
	"github.com/redis/go-redis/v9"
)

const channelPrefix = "moim:live:"

// RedisBroker carries change notices over Redis Pub/Sub so every server
// instance sees writes made by the others.
type RedisBroker struct {
	redis *cache.RedisCache
}

func NewRedisBroker(redis *cache.RedisCache) *RedisBroker {
	return &RedisBroker{redis: redis}
}

func (b *RedisBroker) Publish(ctx context.Context, topic string, payload []byte) error {
	return b.redis.Publish(ctx, channelPrefix+topic, payload)
}

func (b *RedisBroker) Subscribe(ctx context.Context, topic string) (Stream, error) {
	ps, err := b.redis.Subscribe(ctx, channelPrefix+topic)
	if err != nil {
		return nil, err
	}
	s := &redisStream{ps: ps, ch: make(chan []byte, memoryStreamBuffer)}
	go s.forward(ps.Channel())
	return s, nil
}

type redisStream struct {
	ps   *redis.PubSub
	ch   chan []byte
	once sync.Once
}

// forward ends when the PubSub is closed, which closes its channel.
func (s *redisStream) forward(in <-chan *redis.Message) {
	defer close(s.ch)
	for msg := range in {
		select {
		case s.ch <- []byte(msg.Payload):
		default:
		}
	}
}

func (s *redisStream) Messages() <-chan []byte {
	return s.ch
}

func (s *redisStream) Close() error {
	var err error
	s.once.Do(func() {
		err = s.ps.Close()
	})
	return err
}
