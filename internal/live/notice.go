package live

import (
	"context"
	"strings"
	"time"

	"github.com/noteduco342/moim-backend/internal/metrics"
	"github.com/vmihailenco/msgpack/v5"
)

// Notice tells subscribers that the entity behind Topic changed. It carries no
// data; subscribers reload the full snapshot.
type Notice struct {
	Topic string    `msgpack:"topic"`
	At    time.Time `msgpack:"at"`
}

func DecodeNotice(payload []byte) (Notice, error) {
	var n Notice
	err := msgpack.Unmarshal(payload, &n)
	return n, err
}

// GroupListTopic announces any change to the group directory.
const GroupListTopic = "groups"

func GroupTopic(groupID string) string { return "group:" + groupID }
func GroupPostsTopic(groupID string) string { return "group:" + groupID + ":posts" }
func PostTopic(postID string) string { return "post:" + postID }
func PostCommentsTopic(postID string) string { return "post:" + postID + ":comments" }

// Publisher sends change notices. A nil Publisher drops them.
type Publisher struct {
	broker Broker
}

func NewPublisher(broker Broker) *Publisher {
	return &Publisher{broker: broker}
}

func (p *Publisher) Notify(ctx context.Context, topics ...string) error {
	if p == nil || p.broker == nil {
		return nil
	}
	var firstErr error
	for _, topic := range topics {
		err := p.notify(ctx, topic)
		metrics.LiveNotices.WithLabelValues(topicKind(topic), metrics.Result(err)).Inc()
		if err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func (p *Publisher) notify(ctx context.Context, topic string) error {
	payload, err := msgpack.Marshal(Notice{Topic: topic, At: time.Now()})
	if err != nil {
		return err
	}
	return p.broker.Publish(ctx, topic, payload)
}

// topicKind strips the ids out of a topic, "post:01H..:comments" becomes
// "post:comments".
func topicKind(topic string) string {
	parts := strings.Split(topic, ":")
	if len(parts) == 3 {
		return parts[0] + ":" + parts[2]
	}
	return parts[0]
}
