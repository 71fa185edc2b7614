package ws

import "time"

// MessagePing is an application-level keepalive for clients that cannot
// answer WebSocket control pings. It counts as a pong for the health checker
// and is answered with a MessagePong carrying the server clock.
type MessagePing struct {
	SentAt int64 `json:"sent_at,omitempty"`
}

func (msg *MessagePing) GetType() string {
	return "ping"
}

func (msg *MessagePing) Process(ctx *MessageContext) error {
	if err := ctx.Session.touch(); err != nil {
		return err
	}
	return ctx.Session.Push(&MessagePong{
		SentAt:     msg.SentAt,
		ServerTime: time.Now().UnixMilli(),
	})
}

// MessagePong answers a ping. SentAt echoes the client's value so it can
// measure round trips. A pong sent by the client only refreshes liveness.
type MessagePong struct {
	SentAt     int64 `json:"sent_at,omitempty"`
	ServerTime int64 `json:"server_time,omitempty"`
}

func (msg *MessagePong) GetType() string {
	return "pong"
}

func (msg *MessagePong) Process(ctx *MessageContext) error {
	return ctx.Session.touch()
}
