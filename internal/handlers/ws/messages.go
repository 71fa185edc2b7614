package ws

import (
	"log"

	"github.com/noteduco342/moim-backend/internal/live"
)

const (
	MsgSubscribe   = "subscribe"
	MsgUnsubscribe = "unsubscribe"
	MsgSnapshot    = "snapshot"
)

// MessageSubscribe asks for a snapshot of an entity now and after every change.
type MessageSubscribe struct {
	Kind string `json:"kind"`
	ID   string `json:"id"`
}

func (msg *MessageSubscribe) GetType() string {
	return MsgSubscribe
}

func (msg *MessageSubscribe) Process(ctx *MessageContext) error {
	target, err := ctx.Sources.Resolve(msg.Kind, msg.ID)
	if err != nil {
		return sendTopicError(ctx.Session, msg.Kind+":"+msg.ID, err)
	}
	session := ctx.Session
	if session.Subscribed(target.Topic) {
		return nil
	}

	var sub *live.Subscription
	ready := make(chan struct{})
	sub, err = live.Subscribe[interface{}](session.Context(), ctx.Sources.Broker, target.Topic, target.Load,
		live.ObserverFuncs[interface{}]{
			Snapshot: func(data interface{}) {
				if err := session.Push(&MessageSnapshot{Topic: target.Topic, Data: data}); err != nil {
					log.Printf("ws snapshot write failed session=%s topic=%s err=%v", session.ID, target.Topic, err)
				}
			},
			Error: func(err error) {
				<-ready
				session.forget(target.Topic, sub)
				if werr := sendTopicError(session, target.Topic, err); werr != nil {
					log.Printf("ws error write failed session=%s topic=%s err=%v", session.ID, target.Topic, werr)
				}
			},
		})
	if err != nil {
		return sendTopicError(session, target.Topic, err)
	}
	if !session.addSubscription(target.Topic, sub) {
		close(ready)
		sub.Unsubscribe()
		return nil
	}
	close(ready)
	return nil
}

// MessageUnsubscribe stops pushes for an entity.
type MessageUnsubscribe struct {
	Kind string `json:"kind"`
	ID   string `json:"id"`
}

func (msg *MessageUnsubscribe) GetType() string {
	return MsgUnsubscribe
}

func (msg *MessageUnsubscribe) Process(ctx *MessageContext) error {
	target, err := ctx.Sources.Resolve(msg.Kind, msg.ID)
	if err != nil {
		return sendTopicError(ctx.Session, msg.Kind+":"+msg.ID, err)
	}
	ctx.Session.unsubscribe(target.Topic)
	return nil
}

// MessageSnapshot carries the full current state of a subscribed entity.
// Server to client only.
type MessageSnapshot struct {
	Topic string      `json:"topic"`
	Data  interface{} `json:"data"`
}

func (msg *MessageSnapshot) GetType() string {
	return MsgSnapshot
}

func (msg *MessageSnapshot) Process(ctx *MessageContext) error {
	return nil
}
