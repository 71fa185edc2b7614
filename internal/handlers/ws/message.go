package ws

import (
	"encoding/json"
	"errors"
	"fmt"
	"reflect"

	"github.com/noteduco342/moim-backend/internal/service"
)

// maxFrameSize bounds a decompressed inbound frame.
const maxFrameSize = 64 << 10

// MessageContext provides all dependencies needed for message processing
type MessageContext struct {
	UserID  string
	Session *Session
	Hub     *Hub
	Sources *Sources
}

// Message interface for all WebSocket message types
type Message interface {
	GetType() string
	Process(ctx *MessageContext) error
}

// SerializedMessage is the wire format wrapper
type SerializedMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// ErrorResponse is sent when message processing fails or a subscription ends
type ErrorResponse struct {
	Type    string `json:"type"`
	Error   string `json:"error"`
	Code    string `json:"code"`
	Topic   string `json:"topic,omitempty"`
	Details string `json:"details,omitempty"`
}

func ToJson(msg Message) ([]byte, error) {
	return json.Marshal(msg)
}

func FromJson(jsonBytes []byte, msg Message) error {
	return json.Unmarshal(jsonBytes, msg)
}

func CreateMessage(msgType string, typeRegistry map[string]reflect.Type) (Message, error) {
	msgTypeReflect, ok := typeRegistry[msgType]
	if !ok {
		return nil, fmt.Errorf("unknown message type: %s", msgType)
	}

	instance := reflect.New(msgTypeReflect).Interface()
	return instance.(Message), nil
}

// SendError sends an error response to the client
func SendError(session *Session, code, message, details string) error {
	return session.Send(ErrorResponse{
		Type:    "error",
		Error:   message,
		Code:    code,
		Details: details,
	})
}

// sendTopicError reports a failure that concerns one subscription topic.
func sendTopicError(session *Session, topic string, err error) error {
	code, message := errorCode(err)
	return session.Send(ErrorResponse{
		Type:  "error",
		Error: message,
		Code:  code,
		Topic: topic,
	})
}

func errorCode(err error) (string, string) {
	switch {
	case errors.Is(err, service.ErrNotFound):
		return "not_found", "Not found"
	case errors.Is(err, service.ErrTransient):
		return "try_again", "Temporary problem, please subscribe again"
	case errors.Is(err, ErrUnknownTopic):
		return "unknown_topic", "Unknown topic"
	default:
		return "subscription_ended", "Subscription ended"
	}
}
