package driftchat

import (
	"encoding/json"
	"time"

	"github.com/driftchat/drift-sdk-go/driftchat/internal/stomp"
)

// Dispatcher routes connection events to registered callbacks. Callbacks run
// on the connection's internal goroutines and must not block or call back
// into the connection synchronously.
type Dispatcher struct {
	onMessage func(ChatMessage)
	onState   func(StateEvent)
	onError   func(error)
}

func (d *Dispatcher) SetOnMessage(fn func(ChatMessage)) { d.onMessage = fn }
func (d *Dispatcher) SetOnState(fn func(StateEvent))    { d.onState = fn }
func (d *Dispatcher) SetOnError(fn func(error))         { d.onError = fn }

func (d *Dispatcher) fireMessage(msg ChatMessage) {
	if d.onMessage != nil {
		d.onMessage(msg)
	}
}

func (d *Dispatcher) fireState(ev StateEvent) {
	if d.onState != nil {
		d.onState(ev)
	}
}

func (d *Dispatcher) fireError(err error) {
	if d.onError != nil && err != nil {
		d.onError(err)
	}
}

// messagePayload is the JSON body of a MESSAGE frame.
type messagePayload struct {
	RoomID   string    `json:"room_id"`
	SenderID string    `json:"sender_id"`
	Body     string    `json:"body"`
	SentAt   time.Time `json:"sent_at"`
}

// sendPayload is the JSON body of a SEND frame. Sender identity and the
// authoritative timestamp are attached server-side.
type sendPayload struct {
	Body string `json:"body"`
}

func parseMessageFrame(f *stomp.Frame) (ChatMessage, error) {
	var p messagePayload
	if err := json.Unmarshal(f.Body, &p); err != nil {
		return ChatMessage{}, WrapError(ErrorParse, "bad message frame body", err)
	}
	if p.SenderID == "" {
		return ChatMessage{}, NewError(ErrorParse, "message frame without sender")
	}
	return ChatMessage{
		RoomID:   p.RoomID,
		SenderID: p.SenderID,
		Body:     p.Body,
		SentAt:   p.SentAt,
	}, nil
}
