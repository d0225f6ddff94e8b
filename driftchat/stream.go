package driftchat

import (
	"sync"
	"time"
)

// dedupTolerance bounds how far apart two SentAt values may be while still
// counting as the same message from the same sender with the same body.
const dedupTolerance = 2 * time.Second

// dedupWindow bounds how many trailing messages are scanned per append.
const dedupWindow = 64

// MessageStream is the append-only, de-duplicated, arrival-ordered message
// sequence for the room currently open. It is seeded in bulk from a history
// fetch and grown incrementally from the live subscription. It never reorders
// by SentAt: socket-arrival order is the specified order.
type MessageStream struct {
	mu       sync.Mutex
	roomID   string
	messages []ChatMessage
}

func NewMessageStream() *MessageStream {
	return &MessageStream{}
}

// Append adds msg unless an equivalent message is already present. Returns
// false when the message was dropped as a duplicate.
func (s *MessageStream) Append(msg ChatMessage) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	start := len(s.messages) - dedupWindow
	if start < 0 {
		start = 0
	}
	for i := len(s.messages) - 1; i >= start; i-- {
		if sameMessage(s.messages[i], msg) {
			return false
		}
	}
	s.messages = append(s.messages, msg)
	return true
}

// AppendAll seeds the stream from a history page, applying the same
// de-duplication per message.
func (s *MessageStream) AppendAll(msgs []ChatMessage) {
	for _, m := range msgs {
		s.Append(m)
	}
}

// Messages returns a snapshot copy in arrival order.
func (s *MessageStream) Messages() []ChatMessage {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]ChatMessage, len(s.messages))
	copy(out, s.messages)
	return out
}

// Len returns the number of messages.
func (s *MessageStream) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.messages)
}

// Room returns the room the stream currently belongs to.
func (s *MessageStream) Room() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.roomID
}

// Reset clears the stream for a room switch. No cross-room leakage.
func (s *MessageStream) Reset(roomID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.roomID = roomID
	s.messages = nil
}

func sameMessage(a, b ChatMessage) bool {
	if a.SenderID != b.SenderID || a.Body != b.Body {
		return false
	}
	d := a.SentAt.Sub(b.SentAt)
	if d < 0 {
		d = -d
	}
	return d <= dedupTolerance
}
