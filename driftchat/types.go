package driftchat

import (
	"context"
	"time"
)

// ChatRoom is a conversation summary as reported by the directory. Rooms are
// refreshed wholesale on each listing; the only client-side mutation is the
// read acknowledgement, which resets UnreadCount.
type ChatRoom struct {
	RoomID          string
	DisplayName     string
	IsGroup         bool
	LastMessage     string
	LastMessageTime time.Time
	UnreadCount     int
}

// ChatMessage is one message in a room. Immutable once created. No
// server-issued message id is guaranteed, so identity is the
// (RoomID, SenderID, SentAt) tuple with a small timestamp tolerance.
type ChatMessage struct {
	RoomID   string
	SenderID string
	Body     string
	SentAt   time.Time
}

// Directory exposes the chat directory operations the connection layer and
// the unread aggregator consume. rest.Client is the production
// implementation.
type Directory interface {
	ListRooms(ctx context.Context) ([]ChatRoom, error)
	FetchHistory(ctx context.Context, roomID string) ([]ChatMessage, error)
	MarkRead(ctx context.Context, roomID string) error
	Leave(ctx context.Context, roomID string) error
}
