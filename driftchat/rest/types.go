package rest

import "time"

// loginRequest is the request body for login.
type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// verifyPasswordRequest is the request body for the password probe.
type verifyPasswordRequest struct {
	Password string `json:"password"`
}

// tokenResponse carries the bearer token returned by login.
type tokenResponse struct {
	Token string `json:"token"`
}

// roomInfo is the wire form of a room summary.
type roomInfo struct {
	RoomID          string    `json:"room_id"`
	DisplayName     string    `json:"display_name"`
	IsGroup         bool      `json:"is_group"`
	LastMessage     string    `json:"last_message"`
	LastMessageTime time.Time `json:"last_message_time"`
	UnreadCount     int       `json:"unread_count"`
}

// messageInfo is the wire form of one history message.
type messageInfo struct {
	RoomID   string    `json:"room_id"`
	SenderID string    `json:"sender_id"`
	Body     string    `json:"body"`
	SentAt   time.Time `json:"sent_at"`
}

// historyResponse is a page of history in ascending order.
type historyResponse struct {
	Messages []messageInfo `json:"messages"`
	HasMore  bool          `json:"has_more"`
}

// errorResponse is the server's error envelope.
type errorResponse struct {
	Error string `json:"error"`
}
