package driftchat

import (
	"context"
	"time"
)

// RoomSession drives the chat screen lifecycle: on activate it seeds the
// stream from history, acknowledges the room as read and opens the realtime
// connection; on deactivate it tears the connection down and clears the
// stream. A thin UI adapter calls Activate on screen focus and Deactivate on
// blur or unmount, so the core has no dependency on a navigation framework.
type RoomSession struct {
	directory Directory
	conn      *RealtimeChatConnection
	stream    *MessageStream
	markers   *ReadMarkers
	logger    Logger

	lastRoom string
}

// NewRoomSession wires the screen lifecycle. markers may be nil when no
// durable store is configured.
func NewRoomSession(directory Directory, conn *RealtimeChatConnection, stream *MessageStream, markers *ReadMarkers) *RoomSession {
	return &RoomSession{
		directory: directory,
		conn:      conn,
		stream:    stream,
		markers:   markers,
		logger:    noopLogger{},
	}
}

// SetLogger overrides the logger (optional).
func (r *RoomSession) SetLogger(l Logger) {
	if l != nil {
		r.logger = l
	}
}

// Activate enters roomID: any previous connection is fully closed first, the
// stream is reset and seeded from history, the room is acknowledged as read,
// then the realtime connection starts. HTTP failures are returned to the
// caller for per-screen handling; a mark-read failure alone does not block
// entering the room.
func (r *RoomSession) Activate(ctx context.Context, roomID string) error {
	r.Deactivate()
	r.lastRoom = roomID

	r.stream.Reset(roomID)
	history, err := r.directory.FetchHistory(ctx, roomID)
	if err != nil {
		return err
	}
	r.stream.AppendAll(history)

	if err := r.directory.MarkRead(ctx, roomID); err != nil {
		r.logger.Warn("mark-read failed", map[string]any{"room": roomID, "error": err.Error()})
	} else if r.markers != nil {
		if err := r.markers.MarkSeen(roomID, time.Now()); err != nil {
			r.logger.Warn("read marker persist failed", map[string]any{"room": roomID, "error": err.Error()})
		}
	}

	return r.conn.Connect(roomID)
}

// Deactivate leaves the current room: idempotent teardown plus stream reset.
func (r *RoomSession) Deactivate() {
	r.conn.Teardown()
	r.stream.Reset("")
}

// SwitchRoom is Activate for a new room; the old connection is fully closed
// before the new one opens, so two connections are never open concurrently.
func (r *RoomSession) SwitchRoom(ctx context.Context, roomID string) error {
	return r.Activate(ctx, roomID)
}

// Leave tells the directory to drop the current user from roomID and closes
// the screen if it is the active room.
func (r *RoomSession) Leave(ctx context.Context, roomID string) error {
	if r.conn.Room() == roomID {
		r.Deactivate()
	}
	return r.directory.Leave(ctx, roomID)
}

// BindFocus re-activates the last room on navigation focus and deactivates
// on blur.
func (r *RoomSession) BindFocus(src FocusSource) {
	src.OnFocus(func() {
		if r.lastRoom == "" {
			return
		}
		ctx, cancel := context.WithTimeout(context.Background(), refreshTimeout)
		defer cancel()
		if err := r.Activate(ctx, r.lastRoom); err != nil {
			r.logger.Warn("activate on focus failed", map[string]any{"room": r.lastRoom, "error": err.Error()})
		}
	})
	src.OnBlur(r.Deactivate)
}
