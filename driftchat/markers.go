package driftchat

import (
	"time"

	"github.com/driftchat/drift-sdk-go/driftchat/store"
)

const readMarkerPrefix = "room/read/"

// ReadMarkers persists small per-room read-marker flags across process
// restarts. The server remains the source of truth for unread counts; the
// marker only records when this device last acknowledged a room.
type ReadMarkers struct {
	kv store.KV
}

func NewReadMarkers(kv store.KV) *ReadMarkers {
	return &ReadMarkers{kv: kv}
}

// MarkSeen records that roomID was read at the given time.
func (m *ReadMarkers) MarkSeen(roomID string, at time.Time) error {
	return m.kv.Set(readMarkerPrefix+roomID, []byte(at.UTC().Format(time.RFC3339Nano)))
}

// LastSeen returns the last recorded read time for roomID. The second return
// is false when the room was never acknowledged on this device.
func (m *ReadMarkers) LastSeen(roomID string) (time.Time, bool, error) {
	v, ok, err := m.kv.Get(readMarkerPrefix + roomID)
	if err != nil || !ok {
		return time.Time{}, false, err
	}
	at, err := time.Parse(time.RFC3339Nano, string(v))
	if err != nil {
		return time.Time{}, false, err
	}
	return at, true, nil
}
