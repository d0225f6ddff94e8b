package driftchat

import (
	"testing"
	"time"
)

func msgAt(sender, body string, at time.Time) ChatMessage {
	return ChatMessage{RoomID: "r1", SenderID: sender, Body: body, SentAt: at}
}

func TestStreamDropsDuplicate(t *testing.T) {
	s := NewMessageStream()
	at := time.Now()

	if !s.Append(msgAt("alice", "hi", at)) {
		t.Fatalf("first append dropped")
	}
	if s.Append(msgAt("alice", "hi", at)) {
		t.Fatalf("duplicate append accepted")
	}
	if s.Len() != 1 {
		t.Fatalf("len = %d, want 1", s.Len())
	}
}

func TestStreamDuplicateWithinTolerance(t *testing.T) {
	s := NewMessageStream()
	at := time.Now()

	s.Append(msgAt("alice", "hi", at))
	if s.Append(msgAt("alice", "hi", at.Add(time.Second))) {
		t.Fatalf("redelivery within tolerance accepted")
	}
	if !s.Append(msgAt("alice", "hi", at.Add(5*time.Second))) {
		t.Fatalf("genuine repeat outside tolerance dropped")
	}
	if !s.Append(msgAt("bob", "hi", at)) {
		t.Fatalf("same body from different sender dropped")
	}
}

func TestStreamKeepsArrivalOrder(t *testing.T) {
	s := NewMessageStream()
	base := time.Now()

	// sender clocks disagree with arrival order; the stream must not reorder
	s.Append(msgAt("alice", "second-by-clock", base.Add(10*time.Second)))
	s.Append(msgAt("bob", "first-by-clock", base))

	got := s.Messages()
	if got[0].Body != "second-by-clock" || got[1].Body != "first-by-clock" {
		t.Fatalf("stream reordered by timestamp: %+v", got)
	}
}

func TestStreamResetClearsRoom(t *testing.T) {
	s := NewMessageStream()
	s.Reset("r1")
	s.Append(msgAt("alice", "hi", time.Now()))

	s.Reset("r2")
	if s.Len() != 0 {
		t.Fatalf("messages leaked across rooms")
	}
	if s.Room() != "r2" {
		t.Fatalf("room = %q", s.Room())
	}
}

func TestStreamHistorySeedThenLive(t *testing.T) {
	s := NewMessageStream()
	at := time.Now()
	s.AppendAll([]ChatMessage{
		msgAt("alice", "a", at),
		msgAt("bob", "b", at.Add(time.Minute)),
	})
	// live delivery overlapping the history tail is deduplicated
	s.Append(msgAt("bob", "b", at.Add(time.Minute)))
	s.Append(msgAt("carol", "c", at.Add(2*time.Minute)))

	got := s.Messages()
	if len(got) != 3 || got[0].Body != "a" || got[1].Body != "b" || got[2].Body != "c" {
		t.Fatalf("stream = %+v", got)
	}
}
