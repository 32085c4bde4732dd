package domain

import (
	"testing"

	"github.com/lumachat/chatcore/internal/protocol"
)

func TestNewRoomDefaults(t *testing.T) {
	r := NewRoom(protocol.RoomPayload{ID: 1, Name: "alice & bob", Type: "direct"})
	if r.Kind != RoomKindDirect {
		t.Fatalf("expected direct, got %s", r.Kind)
	}
	if r.Display() != "alice & bob" {
		t.Fatalf("display name must default to room name, got %q", r.Display())
	}

	g := NewRoom(protocol.RoomPayload{ID: 2, Name: "team", Type: "group"})
	if !g.IsGroup() {
		t.Fatal("expected group room")
	}

	unknown := NewRoom(protocol.RoomPayload{ID: 3, Name: "x", Type: "weird"})
	if !unknown.IsDirect() {
		t.Fatal("unknown kinds default to direct")
	}
}

func TestOtherParticipant(t *testing.T) {
	r := NewRoom(protocol.RoomPayload{ID: 1, Name: "alice & bob", Type: "direct"})
	r.SetParticipants([]protocol.ParticipantPayload{
		{UserID: 10, Username: "alice"},
		{UserID: 20, Username: "bob"},
	})

	other := r.OtherParticipant(10)
	if other == nil || other.UserID != 20 {
		t.Fatalf("expected bob (20), got %+v", other)
	}

	g := NewRoom(protocol.RoomPayload{ID: 2, Name: "team", Type: "group"})
	g.SetParticipants([]protocol.ParticipantPayload{{UserID: 10}, {UserID: 20}})
	if g.OtherParticipant(10) != nil {
		t.Fatal("OtherParticipant is only meaningful for direct rooms")
	}

	empty := NewRoom(protocol.RoomPayload{ID: 3, Name: "d", Type: "direct"})
	if empty.OtherParticipant(10) != nil {
		t.Fatal("unresolved participants must yield nil")
	}
}

func TestMessageAccessors(t *testing.T) {
	m := NewMessage(protocol.MessagePayload{
		ID:             1,
		ChatRoomID:     2,
		SenderID:       10,
		SenderUsername: "bob",
		Content:        "hi",
		MessageType:    "text",
		SentAt:         "2026-03-01T12:30:00Z",
	})

	if !m.IsOwn(10) || m.IsOwn(11) {
		t.Fatal("IsOwn must compare sender id")
	}
	if m.SenderDisplayName("") != "bob" {
		t.Fatal("empty alias falls back to username")
	}
	if m.SenderDisplayName("Bobby") != "Bobby" {
		t.Fatal("alias overrides username")
	}
	if m.FormattedTime() != "12:30" {
		t.Fatalf("unexpected formatted time %q", m.FormattedTime())
	}
}

func TestMessageKindAndSentAtDefaults(t *testing.T) {
	m := NewMessage(protocol.MessagePayload{ID: 1, Content: "hi"})
	if m.Kind != MessageKindText {
		t.Fatalf("expected text default, got %s", m.Kind)
	}
	if m.SentAt.IsZero() {
		t.Fatal("missing sent_at must fall back to arrival time")
	}
}

func TestSortMessagesBySentAtThenID(t *testing.T) {
	ts := "2026-03-01T12:30:00Z"
	msgs := []*Message{
		NewMessage(protocol.MessagePayload{ID: 3, SentAt: ts}),
		NewMessage(protocol.MessagePayload{ID: 1, SentAt: "2026-03-01T12:31:00Z"}),
		NewMessage(protocol.MessagePayload{ID: 2, SentAt: ts}),
	}

	SortMessages(msgs)

	if msgs[0].ID != 2 || msgs[1].ID != 3 || msgs[2].ID != 1 {
		t.Fatalf("unexpected order: %d,%d,%d", msgs[0].ID, msgs[1].ID, msgs[2].ID)
	}
}

func TestParseServerTimeLayouts(t *testing.T) {
	cases := map[string]bool{
		"2026-03-01T12:30:00Z":       true,
		"2026-03-01T12:30:00.123456": true,
		"2026-03-01T12:30:00":        true,
		"not a timestamp":            false,
		"":                           false,
	}
	for in, ok := range cases {
		got := parseServerTime(in)
		if ok && got.IsZero() {
			t.Errorf("expected %q to parse", in)
		}
		if !ok && !got.IsZero() {
			t.Errorf("expected %q to yield zero time", in)
		}
	}
}

func TestSessionAuthenticated(t *testing.T) {
	var nilSess *Session
	if nilSess.Authenticated() {
		t.Fatal("nil session is not authenticated")
	}
	if (&Session{Token: "t"}).Authenticated() {
		t.Fatal("token without user is not authenticated")
	}
	sess := &Session{Token: "t", User: NewUser(protocol.UserPayload{ID: 1, Username: "a"})}
	if !sess.Authenticated() {
		t.Fatal("expected authenticated session")
	}
}

func TestUserAccessors(t *testing.T) {
	u := NewUser(protocol.UserPayload{ID: 1, Username: "alice"})
	if u.AvatarInitial() != "A" {
		t.Fatalf("expected A, got %q", u.AvatarInitial())
	}
	if !u.Valid() {
		t.Fatal("expected valid user")
	}
	var nilUser *User
	if nilUser.Valid() || nilUser.DisplayName() != "" {
		t.Fatal("nil user accessors must be safe")
	}
}
