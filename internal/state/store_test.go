package state

import (
	"testing"

	"github.com/rs/zerolog"

	"github.com/lumachat/chatcore/internal/domain"
	"github.com/lumachat/chatcore/internal/protocol"
)

func newTestStore() *Store {
	return NewStore(zerolog.Nop())
}

func room(id int64, name string) *domain.Room {
	return domain.NewRoom(protocol.RoomPayload{ID: id, Name: name, Type: "direct"})
}

func TestAddRoomIsIdempotentByID(t *testing.T) {
	s := newTestStore()

	added := 0
	s.Subscribe(EventRoomAdded, func(any) { added++ })

	if !s.AddRoom(room(1, "alice & bob")) {
		t.Fatal("first insert should report added")
	}
	if s.AddRoom(room(1, "alice & bob")) {
		t.Fatal("second insert with same id should be a no-op")
	}

	rooms := s.Rooms()
	if len(rooms) != 1 {
		t.Fatalf("expected 1 room, got %d", len(rooms))
	}
	if added != 1 {
		t.Fatalf("expected 1 roomAdded notification, got %d", added)
	}
}

func TestAddRoomPrepends(t *testing.T) {
	s := newTestStore()
	s.AddRoom(room(1, "old"))
	s.AddRoom(room(2, "new"))

	rooms := s.Rooms()
	if rooms[0].ID != 2 || rooms[1].ID != 1 {
		t.Fatalf("expected most-recent-first ordering, got %d,%d", rooms[0].ID, rooms[1].ID)
	}
}

func TestUpdateRoomReplacesListEntryAndCurrentRoom(t *testing.T) {
	s := newTestStore()
	s.AddRoom(room(1, "alice & bob"))
	s.SetCurrentRoom(s.FindRoom(1))

	roomsChanged := 0
	roomChanged := 0
	s.Subscribe(EventRoomsChanged, func(any) { roomsChanged++ })
	s.Subscribe(EventRoomChanged, func(any) { roomChanged++ })

	renamed := s.FindRoom(1).Clone()
	renamed.DisplayName = "Bob"
	s.UpdateRoom(renamed)

	if got := s.FindRoom(1).Display(); got != "Bob" {
		t.Fatalf("list entry should carry the new copy, got %q", got)
	}
	if got := s.CurrentRoom().Display(); got != "Bob" {
		t.Fatalf("current room should carry the new copy, got %q", got)
	}
	if roomsChanged != 1 || roomChanged != 1 {
		t.Fatalf("expected 1 roomsChanged and 1 roomChanged, got %d/%d", roomsChanged, roomChanged)
	}
	if len(s.Rooms()) != 1 {
		t.Fatalf("update must not grow the list, got %d rooms", len(s.Rooms()))
	}
}

func TestUpdateRoomLeavesOtherRoomsAlone(t *testing.T) {
	s := newTestStore()
	s.AddRoom(room(1, "alice & bob"))
	s.AddRoom(room(2, "alice & carol"))
	s.SetCurrentRoom(s.FindRoom(2))

	renamed := s.FindRoom(1).Clone()
	renamed.DisplayName = "Bob"
	s.UpdateRoom(renamed)

	if got := s.CurrentRoom().Display(); got != "alice & carol" {
		t.Fatalf("current room for another id must be untouched, got %q", got)
	}
	if got := s.FindRoom(2).Display(); got != "alice & carol" {
		t.Fatalf("other list entries must be untouched, got %q", got)
	}
}

func TestSubscribersFireInRegistrationOrder(t *testing.T) {
	s := newTestStore()

	var order []int
	s.Subscribe(EventTokenChanged, func(any) { order = append(order, 1) })
	s.Subscribe(EventTokenChanged, func(any) { order = append(order, 2) })
	s.Subscribe(EventTokenChanged, func(any) { order = append(order, 3) })

	s.SetToken("tok")

	if len(order) != 3 || order[0] != 1 || order[1] != 2 || order[2] != 3 {
		t.Fatalf("expected registration-order delivery, got %v", order)
	}
}

func TestSubscribeIsByExactEventName(t *testing.T) {
	s := newTestStore()

	fired := false
	s.Subscribe(EventRoomsChanged, func(any) { fired = true })

	s.SetToken("tok")
	if fired {
		t.Fatal("tokenChanged must not reach a roomsChanged subscriber")
	}
}

func TestUnsubscribeTwiceIsNoOp(t *testing.T) {
	s := newTestStore()

	calls := 0
	unsub := s.Subscribe(EventTokenChanged, func(any) { calls++ })
	kept := 0
	s.Subscribe(EventTokenChanged, func(any) { kept++ })

	unsub()
	unsub()

	s.SetToken("tok")
	if calls != 0 {
		t.Fatalf("unsubscribed handler fired %d times", calls)
	}
	if kept != 1 {
		t.Fatalf("remaining handler should fire once, got %d", kept)
	}
}

func TestClearResetsEverythingAndNotifiesOnce(t *testing.T) {
	s := newTestStore()
	s.SetCurrentUser(domain.NewUser(protocol.UserPayload{ID: 7, Username: "alice"}))
	s.SetToken("tok")
	s.AddRoom(room(1, "r"))
	s.SetCurrentRoom(s.Rooms()[0])
	s.AddMessage(domain.NewMessage(protocol.MessagePayload{ID: 1, ChatRoomID: 1, Content: "hi"}))

	cleared := 0
	others := 0
	s.Subscribe(EventCleared, func(any) { cleared++ })
	for _, name := range []EventName{EventUserChanged, EventTokenChanged, EventRoomChanged, EventRoomsChanged, EventMessagesChanged} {
		s.Subscribe(name, func(any) { others++ })
	}

	s.Clear()
	s.Clear() // idempotent

	if cleared != 2 {
		t.Fatalf("expected one cleared notification per Clear, got %d", cleared)
	}
	if others != 0 {
		t.Fatalf("Clear must emit only the cleared notification, saw %d others", others)
	}
	if s.Token() != "" || s.CurrentUser() != nil || s.CurrentRoom() != nil {
		t.Fatal("identity fields survived Clear")
	}
	if len(s.Rooms()) != 0 || len(s.Messages()) != 0 {
		t.Fatal("collections survived Clear")
	}
	if s.Authenticated() {
		t.Fatal("store still authenticated after Clear")
	}
}

func TestAddMessageAlwaysAppends(t *testing.T) {
	s := newTestStore()
	msg := domain.NewMessage(protocol.MessagePayload{ID: 5, ChatRoomID: 1, Content: "hi"})

	s.AddMessage(msg)
	s.AddMessage(msg)

	if len(s.Messages()) != 2 {
		t.Fatalf("AddMessage must not deduplicate, got %d messages", len(s.Messages()))
	}
}

func TestHandlerMayCallBackIntoStore(t *testing.T) {
	s := newTestStore()

	s.Subscribe(EventRoomAdded, func(any) {
		// Re-entrant read must not deadlock.
		_ = s.Rooms()
	})
	s.AddRoom(room(1, "r"))
}

func TestCurrentRoomIDZeroWhenNoRoom(t *testing.T) {
	s := newTestStore()
	if s.CurrentRoomID() != 0 {
		t.Fatal("expected 0 for no active room")
	}
	s.SetCurrentRoom(room(9, "r"))
	if s.CurrentRoomID() != 9 {
		t.Fatalf("expected 9, got %d", s.CurrentRoomID())
	}
}
