package state

import (
	"sync"

	"github.com/rs/zerolog"

	"github.com/lumachat/chatcore/internal/domain"
)

// EventName identifies a store notification. Subscription is by exact name.
type EventName string

const (
	EventUserChanged     EventName = "userChanged"
	EventTokenChanged    EventName = "tokenChanged"
	EventRoomChanged     EventName = "roomChanged"
	EventRoomsChanged    EventName = "roomsChanged"
	EventRoomAdded       EventName = "roomAdded"
	EventMessagesChanged EventName = "messagesChanged"
	EventMessageAdded    EventName = "messageAdded"
	EventCleared         EventName = "stateCleared"
)

// Handler receives the new value associated with a notification.
type Handler func(payload any)

type subscriber struct {
	id int
	fn Handler
}

// Store is the single source of truth for session identity, the room list and
// the active message stream. All shared-state mutation funnels through its
// setters, which notify subscribers of the matching event name synchronously
// and in registration order.
type Store struct {
	mu  sync.RWMutex
	log zerolog.Logger

	currentUser *domain.User
	token       string
	currentRoom *domain.Room
	rooms       []*domain.Room
	messages    []*domain.Message

	nextSubID   int
	subscribers map[EventName][]subscriber
}

func NewStore(log zerolog.Logger) *Store {
	return &Store{
		log:         log,
		subscribers: make(map[EventName][]subscriber),
	}
}

// Subscribe registers a handler for one event name and returns an unsubscribe
// handle. Calling the handle twice is a no-op.
func (s *Store) Subscribe(event EventName, fn Handler) func() {
	s.mu.Lock()
	s.nextSubID++
	id := s.nextSubID
	s.subscribers[event] = append(s.subscribers[event], subscriber{id: id, fn: fn})
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		subs := s.subscribers[event]
		for i := range subs {
			if subs[i].id == id {
				s.subscribers[event] = append(subs[:i:i], subs[i+1:]...)
				return
			}
		}
	}
}

// notify snapshots the handler list under the lock, then invokes handlers
// without it so a handler may call back into the store.
func (s *Store) notify(event EventName, payload any) {
	s.mu.RLock()
	subs := make([]subscriber, len(s.subscribers[event]))
	copy(subs, s.subscribers[event])
	s.mu.RUnlock()

	s.log.Debug().Str("event", string(event)).Int("subscribers", len(subs)).Msg("notifying subscribers")
	for _, sub := range subs {
		sub.fn(payload)
	}
}

func (s *Store) SetCurrentUser(user *domain.User) {
	s.mu.Lock()
	s.currentUser = user
	s.mu.Unlock()
	s.notify(EventUserChanged, user)
}

func (s *Store) CurrentUser() *domain.User {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.currentUser
}

// CurrentUserID returns 0 when no user is set.
func (s *Store) CurrentUserID() int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.currentUser == nil {
		return 0
	}
	return s.currentUser.ID
}

func (s *Store) SetToken(token string) {
	s.mu.Lock()
	s.token = token
	s.mu.Unlock()
	s.notify(EventTokenChanged, token)
}

func (s *Store) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token
}

func (s *Store) Authenticated() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token != "" && s.currentUser.Valid()
}

func (s *Store) Session() *domain.Session {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return &domain.Session{Token: s.token, User: s.currentUser}
}

func (s *Store) SetCurrentRoom(room *domain.Room) {
	s.mu.Lock()
	s.currentRoom = room
	s.mu.Unlock()
	s.notify(EventRoomChanged, room)
}

func (s *Store) CurrentRoom() *domain.Room {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.currentRoom
}

// CurrentRoomID returns 0 when no room is active.
func (s *Store) CurrentRoomID() int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.currentRoom == nil {
		return 0
	}
	return s.currentRoom.ID
}

func (s *Store) SetRooms(rooms []*domain.Room) {
	s.mu.Lock()
	s.rooms = append([]*domain.Room(nil), rooms...)
	s.mu.Unlock()
	s.notify(EventRoomsChanged, s.Rooms())
}

// AddRoom prepends a room, most-recent-first. Insertion is idempotent by room
// id: a duplicate neither re-inserts nor re-notifies.
func (s *Store) AddRoom(room *domain.Room) bool {
	s.mu.Lock()
	for _, r := range s.rooms {
		if r.ID == room.ID {
			s.mu.Unlock()
			return false
		}
	}
	s.rooms = append([]*domain.Room{room}, s.rooms...)
	s.mu.Unlock()

	s.notify(EventRoomAdded, room)
	s.notify(EventRoomsChanged, s.Rooms())
	return true
}

// UpdateRoom replaces the stored room carrying the same id, and the current
// room when it matches. Rooms are immutable once published; display or
// participant changes arrive here as fresh copies.
func (s *Store) UpdateRoom(room *domain.Room) {
	if room == nil {
		return
	}
	s.mu.Lock()
	for i, r := range s.rooms {
		if r.ID == room.ID {
			s.rooms[i] = room
			break
		}
	}
	current := s.currentRoom != nil && s.currentRoom.ID == room.ID
	if current {
		s.currentRoom = room
	}
	s.mu.Unlock()

	s.notify(EventRoomsChanged, s.Rooms())
	if current {
		s.notify(EventRoomChanged, room)
	}
}

func (s *Store) Rooms() []*domain.Room {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]*domain.Room(nil), s.rooms...)
}

func (s *Store) FindRoom(id int64) *domain.Room {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, r := range s.rooms {
		if r.ID == id {
			return r
		}
	}
	return nil
}

func (s *Store) SetMessages(messages []*domain.Message) {
	s.mu.Lock()
	s.messages = append([]*domain.Message(nil), messages...)
	s.mu.Unlock()
	s.notify(EventMessagesChanged, s.Messages())
}

// AddMessage always appends; duplicate suppression is the orchestrator's
// responsibility.
func (s *Store) AddMessage(msg *domain.Message) {
	s.mu.Lock()
	s.messages = append(s.messages, msg)
	s.mu.Unlock()
	s.notify(EventMessageAdded, msg)
	s.notify(EventMessagesChanged, s.Messages())
}

func (s *Store) Messages() []*domain.Message {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]*domain.Message(nil), s.messages...)
}

func (s *Store) ClearMessages() {
	s.mu.Lock()
	s.messages = nil
	s.mu.Unlock()
	s.notify(EventMessagesChanged, []*domain.Message{})
}

// Clear resets every field to its empty value and emits a single cleared
// notification. It is the only full reset of session state and is safe to call
// repeatedly.
func (s *Store) Clear() {
	s.mu.Lock()
	s.currentUser = nil
	s.token = ""
	s.currentRoom = nil
	s.rooms = nil
	s.messages = nil
	s.mu.Unlock()
	s.notify(EventCleared, nil)
}
