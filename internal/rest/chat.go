package rest

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"

	"github.com/rs/zerolog"

	"github.com/lumachat/chatcore/internal/domain"
	"github.com/lumachat/chatcore/internal/protocol"
	"github.com/lumachat/chatcore/internal/state"
)

// ChatService wraps the chat endpoints and resolves per-counterpart aliases
// onto direct rooms.
type ChatService struct {
	client *Client
	store  *state.Store
	log    zerolog.Logger
}

func NewChatService(client *Client, store *state.Store, log zerolog.Logger) *ChatService {
	return &ChatService{client: client, store: store, log: log}
}

// ListRooms fetches the room set and replaces the store's room list. Display
// names are unresolved; callers needing aliases follow with
// LoadRoomsWithAliases so a bare listing never blocks on per-room calls.
func (s *ChatService) ListRooms(ctx context.Context) ([]*domain.Room, error) {
	var payloads []protocol.RoomPayload
	if err := s.client.get(ctx, "chat/rooms", &payloads); err != nil {
		return nil, err
	}

	rooms := make([]*domain.Room, len(payloads))
	for i, p := range payloads {
		rooms[i] = domain.NewRoom(p)
	}
	s.store.SetRooms(rooms)
	return rooms, nil
}

func (s *ChatService) CreateRoom(ctx context.Context, name string, kind domain.RoomKind, participantIDs []int64) (*domain.Room, error) {
	if name == "" {
		return nil, fmt.Errorf("%w: room name is required", ErrValidation)
	}
	if len(participantIDs) == 0 {
		return nil, fmt.Errorf("%w: at least one participant is required", ErrValidation)
	}

	var payload protocol.RoomPayload
	if err := s.client.post(ctx, "chat/rooms", protocol.CreateRoomRequest{
		Name:           name,
		Type:           string(kind),
		AdminID:        s.store.CurrentUserID(),
		ParticipantIDs: participantIDs,
	}, &payload); err != nil {
		return nil, err
	}
	return domain.NewRoom(payload), nil
}

func (s *ChatService) Participants(ctx context.Context, roomID int64) ([]protocol.ParticipantPayload, error) {
	var payloads []protocol.ParticipantPayload
	if err := s.client.get(ctx, fmt.Sprintf("chat/rooms/%d/participants", roomID), &payloads); err != nil {
		return nil, err
	}
	return payloads, nil
}

// Messages fetches a room's history, sorted by send time. The result is not
// published; the orchestrator checks it against the still-current room first.
func (s *ChatService) Messages(ctx context.Context, roomID int64) ([]*domain.Message, error) {
	var payloads []protocol.MessagePayload
	if err := s.client.get(ctx, fmt.Sprintf("chat/rooms/%d/messages", roomID), &payloads); err != nil {
		return nil, err
	}

	msgs := make([]*domain.Message, len(payloads))
	for i, p := range payloads {
		msgs[i] = domain.NewMessage(p)
	}
	domain.SortMessages(msgs)
	return msgs, nil
}

func (s *ChatService) Users(ctx context.Context) ([]*domain.User, error) {
	var payloads []protocol.UserPayload
	if err := s.client.get(ctx, "chat/users", &payloads); err != nil {
		return nil, err
	}

	users := make([]*domain.User, len(payloads))
	for i, p := range payloads {
		users[i] = domain.NewUser(p)
	}
	return users, nil
}

// Alias returns the caller's alias for the target user, or empty when none is
// set.
func (s *ChatService) Alias(ctx context.Context, targetID int64) (string, error) {
	var payload protocol.AliasPayload
	if err := s.client.get(ctx, fmt.Sprintf("chat/alias/%d", targetID), &payload); err != nil {
		var apiErr *APIError
		if errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound {
			return "", nil
		}
		return "", err
	}
	return payload.Alias, nil
}

func (s *ChatService) SetAlias(ctx context.Context, targetID int64, name string) error {
	if name == "" {
		return fmt.Errorf("%w: alias name is required", ErrValidation)
	}
	return s.client.post(ctx, "chat/alias", protocol.SetAliasRequest{
		OwnerID:   s.store.CurrentUserID(),
		TargetID:  targetID,
		AliasName: name,
	}, nil)
}

// ResolveDirectRoomAlias returns a copy of a direct room with participants
// populated and the display name overridden by the resolved alias. The input
// room is never modified; rooms already published to the store stay immutable.
// Group rooms pass through untouched. Resolution failures are diagnostics
// only; the room stays usable under its unresolved name.
func (s *ChatService) ResolveDirectRoomAlias(ctx context.Context, room *domain.Room) *domain.Room {
	if !room.IsDirect() {
		return room
	}

	participants, err := s.Participants(ctx, room.ID)
	if err != nil {
		s.log.Warn().Err(err).Int64("room_id", room.ID).Msg("failed to resolve room participants")
		return room
	}
	resolved := room.Clone()
	resolved.SetParticipants(participants)

	other := resolved.OtherParticipant(s.store.CurrentUserID())
	if other == nil {
		return resolved
	}

	alias, err := s.Alias(ctx, other.UserID)
	if err != nil {
		s.log.Warn().Err(err).Int64("user_id", other.UserID).Msg("failed to resolve alias")
		return resolved
	}
	if alias != "" {
		resolved.DisplayName = alias
	}
	return resolved
}

// LoadRoomsWithAliases lists rooms, resolves aliases for every direct room
// concurrently, and republishes the fully resolved list. This is the only path
// that yields consistent alias-resolved names across the whole list; it must
// run after any alias-changing mutation. Each worker writes its resolved copy
// into its own slot, so the rooms published by ListRooms are never touched.
func (s *ChatService) LoadRoomsWithAliases(ctx context.Context) ([]*domain.Room, error) {
	rooms, err := s.ListRooms(ctx)
	if err != nil {
		return nil, err
	}

	resolved := make([]*domain.Room, len(rooms))
	copy(resolved, rooms)

	var wg sync.WaitGroup
	for i, room := range rooms {
		if !room.IsDirect() {
			continue
		}
		wg.Add(1)
		go func(i int, r *domain.Room) {
			defer wg.Done()
			resolved[i] = s.ResolveDirectRoomAlias(ctx, r)
		}(i, room)
	}
	wg.Wait()

	s.store.SetRooms(resolved)
	return resolved, nil
}
