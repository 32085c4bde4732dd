package protocol

import (
	"encoding/json"
	"errors"
	"fmt"
)

type EventType string

const (
	EventConnected   EventType = "connected"
	EventRoomCreated EventType = "room_created"
	EventRoomFound   EventType = "room_found"
	EventRoomJoined  EventType = "room_joined"
	EventNewMessage  EventType = "new_message"
	EventTyping      EventType = "typing"
	EventUserJoined  EventType = "user_joined"
	EventError       EventType = "error"
)

// ErrUnknownEventType marks inbound frames whose type discriminator is not
// part of the protocol. Receivers log and drop such frames.
var ErrUnknownEventType = errors.New("unknown event type")

// Event is an inbound frame decoded from the chat socket.
type Event interface {
	EventType() EventType
}

type ConnectedEvent struct{}

func (ConnectedEvent) EventType() EventType { return EventConnected }

type RoomCreatedEvent struct {
	Room      RoomPayload `json:"room"`
	CreatorID int64       `json:"creator_id"`
}

func (RoomCreatedEvent) EventType() EventType { return EventRoomCreated }

type RoomFoundEvent struct {
	Room RoomPayload `json:"room"`
}

func (RoomFoundEvent) EventType() EventType { return EventRoomFound }

type RoomJoinedEvent struct {
	RoomID int64 `json:"room_id"`
}

func (RoomJoinedEvent) EventType() EventType { return EventRoomJoined }

type NewMessageEvent struct {
	Message MessagePayload `json:"message"`
}

func (NewMessageEvent) EventType() EventType { return EventNewMessage }

type TypingEvent struct {
	UserID   int64  `json:"user_id"`
	Username string `json:"username"`
	IsTyping bool   `json:"is_typing"`
}

func (TypingEvent) EventType() EventType { return EventTyping }

type UserJoinedEvent struct {
	Username string `json:"username"`
}

func (UserJoinedEvent) EventType() EventType { return EventUserJoined }

type ErrorEvent struct {
	Message string `json:"message"`
}

func (ErrorEvent) EventType() EventType { return EventError }

type envelope struct {
	Type EventType `json:"type"`
}

// DecodeEvent decodes an inbound frame by its type discriminator.
func DecodeEvent(data []byte) (Event, error) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("decode event envelope: %w", err)
	}

	switch env.Type {
	case EventConnected:
		return ConnectedEvent{}, nil
	case EventRoomCreated:
		var evt RoomCreatedEvent
		if err := json.Unmarshal(data, &evt); err != nil {
			return nil, fmt.Errorf("decode %s event: %w", env.Type, err)
		}
		return evt, nil
	case EventRoomFound:
		var evt RoomFoundEvent
		if err := json.Unmarshal(data, &evt); err != nil {
			return nil, fmt.Errorf("decode %s event: %w", env.Type, err)
		}
		return evt, nil
	case EventRoomJoined:
		var evt RoomJoinedEvent
		if err := json.Unmarshal(data, &evt); err != nil {
			return nil, fmt.Errorf("decode %s event: %w", env.Type, err)
		}
		return evt, nil
	case EventNewMessage:
		var evt NewMessageEvent
		if err := json.Unmarshal(data, &evt); err != nil {
			return nil, fmt.Errorf("decode %s event: %w", env.Type, err)
		}
		return evt, nil
	case EventTyping:
		var evt TypingEvent
		if err := json.Unmarshal(data, &evt); err != nil {
			return nil, fmt.Errorf("decode %s event: %w", env.Type, err)
		}
		return evt, nil
	case EventUserJoined:
		var evt UserJoinedEvent
		if err := json.Unmarshal(data, &evt); err != nil {
			return nil, fmt.Errorf("decode %s event: %w", env.Type, err)
		}
		return evt, nil
	case EventError:
		var evt ErrorEvent
		if err := json.Unmarshal(data, &evt); err != nil {
			return nil, fmt.Errorf("decode %s event: %w", env.Type, err)
		}
		return evt, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownEventType, env.Type)
	}
}
