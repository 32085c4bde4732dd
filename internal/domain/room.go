package domain

import (
	"fmt"
	"time"

	"github.com/lumachat/chatcore/internal/protocol"
)

type RoomKind string

const (
	RoomKindDirect RoomKind = "direct"
	RoomKindGroup  RoomKind = "group"
)

// Participant is a member of a room as reported by the participants endpoint.
type Participant struct {
	UserID   int64
	Username string
}

// Room is the client's view of a chat room. DisplayName defaults to Name and
// is overridden by alias resolution for direct rooms. Participants is empty
// until the room is selected and resolved.
type Room struct {
	ID               int64
	Name             string
	Kind             RoomKind
	AdminID          int64
	ParticipantCount int
	CreatedAt        time.Time
	DisplayName      string
	Participants     []Participant
}

func NewRoom(p protocol.RoomPayload) *Room {
	kind := RoomKind(p.Type)
	if kind != RoomKindGroup {
		kind = RoomKindDirect
	}
	return &Room{
		ID:               p.ID,
		Name:             p.Name,
		Kind:             kind,
		AdminID:          p.AdminID,
		ParticipantCount: p.ParticipantCount,
		CreatedAt:        parseServerTime(p.CreatedAt),
		DisplayName:      p.Name,
	}
}

func (r *Room) IsDirect() bool {
	return r != nil && r.Kind == RoomKindDirect
}

func (r *Room) IsGroup() bool {
	return r != nil && r.Kind == RoomKindGroup
}

func (r *Room) KindDisplay() string {
	if r.IsDirect() {
		return "direct"
	}
	return fmt.Sprintf("group (%d)", r.ParticipantCount)
}

// Display returns the alias-resolved name, falling back to the room name.
func (r *Room) Display() string {
	if r == nil {
		return ""
	}
	if r.DisplayName != "" {
		return r.DisplayName
	}
	return r.Name
}

// Clone returns a copy that may be modified without affecting the original.
// Rooms held by the state store are treated as immutable; resolution and alias
// edits work on clones and republish through the store.
func (r *Room) Clone() *Room {
	if r == nil {
		return nil
	}
	c := *r
	c.Participants = append([]Participant(nil), r.Participants...)
	return &c
}

func (r *Room) SetParticipants(ps []protocol.ParticipantPayload) {
	participants := make([]Participant, len(ps))
	for i, p := range ps {
		participants[i] = Participant{UserID: p.UserID, Username: p.Username}
	}
	r.Participants = participants
}

// OtherParticipant returns the counterpart in a direct room, nil for group
// rooms or while participants are unresolved.
func (r *Room) OtherParticipant(selfID int64) *Participant {
	if !r.IsDirect() {
		return nil
	}
	for i := range r.Participants {
		if r.Participants[i].UserID != selfID {
			return &r.Participants[i]
		}
	}
	return nil
}
