package domain

import (
	"sort"
	"time"

	"github.com/lumachat/chatcore/internal/protocol"
)

type MessageKind string

const (
	MessageKindText   MessageKind = "text"
	MessageKindSystem MessageKind = "system"
)

// Message is immutable once constructed. History fetches and push events go
// through the same constructor so both paths yield identical records.
type Message struct {
	ID             int64
	RoomID         int64
	SenderID       int64
	SenderUsername string
	Content        string
	Kind           MessageKind
	SentAt         time.Time
}

func NewMessage(p protocol.MessagePayload) *Message {
	kind := MessageKind(p.MessageType)
	if kind == "" {
		kind = MessageKindText
	}
	sentAt := parseServerTime(p.SentAt)
	if sentAt.IsZero() {
		sentAt = time.Now()
	}
	return &Message{
		ID:             p.ID,
		RoomID:         p.ChatRoomID,
		SenderID:       p.SenderID,
		SenderUsername: p.SenderUsername,
		Content:        p.Content,
		Kind:           kind,
		SentAt:         sentAt,
	}
}

func (m *Message) IsOwn(userID int64) bool {
	return m != nil && m.SenderID == userID
}

func (m *Message) FormattedTime() string {
	return m.SentAt.Format("15:04")
}

// SenderDisplayName prefers the caller-resolved alias over the raw username.
func (m *Message) SenderDisplayName(alias string) string {
	if alias != "" {
		return alias
	}
	return m.SenderUsername
}

// SortMessages orders by send time, with the server-assigned id as a stable
// tiebreak for identical timestamps.
func SortMessages(msgs []*Message) {
	sort.SliceStable(msgs, func(i, j int) bool {
		if msgs[i].SentAt.Equal(msgs[j].SentAt) {
			return msgs[i].ID < msgs[j].ID
		}
		return msgs[i].SentAt.Before(msgs[j].SentAt)
	})
}
