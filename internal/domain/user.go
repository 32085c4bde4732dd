package domain

import (
	"strings"
	"time"

	"github.com/lumachat/chatcore/internal/protocol"
)

type User struct {
	ID        int64
	Username  string
	Phone     string
	CreatedAt time.Time
}

func NewUser(p protocol.UserPayload) *User {
	return &User{
		ID:        p.ID,
		Username:  p.Username,
		Phone:     p.Phone,
		CreatedAt: parseServerTime(p.CreatedAt),
	}
}

func (u *User) Valid() bool {
	return u != nil && u.ID != 0 && u.Username != ""
}

func (u *User) DisplayName() string {
	if u == nil {
		return ""
	}
	return u.Username
}

func (u *User) AvatarInitial() string {
	if u == nil || u.Username == "" {
		return ""
	}
	return strings.ToUpper(u.Username[:1])
}

func (u *User) Payload() protocol.UserPayload {
	p := protocol.UserPayload{
		ID:       u.ID,
		Username: u.Username,
		Phone:    u.Phone,
	}
	if !u.CreatedAt.IsZero() {
		p.CreatedAt = u.CreatedAt.Format(time.RFC3339)
	}
	return p
}
