package repository

import (
	"time"

	"github.com/lumachat/chatcore/internal/domain"
	"github.com/lumachat/chatcore/internal/protocol"
)

// SessionModel is the persisted token and user snapshot consulted at process
// start for silent session restore. A single row (id 1) holds the current
// session.
type SessionModel struct {
	ID            int64     `gorm:"primaryKey;column:id"`
	Token         string    `gorm:"column:token"`
	UserID        int64     `gorm:"column:user_id"`
	Username      string    `gorm:"column:username"`
	Phone         string    `gorm:"column:phone"`
	UserCreatedAt time.Time `gorm:"column:user_created_at"`
	CreatedAt     time.Time `gorm:"column:created_at"`
	UpdatedAt     time.Time `gorm:"column:updated_at"`
}

func (SessionModel) TableName() string { return "sessions" }

const currentSessionID = 1

func SessionModelToDomain(m *SessionModel) *domain.Session {
	if m == nil {
		return nil
	}

	user := domain.NewUser(protocol.UserPayload{
		ID:       m.UserID,
		Username: m.Username,
		Phone:    m.Phone,
	})
	user.CreatedAt = m.UserCreatedAt

	return &domain.Session{
		Token: m.Token,
		User:  user,
	}
}

func SessionDomainToModel(sess *domain.Session) *SessionModel {
	if sess == nil || sess.User == nil {
		return nil
	}

	return &SessionModel{
		ID:            currentSessionID,
		Token:         sess.Token,
		UserID:        sess.User.ID,
		Username:      sess.User.Username,
		Phone:         sess.User.Phone,
		UserCreatedAt: sess.User.CreatedAt,
	}
}
