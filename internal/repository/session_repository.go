package repository

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/lumachat/chatcore/internal/domain"
)

type SessionRepository interface {
	Save(ctx context.Context, sess *domain.Session) error
	Load(ctx context.Context) (*domain.Session, error)
	Clear(ctx context.Context) error
}

type gormSessionRepository struct {
	db *gorm.DB
}

func NewSessionRepository(db *gorm.DB) SessionRepository {
	return &gormSessionRepository{db: db}
}

func (r *gormSessionRepository) Save(ctx context.Context, sess *domain.Session) error {
	model := SessionDomainToModel(sess)
	if model == nil {
		return nil
	}
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		UpdateAll: true,
	}).Create(model).Error
}

func (r *gormSessionRepository) Load(ctx context.Context) (*domain.Session, error) {
	var model SessionModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", currentSessionID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return SessionModelToDomain(&model), nil
}

func (r *gormSessionRepository) Clear(ctx context.Context) error {
	return r.db.WithContext(ctx).
		Where("id = ?", currentSessionID).
		Delete(&SessionModel{}).Error
}
