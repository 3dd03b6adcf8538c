package repository

import (
	"context"

	"github.com/aniladanir/bulk-messenger-service/internal/domain"
	"github.com/aniladanir/bulk-messenger-service/internal/persistant"
	"gorm.io/gorm"
)

type Repository interface {
	Save(ctx context.Context, msg *domain.SentMessage) error
	List(ctx context.Context, userID string) ([]domain.SentMessage, error)
}

type repo struct {
	db *gorm.DB
}

func NewReportRepository(db *gorm.DB) Repository {
	return &repo{db: db}
}

// Save stores the log entry of a reconciled batch
func (r *repo) Save(ctx context.Context, msg *domain.SentMessage) error {
	return persistant.Classify(r.db.WithContext(ctx).Create(msg).Error)
}

// List returns the user's log entries, newest first
func (r *repo) List(ctx context.Context, userID string) ([]domain.SentMessage, error) {
	var msgs []domain.SentMessage
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC, id DESC").
		Find(&msgs).Error
	return msgs, persistant.Classify(err)
}
