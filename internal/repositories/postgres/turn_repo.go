package postgres

import (
	"context"

	"github.com/yoockh/intervue/internal/models"
	"gorm.io/gorm"
)

type TurnRepository interface {
	Insert(ctx context.Context, turn *models.TurnRecord) error
	ListByInterview(ctx context.Context, userID, interviewID string, limit int) ([]models.TurnRecord, error)
	LatestN(ctx context.Context, userID string, n int) ([]models.TurnRecord, error)
}

type turnRepo struct {
	db *gorm.DB
}

func NewTurnRepo(db *gorm.DB) TurnRepository {
	return &turnRepo{db: db}
}

func (r *turnRepo) Insert(ctx context.Context, turn *models.TurnRecord) error {
	return r.db.WithContext(ctx).Create(turn).Error
}

func (r *turnRepo) ListByInterview(ctx context.Context, userID, interviewID string, limit int) ([]models.TurnRecord, error) {
	if limit <= 0 {
		limit = 200
	}

	var rows []models.TurnRecord
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND interview_id = ?", userID, interviewID).
		Order("timestamp ASC").
		Limit(limit).
		Find(&rows).Error
	return rows, err
}

func (r *turnRepo) LatestN(ctx context.Context, userID string, n int) ([]models.TurnRecord, error) {
	if n <= 0 {
		n = 10
	}
	var rows []models.TurnRecord
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("timestamp DESC").
		Limit(n).
		Find(&rows).Error
	return rows, err
}
