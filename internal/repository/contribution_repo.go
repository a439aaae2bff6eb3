package repository

import (
	"context"

	"wishlist-service/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type ContributionRepo interface {
	Create(ctx context.Context, c *models.Contribution) error
	SumByItem(ctx context.Context, itemID uuid.UUID) (int64, error)
	CountByItem(ctx context.Context, itemID uuid.UUID) (int64, error)
	ListByItems(ctx context.Context, itemIDs []uuid.UUID) ([]models.Contribution, error)
}

type contributionRepo struct{ db *gorm.DB }

func NewContributionRepo(db *gorm.DB) ContributionRepo { return &contributionRepo{db: db} }

func (r *contributionRepo) Create(ctx context.Context, c *models.Contribution) error {
	return translate(r.db.WithContext(ctx).Create(c).Error)
}

func (r *contributionRepo) SumByItem(ctx context.Context, itemID uuid.UUID) (int64, error) {
	var sum int64
	err := r.db.WithContext(ctx).Model(&models.Contribution{}).
		Select("COALESCE(SUM(amount_cents), 0)").
		Where("item_id = ?", itemID).
		Scan(&sum).Error
	return sum, err
}

func (r *contributionRepo) CountByItem(ctx context.Context, itemID uuid.UUID) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&models.Contribution{}).Where("item_id = ?", itemID).Count(&n).Error
	return n, err
}

func (r *contributionRepo) ListByItems(ctx context.Context, itemIDs []uuid.UUID) ([]models.Contribution, error) {
	var out []models.Contribution
	if len(itemIDs) == 0 {
		return out, nil
	}
	err := r.db.WithContext(ctx).
		Where("item_id IN ?", itemIDs).
		Order("created_at ASC").
		Find(&out).Error
	return out, err
}
