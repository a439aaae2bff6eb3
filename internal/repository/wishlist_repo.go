package repository

import (
	"context"
	"errors"

	"wishlist-service/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type WishlistRepo interface {
	Create(ctx context.Context, w *models.Wishlist) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Wishlist, error)
	GetBySlug(ctx context.Context, slug string) (*models.Wishlist, error)
	ListByOwner(ctx context.Context, ownerID uuid.UUID) ([]models.Wishlist, error)
	SlugExists(ctx context.Context, slug string) (bool, error)
	UpdateFields(ctx context.Context, id uuid.UUID, fields map[string]any) error
	Delete(ctx context.Context, id uuid.UUID) error
}

type wishlistRepo struct{ db *gorm.DB }

func NewWishlistRepo(db *gorm.DB) WishlistRepo { return &wishlistRepo{db: db} }

func (r *wishlistRepo) Create(ctx context.Context, w *models.Wishlist) error {
	return translate(r.db.WithContext(ctx).Create(w).Error)
}

func (r *wishlistRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Wishlist, error) {
	var w models.Wishlist
	err := r.db.WithContext(ctx).First(&w, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	return &w, err
}

func (r *wishlistRepo) GetBySlug(ctx context.Context, slug string) (*models.Wishlist, error) {
	var w models.Wishlist
	err := r.db.WithContext(ctx).First(&w, "slug = ?", slug).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	return &w, err
}

func (r *wishlistRepo) ListByOwner(ctx context.Context, ownerID uuid.UUID) ([]models.Wishlist, error) {
	var out []models.Wishlist
	err := r.db.WithContext(ctx).
		Where("owner_id = ?", ownerID).
		Order("created_at DESC").
		Find(&out).Error
	return out, err
}

func (r *wishlistRepo) SlugExists(ctx context.Context, slug string) (bool, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&models.Wishlist{}).Where("slug = ?", slug).Count(&n).Error
	return n > 0, err
}

func (r *wishlistRepo) UpdateFields(ctx context.Context, id uuid.UUID, fields map[string]any) error {
	return r.db.WithContext(ctx).Model(&models.Wishlist{}).Where("id = ?", id).Updates(fields).Error
}

func (r *wishlistRepo) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Delete(&models.Wishlist{}, "id = ?", id).Error
}
