package repository

import (
	"context"
	"errors"

	"wishlist-service/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type ReservationRepo interface {
	Create(ctx context.Context, r *models.Reservation) error
	GetByItem(ctx context.Context, itemID uuid.UUID) (*models.Reservation, error)
	Delete(ctx context.Context, id uuid.UUID) error
	ListByItems(ctx context.Context, itemIDs []uuid.UUID) ([]models.Reservation, error)
}

type reservationRepo struct{ db *gorm.DB }

func NewReservationRepo(db *gorm.DB) ReservationRepo { return &reservationRepo{db: db} }

// Create возвращает service.ErrDuplicateKey, если у позиции уже есть бронь
// (ux_reservations_item).
func (r *reservationRepo) Create(ctx context.Context, res *models.Reservation) error {
	return translate(r.db.WithContext(ctx).Create(res).Error)
}

func (r *reservationRepo) GetByItem(ctx context.Context, itemID uuid.UUID) (*models.Reservation, error) {
	var res models.Reservation
	err := r.db.WithContext(ctx).First(&res, "item_id = ?", itemID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	return &res, err
}

func (r *reservationRepo) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Delete(&models.Reservation{}, "id = ?", id).Error
}

func (r *reservationRepo) ListByItems(ctx context.Context, itemIDs []uuid.UUID) ([]models.Reservation, error) {
	var out []models.Reservation
	if len(itemIDs) == 0 {
		return out, nil
	}
	err := r.db.WithContext(ctx).Where("item_id IN ?", itemIDs).Find(&out).Error
	return out, err
}
