package repository

import (
	"context"
	"errors"

	"wishlist-service/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type ItemRepo interface {
	Create(ctx context.Context, it *models.Item) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Item, error)
	GetForUpdate(ctx context.Context, id uuid.UUID) (*models.Item, error)
	ListByWishlists(ctx context.Context, wishlistIDs []uuid.UUID) ([]models.Item, error)
	UpdateFields(ctx context.Context, id uuid.UUID, fields map[string]any) error

	// SetReserved: is_reserved = reserved, version += 1, если флаг отличается
	SetReserved(ctx context.Context, id uuid.UUID, reserved bool) (bool, error)
	// TryAddContribution: contributed += amount, version += 1, если не превышает цену
	TryAddContribution(ctx context.Context, id uuid.UUID, amountCents int64) (bool, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

type itemRepo struct{ db *gorm.DB }

func NewItemRepo(db *gorm.DB) ItemRepo { return &itemRepo{db: db} }

func (r *itemRepo) Create(ctx context.Context, it *models.Item) error {
	return translate(r.db.WithContext(ctx).Create(it).Error)
}

func (r *itemRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Item, error) {
	var it models.Item
	err := r.db.WithContext(ctx).First(&it, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	return &it, err
}

// GetForUpdate: SELECT ... FOR UPDATE: конкурирующие транзакции по той же
// позиции ждут коммита. Вне транзакции блокировка снимается сразу.
func (r *itemRepo) GetForUpdate(ctx context.Context, id uuid.UUID) (*models.Item, error) {
	var it models.Item
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&it, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	return &it, err
}

func (r *itemRepo) ListByWishlists(ctx context.Context, wishlistIDs []uuid.UUID) ([]models.Item, error) {
	var out []models.Item
	if len(wishlistIDs) == 0 {
		return out, nil
	}
	err := r.db.WithContext(ctx).
		Where("wishlist_id IN ?", wishlistIDs).
		Order("created_at ASC, id ASC").
		Find(&out).Error
	return out, err
}

func (r *itemRepo) UpdateFields(ctx context.Context, id uuid.UUID, fields map[string]any) error {
	fields["version"] = gorm.Expr("version + 1")
	return r.db.WithContext(ctx).Model(&models.Item{}).Where("id = ?", id).Updates(fields).Error
}

func (r *itemRepo) SetReserved(ctx context.Context, id uuid.UUID, reserved bool) (bool, error) {
	tx := r.db.WithContext(ctx).Exec(`
UPDATE items
SET is_reserved = @reserved,
    version     = version + 1,
    updated_at  = now()
WHERE id = @id
  AND is_reserved <> @reserved
`, map[string]any{
		"id":       id,
		"reserved": reserved,
	})
	return tx.RowsAffected > 0, tx.Error
}

func (r *itemRepo) TryAddContribution(ctx context.Context, id uuid.UUID, amountCents int64) (bool, error) {
	// атомарно: contributed += amount, если не выходим за цену
	tx := r.db.WithContext(ctx).Exec(`
UPDATE items
SET contributed_cents = contributed_cents + @amount,
    version           = version + 1,
    updated_at        = now()
WHERE id = @id
  AND is_pooling
  AND price_cents IS NOT NULL
  AND contributed_cents + @amount <= price_cents
`, map[string]any{
		"id":     id,
		"amount": amountCents,
	})
	return tx.RowsAffected > 0, tx.Error
}

func (r *itemRepo) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Delete(&models.Item{}, "id = ?", id).Error
}
