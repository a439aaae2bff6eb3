package repository

import (
	"context"
	"errors"

	"wishlist-service/internal/service"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

const pgUniqueViolation = "23505"

type Repository struct {
	DB            *gorm.DB
	users         UserRepo
	wishlists     WishlistRepo
	items         ItemRepo
	reservations  ReservationRepo
	contributions ContributionRepo
}

func buildRepository(db *gorm.DB) *Repository {
	return &Repository{
		DB:            db,
		users:         NewUserRepo(db),
		wishlists:     NewWishlistRepo(db),
		items:         NewItemRepo(db),
		reservations:  NewReservationRepo(db),
		contributions: NewContributionRepo(db),
	}
}

func New(db *gorm.DB) *Repository { return buildRepository(db) }

func (r *Repository) Users() service.UserRepo                 { return r.users }
func (r *Repository) Wishlists() service.WishlistRepo         { return r.wishlists }
func (r *Repository) Items() service.ItemRepo                 { return r.items }
func (r *Repository) Reservations() service.ReservationRepo   { return r.reservations }
func (r *Repository) Contributions() service.ContributionRepo { return r.contributions }

// Глобальная транзакция на весь набор репо
func (r *Repository) WithTx(ctx context.Context, fn func(tx service.Tx) error) error {
	return r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(buildRepository(tx))
	})
}

// translate переводит нарушение уникальности postgres в service.ErrDuplicateKey.
func translate(err error) error {
	if err == nil {
		return nil
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
		return service.ErrDuplicateKey
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return service.ErrDuplicateKey
	}
	return err
}
