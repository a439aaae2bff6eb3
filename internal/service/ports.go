package service

import (
	"context"
	"errors"
	"time"

	"wishlist-service/internal/models"
	"wishlist-service/internal/producer"

	"github.com/google/uuid"
)

// ErrDuplicateKey возвращают репозитории при нарушении уникальности.
var ErrDuplicateKey = errors.New("duplicate key")

type UserRepo interface {
	Create(ctx context.Context, u *models.User) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	ExistsByEmail(ctx context.Context, email string) (bool, error)
	ExistsByUsername(ctx context.Context, username string) (bool, error)
}

type WishlistRepo interface {
	Create(ctx context.Context, w *models.Wishlist) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Wishlist, error)
	GetBySlug(ctx context.Context, slug string) (*models.Wishlist, error)
	ListByOwner(ctx context.Context, ownerID uuid.UUID) ([]models.Wishlist, error)
	SlugExists(ctx context.Context, slug string) (bool, error)
	UpdateFields(ctx context.Context, id uuid.UUID, fields map[string]any) error
	Delete(ctx context.Context, id uuid.UUID) error
}

type ItemRepo interface {
	Create(ctx context.Context, it *models.Item) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Item, error)
	// GetForUpdate читает позицию с блокировкой строки до конца транзакции.
	GetForUpdate(ctx context.Context, id uuid.UUID) (*models.Item, error)
	ListByWishlists(ctx context.Context, wishlistIDs []uuid.UUID) ([]models.Item, error)
	// UpdateFields обновляет поля и увеличивает version.
	UpdateFields(ctx context.Context, id uuid.UUID, fields map[string]any) error
	// SetReserved переключает флаг, только если он отличается; увеличивает version.
	SetReserved(ctx context.Context, id uuid.UUID, reserved bool) (bool, error)
	// TryAddContribution: contributed += amount, если не превышает цену.
	TryAddContribution(ctx context.Context, id uuid.UUID, amountCents int64) (bool, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

type ReservationRepo interface {
	Create(ctx context.Context, r *models.Reservation) error
	GetByItem(ctx context.Context, itemID uuid.UUID) (*models.Reservation, error)
	Delete(ctx context.Context, id uuid.UUID) error
	ListByItems(ctx context.Context, itemIDs []uuid.UUID) ([]models.Reservation, error)
}

type ContributionRepo interface {
	Create(ctx context.Context, c *models.Contribution) error
	SumByItem(ctx context.Context, itemID uuid.UUID) (int64, error)
	CountByItem(ctx context.Context, itemID uuid.UUID) (int64, error)
	ListByItems(ctx context.Context, itemIDs []uuid.UUID) ([]models.Contribution, error)
}

// Tx: набор репозиториев, привязанных к одной транзакции.
type Tx interface {
	Wishlists() WishlistRepo
	Items() ItemRepo
	Reservations() ReservationRepo
	Contributions() ContributionRepo
}

type Store interface {
	Tx
	Users() UserRepo
	WithTx(ctx context.Context, fn func(tx Tx) error) error
}

type PasswordHasher interface {
	Hash(password string) (string, error)
	Compare(hash, password string) bool
}

type Claims struct {
	UserID uuid.UUID
	Exp    time.Time
}

type TokenProvider interface {
	SignAccess(ctx context.Context, sub uuid.UUID, ttl time.Duration) (token string, exp time.Time, err error)
	ParseAndValidateAccess(ctx context.Context, token string) (*Claims, error)
}

// Mailer ставит письмо в очередь; nil: письма отключены.
type Mailer interface {
	SendEmail(ctx context.Context, key string, msg producer.EmailMessage) error
}
