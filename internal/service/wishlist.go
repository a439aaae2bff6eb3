package service

import (
	"time"

	"wishlist-service/internal/models"
)

type WishlistInput struct {
	Title       string
	Description *string
	IsPublic    bool
	EventDate   *time.Time
}

type WishlistPatch struct {
	Title       *string
	Description *string
	IsPublic    *bool
	EventDate   *time.Time
}

type ItemInput struct {
	Title       string
	Description *string
	URL         *string
	ImageURL    *string
	PriceCents  *int64
	Currency    string // пусто: RUB
	Priority    models.Priority
	IsPooling   bool
}

type ItemPatch struct {
	Title       *string
	Description *string
	URL         *string
	ImageURL    *string
	PriceCents  *int64
	Currency    *string
	Priority    *models.Priority
	IsPooling   *bool
}

type ReserveInput struct {
	Name    string
	Email   *string
	Message *string
}

type ContributeInput struct {
	Name        string
	Email       *string
	AmountCents int64
	Message     *string
}

type ItemView struct {
	models.Item
	Reservation   *models.Reservation
	Contributions []models.Contribution
}

// WishlistView: вишлист с позициями. При Detailed=false (владелец) резервации
// и вклады не загружаются: видны только is_reserved и собранная сумма.
type WishlistView struct {
	models.Wishlist
	Items    []ItemView
	Detailed bool
}
