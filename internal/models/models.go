package models

import (
	"time"

	"github.com/google/uuid"
)

type User struct {
	ID           uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	Email        string    `gorm:"type:text;not null"`
	Username     string    `gorm:"type:text;not null"`
	PasswordHash string    `gorm:"type:text;not null"`
	IsActive     bool      `gorm:"not null;default:true"`
	AvatarURL    *string   `gorm:"type:text"`

	CreatedAt time.Time `gorm:"not null;default:now()"`
}

func (User) TableName() string {
	return "users"
}

type Wishlist struct {
	ID          uuid.UUID  `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	OwnerID     uuid.UUID  `gorm:"type:uuid;not null;index"`
	Title       string     `gorm:"type:text;not null"`
	Description *string    `gorm:"type:text"`
	Slug        string     `gorm:"type:text;not null"`
	IsPublic    bool       `gorm:"not null"`
	EventDate   *time.Time `gorm:"type:date"`

	CreatedAt time.Time `gorm:"not null;default:now();index"`
	UpdatedAt time.Time `gorm:"not null;default:now()"`
}

func (Wishlist) TableName() string {
	return "wishlists"
}

type Priority int16

const (
	PriorityLow    Priority = 0
	PriorityMedium Priority = 1
	PriorityHigh   Priority = 2
)

func (p Priority) Valid() bool {
	return p >= PriorityLow && p <= PriorityHigh
}

type Item struct {
	ID               uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	WishlistID       uuid.UUID `gorm:"type:uuid;not null;index"`
	Title            string    `gorm:"type:text;not null"`
	Description      *string   `gorm:"type:text"`
	URL              *string   `gorm:"type:text"`
	ImageURL         *string   `gorm:"type:text"`
	PriceCents       *int64
	CurrencyCode     string   `gorm:"type:char(3);not null;default:'RUB'"`
	Priority         Priority `gorm:"type:smallint;not null;default:0"`
	IsPooling        bool     `gorm:"not null;default:false"`
	IsReserved       bool     `gorm:"not null;default:false"`
	ContributedCents int64    `gorm:"not null;default:0"`
	// Version растёт на каждое изменение состояния позиции и уходит в события.
	Version int64 `gorm:"not null;default:0"`

	CreatedAt time.Time `gorm:"not null;default:now();index"`
	UpdatedAt time.Time `gorm:"not null;default:now()"`
}

func (Item) TableName() string {
	return "items"
}

// IsFunded: сбор закрыт: собрана полная стоимость.
func (i *Item) IsFunded() bool {
	return i.IsPooling && i.PriceCents != nil && i.ContributedCents >= *i.PriceCents
}

// RemainingCents: сколько ещё можно внести; 0 если цена не задана.
func (i *Item) RemainingCents() int64 {
	if i.PriceCents == nil {
		return 0
	}
	if r := *i.PriceCents - i.ContributedCents; r > 0 {
		return r
	}
	return 0
}

type Reservation struct {
	ID            uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	ItemID        uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:ux_reservations_item"`
	ReserverName  string    `gorm:"type:text;not null"`
	ReserverEmail *string   `gorm:"type:text"`
	Message       *string   `gorm:"type:text"`

	CreatedAt time.Time `gorm:"not null;default:now()"`
}

func (Reservation) TableName() string {
	return "reservations"
}

type Contribution struct {
	ID               uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	ItemID           uuid.UUID `gorm:"type:uuid;not null;index"`
	ContributorName  string    `gorm:"type:text;not null"`
	ContributorEmail *string   `gorm:"type:text"`
	AmountCents      int64     `gorm:"not null"`
	Message          *string   `gorm:"type:text"`

	CreatedAt time.Time `gorm:"not null;default:now();index"`
}

func (Contribution) TableName() string {
	return "contributions"
}
