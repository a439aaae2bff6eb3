package events

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

type Type string

const (
	Reservation          Type = "reservation"
	ReservationCancelled Type = "reservation_cancelled"
	Contribution         Type = "contribution"
	ItemDeleted          Type = "item_deleted"
	ItemCreated          Type = "item_created"
	ItemUpdated          Type = "item_updated"
	WishlistUpdated      Type = "wishlist_updated"
	WishlistDeleted      Type = "wishlist_deleted"
)

// Event: уведомление об изменении, рассылаемое подписчикам вишлиста
// после коммита. Содержимое: подсказка, не источник истины.
type Event struct {
	Type       Type       `json:"type"`
	WishlistID uuid.UUID  `json:"wishlist_id"`
	ItemID     *uuid.UUID `json:"item_id,omitempty"`
	Version    int64      `json:"version,omitempty"`
	Data       Payload    `json:"data"`
}

// Payload никогда не содержит данных о том, кто зарезервировал позицию.
type Payload struct {
	IsReserved       *bool    `json:"is_reserved,omitempty"`
	IsFunded         *bool    `json:"is_funded,omitempty"`
	TotalContributed *float64 `json:"total_contributed,omitempty"`
	IsPublic         *bool    `json:"is_public,omitempty"`
}

// RevokesAccess: после события гости больше не видят вишлист.
func (e Event) RevokesAccess() bool {
	switch e.Type {
	case WishlistDeleted:
		return true
	case WishlistUpdated:
		return e.Data.IsPublic != nil && !*e.Data.IsPublic
	}
	return false
}

func (e Event) ItemKey() (uuid.UUID, bool) {
	if e.ItemID == nil {
		return uuid.Nil, false
	}
	return *e.ItemID, true
}

type Publisher interface {
	Publish(ctx context.Context, e Event) error
}

// Fanout публикует событие во все приёмники по очереди и собирает ошибки.
type Fanout []Publisher

func (f Fanout) Publish(ctx context.Context, e Event) error {
	var errs []error
	for _, p := range f {
		if p == nil {
			continue
		}
		if err := p.Publish(ctx, e); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func Bool(v bool) *bool { return &v }

func Float(v float64) *float64 { return &v }
