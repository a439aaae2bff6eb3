package service

import (
	"context"
	"errors"
	"strings"

	"wishlist-service/internal/events"
	"wishlist-service/internal/models"
	"wishlist-service/internal/producer"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// publicItem блокирует позицию и проверяет, что она видна гостям.
func publicItem(ctx context.Context, tx Tx, itemID uuid.UUID) (*models.Item, *models.Wishlist, error) {
	it, err := tx.Items().GetForUpdate(ctx, itemID)
	if err != nil {
		return nil, nil, err
	}
	if it == nil {
		return nil, nil, ErrItemNotFound
	}
	w, err := tx.Wishlists().GetByID(ctx, it.WishlistID)
	if err != nil {
		return nil, nil, err
	}
	if w == nil || !w.IsPublic {
		return nil, nil, ErrItemNotFound
	}
	return it, w, nil
}

func (s *WishlistService) Reserve(ctx context.Context, itemID uuid.UUID, in ReserveInput) (*models.Reservation, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		observe("reserve", ErrNameRequired)
		return nil, ErrNameRequired
	}
	email := normalizeEmail(in.Email)

	var (
		res      *models.Reservation
		wishlist *models.Wishlist
		item     *models.Item
	)
	err := s.mutateItem(ctx, itemID, func(tx Tx) (*events.Event, error) {
		it, w, err := publicItem(ctx, tx, itemID)
		if err != nil {
			return nil, err
		}
		if it.IsPooling {
			return nil, ErrItemIsPooling
		}
		existing, err := tx.Reservations().GetByItem(ctx, itemID)
		if err != nil {
			return nil, err
		}
		if existing != nil || it.IsReserved {
			return nil, ErrAlreadyReserved
		}

		r := &models.Reservation{
			ID:           uuid.New(),
			ItemID:       itemID,
			ReserverName: name,
			Message:      trimPtr(in.Message),
			CreatedAt:    s.now(),
		}
		if email != "" {
			r.ReserverEmail = &email
		}
		if err := tx.Reservations().Create(ctx, r); err != nil {
			if errors.Is(err, ErrDuplicateKey) {
				return nil, ErrAlreadyReserved
			}
			return nil, err
		}
		if _, err := tx.Items().SetReserved(ctx, itemID, true); err != nil {
			return nil, err
		}
		if item, err = tx.Items().GetByID(ctx, itemID); err != nil {
			return nil, err
		}
		res, wishlist = r, w

		return &events.Event{
			Type:       events.Reservation,
			WishlistID: w.ID,
			ItemID:     &it.ID,
			Version:    item.Version,
			Data:       events.Payload{IsReserved: events.Bool(true)},
		}, nil
	})
	observe("reserve", err)
	if err != nil {
		return nil, err
	}

	s.log.Info("item reserved", zap.String("item_id", itemID.String()))
	if email != "" {
		s.sendEmail(ctx, email, producer.EmailMessage{
			To:       email,
			Subject:  "Подарок забронирован",
			Template: "reservation_confirmed",
			Data: map[string]any{
				"Name":          name,
				"ItemTitle":     item.Title,
				"WishlistTitle": wishlist.Title,
				"WishlistSlug":  wishlist.Slug,
			},
		})
	}
	return res, nil
}

// CancelReservation снимает бронь. Разрешено тому, чей email указан в брони
// (без учёта регистра и пробелов), либо владельцу вишлиста. Пустой email
// ни с чем не совпадает. Для гостей приватный вишлист не существует.
func (s *WishlistService) CancelReservation(ctx context.Context, itemID uuid.UUID, requesterEmail string) error {
	email := strings.ToLower(strings.TrimSpace(requesterEmail))
	requester, authed := UserIDFromContext(ctx)

	err := s.mutateItem(ctx, itemID, func(tx Tx) (*events.Event, error) {
		it, err := tx.Items().GetForUpdate(ctx, itemID)
		if err != nil {
			return nil, err
		}
		if it == nil {
			return nil, ErrItemNotFound
		}
		w, err := tx.Wishlists().GetByID(ctx, it.WishlistID)
		if err != nil {
			return nil, err
		}
		if w == nil {
			return nil, ErrItemNotFound
		}
		isOwner := authed && requester == w.OwnerID
		if !isOwner && !w.IsPublic {
			return nil, ErrItemNotFound
		}

		r, err := tx.Reservations().GetByItem(ctx, itemID)
		if err != nil {
			return nil, err
		}
		if r == nil {
			return nil, ErrReservationNotFound
		}

		matches := email != "" && r.ReserverEmail != nil && strings.EqualFold(strings.TrimSpace(*r.ReserverEmail), email)
		if !isOwner && !matches {
			return nil, ErrNotReserver
		}

		if err := tx.Reservations().Delete(ctx, r.ID); err != nil {
			return nil, err
		}
		if _, err := tx.Items().SetReserved(ctx, itemID, false); err != nil {
			return nil, err
		}
		fresh, err := tx.Items().GetByID(ctx, itemID)
		if err != nil {
			return nil, err
		}
		return &events.Event{
			Type:       events.ReservationCancelled,
			WishlistID: w.ID,
			ItemID:     &it.ID,
			Version:    fresh.Version,
			Data:       events.Payload{IsReserved: events.Bool(false)},
		}, nil
	})
	observe("cancel_reservation", err)
	if err == nil {
		s.log.Info("reservation cancelled", zap.String("item_id", itemID.String()))
	}
	return err
}

func (s *WishlistService) sendEmail(ctx context.Context, key string, msg producer.EmailMessage) {
	if s.mailer == nil {
		return
	}
	if err := s.mailer.SendEmail(context.WithoutCancel(ctx), key, msg); err != nil {
		s.log.Warn("enqueue email failed", zap.String("template", msg.Template), zap.Error(err))
	}
}
