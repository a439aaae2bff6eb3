package service

import (
	"context"
	"strings"

	"wishlist-service/internal/events"
	"wishlist-service/internal/metrics"
	"wishlist-service/internal/models"
	"wishlist-service/internal/money"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

var opClasses = map[string]error{
	"not_found":        ErrNotFound,
	"forbidden":        ErrForbidden,
	"conflict":         ErrConflict,
	"invalid_state":    ErrInvalidState,
	"invalid_argument": ErrInvalidArgument,
	"limit_exceeded":   ErrLimitExceeded,
	"unauthorized":     ErrUnauthorized,
}

func observe(op string, err error) {
	metrics.Operations.WithLabelValues(op, metrics.Outcome(err, opClasses)).Inc()
}

// mutateItem: критическая секция позиции: блокировка по ключу, транзакция,
// публикация события после коммита. Пока держится блокировка, события одной
// позиции уходят строго в порядке коммитов.
func (s *WishlistService) mutateItem(ctx context.Context, itemID uuid.UUID, fn func(tx Tx) (*events.Event, error)) error {
	unlock := s.locks.Lock(itemID)
	defer unlock()

	var ev *events.Event
	err := s.store.WithTx(ctx, func(tx Tx) error {
		var err error
		ev, err = fn(tx)
		return err
	})
	if err != nil {
		return err
	}
	if ev != nil {
		s.publish(ctx, *ev)
	}
	return nil
}

func validCurrency(c string) bool {
	if len(c) != 3 {
		return false
	}
	for _, r := range c {
		if r < 'A' || r > 'Z' {
			return false
		}
	}
	return true
}

func (s *WishlistService) GetItem(ctx context.Context, itemID uuid.UUID) (*models.Item, error) {
	it, err := s.store.Items().GetByID(ctx, itemID)
	if err != nil {
		return nil, err
	}
	if it == nil {
		return nil, ErrItemNotFound
	}
	return it, nil
}

func (s *WishlistService) CreateItem(ctx context.Context, wishlistID uuid.UUID, in ItemInput) (*models.Item, error) {
	w, err := s.ownedWishlist(ctx, s.store, wishlistID)
	if err != nil {
		return nil, err
	}

	title := strings.TrimSpace(in.Title)
	if title == "" {
		return nil, ErrTitleRequired
	}
	if in.PriceCents != nil && *in.PriceCents <= 0 {
		return nil, ErrPriceNotPositive
	}
	if in.IsPooling && in.PriceCents == nil {
		return nil, ErrPoolingNeedsPrice
	}
	if !in.Priority.Valid() {
		return nil, ErrInvalidPriority
	}
	currency := strings.ToUpper(strings.TrimSpace(in.Currency))
	if currency == "" {
		currency = money.DefaultCurrency
	}
	if !validCurrency(currency) {
		return nil, ErrInvalidCurrency
	}

	now := s.now()
	it := &models.Item{
		ID:           uuid.New(),
		WishlistID:   w.ID,
		Title:        title,
		Description:  trimPtr(in.Description),
		URL:          trimPtr(in.URL),
		ImageURL:     trimPtr(in.ImageURL),
		PriceCents:   in.PriceCents,
		CurrencyCode: currency,
		Priority:     in.Priority,
		IsPooling:    in.IsPooling,
		Version:      1,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	err = s.mutateItem(ctx, it.ID, func(tx Tx) (*events.Event, error) {
		if err := tx.Items().Create(ctx, it); err != nil {
			return nil, err
		}
		return &events.Event{Type: events.ItemCreated, WishlistID: w.ID, ItemID: &it.ID, Version: it.Version}, nil
	})
	observe("create_item", err)
	if err != nil {
		return nil, err
	}
	return it, nil
}

func (s *WishlistService) UpdateItem(ctx context.Context, itemID uuid.UUID, patch ItemPatch) (*models.Item, error) {
	var updated *models.Item
	err := s.mutateItem(ctx, itemID, func(tx Tx) (*events.Event, error) {
		it, err := tx.Items().GetForUpdate(ctx, itemID)
		if err != nil {
			return nil, err
		}
		if it == nil {
			return nil, ErrItemNotFound
		}
		if _, err := s.ownedWishlist(ctx, tx, it.WishlistID); err != nil {
			return nil, err
		}

		fields, err := s.itemPatchFields(ctx, tx, it, patch)
		if err != nil {
			return nil, err
		}
		if len(fields) == 0 {
			updated = it
			return nil, nil
		}
		fields["updated_at"] = s.now()
		if err := tx.Items().UpdateFields(ctx, itemID, fields); err != nil {
			return nil, err
		}
		if updated, err = tx.Items().GetByID(ctx, itemID); err != nil {
			return nil, err
		}
		return &events.Event{Type: events.ItemUpdated, WishlistID: it.WishlistID, ItemID: &it.ID, Version: updated.Version}, nil
	})
	observe("update_item", err)
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// itemPatchFields проверяет патч против текущего состояния позиции: после
// обновления сбор по-прежнему требует цену, а цена не опускается ниже
// собранного.
func (s *WishlistService) itemPatchFields(ctx context.Context, tx Tx, it *models.Item, patch ItemPatch) (map[string]any, error) {
	fields := map[string]any{}

	if patch.Title != nil {
		title := strings.TrimSpace(*patch.Title)
		if title == "" {
			return nil, ErrTitleRequired
		}
		fields["title"] = title
	}
	if patch.Description != nil {
		fields["description"] = trimPtr(patch.Description)
	}
	if patch.URL != nil {
		fields["url"] = trimPtr(patch.URL)
	}
	if patch.ImageURL != nil {
		fields["image_url"] = trimPtr(patch.ImageURL)
	}
	if patch.Currency != nil {
		c := strings.ToUpper(strings.TrimSpace(*patch.Currency))
		if !validCurrency(c) {
			return nil, ErrInvalidCurrency
		}
		fields["currency_code"] = c
	}
	if patch.Priority != nil {
		if !patch.Priority.Valid() {
			return nil, ErrInvalidPriority
		}
		fields["priority"] = *patch.Priority
	}

	price := it.PriceCents
	if patch.PriceCents != nil {
		if *patch.PriceCents <= 0 {
			return nil, ErrPriceNotPositive
		}
		price = patch.PriceCents
		fields["price_cents"] = *patch.PriceCents
	}

	pooling := it.IsPooling
	if patch.IsPooling != nil && *patch.IsPooling != it.IsPooling {
		if it.IsReserved || it.ContributedCents > 0 {
			return nil, ErrPoolingLocked
		}
		count, err := tx.Contributions().CountByItem(ctx, it.ID)
		if err != nil {
			return nil, err
		}
		if count > 0 {
			return nil, ErrPoolingLocked
		}
		pooling = *patch.IsPooling
		fields["is_pooling"] = pooling
	}

	if pooling && price == nil {
		return nil, ErrPoolingNeedsPrice
	}
	if pooling && price != nil && *price < it.ContributedCents {
		return nil, ErrPriceBelowContributed
	}
	return fields, nil
}

func (s *WishlistService) DeleteItem(ctx context.Context, itemID uuid.UUID) error {
	err := s.mutateItem(ctx, itemID, func(tx Tx) (*events.Event, error) {
		it, err := tx.Items().GetForUpdate(ctx, itemID)
		if err != nil {
			return nil, err
		}
		if it == nil {
			return nil, ErrItemNotFound
		}
		if _, err := s.ownedWishlist(ctx, tx, it.WishlistID); err != nil {
			return nil, err
		}
		count, err := tx.Contributions().CountByItem(ctx, itemID)
		if err != nil {
			return nil, err
		}
		if count > 0 {
			return nil, ErrItemHasContributions
		}
		if err := tx.Items().Delete(ctx, itemID); err != nil {
			return nil, err
		}
		return &events.Event{Type: events.ItemDeleted, WishlistID: it.WishlistID, ItemID: &it.ID, Version: it.Version + 1}, nil
	})
	observe("delete_item", err)
	if err == nil {
		s.log.Info("item deleted", zap.String("item_id", itemID.String()))
	}
	return err
}
