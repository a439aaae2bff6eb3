package service

import (
	"context"
	"strings"

	"wishlist-service/internal/events"
	"wishlist-service/internal/models"
	"wishlist-service/internal/money"
	"wishlist-service/internal/producer"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Contribute вносит вклад в совместный подарок. Проверка остатка, запись
// вклада и пересчёт суммы выполняются в одной критической секции, поэтому
// параллельные вклады не превышают цену.
func (s *WishlistService) Contribute(ctx context.Context, itemID uuid.UUID, in ContributeInput) (*models.Contribution, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		observe("contribute", ErrNameRequired)
		return nil, ErrNameRequired
	}
	if in.AmountCents <= 0 {
		observe("contribute", ErrAmountNotPositive)
		return nil, ErrAmountNotPositive
	}
	email := normalizeEmail(in.Email)

	var (
		contribution *models.Contribution
		item         *models.Item
		wishlist     *models.Wishlist
		total        int64
	)
	err := s.mutateItem(ctx, itemID, func(tx Tx) (*events.Event, error) {
		it, w, err := publicItem(ctx, tx, itemID)
		if err != nil {
			return nil, err
		}
		if !it.IsPooling {
			return nil, ErrItemNotPooling
		}
		if it.PriceCents == nil {
			return nil, ErrItemHasNoPrice
		}
		remaining := it.RemainingCents()
		if in.AmountCents > remaining {
			return nil, &LimitExceededError{RemainingCents: remaining}
		}

		ok, err := tx.Items().TryAddContribution(ctx, itemID, in.AmountCents)
		if err != nil {
			return nil, err
		}
		if !ok {
			// строка заблокирована, сюда попадаем только при рассинхроне счётчика
			return nil, &LimitExceededError{RemainingCents: remaining}
		}

		c := &models.Contribution{
			ID:              uuid.New(),
			ItemID:          itemID,
			ContributorName: name,
			AmountCents:     in.AmountCents,
			Message:         trimPtr(in.Message),
			CreatedAt:       s.now(),
		}
		if email != "" {
			c.ContributorEmail = &email
		}
		if err := tx.Contributions().Create(ctx, c); err != nil {
			return nil, err
		}

		if total, err = tx.Contributions().SumByItem(ctx, itemID); err != nil {
			return nil, err
		}
		if item, err = tx.Items().GetByID(ctx, itemID); err != nil {
			return nil, err
		}
		contribution, wishlist = c, w

		funded := total >= *item.PriceCents
		return &events.Event{
			Type:       events.Contribution,
			WishlistID: w.ID,
			ItemID:     &it.ID,
			Version:    item.Version,
			Data: events.Payload{
				TotalContributed: events.Float(money.FromCents(total)),
				IsFunded:         events.Bool(funded),
				IsReserved:       events.Bool(funded),
			},
		}, nil
	})
	observe("contribute", err)
	if err != nil {
		return nil, err
	}

	s.log.Info("contribution accepted",
		zap.String("item_id", itemID.String()),
		zap.Int64("amount_cents", in.AmountCents),
		zap.Int64("total_cents", total))

	if email != "" {
		s.sendEmail(ctx, email, producer.EmailMessage{
			To:       email,
			Subject:  "Спасибо за вклад в подарок",
			Template: "contribution_received",
			Data: map[string]any{
				"Name":          name,
				"ItemTitle":     item.Title,
				"WishlistTitle": wishlist.Title,
				"WishlistSlug":  wishlist.Slug,
				"Amount":        money.FromCents(in.AmountCents),
				"Total":         money.FromCents(total),
				"Price":         money.FromCents(*item.PriceCents),
				"Currency":      item.CurrencyCode,
			},
		})
	}
	return contribution, nil
}
