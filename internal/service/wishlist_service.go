package service

import (
	"context"
	"strings"
	"time"

	"wishlist-service/internal/events"
	"wishlist-service/internal/keylock"
	"wishlist-service/internal/metrics"
	"wishlist-service/internal/models"

	"github.com/google/uuid"
	"github.com/nanorand/nanorand"
	"go.uber.org/zap"
)

const (
	slugLength   = 12
	slugAttempts = 5
)

type WishlistService struct {
	store  Store
	locks  *keylock.Locker[uuid.UUID]
	events events.Publisher
	mailer Mailer

	newSlug func() (string, error)
	now     func() time.Time

	log *zap.Logger
}

func NewWishlistService(store Store, publisher events.Publisher, mailer Mailer, log *zap.Logger) *WishlistService {
	return &WishlistService{
		store:   store,
		locks:   keylock.New[uuid.UUID](),
		events:  publisher,
		mailer:  mailer,
		newSlug: func() (string, error) { return nanorand.Gen(slugLength) },
		now:     time.Now,
		log:     log,
	}
}

func (s *WishlistService) ListWishlists(ctx context.Context) ([]WishlistView, error) {
	uid, err := requireAuth(ctx)
	if err != nil {
		return nil, err
	}
	lists, err := s.store.Wishlists().ListByOwner(ctx, uid)
	if err != nil {
		return nil, err
	}
	return buildViews(ctx, s.store, lists, false)
}

func (s *WishlistService) CreateWishlist(ctx context.Context, in WishlistInput) (*WishlistView, error) {
	uid, err := requireAuth(ctx)
	if err != nil {
		return nil, err
	}
	title := strings.TrimSpace(in.Title)
	if title == "" {
		return nil, ErrTitleRequired
	}

	slug, err := s.uniqueSlug(ctx)
	if err != nil {
		return nil, err
	}

	now := s.now()
	w := &models.Wishlist{
		ID:          uuid.New(),
		OwnerID:     uid,
		Title:       title,
		Description: trimPtr(in.Description),
		Slug:        slug,
		IsPublic:    in.IsPublic,
		EventDate:   in.EventDate,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.store.Wishlists().Create(ctx, w); err != nil {
		return nil, err
	}
	s.log.Info("wishlist created", zap.String("wishlist_id", w.ID.String()), zap.String("slug", slug))
	return &WishlistView{Wishlist: *w, Items: []ItemView{}}, nil
}

// uniqueSlug генерирует slug и проверяет его свободность; уникальный индекс
// в БД остаётся последней защитой.
func (s *WishlistService) uniqueSlug(ctx context.Context) (string, error) {
	for i := 0; i < slugAttempts; i++ {
		slug, err := s.newSlug()
		if err != nil {
			return "", err
		}
		exists, err := s.store.Wishlists().SlugExists(ctx, slug)
		if err != nil {
			return "", err
		}
		if !exists {
			return slug, nil
		}
		s.log.Warn("slug collision, retrying", zap.String("slug", slug))
	}
	return "", ErrSlugExhausted
}

func (s *WishlistService) ownedWishlist(ctx context.Context, tx Tx, id uuid.UUID) (*models.Wishlist, error) {
	uid, err := requireAuth(ctx)
	if err != nil {
		return nil, err
	}
	w, err := tx.Wishlists().GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if w == nil {
		return nil, ErrWishlistNotFound
	}
	if w.OwnerID != uid {
		return nil, ErrForbidden
	}
	return w, nil
}

func (s *WishlistService) GetWishlist(ctx context.Context, id uuid.UUID) (*WishlistView, error) {
	w, err := s.ownedWishlist(ctx, s.store, id)
	if err != nil {
		return nil, err
	}
	views, err := buildViews(ctx, s.store, []models.Wishlist{*w}, false)
	if err != nil {
		return nil, err
	}
	return &views[0], nil
}

func (s *WishlistService) UpdateWishlist(ctx context.Context, id uuid.UUID, patch WishlistPatch) (*WishlistView, error) {
	w, err := s.ownedWishlist(ctx, s.store, id)
	if err != nil {
		return nil, err
	}

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
	if patch.IsPublic != nil {
		fields["is_public"] = *patch.IsPublic
	}
	if patch.EventDate != nil {
		fields["event_date"] = *patch.EventDate
	}

	if len(fields) > 0 {
		fields["updated_at"] = s.now()
		if err := s.store.Wishlists().UpdateFields(ctx, id, fields); err != nil {
			return nil, err
		}
		ev := events.Event{Type: events.WishlistUpdated, WishlistID: w.ID}
		if patch.IsPublic != nil {
			// закрытие доступа отключает текущих подписчиков
			ev.Data.IsPublic = events.Bool(*patch.IsPublic)
		}
		s.publish(ctx, ev)
	}
	return s.GetWishlist(ctx, id)
}

func (s *WishlistService) DeleteWishlist(ctx context.Context, id uuid.UUID) error {
	w, err := s.ownedWishlist(ctx, s.store, id)
	if err != nil {
		return err
	}
	if err := s.store.Wishlists().Delete(ctx, id); err != nil {
		return err
	}
	s.log.Info("wishlist deleted", zap.String("wishlist_id", w.ID.String()))
	s.publish(ctx, events.Event{Type: events.WishlistDeleted, WishlistID: w.ID})
	return nil
}

// GetPublicWishlist отдаёт гостевое представление по slug. Приватные вишлисты
// не отличимы от несуществующих. Владелец получает урезанное представление.
func (s *WishlistService) GetPublicWishlist(ctx context.Context, slug string) (*WishlistView, error) {
	w, err := s.store.Wishlists().GetBySlug(ctx, slug)
	if err != nil {
		return nil, err
	}
	if w == nil {
		return nil, ErrWishlistNotFound
	}

	viewer, authed := UserIDFromContext(ctx)
	isOwner := authed && viewer == w.OwnerID
	if !w.IsPublic && !isOwner {
		return nil, ErrWishlistNotFound
	}

	views, err := buildViews(ctx, s.store, []models.Wishlist{*w}, !isOwner)
	if err != nil {
		return nil, err
	}
	return &views[0], nil
}

// CheckSubscribable: подписаться на изменения можно только на существующий
// публичный вишлист.
func (s *WishlistService) CheckSubscribable(ctx context.Context, wishlistID uuid.UUID) error {
	w, err := s.store.Wishlists().GetByID(ctx, wishlistID)
	if err != nil {
		return err
	}
	if w == nil || !w.IsPublic {
		return ErrWishlistNotFound
	}
	return nil
}

// publish отправляет событие после коммита. Ошибки доставки не влияют на
// результат операции.
func (s *WishlistService) publish(ctx context.Context, e events.Event) {
	if s.events == nil {
		return
	}
	metrics.EventsPublished.WithLabelValues(string(e.Type)).Inc()
	if err := s.events.Publish(context.WithoutCancel(ctx), e); err != nil {
		s.log.Warn("publish change event failed",
			zap.String("type", string(e.Type)),
			zap.String("wishlist_id", e.WishlistID.String()),
			zap.Error(err))
	}
}

func buildViews(ctx context.Context, tx Tx, lists []models.Wishlist, detailed bool) ([]WishlistView, error) {
	out := make([]WishlistView, len(lists))
	if len(lists) == 0 {
		return out, nil
	}

	ids := make([]uuid.UUID, len(lists))
	index := make(map[uuid.UUID]int, len(lists))
	for i, w := range lists {
		ids[i] = w.ID
		index[w.ID] = i
		out[i] = WishlistView{Wishlist: w, Items: []ItemView{}, Detailed: detailed}
	}

	items, err := tx.Items().ListByWishlists(ctx, ids)
	if err != nil {
		return nil, err
	}

	var (
		reservations  map[uuid.UUID]*models.Reservation
		contributions map[uuid.UUID][]models.Contribution
	)
	if detailed && len(items) > 0 {
		itemIDs := make([]uuid.UUID, len(items))
		for i := range items {
			itemIDs[i] = items[i].ID
		}
		rs, err := tx.Reservations().ListByItems(ctx, itemIDs)
		if err != nil {
			return nil, err
		}
		reservations = make(map[uuid.UUID]*models.Reservation, len(rs))
		for i := range rs {
			reservations[rs[i].ItemID] = &rs[i]
		}
		cs, err := tx.Contributions().ListByItems(ctx, itemIDs)
		if err != nil {
			return nil, err
		}
		contributions = make(map[uuid.UUID][]models.Contribution)
		for _, c := range cs {
			contributions[c.ItemID] = append(contributions[c.ItemID], c)
		}
	}

	for _, it := range items {
		v := ItemView{Item: it}
		if detailed {
			v.Reservation = reservations[it.ID]
			v.Contributions = contributions[it.ID]
			if v.Contributions == nil {
				v.Contributions = []models.Contribution{}
			}
		}
		i := index[it.WishlistID]
		out[i].Items = append(out[i].Items, v)
	}
	return out, nil
}

func trimPtr(s *string) *string {
	if s == nil {
		return nil
	}
	t := strings.TrimSpace(*s)
	if t == "" {
		return nil
	}
	return &t
}

func normalizeEmail(s *string) string {
	if s == nil {
		return ""
	}
	return strings.ToLower(strings.TrimSpace(*s))
}
