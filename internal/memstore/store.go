// Package memstore: хранилище в памяти с теми же контрактами, что и
// репозитории postgres. Используется при STORAGE=memory и в тестах.
package memstore

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"wishlist-service/internal/models"
	"wishlist-service/internal/service"

	"github.com/google/uuid"
)

type state struct {
	seq           int64
	order         map[uuid.UUID]int64
	users         map[uuid.UUID]models.User
	wishlists     map[uuid.UUID]models.Wishlist
	items         map[uuid.UUID]models.Item
	reservations  map[uuid.UUID]models.Reservation
	contributions map[uuid.UUID]models.Contribution
}

func newState() *state {
	return &state{
		order:         map[uuid.UUID]int64{},
		users:         map[uuid.UUID]models.User{},
		wishlists:     map[uuid.UUID]models.Wishlist{},
		items:         map[uuid.UUID]models.Item{},
		reservations:  map[uuid.UUID]models.Reservation{},
		contributions: map[uuid.UUID]models.Contribution{},
	}
}

func cloneMap[K comparable, V any](m map[K]V) map[K]V {
	out := make(map[K]V, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func (s *state) clone() *state {
	return &state{
		seq:           s.seq,
		order:         cloneMap(s.order),
		users:         cloneMap(s.users),
		wishlists:     cloneMap(s.wishlists),
		items:         cloneMap(s.items),
		reservations:  cloneMap(s.reservations),
		contributions: cloneMap(s.contributions),
	}
}

func (s *state) nextSeq(id uuid.UUID) {
	s.seq++
	s.order[id] = s.seq
}

// Store сериализует все транзакции одним мьютексом; при ошибке транзакции
// состояние откатывается к снимку.
type Store struct {
	mu   sync.Mutex
	data *state
	now  func() time.Time
}

func New() *Store {
	return &Store{data: newState(), now: time.Now}
}

type view struct {
	store *Store
	inTx  bool
}

func (v *view) do(fn func(st *state) error) error {
	if !v.inTx {
		v.store.mu.Lock()
		defer v.store.mu.Unlock()
	}
	return fn(v.store.data)
}

func (s *Store) root() *view { return &view{store: s} }

func (s *Store) Users() service.UserRepo                 { return &userRepo{s.root()} }
func (s *Store) Wishlists() service.WishlistRepo         { return &wishlistRepo{s.root()} }
func (s *Store) Items() service.ItemRepo                 { return &itemRepo{s.root()} }
func (s *Store) Reservations() service.ReservationRepo   { return &reservationRepo{s.root()} }
func (s *Store) Contributions() service.ContributionRepo { return &contributionRepo{s.root()} }

func (s *Store) WithTx(ctx context.Context, fn func(tx service.Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	snapshot := s.data.clone()
	if err := fn(&txView{v: &view{store: s, inTx: true}}); err != nil {
		s.data = snapshot
		return err
	}
	return nil
}

type txView struct{ v *view }

func (t *txView) Wishlists() service.WishlistRepo         { return &wishlistRepo{t.v} }
func (t *txView) Items() service.ItemRepo                 { return &itemRepo{t.v} }
func (t *txView) Reservations() service.ReservationRepo   { return &reservationRepo{t.v} }
func (t *txView) Contributions() service.ContributionRepo { return &contributionRepo{t.v} }

func (s *Store) String() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return fmt.Sprintf("memstore{users:%d wishlists:%d items:%d}", len(s.data.users), len(s.data.wishlists), len(s.data.items))
}

func idOrNew(id uuid.UUID) uuid.UUID {
	if id == uuid.Nil {
		return uuid.New()
	}
	return id
}

func stamp(t *time.Time, now func() time.Time) {
	if t.IsZero() {
		*t = now()
	}
}

// --- users ---

type userRepo struct{ v *view }

func (r *userRepo) Create(ctx context.Context, u *models.User) error {
	return r.v.do(func(st *state) error {
		for _, existing := range st.users {
			if strings.EqualFold(existing.Email, u.Email) || existing.Username == u.Username {
				return service.ErrDuplicateKey
			}
		}
		u.ID = idOrNew(u.ID)
		stamp(&u.CreatedAt, r.v.store.now)
		st.users[u.ID] = *u
		return nil
	})
}

func (r *userRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	var out *models.User
	err := r.v.do(func(st *state) error {
		if u, ok := st.users[id]; ok {
			out = &u
		}
		return nil
	})
	return out, err
}

func (r *userRepo) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	var out *models.User
	err := r.v.do(func(st *state) error {
		for _, u := range st.users {
			if strings.EqualFold(u.Email, email) {
				u := u
				out = &u
				return nil
			}
		}
		return nil
	})
	return out, err
}

func (r *userRepo) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	u, err := r.GetByEmail(ctx, email)
	return u != nil, err
}

func (r *userRepo) ExistsByUsername(ctx context.Context, username string) (bool, error) {
	found := false
	err := r.v.do(func(st *state) error {
		for _, u := range st.users {
			if u.Username == username {
				found = true
				return nil
			}
		}
		return nil
	})
	return found, err
}

// --- wishlists ---

type wishlistRepo struct{ v *view }

func (r *wishlistRepo) Create(ctx context.Context, w *models.Wishlist) error {
	return r.v.do(func(st *state) error {
		for _, existing := range st.wishlists {
			if existing.Slug == w.Slug {
				return service.ErrDuplicateKey
			}
		}
		w.ID = idOrNew(w.ID)
		stamp(&w.CreatedAt, r.v.store.now)
		stamp(&w.UpdatedAt, r.v.store.now)
		st.wishlists[w.ID] = *w
		st.nextSeq(w.ID)
		return nil
	})
}

func (r *wishlistRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Wishlist, error) {
	var out *models.Wishlist
	err := r.v.do(func(st *state) error {
		if w, ok := st.wishlists[id]; ok {
			out = &w
		}
		return nil
	})
	return out, err
}

func (r *wishlistRepo) GetBySlug(ctx context.Context, slug string) (*models.Wishlist, error) {
	var out *models.Wishlist
	err := r.v.do(func(st *state) error {
		for _, w := range st.wishlists {
			if w.Slug == slug {
				w := w
				out = &w
				return nil
			}
		}
		return nil
	})
	return out, err
}

func (r *wishlistRepo) ListByOwner(ctx context.Context, ownerID uuid.UUID) ([]models.Wishlist, error) {
	var out []models.Wishlist
	err := r.v.do(func(st *state) error {
		for _, w := range st.wishlists {
			if w.OwnerID == ownerID {
				out = append(out, w)
			}
		}
		// новые сверху
		sort.Slice(out, func(i, j int) bool { return st.order[out[i].ID] > st.order[out[j].ID] })
		return nil
	})
	return out, err
}

func (r *wishlistRepo) SlugExists(ctx context.Context, slug string) (bool, error) {
	w, err := r.GetBySlug(ctx, slug)
	return w != nil, err
}

func (r *wishlistRepo) UpdateFields(ctx context.Context, id uuid.UUID, fields map[string]any) error {
	return r.v.do(func(st *state) error {
		w, ok := st.wishlists[id]
		if !ok {
			return nil
		}
		for k, val := range fields {
			switch k {
			case "title":
				w.Title = val.(string)
			case "description":
				w.Description = val.(*string)
			case "is_public":
				w.IsPublic = val.(bool)
			case "event_date":
				d := val.(time.Time)
				w.EventDate = &d
			case "updated_at":
				w.UpdatedAt = val.(time.Time)
			default:
				return fmt.Errorf("memstore: unknown wishlist field %q", k)
			}
		}
		st.wishlists[id] = w
		return nil
	})
}

// Delete удаляет вишлист каскадом, как FK в postgres.
func (r *wishlistRepo) Delete(ctx context.Context, id uuid.UUID) error {
	return r.v.do(func(st *state) error {
		delete(st.wishlists, id)
		for itemID, it := range st.items {
			if it.WishlistID == id {
				deleteItem(st, itemID)
			}
		}
		return nil
	})
}

// --- items ---

type itemRepo struct{ v *view }

func (r *itemRepo) Create(ctx context.Context, it *models.Item) error {
	return r.v.do(func(st *state) error {
		if _, ok := st.wishlists[it.WishlistID]; !ok {
			return fmt.Errorf("memstore: wishlist %s does not exist", it.WishlistID)
		}
		it.ID = idOrNew(it.ID)
		stamp(&it.CreatedAt, r.v.store.now)
		stamp(&it.UpdatedAt, r.v.store.now)
		if it.CurrencyCode == "" {
			it.CurrencyCode = "RUB"
		}
		st.items[it.ID] = *it
		st.nextSeq(it.ID)
		return nil
	})
}

func (r *itemRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Item, error) {
	var out *models.Item
	err := r.v.do(func(st *state) error {
		if it, ok := st.items[id]; ok {
			out = &it
		}
		return nil
	})
	return out, err
}

// GetForUpdate: транзакции и так взаимно исключены мьютексом хранилища.
func (r *itemRepo) GetForUpdate(ctx context.Context, id uuid.UUID) (*models.Item, error) {
	return r.GetByID(ctx, id)
}

func (r *itemRepo) ListByWishlists(ctx context.Context, wishlistIDs []uuid.UUID) ([]models.Item, error) {
	want := make(map[uuid.UUID]struct{}, len(wishlistIDs))
	for _, id := range wishlistIDs {
		want[id] = struct{}{}
	}
	var out []models.Item
	err := r.v.do(func(st *state) error {
		for _, it := range st.items {
			if _, ok := want[it.WishlistID]; ok {
				out = append(out, it)
			}
		}
		sort.Slice(out, func(i, j int) bool { return st.order[out[i].ID] < st.order[out[j].ID] })
		return nil
	})
	return out, err
}

func (r *itemRepo) UpdateFields(ctx context.Context, id uuid.UUID, fields map[string]any) error {
	return r.v.do(func(st *state) error {
		it, ok := st.items[id]
		if !ok {
			return nil
		}
		for k, val := range fields {
			switch k {
			case "title":
				it.Title = val.(string)
			case "description":
				it.Description = val.(*string)
			case "url":
				it.URL = val.(*string)
			case "image_url":
				it.ImageURL = val.(*string)
			case "currency_code":
				it.CurrencyCode = val.(string)
			case "priority":
				it.Priority = val.(models.Priority)
			case "price_cents":
				p := val.(int64)
				it.PriceCents = &p
			case "is_pooling":
				it.IsPooling = val.(bool)
			case "updated_at":
				it.UpdatedAt = val.(time.Time)
			default:
				return fmt.Errorf("memstore: unknown item field %q", k)
			}
		}
		it.Version++
		st.items[id] = it
		return nil
	})
}

func (r *itemRepo) SetReserved(ctx context.Context, id uuid.UUID, reserved bool) (bool, error) {
	changed := false
	err := r.v.do(func(st *state) error {
		it, ok := st.items[id]
		if !ok || it.IsReserved == reserved {
			return nil
		}
		it.IsReserved = reserved
		it.Version++
		it.UpdatedAt = r.v.store.now()
		st.items[id] = it
		changed = true
		return nil
	})
	return changed, err
}

func (r *itemRepo) TryAddContribution(ctx context.Context, id uuid.UUID, amountCents int64) (bool, error) {
	applied := false
	err := r.v.do(func(st *state) error {
		it, ok := st.items[id]
		if !ok || !it.IsPooling || it.PriceCents == nil || it.ContributedCents+amountCents > *it.PriceCents {
			return nil
		}
		it.ContributedCents += amountCents
		it.Version++
		it.UpdatedAt = r.v.store.now()
		st.items[id] = it
		applied = true
		return nil
	})
	return applied, err
}

func (r *itemRepo) Delete(ctx context.Context, id uuid.UUID) error {
	return r.v.do(func(st *state) error {
		deleteItem(st, id)
		return nil
	})
}

func deleteItem(st *state, id uuid.UUID) {
	delete(st.items, id)
	for rid, res := range st.reservations {
		if res.ItemID == id {
			delete(st.reservations, rid)
		}
	}
	for cid, c := range st.contributions {
		if c.ItemID == id {
			delete(st.contributions, cid)
		}
	}
}

// --- reservations ---

type reservationRepo struct{ v *view }

func (r *reservationRepo) Create(ctx context.Context, res *models.Reservation) error {
	return r.v.do(func(st *state) error {
		for _, existing := range st.reservations {
			if existing.ItemID == res.ItemID {
				return service.ErrDuplicateKey
			}
		}
		res.ID = idOrNew(res.ID)
		stamp(&res.CreatedAt, r.v.store.now)
		st.reservations[res.ID] = *res
		return nil
	})
}

func (r *reservationRepo) GetByItem(ctx context.Context, itemID uuid.UUID) (*models.Reservation, error) {
	var out *models.Reservation
	err := r.v.do(func(st *state) error {
		for _, res := range st.reservations {
			if res.ItemID == itemID {
				res := res
				out = &res
				return nil
			}
		}
		return nil
	})
	return out, err
}

func (r *reservationRepo) Delete(ctx context.Context, id uuid.UUID) error {
	return r.v.do(func(st *state) error {
		delete(st.reservations, id)
		return nil
	})
}

func (r *reservationRepo) ListByItems(ctx context.Context, itemIDs []uuid.UUID) ([]models.Reservation, error) {
	want := make(map[uuid.UUID]struct{}, len(itemIDs))
	for _, id := range itemIDs {
		want[id] = struct{}{}
	}
	var out []models.Reservation
	err := r.v.do(func(st *state) error {
		for _, res := range st.reservations {
			if _, ok := want[res.ItemID]; ok {
				out = append(out, res)
			}
		}
		return nil
	})
	return out, err
}

// --- contributions ---

type contributionRepo struct{ v *view }

func (r *contributionRepo) Create(ctx context.Context, c *models.Contribution) error {
	return r.v.do(func(st *state) error {
		c.ID = idOrNew(c.ID)
		stamp(&c.CreatedAt, r.v.store.now)
		st.contributions[c.ID] = *c
		st.nextSeq(c.ID)
		return nil
	})
}

func (r *contributionRepo) SumByItem(ctx context.Context, itemID uuid.UUID) (int64, error) {
	var sum int64
	err := r.v.do(func(st *state) error {
		for _, c := range st.contributions {
			if c.ItemID == itemID {
				sum += c.AmountCents
			}
		}
		return nil
	})
	return sum, err
}

func (r *contributionRepo) CountByItem(ctx context.Context, itemID uuid.UUID) (int64, error) {
	var n int64
	err := r.v.do(func(st *state) error {
		for _, c := range st.contributions {
			if c.ItemID == itemID {
				n++
			}
		}
		return nil
	})
	return n, err
}

func (r *contributionRepo) ListByItems(ctx context.Context, itemIDs []uuid.UUID) ([]models.Contribution, error) {
	want := make(map[uuid.UUID]struct{}, len(itemIDs))
	for _, id := range itemIDs {
		want[id] = struct{}{}
	}
	var out []models.Contribution
	err := r.v.do(func(st *state) error {
		for _, c := range st.contributions {
			if _, ok := want[c.ItemID]; ok {
				out = append(out, c)
			}
		}
		sort.Slice(out, func(i, j int) bool { return st.order[out[i].ID] < st.order[out[j].ID] })
		return nil
	})
	return out, err
}
