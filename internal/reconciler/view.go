package reconciler

import (
	"sync"

	"wishlist-service/internal/dto"
	"wishlist-service/internal/events"

	"github.com/google/uuid"
)

// View: локальная копия публичного вишлиста. События патчат её сразу,
// а то, что из события не восстановить, требует повторной загрузки.
type View struct {
	mu       sync.RWMutex
	wishlist *dto.WishlistGuestResponse
}

func NewView() *View {
	return &View{}
}

// Replace подменяет состояние авторитетным ответом сервера.
func (v *View) Replace(w *dto.WishlistGuestResponse) {
	v.mu.Lock()
	v.wishlist = w
	v.mu.Unlock()
}

// Snapshot возвращает копию текущего состояния или nil до первой загрузки.
func (v *View) Snapshot() *dto.WishlistGuestResponse {
	v.mu.RLock()
	defer v.mu.RUnlock()
	if v.wishlist == nil {
		return nil
	}
	cp := *v.wishlist
	cp.Items = append([]dto.ItemGuestResponse(nil), v.wishlist.Items...)
	return &cp
}

func (v *View) WishlistID() (uuid.UUID, bool) {
	v.mu.RLock()
	defer v.mu.RUnlock()
	if v.wishlist == nil {
		return uuid.Nil, false
	}
	return v.wishlist.ID, true
}

func (v *View) Item(id uuid.UUID) (dto.ItemGuestResponse, bool) {
	v.mu.RLock()
	defer v.mu.RUnlock()
	if v.wishlist == nil {
		return dto.ItemGuestResponse{}, false
	}
	if i := indexOf(v.wishlist.Items, id); i >= 0 {
		return v.wishlist.Items[i], true
	}
	return dto.ItemGuestResponse{}, false
}

// Apply применяет событие и сообщает, нужна ли повторная загрузка.
// События чужого вишлиста и устаревшие версии игнорируются.
func (v *View) Apply(e events.Event) bool {
	v.mu.Lock()
	defer v.mu.Unlock()

	if v.wishlist == nil {
		return true
	}
	if e.WishlistID != v.wishlist.ID {
		return false
	}

	switch e.Type {
	case events.Reservation, events.ReservationCancelled, events.Contribution:
	case events.ItemDeleted:
		if e.ItemID != nil {
			if i := indexOf(v.wishlist.Items, *e.ItemID); i >= 0 {
				v.wishlist.Items = append(v.wishlist.Items[:i:i], v.wishlist.Items[i+1:]...)
			}
		}
		return true
	default:
		// item_created, item_updated, wishlist_* и незнакомые типы
		return true
	}

	if e.ItemID == nil {
		return true
	}
	i := indexOf(v.wishlist.Items, *e.ItemID)
	if i < 0 {
		return true
	}
	it := &v.wishlist.Items[i]
	if e.Version != 0 && e.Version <= it.Version {
		return false
	}

	if e.Data.IsReserved != nil {
		it.IsReserved = *e.Data.IsReserved
	}
	if e.Data.IsFunded != nil {
		it.IsFunded = *e.Data.IsFunded
	}
	if e.Data.TotalContributed != nil {
		total := *e.Data.TotalContributed
		it.TotalContributed = &total
	}
	if e.Type == events.ReservationCancelled {
		it.Reservations = []dto.ReservationPublic{}
	}
	if e.Version != 0 {
		it.Version = e.Version
	}
	return false
}

func indexOf(items []dto.ItemGuestResponse, id uuid.UUID) int {
	for i := range items {
		if items[i].ID == id {
			return i
		}
	}
	return -1
}
