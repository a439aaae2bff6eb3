package notifier

import (
	"context"
	"sync"
	"sync/atomic"

	"wishlist-service/internal/events"
	"wishlist-service/internal/metrics"

	"github.com/google/uuid"
	"github.com/puzpuzpuz/xsync/v3"
	"go.uber.org/zap"
)

const DefaultBuffer = 64

type DropReason string

const (
	ReasonUnsubscribed DropReason = "unsubscribed"
	ReasonSlow         DropReason = "slow_consumer"
	ReasonShutdown     DropReason = "shutdown"
	ReasonRevoked      DropReason = "wishlist_unavailable"
)

// Subscriber: подписчик на изменения одного вишлиста. Буфер ограничен:
// при переполнении подписчик отключается, публикация не ждёт.
type Subscriber struct {
	id         uint64
	wishlistID uuid.UUID
	send       chan events.Event
	done       chan struct{}
	once       sync.Once
	reason     atomic.Value
}

func (s *Subscriber) ID() uint64            { return s.id }
func (s *Subscriber) WishlistID() uuid.UUID { return s.wishlistID }

// Events: очередь событий; канал никогда не закрывается, конец подписки
// сигнализирует Done.
func (s *Subscriber) Events() <-chan events.Event { return s.send }

func (s *Subscriber) Done() <-chan struct{} { return s.done }

func (s *Subscriber) Reason() DropReason {
	if r, ok := s.reason.Load().(DropReason); ok {
		return r
	}
	return ""
}

func (s *Subscriber) close(reason DropReason) bool {
	closed := false
	s.once.Do(func() {
		s.reason.Store(reason)
		close(s.done)
		closed = true
	})
	return closed
}

type room struct {
	mu       sync.Mutex
	subs     map[*Subscriber]struct{}
	versions map[uuid.UUID]int64
}

// Hub раздаёт события подписчикам вишлиста. Порядок событий одной позиции
// задаёт издатель; Hub дополнительно отбрасывает события с версией не новее
// уже доставленной.
type Hub struct {
	rooms  *xsync.MapOf[uuid.UUID, *room]
	buffer int
	nextID atomic.Uint64
	log    *zap.Logger
}

func NewHub(buffer int, log *zap.Logger) *Hub {
	if buffer <= 0 {
		buffer = DefaultBuffer
	}
	return &Hub{
		rooms:  xsync.NewMapOf[uuid.UUID, *room](),
		buffer: buffer,
		log:    log,
	}
}

func (h *Hub) Subscribe(wishlistID uuid.UUID) *Subscriber {
	sub := &Subscriber{
		id:         h.nextID.Add(1),
		wishlistID: wishlistID,
		send:       make(chan events.Event, h.buffer),
		done:       make(chan struct{}),
	}
	h.rooms.Compute(wishlistID, func(r *room, loaded bool) (*room, bool) {
		if !loaded {
			r = &room{subs: map[*Subscriber]struct{}{}, versions: map[uuid.UUID]int64{}}
		}
		r.mu.Lock()
		r.subs[sub] = struct{}{}
		r.mu.Unlock()
		return r, false
	})
	metrics.Subscribers.Inc()
	h.log.Debug("subscriber added", zap.String("wishlist_id", wishlistID.String()), zap.Uint64("sub", sub.id))
	return sub
}

func (h *Hub) Unsubscribe(sub *Subscriber) {
	h.rooms.Compute(sub.wishlistID, func(r *room, loaded bool) (*room, bool) {
		if !loaded {
			return r, true
		}
		r.mu.Lock()
		delete(r.subs, sub)
		empty := len(r.subs) == 0
		r.mu.Unlock()
		return r, empty
	})
	if sub.close(ReasonUnsubscribed) {
		metrics.Subscribers.Dec()
	}
}

// Publish кладёт событие в буфер каждого подписчика вишлиста без ожидания.
func (h *Hub) Publish(_ context.Context, e events.Event) error {
	r, ok := h.rooms.Load(e.WishlistID)
	if !ok {
		return nil
	}

	if e.RevokesAccess() {
		h.revoke(e, r)
		return nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if itemID, ok := e.ItemKey(); ok && e.Version > 0 {
		if last := r.versions[itemID]; e.Version <= last {
			metrics.EventsDropped.WithLabelValues("stale").Inc()
			h.log.Debug("stale event dropped",
				zap.String("item_id", itemID.String()),
				zap.Int64("version", e.Version),
				zap.Int64("last", last))
			return nil
		}
		r.versions[itemID] = e.Version
	}

	for sub := range r.subs {
		select {
		case <-sub.done:
			delete(r.subs, sub)
			metrics.EventsDropped.WithLabelValues("closed").Inc()
		case sub.send <- e:
			metrics.EventsDelivered.Inc()
		default:
			delete(r.subs, sub)
			if sub.close(ReasonSlow) {
				metrics.Subscribers.Dec()
			}
			metrics.EventsDropped.WithLabelValues("slow").Inc()
			h.log.Warn("slow subscriber disconnected",
				zap.String("wishlist_id", e.WishlistID.String()),
				zap.Uint64("sub", sub.id))
		}
	}
	return nil
}

// revoke доставляет последнее событие и отключает всех подписчиков комнаты.
// Пустая комната удаляется; успевшие подписаться после отключения остаются.
func (h *Hub) revoke(e events.Event, r *room) {
	r.mu.Lock()
	for sub := range r.subs {
		select {
		case sub.send <- e:
			metrics.EventsDelivered.Inc()
		default:
		}
		if sub.close(ReasonRevoked) {
			metrics.Subscribers.Dec()
		}
	}
	n := len(r.subs)
	r.subs = map[*Subscriber]struct{}{}
	r.versions = map[uuid.UUID]int64{}
	r.mu.Unlock()

	h.rooms.Compute(e.WishlistID, func(cur *room, loaded bool) (*room, bool) {
		if !loaded {
			return cur, true
		}
		cur.mu.Lock()
		empty := len(cur.subs) == 0
		cur.mu.Unlock()
		return cur, empty
	})
	h.log.Info("wishlist subscribers disconnected",
		zap.String("wishlist_id", e.WishlistID.String()),
		zap.String("event", string(e.Type)),
		zap.Int("count", n))
}

func (h *Hub) SubscriberCount(wishlistID uuid.UUID) int {
	r, ok := h.rooms.Load(wishlistID)
	if !ok {
		return 0
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.subs)
}

// Close отключает всех подписчиков.
func (h *Hub) Close() {
	h.rooms.Range(func(id uuid.UUID, r *room) bool {
		r.mu.Lock()
		for sub := range r.subs {
			if sub.close(ReasonShutdown) {
				metrics.Subscribers.Dec()
			}
		}
		r.subs = map[*Subscriber]struct{}{}
		r.mu.Unlock()
		h.rooms.Delete(id)
		return true
	})
}
