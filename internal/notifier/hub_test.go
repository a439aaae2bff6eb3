package notifier

import (
	"context"
	"sync"
	"testing"
	"time"

	"wishlist-service/internal/events"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

func itemEvent(wishlistID, itemID uuid.UUID, typ events.Type, version int64) events.Event {
	id := itemID
	return events.Event{Type: typ, WishlistID: wishlistID, ItemID: &id, Version: version}
}

func recv(t *testing.T, sub *Subscriber) events.Event {
	t.Helper()
	select {
	case e := <-sub.Events():
		return e
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for event")
		return events.Event{}
	}
}

func assertNoEvent(t *testing.T, sub *Subscriber) {
	t.Helper()
	select {
	case e := <-sub.Events():
		t.Fatalf("unexpected event: %+v", e)
	default:
	}
}

func TestHub_FanOutToRoomOnly(t *testing.T) {
	h := NewHub(8, zap.NewNop())
	wl, other := uuid.New(), uuid.New()

	a := h.Subscribe(wl)
	b := h.Subscribe(wl)
	c := h.Subscribe(other)

	if err := h.Publish(context.Background(), itemEvent(wl, uuid.New(), events.Reservation, 1)); err != nil {
		t.Fatalf("Publish: %v", err)
	}

	if got := recv(t, a); got.Type != events.Reservation {
		t.Fatalf("a: got %s", got.Type)
	}
	if got := recv(t, b); got.Type != events.Reservation {
		t.Fatalf("b: got %s", got.Type)
	}
	assertNoEvent(t, c)
}

func TestHub_PreservesPublishOrder(t *testing.T) {
	h := NewHub(32, zap.NewNop())
	wl, item := uuid.New(), uuid.New()
	sub := h.Subscribe(wl)

	for v := int64(1); v <= 20; v++ {
		typ := events.Reservation
		if v%2 == 0 {
			typ = events.ReservationCancelled
		}
		_ = h.Publish(context.Background(), itemEvent(wl, item, typ, v))
	}

	for v := int64(1); v <= 20; v++ {
		got := recv(t, sub)
		if got.Version != v {
			t.Fatalf("event %d out of order: got version %d", v, got.Version)
		}
	}
}

func TestHub_DropsStaleVersions(t *testing.T) {
	h := NewHub(8, zap.NewNop())
	wl, item := uuid.New(), uuid.New()
	sub := h.Subscribe(wl)

	_ = h.Publish(context.Background(), itemEvent(wl, item, events.Contribution, 3))
	_ = h.Publish(context.Background(), itemEvent(wl, item, events.Contribution, 2))
	_ = h.Publish(context.Background(), itemEvent(wl, item, events.Contribution, 3))
	_ = h.Publish(context.Background(), itemEvent(wl, item, events.Contribution, 4))

	if got := recv(t, sub); got.Version != 3 {
		t.Fatalf("want version 3, got %d", got.Version)
	}
	if got := recv(t, sub); got.Version != 4 {
		t.Fatalf("want version 4, got %d", got.Version)
	}
	assertNoEvent(t, sub)
}

func TestHub_UnversionedEventsAlwaysDelivered(t *testing.T) {
	h := NewHub(8, zap.NewNop())
	wl := uuid.New()
	sub := h.Subscribe(wl)

	for i := 0; i < 3; i++ {
		_ = h.Publish(context.Background(), events.Event{Type: events.WishlistUpdated, WishlistID: wl})
	}
	for i := 0; i < 3; i++ {
		if got := recv(t, sub); got.Type != events.WishlistUpdated {
			t.Fatalf("got %s", got.Type)
		}
	}
}

func TestHub_SlowSubscriberIsDisconnected(t *testing.T) {
	h := NewHub(2, zap.NewNop())
	wl, item := uuid.New(), uuid.New()

	slow := h.Subscribe(wl)
	fast := h.Subscribe(wl)

	for v := int64(1); v <= 3; v++ {
		_ = h.Publish(context.Background(), itemEvent(wl, item, events.Contribution, v))
		if got := recv(t, fast); got.Version != v {
			t.Fatalf("fast subscriber: want %d, got %d", v, got.Version)
		}
	}

	select {
	case <-slow.Done():
	case <-time.After(time.Second):
		t.Fatal("slow subscriber was not disconnected")
	}
	if slow.Reason() != ReasonSlow {
		t.Fatalf("reason: got %q", slow.Reason())
	}
	if n := h.SubscriberCount(wl); n != 1 {
		t.Fatalf("subscriber count: got %d, want 1", n)
	}

	select {
	case <-fast.Done():
		t.Fatal("fast subscriber must stay connected")
	default:
	}
}

func TestHub_Unsubscribe(t *testing.T) {
	h := NewHub(4, zap.NewNop())
	wl := uuid.New()
	sub := h.Subscribe(wl)

	h.Unsubscribe(sub)
	h.Unsubscribe(sub)

	if n := h.SubscriberCount(wl); n != 0 {
		t.Fatalf("subscriber count: got %d", n)
	}
	if sub.Reason() != ReasonUnsubscribed {
		t.Fatalf("reason: got %q", sub.Reason())
	}
	if err := h.Publish(context.Background(), itemEvent(wl, uuid.New(), events.ItemDeleted, 1)); err != nil {
		t.Fatalf("Publish after unsubscribe: %v", err)
	}
	assertNoEvent(t, sub)
}

func TestHub_Close(t *testing.T) {
	h := NewHub(4, zap.NewNop())
	a := h.Subscribe(uuid.New())
	b := h.Subscribe(uuid.New())

	h.Close()

	for _, s := range []*Subscriber{a, b} {
		select {
		case <-s.Done():
		default:
			t.Fatal("subscriber not closed")
		}
		if s.Reason() != ReasonShutdown {
			t.Fatalf("reason: got %q", s.Reason())
		}
	}
}

func TestHub_ConcurrentPublishAndSubscribe(t *testing.T) {
	h := NewHub(1024, zap.NewNop())
	wl := uuid.New()

	var wg sync.WaitGroup
	subs := make([]*Subscriber, 8)
	for i := range subs {
		subs[i] = h.Subscribe(wl)
	}

	items := make([]uuid.UUID, 4)
	for i := range items {
		items[i] = uuid.New()
	}
	for _, item := range items {
		wg.Add(1)
		go func(item uuid.UUID) {
			defer wg.Done()
			for v := int64(1); v <= 50; v++ {
				_ = h.Publish(context.Background(), itemEvent(wl, item, events.Contribution, v))
			}
		}(item)
	}
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < 20; i++ {
			s := h.Subscribe(wl)
			h.Unsubscribe(s)
		}
	}()
	wg.Wait()

	for _, s := range subs {
		last := map[uuid.UUID]int64{}
		for n := 0; n < len(items)*50; n++ {
			e := recv(t, s)
			if e.Version <= last[*e.ItemID] {
				t.Fatalf("per-item order violated: %d after %d", e.Version, last[*e.ItemID])
			}
			last[*e.ItemID] = e.Version
		}
	}
}

func TestHub_AccessRevokedDisconnectsRoom(t *testing.T) {
	tests := []struct {
		name string
		ev   func(wl uuid.UUID) events.Event
	}{
		{"made private", func(wl uuid.UUID) events.Event {
			return events.Event{Type: events.WishlistUpdated, WishlistID: wl, Data: events.Payload{IsPublic: events.Bool(false)}}
		}},
		{"deleted", func(wl uuid.UUID) events.Event {
			return events.Event{Type: events.WishlistDeleted, WishlistID: wl}
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewHub(8, zap.NewNop())
			wl, other := uuid.New(), uuid.New()
			a, b := h.Subscribe(wl), h.Subscribe(wl)
			c := h.Subscribe(other)

			_ = h.Publish(context.Background(), itemEvent(wl, uuid.New(), events.Reservation, 3))
			_ = h.Publish(context.Background(), tt.ev(wl))

			for _, sub := range []*Subscriber{a, b} {
				select {
				case <-sub.Done():
				case <-time.After(time.Second):
					t.Fatal("subscriber still attached")
				}
				if sub.Reason() != ReasonRevoked {
					t.Fatalf("reason = %q", sub.Reason())
				}
				if got := recv(t, sub); got.Type != events.Reservation {
					t.Fatalf("first event = %s", got.Type)
				}
				if got := recv(t, sub); got.Type != tt.ev(wl).Type {
					t.Fatalf("last event = %s", got.Type)
				}
			}
			if n := h.SubscriberCount(wl); n != 0 {
				t.Fatalf("room still has %d subscribers", n)
			}

			// события после закрытия никому не уходят
			_ = h.Publish(context.Background(), itemEvent(wl, uuid.New(), events.Reservation, 4))
			assertNoEvent(t, a)

			select {
			case <-c.Done():
				t.Fatal("other room must stay connected")
			default:
			}
			if h.SubscriberCount(other) != 1 {
				t.Fatal("other room lost its subscriber")
			}

			// повторная подписка начинает с чистой комнаты
			d := h.Subscribe(wl)
			_ = h.Publish(context.Background(), itemEvent(wl, uuid.New(), events.Reservation, 1))
			if got := recv(t, d); got.Version != 1 {
				t.Fatalf("version = %d", got.Version)
			}
		})
	}
}

func TestHub_MadePublicKeepsSubscribers(t *testing.T) {
	h := NewHub(8, zap.NewNop())
	wl := uuid.New()
	sub := h.Subscribe(wl)

	_ = h.Publish(context.Background(), events.Event{Type: events.WishlistUpdated, WishlistID: wl, Data: events.Payload{IsPublic: events.Bool(true)}})
	recv(t, sub)
	select {
	case <-sub.Done():
		t.Fatal("subscriber must stay attached")
	default:
	}
}
