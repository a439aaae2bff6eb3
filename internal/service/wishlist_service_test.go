package service_test

import (
	"context"
	"errors"
	"testing"

	"wishlist-service/internal/events"
	"wishlist-service/internal/models"
	"wishlist-service/internal/service"

	"github.com/google/uuid"
)

func TestWishlist_OwnerOnly(t *testing.T) {
	e := newEnv(t)
	w := e.wishlist(t, true)
	stranger := service.WithUserID(context.Background(), uuid.New())

	if _, err := e.svc.ListWishlists(context.Background()); !errors.Is(err, service.ErrUnauthorized) {
		t.Fatalf("anonymous list: got %v", err)
	}
	if _, err := e.svc.GetWishlist(stranger, w.ID); !errors.Is(err, service.ErrForbidden) {
		t.Fatalf("stranger get: got %v", err)
	}
	if _, err := e.svc.CreateItem(stranger, w.ID, service.ItemInput{Title: "x"}); !errors.Is(err, service.ErrForbidden) {
		t.Fatalf("stranger create item: got %v", err)
	}
	if err := e.svc.DeleteWishlist(stranger, w.ID); !errors.Is(err, service.ErrForbidden) {
		t.Fatalf("stranger delete: got %v", err)
	}
	if _, err := e.svc.GetWishlist(e.ownerCtx, uuid.New()); !errors.Is(err, service.ErrNotFound) {
		t.Fatalf("missing wishlist: got %v", err)
	}

	lists, err := e.svc.ListWishlists(e.ownerCtx)
	if err != nil || len(lists) != 1 || lists[0].ID != w.ID {
		t.Fatalf("ListWishlists = %+v, %v", lists, err)
	}
}

func TestWishlist_CreateValidation(t *testing.T) {
	e := newEnv(t)
	if _, err := e.svc.CreateWishlist(e.ownerCtx, service.WishlistInput{Title: "  "}); !errors.Is(err, service.ErrInvalidArgument) {
		t.Fatalf("blank title: got %v", err)
	}
	a := e.wishlist(t, true)
	b := e.wishlist(t, true)
	if a.Slug == "" || a.Slug == b.Slug {
		t.Fatalf("slugs must be unique and non-empty: %q %q", a.Slug, b.Slug)
	}
}

func TestPublicWishlist_Secrecy(t *testing.T) {
	e := newEnv(t)
	w := e.wishlist(t, true)
	plain := e.item(t, w.ID, service.ItemInput{Title: "Книга"})
	pooled := e.pooling(t, w.ID, 10000)
	ctx := context.Background()

	if _, err := e.svc.Reserve(ctx, plain.ID, service.ReserveInput{Name: "Аня", Email: strp("anya@example.com"), Message: strp("сюрприз")}); err != nil {
		t.Fatalf("Reserve: %v", err)
	}
	if _, err := e.svc.Contribute(ctx, pooled.ID, service.ContributeInput{Name: "Петя", AmountCents: 2500}); err != nil {
		t.Fatalf("Contribute: %v", err)
	}

	guest, err := e.svc.GetPublicWishlist(ctx, w.Slug)
	if err != nil {
		t.Fatalf("guest view: %v", err)
	}
	if !guest.Detailed || guest.Items[0].Reservation == nil || len(guest.Items[1].Contributions) != 1 {
		t.Fatalf("guest must see reservation and contributions: %+v", guest)
	}

	ownerPublic, err := e.svc.GetPublicWishlist(e.ownerCtx, w.Slug)
	if err != nil {
		t.Fatalf("owner public view: %v", err)
	}
	ownerOwn, err := e.svc.GetWishlist(e.ownerCtx, w.ID)
	if err != nil {
		t.Fatalf("owner view: %v", err)
	}
	for _, v := range []*service.WishlistView{ownerPublic, ownerOwn} {
		if v.Detailed {
			t.Fatal("owner view must not be detailed")
		}
		for _, it := range v.Items {
			if it.Reservation != nil || len(it.Contributions) != 0 {
				t.Fatalf("owner view leaks details: %+v", it)
			}
		}
		if !v.Items[0].IsReserved {
			t.Fatal("owner still sees is_reserved")
		}
		if v.Items[1].ContributedCents != 2500 {
			t.Fatal("owner still sees the collected amount")
		}
	}
}

func TestPublicWishlist_PrivateIsNotFound(t *testing.T) {
	e := newEnv(t)
	w := e.wishlist(t, false)

	if _, err := e.svc.GetPublicWishlist(context.Background(), w.Slug); !errors.Is(err, service.ErrNotFound) {
		t.Fatalf("private for guest: got %v", err)
	}
	if _, err := e.svc.GetPublicWishlist(context.Background(), "no-such-slug"); !errors.Is(err, service.ErrNotFound) {
		t.Fatalf("missing slug: got %v", err)
	}
	if err := e.svc.CheckSubscribable(context.Background(), w.ID); !errors.Is(err, service.ErrNotFound) {
		t.Fatalf("subscribe to private: got %v", err)
	}
	if _, err := e.svc.GetPublicWishlist(e.ownerCtx, w.Slug); err != nil {
		t.Fatalf("owner sees own private wishlist: %v", err)
	}
}

func TestUpdateWishlist_PublishesEvent(t *testing.T) {
	e := newEnv(t)
	w := e.wishlist(t, true)

	v, err := e.svc.UpdateWishlist(e.ownerCtx, w.ID, service.WishlistPatch{Title: strp("Новый год"), IsPublic: boolp(false)})
	if err != nil {
		t.Fatalf("UpdateWishlist: %v", err)
	}
	if v.Title != "Новый год" || v.IsPublic {
		t.Fatalf("patch not applied: %+v", v.Wishlist)
	}
	evs := e.events.ofType(events.WishlistUpdated)
	if len(evs) != 1 || evs[0].WishlistID != w.ID {
		t.Fatalf("wishlist_updated events = %+v", evs)
	}
	if !evs[0].RevokesAccess() {
		t.Fatalf("making a wishlist private must revoke access: %+v", evs[0].Data)
	}

	if _, err := e.svc.UpdateWishlist(e.ownerCtx, w.ID, service.WishlistPatch{Title: strp("Ёлка")}); err != nil {
		t.Fatalf("UpdateWishlist: %v", err)
	}
	evs = e.events.ofType(events.WishlistUpdated)
	if len(evs) != 2 || evs[1].Data.IsPublic != nil || evs[1].RevokesAccess() {
		t.Fatalf("title-only update must not touch visibility: %+v", evs[1].Data)
	}
}

func TestDeleteWishlist_Cascades(t *testing.T) {
	e := newEnv(t)
	w := e.wishlist(t, true)
	pooled := e.pooling(t, w.ID, 5000)
	if _, err := e.svc.Contribute(context.Background(), pooled.ID, service.ContributeInput{Name: "Гость", AmountCents: 100}); err != nil {
		t.Fatalf("Contribute: %v", err)
	}

	if err := e.svc.DeleteWishlist(e.ownerCtx, w.ID); err != nil {
		t.Fatalf("DeleteWishlist: %v", err)
	}
	if _, err := e.svc.GetItem(context.Background(), pooled.ID); !errors.Is(err, service.ErrNotFound) {
		t.Fatalf("items must be deleted with the wishlist: %v", err)
	}
	if n, _ := e.store.Contributions().CountByItem(context.Background(), pooled.ID); n != 0 {
		t.Fatalf("contributions left: %d", n)
	}
	if len(e.events.ofType(events.WishlistDeleted)) != 1 {
		t.Fatal("wishlist_deleted not published")
	}
}

func TestItem_CreateValidation(t *testing.T) {
	e := newEnv(t)
	w := e.wishlist(t, true)

	tests := []struct {
		name string
		in   service.ItemInput
		want error
	}{
		{"blank title", service.ItemInput{Title: " "}, service.ErrInvalidArgument},
		{"pooling without price", service.ItemInput{Title: "x", IsPooling: true}, service.ErrInvalidArgument},
		{"zero price", service.ItemInput{Title: "x", PriceCents: i64p(0)}, service.ErrInvalidArgument},
		{"bad priority", service.ItemInput{Title: "x", Priority: models.Priority(5)}, service.ErrInvalidArgument},
		{"bad currency", service.ItemInput{Title: "x", Currency: "rubles"}, service.ErrInvalidArgument},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := e.svc.CreateItem(e.ownerCtx, w.ID, tt.in); !errors.Is(err, tt.want) {
				t.Fatalf("got %v, want %v", err, tt.want)
			}
		})
	}

	it := e.item(t, w.ID, service.ItemInput{Title: "Чайник", Currency: "usd"})
	if it.CurrencyCode != "USD" {
		t.Fatalf("currency = %q", it.CurrencyCode)
	}
	def := e.item(t, w.ID, service.ItemInput{Title: "Чашка"})
	if def.CurrencyCode != "RUB" {
		t.Fatalf("default currency = %q", def.CurrencyCode)
	}
}

func TestUpdateItem_Rules(t *testing.T) {
	e := newEnv(t)
	w := e.wishlist(t, true)
	ctx := context.Background()

	reserved := e.item(t, w.ID, service.ItemInput{PriceCents: i64p(1000)})
	if _, err := e.svc.Reserve(ctx, reserved.ID, service.ReserveInput{Name: "Гость"}); err != nil {
		t.Fatalf("Reserve: %v", err)
	}
	funded := e.pooling(t, w.ID, 10000)
	if _, err := e.svc.Contribute(ctx, funded.ID, service.ContributeInput{Name: "Гость", AmountCents: 4000}); err != nil {
		t.Fatalf("Contribute: %v", err)
	}
	noPrice := e.item(t, w.ID, service.ItemInput{})

	tests := []struct {
		name   string
		itemID uuid.UUID
		patch  service.ItemPatch
		want   error
	}{
		{"pooling on reserved item", reserved.ID, service.ItemPatch{IsPooling: boolp(true)}, service.ErrInvalidState},
		{"pooling off with contributions", funded.ID, service.ItemPatch{IsPooling: boolp(false)}, service.ErrInvalidState},
		{"price below contributed", funded.ID, service.ItemPatch{PriceCents: i64p(3000)}, service.ErrInvalidState},
		{"pooling without price", noPrice.ID, service.ItemPatch{IsPooling: boolp(true)}, service.ErrInvalidArgument},
		{"blank title", noPrice.ID, service.ItemPatch{Title: strp("")}, service.ErrInvalidArgument},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := e.svc.UpdateItem(e.ownerCtx, tt.itemID, tt.patch); !errors.Is(err, tt.want) {
				t.Fatalf("got %v, want %v", err, tt.want)
			}
		})
	}

	updated, err := e.svc.UpdateItem(e.ownerCtx, funded.ID, service.ItemPatch{PriceCents: i64p(4000), Title: strp("Самокат")})
	if err != nil {
		t.Fatalf("UpdateItem: %v", err)
	}
	if *updated.PriceCents != 4000 || updated.Title != "Самокат" || !updated.IsFunded() {
		t.Fatalf("unexpected item: %+v", updated)
	}
	evs := e.events.ofType(events.ItemUpdated)
	if len(evs) != 1 || evs[0].Version != updated.Version {
		t.Fatalf("item_updated events = %+v", evs)
	}

	stranger := service.WithUserID(ctx, uuid.New())
	if _, err := e.svc.UpdateItem(stranger, noPrice.ID, service.ItemPatch{Title: strp("x")}); !errors.Is(err, service.ErrForbidden) {
		t.Fatalf("stranger update: got %v", err)
	}
}

func TestDeleteItem(t *testing.T) {
	e := newEnv(t)
	w := e.wishlist(t, true)
	ctx := context.Background()

	funded := e.pooling(t, w.ID, 5000)
	if _, err := e.svc.Contribute(ctx, funded.ID, service.ContributeInput{Name: "Гость", AmountCents: 100}); err != nil {
		t.Fatalf("Contribute: %v", err)
	}
	if err := e.svc.DeleteItem(e.ownerCtx, funded.ID); !errors.Is(err, service.ErrInvalidState) {
		t.Fatalf("delete with contributions: got %v", err)
	}

	it := e.item(t, w.ID, service.ItemInput{})
	if _, err := e.svc.Reserve(ctx, it.ID, service.ReserveInput{Name: "Гость"}); err != nil {
		t.Fatalf("Reserve: %v", err)
	}
	if err := e.svc.DeleteItem(service.WithUserID(ctx, uuid.New()), it.ID); !errors.Is(err, service.ErrForbidden) {
		t.Fatalf("stranger delete: got %v", err)
	}
	if err := e.svc.DeleteItem(e.ownerCtx, it.ID); err != nil {
		t.Fatalf("DeleteItem: %v", err)
	}
	if err := e.svc.DeleteItem(e.ownerCtx, it.ID); !errors.Is(err, service.ErrNotFound) {
		t.Fatalf("second delete: got %v", err)
	}

	evs := e.events.ofType(events.ItemDeleted)
	if len(evs) != 1 || evs[0].ItemID == nil || *evs[0].ItemID != it.ID || evs[0].WishlistID != w.ID {
		t.Fatalf("item_deleted events = %+v", evs)
	}
}

func TestEvents_VersionsIncreasePerItem(t *testing.T) {
	e := newEnv(t)
	w := e.wishlist(t, true)
	it := e.item(t, w.ID, service.ItemInput{})
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if _, err := e.svc.Reserve(ctx, it.ID, service.ReserveInput{Name: "Гость"}); err != nil {
			t.Fatalf("Reserve: %v", err)
		}
		if err := e.svc.CancelReservation(e.ownerCtx, it.ID, ""); err != nil {
			t.Fatalf("Cancel: %v", err)
		}
	}
	if err := e.svc.DeleteItem(e.ownerCtx, it.ID); err != nil {
		t.Fatalf("DeleteItem: %v", err)
	}

	var last int64
	count := 0
	for _, ev := range e.events.all() {
		if ev.ItemID == nil || *ev.ItemID != it.ID {
			continue
		}
		if ev.Version <= last {
			t.Fatalf("version %d after %d for %s", ev.Version, last, ev.Type)
		}
		last = ev.Version
		count++
	}
	if count != 8 {
		t.Fatalf("events for item = %d, want 8", count)
	}
}

func boolp(v bool) *bool { return &v }
