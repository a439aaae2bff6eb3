package service_test

import (
	"context"
	"sync"
	"testing"

	"wishlist-service/internal/events"
	"wishlist-service/internal/memstore"
	"wishlist-service/internal/models"
	"wishlist-service/internal/producer"
	"wishlist-service/internal/service"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// recorder запоминает опубликованные события в порядке публикации.
type recorder struct {
	mu     sync.Mutex
	events []events.Event
}

func (r *recorder) Publish(_ context.Context, e events.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
	return nil
}

func (r *recorder) ofType(t events.Type) []events.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []events.Event
	for _, e := range r.events {
		if e.Type == t {
			out = append(out, e)
		}
	}
	return out
}

func (r *recorder) all() []events.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]events.Event(nil), r.events...)
}

// MockMailer
type MockMailer struct {
	mu   sync.Mutex
	Sent []producer.EmailMessage
}

func (m *MockMailer) SendEmail(_ context.Context, _ string, msg producer.EmailMessage) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Sent = append(m.Sent, msg)
	return nil
}

type env struct {
	store  *memstore.Store
	svc    *service.WishlistService
	events *recorder
	mailer *MockMailer

	ownerID  uuid.UUID
	ownerCtx context.Context
}

func newEnv(t *testing.T) *env {
	t.Helper()
	return newEnvWithSink(t, nil)
}

// newEnvWithSink добавляет к recorder ещё один приёмник событий.
func newEnvWithSink(t *testing.T, sink events.Publisher) *env {
	t.Helper()
	store := memstore.New()
	rec := &recorder{}
	mailer := &MockMailer{}

	owner := &models.User{ID: uuid.New(), Email: "owner@example.com", Username: "owner", PasswordHash: "x", IsActive: true}
	if err := store.Users().Create(context.Background(), owner); err != nil {
		t.Fatalf("create owner: %v", err)
	}

	return &env{
		store:    store,
		svc:      service.NewWishlistService(store, events.Fanout{rec, sink}, mailer, zap.NewNop()),
		events:   rec,
		mailer:   mailer,
		ownerID:  owner.ID,
		ownerCtx: service.WithUserID(context.Background(), owner.ID),
	}
}

func (e *env) wishlist(t *testing.T, public bool) *service.WishlistView {
	t.Helper()
	w, err := e.svc.CreateWishlist(e.ownerCtx, service.WishlistInput{Title: "День рождения", IsPublic: public})
	if err != nil {
		t.Fatalf("CreateWishlist: %v", err)
	}
	return w
}

func (e *env) item(t *testing.T, wishlistID uuid.UUID, in service.ItemInput) *models.Item {
	t.Helper()
	if in.Title == "" {
		in.Title = "Подарок"
	}
	it, err := e.svc.CreateItem(e.ownerCtx, wishlistID, in)
	if err != nil {
		t.Fatalf("CreateItem: %v", err)
	}
	return it
}

func (e *env) pooling(t *testing.T, wishlistID uuid.UUID, priceCents int64) *models.Item {
	t.Helper()
	return e.item(t, wishlistID, service.ItemInput{Title: "Велосипед", PriceCents: &priceCents, IsPooling: true})
}

func strp(s string) *string { return &s }

func i64p(v int64) *int64 { return &v }
