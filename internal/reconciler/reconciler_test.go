package reconciler_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"wishlist-service/internal/apiclient"
	"wishlist-service/internal/dto"
	"wishlist-service/internal/reconciler"
	"wishlist-service/pkg/testutil"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func ptr[T any](v T) *T { return &v }

type states struct {
	mu  sync.Mutex
	seq []reconciler.State
}

func (s *states) add(st reconciler.State) {
	s.mu.Lock()
	s.seq = append(s.seq, st)
	s.mu.Unlock()
}

func (s *states) count(st reconciler.State) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, x := range s.seq {
		if x == st {
			n++
		}
	}
	return n
}

func TestReconciler_FollowsChanges(t *testing.T) {
	srv := testutil.NewAPIServer(t)
	ctx := context.Background()

	owner := apiclient.New(srv.URL, nil)
	res, err := owner.Register(ctx, dto.RegisterRequest{Email: "alice@example.com", Username: "alice", Password: "secret1"})
	require.NoError(t, err)
	owner.SetToken(res.AccessToken)

	wl, err := owner.CreateWishlist(ctx, dto.WishlistCreateRequest{Title: "Birthday", IsPublic: ptr(true)})
	require.NoError(t, err)
	book, err := owner.CreateItem(ctx, wl.ID, dto.ItemCreateRequest{Title: "Book"})
	require.NoError(t, err)

	var st states
	r := reconciler.New(apiclient.New(srv.URL, nil), wl.Slug, reconciler.Options{
		ReconnectDelay: 50 * time.Millisecond,
		OnState:        st.add,
	}, zap.NewNop())

	runCtx, cancel := context.WithCancel(ctx)
	done := make(chan error, 1)
	go func() { done <- r.Run(runCtx) }()
	defer func() {
		cancel()
		require.NoError(t, <-done)
	}()

	require.Eventually(t, func() bool { return srv.Hub.SubscriberCount(wl.ID) == 1 }, 2*time.Second, 10*time.Millisecond)

	guest := apiclient.New(srv.URL, nil)
	_, err = guest.Reserve(ctx, book.ID, dto.ReserveRequest{ReserverName: "Bob"})
	require.NoError(t, err)
	require.Eventually(t, func() bool {
		it, ok := r.View().Item(book.ID)
		return ok && it.IsReserved
	}, 2*time.Second, 10*time.Millisecond)

	bike, err := owner.CreateItem(ctx, wl.ID, dto.ItemCreateRequest{Title: "Bike"})
	require.NoError(t, err)
	require.Eventually(t, func() bool {
		_, ok := r.View().Item(bike.ID)
		return ok
	}, 2*time.Second, 10*time.Millisecond)

	require.NoError(t, owner.DeleteItem(ctx, book.ID))
	require.Eventually(t, func() bool {
		_, ok := r.View().Item(book.ID)
		return !ok
	}, 2*time.Second, 10*time.Millisecond)

	require.Equal(t, 1, st.count(reconciler.Connected))
}

func TestReconciler_RunFailsOnMissingWishlist(t *testing.T) {
	srv := testutil.NewAPIServer(t)
	r := reconciler.New(apiclient.New(srv.URL, nil), "missing", reconciler.Options{}, zap.NewNop())
	err := r.Run(context.Background())
	require.True(t, apiclient.IsStatus(err, http.StatusNotFound), "got %v", err)
}

// flakyServer закрывает первые drops соединений сразу после открытия.
func flakyServer(t *testing.T, drops int32) (*httptest.Server, *atomic.Int32) {
	var accepted atomic.Int32
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ws, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer ws.Close()
		if accepted.Add(1) <= drops {
			return
		}
		for {
			if _, _, err := ws.ReadMessage(); err != nil {
				return
			}
		}
	}))
	t.Cleanup(srv.Close)
	return srv, &accepted
}

func TestConn_ReconnectsAfterDrop(t *testing.T) {
	srv, accepted := flakyServer(t, 2)
	url := "ws" + strings.TrimPrefix(srv.URL, "http")

	var st states
	var opens atomic.Int32
	c := reconciler.NewConn(url, 20*time.Millisecond, reconciler.ConnHandlers{
		OnOpen:  func() { opens.Add(1) },
		OnState: st.add,
	}, zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	c.Start(ctx)
	c.Start(ctx)

	require.Eventually(t, func() bool {
		return accepted.Load() == 3 && c.State() == reconciler.Connected
	}, 2*time.Second, 5*time.Millisecond)
	require.Equal(t, int32(3), opens.Load())
	require.Equal(t, 3, st.count(reconciler.Connected))

	c.Stop()
	require.Equal(t, reconciler.Disconnected, c.State())

	time.Sleep(100 * time.Millisecond)
	require.Equal(t, int32(3), accepted.Load(), "no reconnect after Stop")
}

func TestConn_RetriesUnreachableServer(t *testing.T) {
	srv, accepted := flakyServer(t, 0)
	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	srv.Close()

	var st states
	c := reconciler.NewConn(url, 10*time.Millisecond, reconciler.ConnHandlers{OnState: st.add}, zap.NewNop())
	ctx, cancel := context.WithCancel(context.Background())
	c.Start(ctx)

	require.Eventually(t, func() bool { return st.count(reconciler.Connecting) >= 3 }, 2*time.Second, 5*time.Millisecond)
	cancel()
	c.Stop()
	require.Zero(t, accepted.Load())
	require.Zero(t, st.count(reconciler.Connected))
}
