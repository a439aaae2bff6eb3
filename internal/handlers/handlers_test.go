package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"wishlist-service/internal/hashing"
	"wishlist-service/internal/memstore"
	"wishlist-service/internal/notifier"
	"wishlist-service/internal/router"
	"wishlist-service/internal/service"
	"wishlist-service/internal/token"
	"wishlist-service/internal/urlmeta"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

type fakeParser struct {
	md  *urlmeta.Metadata
	err error
}

func (f *fakeParser) Parse(_ context.Context, _ string) (*urlmeta.Metadata, error) {
	return f.md, f.err
}

type app struct {
	t      *testing.T
	engine *gin.Engine
	hub    *notifier.Hub
	parser *fakeParser
}

func newApp(t *testing.T) *app {
	t.Helper()
	gin.SetMode(gin.TestMode)
	log := zap.NewNop()

	store := memstore.New()
	hub := notifier.NewHub(16, log)
	t.Cleanup(hub.Close)

	auth := service.NewAuthService(store.Users(), hashing.NewBcrypt(bcrypt.MinCost),
		token.NewHSProvider("test-secret", "wishlist-service", "wishlist-clients"), time.Hour, log)
	wishlists := service.NewWishlistService(store, hub, nil, log)

	parser := &fakeParser{}
	engine := router.Router(router.Deps{
		Auth:      auth,
		Wishlists: wishlists,
		Hub:       hub,
		URLParser: parser,
	}, log)
	return &app{t: t, engine: engine, hub: hub, parser: parser}
}

// do выполняет запрос; body сериализуется в JSON, если это не строка.
func (a *app) do(method, path, tok string, body any) *httptest.ResponseRecorder {
	a.t.Helper()
	var rdr *bytes.Reader
	switch b := body.(type) {
	case nil:
		rdr = bytes.NewReader(nil)
	case string:
		rdr = bytes.NewReader([]byte(b))
	default:
		raw, err := json.Marshal(b)
		require.NoError(a.t, err)
		rdr = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, rdr)
	req.Header.Set("Content-Type", "application/json")
	if tok != "" {
		req.Header.Set("Authorization", "Bearer "+tok)
	}
	w := httptest.NewRecorder()
	a.engine.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}

func (a *app) register(email, username string) string {
	a.t.Helper()
	w := a.do(http.MethodPost, "/api/auth/register", "", map[string]string{
		"email": email, "username": username, "password": "secret1",
	})
	require.Equal(a.t, http.StatusOK, w.Code, w.Body.String())
	return decode[map[string]any](a.t, w)["access_token"].(string)
}

func (a *app) createWishlist(tok string, public bool) (id, slug string) {
	a.t.Helper()
	w := a.do(http.MethodPost, "/api/wishlists", tok, map[string]any{"title": "Birthday", "is_public": public})
	require.Equal(a.t, http.StatusCreated, w.Code, w.Body.String())
	m := decode[map[string]any](a.t, w)
	return m["id"].(string), m["slug"].(string)
}

func (a *app) createItem(tok, wishlistID string, body map[string]any) string {
	a.t.Helper()
	w := a.do(http.MethodPost, "/api/wishlists/"+wishlistID+"/items", tok, body)
	require.Equal(a.t, http.StatusCreated, w.Code, w.Body.String())
	return decode[map[string]any](a.t, w)["id"].(string)
}

func TestAuthFlow(t *testing.T) {
	a := newApp(t)
	tok := a.register("alice@example.com", "alice")

	w := a.do(http.MethodPost, "/api/auth/register", "", map[string]string{
		"email": "ALICE@example.com", "username": "other", "password": "secret1",
	})
	require.Equal(t, http.StatusConflict, w.Code)

	w = a.do(http.MethodPost, "/api/auth/register", "", map[string]string{
		"email": "bob@example.com", "username": "bob", "password": "123",
	})
	require.Equal(t, http.StatusBadRequest, w.Code)

	form := url.Values{"username": {"alice@example.com"}, "password": {"secret1"}}
	req := httptest.NewRequest(http.MethodPost, "/api/auth/login", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	a.engine.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	w = a.do(http.MethodPost, "/api/auth/login/json", "", map[string]string{
		"email": "alice@example.com", "password": "wrong",
	})
	require.Equal(t, http.StatusUnauthorized, w.Code)

	w = a.do(http.MethodGet, "/api/auth/me", tok, nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, "alice", decode[map[string]any](t, w)["username"])

	require.Equal(t, http.StatusUnauthorized, a.do(http.MethodGet, "/api/auth/me", "", nil).Code)
	require.Equal(t, http.StatusUnauthorized, a.do(http.MethodGet, "/api/auth/me", "garbage", nil).Code)
}

func TestWishlistCRUD(t *testing.T) {
	a := newApp(t)
	alice := a.register("alice@example.com", "alice")
	bob := a.register("bob@example.com", "bob")

	id, _ := a.createWishlist(alice, true)

	w := a.do(http.MethodGet, "/api/wishlists", alice, nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.Len(t, decode[[]map[string]any](t, w), 1)

	require.Equal(t, http.StatusForbidden, a.do(http.MethodGet, "/api/wishlists/"+id, bob, nil).Code)
	require.Equal(t, http.StatusNotFound, a.do(http.MethodGet, "/api/wishlists/not-a-uuid", alice, nil).Code)

	w = a.do(http.MethodPut, "/api/wishlists/"+id, alice, map[string]any{"title": "New year", "event_date": "2026-12-31"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	m := decode[map[string]any](t, w)
	require.Equal(t, "New year", m["title"])
	require.Equal(t, "2026-12-31", m["event_date"])

	w = a.do(http.MethodPut, "/api/wishlists/"+id, alice, map[string]any{"event_date": "31.12.2026"})
	require.Equal(t, http.StatusBadRequest, w.Code)

	require.Equal(t, http.StatusNoContent, a.do(http.MethodDelete, "/api/wishlists/"+id, alice, nil).Code)
	require.Equal(t, http.StatusNotFound, a.do(http.MethodGet, "/api/wishlists/"+id, alice, nil).Code)
}

func TestPublicViewHidesGuests(t *testing.T) {
	a := newApp(t)
	alice := a.register("alice@example.com", "alice")
	id, slug := a.createWishlist(alice, true)
	itemID := a.createItem(alice, id, map[string]any{"title": "Book", "price": 1500})

	w := a.do(http.MethodPost, "/api/items/"+itemID+"/reserve", "", map[string]any{
		"reserver_name": "Bob", "reserver_email": "bob@example.com",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	require.Equal(t, "bob@example.com", decode[map[string]any](t, w)["reserver_email"])

	w = a.do(http.MethodGet, "/api/wishlists/public/"+slug, "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.NotContains(t, w.Body.String(), "bob@example.com")
	require.Contains(t, w.Body.String(), `"reserver_name":"Bob"`)

	// владелец видит только флаг
	w = a.do(http.MethodGet, "/api/wishlists/"+id, alice, nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.NotContains(t, w.Body.String(), "Bob")
	require.Contains(t, w.Body.String(), `"is_reserved":true`)

	require.Equal(t, http.StatusNotFound, a.do(http.MethodGet, "/api/wishlists/public/nope", "", nil).Code)
}

func TestReserveAndCancel(t *testing.T) {
	a := newApp(t)
	alice := a.register("alice@example.com", "alice")
	id, _ := a.createWishlist(alice, true)
	itemID := a.createItem(alice, id, map[string]any{"title": "Book"})
	path := "/api/items/" + itemID + "/reserve"

	require.Equal(t, http.StatusBadRequest, a.do(http.MethodPost, path, "", map[string]any{}).Code)

	w := a.do(http.MethodPost, path, "", map[string]any{"reserver_name": "Bob", "reserver_email": "bob@example.com"})
	require.Equal(t, http.StatusCreated, w.Code)

	w = a.do(http.MethodPost, path, "", map[string]any{"reserver_name": "Carol"})
	require.Equal(t, http.StatusConflict, w.Code)

	w = a.do(http.MethodDelete, path, "", map[string]any{"reserver_email": "carol@example.com"})
	require.Equal(t, http.StatusForbidden, w.Code)
	require.Equal(t, "forbidden", decode[map[string]any](t, w)["code"])

	w = a.do(http.MethodDelete, path, "", map[string]any{"reserver_email": "  BOB@example.com "})
	require.Equal(t, http.StatusNoContent, w.Code)

	require.Equal(t, http.StatusNotFound, a.do(http.MethodDelete, path, alice, nil).Code)

	// владелец снимает чужую бронь без тела
	require.Equal(t, http.StatusCreated, a.do(http.MethodPost, path, "", map[string]any{"reserver_name": "Dan"}).Code)
	require.Equal(t, http.StatusNoContent, a.do(http.MethodDelete, path, alice, nil).Code)
}

func TestContribute(t *testing.T) {
	a := newApp(t)
	alice := a.register("alice@example.com", "alice")
	id, _ := a.createWishlist(alice, true)
	itemID := a.createItem(alice, id, map[string]any{"title": "Bike", "price": 1000, "is_pooling": true})
	path := "/api/items/" + itemID + "/contribute"

	w := a.do(http.MethodPost, path, "", map[string]any{"contributor_name": "Bob", "amount": 300})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	require.EqualValues(t, 300, decode[map[string]any](t, w)["amount"])

	w = a.do(http.MethodPost, path, "", map[string]any{"contributor_name": "Carol", "amount": 800})
	require.Equal(t, http.StatusBadRequest, w.Code)
	m := decode[map[string]any](t, w)
	require.Equal(t, "limit_exceeded", m["code"])
	require.EqualValues(t, 700, m["remaining"])

	w = a.do(http.MethodPost, "/api/items/"+itemID+"/reserve", "", map[string]any{"reserver_name": "Dan"})
	require.Equal(t, http.StatusBadRequest, w.Code)
	require.Equal(t, "invalid_state", decode[map[string]any](t, w)["code"])

	require.Equal(t, http.StatusCreated, a.do(http.MethodPost, path, "", map[string]any{"contributor_name": "Carol", "amount": 700}).Code)

	w = a.do(http.MethodGet, "/api/wishlists/"+id, alice, nil)
	require.Contains(t, w.Body.String(), `"is_funded":true`)
	require.Equal(t, http.StatusBadRequest, a.do(http.MethodDelete, "/api/items/"+itemID, alice, nil).Code)
}

func TestItemUpdateRequiresOwner(t *testing.T) {
	a := newApp(t)
	alice := a.register("alice@example.com", "alice")
	bob := a.register("bob@example.com", "bob")
	id, _ := a.createWishlist(alice, true)
	itemID := a.createItem(alice, id, map[string]any{"title": "Book"})

	require.Equal(t, http.StatusUnauthorized, a.do(http.MethodPut, "/api/items/"+itemID, "", map[string]any{"title": "x"}).Code)
	require.Equal(t, http.StatusForbidden, a.do(http.MethodPut, "/api/items/"+itemID, bob, map[string]any{"title": "x"}).Code)

	w := a.do(http.MethodPut, "/api/items/"+itemID, alice, map[string]any{"title": "Novel", "priority": 2})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	m := decode[map[string]any](t, w)
	require.Equal(t, "Novel", m["title"])
	require.EqualValues(t, 2, m["priority"])

	require.Equal(t, http.StatusNoContent, a.do(http.MethodDelete, "/api/items/"+itemID, alice, nil).Code)
}

func TestURLParse(t *testing.T) {
	a := newApp(t)
	title := "Kindle"
	a.parser.md = &urlmeta.Metadata{Title: &title}

	w := a.do(http.MethodPost, "/api/url/parse", "", `"https://shop.example/kindle"`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	require.Equal(t, "Kindle", decode[map[string]any](t, w)["title"])

	w = a.do(http.MethodPost, "/api/url/parse", "", map[string]string{"url": "https://shop.example/kindle"})
	require.Equal(t, http.StatusOK, w.Code)

	require.Equal(t, http.StatusBadRequest, a.do(http.MethodPost, "/api/url/parse", "", "").Code)

	a.parser.md, a.parser.err = nil, urlmeta.ErrTimeout
	require.Equal(t, http.StatusRequestTimeout, a.do(http.MethodPost, "/api/url/parse", "", `"https://slow.example"`).Code)

	a.parser.err = urlmeta.ErrInvalidURL
	require.Equal(t, http.StatusBadRequest, a.do(http.MethodPost, "/api/url/parse", "", `"ftp://x"`).Code)

	a.parser.err = urlmeta.ErrBlockedAddress
	w = a.do(http.MethodPost, "/api/url/parse", "", `"http://127.0.0.1/admin"`)
	require.Equal(t, http.StatusBadRequest, w.Code)
	require.Equal(t, "url not allowed", decode[map[string]any](t, w)["message"])
}

func TestHealth(t *testing.T) {
	a := newApp(t)
	w := a.do(http.MethodGet, "/health", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.JSONEq(t, `{"status":"healthy"}`, w.Body.String())
}

func wsURL(srv *httptest.Server, wishlistID string) string {
	return "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/items/ws/" + wishlistID
}

func TestWebSocket_PrivateWishlistClosed(t *testing.T) {
	a := newApp(t)
	alice := a.register("alice@example.com", "alice")
	id, _ := a.createWishlist(alice, false)

	srv := httptest.NewServer(a.engine)
	defer srv.Close()

	for _, target := range []string{id, "not-a-uuid"} {
		conn, _, err := websocket.DefaultDialer.Dial(wsURL(srv, target), nil)
		require.NoError(t, err)
		_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
		_, _, err = conn.ReadMessage()
		require.True(t, websocket.IsCloseError(err, websocket.ClosePolicyViolation), "got %v", err)
		_ = conn.Close()
	}
}

func TestWebSocket_ReceivesReservation(t *testing.T) {
	a := newApp(t)
	alice := a.register("alice@example.com", "alice")
	id, _ := a.createWishlist(alice, true)
	itemID := a.createItem(alice, id, map[string]any{"title": "Book"})

	srv := httptest.NewServer(a.engine)
	defer srv.Close()

	conn, _, err := websocket.DefaultDialer.Dial(wsURL(srv, id), nil)
	require.NoError(t, err)
	defer conn.Close()

	wid := uuidMust(t, id)
	require.Eventually(t, func() bool { return a.hub.SubscriberCount(wid) == 1 }, 2*time.Second, 10*time.Millisecond)

	w := a.do(http.MethodPost, "/api/items/"+itemID+"/reserve", "", map[string]any{
		"reserver_name": "Bob", "reserver_email": "bob@example.com",
	})
	require.Equal(t, http.StatusCreated, w.Code)

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, raw, err := conn.ReadMessage()
	require.NoError(t, err)
	require.NotContains(t, string(raw), "Bob")
	require.NotContains(t, string(raw), "bob@example.com")

	var ev struct {
		Type   string `json:"type"`
		ItemID string `json:"item_id"`
		Data   struct {
			IsReserved *bool `json:"is_reserved"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(raw, &ev))
	require.Equal(t, "reservation", ev.Type)
	require.Equal(t, itemID, ev.ItemID)
	require.NotNil(t, ev.Data.IsReserved)
	require.True(t, *ev.Data.IsReserved)
}

func TestWebSocket_FundedEventMatchesPublicView(t *testing.T) {
	a := newApp(t)
	alice := a.register("alice@example.com", "alice")
	id, slug := a.createWishlist(alice, true)
	itemID := a.createItem(alice, id, map[string]any{"title": "Bike", "price": 1000, "is_pooling": true})

	srv := httptest.NewServer(a.engine)
	defer srv.Close()

	conn, _, err := websocket.DefaultDialer.Dial(wsURL(srv, id), nil)
	require.NoError(t, err)
	defer conn.Close()
	wid := uuidMust(t, id)
	require.Eventually(t, func() bool { return a.hub.SubscriberCount(wid) == 1 }, 2*time.Second, 10*time.Millisecond)

	w := a.do(http.MethodPost, "/api/items/"+itemID+"/contribute", "", map[string]any{"contributor_name": "Bob", "amount": 1000})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var ev struct {
		Type string `json:"type"`
		Data struct {
			IsReserved *bool `json:"is_reserved"`
			IsFunded   *bool `json:"is_funded"`
		} `json:"data"`
	}
	require.NoError(t, conn.ReadJSON(&ev))
	require.Equal(t, "contribution", ev.Type)
	require.NotNil(t, ev.Data.IsReserved)
	require.NotNil(t, ev.Data.IsFunded)

	type itemFlags struct {
		ID         string `json:"id"`
		IsReserved bool   `json:"is_reserved"`
		IsFunded   bool   `json:"is_funded"`
	}
	w = a.do(http.MethodGet, "/api/wishlists/public/"+slug, "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	guest := decode[struct {
		Items []itemFlags `json:"items"`
	}](t, w)
	require.Len(t, guest.Items, 1)
	require.Equal(t, *ev.Data.IsReserved, guest.Items[0].IsReserved)
	require.Equal(t, *ev.Data.IsFunded, guest.Items[0].IsFunded)
	require.True(t, guest.Items[0].IsReserved)

	w = a.do(http.MethodGet, "/api/wishlists/"+id, alice, nil)
	owner := decode[struct {
		Items []itemFlags `json:"items"`
	}](t, w)
	require.Len(t, owner.Items, 1)
	require.True(t, owner.Items[0].IsReserved)
}

func TestWebSocket_ClosedWhenWishlistBecomesPrivate(t *testing.T) {
	a := newApp(t)
	alice := a.register("alice@example.com", "alice")
	id, _ := a.createWishlist(alice, true)

	srv := httptest.NewServer(a.engine)
	defer srv.Close()

	conn, _, err := websocket.DefaultDialer.Dial(wsURL(srv, id), nil)
	require.NoError(t, err)
	defer conn.Close()
	wid := uuidMust(t, id)
	require.Eventually(t, func() bool { return a.hub.SubscriberCount(wid) == 1 }, 2*time.Second, 10*time.Millisecond)

	w := a.do(http.MethodPut, "/api/wishlists/"+id, alice, map[string]any{"is_public": false})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var ev struct {
		Type string `json:"type"`
	}
	require.NoError(t, conn.ReadJSON(&ev))
	require.Equal(t, "wishlist_updated", ev.Type)

	_, _, err = conn.ReadMessage()
	require.True(t, websocket.IsCloseError(err, websocket.ClosePolicyViolation), "got %v", err)
	require.Eventually(t, func() bool { return a.hub.SubscriberCount(wid) == 0 }, 2*time.Second, 10*time.Millisecond)
}

func uuidMust(t *testing.T, s string) uuid.UUID {
	t.Helper()
	id, err := uuid.Parse(s)
	require.NoError(t, err)
	return id
}
