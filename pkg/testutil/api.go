package testutil

import (
	"net/http/httptest"
	"testing"
	"time"

	"wishlist-service/internal/hashing"
	"wishlist-service/internal/memstore"
	"wishlist-service/internal/notifier"
	"wishlist-service/internal/router"
	"wishlist-service/internal/service"
	"wishlist-service/internal/token"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

// APIServer: полный HTTP-сервер на memstore для клиентских тестов.
type APIServer struct {
	*httptest.Server
	Hub *notifier.Hub
}

func NewAPIServer(t *testing.T) *APIServer {
	t.Helper()
	gin.SetMode(gin.TestMode)
	log := zap.NewNop()

	store := memstore.New()
	hub := notifier.NewHub(64, log)

	auth := service.NewAuthService(store.Users(), hashing.NewBcrypt(bcrypt.MinCost),
		token.NewHSProvider("test-secret", "wishlist-service", "wishlist-clients"), time.Hour, log)
	wishlists := service.NewWishlistService(store, hub, nil, log)

	srv := httptest.NewServer(router.Router(router.Deps{
		Auth:      auth,
		Wishlists: wishlists,
		Hub:       hub,
	}, log))
	t.Cleanup(func() {
		hub.Close()
		srv.Close()
	})
	return &APIServer{Server: srv, Hub: hub}
}
