package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"wishlist-service/config"
	_ "wishlist-service/docs"
	"wishlist-service/internal/cache"
	"wishlist-service/internal/events"
	"wishlist-service/internal/hashing"
	"wishlist-service/internal/memstore"
	"wishlist-service/internal/notifier"
	"wishlist-service/internal/producer"
	"wishlist-service/internal/repository"
	"wishlist-service/internal/router"
	"wishlist-service/internal/service"
	"wishlist-service/internal/token"
	"wishlist-service/internal/urlmeta"
	"wishlist-service/pkg/database"
	"wishlist-service/pkg/logger"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"golang.org/x/sync/errgroup"
)

// @Title Wishlist API
// @Version 1.0
// @Description Вишлисты с резервированием подарков, сбором на общий подарок и живыми обновлениями
// @BasePath /
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
func main() {
	_ = godotenv.Load()
	isDev := os.Getenv("ENV") == "development"
	if err := logger.Init(isDev); err != nil {
		panic(err)
	}

	defer logger.Sync()

	log := logger.L()

	cfg := config.Load(log)

	var store service.Store
	switch cfg.Storage {
	case config.StorageMemory:
		log.Warn("Используется хранилище в памяти, данные не сохраняются")
		store = memstore.New()
	default:
		db := database.ConnectDB(&cfg.DB.Config, log)
		defer database.CloseDB(db, log)
		store = repository.New(db)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	g, gctx := errgroup.WithContext(ctx)

	hub := notifier.NewHub(cfg.WS.Buffer, log)
	defer hub.Close()

	var (
		publisher events.Publisher = hub
		sinks     events.Fanout
		limiter   *cache.RedisClient
		shared    urlmeta.SharedCache
		mailer    service.Mailer
	)

	if cfg.Redis.Enabled {
		rdb, err := cache.NewRedisClient(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, log)
		if err != nil {
			log.Fatal("Ошибка подключения к Redis", zap.Error(err))
		}
		defer rdb.Close()

		relay := cache.NewEventRelay(rdb, cfg.Redis.EventsChannel, hub, log)
		g.Go(func() error { return relay.Run(gctx) })

		publisher = relay
		limiter = rdb
		shared = rdb
	}

	if cfg.Kafka.Enabled {
		eventProducer := producer.NewEventProducer(cfg.Kafka.Brokers, cfg.Kafka.TopicEvents)
		defer eventProducer.Close()
		emailProducer := producer.NewEmailProducer(cfg.Kafka.Brokers, cfg.Kafka.TopicEmail, log)
		defer emailProducer.Close()

		// запись в Kafka идёт вне критической секции позиции
		kafkaSink := events.NewAsync("kafka", eventProducer, events.DefaultAsyncBuffer, log)
		defer func() {
			closeCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := kafkaSink.Close(closeCtx); err != nil {
				log.Warn("Не все события отправлены в Kafka", zap.Error(err))
			}
		}()

		sinks = append(sinks, kafkaSink)
		mailer = emailProducer
	}
	if len(sinks) > 0 {
		publisher = append(events.Fanout{publisher}, sinks...)
	}

	authService := service.NewAuthService(
		store.Users(),
		hashing.NewBcrypt(bcrypt.DefaultCost),
		token.NewHSProvider(cfg.JWT.Secret, cfg.JWT.Issuer, cfg.JWT.Audience),
		cfg.JWT.AccessExp,
		log,
	)
	wishlistService := service.NewWishlistService(store, publisher, mailer, log)

	parser, err := urlmeta.NewParser(cfg.URLParser.Timeout, cfg.URLParser.CacheSize, shared, log)
	if err != nil {
		log.Fatal("Ошибка создания парсера ссылок", zap.Error(err))
	}

	deps := router.Deps{
		Auth:        authService,
		Wishlists:   wishlistService,
		Hub:         hub,
		URLParser:   parser,
		RateWindow:  time.Duration(cfg.Redis.RateLimitSeconds) * time.Second,
		CORSOrigins: cfg.CORSOrigins,
	}
	if limiter != nil {
		deps.Limiter = limiter
	}

	srv := &http.Server{
		Addr:              cfg.Port,
		Handler:           router.Router(deps, log),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g.Go(func() error {
		log.Info("HTTP сервер запущен", zap.String("addr", cfg.Port), zap.String("storage", cfg.Storage))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info("Остановка сервера")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		hub.Close()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		log.Error("Сервер остановлен с ошибкой", zap.Error(err))
	}
}
