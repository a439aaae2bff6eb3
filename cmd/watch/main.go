// Команда watch следит за публичным вишлистом и печатает изменения.
//
//	watch -api http://localhost:8000 <slug>
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"wishlist-service/internal/apiclient"
	"wishlist-service/internal/dto"
	"wishlist-service/internal/reconciler"
	"wishlist-service/pkg/logger"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

func main() {
	_ = godotenv.Load()
	apiURL := flag.String("api", envDefault("API_URL", "http://localhost:8000"), "адрес API")
	delay := flag.Duration("reconnect", reconciler.DefaultReconnectDelay, "пауза перед переподключением")
	flag.Parse()

	if flag.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "Usage: watch [-api URL] [-reconnect 3s] <slug>")
		os.Exit(2)
	}
	slug := flag.Arg(0)

	isDev := os.Getenv("ENV") == "development"
	if err := logger.Init(isDev); err != nil {
		panic(err)
	}

	defer logger.Sync()

	log := logger.L()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	r := reconciler.New(apiclient.New(*apiURL, nil), slug, reconciler.Options{
		ReconnectDelay: *delay,
		OnState: func(s reconciler.State) {
			log.Info("connection", zap.Stringer("state", s))
		},
		OnChange: func(w *dto.WishlistGuestResponse) {
			printWishlist(w)
		},
	}, log)

	if err := r.Run(ctx); err != nil {
		log.Fatal("watch failed", zap.String("slug", slug), zap.Error(err))
	}
}

func printWishlist(w *dto.WishlistGuestResponse) {
	if w == nil {
		return
	}
	fmt.Printf("== %s (%d)\n", w.Title, len(w.Items))
	for _, it := range w.Items {
		status := "свободен"
		switch {
		case it.IsPooling && it.TotalContributed != nil && it.Price != nil:
			status = fmt.Sprintf("собрано %.2f из %.2f %s", *it.TotalContributed, *it.Price, it.Currency)
		case it.IsReserved:
			status = "забронирован"
		}
		fmt.Printf("  - %s: %s\n", it.Title, status)
	}
}

func envDefault(key, def string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return def
}
