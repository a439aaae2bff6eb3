package reconciler

import (
	"context"
	"sync"
	"time"

	"wishlist-service/internal/apiclient"
	"wishlist-service/internal/dto"
	"wishlist-service/internal/events"

	"go.uber.org/zap"
)

type Options struct {
	ReconnectDelay time.Duration
	// OnChange получает снимок после каждого изменения локального состояния.
	OnChange func(*dto.WishlistGuestResponse)
	// OnState: индикатор связи.
	OnState func(State)
}

// Reconciler держит View публичного вишлиста в согласии с сервером:
// события патчат его, а после (пере)подключения и по требованию View
// состояние перезагружается целиком.
type Reconciler struct {
	api  *apiclient.Client
	slug string
	opts Options
	log  *zap.Logger

	view *View

	resyncMu sync.Mutex
}

func New(api *apiclient.Client, slug string, opts Options, log *zap.Logger) *Reconciler {
	return &Reconciler{
		api:  api,
		slug: slug,
		opts: opts,
		log:  log,
		view: NewView(),
	}
}

func (r *Reconciler) View() *View { return r.view }

// Resync перезагружает вишлист и заменяет локальное состояние.
func (r *Reconciler) Resync(ctx context.Context) error {
	r.resyncMu.Lock()
	defer r.resyncMu.Unlock()

	w, err := r.api.PublicWishlist(ctx, r.slug)
	if err != nil {
		return err
	}
	r.view.Replace(w)
	r.changed()
	return nil
}

// Run загружает вишлист, подписывается на его события и работает до
// отмены ctx. Ошибка первой загрузки возвращается сразу.
func (r *Reconciler) Run(ctx context.Context) error {
	if err := r.Resync(ctx); err != nil {
		return err
	}
	id, _ := r.view.WishlistID()

	conn := NewConn(r.api.WebSocketURL(id), r.opts.ReconnectDelay, ConnHandlers{
		OnOpen:  func() { r.resync(ctx) },
		OnEvent: func(e events.Event) { r.handle(ctx, e) },
		OnState: r.opts.OnState,
	}, r.log)
	conn.Start(ctx)

	<-ctx.Done()
	conn.Stop()
	return nil
}

func (r *Reconciler) handle(ctx context.Context, e events.Event) {
	if r.view.Apply(e) {
		r.resync(ctx)
		return
	}
	r.changed()
}

func (r *Reconciler) resync(ctx context.Context) {
	if err := r.Resync(ctx); err != nil && ctx.Err() == nil {
		r.log.Warn("resync failed", zap.String("slug", r.slug), zap.Error(err))
	}
}

func (r *Reconciler) changed() {
	if r.opts.OnChange != nil {
		r.opts.OnChange(r.view.Snapshot())
	}
}
