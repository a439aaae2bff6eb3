package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"wishlist-service/internal/events"
	"wishlist-service/internal/notifier"
	"wishlist-service/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 512
)

type WSHandler struct {
	svc      *service.WishlistService
	hub      *notifier.Hub
	upgrader websocket.Upgrader
	log      *zap.Logger
}

func NewWSHandler(svc *service.WishlistService, hub *notifier.Hub, log *zap.Logger) *WSHandler {
	return &WSHandler{
		svc: svc,
		hub: hub,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// публичный канал без авторизации, origin не проверяем
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		log: log,
	}
}

// Subscribe godoc
// @Summary Живые обновления вишлиста
// @Description WebSocket: сервер присылает события изменения позиций. Для приватного или несуществующего вишлиста соединение закрывается с кодом 1008
// @Tags items
// @Param wishlistId path string true "ID вишлиста"
// @Router /api/items/ws/{wishlistId} [get]
func (h *WSHandler) Subscribe(c *gin.Context) {
	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// Upgrade сам ответил клиенту
		h.log.Warn("websocket upgrade failed", zap.Error(err))
		return
	}

	wishlistID, err := uuid.Parse(c.Param("wishlistId"))
	if err == nil {
		err = h.svc.CheckSubscribable(c.Request.Context(), wishlistID)
	}
	if err != nil {
		closePolicy(conn, "wishlist not found")
		return
	}

	sub := h.hub.Subscribe(wishlistID)
	// доступ мог закрыться между проверкой и подпиской
	if err := h.svc.CheckSubscribable(c.Request.Context(), wishlistID); err != nil {
		h.hub.Unsubscribe(sub)
		closePolicy(conn, "wishlist not found")
		return
	}
	h.log.Debug("subscriber connected",
		zap.String("wishlist_id", wishlistID.String()),
		zap.Uint64("subscriber", sub.ID()))

	go h.writePump(conn, sub)
	h.readPump(conn, sub)
}

func closePolicy(conn *websocket.Conn, reason string) {
	msg := websocket.FormatCloseMessage(websocket.ClosePolicyViolation, reason)
	_ = conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(writeWait))
	_ = conn.Close()
}

// readPump только держит соединение: входящие сообщения игнорируются,
// pong продлевает дедлайн. Выход означает, что клиент ушёл.
func (h *WSHandler) readPump(conn *websocket.Conn, sub *notifier.Subscriber) {
	defer func() {
		h.hub.Unsubscribe(sub)
		_ = conn.Close()
	}()

	conn.SetReadLimit(maxMessageSize)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.log.Debug("websocket read failed", zap.Error(err))
			}
			return
		}
	}
}

func (h *WSHandler) writePump(conn *websocket.Conn, sub *notifier.Subscriber) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = conn.Close()
	}()

	for {
		select {
		case ev := <-sub.Events():
			if err := h.writeEvent(conn, ev); err != nil {
				h.hub.Unsubscribe(sub)
				return
			}
		case <-sub.Done():
			code := websocket.CloseNormalClosure
			switch sub.Reason() {
			case notifier.ReasonSlow:
				code = websocket.CloseTryAgainLater
			case notifier.ReasonRevoked:
				// последнее событие (удаление или закрытие доступа) отдаём до закрытия
				h.flush(conn, sub)
				code = websocket.ClosePolicyViolation
			}
			msg := websocket.FormatCloseMessage(code, string(sub.Reason()))
			_ = conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(writeWait))
			return
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				h.hub.Unsubscribe(sub)
				return
			}
		}
	}
}

func (h *WSHandler) writeEvent(conn *websocket.Conn, ev events.Event) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		h.log.Error("marshal event failed", zap.Error(err))
		return nil
	}
	_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
	return conn.WriteMessage(websocket.TextMessage, payload)
}

func (h *WSHandler) flush(conn *websocket.Conn, sub *notifier.Subscriber) {
	for {
		select {
		case ev := <-sub.Events():
			if err := h.writeEvent(conn, ev); err != nil {
				return
			}
		default:
			return
		}
	}
}
