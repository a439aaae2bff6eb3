package reconciler

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"wishlist-service/internal/events"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// DefaultReconnectDelay: пауза перед повторным подключением.
const DefaultReconnectDelay = 3 * time.Second

type State int

const (
	Disconnected State = iota
	Connecting
	Connected
)

func (s State) String() string {
	switch s {
	case Disconnected:
		return "disconnected"
	case Connecting:
		return "connecting"
	case Connected:
		return "connected"
	}
	return "unknown"
}

// ConnHandlers вызываются из горутины чтения последовательно: OnOpen
// всегда раньше событий нового соединения.
type ConnHandlers struct {
	OnOpen  func()
	OnEvent func(events.Event)
	OnState func(State)
}

// Conn держит WebSocket-подписку и переподключается с фиксированной паузой.
// Таймер переподключения один: повторное планирование игнорируется.
type Conn struct {
	url      string
	delay    time.Duration
	dialer   *websocket.Dialer
	handlers ConnHandlers
	log      *zap.Logger

	mu      sync.Mutex
	ctx     context.Context
	state   State
	ws      *websocket.Conn
	timer   *time.Timer
	started bool
	stopped bool
}

func NewConn(url string, delay time.Duration, h ConnHandlers, log *zap.Logger) *Conn {
	if delay <= 0 {
		delay = DefaultReconnectDelay
	}
	return &Conn{
		url:      url,
		delay:    delay,
		dialer:   websocket.DefaultDialer,
		handlers: h,
		log:      log,
	}
}

func (c *Conn) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Start запускает первое подключение; повторный вызов ничего не делает.
func (c *Conn) Start(ctx context.Context) {
	c.mu.Lock()
	if c.started || c.stopped {
		c.mu.Unlock()
		return
	}
	c.started = true
	c.ctx = ctx
	c.mu.Unlock()

	c.setState(Connecting)
	go c.connect()
}

// Stop закрывает соединение и отменяет запланированное переподключение.
func (c *Conn) Stop() {
	c.mu.Lock()
	if c.stopped {
		c.mu.Unlock()
		return
	}
	c.stopped = true
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
	ws := c.ws
	c.ws = nil
	c.mu.Unlock()

	if ws != nil {
		_ = ws.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(time.Second))
		_ = ws.Close()
	}
	c.setState(Disconnected)
}

func (c *Conn) connect() {
	ws, _, err := c.dialer.DialContext(c.ctx, c.url, nil)
	if err != nil {
		c.log.Debug("websocket dial failed", zap.String("url", c.url), zap.Error(err))
		c.disconnected()
		return
	}

	c.mu.Lock()
	if c.stopped {
		c.mu.Unlock()
		_ = ws.Close()
		c.setState(Disconnected)
		return
	}
	c.ws = ws
	c.mu.Unlock()

	c.setState(Connected)
	if c.handlers.OnOpen != nil {
		c.handlers.OnOpen()
	}
	c.readLoop(ws)
}

func (c *Conn) readLoop(ws *websocket.Conn) {
	for {
		_, raw, err := ws.ReadMessage()
		if err != nil {
			if websocket.IsCloseError(err, websocket.ClosePolicyViolation) {
				c.log.Warn("subscription rejected", zap.String("url", c.url), zap.Error(err))
			} else {
				c.log.Debug("websocket read failed", zap.Error(err))
			}
			_ = ws.Close()
			c.mu.Lock()
			if c.ws == ws {
				c.ws = nil
			}
			c.mu.Unlock()
			c.disconnected()
			return
		}

		var e events.Event
		if err := json.Unmarshal(raw, &e); err != nil {
			c.log.Warn("invalid event", zap.ByteString("raw", raw), zap.Error(err))
			continue
		}
		if c.handlers.OnEvent != nil {
			c.handlers.OnEvent(e)
		}
	}
}

func (c *Conn) disconnected() {
	c.setState(Disconnected)
	c.scheduleReconnect()
}

func (c *Conn) scheduleReconnect() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.stopped || c.timer != nil || c.ctx.Err() != nil {
		return
	}
	c.timer = time.AfterFunc(c.delay, func() {
		c.mu.Lock()
		c.timer = nil
		stop := c.stopped || c.ctx.Err() != nil
		c.mu.Unlock()
		if stop {
			return
		}
		c.setState(Connecting)
		c.connect()
	})
}

func (c *Conn) setState(s State) {
	c.mu.Lock()
	if c.state == s {
		c.mu.Unlock()
		return
	}
	c.state = s
	c.mu.Unlock()

	if c.handlers.OnState != nil {
		c.handlers.OnState(s)
	}
}
