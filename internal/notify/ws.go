package notify

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"taskHub/internal/logger"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const maxFrameSize = 4096

// клиент -> сервер: {"type":"join","user_id":"..."} или {"type":"leave"}
type clientFrame struct {
	Type   string `json:"type"`
	UserID string `json:"user_id"`
}

type Options struct {
	SendBuffer   int
	WriteTimeout time.Duration
	PingInterval time.Duration
	// Identity возвращает пользователя из запроса, если он уже известен (например по токену).
	// Такой канал сразу входит в комнату и не может войти в чужую
	Identity func(*http.Request) string
}

func (o Options) withDefaults() Options {
	if o.SendBuffer <= 0 {
		o.SendBuffer = 64
	}
	if o.WriteTimeout <= 0 {
		o.WriteTimeout = 10 * time.Second
	}
	if o.PingInterval <= 0 {
		o.PingInterval = 30 * time.Second
	}
	return o
}

// WSChannel - канал поверх gorilla/websocket с очередью отправки и отдельным писателем
type WSChannel struct {
	id     string
	conn   *websocket.Conn
	send   chan []byte
	done   chan struct{}
	once   sync.Once
	opts   Options
	locked string
}

func (c *WSChannel) ID() string {
	return c.id
}

// Send кладёт кадр в очередь и не ждёт сеть, переполненная очередь теряет кадр
func (c *WSChannel) Send(msg Message) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return err
	}

	select {
	case <-c.done:
		return ErrChannelClosed
	default:
	}

	select {
	case c.send <- data:
		return nil
	default:
		return ErrQueueFull
	}
}

// Close отправляет клиенту кадр закрытия и рвёт соединение, пампы завершаются сами
func (c *WSChannel) Close() error {
	c.once.Do(func() {
		_ = c.conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, "сервер останавливается"),
			time.Now().Add(c.opts.WriteTimeout))
		close(c.done)
		_ = c.conn.Close()
	})
	return nil
}

func (c *WSChannel) close() {
	c.once.Do(func() {
		close(c.done)
		_ = c.conn.Close()
	})
}

func (c *WSChannel) writePump() {
	ticker := time.NewTicker(c.opts.PingInterval)
	defer func() {
		ticker.Stop()
		c.close()
	}()

	for {
		select {
		case data := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(c.opts.WriteTimeout))
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				logger.Debug("Notify: Ошибка записи в сокет", zap.String("channel_id", c.id), zap.Error(err))
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(c.opts.WriteTimeout))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-c.done:
			_ = c.conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				time.Now().Add(c.opts.WriteTimeout))
			return
		}
	}
}

func (c *WSChannel) readPump(registry *Registry) {
	defer func() {
		registry.Disconnect(c)
		c.close()
	}()

	pongWait := c.opts.PingInterval * 2
	c.conn.SetReadLimit(maxFrameSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				logger.Warn("Notify: Соединение оборвано", zap.String("channel_id", c.id), zap.Error(err))
			}
			return
		}
		_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))

		var frame clientFrame
		if err := json.Unmarshal(data, &frame); err != nil {
			logger.Warn("Notify: Некорректный кадр от клиента", zap.String("channel_id", c.id), zap.Error(err))
			continue
		}

		switch frame.Type {
		case "join":
			if frame.UserID == "" {
				continue
			}
			if c.locked != "" && frame.UserID != c.locked {
				logger.Warn("Notify: Попытка войти в чужую комнату",
					zap.String("channel_id", c.id),
					zap.String("user_id", c.locked),
					zap.String("requested", frame.UserID))
				continue
			}
			registry.Join(frame.UserID, c)
		case "leave":
			if c.locked == "" {
				registry.Leave(c)
			}
		default:
			logger.Debug("Notify: Неизвестный тип кадра", zap.String("type", frame.Type))
		}
	}
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// Handler поднимает WebSocket и регистрирует канал в реестре
func Handler(registry *Registry, opts Options) http.HandlerFunc {
	opts = opts.withDefaults()

	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			logger.Warn("Notify: Не удалось открыть WebSocket", zap.Error(err))
			return
		}

		ch := &WSChannel{
			id:   uuid.NewString(),
			conn: conn,
			send: make(chan []byte, opts.SendBuffer),
			done: make(chan struct{}),
			opts: opts,
		}
		if opts.Identity != nil {
			ch.locked = opts.Identity(r)
		}

		registry.Connect(ch)
		if ch.locked != "" {
			registry.Join(ch.locked, ch)
		}

		go ch.writePump()
		ch.readPump(registry)
	}
}
