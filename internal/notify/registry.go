package notify

import (
	"errors"
	"io"
	"sync"

	"taskHub/internal/logger"

	"go.uber.org/zap"
)

var (
	ErrQueueFull     = errors.New("очередь отправки переполнена")
	ErrChannelClosed = errors.New("канал закрыт")
)

// Message - кадр сервер -> клиент
type Message struct {
	Event   string `json:"event"`
	Payload any    `json:"payload,omitempty"`
}

// Channel - живое соединение клиента. Send не должен блокироваться надолго.
// Если канал реализует io.Closer, CloseAll закрывает его при остановке
type Channel interface {
	ID() string
	Send(Message) error
}

// Registry хранит подключенные каналы и комнаты пользователей.
// Канал состоит не более чем в одной комнате, у пользователя может быть несколько каналов
type Registry struct {
	mtx      sync.RWMutex
	channels map[string]Channel
	rooms    map[string]map[string]struct{}
	members  map[string]string
}

func NewRegistry() *Registry {
	return &Registry{
		channels: make(map[string]Channel),
		rooms:    make(map[string]map[string]struct{}),
		members:  make(map[string]string),
	}
}

// Connect делает канал доступным для широковещательной рассылки
func (r *Registry) Connect(ch Channel) {
	r.mtx.Lock()
	defer r.mtx.Unlock()

	r.channels[ch.ID()] = ch
	logger.Debug("Notify: Клиент подключен", zap.String("channel_id", ch.ID()))
}

// Join добавляет канал в комнату пользователя, повторный вызов ничего не меняет.
// Канал из чужой комнаты переезжает
func (r *Registry) Join(userID string, ch Channel) {
	r.mtx.Lock()
	defer r.mtx.Unlock()

	id := ch.ID()
	r.channels[id] = ch

	if current, ok := r.members[id]; ok {
		if current == userID {
			return
		}
		r.leaveLocked(id)
	}

	room, ok := r.rooms[userID]
	if !ok {
		room = make(map[string]struct{})
		r.rooms[userID] = room
	}
	room[id] = struct{}{}
	r.members[id] = userID

	logger.Debug("Notify: Клиент вошёл в комнату",
		zap.String("channel_id", id),
		zap.String("user_id", userID))
}

// Leave убирает канал из комнаты, для рассылки он остаётся подключенным
func (r *Registry) Leave(ch Channel) {
	r.mtx.Lock()
	defer r.mtx.Unlock()

	r.leaveLocked(ch.ID())
}

// Disconnect вызывается при закрытии канала
func (r *Registry) Disconnect(ch Channel) {
	r.mtx.Lock()
	defer r.mtx.Unlock()

	id := ch.ID()
	r.leaveLocked(id)
	delete(r.channels, id)
	logger.Debug("Notify: Клиент отключен", zap.String("channel_id", id))
}

func (r *Registry) leaveLocked(id string) {
	userID, ok := r.members[id]
	if !ok {
		return
	}
	delete(r.members, id)

	if room, ok := r.rooms[userID]; ok {
		delete(room, id)
		if len(room) == 0 {
			delete(r.rooms, userID)
		}
	}
}

// Notify доставляет событие во все каналы комнаты пользователя.
// Нет каналов - событие молча теряется
func (r *Registry) Notify(userID string, event string, payload any) {
	r.mtx.RLock()
	room := r.rooms[userID]
	targets := make([]Channel, 0, len(room))
	for id := range room {
		targets = append(targets, r.channels[id])
	}
	r.mtx.RUnlock()

	r.deliver(targets, Message{Event: event, Payload: payload})
}

func (r *Registry) Broadcast(event string, payload any) {
	r.mtx.RLock()
	targets := make([]Channel, 0, len(r.channels))
	for _, ch := range r.channels {
		targets = append(targets, ch)
	}
	r.mtx.RUnlock()

	r.deliver(targets, Message{Event: event, Payload: payload})
}

// ошибки отправки не поднимаются выше: доставка best-effort
func (r *Registry) deliver(targets []Channel, msg Message) {
	for _, ch := range targets {
		if err := ch.Send(msg); err != nil {
			logger.Warn("Notify: Не удалось отправить событие",
				zap.String("channel_id", ch.ID()),
				zap.String("event", msg.Event),
				zap.Error(err))
		}
	}
}

// CloseAll отключает все каналы. Вызывается при остановке сервера: перехваченные
// WebSocket соединения http.Server.Shutdown не закрывает
func (r *Registry) CloseAll() int {
	r.mtx.Lock()
	targets := make([]Channel, 0, len(r.channels))
	for _, ch := range r.channels {
		targets = append(targets, ch)
	}
	r.channels = make(map[string]Channel)
	r.rooms = make(map[string]map[string]struct{})
	r.members = make(map[string]string)
	r.mtx.Unlock()

	for _, ch := range targets {
		closer, ok := ch.(io.Closer)
		if !ok {
			continue
		}
		if err := closer.Close(); err != nil {
			logger.Debug("Notify: Ошибка закрытия канала", zap.String("channel_id", ch.ID()), zap.Error(err))
		}
	}

	logger.Info("Notify: Все клиенты отключены", zap.Int("clients", len(targets)))
	return len(targets)
}

func (r *Registry) ClientCount() int {
	r.mtx.RLock()
	defer r.mtx.RUnlock()
	return len(r.channels)
}

func (r *Registry) RoomSize(userID string) int {
	r.mtx.RLock()
	defer r.mtx.RUnlock()
	return len(r.rooms[userID])
}
