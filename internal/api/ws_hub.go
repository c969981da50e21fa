package api

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/Chaitanya-pati/wheatflow-agro/internal/services"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// Hub управляет WebSocket соединениями операторских экранов
// (напоминания об очистке, тики и завершение таймеров)
type Hub struct {
	clients   map[*websocket.Conn]bool
	broadcast chan []byte
	mutex     sync.RWMutex
	log       *zap.Logger
}

func NewHub(log *zap.Logger) *Hub {
	if log == nil {
		log = zap.NewNop()
	}
	return &Hub{
		clients:   make(map[*websocket.Conn]bool),
		broadcast: make(chan []byte, 256), // Буферизованный канал, тики не должны блокировать таймеры
		log:       log,
	}
}

// Run рассылает сообщения клиентам до отмены контекста
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			h.closeAll()
			return
		case msg := <-h.broadcast:
			h.send(msg)
		}
	}
}

func (h *Hub) send(msg []byte) {
	h.mutex.RLock()
	var failed []*websocket.Conn
	for client := range h.clients {
		if err := client.WriteMessage(websocket.TextMessage, msg); err != nil {
			failed = append(failed, client)
		}
	}
	h.mutex.RUnlock()

	// Удаляем клиентов с ошибкой записи
	for _, client := range failed {
		h.RemoveClient(client)
	}
}

func (h *Hub) closeAll() {
	h.mutex.Lock()
	defer h.mutex.Unlock()
	for client := range h.clients {
		client.Close()
		delete(h.clients, client)
	}
}

func (h *Hub) AddClient(conn *websocket.Conn) {
	h.mutex.Lock()
	h.clients[conn] = true
	h.mutex.Unlock()
}

func (h *Hub) RemoveClient(conn *websocket.Conn) {
	h.mutex.Lock()
	if _, ok := h.clients[conn]; ok {
		delete(h.clients, conn)
		conn.Close()
	}
	h.mutex.Unlock()
}

// BroadcastMessage ставит сообщение в очередь; при переполнении сообщение пропускается
func (h *Hub) BroadcastMessage(message []byte) bool {
	select {
	case h.broadcast <- message:
		return true
	default:
		return false
	}
}

// Publish реализует services.EventPublisher
func (h *Hub) Publish(_ context.Context, event services.Event) error {
	data, err := json.Marshal(event)
	if err != nil {
		return err
	}
	if !h.BroadcastMessage(data) {
		h.log.Debug("ws hub: очередь переполнена, событие пропущено", zap.String("type", event.Type))
	}
	return nil
}

func (h *Hub) GetClientsCount() int {
	h.mutex.RLock()
	defer h.mutex.RUnlock()
	return len(h.clients)
}
