package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		// Экраны цеха открываются с разных хостов внутренней сети
		return true
	},
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
}

// ServeWS подключает операторский экран к потоку событий производства
// GET /api/v1/production/ws
func (h *Hub) ServeWS(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Warn("ws: ошибка обновления соединения", zap.Error(err))
		return
	}

	h.AddClient(conn)
	h.log.Info("ws: экран подключен", zap.Int("clients", h.GetClientsCount()))

	defer func() {
		h.RemoveClient(conn)
		h.log.Info("ws: экран отключен", zap.Int("clients", h.GetClientsCount()))
	}()

	// Читаем только для обнаружения закрытия (ping/pong)
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				h.log.Warn("ws: ошибка соединения", zap.Error(err))
			}
			break
		}
	}
}
