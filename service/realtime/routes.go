package realtime

import (
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = 54 * time.Second
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

type WebSocketHandler struct {
	hub    *Hub
	logger *zap.Logger
}

func NewWebSocketHandler(hub *Hub, logger *zap.Logger) *WebSocketHandler {
	return &WebSocketHandler{hub: hub, logger: logger}
}

func (h *WebSocketHandler) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/ws/changes", h.Subscribe)
}

// Subscribe upgrades the connection and streams change events for the
// requested tables (?tables=appointments,messages). Without the parameter
// the subscriber receives every table. Reconnecting and resubscribing after
// a drop is the client's responsibility.
func (h *WebSocketHandler) Subscribe(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}

	tables := make(map[string]bool)
	if param := r.URL.Query().Get("tables"); param != "" {
		for _, table := range strings.Split(param, ",") {
			if table = strings.TrimSpace(table); table != "" {
				tables[table] = true
			}
		}
	}

	sub := &subscriber{
		send:   make(chan []byte, 16),
		tables: tables,
	}
	h.hub.register(sub)

	go h.writePump(conn, sub)
	h.readPump(conn, sub)
}

// readPump discards inbound frames; it exists to notice closes and pongs.
func (h *WebSocketHandler) readPump(conn *websocket.Conn, sub *subscriber) {
	defer func() {
		h.hub.unregister(sub)
		conn.Close()
	}()

	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				h.logger.Debug("websocket closed", zap.Error(err))
			}
			return
		}
	}
}

func (h *WebSocketHandler) writePump(conn *websocket.Conn, sub *subscriber) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		conn.Close()
	}()

	for {
		select {
		case message, ok := <-sub.send:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
