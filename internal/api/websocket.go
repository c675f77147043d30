package api

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// Hub maintains the set of subscribed /api/v1/stream clients and
// fans out fact_committed and peer_sync_result events as they occur.
type Hub struct {
	clients   map[*websocket.Conn]bool
	broadcast chan []byte
	mutex     sync.Mutex
	log       *logrus.Entry
}

func NewHub(log *logrus.Logger) *Hub {
	return &Hub{
		broadcast: make(chan []byte, 256),
		clients:   make(map[*websocket.Conn]bool),
		log:       log.WithField("component", "api.hub"),
	}
}

func (h *Hub) Run() {
	for message := range h.broadcast {
		h.mutex.Lock()
		for client := range h.clients {
			_ = client.SetWriteDeadline(time.Now().Add(5 * time.Second))
			if err := client.WriteMessage(websocket.TextMessage, message); err != nil {
				h.log.WithError(err).Debug("websocket write failed")
				client.Close()
				delete(h.clients, client)
			}
		}
		h.mutex.Unlock()
	}
}

// Subscribe upgrades the request to a websocket connection and
// registers it for broadcast.
func (h *Hub) Subscribe(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.WithError(err).Warn("websocket upgrade failed")
		return
	}

	h.mutex.Lock()
	h.clients[conn] = true
	n := len(h.clients)
	h.mutex.Unlock()
	h.log.WithField("clients", n).Debug("stream client connected")

	go func() {
		defer func() {
			h.mutex.Lock()
			delete(h.clients, conn)
			n := len(h.clients)
			h.mutex.Unlock()
			conn.Close()
			h.log.WithField("clients", n).Debug("stream client disconnected")
		}()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
					h.log.WithError(err).Debug("websocket read error")
				}
				break
			}
		}
	}()
}

// Broadcast sends raw bytes to every connected client.
func (h *Hub) Broadcast(data []byte) {
	h.broadcast <- data
}

// BroadcastEvent marshals {type, ...fields} and broadcasts it. Errors
// marshaling are swallowed; a stream client missing one event is not
// worth failing the caller's own operation (chain commit, peer sync).
func (h *Hub) BroadcastEvent(eventType string, payload interface{}) {
	envelope := gin.H{"type": eventType, "payload": payload}
	data, err := json.Marshal(envelope)
	if err != nil {
		h.log.WithError(err).Warn("failed to marshal stream event")
		return
	}
	h.Broadcast(data)
}
