package server

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

const (
	wsWriteWait    = 10 * time.Second
	wsPingInterval = 30 * time.Second
	wsSendBuffer   = 16
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// wsMessage is the envelope of every frame pushed to a client.
type wsMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// marshalPayload encodes v for a frame. A value that cannot be encoded
// becomes a null payload, so the frame type still reaches the client.
func marshalPayload(v any) json.RawMessage {
	data, err := json.Marshal(v)
	if err != nil {
		return json.RawMessage("null")
	}
	return data
}

// Hub fans game updates out to the websocket clients watching each game.
type Hub struct {
	mu      sync.Mutex
	clients map[string]map[*wsClient]struct{}
	log     zerolog.Logger
}

type wsClient struct {
	gameID string
	conn   *websocket.Conn
	send   chan []byte
}

func NewHub(log zerolog.Logger) *Hub {
	return &Hub{clients: make(map[string]map[*wsClient]struct{}), log: log}
}

// Publish queues msgType/payload for every client of gameID. Slow clients
// drop messages rather than block the game.
func (h *Hub) Publish(gameID, msgType string, payload any) {
	data, err := json.Marshal(wsMessage{Type: msgType, Payload: marshalPayload(payload)})
	if err != nil {
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients[gameID] {
		select {
		case c.send <- data:
		default:
			h.log.Warn().Str("game", gameID).Msg("websocket client too slow, dropping update")
		}
	}
}

// Watchers is the number of clients following gameID.
func (h *Hub) Watchers(gameID string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients[gameID])
}

func (h *Hub) register(c *wsClient) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.clients[c.gameID] == nil {
		h.clients[c.gameID] = make(map[*wsClient]struct{})
	}
	h.clients[c.gameID][c] = struct{}{}
}

func (h *Hub) unregister(c *wsClient) {
	h.mu.Lock()
	defer h.mu.Unlock()
	set := h.clients[c.gameID]
	if _, ok := set[c]; !ok {
		return
	}
	delete(set, c)
	close(c.send)
	if len(set) == 0 {
		delete(h.clients, c.gameID)
	}
}

// Serve upgrades the request and streams updates for g until the client
// goes away. The first frame is the current state.
func (h *Hub) Serve(w http.ResponseWriter, r *http.Request, g *Game) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Debug().Err(err).Msg("websocket upgrade failed")
		return
	}
	c := &wsClient{gameID: g.ID, conn: conn, send: make(chan []byte, wsSendBuffer)}
	h.register(c)
	c.queue("state", g.View())

	go c.writePump()
	c.readPump()
	h.unregister(c)
}

// Close drops every client. Hijacked connections are not covered by
// http.Server.Shutdown.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, set := range h.clients {
		for c := range set {
			c.conn.Close()
		}
	}
}

func (c *wsClient) queue(msgType string, payload any) {
	data, err := json.Marshal(wsMessage{Type: msgType, Payload: marshalPayload(payload)})
	if err != nil {
		return
	}
	select {
	case c.send <- data:
	default:
	}
}

// readPump discards client frames; it only notices the close.
func (c *wsClient) readPump() {
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (c *wsClient) writePump() {
	ticker := time.NewTicker(wsPingInterval)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()
	for {
		select {
		case msg, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, nil)
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
