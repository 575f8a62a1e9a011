package ws

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/ozodbekdev/fitclub-server/cmd/utils"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// CheckInEvent is what the front-desk dashboard sees the moment a member
// checks in at the kiosk.
type CheckInEvent struct {
	MemberID   uint      `json:"member_id"`
	MemberName string    `json:"member_name"`
	PlanType   string    `json:"plan_type"`
	Status     string    `json:"status"`
	AttendedAt time.Time `json:"attended_at"`
}

type client struct {
	conn *websocket.Conn
	send chan []byte
}

// Hub fans successful check-ins out to connected dashboard clients. Broadcast
// never blocks the check-in path: slow clients get dropped.
type Hub struct {
	mu        sync.RWMutex
	clients   map[*client]bool
	broadcast chan CheckInEvent
}

func NewHub() *Hub {
	return &Hub{
		clients:   make(map[*client]bool),
		broadcast: make(chan CheckInEvent, 64),
	}
}

func (h *Hub) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/ws/checkins", h.handleSubscribe)
}

// Run drains the broadcast channel. Started once from the API server.
func (h *Hub) Run() {
	for event := range h.broadcast {
		payload, err := json.Marshal(event)
		if err != nil {
			continue
		}
		h.mu.RLock()
		for c := range h.clients {
			select {
			case c.send <- payload:
			default:
				// Slow consumer; its writer will clean it up.
			}
		}
		h.mu.RUnlock()
	}
}

// NotifyCheckIn queues an event for broadcast; drops it if the hub is
// saturated rather than slowing down the kiosk.
func (h *Hub) NotifyCheckIn(event CheckInEvent) {
	if h == nil {
		return
	}
	select {
	case h.broadcast <- event:
	default:
	}
}

func (h *Hub) handleSubscribe(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		utils.LogError(utils.GetLogger(), "ws", "handleSubscribe", "upgrade", nil, err)
		return
	}

	c := &client{conn: conn, send: make(chan []byte, 16)}
	h.mu.Lock()
	h.clients[c] = true
	h.mu.Unlock()

	go h.writer(c)
	go h.reader(c)
}

func (h *Hub) writer(c *client) {
	for payload := range c.send {
		if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
			h.drop(c)
			return
		}
	}
	c.conn.Close()
}

// reader only watches for the client going away.
func (h *Hub) reader(c *client) {
	defer h.drop(c)
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (h *Hub) drop(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		close(c.send)
		c.conn.Close()
	}
}
