package api

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"colonial/internal/orders"
)

// WebSocket upgrader configuration
var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // kitchen screens run on the local network
	},
}

// KitchenHub pushes order-queue snapshots to connected kitchen screens.
type KitchenHub struct {
	orders     *orders.Service
	clients    map[*kitchenClient]bool
	register   chan *kitchenClient
	unregister chan *kitchenClient
	refresh    chan struct{}
	mu         sync.Mutex
	log        *logrus.Entry
}

type kitchenClient struct {
	conn *websocket.Conn
	send chan []byte
}

// NewKitchenHub creates the hub; Run must be started on it.
func NewKitchenHub(orderService *orders.Service) *KitchenHub {
	return &KitchenHub{
		orders:     orderService,
		clients:    make(map[*kitchenClient]bool),
		register:   make(chan *kitchenClient),
		unregister: make(chan *kitchenClient),
		refresh:    make(chan struct{}, 1),
		log:        logrus.WithField("component", "kitchen_ws"),
	}
}

// Run dispatches client lifecycle events and queue refreshes.
func (h *KitchenHub) Run() {
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			h.mu.Unlock()
			h.sendQueue(client)
		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
			}
			h.mu.Unlock()
		case <-h.refresh:
			h.broadcastQueue()
		}
	}
}

// NotifyQueueChanged schedules a queue broadcast. Non-blocking; a pending
// refresh absorbs further notifications.
func (h *KitchenHub) NotifyQueueChanged() {
	select {
	case h.refresh <- struct{}{}:
	default:
	}
}

// Handle upgrades an HTTP request to a kitchen feed connection.
func (h *KitchenHub) Handle(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.WithError(err).Warn("websocket upgrade failed")
		return
	}

	client := &kitchenClient{
		conn: conn,
		send: make(chan []byte, 16),
	}
	h.register <- client

	go h.writePump(client)
	go h.readPump(client)
}

func (h *KitchenHub) broadcastQueue() {
	data, err := h.queuePayload()
	if err != nil {
		h.log.WithError(err).Warn("queue snapshot failed")
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	for client := range h.clients {
		select {
		case client.send <- data:
		default:
			h.log.Warn("kitchen client buffer full, dropping snapshot")
		}
	}
}

func (h *KitchenHub) sendQueue(client *kitchenClient) {
	data, err := h.queuePayload()
	if err != nil {
		h.log.WithError(err).Warn("queue snapshot failed")
		return
	}
	select {
	case client.send <- data:
	default:
	}
}

func (h *KitchenHub) queuePayload() ([]byte, error) {
	queue, err := h.orders.Queue()
	if err != nil {
		return nil, err
	}

	type wsLine struct {
		Name     string `json:"name"`
		Quantity int    `json:"qty"`
	}
	type wsOrder struct {
		ID       uint     `json:"id"`
		Time     string   `json:"time"`
		Customer string   `json:"customer"`
		Status   string   `json:"status"`
		Items    []wsLine `json:"items"`
		Notes    string   `json:"notes,omitempty"`
	}

	payload := make([]wsOrder, 0, len(queue))
	for _, o := range queue {
		items := make([]wsLine, 0, len(o.Lines))
		for _, line := range o.Lines {
			items = append(items, wsLine{Name: line.ProductName, Quantity: line.Quantity})
		}
		payload = append(payload, wsOrder{
			ID:       o.ID,
			Time:     o.PlacedAt.Format("15:04"),
			Customer: o.CustomerName,
			Status:   string(o.Status),
			Items:    items,
			Notes:    o.Meta.Notes,
		})
	}
	return json.Marshal(payload)
}

// readPump drains the connection until the client goes away.
func (h *KitchenHub) readPump(client *kitchenClient) {
	defer func() {
		h.unregister <- client
		client.conn.Close()
	}()

	client.conn.SetReadLimit(512)
	client.conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	client.conn.SetPongHandler(func(string) error {
		client.conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		return nil
	})

	for {
		if _, _, err := client.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				h.log.WithError(err).Debug("kitchen client read error")
			}
			break
		}
	}
}

// writePump pumps queue snapshots to the connection and keeps it alive.
func (h *KitchenHub) writePump(client *kitchenClient) {
	ticker := time.NewTicker(30 * time.Second)
	defer func() {
		ticker.Stop()
		client.conn.Close()
	}()

	for {
		select {
		case message, ok := <-client.send:
			client.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if !ok {
				client.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := client.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		case <-ticker.C:
			client.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := client.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
