package websocket

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"autosendpic/internal/dto"
	"autosendpic/internal/logger"

	"github.com/gorilla/websocket"
)

const writeWait = 5 * time.Second

// HubService pushes pipeline events to connected viewers.
type HubService struct {
	clients    map[*websocket.Conn]bool
	broadcast  chan []byte
	register   chan *websocket.Conn
	unregister chan *websocket.Conn
	done       chan struct{}
	mutex      sync.RWMutex
	logger     *logger.Logger
}

func NewHubService(logger *logger.Logger) *HubService {
	return &HubService{
		clients:    make(map[*websocket.Conn]bool),
		broadcast:  make(chan []byte, 64),
		register:   make(chan *websocket.Conn),
		unregister: make(chan *websocket.Conn),
		done:       make(chan struct{}),
		logger:     logger,
	}
}

// Run serves registrations and broadcasts until ctx is cancelled, then
// closes every connection.
func (h *HubService) Run(ctx context.Context) {
	defer close(h.done)

	for {
		select {
		case <-ctx.Done():
			h.mutex.Lock()
			for client := range h.clients {
				client.Close()
				delete(h.clients, client)
			}
			h.mutex.Unlock()
			return

		case client := <-h.register:
			h.mutex.Lock()
			h.clients[client] = true
			count := len(h.clients)
			h.mutex.Unlock()
			h.logger.Info("Viewer connected. Total: %d", count)

		case client := <-h.unregister:
			h.remove(client)

		case message := <-h.broadcast:
			for client := range h.GetClients() {
				client.SetWriteDeadline(time.Now().Add(writeWait))
				if err := client.WriteMessage(websocket.TextMessage, message); err != nil {
					h.logger.Error("Error sending message: %v", err)
					h.remove(client)
				}
			}
		}
	}
}

func (h *HubService) remove(client *websocket.Conn) {
	h.mutex.Lock()
	_, ok := h.clients[client]
	if ok {
		delete(h.clients, client)
		client.Close()
	}
	count := len(h.clients)
	h.mutex.Unlock()

	if ok {
		h.logger.Info("Viewer disconnected. Total: %d", count)
	}
}

// Register adds a viewer. It returns false once the hub has stopped.
func (h *HubService) Register(client *websocket.Conn) bool {
	select {
	case h.register <- client:
		return true
	case <-h.done:
		return false
	}
}

func (h *HubService) Unregister(client *websocket.Conn) {
	select {
	case h.unregister <- client:
	case <-h.done:
	}
}

// Broadcast queues a message for every viewer and drops it when the hub is
// backed up.
func (h *HubService) Broadcast(message []byte) {
	select {
	case h.broadcast <- message:
	default:
		h.logger.Warning("Viewer queue full, event dropped")
	}
}

// BroadcastEvent serializes ev and broadcasts it.
func (h *HubService) BroadcastEvent(ev dto.Event) {
	message, err := json.Marshal(ev)
	if err != nil {
		h.logger.Error("Error encoding event: %v", err)
		return
	}
	h.Broadcast(message)
}

func (h *HubService) GetClients() map[*websocket.Conn]bool {
	h.mutex.RLock()
	defer h.mutex.RUnlock()

	clients := make(map[*websocket.Conn]bool)
	for k, v := range h.clients {
		clients[k] = v
	}
	return clients
}

func (h *HubService) GetClientCount() int {
	h.mutex.RLock()
	defer h.mutex.RUnlock()
	return len(h.clients)
}
