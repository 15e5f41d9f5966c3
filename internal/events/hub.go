package events

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/skypro1111/live-transcribe-service/internal/audio"
	"github.com/skypro1111/live-transcribe-service/internal/transcript"
)

const (
	// writeWait is the deadline for one WebSocket write.
	writeWait = 5 * time.Second

	// clientQueueSize bounds each client's outbound queue. Level events
	// arrive per frame; events for a client whose queue is full are
	// dropped and counted rather than allowed to apply backpressure on
	// the pipeline.
	clientQueueSize = 256
)

// Hub is a Sink that broadcasts events to connected WebSocket clients.
type Hub struct {
	logger   *slog.Logger
	upgrader websocket.Upgrader

	clients map[uuid.UUID]*hubClient

	// Statistics
	eventsPublished uint64
	eventsDropped   uint64

	mu sync.RWMutex
}

type hubClient struct {
	id   uuid.UUID
	conn *websocket.Conn
	send chan Event
}

// HubStats represents hub statistics for monitoring.
type HubStats struct {
	Clients         int    `json:"clients"`
	EventsPublished uint64 `json:"events_published"`
	EventsDropped   uint64 `json:"events_dropped"`
}

// NewHub creates an empty hub.
func NewHub(logger *slog.Logger) *Hub {
	return &Hub{
		logger:  logger,
		clients: make(map[uuid.UUID]*hubClient),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
	}
}

// PublishLevel broadcasts an audio-level event.
func (h *Hub) PublishLevel(level audio.LevelSample) {
	h.broadcast(Event{Type: TypeAudioLevel, Data: level})
}

// PublishTranscription broadcasts a transcription-result event.
func (h *Hub) PublishTranscription(result transcript.Result) {
	h.broadcast(Event{Type: TypeTranscription, Data: result})
}

// PublishResponse broadcasts a suggested-response event.
func (h *Hub) PublishResponse(response SuggestedResponse) {
	h.broadcast(Event{Type: TypeSuggestedResponse, Data: response})
}

// broadcast queues the event for every connected client, dropping it for
// clients whose queue is full.
func (h *Hub) broadcast(event Event) {
	h.mu.Lock()
	h.eventsPublished++
	clients := make([]*hubClient, 0, len(h.clients))
	for _, c := range h.clients {
		clients = append(clients, c)
	}
	h.mu.Unlock()

	for _, c := range clients {
		select {
		case c.send <- event:
		default:
			h.mu.Lock()
			h.eventsDropped++
			h.mu.Unlock()
		}
	}
}

// ServeWS upgrades an HTTP request to a WebSocket event subscription.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("WebSocket upgrade failed",
			slog.String("remote", r.RemoteAddr),
			slog.String("error", err.Error()),
		)
		return
	}

	client := &hubClient{
		id:   uuid.New(),
		conn: conn,
		send: make(chan Event, clientQueueSize),
	}

	h.mu.Lock()
	h.clients[client.id] = client
	count := len(h.clients)
	h.mu.Unlock()

	h.logger.Info("Event consumer connected",
		slog.String("client_id", client.id.String()),
		slog.String("remote", r.RemoteAddr),
		slog.Int("clients", count),
	)

	go h.writePump(client)
	go h.readPump(client)
}

// writePump delivers queued events to one client until its queue closes or
// a write fails.
func (h *Hub) writePump(client *hubClient) {
	defer h.removeClient(client)

	for event := range client.send {
		client.conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := client.conn.WriteJSON(event); err != nil {
			h.logger.Debug("Event write failed, dropping client",
				slog.String("client_id", client.id.String()),
				slog.String("error", err.Error()),
			)
			return
		}
	}
}

// readPump discards inbound messages and detects client disconnects.
func (h *Hub) readPump(client *hubClient) {
	defer h.removeClient(client)

	for {
		if _, _, err := client.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.logger.Debug("Event consumer read error",
					slog.String("client_id", client.id.String()),
					slog.String("error", err.Error()),
				)
			}
			return
		}
	}
}

// removeClient unregisters and closes one client. Safe to call twice.
func (h *Hub) removeClient(client *hubClient) {
	h.mu.Lock()
	_, present := h.clients[client.id]
	if present {
		delete(h.clients, client.id)
		close(client.send)
	}
	count := len(h.clients)
	h.mu.Unlock()

	if present {
		client.conn.Close()
		h.logger.Info("Event consumer disconnected",
			slog.String("client_id", client.id.String()),
			slog.Int("clients", count),
		)
	}
}

// Close disconnects all clients.
func (h *Hub) Close(ctx context.Context) {
	h.mu.Lock()
	clients := make([]*hubClient, 0, len(h.clients))
	for _, c := range h.clients {
		clients = append(clients, c)
	}
	h.mu.Unlock()

	for _, c := range clients {
		h.removeClient(c)
	}
}

// GetStats returns current hub statistics.
func (h *Hub) GetStats() HubStats {
	h.mu.RLock()
	defer h.mu.RUnlock()

	return HubStats{
		Clients:         len(h.clients),
		EventsPublished: h.eventsPublished,
		EventsDropped:   h.eventsDropped,
	}
}
