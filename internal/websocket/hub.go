package websocket

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/redis/go-redis/v9"

	"clipscout-backend/internal/services"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// TokenVerifier resolves a bearer token to its subject.
type TokenVerifier interface {
	Verify(token string) (string, error)
}

// Hub fans run progress published on Redis out to websocket clients
// watching that run.
type Hub struct {
	mu          sync.RWMutex
	connections map[uuid.UUID][]*websocket.Conn
	redisClient *redis.Client
	verifier    TokenVerifier
	cancelFuncs map[uuid.UUID]context.CancelFunc
}

func NewHub(redisClient *redis.Client, verifier TokenVerifier) *Hub {
	return &Hub{
		connections: make(map[uuid.UUID][]*websocket.Conn),
		redisClient: redisClient,
		verifier:    verifier,
		cancelFuncs: make(map[uuid.UUID]context.CancelFunc),
	}
}

// HandleWebSocket expects ?token=<jwt>&run_id=<uuid>.
func (h *Hub) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	tokenStr := r.URL.Query().Get("token")
	if tokenStr == "" {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}
	subject, err := h.verifier.Verify(tokenStr)
	if err != nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	runID, err := uuid.Parse(r.URL.Query().Get("run_id"))
	if err != nil {
		http.Error(w, "Invalid run_id", http.StatusBadRequest)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Warn("websocket upgrade failed", slog.Any("error", err))
		return
	}

	h.registerConnection(runID, conn)
	slog.Debug("websocket client attached", slog.String("subject", subject), slog.String("run_id", runID.String()))

	go func() {
		defer h.unregisterConnection(runID, conn)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				break
			}
		}
	}()
}

func (h *Hub) registerConnection(runID uuid.UUID, conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.connections[runID] = append(h.connections[runID], conn)

	// First watcher of a run opens the subscription.
	if len(h.connections[runID]) == 1 {
		ctx, cancel := context.WithCancel(context.Background())
		h.cancelFuncs[runID] = cancel
		go h.subscribeToPubSub(ctx, runID)
	}

	slog.Info("websocket connected", slog.String("run_id", runID.String()), slog.Int("watchers", len(h.connections[runID])))
}

func (h *Hub) unregisterConnection(runID uuid.UUID, conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()

	conn.Close()

	conns := h.connections[runID]
	for i, c := range conns {
		if c == conn {
			h.connections[runID] = append(conns[:i], conns[i+1:]...)
			break
		}
	}

	if len(h.connections[runID]) == 0 {
		delete(h.connections, runID)
		if cancel, ok := h.cancelFuncs[runID]; ok {
			cancel()
			delete(h.cancelFuncs, runID)
		}
	}

	slog.Info("websocket disconnected", slog.String("run_id", runID.String()))
}

func (h *Hub) subscribeToPubSub(ctx context.Context, runID uuid.UUID) {
	pubsub := h.redisClient.Subscribe(ctx, services.RunChannel(runID))
	defer pubsub.Close()

	ch := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			h.broadcast(runID, []byte(msg.Payload))
		}
	}
}

func (h *Hub) broadcast(runID uuid.UUID, data []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for _, conn := range h.connections[runID] {
		conn.WriteMessage(websocket.TextMessage, data)
	}
}

// SendToRun pushes a message to local watchers without going through Redis.
func (h *Hub) SendToRun(runID uuid.UUID, msg interface{}) {
	data, err := json.Marshal(msg)
	if err != nil {
		return
	}
	h.broadcast(runID, data)
}

// Watchers reports the number of open connections for a run.
func (h *Hub) Watchers(runID uuid.UUID) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.connections[runID])
}
