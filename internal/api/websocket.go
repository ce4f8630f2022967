// internal/api/websocket.go
package api

import (
	"encoding/json"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/allencreed/Sora-Prompt-Tool/internal/services"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	wsSendBuffer       = 16
	wsPongWait         = 60 * time.Second
	wsPingPeriod       = 54 * time.Second
	wsWriteWait        = 10 * time.Second
	wsCleanupPeriod    = 30 * time.Second
	wsUnregisterBuffer = 64
)

// WebSocketConnection is the part of *websocket.Conn the hub uses.
type WebSocketConnection interface {
	WriteMessage(messageType int, data []byte) error
	ReadMessage() (messageType int, p []byte, err error)
	Close() error
	SetReadDeadline(t time.Time) error
	SetWriteDeadline(t time.Time) error
	SetPongHandler(h func(appData string) error)
}

// StatusMessage is pushed to subscribers whenever a session's connection
// status changes.
type StatusMessage struct {
	Type      string                    `json:"type"`
	SessionID string                    `json:"session_id"`
	Status    services.ConnectionStatus `json:"status"`
	Timestamp time.Time                 `json:"timestamp"`
}

// StatusClient is one websocket subscriber of a session.
type StatusClient struct {
	conn      WebSocketConnection
	sessionID string
	send      chan []byte
	closed    int32
	lastPing  atomic.Int64
}

func newStatusClient(conn WebSocketConnection, sessionID string) *StatusClient {
	client := &StatusClient{
		conn:      conn,
		sessionID: sessionID,
		send:      make(chan []byte, wsSendBuffer),
	}
	client.UpdatePing()
	return client
}

// Close closes the connection once. The send channel is closed by the hub.
func (client *StatusClient) Close() {
	if atomic.CompareAndSwapInt32(&client.closed, 0, 1) {
		client.conn.Close()
	}
}

func (client *StatusClient) IsClosed() bool {
	return atomic.LoadInt32(&client.closed) == 1
}

func (client *StatusClient) UpdatePing() {
	client.lastPing.Store(time.Now().UnixNano())
}

// IsExpired reports whether no pong arrived within timeout.
func (client *StatusClient) IsExpired(timeout time.Duration) bool {
	return time.Since(time.Unix(0, client.lastPing.Load())) > timeout
}

// StatusHub fans connection status changes out to websocket subscribers,
// grouped by session.
type StatusHub struct {
	clients    map[string]map[*StatusClient]struct{}
	unregister chan *StatusClient
	done       chan struct{}
	closeOnce  sync.Once
	mutex      sync.RWMutex
	upgrader   websocket.Upgrader
	logger     *zap.Logger
}

// NewStatusHub starts the hub loop. allowedOrigins restricts the websocket
// handshake; "*" or an empty list allows every origin.
func NewStatusHub(allowedOrigins []string, logger *zap.Logger) *StatusHub {
	if logger == nil {
		logger = zap.NewNop()
	}
	hub := &StatusHub{
		clients:    make(map[string]map[*StatusClient]struct{}),
		unregister: make(chan *StatusClient, wsUnregisterBuffer),
		done:       make(chan struct{}),
		logger:     logger.Named("ws"),
	}
	hub.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     originChecker(allowedOrigins),
	}
	go hub.run()
	return hub
}

func originChecker(allowed []string) func(r *http.Request) bool {
	set := make(map[string]struct{}, len(allowed))
	for _, origin := range allowed {
		if origin == "*" {
			return func(*http.Request) bool { return true }
		}
		set[origin] = struct{}{}
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" || len(set) == 0 {
			return true
		}
		_, ok := set[origin]
		return ok
	}
}

// NotifyStatus implements services.StatusNotifier.
func (hub *StatusHub) NotifyStatus(sessionID string, status services.ConnectionStatus) {
	msg, err := encodeStatus(sessionID, status)
	if err != nil {
		hub.logger.Error("encoding status message failed", zap.Error(err))
		return
	}

	hub.mutex.RLock()
	defer hub.mutex.RUnlock()
	for client := range hub.clients[sessionID] {
		if client.IsClosed() {
			continue
		}
		select {
		case client.send <- msg:
		default:
			hub.logger.Warn("status subscriber queue full, message dropped", zap.String("session_id", sessionID))
		}
	}
}

func encodeStatus(sessionID string, status services.ConnectionStatus) ([]byte, error) {
	return json.Marshal(StatusMessage{
		Type:      "connection_status",
		SessionID: sessionID,
		Status:    status,
		Timestamp: time.Now(),
	})
}

// Subscribers returns the number of clients of a session.
func (hub *StatusHub) Subscribers(sessionID string) int {
	hub.mutex.RLock()
	defer hub.mutex.RUnlock()
	return len(hub.clients[sessionID])
}

// Close disconnects every client and stops the hub loop.
func (hub *StatusHub) Close() {
	hub.closeOnce.Do(func() { close(hub.done) })
}

func (hub *StatusHub) run() {
	ticker := time.NewTicker(wsCleanupPeriod)
	defer ticker.Stop()

	for {
		select {
		case client := <-hub.unregister:
			hub.remove(client)
		case <-ticker.C:
			hub.cleanupExpired()
		case <-hub.done:
			hub.shutdown()
			return
		}
	}
}

func (hub *StatusHub) addLocked(client *StatusClient) {
	if hub.clients[client.sessionID] == nil {
		hub.clients[client.sessionID] = make(map[*StatusClient]struct{})
	}
	hub.clients[client.sessionID][client] = struct{}{}
	hub.logger.Debug("status subscriber connected", zap.String("session_id", client.sessionID))
}

func (hub *StatusHub) remove(client *StatusClient) {
	hub.mutex.Lock()
	defer hub.mutex.Unlock()
	hub.removeLocked(client)
}

func (hub *StatusHub) removeLocked(client *StatusClient) {
	clients, ok := hub.clients[client.sessionID]
	if !ok {
		return
	}
	if _, ok := clients[client]; !ok {
		return
	}
	delete(clients, client)
	if len(clients) == 0 {
		delete(hub.clients, client.sessionID)
	}
	client.Close()
	close(client.send)
	hub.logger.Debug("status subscriber disconnected", zap.String("session_id", client.sessionID))
}

func (hub *StatusHub) cleanupExpired() {
	hub.mutex.Lock()
	defer hub.mutex.Unlock()

	for _, clients := range hub.clients {
		for client := range clients {
			if client.IsClosed() || client.IsExpired(wsPongWait) {
				hub.removeLocked(client)
			}
		}
	}
}

func (hub *StatusHub) shutdown() {
	hub.mutex.Lock()
	defer hub.mutex.Unlock()

	for _, clients := range hub.clients {
		for client := range clients {
			hub.removeLocked(client)
		}
	}
}

// subscribe adds client unless the hub is closed. It holds the hub lock so
// shutdown either sees the client or the client is refused.
func (hub *StatusHub) subscribe(client *StatusClient) bool {
	hub.mutex.Lock()
	defer hub.mutex.Unlock()

	select {
	case <-hub.done:
		return false
	default:
	}
	hub.addLocked(client)
	return true
}

func (hub *StatusHub) unsubscribe(client *StatusClient) {
	select {
	case hub.unregister <- client:
	case <-hub.done:
	}
}
