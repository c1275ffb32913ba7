// SPDX-License-Identifier: MIT
package transport

import (
	"net/http"
	"sync"
	"time"

	applog "prosody/internal/log"

	"github.com/gorilla/websocket"
)

const writeWait = 2 * time.Second

// WebSocketTransport broadcasts frames to every connected viewer and
// passes viewer messages to a handler. It is an http.Handler; the caller
// mounts it on its own server.
type WebSocketTransport struct {
	upgrader  websocket.Upgrader
	clients   map[*websocket.Conn]bool
	clientsMu sync.Mutex
	broadcast chan any
	done      chan struct{}
	closeOnce sync.Once

	onMessage func(Message)
	onCount   func(int)
}

// NewWebSocketTransport creates a transport and starts its broadcast loop.
// onMessage and onCount may be nil.
func NewWebSocketTransport(onMessage func(Message), onCount func(int)) *WebSocketTransport {
	if onMessage == nil {
		onMessage = func(Message) {}
	}
	if onCount == nil {
		onCount = func(int) {}
	}
	wst := &WebSocketTransport{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 64 * 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true // Viewers are served from the same local process
			},
		},
		clients:   make(map[*websocket.Conn]bool),
		broadcast: make(chan any, 8),
		done:      make(chan struct{}),
		onMessage: onMessage,
		onCount:   onCount,
	}

	go wst.handleBroadcasts()
	return wst
}

// ServeHTTP upgrades the connection and registers the viewer.
func (wst *WebSocketTransport) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := wst.upgrader.Upgrade(w, r, nil)
	if err != nil {
		applog.Warnf("Viewer: Upgrade error: %v", err)
		return
	}

	wst.clientsMu.Lock()
	wst.clients[conn] = true
	count := len(wst.clients)
	wst.clientsMu.Unlock()
	wst.onCount(count)
	applog.Infof("Viewer: Client connected, total: %d", count)

	go wst.readLoop(conn)
}

// readLoop handles viewer messages until the connection fails.
func (wst *WebSocketTransport) readLoop(conn *websocket.Conn) {
	defer wst.remove(conn)
	for {
		var msg Message
		if err := conn.ReadJSON(&msg); err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				applog.Debugf("Viewer: Read error: %v", err)
			}
			return
		}
		wst.onMessage(msg)
	}
}

func (wst *WebSocketTransport) remove(conn *websocket.Conn) {
	wst.clientsMu.Lock()
	_, ok := wst.clients[conn]
	delete(wst.clients, conn)
	count := len(wst.clients)
	wst.clientsMu.Unlock()
	conn.Close()
	if ok {
		wst.onCount(count)
		applog.Infof("Viewer: Client disconnected, total: %d", count)
	}
}

// handleBroadcasts sends messages to all connected clients.
func (wst *WebSocketTransport) handleBroadcasts() {
	for {
		select {
		case <-wst.done:
			return
		case data := <-wst.broadcast:
			wst.clientsMu.Lock()
			clients := make([]*websocket.Conn, 0, len(wst.clients))
			for client := range wst.clients {
				clients = append(clients, client)
			}
			wst.clientsMu.Unlock()

			for _, client := range clients {
				client.SetWriteDeadline(time.Now().Add(writeWait))
				if err := client.WriteJSON(data); err != nil {
					applog.Warnf("Viewer: Error sending to client: %v", err)
					wst.remove(client)
				}
			}
		}
	}
}

// Clients returns the number of connected viewers.
func (wst *WebSocketTransport) Clients() int {
	wst.clientsMu.Lock()
	defer wst.clientsMu.Unlock()
	return len(wst.clients)
}

// Send queues data for every viewer. Frames are dropped while the queue is
// full; the next frame supersedes them.
func (wst *WebSocketTransport) Send(data any) error {
	select {
	case wst.broadcast <- data:
	default:
	}
	return nil
}

// Close disconnects every viewer and stops the broadcast loop.
func (wst *WebSocketTransport) Close() error {
	wst.closeOnce.Do(func() {
		applog.Debugf("Viewer: Closing transport")
		close(wst.done)

		wst.clientsMu.Lock()
		for client := range wst.clients {
			client.Close()
		}
		wst.clients = make(map[*websocket.Conn]bool)
		wst.clientsMu.Unlock()
		wst.onCount(0)
	})
	return nil
}

// Ensure WebSocketTransport satisfies the interface
var _ Transport = (*WebSocketTransport)(nil)
