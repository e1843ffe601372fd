package handlers

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/linesmerrill/forensic-case-api/api"
	"github.com/linesmerrill/forensic-case-api/models"
)

const (
	liveWriteWait  = 10 * time.Second
	livePongWait   = 60 * time.Second
	livePingPeriod = livePongWait * 9 / 10
	liveBuffer     = 32
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

type liveClient struct {
	userID string
	send   chan []byte
}

// LiveHub fans occurrence change events out to every connected console
type LiveHub struct {
	mu      sync.RWMutex
	clients map[*liveClient]struct{}
}

// NewLiveHub creates an empty hub
func NewLiveHub() *LiveHub {
	return &LiveHub{clients: make(map[*liveClient]struct{})}
}

// Publish sends event to every subscriber. Slow subscribers miss events
// instead of blocking the publisher.
func (h *LiveHub) Publish(event models.LiveEvent) {
	data, err := json.Marshal(event)
	if err != nil {
		zap.S().Errorw("failed to marshal live event", "error", err)
		return
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.clients {
		select {
		case c.send <- data:
		default:
			zap.S().Debugw("live subscriber buffer full, dropping event", "userId", c.userID, "type", event.Type)
		}
	}
}

// Subscribers returns the number of connected consoles
func (h *LiveHub) Subscribers() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func (h *LiveHub) register(c *liveClient) {
	h.mu.Lock()
	h.clients[c] = struct{}{}
	h.mu.Unlock()
	api.LiveSubscriberJoined()
}

func (h *LiveHub) unregister(c *liveClient) {
	h.mu.Lock()
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		close(c.send)
		api.LiveSubscriberLeft()
	}
	h.mu.Unlock()
}

// ServeHTTP upgrades an authenticated request to the live feed
func (h *LiveHub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		zap.S().Warnw("websocket upgrade error", "error", err)
		return
	}
	c := &liveClient{userID: caller(r).ID, send: make(chan []byte, liveBuffer)}
	h.register(c)
	zap.S().Debugw("live subscriber connected", "userId", c.userID)

	go h.writePump(conn, c)

	conn.SetReadLimit(512)
	_ = conn.SetReadDeadline(time.Now().Add(livePongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(livePongWait))
	})
	// the feed is one-way; reading only detects disconnects and pongs
	for {
		if _, _, err := conn.NextReader(); err != nil {
			break
		}
	}
	h.unregister(c)
	zap.S().Debugw("live subscriber disconnected", "userId", c.userID)
}

func (h *LiveHub) writePump(conn *websocket.Conn, c *liveClient) {
	ticker := time.NewTicker(livePingPeriod)
	defer func() {
		ticker.Stop()
		conn.Close()
	}()
	for {
		select {
		case msg, ok := <-c.send:
			_ = conn.SetWriteDeadline(time.Now().Add(liveWriteWait))
			if !ok {
				_ = conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(liveWriteWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// TokenFromQuery lets websocket clients, which cannot set headers, pass the
// access token as ?token=
func TokenFromQuery(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") == "" {
			if token := r.URL.Query().Get("token"); token != "" {
				r.Header.Set("Authorization", "Bearer "+token)
			}
		}
		next.ServeHTTP(w, r)
	})
}
