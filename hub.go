package main

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Hub tracks connected clients and fans each broadcast tick out to them
type Hub struct {
	mu      sync.RWMutex
	clients map[*Client]bool

	world   *World
	tracker EventTracker
	log     *zap.SugaredLogger
	limits  LimitsConfig

	// Connection limiting (mutex-protected, accessed from HTTP handlers)
	connMu     sync.Mutex
	ipConns    map[string]int
	totalConns int
}

// NewHub creates a Hub bound to a world. tracker may be nil.
func NewHub(world *World, tracker EventTracker, limits LimitsConfig, logger *zap.SugaredLogger) *Hub {
	return &Hub{
		clients: make(map[*Client]bool),
		world:   world,
		tracker: tracker,
		log:     logger,
		limits:  limits,
		ipConns: make(map[string]int),
	}
}

func (h *Hub) CanAccept(ip string) bool {
	h.connMu.Lock()
	defer h.connMu.Unlock()
	if h.totalConns >= h.limits.MaxTotalConns {
		return false
	}
	if h.ipConns[ip] >= h.limits.MaxConnsPerIP {
		return false
	}
	return true
}

func (h *Hub) TrackConnect(ip string) {
	h.connMu.Lock()
	defer h.connMu.Unlock()
	h.ipConns[ip]++
	h.totalConns++
}

func (h *Hub) TrackDisconnect(ip string) {
	h.connMu.Lock()
	defer h.connMu.Unlock()
	h.ipConns[ip]--
	if h.ipConns[ip] <= 0 {
		delete(h.ipConns, ip)
	}
	h.totalConns--
}

// Register adds a client to the broadcast set
func (h *Hub) Register(c *Client) {
	h.mu.Lock()
	h.clients[c] = true
	h.mu.Unlock()
}

// Unregister removes a client and closes its send queue
func (h *Hub) Unregister(c *Client) {
	h.mu.Lock()
	delete(h.clients, c)
	h.mu.Unlock()
	c.closeSend()
}

// Run broadcasts at TickRate until ctx is done
func (h *Hub) Run(ctx context.Context) {
	ticker := time.NewTicker(TickDuration)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			h.broadcastTick()
		case <-ctx.Done():
			return
		}
	}
}

// broadcastTick sends every admitted client the world snapshot and every
// other client the lobby list. A client whose queue is full misses this
// frame; the others are unaffected.
func (h *Hub) broadcastTick() {
	h.mu.RLock()
	clients := make([]*Client, 0, len(h.clients))
	ids := make([]string, 0, len(h.clients))
	withPack := false
	for c := range h.clients {
		clients = append(clients, c)
		ids = append(ids, c.session.PlayerID())
		withPack = withPack || c.binary
	}
	h.mu.RUnlock()

	if len(clients) == 0 {
		return
	}

	frames, live, err := h.world.Frames(ids, withPack)
	if err != nil {
		h.log.Errorw("broadcast encode failed", "err", err)
		return
	}

	metrics := h.world.Metrics()
	metrics.IncBroadcast()
	for i, c := range clients {
		var ok bool
		switch {
		case live[i] && c.binary:
			ok = c.enqueue(frame{binary: true, data: frames.StatePack})
		case live[i]:
			ok = c.enqueue(frame{data: frames.State})
		default:
			queued, stale := c.enqueueLobby(frames.Lobby)
			if stale {
				// admitted mid-tick; its first state frame comes next tick
				continue
			}
			ok = queued
		}
		if ok {
			metrics.IncQueued()
		} else {
			metrics.IncDropped()
		}
	}
}

// CloseAll drops every websocket connection; their read pumps then run
// the normal teardown.
func (h *Hub) CloseAll() {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.clients {
		c.conn.Close()
	}
}

// ClientCount returns the number of connected clients
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// TotalConns returns the tracked connection count
func (h *Hub) TotalConns() int {
	h.connMu.Lock()
	defer h.connMu.Unlock()
	return h.totalConns
}
