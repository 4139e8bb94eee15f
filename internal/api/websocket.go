package api

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"sync"
	"time"

	"cube-duel/internal/game"
	"cube-duel/internal/protocol"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"golang.org/x/time/rate"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4096
	sendBufferSize = 256
)

// RoomService is the part of game.Registry the hub dispatches to.
type RoomService interface {
	Host(conn, color string) (*game.Room, error)
	Join(conn, code, color string) error
	Leave(conn, reason string)
	Kick(code, requester string) error
	Start(code, conn string) error
	KeyDown(code, conn, key string) error
	KeyUp(code, conn, key string) error
	Aim(code, conn string, angle float64) error
	Attack(code, conn string) ([]game.HitResult, error)
	ReadyForVoice(code, conn string) error
	SameRoom(a, b string) bool
}

// HubConfig configures connection limits and framing.
type HubConfig struct {
	MaxConnections      int
	MaxConnectionsPerIP int
	MessagesPerSecond   float64 // Inbound events per connection
	MessageBurst        int
	StateEncoding       protocol.Encoding
	AllowedOrigins      []string
	TrustedProxies      []string // Peers whose forwarding headers are believed
}

// DefaultHubConfig returns production defaults.
func DefaultHubConfig() HubConfig {
	return HubConfig{
		MaxConnections:      500,
		MaxConnectionsPerIP: 10,
		MessagesPerSecond:   200,
		MessageBurst:        400,
		StateEncoding:       protocol.EncodingJSON,
	}
}

// wsClient is one WebSocket connection. Its id is the player identity.
type wsClient struct {
	id      string
	ip      string
	conn    *websocket.Conn
	send    chan protocol.Frame
	limiter *rate.Limiter
}

// Hub owns every WebSocket connection. It implements game.Notifier:
// notifications are encoded immediately and queued on the recipient's
// bounded send channel, dropping when full, so callers never block.
type Hub struct {
	mu      sync.RWMutex
	clients map[string]*wsClient

	rooms     RoomService
	encoder   *protocol.Encoder
	wsLimiter *WebSocketRateLimiter
	origins   *OriginPolicy
	clientIP  *ClientIPResolver
	upgrader  websocket.Upgrader
	cfg       HubConfig
}

// NewHub creates a hub. Bind must be called before serving connections.
func NewHub(cfg HubConfig) *Hub {
	def := DefaultHubConfig()
	if cfg.MaxConnections <= 0 {
		cfg.MaxConnections = def.MaxConnections
	}
	if cfg.MaxConnectionsPerIP <= 0 {
		cfg.MaxConnectionsPerIP = def.MaxConnectionsPerIP
	}
	if cfg.MessagesPerSecond <= 0 {
		cfg.MessagesPerSecond = def.MessagesPerSecond
	}
	if cfg.MessageBurst <= 0 {
		cfg.MessageBurst = def.MessageBurst
	}
	if cfg.StateEncoding == "" {
		cfg.StateEncoding = def.StateEncoding
	}

	h := &Hub{
		clients:   make(map[string]*wsClient),
		encoder:   protocol.NewEncoder(cfg.StateEncoding),
		wsLimiter: NewWebSocketRateLimiter(cfg.MaxConnectionsPerIP),
		origins:   NewOriginPolicy(cfg.AllowedOrigins),
		clientIP:  NewClientIPResolver(cfg.TrustedProxies),
		cfg:       cfg,
	}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			if h.origins.Check(r) {
				return true
			}
			// Log rejected origin for security monitoring
			log.Printf("⚠️ WebSocket connection rejected from origin: %s", r.Header.Get("Origin"))
			RecordConnectionRejected("origin")
			return false
		},
	}
	return h
}

// Bind attaches the room registry. The registry needs the hub as its
// notifier, so the two are wired in two steps.
func (h *Hub) Bind(rooms RoomService) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.rooms = rooms
}

func (h *Hub) roomService() RoomService {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.rooms
}

// Notify implements game.Notifier.
func (h *Hub) Notify(connID, event string, data interface{}) {
	frame, err := h.encoder.Encode(event, data)
	if err != nil {
		log.Printf("⚠️ Failed to encode %s: %v", event, err)
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	c, ok := h.clients[connID]
	if !ok {
		return
	}
	select {
	case c.send <- frame:
	default:
		// Slow client, skip (backpressure)
		wsMessagesDropped.Inc()
	}
}

// ClientCount returns the number of connected clients
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Stats reports connection counts for the debug server.
func (h *Hub) Stats() map[string]interface{} {
	return map[string]interface{}{
		"clients":       h.ClientCount(),
		"ip_rejections": h.wsLimiter.GetStats()["rejected"],
	}
}

func (h *Hub) register(c *wsClient) {
	h.mu.Lock()
	h.clients[c.id] = c
	count := len(h.clients)
	h.mu.Unlock()

	log.Printf("📱 Client %s connected from %s (%d from this IP, %d total)",
		c.id, c.ip, h.wsLimiter.GetConnectionCount(c.ip), count)
	UpdateWSConnections(count)
}

// unregister drops the client and closes its send channel. The channel is
// closed under the write lock so Notify never sends on a closed channel.
func (h *Hub) unregister(c *wsClient) {
	h.mu.Lock()
	if _, ok := h.clients[c.id]; !ok {
		h.mu.Unlock()
		return
	}
	delete(h.clients, c.id)
	close(c.send)
	count := len(h.clients)
	h.mu.Unlock()

	h.wsLimiter.Release(c.ip)
	log.Printf("📱 Client %s disconnected (%d remaining)", c.id, count)
	UpdateWSConnections(count)
}

// CloseAll closes every connection. Their read loops then run the normal
// disconnect path.
func (h *Hub) CloseAll() {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, c := range h.clients {
		c.conn.Close()
	}
}

// HandleWebSocket upgrades the request and serves the connection until it
// closes.
func (h *Hub) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	// Get client IP for rate limiting
	ip := h.clientIP.ClientIP(r)

	// Check total connection limit
	if total := h.ClientCount(); total >= h.cfg.MaxConnections {
		log.Printf("⚠️ WebSocket connection rejected: total limit reached (%d)", total)
		RecordConnectionRejected("ws_total_limit")
		http.Error(w, "Too many connections", http.StatusServiceUnavailable)
		return
	}

	// Check per-IP connection limit
	if !h.wsLimiter.Allow(ip) {
		log.Printf("⚠️ WebSocket connection rejected from %s: per-IP limit reached", ip)
		RecordConnectionRejected("ws_ip_limit")
		http.Error(w, "Too many connections from your IP", http.StatusTooManyRequests)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("WebSocket upgrade error: %v", err)
		h.wsLimiter.Release(ip) // Release the slot we reserved
		return
	}

	c := &wsClient{
		id:      uuid.NewString(),
		ip:      ip,
		conn:    conn,
		send:    make(chan protocol.Frame, sendBufferSize),
		limiter: rate.NewLimiter(rate.Limit(h.cfg.MessagesPerSecond), h.cfg.MessageBurst),
	}
	h.register(c)

	go h.writePump(c)
	h.readPump(c)

	// Leave before unregistering so the room-mate still gets its kicked
	// notification routed while this client is torn down.
	if rooms := h.roomService(); rooms != nil {
		rooms.Leave(c.id, game.LeaveDisconnect)
	}
	h.unregister(c)
}

// readPump reads and dispatches frames until the connection fails.
func (h *Hub) readPump(c *wsClient) {
	defer c.conn.Close()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Printf("⚠️ WebSocket read error from %s: %v", c.id, err)
			}
			return
		}

		if !c.limiter.Allow() {
			recordInboundRejected("rate_limit")
			continue
		}

		msg, err := protocol.Decode(raw)
		if err != nil {
			recordInboundRejected("malformed")
			continue
		}
		recordInbound(msg.EventName())
		h.dispatch(c, msg)
	}
}

// writePump writes queued frames and keeps the connection alive with pings.
// It exits when the send channel is closed by unregister.
func (h *Hub) writePump(c *wsClient) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case frame, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			msgType := websocket.TextMessage
			if frame.Binary {
				msgType = websocket.BinaryMessage
			}
			if err := c.conn.WriteMessage(msgType, frame.Data); err != nil {
				return
			}
			wsMessagesSent.Inc()

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// dispatch applies one validated message. Lobby errors are answered with
// invalidCode or full; everything else that fails is dropped.
func (h *Hub) dispatch(c *wsClient, msg protocol.Message) {
	rooms := h.roomService()
	if rooms == nil {
		return
	}

	var err error
	switch m := msg.(type) {
	case protocol.Host:
		_, err = rooms.Host(c.id, m.Color)

	case protocol.Join:
		err = rooms.Join(c.id, m.Code, m.Color)
		switch {
		case errors.Is(err, game.ErrRoomNotFound):
			h.Notify(c.id, protocol.EventInvalidCode, nil)
		case errors.Is(err, game.ErrRoomFull):
			h.Notify(c.id, protocol.EventFull, nil)
		}

	case protocol.RoomCommand:
		err = h.dispatchRoomCommand(rooms, c, m)

	case protocol.Key:
		if m.Down {
			err = rooms.KeyDown(m.Code, c.id, m.Key)
		} else {
			err = rooms.KeyUp(m.Code, c.id, m.Key)
		}

	case protocol.Aim:
		err = rooms.Aim(m.Code, c.id, m.Angle)

	case protocol.Signal:
		err = h.relaySignal(rooms, c, m)
	}

	if err != nil {
		recordInboundRejected("refused")
	}
}

func (h *Hub) dispatchRoomCommand(rooms RoomService, c *wsClient, m protocol.RoomCommand) error {
	switch m.Event {
	case protocol.EventStart:
		return rooms.Start(m.Code, c.id)
	case protocol.EventKick:
		return rooms.Kick(m.Code, c.id)
	case protocol.EventExit:
		rooms.Leave(c.id, game.LeaveExit)
		return nil
	case protocol.EventAttack:
		hits, err := rooms.Attack(m.Code, c.id)
		recordHits(hits)
		return err
	case protocol.EventReadyForVoice:
		return rooms.ReadyForVoice(m.Code, c.id)
	}
	return protocol.ErrUnknownEvent
}

// errNotRoommate rejects signalling to someone outside the sender's room.
var errNotRoommate = errors.New("signal recipient is not in the sender's room")

// relaySignal forwards a voice signalling payload to the peer, replacing
// the recipient with the sender's identity.
func (h *Hub) relaySignal(rooms RoomService, c *wsClient, m protocol.Signal) error {
	if m.To == c.id || !rooms.SameRoom(c.id, m.To) {
		return errNotRoommate
	}

	from, err := json.Marshal(c.id)
	if err != nil {
		return err
	}
	out := make(map[string]json.RawMessage, len(m.Fields)+1)
	for k, v := range m.Fields {
		out[k] = v
	}
	out["from"] = from

	h.Notify(m.To, m.Event, out)
	return nil
}
