package game

import (
	"log"
	"math/rand"
	"sort"
	"strconv"
	"sync"
	"time"

	"cube-duel/internal/protocol"
)

// RegistryConfig contains the registry's collaborators. Only Notifier is
// required.
type RegistryConfig struct {
	Rules    Rules
	Notifier Notifier
	Events   *EventLog        // optional match event log
	Rand     *rand.Rand       // code and spawn generation; seeded from time if nil
	Clock    func() time.Time // defaults to time.Now
}

// RoomSummary is the debug view of a room.
type RoomSummary struct {
	Code    string `json:"code"`
	HostID  string `json:"hostId"`
	Players int    `json:"players"`
	Phase   string `json:"phase"`
}

// Registry owns every live room, keyed by 4-digit code, and the index
// from connection identity to the room it sits in.
//
// Lock order is registry then room. Nothing holding a room lock ever
// takes the registry lock.
type Registry struct {
	mu     sync.RWMutex
	rooms  map[string]*Room
	seats  map[string]string // connection id -> room code
	rng    *rand.Rand        // guarded by mu
	rules  Rules
	notify Notifier
	events *EventLog
	clock  func() time.Time
}

// NewRegistry creates an empty registry.
func NewRegistry(cfg RegistryConfig) *Registry {
	rng := cfg.Rand
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	clock := cfg.Clock
	if clock == nil {
		clock = time.Now
	}
	return &Registry{
		rooms:  make(map[string]*Room),
		seats:  make(map[string]string),
		rng:    rng,
		rules:  cfg.Rules.withDefaults(),
		notify: cfg.Notifier,
		events: cfg.Events,
		clock:  clock,
	}
}

// Rules returns the ruleset every room uses.
func (g *Registry) Rules() Rules {
	return g.rules
}

// Host creates a room with conn as host and sole player and acknowledges
// with init.
func (g *Registry) Host(conn, color string) (*Room, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if _, seated := g.seats[conn]; seated {
		return nil, ErrAlreadyInRoom
	}
	if len(g.rooms) >= g.rules.MaxRooms {
		return nil, ErrRegistryFull
	}

	code := g.newCodeLocked()
	room := newRoom(code, conn, g.rules, g.notify, g.events, g.clock)
	g.rooms[code] = room
	g.seats[conn] = code
	g.events.EmitSimple(EventTypeRoomCreated, code, conn, nil)

	room.mu.Lock()
	defer room.mu.Unlock()

	x, y := g.spawnLocked()
	room.addPlayerLocked(conn, color, x, y)

	log.Printf("🏠 Room %s created by %s (%d rooms)", code, conn, len(g.rooms))
	g.notify.Notify(conn, protocol.EventInit, protocol.InitMsg{
		ID:      conn,
		IsHost:  true,
		Code:    code,
		Players: room.snapshotLocked(g.clock()),
	})
	return room, nil
}

// Join seats conn as the second player of the room with the given code.
func (g *Registry) Join(conn, code, color string) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if _, seated := g.seats[conn]; seated {
		return ErrAlreadyInRoom
	}
	room, ok := g.rooms[code]
	if !ok {
		return ErrRoomNotFound
	}

	room.mu.Lock()
	defer room.mu.Unlock()

	if len(room.players) >= MaxPlayersPerRoom {
		return ErrRoomFull
	}

	x, y := g.spawnLocked()
	room.addPlayerLocked(conn, color, x, y)
	g.seats[conn] = code

	log.Printf("👤 %s joined room %s", conn, code)
	g.notify.Notify(conn, protocol.EventInit, protocol.InitMsg{
		ID:      conn,
		IsHost:  false,
		Code:    code,
		Players: room.snapshotLocked(g.clock()),
	})
	g.notify.Notify(room.hostID, protocol.EventPlayerJoined, conn)
	return nil
}

// Leave removes conn from whatever room it sits in. If conn was the host,
// or the room is now empty, the room is torn down and any remaining
// player is told it was kicked. Safe to call for unseated connections.
// reason is recorded in the event log (LeaveDisconnect or LeaveExit).
func (g *Registry) Leave(conn, reason string) {
	g.mu.Lock()
	defer g.mu.Unlock()

	code, ok := g.seats[conn]
	if !ok {
		return
	}
	delete(g.seats, conn)

	room, ok := g.rooms[code]
	if !ok {
		return
	}

	room.mu.Lock()
	defer room.mu.Unlock()

	room.removePlayerLocked(conn, reason)

	switch {
	case conn == room.hostID:
		g.closeRoomLocked(room, "host_left")
	case len(room.players) == 0:
		g.closeRoomLocked(room, "empty")
	default:
		log.Printf("👋 %s left room %s", conn, code)
	}
}

// Kick removes the non-host player. Only the host may kick.
func (g *Registry) Kick(code, requester string) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	room, ok := g.rooms[code]
	if !ok {
		return ErrRoomNotFound
	}

	room.mu.Lock()
	defer room.mu.Unlock()

	if requester != room.hostID {
		return ErrUnauthorized
	}

	for _, id := range room.playerIDs() {
		if id == room.hostID {
			continue
		}
		room.removePlayerLocked(id, "kicked")
		delete(g.seats, id)
		g.notify.Notify(id, protocol.EventKicked, nil)
		log.Printf("🥾 Room %s: host kicked %s", code, id)
	}
	return nil
}

// closeRoomLocked deletes the room and frees the seats of anyone left.
// Caller holds g.mu and room.mu.
func (g *Registry) closeRoomLocked(room *Room, reason string) {
	for _, id := range room.closeLocked(reason) {
		delete(g.seats, id)
	}
	delete(g.rooms, room.code)
	log.Printf("🚪 Room %s closed (%s), %d rooms left", room.code, reason, len(g.rooms))
}

// Get returns the live room with the given code.
func (g *Registry) Get(code string) (*Room, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	room, ok := g.rooms[code]
	return room, ok
}

// RoomOf returns the code of the room conn is seated in.
func (g *Registry) RoomOf(conn string) (string, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	code, ok := g.seats[conn]
	return code, ok
}

// Rooms returns the live rooms. The slice is a copy; rooms may close
// after it is taken, which Room methods detect.
func (g *Registry) Rooms() []*Room {
	g.mu.RLock()
	defer g.mu.RUnlock()
	out := make([]*Room, 0, len(g.rooms))
	for _, r := range g.rooms {
		out = append(out, r)
	}
	return out
}

// Len returns the number of live rooms.
func (g *Registry) Len() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.rooms)
}

// Summaries lists live rooms ordered by code.
func (g *Registry) Summaries() []RoomSummary {
	rooms := g.Rooms()
	out := make([]RoomSummary, 0, len(rooms))
	for _, r := range rooms {
		r.mu.Lock()
		if !r.closed {
			out = append(out, RoomSummary{
				Code:    r.code,
				HostID:  r.hostID,
				Players: len(r.players),
				Phase:   r.phaseLocked().String(),
			})
		}
		r.mu.Unlock()
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out
}

// Snapshot returns the current state of a room for inspection.
func (g *Registry) Snapshot(code string) (Snapshot, bool) {
	room, ok := g.Get(code)
	if !ok {
		return nil, false
	}
	return room.Snapshot(), true
}

// Room-scoped input. Each looks the room up, releases the registry lock,
// then works under the room lock.

// Start begins or restarts the match in a room.
func (g *Registry) Start(code, conn string) error {
	room, ok := g.Get(code)
	if !ok {
		return ErrRoomNotFound
	}
	return room.Start(conn)
}

// KeyDown records a held key.
func (g *Registry) KeyDown(code, conn, key string) error {
	room, ok := g.Get(code)
	if !ok {
		return ErrRoomNotFound
	}
	return room.KeyDown(conn, key)
}

// KeyUp releases a key, or every key when key is empty.
func (g *Registry) KeyUp(code, conn, key string) error {
	room, ok := g.Get(code)
	if !ok {
		return ErrRoomNotFound
	}
	return room.KeyUp(conn, key)
}

// Aim sets a player's facing angle.
func (g *Registry) Aim(code, conn string, angle float64) error {
	room, ok := g.Get(code)
	if !ok {
		return ErrRoomNotFound
	}
	return room.Aim(conn, angle)
}

// Attack resolves an attack immediately.
func (g *Registry) Attack(code, conn string) ([]HitResult, error) {
	room, ok := g.Get(code)
	if !ok {
		return nil, ErrRoomNotFound
	}
	return room.Attack(conn)
}

// ReadyForVoice forwards a voice-ready signal to the host.
func (g *Registry) ReadyForVoice(code, conn string) error {
	room, ok := g.Get(code)
	if !ok {
		return ErrRoomNotFound
	}
	return room.ReadyForVoice(conn)
}

// SameRoom reports whether two connections are seated in the same room.
// Voice signalling is only relayed between room-mates.
func (g *Registry) SameRoom(a, b string) bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	ca, ok := g.seats[a]
	if !ok {
		return false
	}
	cb, ok := g.seats[b]
	return ok && ca == cb
}

// newCodeLocked picks an unused code uniformly at random, retrying on
// collision. Callers ensure a free code exists.
func (g *Registry) newCodeLocked() string {
	for {
		code := strconv.Itoa(minRoomCode + g.rng.Intn(roomCodes))
		if _, taken := g.rooms[code]; !taken {
			return code
		}
	}
}

// spawnLocked picks a random top-left that keeps the body on screen.
func (g *Registry) spawnLocked() (float64, float64) {
	f := g.rules.Field
	maxX := f.MaxX - g.rules.BodySize
	maxY := f.MaxY - g.rules.BodySize
	return g.rng.Float64() * maxX, g.rng.Float64() * maxY
}
