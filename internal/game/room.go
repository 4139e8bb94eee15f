package game

import (
	"errors"
	"log"
	"sort"
	"sync"
	"time"

	"cube-duel/internal/protocol"
)

var (
	ErrRoomNotFound    = errors.New("room not found")
	ErrRoomFull        = errors.New("room is full")
	ErrUnauthorized    = errors.New("only the host can do that")
	ErrUnknownPlayer   = errors.New("player not in room")
	ErrAlreadyInRoom   = errors.New("connection already seated in a room")
	ErrRegistryFull    = errors.New("no room codes available")
	ErrMatchNotStarted = errors.New("match not started")
	ErrStunned         = errors.New("player is stunned")
)

// Notifier delivers server events to connections. Implementations must
// not block and must not retain data after returning: rooms call it while
// holding their lock and reuse snapshots across recipients.
type Notifier interface {
	Notify(connID, event string, data interface{})
}

// Phase is the match state of a room.
type Phase int

const (
	PhaseLobby      Phase = iota // Waiting for the host to start
	PhaseInProgress              // Fighting
	PhaseEnded                   // Someone hit zero health; restart allowed
)

func (p Phase) String() string {
	switch p {
	case PhaseInProgress:
		return "in_progress"
	case PhaseEnded:
		return "ended"
	default:
		return "lobby"
	}
}

// Room is one duel. Every mutation, including the simulation step, runs
// under mu, so input, attack resolution and ticks for the same room are
// serialized.
type Room struct {
	mu      sync.Mutex
	code    string
	hostID  string
	players map[string]*Player
	started bool
	ended   bool
	closed  bool

	rules    Rules
	notifier Notifier
	events   *EventLog
	clock    func() time.Time
}

func newRoom(code, hostID string, rules Rules, notifier Notifier, events *EventLog, clock func() time.Time) *Room {
	return &Room{
		code:     code,
		hostID:   hostID,
		players:  make(map[string]*Player, MaxPlayersPerRoom),
		rules:    rules,
		notifier: notifier,
		events:   events,
		clock:    clock,
	}
}

// Code returns the room code.
func (r *Room) Code() string {
	return r.code
}

// HostID returns the identity of the host connection.
func (r *Room) HostID() string {
	return r.hostID
}

// Phase returns the current match phase.
func (r *Room) Phase() Phase {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.phaseLocked()
}

func (r *Room) phaseLocked() Phase {
	switch {
	case r.started:
		return PhaseInProgress
	case r.ended:
		return PhaseEnded
	default:
		return PhaseLobby
	}
}

// Started reports whether a match is running.
func (r *Room) Started() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.started
}

// PlayerCount returns the number of seated players.
func (r *Room) PlayerCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.players)
}

// Snapshot returns a copy of every player's state.
func (r *Room) Snapshot() Snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.snapshotLocked(r.clock())
}

func (r *Room) snapshotLocked(now time.Time) Snapshot {
	snap := make(Snapshot, len(r.players))
	for id, p := range r.players {
		snap[id] = p.state(now)
	}
	return snap
}

// playerIDs returns seated identities in a stable order.
func (r *Room) playerIDs() []string {
	ids := make([]string, 0, len(r.players))
	for id := range r.players {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func (r *Room) broadcastLocked(event string, data interface{}) {
	for _, id := range r.playerIDs() {
		r.notifier.Notify(id, event, data)
	}
}

func (r *Room) broadcastStateLocked(now time.Time) {
	r.broadcastLocked(protocol.EventState, r.snapshotLocked(now))
}

// Step advances the simulation by one tick and broadcasts the result.
// Movement, stun and knockback only integrate while a match is running;
// lobby and ended rooms still broadcast so clients see who is present.
// Returns false once the room has been torn down.
func (r *Room) Step(now time.Time) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return false
	}

	if r.started {
		f := r.rules.Field
		for _, p := range r.players {
			if !p.IsStunned(now) {
				p.move(r.rules.MoveStep)
			}
			p.applyKnockback(r.rules.KnockbackDecay)
			p.X = wrap(p.X, f.MinX, f.MaxX)
			p.Y = wrap(p.Y, f.MinY, f.MaxY)
		}
	}

	r.broadcastStateLocked(now)
	return true
}

// Start begins (or restarts) a match. Only the host may start.
func (r *Room) Start(requester string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return ErrRoomNotFound
	}
	if requester != r.hostID {
		return ErrUnauthorized
	}

	for _, p := range r.players {
		p.resetForMatch(r.rules.MaxHealth)
	}
	r.started = true
	r.ended = false

	log.Printf("⚔️ Room %s: match started with %d players", r.code, len(r.players))
	r.events.EmitSimple(EventTypeMatchStart, r.code, requester, nil)

	r.broadcastLocked(protocol.EventStartGame, nil)
	r.broadcastStateLocked(r.clock())
	return nil
}

// KeyDown marks a key as held. The effect is realized on the next tick.
func (r *Room) KeyDown(id, key string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, err := r.playerLocked(id)
	if err != nil {
		return err
	}
	p.Keys[key] = true
	return nil
}

// KeyUp releases a key. An empty key releases every key.
func (r *Room) KeyUp(id, key string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, err := r.playerLocked(id)
	if err != nil {
		return err
	}
	if key == "" {
		clear(p.Keys)
		return nil
	}
	delete(p.Keys, key)
	return nil
}

// Aim overwrites the facing angle with the client-computed value.
func (r *Room) Aim(id string, angle float64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, err := r.playerLocked(id)
	if err != nil {
		return err
	}
	p.Angle = angle
	return nil
}

// Attack resolves a swing immediately rather than on the next tick.
// Every landed hit damages, knocks back and stuns its victim; a victim
// reaching zero health ends the match. State is broadcast right away so
// the hit is visible without waiting for the tick.
func (r *Room) Attack(id string) ([]HitResult, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return nil, ErrRoomNotFound
	}
	if !r.started {
		return nil, ErrMatchNotStarted
	}
	attacker, ok := r.players[id]
	if !ok {
		return nil, ErrUnknownPlayer
	}
	now := r.clock()
	if attacker.IsStunned(now) {
		return nil, ErrStunned
	}

	var hits []HitResult
	for _, victimID := range r.playerIDs() {
		victim := r.players[victimID]
		if victim == attacker || !r.started {
			continue
		}
		if !checkHit(r.rules, attacker, victim) {
			continue
		}

		res := applyHit(r.rules, attacker, victim, now)
		hits = append(hits, res)
		r.events.EmitSimple(EventTypeHit, r.code, attacker.ID, HitPayload{
			AttackerID: res.AttackerID,
			VictimID:   res.VictimID,
			Damage:     res.Damage,
			VictimHP:   res.VictimHP,
		})

		if res.Killed {
			r.endMatchLocked(attacker.ID, victim.ID)
		}
	}

	r.broadcastStateLocked(now)
	return hits, nil
}

// endMatchLocked flips the room to ended and announces the winner. The
// started guard in Attack makes this fire once per match.
func (r *Room) endMatchLocked(winner, loser string) {
	r.started = false
	r.ended = true

	log.Printf("🏆 Room %s: %s defeated %s", r.code, winner, loser)
	r.events.EmitSimple(EventTypeGameOver, r.code, winner, GameOverPayload{Winner: winner, Loser: loser})
	r.broadcastLocked(protocol.EventGameOver, protocol.GameOverMsg{Winner: winner, Loser: loser})
}

// ReadyForVoice tells the host that the joiner can receive a voice offer.
func (r *Room) ReadyForVoice(id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, err := r.playerLocked(id); err != nil {
		return err
	}
	if id == r.hostID {
		return nil
	}
	r.notifier.Notify(r.hostID, protocol.EventPlayerJoinedVoice, id)
	return nil
}

// HasPlayer reports whether id is seated here.
func (r *Room) HasPlayer(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.players[id]
	return ok && !r.closed
}

func (r *Room) playerLocked(id string) (*Player, error) {
	if r.closed {
		return nil, ErrRoomNotFound
	}
	p, ok := r.players[id]
	if !ok {
		return nil, ErrUnknownPlayer
	}
	return p, nil
}

// addPlayerLocked seats a new player. Callers check capacity first.
func (r *Room) addPlayerLocked(id, color string, x, y float64) *Player {
	p := newPlayer(id, color, x, y, r.rules.MaxHealth)
	r.players[id] = p
	r.events.EmitSimple(EventTypePlayerJoin, r.code, id, PlayerJoinPayload{
		Color:  color,
		IsHost: id == r.hostID,
		SpawnX: x,
		SpawnY: y,
	})
	return p
}

// removePlayerLocked vacates a seat. With one duelist gone any running
// match is over, so the room returns to the lobby.
func (r *Room) removePlayerLocked(id, reason string) bool {
	if _, ok := r.players[id]; !ok {
		return false
	}
	delete(r.players, id)
	r.started = false
	r.ended = false
	r.events.EmitSimple(EventTypePlayerLeave, r.code, id, PlayerLeavePayload{Reason: reason})
	return true
}

// closeLocked tears the room down and notifies whoever is still seated.
func (r *Room) closeLocked(reason string) []string {
	remaining := r.playerIDs()
	for _, id := range remaining {
		r.notifier.Notify(id, protocol.EventKicked, nil)
	}
	r.players = make(map[string]*Player)
	r.started = false
	r.closed = true
	r.events.EmitSimple(EventTypeRoomClosed, r.code, "", RoomClosedPayload{Reason: reason})
	return remaining
}
