package game

import "time"

// Vec is a 2D vector.
type Vec struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Player is one duelist inside a room. All fields are guarded by the
// owning room's mutex.
type Player struct {
	ID           string
	X, Y         float64 // Top-left of the square body
	Angle        float64
	Color        string
	Health       int
	Keys         map[string]bool
	Knockback    Vec
	StunnedUntil time.Time
}

// PlayerState is the immutable per-player entry of a snapshot.
type PlayerState struct {
	ID        string          `json:"id"`
	X         float64         `json:"x"`
	Y         float64         `json:"y"`
	Angle     float64         `json:"angle"`
	Color     string          `json:"color"`
	Health    int             `json:"health"`
	Keys      map[string]bool `json:"keys,omitempty"`
	Knockback Vec             `json:"knockback"`
	Stunned   bool            `json:"stunned"`
}

// Snapshot maps connection identity to player state. It is what the
// state event carries.
type Snapshot map[string]PlayerState

// Movement keys. Both WASD and arrow keys are accepted; key names arrive
// lowercased from the protocol layer.
var (
	keysUp    = []string{"w", "arrowup"}
	keysDown  = []string{"s", "arrowdown"}
	keysLeft  = []string{"a", "arrowleft"}
	keysRight = []string{"d", "arrowright"}
)

func newPlayer(id, color string, x, y float64, health int) *Player {
	return &Player{
		ID:     id,
		X:      x,
		Y:      y,
		Color:  color,
		Health: health,
		Keys:   make(map[string]bool),
	}
}

// IsStunned reports whether the player is still inside a stun window.
func (p *Player) IsStunned(now time.Time) bool {
	return now.Before(p.StunnedUntil)
}

// Body returns the collision rectangle.
func (p *Player) Body(size float64) Rect {
	return Rect{X: p.X, Y: p.Y, W: size, H: size}
}

func (p *Player) pressed(names []string) bool {
	for _, k := range names {
		if p.Keys[k] {
			return true
		}
	}
	return false
}

// move applies one tick of key-driven movement.
func (p *Player) move(step float64) {
	if p.pressed(keysUp) {
		p.Y -= step
	}
	if p.pressed(keysDown) {
		p.Y += step
	}
	if p.pressed(keysLeft) {
		p.X -= step
	}
	if p.pressed(keysRight) {
		p.X += step
	}
}

// applyKnockback displaces the player by the current impulse, then decays it.
func (p *Player) applyKnockback(decay float64) {
	p.X += p.Knockback.X
	p.Y += p.Knockback.Y
	p.Knockback.X = decayComponent(p.Knockback.X, decay)
	p.Knockback.Y = decayComponent(p.Knockback.Y, decay)
}

func decayComponent(v, decay float64) float64 {
	v *= decay
	if v < knockbackEpsilon && v > -knockbackEpsilon {
		return 0
	}
	return v
}

// resetForMatch restores a player to fighting shape at match start.
func (p *Player) resetForMatch(health int) {
	p.Health = health
	p.Knockback = Vec{}
	p.StunnedUntil = time.Time{}
}

func (p *Player) state(now time.Time) PlayerState {
	var keys map[string]bool
	if len(p.Keys) > 0 {
		keys = make(map[string]bool, len(p.Keys))
		for k, v := range p.Keys {
			keys[k] = v
		}
	}
	return PlayerState{
		ID:        p.ID,
		X:         p.X,
		Y:         p.Y,
		Angle:     p.Angle,
		Color:     p.Color,
		Health:    p.Health,
		Keys:      keys,
		Knockback: p.Knockback,
		Stunned:   p.IsStunned(now),
	}
}
