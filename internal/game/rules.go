package game

import "time"

// Field is the wrap-around play area. A coordinate past Max reappears at
// Min and vice versa.
type Field struct {
	MinX, MaxX float64
	MinY, MaxY float64
}

// Rules holds every tunable the simulation reads. These are
// server-authoritative and cannot be modified by clients.
type Rules struct {
	TickRate       int
	BodySize       float64 // Side of the square collision body
	MaxHealth      int
	MoveStep       float64
	WeaponReach    float64
	HitDamage      int
	StunDuration   time.Duration
	KnockbackForce float64
	KnockbackDecay float64
	Field          Field
	MaxRooms       int
}

const (
	minRoomCode = 1000
	maxRoomCode = 9999
	roomCodes   = maxRoomCode - minRoomCode + 1

	// MaxPlayersPerRoom is fixed: this is a duel.
	MaxPlayersPerRoom = 2

	// knockbackEpsilon snaps tiny residual impulses to zero.
	knockbackEpsilon = 0.01
)

// DefaultRules returns the standard duel ruleset.
func DefaultRules() Rules {
	return Rules{
		TickRate:       60,
		BodySize:       50,
		MaxHealth:      100,
		MoveStep:       5,
		WeaponReach:    100,
		HitDamage:      10,
		StunDuration:   200 * time.Millisecond,
		KnockbackForce: 15,
		KnockbackDecay: 0.9,
		Field:          Field{MinX: -50, MaxX: 850, MinY: -50, MaxY: 650},
		MaxRooms:       roomCodes,
	}
}

// withDefaults fills zero fields so partially specified rules stay usable.
func (r Rules) withDefaults() Rules {
	def := DefaultRules()
	if r.TickRate <= 0 {
		r.TickRate = def.TickRate
	}
	if r.BodySize <= 0 {
		r.BodySize = def.BodySize
	}
	if r.MaxHealth <= 0 {
		r.MaxHealth = def.MaxHealth
	}
	if r.MoveStep <= 0 {
		r.MoveStep = def.MoveStep
	}
	if r.WeaponReach <= 0 {
		r.WeaponReach = def.WeaponReach
	}
	if r.HitDamage <= 0 {
		r.HitDamage = def.HitDamage
	}
	if r.StunDuration <= 0 {
		r.StunDuration = def.StunDuration
	}
	if r.KnockbackDecay <= 0 || r.KnockbackDecay >= 1 {
		r.KnockbackDecay = def.KnockbackDecay
	}
	if r.Field == (Field{}) {
		r.Field = def.Field
	}
	if r.MaxRooms <= 0 || r.MaxRooms > roomCodes {
		r.MaxRooms = roomCodes
	}
	return r
}

// wrap teleports a coordinate that left [min, max] to the opposite edge.
func wrap(v, min, max float64) float64 {
	if v > max {
		return min
	}
	if v < min {
		return max
	}
	return v
}
