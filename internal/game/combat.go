package game

import (
	"math"
	"time"
)

// HitResult describes one landed attack.
type HitResult struct {
	AttackerID string
	VictimID   string
	Damage     int
	VictimHP   int
	Killed     bool
}

// checkHit tests the attacker's weapon segment against the victim's body.
func checkHit(rules Rules, attacker, victim *Player) bool {
	seg := WeaponSegment(attacker.X, attacker.Y, rules.BodySize, attacker.Angle, rules.WeaponReach)
	return SegmentIntersectsRect(seg, victim.Body(rules.BodySize))
}

// applyHit deals damage, pushes the victim along the attacker's facing
// angle and stuns it. Health is clamped at zero.
func applyHit(rules Rules, attacker, victim *Player, now time.Time) HitResult {
	victim.Health -= rules.HitDamage
	if victim.Health < 0 {
		victim.Health = 0
	}

	victim.Knockback.X += math.Cos(attacker.Angle) * rules.KnockbackForce
	victim.Knockback.Y += math.Sin(attacker.Angle) * rules.KnockbackForce
	victim.StunnedUntil = now.Add(rules.StunDuration)

	return HitResult{
		AttackerID: attacker.ID,
		VictimID:   victim.ID,
		Damage:     rules.HitDamage,
		VictimHP:   victim.Health,
		Killed:     victim.Health == 0,
	}
}
