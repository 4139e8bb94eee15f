package main

import (
	"testing"
	"time"

	"cube-duel/internal/config"
	"cube-duel/internal/game"
)

func TestRulesFromDefaults(t *testing.T) {
	got := rulesFrom(config.DefaultGame())
	if got != game.DefaultRules() {
		t.Errorf("Default config should map to default rules:\n got  %+v\n want %+v", got, game.DefaultRules())
	}
}

func TestRulesFromOverrides(t *testing.T) {
	cfg := config.DefaultGame()
	cfg.TickRate = 30
	cfg.StunDuration = 500 * time.Millisecond
	cfg.MaxRooms = 10

	got := rulesFrom(cfg)
	if got.TickRate != 30 || got.StunDuration != 500*time.Millisecond || got.MaxRooms != 10 {
		t.Errorf("Overrides not applied: %+v", got)
	}
	if got.BodySize != 50 || got.MaxHealth != 100 {
		t.Errorf("Fixed rules changed: %+v", got)
	}
}
