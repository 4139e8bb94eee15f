package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"cube-duel/internal/api"
	"cube-duel/internal/config"
	"cube-duel/internal/game"
	"cube-duel/internal/protocol"

	"github.com/joho/godotenv"
)

func main() {
	// Load .env file from parent directory
	if err := godotenv.Load("../.env"); err != nil {
		// Try current directory as fallback
		if err := godotenv.Load(".env"); err != nil {
			log.Println("💡 No .env file found, using environment variables only")
		}
	} else {
		log.Println("✅ Loaded environment from ../.env")
	}

	log.Println("🎮 ================================")
	log.Println("🎮  CUBE DUEL - GO SERVER")
	log.Println("🎮 ================================")

	appConfig := config.Load()
	serverCfg := appConfig.Server
	wireCfg := appConfig.Wire

	encoding, err := protocol.ParseEncoding(wireCfg.StateEncoding)
	if err != nil {
		log.Printf("⚠️ %v, falling back to json", err)
		encoding = protocol.EncodingJSON
	}

	rules := rulesFrom(appConfig.Game)
	log.Printf("🎮 Config: %d TPS, step %.0f, reach %.0f, stun %v, state as %s",
		rules.TickRate, rules.MoveStep, rules.WeaponReach, rules.StunDuration, encoding)

	// Start event log
	var events *game.EventLog
	if appConfig.EventLogPath != "" {
		events = game.NewEventLog()
		if err := events.Start(appConfig.EventLogPath); err != nil {
			log.Printf("⚠️ Event log disabled: %v", err)
			events = nil
		} else {
			log.Printf("📝 Event log: %s", appConfig.EventLogPath)
		}
	}

	// The hub notifies the registry's rooms and dispatches into the
	// registry, so it is created first and bound afterwards.
	hub := api.NewHub(api.HubConfig{
		MaxConnections:      serverCfg.MaxConnections,
		MaxConnectionsPerIP: serverCfg.MaxConnectionsPerIP,
		MessagesPerSecond:   wireCfg.MessagesPerSecond,
		MessageBurst:        wireCfg.MessageBurst,
		StateEncoding:       encoding,
		AllowedOrigins:      serverCfg.AllowedOrigins,
		TrustedProxies:      serverCfg.TrustedProxies,
	})
	registry := game.NewRegistry(game.RegistryConfig{
		Rules:    rules,
		Notifier: hub,
		Events:   events,
	})
	hub.Bind(registry)

	engine := game.NewEngine(registry)
	engine.OnTick = func(stats game.TickStats) {
		api.RecordTick(stats)
		api.UpdateEventLogStats(events.Counts())
	}

	server := api.NewServer(api.RouterConfig{
		RateLimitConfig: &api.RateLimitConfig{
			RequestsPerSecond: serverCfg.RequestsPerSecond,
			Burst:             serverCfg.RequestBurst,
			CleanupInterval:   api.DefaultRateLimitConfig.CleanupInterval,
			TrustedProxies:    serverCfg.TrustedProxies,
		},
		CORSOrigins: serverCfg.AllowedOrigins,
		StaticDir:   serverCfg.StaticDir,
	}, hub)

	debugServer := api.StartDebugServer(appConfig.Debug, registry, map[string]api.StatsFunc{
		"server":    server.Stats,
		"event_log": func() interface{} { return events.GetStats() },
		"engine":    func() interface{} { return map[string]uint64{"ticks": engine.TickCount()} },
	})

	engine.Start()

	go func() {
		addr := ":" + strconv.Itoa(serverCfg.Port)
		if serverCfg.StaticDir != "" {
			log.Printf("📁 Serving client from %s", serverCfg.StaticDir)
		}
		if err := server.Start(addr); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	// Wait for shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	log.Println("✅ Server ready! Press Ctrl+C to stop.")
	<-quit

	log.Println("🛑 Shutting down...")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := server.Stop(ctx); err != nil {
		log.Printf("⚠️ Server shutdown: %v", err)
	}
	if debugServer != nil {
		debugServer.Shutdown(ctx)
	}
	engine.Stop()
	events.Stop()
	log.Println("👋 Goodbye!")
}

// rulesFrom maps the game configuration onto the simulation ruleset.
func rulesFrom(cfg config.GameConfig) game.Rules {
	rules := game.DefaultRules()
	rules.TickRate = cfg.TickRate
	rules.MoveStep = cfg.MoveStep
	rules.WeaponReach = cfg.WeaponReach
	rules.HitDamage = cfg.HitDamage
	rules.StunDuration = cfg.StunDuration
	rules.KnockbackForce = cfg.KnockbackForce
	rules.KnockbackDecay = cfg.KnockbackDecay
	rules.MaxRooms = cfg.MaxRooms
	return rules
}
