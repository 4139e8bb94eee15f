// Package config provides centralized configuration management.
// Defaults live here; environment variables override them in the *FromEnv
// helpers. The .env file itself is loaded by cmd/server.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// =============================================================================
// GAME CONFIGURATION
// =============================================================================

// GameConfig holds simulation tuning. Every room in the process shares it.
type GameConfig struct {
	TickRate       int           // Simulation ticks per second
	MoveStep       float64       // Units moved per pressed key per tick
	WeaponReach    float64       // Length of the attack segment
	HitDamage      int           // Health removed per hit
	StunDuration   time.Duration // Victim cannot move or attack for this long
	KnockbackForce float64       // Impulse added along the attacker's facing angle
	KnockbackDecay float64       // Multiplier applied to knockback every tick
	MaxRooms       int           // Hard cap on live rooms (codes are 1000-9999)
}

// DefaultGame returns the default game configuration.
func DefaultGame() GameConfig {
	return GameConfig{
		TickRate:       60,
		MoveStep:       5,
		WeaponReach:    100,
		HitDamage:      10,
		StunDuration:   200 * time.Millisecond,
		KnockbackForce: 15,
		KnockbackDecay: 0.9,
		MaxRooms:       9000,
	}
}

// GameFromEnv returns game configuration with environment variable overrides.
func GameFromEnv() GameConfig {
	cfg := DefaultGame()

	if tr := getEnvInt("TICK_RATE", 0); tr > 0 {
		cfg.TickRate = tr
	}
	if ms := getEnvFloat("MOVE_STEP", 0); ms > 0 {
		cfg.MoveStep = ms
	}
	if wr := getEnvFloat("WEAPON_REACH", 0); wr > 0 {
		cfg.WeaponReach = wr
	}
	if stun := getEnvInt("STUN_MS", 0); stun > 0 {
		cfg.StunDuration = time.Duration(stun) * time.Millisecond
	}
	if mr := getEnvInt("MAX_ROOMS", 0); mr > 0 && mr < cfg.MaxRooms {
		cfg.MaxRooms = mr
	}

	return cfg
}

// =============================================================================
// SERVER CONFIGURATION
// =============================================================================

// ServerConfig holds HTTP and WebSocket settings.
type ServerConfig struct {
	Port                int
	StaticDir           string   // Optional directory served at "/"
	AllowedOrigins      []string // Extra origins accepted for CORS and WebSocket upgrades
	MaxConnections      int      // Total concurrent WebSocket connections
	MaxConnectionsPerIP int
	RequestsPerSecond   float64 // HTTP rate limit per IP
	RequestBurst        int
	TrustedProxies      []string // Proxy IPs/CIDRs allowed to set X-Forwarded-For
}

// DefaultServer returns the default server configuration.
func DefaultServer() ServerConfig {
	return ServerConfig{
		Port:                3000,
		MaxConnections:      500,
		MaxConnectionsPerIP: 10,
		RequestsPerSecond:   10,
		RequestBurst:        20,
	}
}

// ServerFromEnv returns server configuration with environment variable overrides.
func ServerFromEnv() ServerConfig {
	cfg := DefaultServer()

	if p := getEnvInt("PORT", 0); p > 0 {
		cfg.Port = p
	}
	cfg.StaticDir = os.Getenv("STATIC_DIR")
	if origins := getEnvList("ALLOWED_ORIGINS"); len(origins) > 0 {
		cfg.AllowedOrigins = origins
	}
	if mc := getEnvInt("MAX_CONNECTIONS", 0); mc > 0 {
		cfg.MaxConnections = mc
	}
	if mc := getEnvInt("MAX_CONNECTIONS_PER_IP", 0); mc > 0 {
		cfg.MaxConnectionsPerIP = mc
	}
	cfg.TrustedProxies = getEnvList("TRUSTED_PROXIES")

	return cfg
}

// =============================================================================
// WIRE CONFIGURATION
// =============================================================================

// WireConfig controls how events are framed and how fast clients may send them.
type WireConfig struct {
	StateEncoding     string  // "json" or "msgpack" for per-tick state frames
	MessagesPerSecond float64 // Inbound events per connection
	MessageBurst      int
}

// DefaultWire returns the default wire configuration.
// The browser client emits an aim event every animation frame on top of
// key events, so the budget is well above 60/s.
func DefaultWire() WireConfig {
	return WireConfig{
		StateEncoding:     "json",
		MessagesPerSecond: 200,
		MessageBurst:      400,
	}
}

// WireFromEnv returns wire configuration with environment variable overrides.
func WireFromEnv() WireConfig {
	cfg := DefaultWire()

	if enc := os.Getenv("STATE_ENCODING"); enc != "" {
		cfg.StateEncoding = strings.ToLower(enc)
	}
	if mps := getEnvFloat("MESSAGES_PER_SECOND", 0); mps > 0 {
		cfg.MessagesPerSecond = mps
	}
	if mb := getEnvInt("MESSAGE_BURST", 0); mb > 0 {
		cfg.MessageBurst = mb
	}

	return cfg
}

// =============================================================================
// DEBUG CONFIGURATION
// =============================================================================

// DebugConfig configures the localhost observability server.
type DebugConfig struct {
	Enabled       bool
	ListenAddr    string
	BasicAuthUser string
	BasicAuthPass string
	AllowExternal bool // Permit a non-loopback ListenAddr
}

// DefaultDebug returns safe defaults.
func DefaultDebug() DebugConfig {
	return DebugConfig{
		Enabled:    true,
		ListenAddr: "127.0.0.1:6060",
	}
}

// DebugFromEnv returns debug configuration with environment variable overrides.
func DebugFromEnv() DebugConfig {
	cfg := DefaultDebug()

	if os.Getenv("DISABLE_DEBUG_SERVER") == "true" {
		cfg.Enabled = false
	}
	if addr := os.Getenv("DEBUG_ADDR"); addr != "" {
		cfg.ListenAddr = addr
	}
	cfg.AllowExternal = os.Getenv("ALLOW_DEBUG_EXTERNAL") == "true"
	cfg.BasicAuthUser = os.Getenv("DEBUG_USER")
	cfg.BasicAuthPass = os.Getenv("DEBUG_PASS")

	return cfg
}

// =============================================================================
// COMPLETE APP CONFIGURATION
// =============================================================================

// AppConfig holds the complete application configuration.
type AppConfig struct {
	Game         GameConfig
	Server       ServerConfig
	Wire         WireConfig
	Debug        DebugConfig
	EventLogPath string // Empty disables the match event log
}

// Load returns the complete configuration with environment overrides.
func Load() AppConfig {
	return AppConfig{
		Game:         GameFromEnv(),
		Server:       ServerFromEnv(),
		Wire:         WireFromEnv(),
		Debug:        DebugFromEnv(),
		EventLogPath: getEnvWithDefault("EVENT_LOG_PATH", "events.jsonl"),
	}
}

// =============================================================================
// HELPER FUNCTIONS
// =============================================================================

func getEnvWithDefault(key, defaultVal string) string {
	if v, ok := os.LookupEnv(key); ok {
		return v
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return defaultVal
}

func getEnvFloat(key string, defaultVal float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return defaultVal
}

func getEnvList(key string) []string {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
