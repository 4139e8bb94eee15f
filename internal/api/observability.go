package api

import (
	"log"
	"net"
	"net/http"
	"net/http/pprof"
	"time"

	"cube-duel/internal/config"
	"cube-duel/internal/game"
	"cube-duel/internal/protocol"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics with bounded cardinality (no per-room or per-player labels)
var (
	// Game engine metrics
	tickDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "game_tick_duration_seconds",
		Help:    "Time spent stepping every room once",
		Buckets: []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.025},
	})

	roomCount = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "game_room_count",
		Help: "Current number of live rooms",
	})

	playerCount = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "game_player_count",
		Help: "Current number of seated players",
	})

	hitsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "game_hits_total",
		Help: "Attacks that landed",
	})

	gameOversTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "game_over_total",
		Help: "Matches that ended with a knockout",
	})

	// Event log metrics
	eventLogTotal = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "event_log_events",
		Help: "Events queued to the match event log since start",
	})

	eventLogDropped = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "event_log_dropped_events",
		Help: "Events dropped due to rate limiting or buffer full",
	})

	// DoS detection metrics - use ONLY bounded label values
	connectionRejected = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "connection_rejected_total",
		Help: "Connections rejected by rate limiter or origin check",
	}, []string{"reason"}) // Bounded: "rate_limit", "origin", "ws_total_limit", "ws_ip_limit"

	// WebSocket metrics
	wsConnectionsActive = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "websocket_connections_active",
		Help: "Currently active WebSocket connections",
	})

	wsMessagesSent = promauto.NewCounter(prometheus.CounterOpts{
		Name: "websocket_messages_sent_total",
		Help: "Total WebSocket frames written",
	})

	wsMessagesDropped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "websocket_messages_dropped_total",
		Help: "Outbound frames dropped because a client's send buffer was full",
	})

	wsInbound = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "websocket_inbound_events_total",
		Help: "Inbound events by name",
	}, []string{"event"}) // Bounded: known event names or "unknown"

	wsInboundRejected = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "websocket_inbound_rejected_total",
		Help: "Inbound events dropped before or during dispatch",
	}, []string{"reason"}) // Bounded: "rate_limit", "malformed", "refused"
)

// knownEvents bounds the event label.
var knownEvents = map[string]bool{
	protocol.EventHost: true, protocol.EventJoin: true, protocol.EventStart: true,
	protocol.EventKick: true, protocol.EventExit: true, protocol.EventKeyDown: true,
	protocol.EventKeyUp: true, protocol.EventAim: true, protocol.EventAngle: true,
	protocol.EventAttack: true, protocol.EventReadyForVoice: true,
	protocol.EventOffer: true, protocol.EventAnswer: true, protocol.EventICECandidate: true,
}

// RoomInspector is the read-only view of the registry the debug server needs.
type RoomInspector interface {
	Summaries() []game.RoomSummary
	Snapshot(code string) (game.Snapshot, bool)
	Rules() game.Rules
}

// StatsFunc reports one component's counters for /debug/stats.
type StatsFunc func() interface{}

// NewDebugRouter builds the observability handler. Like NewRouter it has no
// side effects, so tests can mount it on httptest.
func NewDebugRouter(cfg config.DebugConfig, rooms RoomInspector, stats map[string]StatsFunc) http.Handler {
	r := chi.NewRouter()

	// pprof endpoints for profiling
	r.HandleFunc("/debug/pprof/", pprof.Index)
	r.HandleFunc("/debug/pprof/cmdline", pprof.Cmdline)
	r.HandleFunc("/debug/pprof/profile", pprof.Profile)
	r.HandleFunc("/debug/pprof/symbol", pprof.Symbol)
	r.HandleFunc("/debug/pprof/trace", pprof.Trace)
	r.HandleFunc("/debug/pprof/{name}", pprof.Index)

	// Prometheus metrics endpoint
	r.Handle("/metrics", promhttp.Handler())

	r.Get("/health", handleHealth)

	if rooms != nil {
		d := &debugHandlers{rooms: rooms}
		r.Get("/debug/rooms", d.handleRooms)
		r.Get("/debug/rooms/{code}/preview.png", d.handlePreview)
	}
	if len(stats) > 0 {
		r.Get("/debug/stats", handleStats(stats))
	}

	// Optional basic auth wrapper
	var handler http.Handler = r
	if cfg.BasicAuthUser != "" {
		handler = basicAuthMiddleware(cfg.BasicAuthUser, cfg.BasicAuthPass, r)
	}
	return handler
}

// StartDebugServer starts the internal observability server in the
// background. It returns nil when the server is disabled.
// The listen address is forced onto loopback unless AllowExternal is set.
func StartDebugServer(cfg config.DebugConfig, rooms RoomInspector, stats map[string]StatsFunc) *http.Server {
	if !cfg.Enabled {
		log.Println("📊 Debug server disabled")
		return nil
	}

	addr := debugListenAddr(cfg)
	srv := &http.Server{
		Addr:              addr,
		Handler:           NewDebugRouter(cfg, rooms, stats),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		log.Printf("📊 Debug server starting on %s", addr)
		log.Printf("   - pprof:   http://%s/debug/pprof/", addr)
		log.Printf("   - metrics: http://%s/metrics", addr)
		log.Printf("   - rooms:   http://%s/debug/rooms", addr)
		log.Printf("   - stats:   http://%s/debug/stats", addr)

		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("⚠️ Debug server error: %v", err)
		}
	}()

	return srv
}

// debugListenAddr keeps the debug server on loopback unless told otherwise.
func debugListenAddr(cfg config.DebugConfig) string {
	if cfg.AllowExternal {
		return cfg.ListenAddr
	}
	host, port, err := net.SplitHostPort(cfg.ListenAddr)
	if err != nil {
		log.Printf("⚠️ Invalid debug address %q, using 127.0.0.1:6060", cfg.ListenAddr)
		return "127.0.0.1:6060"
	}
	if host == "localhost" {
		return cfg.ListenAddr
	}
	if ip := net.ParseIP(host); ip != nil && ip.IsLoopback() {
		return cfg.ListenAddr
	}
	log.Println("⚠️ Debug server forced to localhost for security")
	return net.JoinHostPort("127.0.0.1", port)
}

// basicAuthMiddleware adds basic authentication to the handler
func basicAuthMiddleware(user, pass string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		u, p, ok := r.BasicAuth()
		if !ok || u != user || p != pass {
			w.Header().Set("WWW-Authenticate", `Basic realm="debug"`)
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RecordTick records engine tick metrics. Wire it to game.Engine.OnTick.
func RecordTick(stats game.TickStats) {
	tickDuration.Observe(stats.Duration.Seconds())
	roomCount.Set(float64(stats.Rooms))
	playerCount.Set(float64(stats.Players))
}

// UpdateEventLogStats mirrors the event log counters.
func UpdateEventLogStats(total, dropped uint64) {
	eventLogTotal.Set(float64(total))
	eventLogDropped.Set(float64(dropped))
}

// RecordConnectionRejected increments the rejection counter
// reason must be one of: "rate_limit", "origin", "ws_total_limit", "ws_ip_limit"
func RecordConnectionRejected(reason string) {
	connectionRejected.WithLabelValues(reason).Inc()
}

// UpdateWSConnections updates WebSocket connection count
func UpdateWSConnections(count int) {
	wsConnectionsActive.Set(float64(count))
}

func recordInbound(event string) {
	if !knownEvents[event] {
		event = "unknown"
	}
	wsInbound.WithLabelValues(event).Inc()
}

func recordInboundRejected(reason string) {
	wsInboundRejected.WithLabelValues(reason).Inc()
}

func recordHits(hits []game.HitResult) {
	for _, h := range hits {
		hitsTotal.Inc()
		if h.Killed {
			gameOversTotal.Inc()
		}
	}
}
