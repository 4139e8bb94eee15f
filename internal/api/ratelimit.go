package api

import (
	"log"
	"net"
	"net/http"
	"net/netip"
	"net/url"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"
)

// RateLimitConfig configures the IP-based rate limiter
type RateLimitConfig struct {
	RequestsPerSecond float64       // Requests allowed per second per IP
	Burst             int           // Maximum burst size
	CleanupInterval   time.Duration // How often to clean up stale limiters
	TrustedProxies    []string      // Peers whose forwarding headers are believed
}

// DefaultRateLimitConfig returns production-safe defaults
var DefaultRateLimitConfig = RateLimitConfig{
	RequestsPerSecond: 10,              // 10 requests per second per IP
	Burst:             20,              // Allow burst of 20
	CleanupInterval:   5 * time.Minute, // Clean up every 5 minutes
}

// ipLimiterEntry tracks per-IP rate limiting state
type ipLimiterEntry struct {
	limiter  *rate.Limiter
	lastSeen atomic.Int64 // unix nano
}

// IPRateLimiter provides IP-based rate limiting for HTTP requests
type IPRateLimiter struct {
	limiters sync.Map // map[string]*ipLimiterEntry
	config   RateLimitConfig
	clientIP *ClientIPResolver
	stopChan chan struct{}
	stopOnce sync.Once

	// Stats for monitoring
	rejectedCount uint64 // atomic
	allowedCount  uint64 // atomic
}

// NewIPRateLimiter creates a new IP-based rate limiter and starts its
// cleanup goroutine. Call Stop to release it.
func NewIPRateLimiter(cfg RateLimitConfig) *IPRateLimiter {
	if cfg.CleanupInterval <= 0 {
		cfg.CleanupInterval = DefaultRateLimitConfig.CleanupInterval
	}
	rl := &IPRateLimiter{
		config:   cfg,
		clientIP: NewClientIPResolver(cfg.TrustedProxies),
		stopChan: make(chan struct{}),
	}

	go rl.cleanupLoop()

	return rl
}

// Stop stops the rate limiter cleanup goroutine
func (rl *IPRateLimiter) Stop() {
	rl.stopOnce.Do(func() {
		close(rl.stopChan)
	})
}

// getLimiter returns or creates a rate limiter for the given IP
func (rl *IPRateLimiter) getLimiter(ip string) *rate.Limiter {
	now := time.Now().UnixNano()

	if entry, ok := rl.limiters.Load(ip); ok {
		e := entry.(*ipLimiterEntry)
		e.lastSeen.Store(now)
		return e.limiter
	}

	entry := &ipLimiterEntry{
		limiter: rate.NewLimiter(rate.Limit(rl.config.RequestsPerSecond), rl.config.Burst),
	}
	entry.lastSeen.Store(now)

	actual, _ := rl.limiters.LoadOrStore(ip, entry)
	return actual.(*ipLimiterEntry).limiter
}

// cleanupLoop periodically removes stale rate limiters
func (rl *IPRateLimiter) cleanupLoop() {
	ticker := time.NewTicker(rl.config.CleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-rl.stopChan:
			return
		case <-ticker.C:
			rl.cleanup(time.Now())
		}
	}
}

// cleanup removes rate limiters that haven't been used recently
func (rl *IPRateLimiter) cleanup(now time.Time) {
	cutoff := now.Add(-rl.config.CleanupInterval * 2).UnixNano()

	rl.limiters.Range(func(key, value interface{}) bool {
		entry := value.(*ipLimiterEntry)
		if entry.lastSeen.Load() < cutoff {
			rl.limiters.Delete(key)
		}
		return true
	})
}

// Allow checks if a request from the given IP should be allowed
func (rl *IPRateLimiter) Allow(ip string) bool {
	limiter := rl.getLimiter(ip)
	if limiter.Allow() {
		atomic.AddUint64(&rl.allowedCount, 1)
		return true
	}
	atomic.AddUint64(&rl.rejectedCount, 1)
	return false
}

// Middleware returns an HTTP middleware for rate limiting
func (rl *IPRateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ip := rl.clientIP.ClientIP(r)
		if !rl.Allow(ip) {
			RecordConnectionRejected("rate_limit")
			w.Header().Set("Retry-After", "1")
			http.Error(w, "Too Many Requests", http.StatusTooManyRequests)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// GetStats returns rate limiter statistics
func (rl *IPRateLimiter) GetStats() map[string]uint64 {
	return map[string]uint64{
		"allowed":  atomic.LoadUint64(&rl.allowedCount),
		"rejected": atomic.LoadUint64(&rl.rejectedCount),
	}
}

// ClientIPResolver extracts the client IP from a request. Forwarding
// headers are honoured only when the direct peer is a trusted proxy.
type ClientIPResolver struct {
	trusted []netip.Prefix
}

// NewClientIPResolver accepts proxy addresses or CIDR ranges. Invalid
// entries are logged and skipped.
func NewClientIPResolver(proxies []string) *ClientIPResolver {
	c := &ClientIPResolver{}
	for _, p := range proxies {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		if strings.Contains(p, "/") {
			prefix, err := netip.ParsePrefix(p)
			if err != nil {
				log.Printf("⚠️ Ignoring trusted proxy %q: %v", p, err)
				continue
			}
			c.trusted = append(c.trusted, prefix.Masked())
			continue
		}
		addr, err := netip.ParseAddr(p)
		if err != nil {
			log.Printf("⚠️ Ignoring trusted proxy %q: %v", p, err)
			continue
		}
		addr = addr.Unmap()
		c.trusted = append(c.trusted, netip.PrefixFrom(addr, addr.BitLen()))
	}
	return c
}

// ClientIP returns the address to key limits on. Without a trusted peer it
// is the connection's remote address. Behind trusted proxies it is the
// right-most X-Forwarded-For entry that is not itself a trusted proxy,
// falling back to X-Real-IP.
func (c *ClientIPResolver) ClientIP(r *http.Request) string {
	remote, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		remote = r.RemoteAddr
	}
	if !c.isTrusted(remote) {
		return remote
	}

	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		hops := strings.Split(xff, ",")
		for i := len(hops) - 1; i >= 0; i-- {
			hop := strings.TrimSpace(hops[i])
			if hop == "" {
				continue
			}
			if i == 0 || !c.isTrusted(hop) {
				return hop
			}
		}
	}

	if xri := strings.TrimSpace(r.Header.Get("X-Real-IP")); xri != "" {
		return xri
	}
	return remote
}

func (c *ClientIPResolver) isTrusted(ip string) bool {
	if c == nil || len(c.trusted) == 0 {
		return false
	}
	addr, err := netip.ParseAddr(ip)
	if err != nil {
		return false
	}
	addr = addr.Unmap()
	for _, p := range c.trusted {
		if p.Contains(addr) {
			return true
		}
	}
	return false
}

// WebSocketRateLimiter limits concurrent WebSocket connections per IP
type WebSocketRateLimiter struct {
	mu          sync.Mutex
	connections map[string]int
	maxPerIP    int

	// Stats
	rejectedCount uint64 // atomic
}

// NewWebSocketRateLimiter creates a WebSocket connection limiter
func NewWebSocketRateLimiter(maxPerIP int) *WebSocketRateLimiter {
	return &WebSocketRateLimiter{
		connections: make(map[string]int),
		maxPerIP:    maxPerIP,
	}
}

// Allow reserves a connection slot for this IP if one is free
func (wrl *WebSocketRateLimiter) Allow(ip string) bool {
	wrl.mu.Lock()
	defer wrl.mu.Unlock()

	if wrl.connections[ip] >= wrl.maxPerIP {
		atomic.AddUint64(&wrl.rejectedCount, 1)
		return false
	}
	wrl.connections[ip]++
	return true
}

// Release frees a slot reserved by Allow. Entries reaching zero are removed.
func (wrl *WebSocketRateLimiter) Release(ip string) {
	wrl.mu.Lock()
	defer wrl.mu.Unlock()

	n, ok := wrl.connections[ip]
	if !ok {
		return
	}
	if n <= 1 {
		delete(wrl.connections, ip)
		return
	}
	wrl.connections[ip] = n - 1
}

// GetConnectionCount returns current connection count for an IP
func (wrl *WebSocketRateLimiter) GetConnectionCount(ip string) int {
	wrl.mu.Lock()
	defer wrl.mu.Unlock()
	return wrl.connections[ip]
}

// GetStats returns WebSocket rate limiter statistics
func (wrl *WebSocketRateLimiter) GetStats() map[string]uint64 {
	return map[string]uint64{
		"rejected": atomic.LoadUint64(&wrl.rejectedCount),
	}
}

// OriginPolicy decides which browser origins may open a WebSocket.
type OriginPolicy struct {
	allowed map[string]bool
}

// NewOriginPolicy builds a policy that accepts the given origins in
// addition to localhost and same-host requests.
func NewOriginPolicy(origins []string) *OriginPolicy {
	p := &OriginPolicy{allowed: make(map[string]bool, len(origins))}
	for _, o := range origins {
		p.allowed[strings.TrimRight(strings.ToLower(o), "/")] = true
	}
	return p
}

// Check is suitable for websocket.Upgrader.CheckOrigin.
func (p *OriginPolicy) Check(r *http.Request) bool {
	return p.IsAllowed(r.Header.Get("Origin"), r.Host)
}

// IsAllowed reports whether origin may connect to a server reached at host.
// Non-browser clients send no Origin header and are allowed.
func (p *OriginPolicy) IsAllowed(origin, host string) bool {
	if origin == "" {
		return true
	}

	u, err := url.Parse(origin)
	if err != nil || u.Host == "" {
		return false
	}

	// Allow localhost with any port
	switch u.Hostname() {
	case "localhost", "127.0.0.1", "::1":
		return true
	}

	// Same host the page was served from
	if strings.EqualFold(u.Host, host) {
		return true
	}

	return p.allowed[strings.TrimRight(strings.ToLower(origin), "/")]
}

// corsOrigins returns the CORS allow-list: localhost on any port plus the
// configured origins.
func corsOrigins(extra []string) []string {
	out := []string{
		"http://localhost:*",
		"http://127.0.0.1:*",
		"https://localhost:*",
	}
	return append(out, extra...)
}
