package api

import (
	"net/http/httptest"
	"testing"
	"time"
)

func TestIPRateLimiter(t *testing.T) {
	rl := NewIPRateLimiter(RateLimitConfig{RequestsPerSecond: 0.001, Burst: 2, CleanupInterval: time.Minute})
	defer rl.Stop()

	if !rl.Allow("1.2.3.4") || !rl.Allow("1.2.3.4") {
		t.Fatal("Burst should be allowed")
	}
	if rl.Allow("1.2.3.4") {
		t.Error("Third request should be limited")
	}
	if !rl.Allow("5.6.7.8") {
		t.Error("Limits are per IP")
	}

	stats := rl.GetStats()
	if stats["allowed"] != 3 || stats["rejected"] != 1 {
		t.Errorf("Unexpected stats %v", stats)
	}

	// Stop is idempotent
	rl.Stop()
}

func TestIPRateLimiterCleanup(t *testing.T) {
	rl := NewIPRateLimiter(RateLimitConfig{RequestsPerSecond: 1, Burst: 1, CleanupInterval: time.Minute})
	defer rl.Stop()

	rl.Allow("1.2.3.4")
	rl.cleanup(time.Now())
	if _, ok := rl.limiters.Load("1.2.3.4"); !ok {
		t.Fatal("Fresh limiter should survive cleanup")
	}

	rl.cleanup(time.Now().Add(time.Hour))
	if _, ok := rl.limiters.Load("1.2.3.4"); ok {
		t.Error("Stale limiter should be removed")
	}
}

func TestWebSocketRateLimiter(t *testing.T) {
	wrl := NewWebSocketRateLimiter(2)

	if !wrl.Allow("ip") || !wrl.Allow("ip") {
		t.Fatal("Two connections should be allowed")
	}
	if wrl.Allow("ip") {
		t.Error("Third connection should be rejected")
	}
	if wrl.GetConnectionCount("ip") != 2 {
		t.Errorf("Expected count 2, got %d", wrl.GetConnectionCount("ip"))
	}

	wrl.Release("ip")
	if !wrl.Allow("ip") {
		t.Error("Released slot should be reusable")
	}

	wrl.Release("ip")
	wrl.Release("ip")
	wrl.Release("ip") // extra release is harmless
	if wrl.GetConnectionCount("ip") != 0 {
		t.Errorf("Expected count 0, got %d", wrl.GetConnectionCount("ip"))
	}
	if _, ok := wrl.connections["ip"]; ok {
		t.Error("Empty entries should be removed")
	}
	if wrl.GetStats()["rejected"] != 1 {
		t.Errorf("Expected 1 rejection, got %v", wrl.GetStats())
	}
}

func TestClientIP(t *testing.T) {
	trusted := NewClientIPResolver([]string{"10.0.0.1", "172.16.0.0/12", "not-an-ip"})

	tests := []struct {
		name     string
		resolver *ClientIPResolver
		headers  map[string]string
		remote   string
		want     string
	}{
		{"remote addr", trusted, nil, "10.0.0.1:5555", "10.0.0.1"},
		{"no port", trusted, nil, "10.0.0.9", "10.0.0.9"},
		{"untrusted peer ignores x-forwarded-for", trusted, map[string]string{"X-Forwarded-For": "1.1.1.1"}, "8.8.8.8:5555", "8.8.8.8"},
		{"untrusted peer ignores x-real-ip", trusted, map[string]string{"X-Real-IP": "4.4.4.4"}, "8.8.8.8:5555", "8.8.8.8"},
		{"no trusted proxies", NewClientIPResolver(nil), map[string]string{"X-Forwarded-For": "1.1.1.1"}, "10.0.0.1:5555", "10.0.0.1"},
		{"nil resolver", nil, map[string]string{"X-Forwarded-For": "1.1.1.1"}, "10.0.0.1:5555", "10.0.0.1"},
		{"trusted single hop", trusted, map[string]string{"X-Forwarded-For": " 3.3.3.3 "}, "10.0.0.1:5555", "3.3.3.3"},
		{"spoofed left entries skipped", trusted, map[string]string{"X-Forwarded-For": "9.9.9.9, 2.2.2.2"}, "10.0.0.1:5555", "2.2.2.2"},
		{"trusted hops skipped", trusted, map[string]string{"X-Forwarded-For": "2.2.2.2, 172.20.1.1"}, "10.0.0.1:5555", "2.2.2.2"},
		{"all hops trusted", trusted, map[string]string{"X-Forwarded-For": "172.16.0.5, 172.20.1.1"}, "10.0.0.1:5555", "172.16.0.5"},
		{"trusted x-real-ip", trusted, map[string]string{"X-Real-IP": "4.4.4.4"}, "10.0.0.1:5555", "4.4.4.4"},
		{"trusted cidr peer", trusted, map[string]string{"X-Forwarded-For": "5.5.5.5"}, "172.31.255.1:80", "5.5.5.5"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest("GET", "/", nil)
			r.RemoteAddr = tt.remote
			for k, v := range tt.headers {
				r.Header.Set(k, v)
			}
			if got := tt.resolver.ClientIP(r); got != tt.want {
				t.Errorf("ClientIP() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestOriginPolicy(t *testing.T) {
	p := NewOriginPolicy([]string{"https://Duel.example/"})

	tests := []struct {
		origin string
		host   string
		want   bool
	}{
		{"", "game.example", true},
		{"http://localhost:5173", "game.example", true},
		{"http://127.0.0.1:3000", "game.example", true},
		{"https://game.example", "game.example", true},
		{"https://duel.example", "game.example", true},
		{"https://evil.example", "game.example", false},
		{"https://localhost.evil.example", "game.example", false},
		{"not a url", "game.example", false},
	}

	for _, tt := range tests {
		t.Run(tt.origin, func(t *testing.T) {
			if got := p.IsAllowed(tt.origin, tt.host); got != tt.want {
				t.Errorf("IsAllowed(%q, %q) = %v, want %v", tt.origin, tt.host, got, tt.want)
			}
		})
	}
}
