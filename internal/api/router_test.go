package api

import (
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func testRouter(t *testing.T, cfg RouterConfig) *httptest.Server {
	t.Helper()
	if cfg.RateLimiter == nil {
		rlCfg := RateLimitConfig{RequestsPerSecond: 1000, Burst: 1000, CleanupInterval: time.Minute}
		if cfg.RateLimitConfig != nil {
			rlCfg = *cfg.RateLimitConfig
		}
		cfg.RateLimiter = NewIPRateLimiter(rlCfg)
		t.Cleanup(cfg.RateLimiter.Stop)
	}
	cfg.DisableLogging = true
	ts := httptest.NewServer(NewRouter(cfg))
	t.Cleanup(ts.Close)
	return ts
}

func TestHealth(t *testing.T) {
	ts := testRouter(t, RouterConfig{})

	resp, err := http.Get(ts.URL + "/health")
	if err != nil {
		t.Fatalf("Request failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Errorf("Expected 200, got %d", resp.StatusCode)
	}
	body, _ := io.ReadAll(resp.Body)
	if string(body) != "OK" {
		t.Errorf("Expected body OK, got %q", body)
	}
}

func TestRouterRateLimit(t *testing.T) {
	ts := testRouter(t, RouterConfig{
		RateLimitConfig: &RateLimitConfig{RequestsPerSecond: 0.001, Burst: 1, CleanupInterval: time.Minute},
	})

	resp, err := http.Get(ts.URL + "/health")
	if err != nil {
		t.Fatalf("Request failed: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("First request: expected 200, got %d", resp.StatusCode)
	}

	resp, err = http.Get(ts.URL + "/health")
	if err != nil {
		t.Fatalf("Request failed: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusTooManyRequests {
		t.Errorf("Second request: expected 429, got %d", resp.StatusCode)
	}
	if resp.Header.Get("Retry-After") != "1" {
		t.Error("Expected Retry-After header")
	}
}

func TestRouterStaticDir(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "index.html"), []byte("<h1>duel</h1>"), 0644); err != nil {
		t.Fatal(err)
	}
	ts := testRouter(t, RouterConfig{StaticDir: dir})

	resp, err := http.Get(ts.URL + "/")
	if err != nil {
		t.Fatalf("Request failed: %v", err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK || string(body) != "<h1>duel</h1>" {
		t.Errorf("Expected index.html, got %d %q", resp.StatusCode, body)
	}

	// Health still wins over the static mount
	resp, err = http.Get(ts.URL + "/health")
	if err != nil {
		t.Fatalf("Request failed: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("Expected 200 from /health, got %d", resp.StatusCode)
	}
}

func TestRouterNoStaticDir(t *testing.T) {
	ts := testRouter(t, RouterConfig{})

	resp, err := http.Get(ts.URL + "/index.html")
	if err != nil {
		t.Fatalf("Request failed: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("Expected 404 without static dir, got %d", resp.StatusCode)
	}
}

func TestRouterCORS(t *testing.T) {
	ts := testRouter(t, RouterConfig{CORSOrigins: []string{"https://duel.example"}})

	tests := []struct {
		origin  string
		allowed bool
	}{
		{"http://localhost:5173", true},
		{"https://duel.example", true},
		{"https://evil.example", false},
	}

	for _, tt := range tests {
		t.Run(tt.origin, func(t *testing.T) {
			req, _ := http.NewRequest(http.MethodOptions, ts.URL+"/health", nil)
			req.Header.Set("Origin", tt.origin)
			req.Header.Set("Access-Control-Request-Method", "GET")

			resp, err := http.DefaultClient.Do(req)
			if err != nil {
				t.Fatalf("Request failed: %v", err)
			}
			resp.Body.Close()

			got := resp.Header.Get("Access-Control-Allow-Origin")
			if tt.allowed && got != tt.origin {
				t.Errorf("Expected origin echoed, got %q", got)
			}
			if !tt.allowed && got != "" {
				t.Errorf("Expected no CORS header, got %q", got)
			}
		})
	}
}
