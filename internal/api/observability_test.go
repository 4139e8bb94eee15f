package api

import (
	"context"
	"encoding/json"
	"image/png"
	"net/http"
	"net/http/httptest"
	"testing"

	"cube-duel/internal/config"
	"cube-duel/internal/game"
)

type nopNotifier struct{}

func (nopNotifier) Notify(string, string, interface{}) {}

func newDebugServer(t *testing.T, cfg config.DebugConfig) (*httptest.Server, *game.Registry) {
	t.Helper()
	reg := game.NewRegistry(game.RegistryConfig{Notifier: nopNotifier{}})
	ts := httptest.NewServer(NewDebugRouter(cfg, reg, nil))
	t.Cleanup(ts.Close)
	return ts, reg
}

func TestDebugRooms(t *testing.T) {
	ts, reg := newDebugServer(t, config.DefaultDebug())
	room, err := reg.Host("host", "#00ff00")
	if err != nil {
		t.Fatalf("Host failed: %v", err)
	}

	resp, err := http.Get(ts.URL + "/debug/rooms")
	if err != nil {
		t.Fatalf("Request failed: %v", err)
	}
	defer resp.Body.Close()

	var rooms []game.RoomSummary
	if err := json.NewDecoder(resp.Body).Decode(&rooms); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if len(rooms) != 1 || rooms[0].Code != room.Code() || rooms[0].Phase != "lobby" {
		t.Errorf("Unexpected rooms %+v", rooms)
	}
}

func TestDebugPreview(t *testing.T) {
	ts, reg := newDebugServer(t, config.DefaultDebug())
	room, _ := reg.Host("host", "#00ff00")

	resp, err := http.Get(ts.URL + "/debug/rooms/" + room.Code() + "/preview.png")
	if err != nil {
		t.Fatalf("Request failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("Expected 200, got %d", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "image/png" {
		t.Errorf("Expected image/png, got %q", ct)
	}
	if _, err := png.Decode(resp.Body); err != nil {
		t.Errorf("Body is not a PNG: %v", err)
	}
}

func TestDebugPreviewErrors(t *testing.T) {
	ts, _ := newDebugServer(t, config.DefaultDebug())

	tests := []struct {
		path string
		want int
	}{
		{"/debug/rooms/1234/preview.png", http.StatusNotFound},
		{"/debug/rooms/0123/preview.png", http.StatusBadRequest},
		{"/debug/rooms/abcd/preview.png", http.StatusBadRequest},
	}
	for _, tt := range tests {
		resp, err := http.Get(ts.URL + tt.path)
		if err != nil {
			t.Fatalf("Request failed: %v", err)
		}
		resp.Body.Close()
		if resp.StatusCode != tt.want {
			t.Errorf("%s: expected %d, got %d", tt.path, tt.want, resp.StatusCode)
		}
	}
}

func TestDebugEndpoints(t *testing.T) {
	ts, _ := newDebugServer(t, config.DefaultDebug())

	for _, path := range []string{"/health", "/metrics", "/debug/pprof/"} {
		resp, err := http.Get(ts.URL + path)
		if err != nil {
			t.Fatalf("%s: request failed: %v", path, err)
		}
		resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			t.Errorf("%s: expected 200, got %d", path, resp.StatusCode)
		}
	}
}

func TestDebugBasicAuth(t *testing.T) {
	cfg := config.DefaultDebug()
	cfg.BasicAuthUser = "admin"
	cfg.BasicAuthPass = "secret"
	ts, _ := newDebugServer(t, cfg)

	resp, err := http.Get(ts.URL + "/health")
	if err != nil {
		t.Fatalf("Request failed: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("Expected 401 without credentials, got %d", resp.StatusCode)
	}

	req, _ := http.NewRequest(http.MethodGet, ts.URL+"/health", nil)
	req.SetBasicAuth("admin", "secret")
	resp, err = http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("Request failed: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("Expected 200 with credentials, got %d", resp.StatusCode)
	}
}

func TestDebugListenAddr(t *testing.T) {
	tests := []struct {
		addr     string
		external bool
		want     string
	}{
		{"127.0.0.1:6060", false, "127.0.0.1:6060"},
		{"localhost:7070", false, "localhost:7070"},
		{"[::1]:6060", false, "[::1]:6060"},
		{"0.0.0.0:6060", false, "127.0.0.1:6060"},
		{":9090", false, "127.0.0.1:9090"},
		{"0.0.0.0:6060", true, "0.0.0.0:6060"},
		{"garbage", false, "127.0.0.1:6060"},
	}

	for _, tt := range tests {
		cfg := config.DebugConfig{ListenAddr: tt.addr, AllowExternal: tt.external}
		if got := debugListenAddr(cfg); got != tt.want {
			t.Errorf("debugListenAddr(%q, %v) = %q, want %q", tt.addr, tt.external, got, tt.want)
		}
	}
}

func TestStartDebugServerDisabled(t *testing.T) {
	if srv := StartDebugServer(config.DebugConfig{Enabled: false}, nil, nil); srv != nil {
		t.Error("Disabled debug server should not start")
	}
}

func TestDebugStats(t *testing.T) {
	server := NewServer(RouterConfig{DisableLogging: true}, NewHub(HubConfig{}))
	t.Cleanup(func() { server.Stop(context.Background()) })

	var events *game.EventLog
	stats := map[string]StatsFunc{
		"server":    server.Stats,
		"event_log": func() interface{} { return events.GetStats() },
	}
	ts := httptest.NewServer(NewDebugRouter(config.DefaultDebug(), nil, stats))
	t.Cleanup(ts.Close)

	resp, err := http.Get(ts.URL + "/debug/stats")
	if err != nil {
		t.Fatalf("Request failed: %v", err)
	}
	defer resp.Body.Close()

	var got struct {
		Server struct {
			HTTP      map[string]uint64      `json:"http"`
			WebSocket map[string]interface{} `json:"websocket"`
		} `json:"server"`
		EventLog map[string]interface{} `json:"event_log"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&got); err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if _, ok := got.Server.HTTP["allowed"]; !ok {
		t.Errorf("Expected HTTP limiter counters, got %v", got.Server.HTTP)
	}
	if got.Server.WebSocket["clients"] != float64(0) {
		t.Errorf("Expected 0 clients, got %v", got.Server.WebSocket["clients"])
	}
	if got.EventLog["running"] != false {
		t.Errorf("Nil event log should report not running, got %v", got.EventLog)
	}
}

func TestDebugStatsAbsentWithoutSources(t *testing.T) {
	ts, _ := newDebugServer(t, config.DefaultDebug())

	resp, err := http.Get(ts.URL + "/debug/stats")
	if err != nil {
		t.Fatalf("Request failed: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("Expected 404, got %d", resp.StatusCode)
	}
}
