package game

import (
	"math/rand"
	"sync"
	"testing"
	"time"
)

type sentEvent struct {
	To    string
	Event string
	Data  interface{}
}

// recordingNotifier captures every notification for assertions.
type recordingNotifier struct {
	mu   sync.Mutex
	sent []sentEvent
}

func (n *recordingNotifier) Notify(connID, event string, data interface{}) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, sentEvent{To: connID, Event: event, Data: data})
}

func (n *recordingNotifier) count(to, event string) int {
	n.mu.Lock()
	defer n.mu.Unlock()
	c := 0
	for _, s := range n.sent {
		if s.To == to && s.Event == event {
			c++
		}
	}
	return c
}

func (n *recordingNotifier) last(to, event string) (sentEvent, bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	for i := len(n.sent) - 1; i >= 0; i-- {
		if n.sent[i].To == to && n.sent[i].Event == event {
			return n.sent[i], true
		}
	}
	return sentEvent{}, false
}

func (n *recordingNotifier) reset() {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = nil
}

// fakeClock is a manually advanced clock.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type testEnv struct {
	reg    *Registry
	notify *recordingNotifier
	clock  *fakeClock
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	n := &recordingNotifier{}
	c := newFakeClock()
	reg := NewRegistry(RegistryConfig{
		Rules:    DefaultRules(),
		Notifier: n,
		Rand:     rand.New(rand.NewSource(42)),
		Clock:    c.Now,
	})
	return &testEnv{reg: reg, notify: n, clock: c}
}

// duel hosts a room with "host", seats "guest" and returns the room.
func (e *testEnv) duel(t *testing.T) *Room {
	t.Helper()
	room, err := e.reg.Host("host", "#ff0000")
	if err != nil {
		t.Fatalf("Host failed: %v", err)
	}
	if err := e.reg.Join("guest", room.Code(), "#0000ff"); err != nil {
		t.Fatalf("Join failed: %v", err)
	}
	return room
}

// faceOff places attacker and victim side by side with the attacker
// aiming straight at the victim, within weapon reach.
func faceOff(room *Room, attacker, victim string) {
	room.mu.Lock()
	defer room.mu.Unlock()
	a := room.players[attacker]
	v := room.players[victim]
	a.X, a.Y, a.Angle = 100, 100, 0
	v.X, v.Y = 160, 100
}

func (r *Room) player(id string) Player {
	r.mu.Lock()
	defer r.mu.Unlock()
	return *r.players[id]
}
