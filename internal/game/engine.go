package game

import (
	"log"
	"sync"
	"time"
)

// TickStats is reported after every tick.
type TickStats struct {
	Duration time.Duration
	Rooms    int
	Players  int
}

// Engine drives the fixed-rate simulation tick across every room in a
// registry.
type Engine struct {
	mu       sync.Mutex
	registry *Registry
	tickRate int
	running  bool
	ticker   *time.Ticker
	stopChan chan struct{}
	done     chan struct{}

	tickCount uint64
	clock     func() time.Time

	// OnTick is called after each tick from the engine goroutine. Set it
	// before Start.
	OnTick func(TickStats)
}

// NewEngine creates an engine that ticks the registry at its rules' rate.
func NewEngine(registry *Registry) *Engine {
	return &Engine{
		registry: registry,
		tickRate: registry.Rules().TickRate,
		clock:    registry.clock,
	}
}

// Start begins the game loop. A stopped engine may be started again.
func (e *Engine) Start() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.running {
		return
	}
	e.running = true

	ticker := time.NewTicker(time.Second / time.Duration(e.tickRate))
	stop := make(chan struct{})
	done := make(chan struct{})
	e.ticker, e.stopChan, e.done = ticker, stop, done

	go func() {
		defer close(done)
		for {
			select {
			case <-ticker.C:
				e.tick()
			case <-stop:
				return
			}
		}
	}()

	log.Printf("🎮 Game engine started at %d TPS", e.tickRate)
}

// Stop stops the game loop and waits for the current tick to finish.
func (e *Engine) Stop() {
	e.mu.Lock()
	if !e.running {
		e.mu.Unlock()
		return
	}
	e.running = false
	e.ticker.Stop()
	close(e.stopChan)
	done := e.done
	e.mu.Unlock()

	<-done
	log.Println("🛑 Game engine stopped")
}

// TickCount returns the number of completed ticks.
func (e *Engine) TickCount() uint64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.tickCount
}

// tick steps every live room once.
func (e *Engine) tick() {
	start := time.Now()
	now := e.clock()

	stats := TickStats{}
	for _, room := range e.registry.Rooms() {
		if room.Step(now) {
			stats.Rooms++
			stats.Players += room.PlayerCount()
		}
	}
	stats.Duration = time.Since(start)

	e.mu.Lock()
	e.tickCount++
	e.mu.Unlock()

	if e.OnTick != nil {
		e.OnTick(stats)
	}
}
