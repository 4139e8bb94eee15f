package game

import (
	"bufio"
	"encoding/json"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"
)

const (
	EventBufferSize    = 1024                   // Pending events before drops
	MaxEventsPerSec    = 1000                   // Global rate limit
	BatchFlushSize     = 64                     // Events per batch write
	BatchFlushInterval = 100 * time.Millisecond // How often to flush
)

// EventLog is a bounded, rate-limited JSONL audit log of room and match
// events. Emit never blocks the simulation; events are dropped when the
// buffer is full or the rate limit is hit. A nil *EventLog is valid and
// discards everything.
type EventLog struct {
	events  chan Event
	limiter *rate.Limiter

	writerWg sync.WaitGroup
	stopChan chan struct{}
	stopOnce sync.Once
	running  atomic.Bool

	file *os.File
	out  *bufio.Writer

	sequence     uint64 // atomic
	droppedCount uint64 // atomic
	totalCount   uint64 // atomic
}

// NewEventLog creates a stopped event log.
func NewEventLog() *EventLog {
	return &EventLog{
		events:   make(chan Event, EventBufferSize),
		limiter:  rate.NewLimiter(MaxEventsPerSec, MaxEventsPerSec/10),
		stopChan: make(chan struct{}),
	}
}

// Start opens filePath for append and begins the async writer.
func (el *EventLog) Start(filePath string) error {
	if el.running.Load() {
		return nil
	}

	file, err := os.OpenFile(filePath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return err
	}
	el.file = file
	el.out = bufio.NewWriter(file)

	el.running.Store(true)
	el.writerWg.Add(1)
	go el.writerLoop()

	return nil
}

// Stop drains pending events, flushes and closes the file.
func (el *EventLog) Stop() {
	if el == nil {
		return
	}
	el.stopOnce.Do(func() {
		wasRunning := el.running.Swap(false)
		close(el.stopChan)
		if !wasRunning {
			return
		}
		el.writerWg.Wait()
		el.out.Flush()
		el.file.Close()
	})
}

// Emit queues an event. Returns false if it was dropped.
func (el *EventLog) Emit(event Event) bool {
	if el == nil || !el.running.Load() {
		return false
	}

	if !el.limiter.Allow() {
		atomic.AddUint64(&el.droppedCount, 1)
		return false
	}

	event.Sequence = atomic.AddUint64(&el.sequence, 1)
	select {
	case el.events <- event:
		atomic.AddUint64(&el.totalCount, 1)
		return true
	default:
		atomic.AddUint64(&el.droppedCount, 1)
		return false
	}
}

// EmitSimple is a convenience wrapper around NewEvent + Emit.
func (el *EventLog) EmitSimple(eventType EventType, room, playerID string, payload interface{}) bool {
	if el == nil || !el.running.Load() {
		return false
	}
	return el.Emit(NewEvent(eventType, room, playerID, payload))
}

func (el *EventLog) writerLoop() {
	defer el.writerWg.Done()

	ticker := time.NewTicker(BatchFlushInterval)
	defer ticker.Stop()

	enc := json.NewEncoder(el.out)
	pending := 0

	for {
		select {
		case ev := <-el.events:
			enc.Encode(ev)
			pending++
			if pending >= BatchFlushSize {
				el.out.Flush()
				pending = 0
			}
		case <-ticker.C:
			if pending > 0 {
				el.out.Flush()
				pending = 0
			}
		case <-el.stopChan:
			for {
				select {
				case ev := <-el.events:
					enc.Encode(ev)
				default:
					return
				}
			}
		}
	}
}

// GetStats returns event log statistics for monitoring
func (el *EventLog) GetStats() map[string]interface{} {
	if el == nil {
		return map[string]interface{}{"running": false}
	}
	return map[string]interface{}{
		"running": el.running.Load(),
		"total":   atomic.LoadUint64(&el.totalCount),
		"dropped": atomic.LoadUint64(&el.droppedCount),
		"pending": len(el.events),
	}
}

// Counts returns the number of queued and dropped events.
func (el *EventLog) Counts() (total, dropped uint64) {
	if el == nil {
		return 0, 0
	}
	return atomic.LoadUint64(&el.totalCount), atomic.LoadUint64(&el.droppedCount)
}
