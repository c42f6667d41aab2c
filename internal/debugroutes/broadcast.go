// Package debugroutes serves live pipeline diagnostics under /debug/.
package debugroutes

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/banshee-data/pulse.report/internal/db"
	"github.com/banshee-data/pulse.report/internal/monitoring"
	"github.com/banshee-data/pulse.report/internal/ppg"
)

// DefaultHistory is how many estimates a Broadcaster keeps for charts.
const DefaultHistory = 600

const subscriberBuffer = 16

// Broadcaster fans heart-rate estimates out to live subscribers and keeps a
// bounded history of the most recent ones. Slow subscribers miss messages
// rather than blocking the pipeline.
type Broadcaster struct {
	mu          sync.Mutex
	subscribers map[string]chan string
	closed      bool

	history []db.HeartRateRecord
	next    int
	full    bool
	now     func() time.Time
}

// NewBroadcaster keeps up to history estimates; history <= 0 uses
// DefaultHistory.
func NewBroadcaster(history int) *Broadcaster {
	if history <= 0 {
		history = DefaultHistory
	}
	return &Broadcaster{
		subscribers: make(map[string]chan string),
		history:     make([]db.HeartRateRecord, history),
		now:         time.Now,
	}
}

// Subscribe registers a subscriber. The channel is closed by Unsubscribe or
// Close.
func (b *Broadcaster) Subscribe() (string, <-chan string) {
	id := uuid.NewString()
	ch := make(chan string, subscriberBuffer)
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		close(ch)
		return id, ch
	}
	b.subscribers[id] = ch
	return id, ch
}

// Unsubscribe removes a subscriber.
func (b *Broadcaster) Unsubscribe(id string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if ch, ok := b.subscribers[id]; ok {
		close(ch)
		delete(b.subscribers, id)
	}
}

// Subscribers returns the number of live subscribers.
func (b *Broadcaster) Subscribers() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subscribers)
}

func (b *Broadcaster) ReportHeartRate(hr ppg.HeartRate) {
	rec := db.HeartRateRecord{
		SampleIndex:     hr.SampleIndex,
		IntervalSamples: hr.IntervalSamples,
		InstantBPM:      hr.InstantBPM,
		FilteredBPM:     hr.FilteredBPM,
		RecordedAt:      b.now().UTC(),
	}
	payload, err := json.Marshal(rec)
	if err != nil {
		monitoring.Errorf("failed to encode heart rate: %v", err)
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.history[b.next] = rec
	b.next = (b.next + 1) % len(b.history)
	if b.next == 0 {
		b.full = true
	}
	for _, ch := range b.subscribers {
		select {
		case ch <- string(payload):
		default:
		}
	}
}

// Recent returns up to limit of the latest estimates, oldest first. A
// limit <= 0 returns the whole history.
func (b *Broadcaster) Recent(limit int) []db.HeartRateRecord {
	b.mu.Lock()
	defer b.mu.Unlock()

	var out []db.HeartRateRecord
	if b.full {
		out = append(out, b.history[b.next:]...)
	}
	out = append(out, b.history[:b.next]...)
	if limit > 0 && len(out) > limit {
		out = out[len(out)-limit:]
	}
	return out
}

// Close disconnects every subscriber and ignores later reports.
func (b *Broadcaster) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closed = true
	for id, ch := range b.subscribers {
		close(ch)
		delete(b.subscribers, id)
	}
}
