package telemetry

import (
	"sync"
	"time"
)

// Tracker keeps the acquisition counters: how many requests or socket
// messages we attempted, how many produced a sample, and the achieved update
// frequency. Only the acquisition goroutine writes; diagnostics read through
// Snapshot, which copies under the lock so nobody ever sees a torn update.
type Tracker struct {
	mu sync.Mutex

	totalRequests      int
	successfulRequests int
	lastUpdate         time.Time
	frequencyHz        float64
}

type Snapshot struct {
	TotalRequests      int       `json:"totalRequests"`
	SuccessfulRequests int       `json:"successfulRequests"`
	LastUpdate         time.Time `json:"lastUpdate"`
	FrequencyHz        float64   `json:"frequencyHz"`
}

func NewTracker() *Tracker {
	return &Tracker{}
}

func (t *Tracker) ObserveAttempt() {
	t.mu.Lock()
	t.totalRequests++
	t.mu.Unlock()
}

// ObserveSuccess records a successfully acquired sample and recomputes the
// measured frequency from the gap to the previous success
func (t *Tracker) ObserveSuccess() {
	now := time.Now()

	t.mu.Lock()
	defer t.mu.Unlock()

	t.successfulRequests++

	if !t.lastUpdate.IsZero() {
		deltaMs := float64(now.Sub(t.lastUpdate).Milliseconds())
		if deltaMs > 0 {
			t.frequencyHz = 1000 / deltaMs
		}
	}
	t.lastUpdate = now
}

func (t *Tracker) Snapshot() Snapshot {
	t.mu.Lock()
	defer t.mu.Unlock()

	return Snapshot{
		TotalRequests:      t.totalRequests,
		SuccessfulRequests: t.successfulRequests,
		LastUpdate:         t.lastUpdate,
		FrequencyHz:        t.frequencyHz,
	}
}

func (t *Tracker) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.totalRequests = 0
	t.successfulRequests = 0
	t.lastUpdate = time.Time{}
	t.frequencyHz = 0
}
