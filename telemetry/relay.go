package telemetry

import (
	"sync"
)

// Relay is the single-slot hand-off between the acquisition goroutine and the
// consumer. The producer overwrites, the consumer reads whatever is newest:
// freshness over completeness. A slow consumer never stalls network I/O and a
// fast producer never accumulates memory.
type Relay struct {
	mu     sync.Mutex
	latest *Sample
}

func NewRelay() *Relay {
	return &Relay{}
}

// Publish replaces the current sample. Older unread samples are discarded.
func (r *Relay) Publish(sample Sample) {
	r.mu.Lock()
	r.latest = &sample
	r.mu.Unlock()
}

// Latest returns a copy of the most recent sample, or false when nothing has
// been published yet. Never blocks.
func (r *Relay) Latest() (Sample, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.latest == nil {
		return Sample{}, false
	}
	return *r.latest, true
}

// Reset clears the slot, used between connection attempts so a stale sample
// from a previous attempt is never observed as current
func (r *Relay) Reset() {
	r.mu.Lock()
	r.latest = nil
	r.mu.Unlock()
}
