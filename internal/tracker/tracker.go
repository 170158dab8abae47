package tracker

import (
	"sync"

	"github.com/openelec/telemetry-relay/internal/domain"
)

type entry struct {
	reading  domain.Reading
	sequence uint64
}

// Tracker remembers the last reading published per facility and decides
// whether a new one is novel enough to go out again. Suppression is
// exact-match on the numeric fields (zero tolerance).
type Tracker struct {
	mu   sync.Mutex
	last map[string]entry
}

func New() *Tracker {
	return &Tracker{last: make(map[string]entry)}
}

// ShouldPublish reports whether r must be (re)published: the facility is
// unseen, a numeric field changed, or the timestamp advanced.
func (t *Tracker) ShouldPublish(r domain.Reading) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	e, ok := t.last[r.FacilityID]
	if !ok {
		return true
	}
	if r.PowerMW != e.reading.PowerMW || r.CO2Kg != e.reading.CO2Kg {
		return true
	}
	return r.Timestamp.After(e.reading.Timestamp)
}

// MarkPublished records r as the facility's new baseline along with the
// sequence number it went out under. Idempotent for an identical reading.
func (t *Tracker) MarkPublished(r domain.Reading, seq uint64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.last[r.FacilityID] = entry{reading: r, sequence: seq}
}

// Tracked returns the number of facilities with a recorded baseline.
func (t *Tracker) Tracked() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.last)
}
