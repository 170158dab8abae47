package liveview

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/openelec/telemetry-relay/internal/domain"
)

// Result classifies the outcome of applying one inbound message.
type Result int

const (
	Accepted Result = iota
	DuplicateIgnored
	StaleIgnored
)

func (r Result) String() string {
	switch r {
	case Accepted:
		return "accepted"
	case DuplicateIgnored:
		return "duplicate_ignored"
	case StaleIgnored:
		return "stale_ignored"
	default:
		return "unknown"
	}
}

// Change is one accepted update, delivered to change-feed subscribers.
type Change struct {
	FacilityID string
	Reading    domain.Reading
}

type Options struct {
	// DedupWindow is how many recent idempotency keys are remembered.
	DedupWindow int

	// ChangeBuffer is the per-subscriber buffer; a subscriber that falls this
	// far behind is dropped rather than blocking the writer.
	ChangeBuffer int
}

// LiveView consumes broker messages and maintains the latest accepted reading
// per facility. One goroutine writes via Apply; any number of readers may call
// Snapshot concurrently.
type LiveView struct {
	mu       sync.RWMutex
	snapshot map[string]domain.Reading
	window   *keyWindow

	subMu   sync.Mutex
	subs    map[int]chan Change
	nextSub int
	buffer  int
}

func New(opts Options) *LiveView {
	if opts.DedupWindow <= 0 {
		opts.DedupWindow = 4096
	}
	if opts.ChangeBuffer <= 0 {
		opts.ChangeBuffer = 64
	}
	return &LiveView{
		snapshot: make(map[string]domain.Reading),
		window:   newKeyWindow(opts.DedupWindow),
		subs:     make(map[int]chan Change),
		buffer:   opts.ChangeBuffer,
	}
}

// Apply folds one message into the snapshot. A message is Accepted iff its
// idempotency key is unseen in the recent-keys window and its timestamp does
// not regress the facility's current entry. Duplicates and stale messages are
// self-loops: no state changes.
func (v *LiveView) Apply(msg domain.Message) Result {
	v.mu.Lock()
	if v.window.Contains(msg.IdempotencyKey) {
		v.mu.Unlock()
		return DuplicateIgnored
	}
	if cur, ok := v.snapshot[msg.FacilityID]; ok && msg.Timestamp.Before(cur.Timestamp) {
		v.mu.Unlock()
		return StaleIgnored
	}
	v.window.Add(msg.IdempotencyKey)
	v.snapshot[msg.FacilityID] = msg.Reading
	v.mu.Unlock()

	v.broadcast(Change{FacilityID: msg.FacilityID, Reading: msg.Reading})
	return Accepted
}

// Snapshot returns a copy of the latest accepted reading per facility, safe
// to hold while applies continue.
func (v *LiveView) Snapshot() map[string]domain.Reading {
	v.mu.RLock()
	defer v.mu.RUnlock()
	out := make(map[string]domain.Reading, len(v.snapshot))
	for id, r := range v.snapshot {
		out[id] = r
	}
	return out
}

// Facility returns the latest accepted reading for one facility.
func (v *LiveView) Facility(id string) (domain.Reading, bool) {
	v.mu.RLock()
	defer v.mu.RUnlock()
	r, ok := v.snapshot[id]
	return r, ok
}

// SubscribeChanges returns a feed of Accepted updates from this moment on;
// there is no backlog replay, a fresh subscriber pairs it with Snapshot. The
// cancel func releases the subscription and closes the channel.
func (v *LiveView) SubscribeChanges() (<-chan Change, func()) {
	v.subMu.Lock()
	defer v.subMu.Unlock()

	id := v.nextSub
	v.nextSub++
	ch := make(chan Change, v.buffer)
	v.subs[id] = ch

	cancel := func() {
		v.subMu.Lock()
		defer v.subMu.Unlock()
		if c, ok := v.subs[id]; ok {
			delete(v.subs, id)
			close(c)
		}
	}
	return ch, cancel
}

func (v *LiveView) broadcast(c Change) {
	v.subMu.Lock()
	defer v.subMu.Unlock()
	for id, ch := range v.subs {
		select {
		case ch <- c:
		default:
			delete(v.subs, id)
			close(ch)
			log.Warn().Int("subscriber", id).Msg("change subscriber too slow, dropped")
		}
	}
}

// Run is the single consuming loop over the bounded hand-off queue fed by the
// broker client. Malformed payloads are logged and dropped, never fatal.
func (v *LiveView) Run(ctx context.Context, inbound <-chan []byte) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case payload, ok := <-inbound:
			if !ok {
				return nil
			}
			var msg domain.Message
			if err := json.Unmarshal(payload, &msg); err != nil {
				log.Error().Err(err).Msg("malformed message dropped")
				continue
			}
			if msg.FacilityID == "" || msg.Timestamp.IsZero() {
				log.Error().Msg("message missing facility_id or timestamp, dropped")
				continue
			}
			res := v.Apply(msg)
			if res == Accepted {
				log.Debug().
					Str("facility", msg.FacilityID).
					Uint64("sequence", msg.Sequence).
					Float64("power_mw", msg.PowerMW).
					Msg("reading accepted")
			} else {
				log.Debug().
					Str("facility", msg.FacilityID).
					Stringer("result", res).
					Msg("message ignored")
			}
		}
	}
}
