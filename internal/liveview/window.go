package liveview

// keyWindow remembers the most recent N idempotency keys. Older keys are
// evicted in insertion order, keeping memory bounded for long-running relays.
type keyWindow struct {
	seen map[string]struct{}
	ring []string
	next int
}

func newKeyWindow(size int) *keyWindow {
	return &keyWindow{
		seen: make(map[string]struct{}, size),
		ring: make([]string, size),
	}
}

func (w *keyWindow) Contains(key string) bool {
	_, ok := w.seen[key]
	return ok
}

func (w *keyWindow) Add(key string) {
	if _, ok := w.seen[key]; ok {
		return
	}
	if evict := w.ring[w.next]; evict != "" {
		delete(w.seen, evict)
	}
	w.ring[w.next] = key
	w.seen[key] = struct{}{}
	w.next = (w.next + 1) % len(w.ring)
}
