package realtime

import "sync"

// Dedup remembers the last capacity message ids seen by one consumer. The
// broadcast path and the change-feed path both deliver every message, so a
// duplicate within the window is expected traffic, not an error.
type Dedup struct {
	mu    sync.Mutex
	seen  map[string]struct{}
	order []string
	cap   int
}

func NewDedup(capacity int) *Dedup {
	if capacity <= 0 {
		capacity = 256
	}
	return &Dedup{seen: make(map[string]struct{}), cap: capacity}
}

// Seen records id and reports whether it was already present. Ids older
// than the window are evicted oldest-first.
func (d *Dedup) Seen(id string) bool {
	if id == "" {
		return false
	}
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, ok := d.seen[id]; ok {
		return true
	}
	d.seen[id] = struct{}{}
	d.order = append(d.order, id)
	if len(d.order) > d.cap {
		oldest := d.order[0]
		d.order = d.order[1:]
		delete(d.seen, oldest)
	}
	return false
}
