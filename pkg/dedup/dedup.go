package dedup

import (
	"crypto/sha256"
	"encoding/hex"
	"sync"
	"time"
)

// Deduper drops QoS1 redeliveries by remembering recently seen message ids
// for a TTL. Entries are evicted lazily when the map grows past max.
type Deduper struct {
	mu   sync.Mutex
	ttl  time.Duration
	max  int
	seen map[string]time.Time
}

func New(ttl time.Duration, max int) *Deduper {
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	if max <= 0 {
		max = 10000
	}
	return &Deduper{ttl: ttl, max: max, seen: make(map[string]time.Time, max)}
}

// PayloadID derives a stable id from a raw payload; identical redeliveries
// hash to the same id.
func PayloadID(payload []byte) string {
	h := sha256.Sum256(payload)
	return hex.EncodeToString(h[:])
}

// ShouldProcess reports whether id has not been seen within the TTL, and
// marks it seen.
func (d *Deduper) ShouldProcess(id string) bool {
	if id == "" {
		return true
	}
	now := time.Now()
	d.mu.Lock()
	defer d.mu.Unlock()
	if exp, ok := d.seen[id]; ok && now.Before(exp) {
		return false
	}
	if len(d.seen) >= d.max {
		d.evict(now)
	}
	d.seen[id] = now.Add(d.ttl)
	return true
}

// evict clears expired entries; if the map is still at capacity it sheds
// arbitrary live entries until there is room again. Caller holds d.mu.
func (d *Deduper) evict(now time.Time) {
	for k, exp := range d.seen {
		if !now.Before(exp) {
			delete(d.seen, k)
		}
	}
	for k := range d.seen {
		if len(d.seen) < d.max {
			break
		}
		delete(d.seen, k)
	}
}
