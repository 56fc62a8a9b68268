package historystore

import (
	lru "github.com/hashicorp/golang-lru"

	"github.com/lockstep/coordinator/pkg/command"
)

// Bounded is a Store that retains only the most recently touched N ticks,
// backed by github.com/hashicorp/golang-lru -- the same "cache bounded by
// capacity, evict oldest on overflow" idiom as pkg/consensus/cache.go's
// relayCache, but reached for via the library instead of a hand-rolled
// list+map, since golang-lru is already part of the teacher's dependency
// set (used for block/header caches elsewhere in neo-go).
//
// It resolves the open question in spec.md section 9 ("should
// received-log be garbage collected") for the liveness-only received-log:
// yes, optionally, once a tick is evicted the gate rule simply treats it
// as permanently absent, which is safe because received-log is never
// consulted for ticks older than T_check (spec.md section 4.4).
type Bounded struct {
	cache *lru.Cache
}

// NewBounded returns a Bounded store retaining at most capacity ticks.
func NewBounded(capacity int) *Bounded {
	c, err := lru.New(capacity)
	if err != nil {
		// Only returned for capacity <= 0, a programmer error at wiring time.
		panic(err)
	}
	return &Bounded{cache: c}
}

// Get implements Store.
func (b *Bounded) Get(tick command.SimTick) (command.Bundle, bool) {
	v, ok := b.cache.Get(tick)
	if !ok {
		return nil, false
	}
	return v.(command.Bundle), true
}

// Put implements Store.
func (b *Bounded) Put(tick command.SimTick, bundle command.Bundle) {
	b.cache.Add(tick, bundle)
}

// Len implements Store.
func (b *Bounded) Len() int {
	return b.cache.Len()
}

// Reset implements Store.
func (b *Bounded) Reset() {
	b.cache.Purge()
}
