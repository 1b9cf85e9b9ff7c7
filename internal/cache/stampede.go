package cache

import (
	"sync"
)

// stampedeTracker counts misses in progress per key. A count above one means
// several callers missed the same key at once, whether or not they were coalesced.
type stampedeTracker struct {
	mu           sync.Mutex     // protects activeMisses
	activeMisses map[string]int // key -> number of misses in progress
}

func newStampedeTracker() *stampedeTracker {
	return &stampedeTracker{
		activeMisses: make(map[string]int),
	}
}

// RecordMiss increments the count for key and returns the new value.
// Pair every call with a deferred RecordDone(key).
func (st *stampedeTracker) RecordMiss(key string) int {
	st.mu.Lock()
	defer st.mu.Unlock()
	st.activeMisses[key]++
	return st.activeMisses[key]
}

// RecordDone marks one miss for key as resolved.
func (st *stampedeTracker) RecordDone(key string) {
	st.mu.Lock()
	defer st.mu.Unlock()
	if count, ok := st.activeMisses[key]; ok && count > 0 {
		st.activeMisses[key]--
		if st.activeMisses[key] == 0 {
			delete(st.activeMisses, key)
		}
	}
}
