package engine

import "sync"

// keyedMutex serializes alert mutations per rule id. Entries are retained for
// the life of the process; the map is bounded by the number of distinct rules.
type keyedMutex struct {
	m sync.Map // int64 -> *sync.Mutex
}

func (k *keyedMutex) lock(id int64) (unlock func()) {
	v, _ := k.m.LoadOrStore(id, &sync.Mutex{})
	mu := v.(*sync.Mutex)
	mu.Lock()
	return mu.Unlock
}
