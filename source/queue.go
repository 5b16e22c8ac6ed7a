package source

import (
	"sync"

	"github.com/depforge/depforge/depid"
)

// perDepQueue serializes operations on the same dependency while
// letting distinct dependencies proceed concurrently: per-dependency
// git operations are totally ordered on a per-dependency FIFO queue.
// Go's mutex is itself FIFO-ish under contention (the runtime hands
// the lock to waiters in roughly arrival order), so a plain per-key
// mutex is enough without extra machinery.
type perDepQueue struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func newPerDepQueue() *perDepQueue {
	return &perDepQueue{locks: map[string]*sync.Mutex{}}
}

func (q *perDepQueue) lockFor(key string) *sync.Mutex {
	q.mu.Lock()
	defer q.mu.Unlock()
	l, ok := q.locks[key]
	if !ok {
		l = &sync.Mutex{}
		q.locks[key] = l
	}
	return l
}

// Run executes fn with the dependency's queue held.
func (q *perDepQueue) Run(dep depid.Dependency, fn func() error) error {
	l := q.lockFor(dep.ClonePath())
	l.Lock()
	defer l.Unlock()
	return fn()
}
