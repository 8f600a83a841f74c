package pathfinding

import "sync"

type future struct {
	gen  uint64
	done chan struct{}
	res  Result
}

func (f *future) finish(r Result) {
	f.res = r
	close(f.done)
}

// Tracker is one agent's handle on its latest path request. The tick thread
// polls it without ever blocking; a request made after another supersedes it.
type Tracker struct {
	mu      sync.Mutex
	gen     uint64
	pending *future
}

func (t *Tracker) begin() *future {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.gen++
	f := &future{gen: t.gen, done: make(chan struct{})}
	t.pending = f
	return f
}

// Poll returns the result of the latest request once it is ready. It
// reports false while the search runs, when the tracker is contended, or
// when nothing was requested.
func (t *Tracker) Poll() (Result, bool) {
	if !t.mu.TryLock() {
		return Result{}, false
	}
	defer t.mu.Unlock()

	f := t.pending
	if f == nil {
		return Result{}, false
	}
	select {
	case <-f.done:
	default:
		return Result{}, false
	}
	t.pending = nil
	if f.gen != t.gen {
		return Result{}, false
	}
	return f.res, true
}

// Pending reports whether a request is outstanding.
func (t *Tracker) Pending() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.pending != nil
}

// Cancel discards the outstanding request; its result is ignored when it lands.
func (t *Tracker) Cancel() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.gen++
	t.pending = nil
}

// Generation returns the number of requests and cancellations so far.
func (t *Tracker) Generation() uint64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.gen
}
