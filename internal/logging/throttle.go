package logging

import "sync/atomic"

// Throttle limits how often a recurring diagnostic message is emitted. The
// first First events are allowed, then every Every-th event after that. The
// counter carries no behavior beyond deciding whether to log.
type Throttle struct {
	First uint64
	Every uint64

	n uint64
}

// Allow records one event and reports whether it should be logged, along with
// the 1-based event number.
func (t *Throttle) Allow() (bool, uint64) {
	n := atomic.AddUint64(&t.n, 1)
	if n <= t.First {
		return true, n
	}
	if t.Every > 0 && n%t.Every == 0 {
		return true, n
	}
	return false, n
}

// Count returns the number of events seen so far.
func (t *Throttle) Count() uint64 {
	return atomic.LoadUint64(&t.n)
}

// Reset zeroes the event counter.
func (t *Throttle) Reset() {
	atomic.StoreUint64(&t.n, 0)
}
