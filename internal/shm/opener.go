package shm

import (
	"io"
	"time"
)

// Opener attaches to the named objects a producer creates.
type Opener interface {
	OpenRegion(name string) (Region, error)
	OpenSignal(name string) (Signal, error)
}

// Region is an opened shared memory object. Close unmaps it if mapped.
type Region interface {
	io.Closer

	// Map maps the first size bytes read-only.
	Map(size int) ([]byte, error)
}

// Signal is a counting semaphore posted by the producer after each write.
type Signal interface {
	io.Closer

	// Wait decrements the semaphore, blocking up to timeout. It returns
	// ErrTimeout or ErrInterrupted for the two non-fatal outcomes.
	Wait(timeout time.Duration) error
}

// Poster is implemented by signals that can also be posted, as a producer
// would.
type Poster interface {
	Post() error
}
