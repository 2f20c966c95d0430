package shm

import (
	"github.com/pkg/errors"
)

var (
	// ErrTimeout is returned by Signal.Wait when the interval elapsed without
	// a post.
	ErrTimeout = errors.New("shm: wait timed out")

	// ErrInterrupted is returned by Signal.Wait when the wait was cut short
	// by a signal delivered to the thread.
	ErrInterrupted = errors.New("shm: wait interrupted")

	ErrNotSupported = errors.New("shm: POSIX shared memory not supported on this platform")
	ErrRegionSize   = errors.New("shm: region smaller than requested size")
)
