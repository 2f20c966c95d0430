//go:build linux

package shm

import (
	"path/filepath"
	"strings"
	"sync/atomic"
	"time"
	"unsafe"

	"github.com/pkg/errors"
	"golang.org/x/sys/unix"
)

// Size of a glibc sem_t on 64-bit platforms.
const semSize = 32

const (
	futexWait = 0
	futexWake = 1

	// The semaphore word holds the value in its low half and the number of
	// waiters in its high half.
	semValueMask     = 1<<32 - 1
	semNwaitersShift = 32

	// SEM_VALUE_MAX
	semValueMax = 1<<31 - 1
)

// PosixOpener opens objects created with shm_open(3) and sem_open(3), which
// glibc backs with files in Dir.
type PosixOpener struct {
	Dir string
}

func DefaultOpener() Opener {
	return &PosixOpener{Dir: "/dev/shm"}
}

func (o *PosixOpener) path(prefix, name string) string {
	return filepath.Join(o.Dir, prefix+strings.TrimPrefix(name, "/"))
}

func (o *PosixOpener) OpenRegion(name string) (Region, error) {
	path := o.path("", name)
	fd, err := unix.Open(path, unix.O_RDONLY|unix.O_CLOEXEC, 0)
	if err != nil {
		return nil, errors.Wrapf(err, "open %s", path)
	}
	return &region{path: path, fd: fd}, nil
}

func (o *PosixOpener) OpenSignal(name string) (Signal, error) {
	path := o.path("sem.", name)
	fd, err := unix.Open(path, unix.O_RDWR|unix.O_CLOEXEC, 0)
	if err != nil {
		return nil, errors.Wrapf(err, "open %s", path)
	}
	defer unix.Close(fd)

	var st unix.Stat_t
	if err := unix.Fstat(fd, &st); err != nil {
		return nil, errors.Wrapf(err, "stat %s", path)
	}
	if st.Size < semSize {
		return nil, errors.Errorf("%s: %d bytes is not a semaphore", path, st.Size)
	}

	mem, err := unix.Mmap(fd, 0, semSize, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		return nil, errors.Wrapf(err, "mmap %s", path)
	}
	return &semaphore{
		mem:  mem,
		data: (*uint64)(unsafe.Pointer(&mem[0])),
	}, nil
}

type region struct {
	path string
	fd   int
	mem  []byte
}

func (r *region) Map(size int) ([]byte, error) {
	var st unix.Stat_t
	if err := unix.Fstat(r.fd, &st); err != nil {
		return nil, errors.Wrapf(err, "stat %s", r.path)
	}
	if size <= 0 || st.Size < int64(size) {
		return nil, errors.Wrapf(ErrRegionSize, "%s has %d bytes, want %d", r.path, st.Size, size)
	}

	mem, err := unix.Mmap(r.fd, 0, size, unix.PROT_READ, unix.MAP_SHARED)
	if err != nil {
		return nil, errors.Wrapf(err, "mmap %s", r.path)
	}
	r.mem = mem
	return mem, nil
}

func (r *region) Close() error {
	var err error
	if r.mem != nil {
		err = unix.Munmap(r.mem)
		r.mem = nil
	}
	if r.fd >= 0 {
		if cerr := unix.Close(r.fd); err == nil {
			err = cerr
		}
		r.fd = -1
	}
	return err
}

// semaphore operates on a glibc named semaphore in place, using the same
// futex protocol as sem_timedwait(3) and sem_post(3).
type semaphore struct {
	mem  []byte
	data *uint64
}

func (s *semaphore) tryWait() bool {
	for {
		d := atomic.LoadUint64(s.data)
		if d&semValueMask == 0 {
			return false
		}
		if atomic.CompareAndSwapUint64(s.data, d, d-1) {
			return true
		}
	}
}

func (s *semaphore) Wait(timeout time.Duration) error {
	if s.tryWait() {
		return nil
	}

	deadline := time.Now().Add(timeout)
	atomic.AddUint64(s.data, 1<<semNwaitersShift)
	defer atomic.AddUint64(s.data, ^uint64(1<<semNwaitersShift-1))

	for {
		if s.tryWait() {
			return nil
		}
		remaining := time.Until(deadline)
		if remaining <= 0 {
			return ErrTimeout
		}

		// The futex word is the low half of data, which comes first on
		// little-endian targets.
		ts := unix.NsecToTimespec(int64(remaining))
		_, _, errno := unix.Syscall6(unix.SYS_FUTEX,
			uintptr(unsafe.Pointer(s.data)), futexWait, 0,
			uintptr(unsafe.Pointer(&ts)), 0, 0)
		switch errno {
		case 0, unix.EAGAIN:
			// Woken, or the value changed before we slept.
		case unix.ETIMEDOUT:
			if s.tryWait() {
				return nil
			}
			return ErrTimeout
		case unix.EINTR:
			return ErrInterrupted
		default:
			return errors.Wrap(errno, "futex wait")
		}
	}
}

func (s *semaphore) Post() error {
	for {
		d := atomic.LoadUint64(s.data)
		if d&semValueMask >= semValueMax {
			return errors.Wrap(unix.EOVERFLOW, "sem post")
		}
		if atomic.CompareAndSwapUint64(s.data, d, d+1) {
			if d>>semNwaitersShift > 0 {
				unix.Syscall6(unix.SYS_FUTEX, uintptr(unsafe.Pointer(s.data)), futexWake, 1, 0, 0, 0)
			}
			return nil
		}
	}
}

func (s *semaphore) Close() error {
	if s.mem == nil {
		return nil
	}
	err := unix.Munmap(s.mem)
	s.mem = nil
	s.data = nil
	return err
}
