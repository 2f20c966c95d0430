package packet

import (
	"encoding/binary"
	"fmt"
)

var networkOrder = binary.BigEndian

// Reader walks a byte slice front to back. Reads never panic: each checked
// read returns an error when the buffer is exhausted and leaves the offset
// unchanged.
type Reader struct {
	buffer []byte
	offset int
}

func NewReader(buffer []byte) *Reader {
	return &Reader{buffer, 0}
}

func (r *Reader) ReadByte() (byte, error) {
	if err := r.CheckRemaining(1); err != nil {
		return 0, err
	}
	v := r.buffer[r.offset]
	r.offset++
	return v, nil
}

func (r *Reader) ReadUint32() (uint32, error) {
	if err := r.CheckRemaining(4); err != nil {
		return 0, err
	}
	v := networkOrder.Uint32(r.buffer[r.offset:])
	r.offset += 4
	return v, nil
}

// ReadSlice returns the next n bytes without copying. The result aliases the
// underlying buffer.
func (r *Reader) ReadSlice(n int) ([]byte, error) {
	if n < 0 {
		return nil, fmt.Errorf("negative read length %d", n)
	}
	if err := r.CheckRemaining(n); err != nil {
		return nil, err
	}
	v := r.buffer[r.offset : r.offset+n]
	r.offset += n
	return v, nil
}

// Offset returns the number of bytes consumed so far.
func (r *Reader) Offset() int {
	return r.offset
}

// Return the number of bytes left in the buffer.
func (r *Reader) Remaining() int {
	return len(r.buffer) - r.offset
}

func (r *Reader) CheckRemaining(needed int) error {
	if r.Remaining() < needed {
		return fmt.Errorf("%d bytes remaining, %d needed", r.Remaining(), needed)
	}
	return nil
}
