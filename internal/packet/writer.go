package packet

// Writer appends big-endian fields to a growable buffer.
type Writer struct {
	buffer []byte
}

// NewWriterSize returns a Writer with room for n bytes before it needs to
// grow.
func NewWriterSize(n int) *Writer {
	return &Writer{make([]byte, 0, n)}
}

func (w *Writer) WriteUint32(v uint32) {
	w.buffer = append(w.buffer, 0, 0, 0, 0)
	networkOrder.PutUint32(w.buffer[len(w.buffer)-4:], v)
}

func (w *Writer) WriteSlice(p []byte) {
	w.buffer = append(w.buffer, p...)
}

// Return the number of bytes written so far.
func (w *Writer) Length() int {
	return len(w.buffer)
}

// Return a slice of the bytes written so far.
func (w *Writer) Bytes() []byte {
	return w.buffer
}
