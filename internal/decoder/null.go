package decoder

import "sync/atomic"

// NullCodec accepts every access unit and never outputs a frame. It lets the
// ingestion path run without a decoder backend.
type NullCodec struct {
	units uint64
}

func NewNullCodec() *NullCodec {
	return &NullCodec{}
}

func (c *NullCodec) Send(unit []byte) error {
	atomic.AddUint64(&c.units, 1)
	return nil
}

func (c *NullCodec) Receive() (*Frame, error) {
	return nil, ErrAgain
}

func (c *NullCodec) Flush() {}

func (c *NullCodec) Close() error {
	return nil
}

// Units returns the number of access units accepted.
func (c *NullCodec) Units() uint64 {
	return atomic.LoadUint64(&c.units)
}
