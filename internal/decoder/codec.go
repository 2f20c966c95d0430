//////////////////////////////////////////////////////////////////////////////
//
// Codec interfaces for the external decoder and pixel converter
//
// Copyright 2019 Lanikai Labs LLC. All rights reserved.
//
//////////////////////////////////////////////////////////////////////////////

package decoder

import (
	"io"
	"unsafe"
)

// PixelFormat identifies the layout of a decoded frame. Values are those of
// the codec backend; PixelFormatYUV420P matches libavutil's AV_PIX_FMT_YUV420P.
type PixelFormat int

const PixelFormatYUV420P PixelFormat = 0

// Frame is a decoded frame as produced by a Codec. Planes and native memory
// are owned by the codec and valid only until the next Receive or Flush.
type Frame struct {
	Width   int
	Height  int
	Format  PixelFormat
	Planes  [3][]byte
	Strides [3]int

	// Backend-specific frame handle, used by the matching Converter.
	native unsafe.Pointer
}

// Codec is a stateful H.264 decode context fed with Annex B access units.
type Codec interface {
	io.Closer

	// Send submits one access unit.
	Send(unit []byte) error

	// Receive returns the next decoded frame, ErrAgain if more input is
	// needed, or io.EOF if the codec has been drained.
	Receive() (*Frame, error)

	// Flush discards buffered input and output, e.g. after a submit error.
	Flush()
}

// Converter writes a Frame into an I420 Picture of the same size.
type Converter interface {
	io.Closer

	Convert(dst *Picture, src *Frame) error
}

// A ConverterProvider is a Codec that supplies its own conversion contexts.
// Codecs that do not implement it get a planar copy converter.
type ConverterProvider interface {
	NewConverter(width, height int, format PixelFormat) (Converter, error)
}
