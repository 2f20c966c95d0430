//////////////////////////////////////////////////////////////////////////////
//
// Decoder errors
//
// Copyright 2019 Lanikai Labs LLC. All rights reserved.
//
//////////////////////////////////////////////////////////////////////////////

package decoder

import (
	errors "golang.org/x/xerrors"
)

var (
	// ErrAgain is returned by Codec.Receive when the codec needs more input
	// before it can output another frame.
	ErrAgain = errors.New("decoder: more input needed")

	ErrCodecUnavailable = errors.New("decoder: codec backend not available")
	ErrClosed           = errors.New("decoder: session closed")

	// Decode errors are expected on a live stream. None of them is fatal.
	ErrSubmit       = errors.New("decoder: access unit rejected by codec")
	ErrReceive      = errors.New("decoder: codec failed to output frame")
	ErrInvalidFrame = errors.New("decoder: invalid decoded frame")
	ErrConvert      = errors.New("decoder: pixel conversion failed")
)
