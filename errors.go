package avconsumer

import "errors"

var (
	ErrClosed  = errors.New("avconsumer: consumer closed")
	ErrRunning = errors.New("avconsumer: consumer already running")
)
