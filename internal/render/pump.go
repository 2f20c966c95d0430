//////////////////////////////////////////////////////////////////////////////
//
// Render pump: moves the latest decoded picture to a sink at a fixed cadence
//
// Copyright 2019 Lanikai Labs LLC. All rights reserved.
//
//////////////////////////////////////////////////////////////////////////////

package render

import (
	"context"
	"time"

	"github.com/lanikai/avconsumer/internal/decoder"
	"github.com/lanikai/avconsumer/internal/logging"
)

var log = logging.DefaultLogger.WithTag("render")

// Roughly 60 presentations per second.
const DefaultInterval = 16 * time.Millisecond

// Source yields the picture published since the last call, if any.
type Source interface {
	TakeLatest() (*decoder.Picture, bool)
}

type Pump struct {
	source   Source
	sink     Sink
	interval time.Duration

	errLog logging.Throttle
}

func NewPump(source Source, sink Sink, interval time.Duration) *Pump {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Pump{
		source:   source,
		sink:     sink,
		interval: interval,
		errLog:   logging.Throttle{First: 3, Every: 100},
	}
}

// Run presents new pictures until ctx is done. Sink errors are logged and do
// not stop the pump.
func (p *Pump) Run(ctx context.Context) error {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			p.Tick()
		}
	}
}

// Tick performs one presentation step and reports whether a picture was
// presented.
func (p *Pump) Tick() bool {
	pic, ok := p.source.TakeLatest()
	if !ok {
		return false
	}
	if err := p.sink.Present(pic); err != nil {
		if ok, n := p.errLog.Allow(); ok {
			log.Warn("Present failed (%d): %v", n, err)
		}
		return false
	}
	return true
}
