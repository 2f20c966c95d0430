// Package mailbox hands decoded pictures from the decode goroutine to the
// render goroutine through a single overwriting slot.
package mailbox

import (
	"sync"

	"github.com/lanikai/avconsumer/internal/decoder"
)

type Stats struct {
	Published uint64
	Taken     uint64

	// Pictures overwritten before anyone took them.
	Dropped uint64
}

// Mailbox holds at most one picture. Publishing never blocks on the reader;
// an untaken picture is simply replaced.
type Mailbox struct {
	mu     sync.Mutex
	slot   decoder.Picture
	hasNew bool
	stats  Stats
}

func New() *Mailbox {
	return &Mailbox{}
}

// Publish copies pic into the slot and marks it new. The slot's buffer is
// reused when it is large enough.
func (m *Mailbox) Publish(pic *decoder.Picture) {
	if pic == nil {
		return
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.hasNew {
		m.stats.Dropped++
	}
	m.slot.CopyFrom(pic)
	m.hasNew = true
	m.stats.Published++
}

// TakeLatest returns a copy of the picture published since the last call, if
// any.
func (m *Mailbox) TakeLatest() (*decoder.Picture, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.hasNew {
		return nil, false
	}
	m.hasNew = false
	m.stats.Taken++
	return m.slot.Clone(), true
}

func (m *Mailbox) Stats() Stats {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.stats
}
