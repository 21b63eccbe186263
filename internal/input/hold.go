package input

import (
	"sort"
	"time"

	"git.lost.host/meutraa/keys/internal/keys"
)

// holds synthesizes releases for keys that only report presses. A press
// extends the hold, so key repeat keeps a key down.
type holds struct {
	timeout time.Duration
	until   map[uint8]time.Time
}

func newHolds(timeout time.Duration) *holds {
	return &holds{timeout: timeout, until: map[uint8]time.Time{}}
}

// press reports whether this is a new press rather than a repeat.
func (h *holds) press(pitch uint8, now time.Time) bool {
	_, held := h.until[pitch]
	h.until[pitch] = now.Add(h.timeout)
	return !held
}

func (h *holds) expire(now time.Time, source keys.Source) Batch {
	batch := Batch{}
	for pitch, until := range h.until {
		if !now.Before(until) {
			delete(h.until, pitch)
			batch = append(batch, Event{Kind: KeyUp, Pitch: pitch, Source: source})
		}
	}
	sort.Slice(batch, func(i, j int) bool { return batch[i].Pitch < batch[j].Pitch })
	return batch
}

// releaseAll releases every held key, for when typing moves to the overlay.
func (h *holds) releaseAll(source keys.Source) Batch {
	batch := Batch{}
	for pitch := range h.until {
		delete(h.until, pitch)
		batch = append(batch, Event{Kind: KeyUp, Pitch: pitch, Source: source})
	}
	sort.Slice(batch, func(i, j int) bool { return batch[i].Pitch < batch[j].Pitch })
	return batch
}
