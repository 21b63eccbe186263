package game

import (
	"sort"
	"time"
)

// Tempo is a tempo change at an absolute tick.
type Tempo struct {
	Tick             int64
	MicrosPerQuarter uint32
}

// Track is an immutable, time ordered song. Replace it, never mutate it.
type Track struct {
	Title           string
	Notes           []Note
	Length          time.Duration
	TicksPerQuarter uint16
	Tempos          []Tempo
}

// NewTrack copies and sorts notes. The length is at least the end of the
// last sounding note.
func NewTrack(title string, notes []Note, length time.Duration) *Track {
	ns := make([]Note, len(notes))
	copy(ns, notes)
	sort.SliceStable(ns, func(i, j int) bool {
		return ns[i].Before(ns[j])
	})
	for _, n := range ns {
		if n.End() > length {
			length = n.End()
		}
	}
	return &Track{
		Title:  title,
		Notes:  ns,
		Length: length,
	}
}

// Search returns the index of the first note with a time at or after t.
func (t *Track) Search(at time.Duration) int {
	return sort.Search(len(t.Notes), func(i int) bool {
		return t.Notes[i].Time >= at
	})
}

// Between returns the index range [start, end) of notes with from <= time <= to.
func (t *Track) Between(from, to time.Duration) (int, int) {
	start := t.Search(from)
	end := sort.Search(len(t.Notes), func(i int) bool {
		return t.Notes[i].Time > to
	})
	if end < start {
		end = start
	}
	return start, end
}
