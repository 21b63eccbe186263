package game

import (
	"time"
)

type Note struct {
	Pitch    uint8         // The MIDI key number, 60 = C4
	Channel  uint8         // The MIDI channel the note was read from
	Velocity uint8         // The note-on velocity
	Time     time.Duration // The time the note should be hit
	Duration time.Duration // How long the note sounds, never negative
}

// End is the time the note should be released.
func (n Note) End() time.Duration {
	return n.Time + n.Duration
}

// Before orders notes by onset, then pitch.
func (n Note) Before(o Note) bool {
	if n.Time != o.Time {
		return n.Time < o.Time
	}
	return n.Pitch < o.Pitch
}
