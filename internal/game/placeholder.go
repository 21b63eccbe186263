package game

import (
	"time"
)

const PlaceholderTitle = "Placeholder Scale"

// Placeholder is the built-in song used when nothing else is loaded: a C
// major scale from C4 in eighth notes at 120 bpm, each sounding for half
// its step.
func Placeholder() *Track {
	scale := []uint8{60, 62, 64, 65, 67, 69, 71, 72}
	step := 500 * time.Millisecond
	notes := make([]Note, len(scale))
	for i, p := range scale {
		notes[i] = Note{
			Pitch:    p,
			Velocity: 80,
			Time:     time.Duration(i) * step,
			Duration: step / 2,
		}
	}
	track := NewTrack(PlaceholderTitle, notes, 0)
	track.TicksPerQuarter = 480
	track.Tempos = []Tempo{{Tick: 0, MicrosPerQuarter: 500000}}
	return track
}
