// Package testdata builds Standard MIDI Files for tests.
package testdata

import (
	"bytes"
	"sort"

	"gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/smf"
)

type Note struct {
	Channel  uint8
	Pitch    uint8
	Velocity uint8 // 0 means 100
	On, Off  uint32
	Open     bool // no note-off is written
}

type Tempo struct {
	Tick uint32
	BPM  float64
}

type Song struct {
	TicksPerQuarter uint16 // 0 means 480
	Tempos          []Tempo
	Tracks          [][]Note
	// EndTick is where the tracks end, 0 means at their last event
	EndTick uint32
}

// timed is an event at a tick. Lower ranks come first on the same tick:
// releases of earlier notes, then attacks, then releases of zero length
// notes.
type timed struct {
	tick uint32
	rank int
	msg  []byte
}

func closeTrack(tr *smf.Track, events []timed, end uint32) {
	sort.SliceStable(events, func(i, j int) bool {
		if events[i].tick != events[j].tick {
			return events[i].tick < events[j].tick
		}
		return events[i].rank < events[j].rank
	})
	var last uint32
	for _, ev := range events {
		tr.Add(ev.tick-last, ev.msg)
		last = ev.tick
	}
	if end < last {
		end = last
	}
	tr.Close(end - last)
}

// Bytes encodes the song. Tempo changes go in their own first track.
func (s Song) Bytes() ([]byte, error) {
	tpq := s.TicksPerQuarter
	if tpq == 0 {
		tpq = 480
	}
	file := smf.New()
	file.TimeFormat = smf.MetricTicks(tpq)

	var tempoTrack smf.Track
	tempoEvents := []timed{}
	for _, t := range s.Tempos {
		tempoEvents = append(tempoEvents, timed{tick: t.Tick, msg: smf.MetaTempo(t.BPM)})
	}
	closeTrack(&tempoTrack, tempoEvents, 0)
	if err := file.Add(tempoTrack); nil != err {
		return nil, err
	}

	for _, notes := range s.Tracks {
		var tr smf.Track
		events := []timed{}
		for _, n := range notes {
			vel := n.Velocity
			if vel == 0 {
				vel = 100
			}
			events = append(events, timed{tick: n.On, rank: 1, msg: midi.NoteOn(n.Channel, n.Pitch, vel)})
			if !n.Open {
				rank := 0
				if n.Off == n.On {
					rank = 2
				}
				events = append(events, timed{tick: n.Off, rank: rank, msg: midi.NoteOff(n.Channel, n.Pitch)})
			}
		}
		closeTrack(&tr, events, s.EndTick)
		if err := file.Add(tr); nil != err {
			return nil, err
		}
	}

	var buf bytes.Buffer
	if _, err := file.WriteTo(&buf); nil != err {
		return nil, err
	}
	return buf.Bytes(), nil
}

// MustBytes is Bytes for fixtures that cannot fail.
func (s Song) MustBytes() []byte {
	data, err := s.Bytes()
	if nil != err {
		panic(err)
	}
	return data
}

// Scale is one octave of C major in eighth notes at 120 bpm.
func Scale() Song {
	pitches := []uint8{60, 62, 64, 65, 67, 69, 71, 72}
	notes := make([]Note, len(pitches))
	for i, p := range pitches {
		on := uint32(i) * 480
		notes[i] = Note{Pitch: p, On: on, Off: on + 240}
	}
	return Song{
		Tempos: []Tempo{{Tick: 0, BPM: 120}},
		Tracks: [][]Note{notes},
	}
}

// Silent is a well formed file without any note events.
func Silent() Song {
	return Song{
		Tempos:  []Tempo{{Tick: 0, BPM: 120}},
		Tracks:  [][]Note{{}},
		EndTick: 1920,
	}
}
