package parser

import (
	"bytes"
	"fmt"
	"math"
	"sort"
	"time"

	"git.lost.host/meutraa/keys/internal/game"
	"gitlab.com/gomidi/midi/v2/smf"
)

const defaultMicrosPerQuarter = 500000 // 120 bpm

type DefaultParser struct{}

type noteKey struct {
	channel, pitch uint8
}

type event struct {
	tick     int64
	off      bool
	channel  uint8
	pitch    uint8
	velocity uint8
}

func (p *DefaultParser) Parse(data []byte) (track *game.Track, err error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: no data", ErrMalformed)
	}

	// The smf reader can panic on some corrupt files
	defer func() {
		if r := recover(); nil != r {
			track = nil
			err = fmt.Errorf("%w: %v", ErrMalformed, r)
		}
	}()

	s, err := smf.ReadFrom(bytes.NewReader(data))
	if nil != err {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}

	tracks, tempos, endTick := p.collect(s)

	c, err := newClock(s.TimeFormat, tempos)
	if nil != err {
		return nil, err
	}

	notes := []game.Note{}
	for _, events := range tracks {
		notes = append(notes, p.pair(events, c, endTick)...)
	}
	if len(notes) == 0 {
		return nil, ErrEmpty
	}

	track = game.NewTrack("", notes, c.At(endTick))
	track.Tempos = c.tempos
	track.TicksPerQuarter = c.tpq
	return track, nil
}

// collect returns the note events of each track in file order, and the
// tempo changes of all tracks.
func (p *DefaultParser) collect(s *smf.SMF) ([][]event, []game.Tempo, int64) {
	tracks := [][]event{}
	tempos := []game.Tempo{}
	var endTick int64

	for _, tr := range s.Tracks {
		events := []event{}
		var tick int64
		for _, ev := range tr {
			tick += int64(ev.Delta)

			var channel, key, velocity uint8
			var bpm float64
			switch {
			case ev.Message.GetNoteStart(&channel, &key, &velocity):
				events = append(events, event{tick: tick, channel: channel, pitch: key, velocity: velocity})
			case ev.Message.GetNoteEnd(&channel, &key):
				events = append(events, event{tick: tick, off: true, channel: channel, pitch: key})
			case ev.Message.GetMetaTempo(&bpm):
				if bpm > 0 {
					tempos = append(tempos, game.Tempo{
						Tick:             tick,
						MicrosPerQuarter: uint32(math.Round(60000000 / bpm)),
					})
				}
			}
		}
		if tick > endTick {
			endTick = tick
		}
		if len(events) > 0 {
			tracks = append(tracks, events)
		}
	}

	return tracks, tempos, endTick
}

// pair matches each note-on of one track with the next note-off of the
// same channel and pitch, in file order. Stacked note-ons are closed
// oldest first.
func (p *DefaultParser) pair(events []event, c *clock, endTick int64) []game.Note {
	notes := []game.Note{}
	open := map[noteKey][]int{}
	closed := []bool{}

	for _, ev := range events {
		k := noteKey{ev.channel, ev.pitch}
		if !ev.off {
			open[k] = append(open[k], len(notes))
			closed = append(closed, false)
			notes = append(notes, game.Note{
				Pitch:    ev.pitch,
				Channel:  ev.channel,
				Velocity: ev.velocity,
				Time:     c.At(ev.tick),
			})
			continue
		}

		queue := open[k]
		if len(queue) == 0 {
			// release without a matching attack
			continue
		}
		i := queue[0]
		open[k] = queue[1:]
		notes[i].Duration = c.At(ev.tick) - notes[i].Time
		closed[i] = true
	}

	// Notes still sounding at the end of the file last until the end
	end := c.At(endTick)
	for i := range notes {
		if !closed[i] {
			d := end - notes[i].Time
			if d < 0 {
				d = 0
			}
			notes[i].Duration = d
		}
	}

	return notes
}

// clock converts absolute ticks to time by integrating the tempo map one
// segment at a time. Each conversion starts from the exact start time of
// its segment, so rounding never accumulates across tempo changes.
type clock struct {
	tpq    uint16
	tempos []game.Tempo
	starts []time.Duration

	// SMPTE divisions use a fixed number of ticks per second instead
	ticksPerSecond float64
}

func newClock(format smf.TimeFormat, tempos []game.Tempo) (*clock, error) {
	switch tf := format.(type) {
	case smf.MetricTicks:
		if tf == 0 {
			return nil, fmt.Errorf("%w: zero ticks per quarter note", ErrMalformed)
		}
		return newMetricClock(uint16(tf), tempos), nil
	case smf.TimeCode:
		fps := float64(tf.FramesPerSecond)
		if tf.FramesPerSecond == 29 {
			fps = 30000.0 / 1001.0
		}
		tps := fps * float64(tf.SubFrames)
		if tps <= 0 {
			return nil, fmt.Errorf("%w: invalid timecode %v", ErrMalformed, tf)
		}
		return &clock{ticksPerSecond: tps}, nil
	}
	return nil, fmt.Errorf("%w: unknown time format %v", ErrMalformed, format)
}

func newMetricClock(tpq uint16, tempos []game.Tempo) *clock {
	ts := make([]game.Tempo, len(tempos))
	copy(ts, tempos)
	sort.SliceStable(ts, func(i, j int) bool {
		return ts[i].Tick < ts[j].Tick
	})

	// A later change on the same tick replaces the earlier one
	merged := []game.Tempo{{Tick: 0, MicrosPerQuarter: defaultMicrosPerQuarter}}
	for _, t := range ts {
		last := &merged[len(merged)-1]
		if t.Tick == last.Tick {
			last.MicrosPerQuarter = t.MicrosPerQuarter
			continue
		}
		merged = append(merged, t)
	}

	c := &clock{tpq: tpq, tempos: merged, starts: make([]time.Duration, len(merged))}
	for i := 1; i < len(merged); i++ {
		prev := merged[i-1]
		c.starts[i] = c.starts[i-1] + c.span(merged[i].Tick-prev.Tick, prev.MicrosPerQuarter)
	}
	return c
}

// span is the duration of ticks at a fixed tempo:
// (ticks / tpq) * (micros / 1e6) seconds.
func (c *clock) span(ticks int64, micros uint32) time.Duration {
	tpq := int64(c.tpq)
	us := ticks * int64(micros)
	whole, rest := us/tpq, us%tpq
	return time.Duration(whole*int64(time.Microsecond) + rest*int64(time.Microsecond)/tpq)
}

// At returns the time of an absolute tick.
func (c *clock) At(tick int64) time.Duration {
	if tick <= 0 {
		return 0
	}
	if c.ticksPerSecond > 0 {
		return time.Duration(math.Round(float64(tick) / c.ticksPerSecond * float64(time.Second)))
	}
	i := sort.Search(len(c.tempos), func(i int) bool {
		return c.tempos[i].Tick > tick
	}) - 1
	seg := c.tempos[i]
	return c.starts[i] + c.span(tick-seg.Tick, seg.MicrosPerQuarter)
}
