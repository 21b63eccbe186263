// Package transport keeps song time against a wall clock.
package transport

import (
	"time"
)

// Transport is a pausable song clock. It is owned by the frame loop and is
// not safe for concurrent use.
type Transport struct {
	clock Clock

	songTime   time.Duration
	running    bool
	lastSample time.Time
	rate       float64
}

// New returns a stopped transport at the start of the song.
func New(clock Clock) *Transport {
	if nil == clock {
		clock = SystemClock{}
	}
	return &Transport{clock: clock, rate: 1.0, lastSample: clock.Now()}
}

// Reset rewinds to the start and starts running.
func (t *Transport) Reset() {
	t.songTime = 0
	t.running = true
	t.lastSample = t.clock.Now()
}

// Start is Reset.
func (t *Transport) Start() {
	t.Reset()
}

func (t *Transport) Pause() {
	t.running = false
}

// Resume continues from the paused song time. Wall time spent paused is
// never counted.
func (t *Transport) Resume() {
	t.running = true
	t.lastSample = t.clock.Now()
}

// Toggle pauses a running transport and resumes a paused one.
func (t *Transport) Toggle() {
	if t.running {
		t.Pause()
	} else {
		t.Resume()
	}
}

// Advance samples now and returns the new song time. A clock that went
// backwards adds nothing.
func (t *Transport) Advance(now time.Time) time.Duration {
	if t.running {
		if dt := now.Sub(t.lastSample); dt > 0 {
			t.songTime += time.Duration(float64(dt) * t.rate)
		}
	}
	t.lastSample = now
	return t.songTime
}

// Tick advances against the transport's own clock.
func (t *Transport) Tick() time.Duration {
	return t.Advance(t.clock.Now())
}

// SetRate changes the playback speed. Non-positive rates are ignored.
func (t *Transport) SetRate(rate float64) {
	if rate > 0 {
		t.rate = rate
	}
}

func (t *Transport) Rate() float64 {
	return t.rate
}

func (t *Transport) SongTime() time.Duration {
	return t.songTime
}

func (t *Transport) Running() bool {
	return t.running
}
