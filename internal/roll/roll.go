// Package roll turns song time into the visible slice of a track and the
// onsets that reached the hit line.
package roll

import (
	"time"

	"git.lost.host/meutraa/keys/internal/game"
)

type Config struct {
	Past      time.Duration // How long a note stays visible after its onset
	Future    time.Duration // How far ahead notes become visible
	Tolerance time.Duration // Width of the hit line window
	HitLine   float64       // Y of the hit line
	Speed     float64       // Y units per second
}

type VisibleNote struct {
	Note    game.Note
	Index   int     // Position in the track
	Y       float64 // Y of the onset
	EndY    float64 // Y of the release
	Crossed bool    // The onset has reached the hit line
}

type Frame struct {
	Visible []VisibleNote
	Onsets  []game.Note // Notes that reached the hit line this update
}

// Engine reports each onset at most once per playback pass. It is owned by
// the frame loop.
type Engine struct {
	Config

	track     *game.Track
	triggered []bool
	last      time.Duration // Song time of the previous update
	moving    bool          // last belongs to the current pass
}

func New(config Config) *Engine {
	return &Engine{Config: config}
}

// Reset clears every trigger marker.
func (e *Engine) Reset() {
	for i := range e.triggered {
		e.triggered[i] = false
	}
	e.moving = false
}

// Y is the linear position of a note with onset at, at song time now.
func (e *Engine) Y(at, now time.Duration) float64 {
	return e.HitLine - (at - now).Seconds()*e.Speed
}

// Update computes the frame at song time now. Passing a different track
// than the previous call starts a new pass.
func (e *Engine) Update(track *game.Track, now time.Duration) Frame {
	frame := Frame{}
	if nil == track {
		e.track, e.triggered, e.moving = nil, nil, false
		return frame
	}
	if track != e.track {
		e.track = track
		e.triggered = make([]bool, len(track.Notes))
		e.moving = false
	}

	start, end := track.Between(now-e.Past, now+e.Future)
	frame.Visible = make([]VisibleNote, 0, end-start)
	for i := start; i < end; i++ {
		n := track.Notes[i]
		frame.Visible = append(frame.Visible, VisibleNote{
			Note:    n,
			Index:   i,
			Y:       e.Y(n.Time, now),
			EndY:    e.Y(n.End(), now),
			Crossed: n.Time <= now,
		})
	}

	// onsets with now in [time, time + tolerance), plus any passed over
	// since the previous update when a frame spans more than the tolerance
	from := now - e.Tolerance + 1
	if e.moving && e.last < from && e.last < now {
		from = e.last + 1
	}
	e.last, e.moving = now, true
	first := track.Search(from)
	for i := first; i < len(track.Notes) && track.Notes[i].Time <= now; i++ {
		if e.triggered[i] {
			continue
		}
		e.triggered[i] = true
		frame.Onsets = append(frame.Onsets, track.Notes[i])
	}

	return frame
}
