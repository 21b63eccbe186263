package session

import (
	"time"

	"git.lost.host/meutraa/keys/internal/game"
)

// Status is a copy of the session state that is safe to read from other
// goroutines.
type Status struct {
	Title    string         `json:"title"`
	SongTime float64        `json:"song_time"` // Seconds
	Length   float64        `json:"length"`    // Seconds
	Paused   bool           `json:"paused"`
	Rate     float64        `json:"rate"`
	Active   []int          `json:"active"` // Pitches held down
	Counts   map[string]int `json:"counts"`
	Mean     float64        `json:"mean_ms"`
	Stdev    float64        `json:"stdev_ms"`
	Message  string         `json:"message"`
}

func (s *Session) publish() {
	active := []int{}
	for _, p := range s.Keys.Snapshot() {
		active = append(active, int(p))
	}
	counts := map[string]int{}
	for j, n := range s.tally.Counts {
		counts[game.Judgement(j).String()] = n
	}
	s.snapshot.Store(&Status{
		Title:    s.track.Title,
		SongTime: s.Transport.SongTime().Seconds(),
		Length:   s.track.Length.Seconds(),
		Paused:   !s.Transport.Running(),
		Rate:     s.Transport.Rate(),
		Active:   active,
		Counts:   counts,
		Mean:     float64(s.tally.Mean()) / float64(time.Millisecond),
		Stdev:    float64(s.tally.Stdev()) / float64(time.Millisecond),
		Message:  s.status,
	})
}

// Status returns the state published at the end of the last frame.
func (s *Session) Status() Status {
	return *s.snapshot.Load()
}
