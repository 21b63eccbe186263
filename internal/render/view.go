package render

import (
	"time"

	"git.lost.host/meutraa/keys/internal/game"
	"git.lost.host/meutraa/keys/internal/roll"
	"git.lost.host/meutraa/keys/internal/score"
	"git.lost.host/meutraa/keys/internal/search"
)

// View is everything drawn in one frame.
type View struct {
	Title    string
	SongTime time.Duration
	Length   time.Duration
	Paused   bool
	Rate     float64

	Low, High uint8 // Keyboard range, inclusive
	Notes     []roll.VisibleNote
	Active    []uint8
	Effects   []Effect
	Tally     score.Tally
	Status    string

	Overlay Overlay
}

// Effect is the fading feedback of a judged press.
type Effect struct {
	Pitch     uint8
	Judgement game.Judgement
	Remaining float64 // 1 when new, 0 when gone
}

type Overlay struct {
	Open      bool
	Query     string
	Results   []search.Result
	Selected  int
	Searching bool
}
