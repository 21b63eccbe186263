package score

import (
	"time"

	"git.lost.host/meutraa/keys/internal/game"
)

// Scorer judges live key presses against the notes at the hit line. It
// never mutates the track.
type Scorer interface {
	Judge(pitch uint8, songTime time.Duration, track *game.Track) Hit

	// Distance is the signed timing error of a press at hitTime for a note
	// at noteTime. Positive is late.
	Distance(noteTime, hitTime time.Duration) time.Duration
}

type Hit struct {
	Judgement game.Judgement
	Note      game.Note     // Only set when Judgement is not NoTarget
	Index     int           // Index of Note in the track, -1 without a target
	Delta     time.Duration // Signed error, see Distance
}
