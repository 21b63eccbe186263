package score

import (
	"math"
	"time"

	"git.lost.host/meutraa/keys/internal/game"
)

type DefaultScorer struct {
	Offset time.Duration // Added to every press before judging

	// Windows in increasing order. A press outside the last window has no
	// target.
	Windows []game.Window
}

// NewDefaultScorer judges within the perfect, tolerance and miss windows.
// The tolerance is the same one the roll uses for its hit line.
func NewDefaultScorer(perfect, tolerance, miss time.Duration, offset time.Duration) *DefaultScorer {
	return &DefaultScorer{
		Offset: offset,
		Windows: []game.Window{
			{Judgement: game.Perfect, Time: perfect},
			{Judgement: game.Good, Time: tolerance},
			{Judgement: game.Miss, Time: miss},
		},
	}
}

func abs(d time.Duration) time.Duration {
	if d < 0 {
		return -d
	}
	return d
}

func (s *DefaultScorer) Distance(noteTime, hitTime time.Duration) time.Duration {
	return hitTime + s.Offset - noteTime
}

func (s *DefaultScorer) widest() time.Duration {
	if len(s.Windows) == 0 {
		return 0
	}
	return s.Windows[len(s.Windows)-1].Time
}

// judge maps an absolute error onto the first window it falls inside.
func (s *DefaultScorer) judge(d time.Duration) game.Judgement {
	for _, w := range s.Windows {
		if d < w.Time {
			return w.Judgement
		}
	}
	return game.NoTarget
}

func (s *DefaultScorer) Judge(pitch uint8, songTime time.Duration, track *game.Track) Hit {
	hit := Hit{Judgement: game.NoTarget, Index: -1}
	if nil == track {
		return hit
	}

	widest := s.widest()
	at := songTime + s.Offset
	absDistance := time.Duration(math.MaxInt64)

	start, end := track.Between(at-widest, at+widest)
	for i := start; i < end; i++ {
		note := track.Notes[i]
		if note.Pitch != pitch {
			continue
		}
		dd := s.Distance(note.Time, songTime)
		d := abs(dd)
		if d < absDistance {
			absDistance = d
			hit.Note, hit.Index, hit.Delta = note, i, dd
		} else {
			// already found the closest, and this d is larger
			break
		}
	}

	if hit.Index < 0 {
		return hit
	}
	hit.Judgement = s.judge(absDistance)
	if hit.Judgement == game.NoTarget {
		return Hit{Judgement: game.NoTarget, Index: -1}
	}
	return hit
}
