package score

import (
	"math"
	"time"

	"git.lost.host/meutraa/keys/internal/game"
)

// Tally keeps running timing statistics for the status line.
type Tally struct {
	Counts [4]int // Indexed by game.Judgement

	hits          int
	sumOfDistance float64
	sumOfSquares  float64
}

func (t *Tally) Add(hit Hit) {
	if int(hit.Judgement) < len(t.Counts) {
		t.Counts[hit.Judgement]++
	}
	if hit.Judgement == game.NoTarget {
		return
	}
	d := float64(hit.Delta)
	t.hits++
	t.sumOfDistance += d
	t.sumOfSquares += d * d
}

func (t *Tally) Reset() {
	*t = Tally{}
}

func (t *Tally) Hits() int {
	return t.hits
}

// Mean is the average signed error. Positive means late.
func (t *Tally) Mean() time.Duration {
	if t.hits == 0 {
		return 0
	}
	return time.Duration(math.Round(t.sumOfDistance / float64(t.hits)))
}

// Stdev is the sample standard deviation of the signed error.
func (t *Tally) Stdev() time.Duration {
	if t.hits < 2 {
		return 0
	}
	n := float64(t.hits)
	mean := t.sumOfDistance / n
	variance := (t.sumOfSquares - n*mean*mean) / (n - 1)
	if variance < 0 {
		variance = 0
	}
	return time.Duration(math.Round(math.Sqrt(variance)))
}
