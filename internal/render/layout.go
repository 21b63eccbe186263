package render

import (
	"golang.org/x/exp/constraints"

	"git.lost.host/meutraa/keys/internal/game"
)

const (
	topRow = 3 // First row of the roll
	// Rows under the hit line: effects, two keyboard rows, tally, status
	footerRows = 5
)

func clamp[T constraints.Ordered](v, lo, hi T) T {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// Layout places the roll and keyboard in a terminal of Rows by Cols, one
// based like the cursor addresses.
type Layout struct {
	Rows, Cols int
	HitRow     int
	Low, High  uint8
	KeyWidth   int
	Left       int // Column of Low
}

func NewLayout(rows, cols int, barRow uint, low, high uint8) Layout {
	if high < low {
		low, high = high, low
	}
	keys := int(high) - int(low) + 1
	l := Layout{Rows: rows, Cols: cols, Low: low, High: high}
	l.HitRow = clamp(rows-int(barRow), topRow+1, rows)
	l.KeyWidth = clamp(cols/keys, 1, 3)
	l.Left = clamp((cols-keys*l.KeyWidth)/2+1, 1, cols)
	return l
}

// Column is where pitch is drawn, false when it is off the keyboard or the
// screen.
func (l Layout) Column(pitch uint8) (int, bool) {
	if pitch < l.Low || pitch > l.High {
		return 0, false
	}
	col := l.Left + int(pitch-l.Low)*l.KeyWidth
	return col, col+l.KeyWidth-1 <= l.Cols
}

// KeyRange is the keyboard needed for track, in whole octaves from C. It
// is never narrower than octaves octaves from base.
func KeyRange(track *game.Track, base uint8, octaves uint) (uint8, uint8) {
	low := int(base)
	high := int(base) + 12*int(octaves)
	if nil != track {
		for _, n := range track.Notes {
			low = min(low, int(n.Pitch))
			high = max(high, int(n.Pitch))
		}
	}
	low -= low % 12
	if high%12 != 0 {
		high += 12 - high%12
	}
	return uint8(clamp(low, 0, 127)), uint8(clamp(high, 0, 127))
}
