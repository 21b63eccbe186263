package game

import (
	"math"
	"strconv"
)

var (
	sharpNames = [...]string{"C", "C#", "D", "D#", "E", "F", "F#", "G", "G#", "A", "A#", "B"}
	blackKeys  = [...]bool{false, true, false, true, false, false, true, false, true, false, true, false}
)

// NoteName returns scientific pitch notation, 60 = "C4".
func NoteName(pitch uint8) string {
	octave := int(pitch)/12 - 1
	return sharpNames[pitch%12] + strconv.Itoa(octave)
}

func IsBlack(pitch uint8) bool {
	return blackKeys[pitch%12]
}

// Frequency in hertz for twelve tone equal temperament, A4 = 440.
func Frequency(pitch uint8) float64 {
	return 440 * math.Pow(2, (float64(pitch)-69)/12)
}
