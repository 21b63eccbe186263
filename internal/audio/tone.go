package audio

import (
	"math"
	"time"

	"github.com/faiface/beep"

	"git.lost.host/meutraa/keys/internal/game"
)

const (
	toneLength    = 1200 * time.Millisecond
	toneAmplitude = 0.25
	toneDecay     = 4.0 // per second
)

// Tone is a decaying sine at the equal tempered frequency of pitch, used
// when no sample exists.
func Tone(pitch uint8) *beep.Buffer {
	freq := game.Frequency(pitch)
	total := SampleRate.N(toneLength)
	attack := SampleRate.N(5 * time.Millisecond)

	i := 0
	tone := beep.StreamerFunc(func(samples [][2]float64) (int, bool) {
		if i >= total {
			return 0, false
		}
		n := 0
		for ; n < len(samples) && i < total; n, i = n+1, i+1 {
			t := float64(i) / float64(SampleRate)
			v := toneAmplitude * math.Exp(-toneDecay*t) * math.Sin(2*math.Pi*freq*t)
			if i < attack {
				v *= float64(i) / float64(attack)
			}
			samples[n][0], samples[n][1] = v, v
		}
		return n, true
	})

	buf := beep.NewBuffer(beep.Format{SampleRate: SampleRate, NumChannels: 2, Precision: 2})
	buf.Append(tone)
	return buf
}
