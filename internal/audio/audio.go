// Package audio plays notes through the beep speaker.
package audio

import (
	"fmt"
	"time"

	"github.com/faiface/beep"
	"github.com/faiface/beep/speaker"
)

// SampleRate is the rate every backend renders at.
const SampleRate beep.SampleRate = 44100

// Player starts a note. It must return quickly, playback happens elsewhere.
type Player interface {
	Trigger(pitch uint8)
}

// Releaser is implemented by players whose notes sound until released.
type Releaser interface {
	Release(pitch uint8)
}

// Null plays nothing.
type Null struct{}

func (Null) Trigger(pitch uint8) {}

// Output mixes streamers into the sound card.
type Output interface {
	Play(s beep.Streamer)
	Lock()
	Unlock()
}

type speakerOutput struct{}

func (speakerOutput) Play(s beep.Streamer) { speaker.Play(s) }
func (speakerOutput) Lock()                { speaker.Lock() }
func (speakerOutput) Unlock()              { speaker.Unlock() }

// Speaker opens the sound card with a buffer of one frame.
func Speaker(frame time.Duration) (Output, error) {
	if err := speaker.Init(SampleRate, SampleRate.N(frame)); nil != err {
		return nil, fmt.Errorf("unable to open speaker: %w", err)
	}
	return speakerOutput{}, nil
}
