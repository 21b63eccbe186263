package audio

import (
	"bytes"
	"fmt"
	"os"
	"sync"

	"github.com/sinshu/go-meltysynth/meltysynth"
)

const soundFontVelocity = 100

// SoundFont renders notes with a SoundFont synthesizer. It is a streamer
// that never ends, played once on the output.
type SoundFont struct {
	mu          sync.Mutex
	synth       *meltysynth.Synthesizer
	left, right []float32
}

func LoadSoundFont(file string) (*meltysynth.SoundFont, error) {
	data, err := os.ReadFile(file)
	if nil != err {
		return nil, fmt.Errorf("unable to read soundfont: %w", err)
	}
	sf, err := meltysynth.NewSoundFont(bytes.NewReader(data))
	if nil != err {
		return nil, fmt.Errorf("unable to parse soundfont %v: %w", file, err)
	}
	return sf, nil
}

func NewSoundFont(sf *meltysynth.SoundFont) (*SoundFont, error) {
	settings := meltysynth.NewSynthesizerSettings(int32(SampleRate))
	synth, err := meltysynth.NewSynthesizer(sf, settings)
	if nil != err {
		return nil, fmt.Errorf("unable to create synthesizer: %w", err)
	}
	return &SoundFont{synth: synth}, nil
}

// Start plays the synthesizer output.
func (s *SoundFont) Start(out Output) {
	out.Play(s)
}

func (s *SoundFont) Trigger(pitch uint8) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.synth.NoteOn(0, int32(pitch), soundFontVelocity)
}

func (s *SoundFont) Release(pitch uint8) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.synth.NoteOff(0, int32(pitch))
}

func (s *SoundFont) Stream(samples [][2]float64) (int, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if cap(s.left) < len(samples) {
		s.left = make([]float32, len(samples))
		s.right = make([]float32, len(samples))
	}
	left, right := s.left[:len(samples)], s.right[:len(samples)]
	s.synth.Render(left, right)
	for i := range samples {
		samples[i][0], samples[i][1] = float64(left[i]), float64(right[i])
	}
	return len(samples), true
}

func (s *SoundFont) Err() error {
	return nil
}
