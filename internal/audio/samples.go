package audio

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/faiface/beep"
	"github.com/faiface/beep/wav"
	"github.com/sirupsen/logrus"

	"git.lost.host/meutraa/keys/internal/game"
)

const PlaceholderSample = "placeholder_sound.wav"

type sample struct {
	buffer *beep.Buffer
	source string
}

// Samples plays one buffer per pitch. A retriggered pitch cuts its previous
// voice off.
type Samples struct {
	out     Output
	log     logrus.FieldLogger
	samples [128]sample
	voices  [128]*beep.Ctrl
}

func decode(file string) (*beep.Buffer, error) {
	f, err := os.Open(file)
	if nil != err {
		return nil, err
	}
	streamer, format, err := wav.Decode(f)
	if nil != err {
		f.Close()
		return nil, fmt.Errorf("unable to decode %v: %w", file, err)
	}
	defer streamer.Close()

	var s beep.Streamer = streamer
	if format.SampleRate != SampleRate {
		s = beep.Resample(4, format.SampleRate, SampleRate, streamer)
	}
	buf := beep.NewBuffer(beep.Format{SampleRate: SampleRate, NumChannels: 2, Precision: 2})
	buf.Append(s)
	return buf, nil
}

// NewSamples loads every pitch from dir, trying the note name
// ("C#4.wav"), then the MIDI number ("61.wav"), then the placeholder
// sample. Pitches without any of these get a synthesized tone.
func NewSamples(out Output, dir string, log logrus.FieldLogger) *Samples {
	s := &Samples{out: out, log: log}

	var placeholder *beep.Buffer
	if buf, err := decode(filepath.Join(dir, PlaceholderSample)); nil == err {
		placeholder = buf
	} else if !os.IsNotExist(err) {
		log.WithError(err).Warn("unable to load placeholder sample")
	}

	loaded := 0
	for p := 0; p < len(s.samples); p++ {
		pitch := uint8(p)
		for _, name := range []string{game.NoteName(pitch) + ".wav", fmt.Sprintf("%v.wav", pitch)} {
			file := filepath.Join(dir, name)
			buf, err := decode(file)
			if nil != err {
				if !os.IsNotExist(err) {
					log.WithError(err).WithField("file", file).Warn("unable to load sample")
				}
				continue
			}
			s.samples[p] = sample{buffer: buf, source: name}
			loaded++
			break
		}
		if nil == s.samples[p].buffer && nil != placeholder {
			s.samples[p] = sample{buffer: placeholder, source: PlaceholderSample}
		}
	}
	log.WithFields(logrus.Fields{"dir": dir, "loaded": loaded}).Info("samples loaded")
	return s
}

// Source names where the sound of pitch comes from.
func (s *Samples) Source(pitch uint8) string {
	if pitch > 127 || nil == s.samples[pitch].buffer {
		return "tone"
	}
	return s.samples[pitch].source
}

func (s *Samples) buffer(pitch uint8) *beep.Buffer {
	if nil == s.samples[pitch].buffer {
		s.samples[pitch] = sample{buffer: Tone(pitch), source: "tone"}
	}
	return s.samples[pitch].buffer
}

func (s *Samples) Trigger(pitch uint8) {
	if pitch > 127 {
		return
	}
	buf := s.buffer(pitch)
	voice := &beep.Ctrl{Streamer: buf.Streamer(0, buf.Len())}

	s.out.Lock()
	if previous := s.voices[pitch]; nil != previous {
		previous.Streamer = nil
	}
	s.out.Unlock()

	s.voices[pitch] = voice
	s.out.Play(voice)
}
