package audio

import (
	"math"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/faiface/beep"
	"github.com/faiface/beep/wav"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.lost.host/meutraa/keys/internal/logging"
)

type recordingOutput struct {
	sync.Mutex
	played []beep.Streamer
}

func (o *recordingOutput) Play(s beep.Streamer) {
	o.played = append(o.played, s)
}

func drain(s beep.Streamer) (int, float64) {
	buf := make([][2]float64, 512)
	total, peak := 0, 0.0
	for {
		n, ok := s.Stream(buf)
		for _, v := range buf[:n] {
			peak = math.Max(peak, math.Abs(v[0]))
		}
		total += n
		if !ok {
			return total, peak
		}
	}
}

func writeWav(t *testing.T, file string, pitch uint8, rate beep.SampleRate) {
	f, err := os.Create(file)
	require.NoError(t, err)
	defer f.Close()
	buf := Tone(pitch)
	var s beep.Streamer = buf.Streamer(0, buf.Len())
	if rate != SampleRate {
		s = beep.Resample(4, SampleRate, rate, s)
	}
	require.NoError(t, wav.Encode(f, s, beep.Format{SampleRate: rate, NumChannels: 2, Precision: 2}))
}

func TestTone(t *testing.T) {
	buf := Tone(69)
	assert.Equal(t, SampleRate.N(toneLength), buf.Len())
	n, peak := drain(buf.Streamer(0, buf.Len()))
	assert.Equal(t, buf.Len(), n)
	assert.InDelta(t, toneAmplitude, peak, 0.05)
}

func TestSampleLookup(t *testing.T) {
	dir := t.TempDir()
	writeWav(t, filepath.Join(dir, "C4.wav"), 60, SampleRate)
	writeWav(t, filepath.Join(dir, "60.wav"), 60, SampleRate)
	writeWav(t, filepath.Join(dir, "61.wav"), 61, 22050)

	s := NewSamples(&recordingOutput{}, dir, logging.Discard())
	assert.Equal(t, "C4.wav", s.Source(60))
	assert.Equal(t, "61.wav", s.Source(61))
	assert.Equal(t, "tone", s.Source(62))

	writeWav(t, filepath.Join(dir, PlaceholderSample), 40, SampleRate)
	s = NewSamples(&recordingOutput{}, dir, logging.Discard())
	assert.Equal(t, PlaceholderSample, s.Source(62))
}

func TestTriggerCutsPreviousVoice(t *testing.T) {
	out := &recordingOutput{}
	s := NewSamples(out, t.TempDir(), logging.Discard())

	s.Trigger(60)
	s.Trigger(64)
	s.Trigger(60)
	s.Trigger(200)
	require.Len(t, out.played, 3)

	n, _ := drain(out.played[0])
	assert.Equal(t, 0, n)
	n, _ = drain(out.played[1])
	assert.Equal(t, SampleRate.N(toneLength), n)
	n, peak := drain(out.played[2])
	assert.Equal(t, SampleRate.N(toneLength), n)
	assert.Greater(t, peak, 0.1)
}

func TestNull(t *testing.T) {
	var p Player = Null{}
	p.Trigger(60)
	_, ok := p.(Releaser)
	assert.False(t, ok)
}

func TestLoadSoundFontErrors(t *testing.T) {
	_, err := LoadSoundFont(filepath.Join(t.TempDir(), "missing.sf2"))
	assert.Error(t, err)

	file := filepath.Join(t.TempDir(), "bad.sf2")
	require.NoError(t, os.WriteFile(file, []byte("RIFF....nope"), 0644))
	_, err = LoadSoundFont(file)
	assert.Error(t, err)
}
