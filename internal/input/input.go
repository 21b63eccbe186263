// Package input turns raw key reads into per-frame batches of events.
package input

import (
	"fmt"
	"time"

	"git.lost.host/meutraa/keys/internal/keys"
)

type Kind uint8

const (
	KeyDown Kind = iota
	KeyUp
	MouseDown
	MouseUp
	Pause // Toggles
	Halt  // Pauses, never resumes
	Resume
	Reset
	Quit
	Rate // Value is the new rate

	// Search overlay
	OpenSearch
	Char
	Backspace
	Submit
	Up
	Down
	Cancel
	Load // Title and URL name the song
)

var kindNames = [...]string{
	KeyDown:    "KeyDown",
	KeyUp:      "KeyUp",
	MouseDown:  "MouseDown",
	MouseUp:    "MouseUp",
	Pause:      "Pause",
	Halt:       "Halt",
	Resume:     "Resume",
	Reset:      "Reset",
	Quit:       "Quit",
	Rate:       "Rate",
	OpenSearch: "OpenSearch",
	Char:       "Char",
	Backspace:  "Backspace",
	Submit:     "Submit",
	Up:         "Up",
	Down:       "Down",
	Cancel:     "Cancel",
	Load:       "Load",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return fmt.Sprintf("Kind(%d)", k)
}

type Event struct {
	Kind   Kind
	Pitch  uint8
	Source keys.Source
	Rune   rune
	Value  float64
	Title  string
	URL    string
}

// IsNote reports whether the event presses or releases a piano key.
func (e Event) IsNote() bool {
	switch e.Kind {
	case KeyDown, KeyUp, MouseDown, MouseUp:
		return true
	}
	return false
}

// IsPress reports whether the event presses a piano key.
func (e Event) IsPress() bool {
	return e.Kind == KeyDown || e.Kind == MouseDown
}

// Batch is everything that happened since the last frame, oldest first.
type Batch []Event

// Source is polled once per frame. focused routes typing to the search
// overlay instead of the piano.
type Source interface {
	Poll(now time.Time, focused bool) Batch
	Close() error
}

// Sources polls several sources in order.
type Sources []Source

func (s Sources) Poll(now time.Time, focused bool) Batch {
	batch := Batch{}
	for _, src := range s {
		batch = append(batch, src.Poll(now, focused)...)
	}
	return batch
}

func (s Sources) Close() error {
	var first error
	for _, src := range s {
		if err := src.Close(); nil != err && nil == first {
			first = err
		}
	}
	return first
}
