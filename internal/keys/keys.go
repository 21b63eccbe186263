// Package keys tracks which piano keys are held, and by whom.
package keys

import (
	"sort"
)

// Source is whoever holds a key down.
type Source uint8

const (
	Mouse Source = iota
	Keyboard
	Roll
	Remote
)

var sourceNames = [...]string{
	Mouse:    "mouse",
	Keyboard: "keyboard",
	Roll:     "roll",
	Remote:   "remote",
}

func (s Source) String() string {
	if int(s) < len(sourceNames) {
		return sourceNames[s]
	}
	return "unknown"
}

// State reference counts activations per key and source. A key is active
// while any source holds it. Not safe for concurrent use.
type State struct {
	counts [128]map[Source]int
	total  [128]int
}

func NewState() *State {
	return &State{}
}

// Activate reports whether the key went from released to held.
func (s *State) Activate(pitch uint8, source Source) bool {
	if pitch > 127 {
		return false
	}
	if nil == s.counts[pitch] {
		s.counts[pitch] = map[Source]int{}
	}
	s.counts[pitch][source]++
	s.total[pitch]++
	return s.total[pitch] == 1
}

// Deactivate reports whether the key went from held to released. Releasing
// a key the source does not hold does nothing.
func (s *State) Deactivate(pitch uint8, source Source) bool {
	if pitch > 127 || s.counts[pitch][source] == 0 {
		return false
	}
	s.counts[pitch][source]--
	if s.counts[pitch][source] == 0 {
		delete(s.counts[pitch], source)
	}
	s.total[pitch]--
	return s.total[pitch] == 0
}

func (s *State) IsActive(pitch uint8) bool {
	return pitch <= 127 && s.total[pitch] > 0
}

// Count is the number of activations holding the key.
func (s *State) Count(pitch uint8) int {
	if pitch > 127 {
		return 0
	}
	return s.total[pitch]
}

// ReleaseSource drops every activation of source and returns the keys that
// became released, lowest first.
func (s *State) ReleaseSource(source Source) []uint8 {
	released := []uint8{}
	for p := range s.counts {
		n := s.counts[p][source]
		if n == 0 {
			continue
		}
		delete(s.counts[p], source)
		s.total[p] -= n
		if s.total[p] == 0 {
			released = append(released, uint8(p))
		}
	}
	return released
}

// Snapshot lists the active keys, lowest first.
func (s *State) Snapshot() []uint8 {
	active := []uint8{}
	for p, n := range s.total {
		if n > 0 {
			active = append(active, uint8(p))
		}
	}
	sort.Slice(active, func(i, j int) bool { return active[i] < active[j] })
	return active
}
