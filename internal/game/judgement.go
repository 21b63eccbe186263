package game

import (
	"time"
)

// Judgement is the outcome of matching a key press against the hit line.
type Judgement uint8

const (
	NoTarget Judgement = iota
	Perfect
	Good
	Miss
)

var judgementNames = [...]string{
	NoTarget: "No Target",
	Perfect:  "Perfect",
	Good:     "Good",
	Miss:     "Miss",
}

func (j Judgement) String() string {
	if int(j) < len(judgementNames) {
		return judgementNames[j]
	}
	return "Unknown"
}

// Window is the largest absolute timing error that still earns a judgement.
type Window struct {
	Judgement Judgement
	Time      time.Duration
}
