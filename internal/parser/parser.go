package parser

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"git.lost.host/meutraa/keys/internal/game"
)

var (
	// ErrMalformed is returned for truncated or unreadable MIDI data.
	ErrMalformed = errors.New("malformed midi data")
	// ErrEmpty is returned when the data holds no note events.
	ErrEmpty = errors.New("no note events")
)

type Parser interface {
	Parse(data []byte) (*game.Track, error)
}

// ParseFile reads and parses a MIDI file, titling the track after the file.
func ParseFile(p Parser, file string) (*game.Track, error) {
	data, err := os.ReadFile(file)
	if nil != err {
		return nil, fmt.Errorf("unable to read %v: %w", file, err)
	}
	track, err := p.Parse(data)
	if nil != err {
		return nil, err
	}
	track.Title = strings.TrimSuffix(filepath.Base(file), filepath.Ext(file))
	return track, nil
}
