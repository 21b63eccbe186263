package input

import (
	"fmt"
	"time"
	"unicode"

	"github.com/eiannone/keyboard"

	"git.lost.host/meutraa/keys/internal/keys"
)

// KeyMap maps a rune of the key row to its MIDI note.
type KeyMap func(r rune) (uint8, bool)

// Terminal reads a raw mode terminal. Terminals never report releases, so
// a key counts as held until KeyHold passes without a repeat.
type Terminal struct {
	keys   <-chan keyboard.KeyEvent
	keyMap KeyMap
	holds  *holds
	close  func() error
}

// OpenTerminal puts the terminal into raw mode. Close restores it.
func OpenTerminal(keyMap KeyMap, hold time.Duration) (*Terminal, error) {
	keyChannel, err := keyboard.GetKeys(128)
	if nil != err {
		return nil, fmt.Errorf("unable to open keyboard: %w", err)
	}
	t := newTerminal(keyChannel, keyMap, hold)
	t.close = keyboard.Close
	return t, nil
}

func newTerminal(keyChannel <-chan keyboard.KeyEvent, keyMap KeyMap, hold time.Duration) *Terminal {
	return &Terminal{
		keys:   keyChannel,
		keyMap: keyMap,
		holds:  newHolds(hold),
		close:  func() error { return nil },
	}
}

func (t *Terminal) Close() error {
	return t.close()
}

func (t *Terminal) Poll(now time.Time, focused bool) Batch {
	batch := Batch{}

	// get the key inputs that occured so far
	for i := len(t.keys); i > 0; i-- {
		key := <-t.keys
		if nil != key.Err {
			continue
		}
		if key.Key == keyboard.KeyCtrlC {
			batch = append(batch, Event{Kind: Quit})
			continue
		}
		if focused {
			batch = append(batch, t.holds.releaseAll(keys.Keyboard)...)
			batch = append(batch, overlay(key)...)
			continue
		}
		batch = append(batch, t.piano(key, now)...)
	}

	return append(batch, t.holds.expire(now, keys.Keyboard)...)
}

func (t *Terminal) piano(key keyboard.KeyEvent, now time.Time) Batch {
	switch {
	case key.Key == keyboard.KeyEsc:
		return Batch{{Kind: Quit}}
	case key.Key == keyboard.KeySpace || key.Rune == ' ':
		return Batch{{Kind: Pause}}
	case key.Rune == '/':
		return Batch{{Kind: OpenSearch}}
	case key.Rune == 'R' || key.Rune == 'r':
		return Batch{{Kind: Reset}}
	}

	if pitch, ok := t.keyMap(key.Rune); ok {
		if t.holds.press(pitch, now) {
			return Batch{{Kind: KeyDown, Pitch: pitch, Source: keys.Keyboard}}
		}
	}
	return nil
}

func overlay(key keyboard.KeyEvent) Batch {
	switch key.Key {
	case keyboard.KeyEsc:
		return Batch{{Kind: Cancel}}
	case keyboard.KeyEnter:
		return Batch{{Kind: Submit}}
	case keyboard.KeyBackspace, keyboard.KeyBackspace2:
		return Batch{{Kind: Backspace}}
	case keyboard.KeyArrowUp:
		return Batch{{Kind: Up}}
	case keyboard.KeyArrowDown:
		return Batch{{Kind: Down}}
	case keyboard.KeySpace:
		return Batch{{Kind: Char, Rune: ' '}}
	}
	if unicode.IsPrint(key.Rune) {
		return Batch{{Kind: Char, Rune: key.Rune}}
	}
	return nil
}
