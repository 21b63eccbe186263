package input

import (
	"encoding/binary"
	"fmt"
	"os"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"git.lost.host/meutraa/keys/internal/keys"
)

// https://github.com/torvalds/linux/blob/master/include/uapi/linux/input-event-codes.h
const evKey = 0x01

type keyEvent struct {
	Time  syscall.Timeval
	Type  uint16
	Code  uint16
	Value int32
}

// codeRunes is the US layout of the keys a key row can use.
var codeRunes = map[uint16]rune{
	2: '1', 3: '2', 4: '3', 5: '4', 6: '5', 7: '6', 8: '7', 9: '8', 10: '9', 11: '0', 12: '-', 13: '=',
	16: 'q', 17: 'w', 18: 'e', 19: 'r', 20: 't', 21: 'y', 22: 'u', 23: 'i', 24: 'o', 25: 'p', 26: '[', 27: ']',
	30: 'a', 31: 's', 32: 'd', 33: 'f', 34: 'g', 35: 'h', 36: 'j', 37: 'k', 38: 'l', 39: ';', 40: '\'',
	44: 'z', 45: 'x', 46: 'c', 47: 'v', 48: 'b', 49: 'n', 50: 'm', 51: ',', 52: '.', 53: '/',
}

// Evdev reads a Linux input device, which reports real releases. It only
// plays the piano, the terminal keeps handling commands and typing.
type Evdev struct {
	events chan keyEvent
	keyMap KeyMap
	held   map[uint8]bool
	file   *os.File
}

func OpenEvdev(device string, keyMap KeyMap, log logrus.FieldLogger) (*Evdev, error) {
	file, err := os.Open(device)
	if err != nil {
		return nil, fmt.Errorf("unable to open %v: %w", device, err)
	}
	e := newEvdev(keyMap)
	e.file = file
	go func() {
		var ev keyEvent
		for {
			err := binary.Read(file, binary.LittleEndian, &ev)
			if nil != err {
				log.WithError(err).Warn("unable to read keyboard input")
				return
			}
			if ev.Type != evKey {
				continue
			}
			select {
			case e.events <- ev:
			default:
			}
		}
	}()
	return e, nil
}

func newEvdev(keyMap KeyMap) *Evdev {
	return &Evdev{events: make(chan keyEvent, 128), keyMap: keyMap, held: map[uint8]bool{}}
}

func (e *Evdev) Close() error {
	if nil == e.file {
		return nil
	}
	return e.file.Close()
}

func (e *Evdev) Poll(now time.Time, focused bool) Batch {
	batch := Batch{}
	for i := len(e.events); i > 0; i-- {
		ev := <-e.events
		r, ok := codeRunes[ev.Code]
		if !ok {
			continue
		}
		pitch, ok := e.keyMap(r)
		if !ok {
			continue
		}
		switch {
		case ev.Value == 1 && !focused && !e.held[pitch]:
			e.held[pitch] = true
			batch = append(batch, Event{Kind: KeyDown, Pitch: pitch, Source: keys.Keyboard})
		case ev.Value == 0 && e.held[pitch]:
			delete(e.held, pitch)
			batch = append(batch, Event{Kind: KeyUp, Pitch: pitch, Source: keys.Keyboard})
		}
	}
	return batch
}
