package input

import (
	"time"
)

// Queue carries events from other goroutines to the frame loop.
type Queue struct {
	events chan Event
}

func NewQueue(size int) *Queue {
	return &Queue{events: make(chan Event, size)}
}

// Push never blocks. It reports false when the queue is full and the event
// was dropped.
func (q *Queue) Push(e Event) bool {
	select {
	case q.events <- e:
		return true
	default:
		return false
	}
}

// Poll drains the queue. While the search line has focus new presses are
// dropped and releases still pass.
func (q *Queue) Poll(now time.Time, focused bool) Batch {
	batch := Batch{}
	for i := len(q.events); i > 0; i-- {
		e := <-q.events
		if focused && e.IsPress() {
			continue
		}
		batch = append(batch, e)
	}
	return batch
}

func (q *Queue) Close() error {
	return nil
}
