package transport

import (
	"time"
)

// Clock is the wall clock the transport samples.
type Clock interface {
	Now() time.Time
}

type SystemClock struct{}

func (SystemClock) Now() time.Time {
	return time.Now()
}
