package score

import (
	"testing"
	"time"

	"git.lost.host/meutraa/keys/internal/game"
	"github.com/stretchr/testify/assert"
)

var result time.Duration

func BenchmarkDistance(b *testing.B) {
	s := DefaultScorer{Offset: time.Millisecond * 12}
	total := time.Millisecond * 0
	p, q := time.Millisecond*12456, time.Millisecond*13456
	b.ResetTimer()

	for n := 0; n < b.N; n++ {
		total += s.Distance(p, q)
	}

	result = total
}

type distanceTest struct {
	Offset   time.Duration
	NoteTime time.Duration
	HitTime  time.Duration
	Error    time.Duration
}

func createDistanceTests() []distanceTest {
	tests := []distanceTest{}
	for i := -500; i < 500; i += 7 {
		offset := time.Duration(i%40) * time.Millisecond
		test := distanceTest{
			Offset:   offset,
			NoteTime: time.Duration(1000+i) * time.Millisecond,
			Error:    time.Duration(i) * time.Microsecond,
		}
		// If the note is at 2000ms, the offset 10ms and the error 5ms,
		// the press was at 1995ms
		test.HitTime = test.NoteTime - test.Offset + test.Error
		tests = append(tests, test)
	}
	return tests
}

func TestDistance(t *testing.T) {
	for _, test := range createDistanceTests() {
		scorer := DefaultScorer{Offset: test.Offset}
		err := scorer.Distance(test.NoteTime, test.HitTime)
		if err != test.Error {
			t.Log("         Offset:", test.Offset)
			t.Log("       NoteTime:", test.NoteTime)
			t.Log("  ActualHitTime:", test.HitTime)
			t.Log("Calculated Error", err)
			t.Log("  Expected Error", test.Error)
			t.Log("")
			t.Fail()
		}
	}
}

func TestTally(t *testing.T) {
	tally := Tally{}
	assert.Equal(t, time.Duration(0), tally.Mean())
	assert.Equal(t, time.Duration(0), tally.Stdev())

	for _, d := range []time.Duration{ms(-10), ms(10), ms(30)} {
		tally.Add(Hit{Judgement: game.Perfect, Delta: d})
	}
	tally.Add(Hit{Judgement: game.NoTarget, Index: -1})

	assert.Equal(t, 3, tally.Hits())
	assert.Equal(t, 3, tally.Counts[game.Perfect])
	assert.Equal(t, 1, tally.Counts[game.NoTarget])
	assert.Equal(t, ms(10), tally.Mean())
	assert.Equal(t, ms(20), tally.Stdev())

	tally.Reset()
	assert.Equal(t, 0, tally.Hits())
}
