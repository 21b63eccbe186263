package session

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.lost.host/meutraa/keys/internal/fetch"
	"git.lost.host/meutraa/keys/internal/game"
	"git.lost.host/meutraa/keys/internal/input"
	"git.lost.host/meutraa/keys/internal/keys"
	"git.lost.host/meutraa/keys/internal/loader"
	"git.lost.host/meutraa/keys/internal/logging"
	"git.lost.host/meutraa/keys/internal/parser"
	"git.lost.host/meutraa/keys/internal/render"
	"git.lost.host/meutraa/keys/internal/roll"
	"git.lost.host/meutraa/keys/internal/score"
	"git.lost.host/meutraa/keys/internal/search"
	"git.lost.host/meutraa/keys/internal/testdata"
	"git.lost.host/meutraa/keys/internal/transport"
)

type recorder struct {
	triggered []uint8
	released  []uint8
}

func (r *recorder) Trigger(pitch uint8) { r.triggered = append(r.triggered, pitch) }
func (r *recorder) Release(pitch uint8) { r.released = append(r.released, pitch) }

type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	return c.now
}

type fakeSearcher struct{}

func (fakeSearcher) Search(ctx context.Context, query string) ([]search.Result, error) {
	if query == "broken" {
		return nil, fetch.ErrNetworkFailure
	}
	return []search.Result{
		{Title: query + " one", SourceURL: "https://example.com/one.mid"},
		{Title: query + " two", SourceURL: "https://example.com/two.mid"},
	}, nil
}

type mapFetcher map[string][]byte

func (m mapFetcher) Fetch(ctx context.Context, url string) ([]byte, error) {
	data, ok := m[url]
	if !ok {
		return nil, fetch.ErrNotFound
	}
	return data, nil
}

type harness struct {
	*Session
	player *recorder
	clock  *fakeClock
	start  time.Time
}

func newHarness(t *testing.T) *harness {
	start := time.Unix(1000, 0)
	clock := &fakeClock{now: start}
	player := &recorder{}
	files := mapFetcher{"https://example.com/two.mid": testdata.Scale().MustBytes()}
	l := loader.New(fakeSearcher{}, files, &parser.DefaultParser{}, logging.Discard())
	t.Cleanup(l.Close)

	s := New(
		Config{MinHold: 120 * time.Millisecond, EffectLife: 400 * time.Millisecond, BarRow: 6, BaseNote: 60, Octaves: 2},
		transport.New(clock),
		roll.New(roll.Config{Past: time.Second, Future: 4 * time.Second, Tolerance: 50 * time.Millisecond, Speed: 8}),
		score.NewDefaultScorer(40*time.Millisecond, 100*time.Millisecond, 250*time.Millisecond, 0),
		player,
		l,
		logging.Discard(),
	)
	s.Resize(40, 100)
	return &harness{Session: s, player: player, clock: clock, start: start}
}

// step runs the frame at d after the start.
func (h *harness) step(d time.Duration, batch ...input.Event) *render.View {
	h.clock.now = h.start.Add(d)
	view, _ := h.Step(h.clock.now, batch)
	return view
}

func (h *harness) put(seq uint64, track *game.Track, err error) {
	h.Loader.Loads.Put(seq, loader.LoadResult{Request: loader.Request{Seq: seq}, Source: "test.mid", Track: track, Err: err})
}

func three() *game.Track {
	return game.NewTrack("Three", []game.Note{
		{Pitch: 60, Time: 0, Duration: 250 * time.Millisecond},
		{Pitch: 62, Time: time.Second, Duration: 250 * time.Millisecond},
		{Pitch: 64, Time: 2 * time.Second, Duration: 250 * time.Millisecond},
	}, 0)
}

func press(pitch uint8) input.Event {
	return input.Event{Kind: input.KeyDown, Pitch: pitch, Source: keys.Keyboard}
}

func lift(pitch uint8) input.Event {
	return input.Event{Kind: input.KeyUp, Pitch: pitch, Source: keys.Keyboard}
}

func TestStartsWithPlaceholder(t *testing.T) {
	h := newHarness(t)
	view := h.step(0)
	assert.Equal(t, game.PlaceholderTitle, view.Title)
	assert.False(t, view.Paused)
	assert.Equal(t, uint8(60), view.Low)
	assert.Equal(t, uint8(84), view.High)
	assert.Equal(t, float64(h.Layout().HitRow), h.Roll.HitLine)
}

func TestLoadResults(t *testing.T) {
	h := newHarness(t)

	h.put(2, three(), nil)
	view := h.step(0)
	assert.Equal(t, "Three", view.Title)
	assert.Equal(t, "Playing Three", view.Status)

	// an older request never replaces a newer song
	h.put(1, game.Placeholder(), nil)
	view = h.step(10 * time.Millisecond)
	assert.Equal(t, "Three", view.Title)

	h.put(3, nil, errors.New("boom"))
	view = h.step(20 * time.Millisecond)
	assert.Equal(t, "Three", view.Title)
	assert.Contains(t, view.Status, "boom")

	h.put(4, nil, context.Canceled)
	view = h.step(30 * time.Millisecond)
	assert.Equal(t, "Three", view.Title)
	assert.Contains(t, view.Status, "boom")

	h.put(5, nil, parser.ErrEmpty)
	view = h.step(40 * time.Millisecond)
	assert.Equal(t, game.PlaceholderTitle, view.Title)
	assert.Equal(t, time.Duration(0), view.SongTime)
}

func TestOnsetsAtOneSecond(t *testing.T) {
	h := newHarness(t)
	h.put(1, three(), nil)
	h.step(0)
	require.Equal(t, []uint8{60}, h.player.triggered)

	h.step(time.Second)
	assert.Equal(t, []uint8{60, 62}, h.player.triggered)
	assert.True(t, h.Keys.IsActive(62))
	assert.False(t, h.Keys.IsActive(64))
	// the first note was held for its duration only
	assert.False(t, h.Keys.IsActive(60))
	assert.Equal(t, []uint8{60}, h.player.released)

	// a later frame of the same pass triggers nothing new
	h.step(time.Second + 20*time.Millisecond)
	assert.Equal(t, []uint8{60, 62}, h.player.triggered)
}

func TestOverlappingActivation(t *testing.T) {
	h := newHarness(t)
	h.put(1, three(), nil)
	h.step(0)
	h.step(time.Second)
	require.True(t, h.Keys.IsActive(62))

	// the key is already down, nothing new sounds
	view := h.step(time.Second+10*time.Millisecond, press(62))
	assert.Equal(t, []uint8{60, 62}, h.player.triggered)
	require.Len(t, view.Effects, 1)
	assert.Equal(t, game.Perfect, view.Effects[0].Judgement)

	h.step(time.Second+20*time.Millisecond, lift(62))
	assert.True(t, h.Keys.IsActive(62))
	assert.Equal(t, []uint8{60}, h.player.released)

	h.step(time.Second + 300*time.Millisecond)
	assert.False(t, h.Keys.IsActive(62))
	assert.Equal(t, []uint8{60, 62}, h.player.released)
}

func TestMinimumRollHold(t *testing.T) {
	h := newHarness(t)
	h.put(1, game.NewTrack("Short", []game.Note{{Pitch: 60, Time: 0, Duration: time.Millisecond}}, time.Second), nil)
	h.step(0)
	h.step(100 * time.Millisecond)
	assert.True(t, h.Keys.IsActive(60))
	h.step(130 * time.Millisecond)
	assert.False(t, h.Keys.IsActive(60))
}

func TestPausedInputIsIgnored(t *testing.T) {
	h := newHarness(t)
	h.put(1, three(), nil)
	h.step(0)
	require.Equal(t, 1, h.Keys.Count(60))

	view := h.step(10*time.Millisecond, input.Event{Kind: input.Pause})
	assert.True(t, view.Paused)

	view = h.step(500*time.Millisecond, press(62))
	assert.Equal(t, time.Duration(0), view.SongTime)
	assert.False(t, h.Keys.IsActive(62))
	assert.Equal(t, 0, h.tally.Hits())
	assert.Empty(t, view.Effects)
	assert.Equal(t, []uint8{60}, h.player.triggered)

	view = h.step(600*time.Millisecond, input.Event{Kind: input.Pause})
	assert.False(t, view.Paused)
	assert.Equal(t, time.Duration(0), view.SongTime)

	view = h.step(600*time.Millisecond, press(60))
	assert.Equal(t, 2, h.Keys.Count(60))
	assert.Equal(t, 1, view.Tally.Counts[game.Perfect])
}

func TestReleaseWhilePaused(t *testing.T) {
	h := newHarness(t)
	h.put(1, three(), nil)
	h.step(0)
	h.step(500*time.Millisecond, press(62))
	require.True(t, h.Keys.IsActive(62))

	h.step(510*time.Millisecond, input.Event{Kind: input.Pause})
	h.step(520*time.Millisecond, lift(62))
	assert.False(t, h.Keys.IsActive(62))
	assert.Contains(t, h.player.released, uint8(62))
}

func TestReset(t *testing.T) {
	h := newHarness(t)
	h.put(1, three(), nil)
	h.step(0)
	h.step(time.Second, press(67))
	h.step(time.Second + 10*time.Millisecond)
	require.Equal(t, []uint8{62, 67}, h.Keys.Snapshot())
	require.Equal(t, 1, h.tally.Counts[game.NoTarget])

	h.Keys.Activate(70, keys.Remote)
	view := h.step(time.Second+20*time.Millisecond, input.Event{Kind: input.Reset})
	assert.Equal(t, time.Duration(0), view.SongTime)
	// the roll presses the first note again, the remote key stays down
	assert.Equal(t, []uint8{60, 70}, h.Keys.Snapshot())
	assert.Equal(t, 0, view.Tally.Counts[game.NoTarget])
	assert.Empty(t, view.Effects)
	assert.Subset(t, h.player.released, []uint8{62, 67})

	// input is applied before the roll, so 67 sounds before 62
	assert.Equal(t, []uint8{60, 67, 62, 60}, h.player.triggered)
}

func TestEffectsFade(t *testing.T) {
	h := newHarness(t)
	h.step(0)
	h.step(time.Second, press(61))

	view := h.step(time.Second + 200*time.Millisecond)
	require.Len(t, view.Effects, 1)
	assert.Equal(t, uint8(61), view.Effects[0].Pitch)
	assert.Equal(t, game.NoTarget, view.Effects[0].Judgement)
	assert.InDelta(t, 0.5, view.Effects[0].Remaining, 0.001)

	view = h.step(time.Second + 400*time.Millisecond)
	assert.Empty(t, view.Effects)
}

func TestCommands(t *testing.T) {
	h := newHarness(t)
	view := h.step(0, input.Event{Kind: input.Rate, Value: 0.5})
	assert.Equal(t, 0.5, view.Rate)

	view = h.step(time.Second)
	assert.Equal(t, 500*time.Millisecond, view.SongTime)

	h.step(time.Second, input.Event{Kind: input.Pause})
	view = h.step(2*time.Second, input.Event{Kind: input.Resume})
	assert.False(t, view.Paused)
	assert.Equal(t, 500*time.Millisecond, view.SongTime)

	// halting twice stays paused
	h.step(2*time.Second, input.Event{Kind: input.Halt})
	view = h.step(2*time.Second, input.Event{Kind: input.Halt})
	assert.True(t, view.Paused)

	h.clock.now = h.start.Add(3 * time.Second)
	_, cont := h.Step(h.clock.now, input.Batch{{Kind: input.Quit}})
	assert.False(t, cont)
}

func TestSearchOverlay(t *testing.T) {
	h := newHarness(t)
	h.step(0, input.Event{Kind: input.OpenSearch})
	assert.True(t, h.Focused())

	typed := input.Batch{}
	for _, r := range "bachx" {
		typed = append(typed, input.Event{Kind: input.Char, Rune: r})
	}
	typed = append(typed, input.Event{Kind: input.Backspace}, input.Event{Kind: input.Submit})
	view := h.step(0, typed...)
	assert.Equal(t, "bach", view.Overlay.Query)
	assert.True(t, view.Overlay.Searching)

	require.Eventually(t, func() bool {
		view = h.step(0)
		return len(view.Overlay.Results) == 2
	}, 2*time.Second, time.Millisecond)
	assert.False(t, view.Overlay.Searching)
	assert.Equal(t, "bach one", view.Overlay.Results[0].Title)

	view = h.step(0, input.Event{Kind: input.Down}, input.Event{Kind: input.Down}, input.Event{Kind: input.Submit})
	assert.Equal(t, 1, view.Overlay.Selected)
	assert.False(t, h.Focused())
	assert.Equal(t, "Loading bach two", view.Status)

	require.Eventually(t, func() bool {
		view = h.step(0)
		return view.Title == "bach two"
	}, 2*time.Second, time.Millisecond)
	assert.Len(t, h.Track().Notes, 8)
}

func TestPressesWhileTyping(t *testing.T) {
	h := newHarness(t)
	h.step(0)
	h.step(10*time.Millisecond, press(64))
	require.True(t, h.Keys.IsActive(64))
	hits := h.tally.Hits()

	// the press arrives in the same batch that opens the search line
	view := h.step(20*time.Millisecond, input.Event{Kind: input.OpenSearch}, press(61), lift(64))
	assert.True(t, h.Focused())
	assert.False(t, h.Keys.IsActive(61))
	assert.False(t, h.Keys.IsActive(64))
	assert.Equal(t, hits, h.tally.Hits())
	assert.NotContains(t, h.player.triggered, uint8(61))
	assert.Len(t, view.Effects, 1)
}

func TestSearchFailure(t *testing.T) {
	h := newHarness(t)
	batch := input.Batch{{Kind: input.OpenSearch}}
	for _, r := range "broken" {
		batch = append(batch, input.Event{Kind: input.Char, Rune: r})
	}
	batch = append(batch, input.Event{Kind: input.Submit}, input.Event{Kind: input.Up})
	view := h.step(0, batch...)
	assert.Equal(t, 0, view.Overlay.Selected)

	require.Eventually(t, func() bool {
		view = h.step(0)
		return !view.Overlay.Searching
	}, 2*time.Second, time.Millisecond)
	assert.Contains(t, view.Status, "Search failed")
	assert.Empty(t, view.Overlay.Results)

	view = h.step(0, input.Event{Kind: input.Cancel})
	assert.False(t, view.Overlay.Open)
}

func TestStatusSnapshot(t *testing.T) {
	h := newHarness(t)
	h.put(1, three(), nil)
	h.step(0)
	h.step(time.Second, press(62))

	status := h.Status()
	assert.Equal(t, "Three", status.Title)
	assert.Equal(t, 1.0, status.SongTime)
	assert.Equal(t, []int{62}, status.Active)
	assert.Equal(t, 0, status.Counts["Perfect"])
	assert.False(t, status.Paused)
}
