// Package session runs one frame of the trainer at a time. Everything in
// it is owned by the frame loop.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"
	"unicode/utf8"

	"github.com/sirupsen/logrus"

	"git.lost.host/meutraa/keys/internal/audio"
	"git.lost.host/meutraa/keys/internal/game"
	"git.lost.host/meutraa/keys/internal/input"
	"git.lost.host/meutraa/keys/internal/keys"
	"git.lost.host/meutraa/keys/internal/loader"
	"git.lost.host/meutraa/keys/internal/parser"
	"git.lost.host/meutraa/keys/internal/render"
	"git.lost.host/meutraa/keys/internal/roll"
	"git.lost.host/meutraa/keys/internal/score"
	"git.lost.host/meutraa/keys/internal/search"
	"git.lost.host/meutraa/keys/internal/transport"
)

type Config struct {
	MinHold    time.Duration // Shortest time a roll onset keeps its key down
	EffectLife time.Duration
	BarRow     uint
	BaseNote   uint8
	Octaves    uint
}

// rollHold is a key pressed by the roll, released at song time until.
type rollHold struct {
	pitch uint8
	until time.Duration
}

type effect struct {
	pitch     uint8
	judgement game.Judgement
	born      time.Time
}

type Session struct {
	Config

	Transport *transport.Transport
	Roll      *roll.Engine
	Keys      *keys.State
	Scorer    score.Scorer
	Player    audio.Player
	Loader    *loader.Loader
	Log       logrus.FieldLogger

	track  *game.Track
	layout render.Layout
	now    time.Time // Wall time of the current frame
	tally  score.Tally
	status string

	holds   []rollHold
	effects []effect

	overlay  render.Overlay
	searched string // Query of the results in the overlay

	lastSearch, lastLoad uint64 // Newest applied request of each kind
	pendingSearch        uint64

	snapshot atomic.Pointer[Status]
}

func New(config Config, t *transport.Transport, r *roll.Engine, scorer score.Scorer, player audio.Player, l *loader.Loader, log logrus.FieldLogger) *Session {
	s := &Session{
		Config:    config,
		Transport: t,
		Roll:      r,
		Keys:      keys.NewState(),
		Scorer:    scorer,
		Player:    player,
		Loader:    l,
		Log:       log,
	}
	s.swap(game.Placeholder())
	s.publish()
	return s
}

// Track is the song being played.
func (s *Session) Track() *game.Track {
	return s.track
}

func (s *Session) Layout() render.Layout {
	return s.layout
}

// Resize lays the roll out for a terminal of rows by cols.
func (s *Session) Resize(rows, cols int) {
	s.layout.Rows, s.layout.Cols = rows, cols
	s.relayout()
}

func (s *Session) relayout() {
	low, high := render.KeyRange(s.track, s.BaseNote, s.Octaves)
	s.layout = render.NewLayout(s.layout.Rows, s.layout.Cols, s.BarRow, low, high)
	s.Roll.HitLine = float64(s.layout.HitRow)
}

// swap replaces the track and starts it from the beginning.
func (s *Session) swap(track *game.Track) {
	s.track = track
	s.reset()
	s.relayout()
}

// reset rewinds the song and releases every key the roll or the computer
// keyboard holds.
func (s *Session) reset() {
	s.Transport.Reset()
	s.Roll.Reset()
	s.holds = nil
	s.effects = nil
	s.tally.Reset()
	for _, source := range []keys.Source{keys.Roll, keys.Keyboard} {
		for _, pitch := range s.Keys.ReleaseSource(source) {
			s.release(pitch)
		}
	}
}

func (s *Session) release(pitch uint8) {
	if r, ok := s.Player.(audio.Releaser); ok {
		r.Release(pitch)
	}
}

// Step runs one frame. It returns false once the user asked to quit.
func (s *Session) Step(now time.Time, batch input.Batch) (*render.View, bool) {
	s.now = now
	s.drain()

	cont := true
	for _, ev := range batch {
		if !s.apply(ev) {
			cont = false
		}
	}

	songTime := s.Transport.Advance(now)

	frame := s.Roll.Update(s.track, songTime)
	for _, n := range frame.Onsets {
		if s.Keys.Activate(n.Pitch, keys.Roll) {
			s.Player.Trigger(n.Pitch)
		}
		s.holds = append(s.holds, rollHold{pitch: n.Pitch, until: n.Time + max(n.Duration, s.MinHold)})
	}
	s.expire(songTime)

	view := s.view(now, frame)
	s.publish()
	return view, cont
}

func (s *Session) expire(songTime time.Duration) {
	kept := s.holds[:0]
	for _, h := range s.holds {
		if songTime < h.until {
			kept = append(kept, h)
			continue
		}
		if s.Keys.Deactivate(h.pitch, keys.Roll) {
			s.release(h.pitch)
		}
	}
	s.holds = kept
}

// drain applies what the loader finished since the last frame.
func (s *Session) drain() {
	if nil == s.Loader {
		return
	}
	if res, ok := s.Loader.Searches.Take(); ok {
		s.applySearch(res)
	}
	if res, ok := s.Loader.Loads.Take(); ok {
		s.applyLoad(res)
	}
}

func (s *Session) applySearch(res loader.SearchResult) {
	log := s.Log.WithFields(logrus.Fields{"request": res.ID, "seq": res.Seq})
	if res.Seq <= s.lastSearch {
		log.Debug("discarding stale search")
		return
	}
	s.lastSearch = res.Seq
	if res.Seq == s.pendingSearch {
		s.overlay.Searching = false
	}

	switch {
	case errors.Is(res.Err, context.Canceled):
		return
	case nil != res.Err:
		s.status = fmt.Sprintf("Search failed: %v", res.Err)
		return
	}

	s.overlay.Results = res.Results
	s.overlay.Selected = 0
	s.searched = res.Query
	s.status = fmt.Sprintf("%v results for %q", len(res.Results), res.Query)
}

func (s *Session) applyLoad(res loader.LoadResult) {
	log := s.Log.WithFields(logrus.Fields{"request": res.ID, "seq": res.Seq, "source": res.Source})
	if res.Seq <= s.lastLoad {
		log.Debug("discarding stale load")
		return
	}
	s.lastLoad = res.Seq

	switch {
	case errors.Is(res.Err, context.Canceled):
		return
	case errors.Is(res.Err, parser.ErrEmpty):
		log.Info("song has no notes, loading the placeholder")
		s.swap(game.Placeholder())
		s.status = fmt.Sprintf("%v has no notes, playing %v", res.Source, game.PlaceholderTitle)
	case nil != res.Err:
		s.status = fmt.Sprintf("Unable to load: %v", res.Err)
	default:
		log.WithField("notes", len(res.Track.Notes)).Info("playing")
		s.swap(res.Track)
		s.status = fmt.Sprintf("Playing %v", res.Track.Title)
	}
}

// apply handles one input event and reports false on quit.
func (s *Session) apply(ev input.Event) bool {
	if ev.IsNote() {
		s.note(ev)
		return true
	}

	switch ev.Kind {
	case input.Quit:
		return false
	case input.Pause:
		s.Transport.Toggle()
	case input.Halt:
		s.Transport.Pause()
	case input.Resume:
		s.Transport.Resume()
	case input.Reset:
		s.reset()
		s.status = "Restarted"
	case input.Rate:
		s.Transport.SetRate(ev.Value)
	case input.Load:
		s.load(search.Result{Title: ev.Title, SourceURL: ev.URL})
	default:
		s.typeOverlay(ev)
	}
	return true
}

func (s *Session) note(ev input.Event) {
	if !ev.IsPress() {
		// releases always apply so nothing stays held across a pause
		if s.Keys.Deactivate(ev.Pitch, ev.Source) {
			s.release(ev.Pitch)
		}
		return
	}
	// presses are ignored while paused or typing
	if !s.Transport.Running() || s.overlay.Open {
		return
	}
	if s.Keys.Activate(ev.Pitch, ev.Source) {
		s.Player.Trigger(ev.Pitch)
	}

	hit := s.Scorer.Judge(ev.Pitch, s.Transport.SongTime(), s.track)
	s.tally.Add(hit)
	s.effects = append(s.effects, effect{pitch: ev.Pitch, judgement: hit.Judgement, born: s.now})
	s.Log.WithFields(logrus.Fields{
		"pitch":     game.NoteName(ev.Pitch),
		"judgement": hit.Judgement,
		"delta":     hit.Delta,
	}).Debug("judged")
}

func (s *Session) load(result search.Result) {
	if nil == s.Loader {
		return
	}
	s.Loader.Load(result)
	s.status = fmt.Sprintf("Loading %v", result.Title)
}

func (s *Session) typeOverlay(ev input.Event) {
	o := &s.overlay
	switch ev.Kind {
	case input.OpenSearch:
		o.Open = true
	case input.Cancel:
		o.Open = false
	case input.Char:
		o.Query += string(ev.Rune)
	case input.Backspace:
		if _, size := utf8.DecodeLastRuneInString(o.Query); size > 0 {
			o.Query = o.Query[:len(o.Query)-size]
		}
	case input.Up:
		o.Selected = max(o.Selected-1, 0)
	case input.Down:
		o.Selected = max(min(o.Selected+1, len(o.Results)-1), 0)
	case input.Submit:
		s.submit()
	}
}

// submit loads the selected result, or searches when the query changed
// since the results arrived.
func (s *Session) submit() {
	o := &s.overlay
	if len(o.Results) > 0 && o.Query == s.searched {
		s.load(o.Results[o.Selected])
		o.Open = false
		return
	}
	if nil == s.Loader {
		return
	}
	req := s.Loader.Search(o.Query)
	s.pendingSearch = req.Seq
	o.Searching = true
	o.Results = nil
	o.Selected = 0
	s.status = fmt.Sprintf("Searching for %q", o.Query)
}

// Focused reports whether typing goes to the search overlay.
func (s *Session) Focused() bool {
	return s.overlay.Open
}

func (s *Session) view(now time.Time, frame roll.Frame) *render.View {
	kept := s.effects[:0]
	effects := []render.Effect{}
	for _, e := range s.effects {
		remaining := 1 - float64(now.Sub(e.born))/float64(s.EffectLife)
		if s.EffectLife <= 0 || remaining <= 0 {
			continue
		}
		kept = append(kept, e)
		effects = append(effects, render.Effect{Pitch: e.pitch, Judgement: e.judgement, Remaining: min(remaining, 1)})
	}
	s.effects = kept

	return &render.View{
		Title:    s.track.Title,
		SongTime: s.Transport.SongTime(),
		Length:   s.track.Length,
		Paused:   !s.Transport.Running(),
		Rate:     s.Transport.Rate(),
		Low:      s.layout.Low,
		High:     s.layout.High,
		Notes:    frame.Visible,
		Active:   s.Keys.Snapshot(),
		Effects:  effects,
		Tally:    s.tally,
		Status:   s.status,
		Overlay:  s.overlay,
	}
}
