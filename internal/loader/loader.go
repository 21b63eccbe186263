// Package loader runs searches and song loads off the frame loop.
package loader

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"git.lost.host/meutraa/keys/internal/fetch"
	"git.lost.host/meutraa/keys/internal/game"
	"git.lost.host/meutraa/keys/internal/parser"
	"git.lost.host/meutraa/keys/internal/search"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// Request identifies one search or load. Seq grows with every request.
type Request struct {
	Seq uint64
	ID  string
}

type SearchResult struct {
	Request
	Query   string
	Results []search.Result
	Err     error
}

type LoadResult struct {
	Request
	Source string // URL or file
	Track  *game.Track
	Err    error
}

type titledFetcher interface {
	FetchTitled(ctx context.Context, url, title string) ([]byte, error)
}

// forgetter is a caching fetcher that can drop a stored download.
type forgetter interface {
	Forget(url string)
}

// Loader starts each request on its own goroutine and cancels the previous
// request of the same kind. Results of superseded requests are dropped, the
// rest arrive in the inboxes, which the frame loop checks once per frame.
type Loader struct {
	Searcher search.Searcher
	Fetcher  fetch.Fetcher
	Parser   parser.Parser
	Log      logrus.FieldLogger

	Searches Inbox[SearchResult]
	Loads    Inbox[LoadResult]

	seq        atomic.Uint64
	lastSearch atomic.Uint64
	lastLoad   atomic.Uint64
	wg         sync.WaitGroup
	mu         sync.Mutex
	ctx        context.Context
	stop       context.CancelFunc
	search     context.CancelFunc
	load       context.CancelFunc
}

func New(searcher search.Searcher, fetcher fetch.Fetcher, p parser.Parser, log logrus.FieldLogger) *Loader {
	ctx, stop := context.WithCancel(context.Background())
	return &Loader{
		Searcher: searcher,
		Fetcher:  fetcher,
		Parser:   p,
		Log:      log,
		ctx:      ctx,
		stop:     stop,
	}
}

func (l *Loader) next() Request {
	return Request{Seq: l.seq.Add(1), ID: uuid.NewString()}
}

// start cancels *previous, then runs fn with a fresh context. last holds
// the newest request of the kind.
func (l *Loader) start(req Request, last *atomic.Uint64, previous *context.CancelFunc, fn func(ctx context.Context)) {
	l.mu.Lock()
	last.Store(req.Seq)
	if nil != *previous {
		(*previous)()
	}
	ctx, cancel := context.WithCancel(l.ctx)
	*previous = cancel
	l.wg.Add(1)
	l.mu.Unlock()

	go func() {
		defer l.wg.Done()
		defer cancel()
		fn(ctx)
	}()
}

// Search looks for songs matching query.
func (l *Loader) Search(query string) Request {
	req := l.next()
	log := l.Log.WithFields(logrus.Fields{"request": req.ID, "seq": req.Seq, "query": query})
	log.Info("search started")

	l.start(req, &l.lastSearch, &l.search, func(ctx context.Context) {
		results, err := l.Searcher.Search(ctx, query)
		if nil != err {
			log.WithError(err).Warn("search failed")
		}
		if l.lastSearch.Load() != req.Seq {
			log.Debug("discarding superseded search")
			return
		}
		l.Searches.Put(req.Seq, SearchResult{Request: req, Query: query, Results: results, Err: err})
	})
	return req
}

// Load downloads and parses a search result.
func (l *Loader) Load(result search.Result) Request {
	req := l.next()
	log := l.Log.WithFields(logrus.Fields{"request": req.ID, "seq": req.Seq, "url": result.SourceURL})
	log.Info("load started")

	l.start(req, &l.lastLoad, &l.load, func(ctx context.Context) {
		track, err := l.fetchAndParse(ctx, result)
		if nil != err {
			log.WithError(err).Warn("load failed")
		} else {
			log.WithField("notes", len(track.Notes)).Info("load finished")
		}
		if l.lastLoad.Load() != req.Seq {
			log.Debug("discarding superseded load")
			return
		}
		l.Loads.Put(req.Seq, LoadResult{Request: req, Source: result.SourceURL, Track: track, Err: err})
	})
	return req
}

func (l *Loader) fetchAndParse(ctx context.Context, result search.Result) (*game.Track, error) {
	var data []byte
	var err error
	if f, ok := l.Fetcher.(titledFetcher); ok {
		data, err = f.FetchTitled(ctx, result.SourceURL, result.Title)
	} else {
		data, err = l.Fetcher.Fetch(ctx, result.SourceURL)
	}
	if nil != err {
		return nil, fmt.Errorf("unable to download %v: %w", result.Title, err)
	}
	if err := ctx.Err(); nil != err {
		return nil, err
	}
	track, err := l.Parser.Parse(data)
	if errors.Is(err, parser.ErrMalformed) {
		if f, ok := l.Fetcher.(forgetter); ok {
			f.Forget(result.SourceURL)
		}
	}
	if nil != err {
		return nil, fmt.Errorf("unable to parse %v: %w", result.Title, err)
	}
	track.Title = result.Title
	return track, nil
}

// LoadFile parses a local file.
func (l *Loader) LoadFile(file string) Request {
	req := l.next()
	log := l.Log.WithFields(logrus.Fields{"request": req.ID, "seq": req.Seq, "file": file})
	log.Info("load started")

	l.start(req, &l.lastLoad, &l.load, func(ctx context.Context) {
		track, err := parser.ParseFile(l.Parser, file)
		if nil != err {
			log.WithError(err).Warn("load failed")
		}
		if l.lastLoad.Load() != req.Seq {
			log.Debug("discarding superseded load")
			return
		}
		l.Loads.Put(req.Seq, LoadResult{Request: req, Source: file, Track: track, Err: err})
	})
	return req
}

// Close cancels everything in flight and waits for it to finish.
func (l *Loader) Close() {
	l.stop()
	l.wg.Wait()
}
