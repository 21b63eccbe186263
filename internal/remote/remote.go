// Package remote lets other programs drive the trainer over HTTP. Handlers
// only read the published status and queue events for the frame loop.
package remote

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/cors"
	"github.com/sirupsen/logrus"

	"git.lost.host/meutraa/keys/internal/input"
	"git.lost.host/meutraa/keys/internal/keys"
	"git.lost.host/meutraa/keys/internal/library"
	"git.lost.host/meutraa/keys/internal/session"
)

const recentLimit = 50

type StatusSource interface {
	Status() session.Status
}

type Songs interface {
	Recent(limit int) ([]library.Entry, error)
}

type Server struct {
	Status  StatusSource
	Queue   *input.Queue
	Library Songs // Optional
	Log     logrus.FieldLogger
}

type loadRequest struct {
	Title string `json:"title"`
	URL   string `json:"url"`
}

type rateRequest struct {
	Rate float64 `json:"rate"`
}

type song struct {
	Title   string    `json:"title"`
	URL     string    `json:"url"`
	Fetched time.Time `json:"fetched"`
	Size    int       `json:"size"`
}

func (s *Server) Handler() http.Handler {
	router := mux.NewRouter().StrictSlash(true)
	router.HandleFunc("/status", s.handleStatus).Methods("GET")
	router.HandleFunc("/library", s.handleLibrary).Methods("GET")
	router.HandleFunc("/transport/{action:pause|resume|reset|toggle}", s.handleTransport).Methods("POST")
	router.HandleFunc("/rate", s.handleRate).Methods("POST")
	router.HandleFunc("/keys/{pitch:[0-9]+}/{action:down|up}", s.handleKey).Methods("POST")
	router.HandleFunc("/mouse/{pitch:[0-9]+}/{action:down|up}", s.handleKey).Methods("POST")
	router.HandleFunc("/load", s.handleLoad).Methods("POST")

	return cors.New(cors.Options{
		AllowedMethods: []string{http.MethodGet, http.MethodPost},
		AllowedHeaders: []string{"Content-Type"},
	}).Handler(router)
}

// ListenAndServe serves on addr until ctx is done.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{Addr: addr, Handler: s.Handler(), ReadHeaderTimeout: 5 * time.Second}
	go func() {
		<-ctx.Done()
		shutdown, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		srv.Shutdown(shutdown)
	}()

	s.Log.WithField("addr", addr).Info("remote control listening")
	if err := srv.ListenAndServe(); nil != err && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("unable to serve remote control: %w", err)
	}
	return nil
}

func (s *Server) writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); nil != err {
		s.Log.WithError(err).Warn("unable to write response")
	}
}

func (s *Server) push(w http.ResponseWriter, ev input.Event) {
	if !s.Queue.Push(ev) {
		http.Error(w, "too many commands", http.StatusServiceUnavailable)
		return
	}
	s.Log.WithField("kind", ev.Kind).Debug("remote command queued")
	w.WriteHeader(http.StatusAccepted)
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, s.Status.Status())
}

func (s *Server) handleLibrary(w http.ResponseWriter, r *http.Request) {
	if nil == s.Library {
		http.Error(w, "no song library", http.StatusNotFound)
		return
	}
	entries, err := s.Library.Recent(recentLimit)
	if nil != err {
		s.Log.WithError(err).Warn("unable to list library")
		http.Error(w, "unable to list library", http.StatusInternalServerError)
		return
	}
	songs := make([]song, 0, len(entries))
	for _, e := range entries {
		songs = append(songs, song{Title: e.Title, URL: e.URL, Fetched: e.Fetched, Size: e.Size})
	}
	s.writeJSON(w, songs)
}

func (s *Server) handleTransport(w http.ResponseWriter, r *http.Request) {
	kinds := map[string]input.Kind{
		"pause":  input.Halt,
		"resume": input.Resume,
		"reset":  input.Reset,
		"toggle": input.Pause,
	}
	s.push(w, input.Event{Kind: kinds[mux.Vars(r)["action"]]})
}

func (s *Server) handleRate(w http.ResponseWriter, r *http.Request) {
	var req rateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); nil != err || req.Rate <= 0 {
		http.Error(w, "rate must be a positive number", http.StatusBadRequest)
		return
	}
	s.push(w, input.Event{Kind: input.Rate, Value: req.Rate})
}

func (s *Server) handleKey(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	pitch, err := strconv.ParseUint(vars["pitch"], 10, 8)
	if nil != err || pitch > 127 {
		http.Error(w, "pitch must be between 0 and 127", http.StatusBadRequest)
		return
	}
	// clicks on a drawn keyboard hold their own source
	down, up, source := input.KeyDown, input.KeyUp, keys.Remote
	if strings.HasPrefix(r.URL.Path, "/mouse/") {
		down, up, source = input.MouseDown, input.MouseUp, keys.Mouse
	}
	kind := down
	if vars["action"] == "up" {
		kind = up
	}
	s.push(w, input.Event{Kind: kind, Pitch: uint8(pitch), Source: source})
}

func (s *Server) handleLoad(w http.ResponseWriter, r *http.Request) {
	var req loadRequest
	if err := json.NewDecoder(r.Body).Decode(&req); nil != err {
		http.Error(w, "body must be {\"title\", \"url\"}", http.StatusBadRequest)
		return
	}
	u, err := url.Parse(req.URL)
	if nil != err || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		http.Error(w, "url must be absolute http or https", http.StatusBadRequest)
		return
	}
	if req.Title == "" {
		req.Title = u.String()
	}
	s.push(w, input.Event{Kind: input.Load, Title: req.Title, URL: u.String()})
}
