package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/bep/debounce"
	"github.com/sirupsen/logrus"

	"git.lost.host/meutraa/keys/internal/audio"
	"git.lost.host/meutraa/keys/internal/config"
	"git.lost.host/meutraa/keys/internal/fetch"
	"git.lost.host/meutraa/keys/internal/input"
	"git.lost.host/meutraa/keys/internal/library"
	"git.lost.host/meutraa/keys/internal/loader"
	"git.lost.host/meutraa/keys/internal/logging"
	"git.lost.host/meutraa/keys/internal/parser"
	"git.lost.host/meutraa/keys/internal/remote"
	"git.lost.host/meutraa/keys/internal/render"
	"git.lost.host/meutraa/keys/internal/roll"
	"git.lost.host/meutraa/keys/internal/score"
	"git.lost.host/meutraa/keys/internal/search"
	"git.lost.host/meutraa/keys/internal/session"
	"git.lost.host/meutraa/keys/internal/theme"
	"git.lost.host/meutraa/keys/internal/transport"
)

func main() {
	if err := run(os.Args[1:]); nil != err {
		log.Fatalln(err)
	}
}

func openAudio(c *config.Config, log logrus.FieldLogger) (audio.Player, error) {
	if c.Audio == "none" {
		return audio.Null{}, nil
	}
	out, err := audio.Speaker(c.FramePeriod)
	if nil != err {
		return nil, err
	}
	if c.Audio == "soundfont" {
		sf, err := audio.LoadSoundFont(c.SoundFont)
		if nil != err {
			return nil, err
		}
		player, err := audio.NewSoundFont(sf)
		if nil != err {
			return nil, err
		}
		player.Start(out)
		return player, nil
	}
	return audio.NewSamples(out, c.SampleDir, log), nil
}

func run(args []string) error {
	c, err := config.Parse(args)
	if nil != err {
		return err
	}

	logger, logFile, err := logging.Open(c.LogFile, c.LogLevel)
	if nil != err {
		return err
	}
	defer logFile.Close()
	logger.WithField("version", config.Version).Info("starting")

	player, err := openAudio(c, logger)
	if nil != err {
		return err
	}

	// Ensure our Default implementations are used as interfaces
	var psr parser.Parser = &parser.DefaultParser{}
	var scorer score.Scorer = score.NewDefaultScorer(c.Perfect, c.Tolerance, c.MissWindow, c.Offset)
	var th theme.Theme = theme.NewDefaultTheme()
	var r render.Renderer = render.NewDefaultRenderer(th)

	var fetcher fetch.Fetcher = fetch.NewDefaultFetcher(c.Timeout)
	var songs remote.Songs
	if c.Cache != "" {
		lib, err := library.Open(c.Cache)
		if nil != err {
			return err
		}
		defer lib.Close()
		fetcher = &fetch.CachingFetcher{Fetcher: fetcher, Store: lib, Log: logger}
		songs = lib
	}
	searcher := &search.Client{Base: c.SearchURL, Fetcher: fetch.NewDefaultFetcher(c.Timeout), Log: logger}

	ldr := loader.New(searcher, fetcher, psr, logger)
	defer ldr.Close()

	tr := transport.New(transport.SystemClock{})
	tr.SetRate(c.Rate)
	s := session.New(session.Config{
		MinHold:    c.MinHold,
		EffectLife: c.EffectLife,
		BarRow:     c.BarRow,
		BaseNote:   c.BaseNote,
		Octaves:    c.Octaves,
	}, tr, roll.New(roll.Config{
		Past:      c.Past,
		Future:    c.Future,
		Tolerance: c.Tolerance,
		Speed:     c.ScrollSpeed,
	}), scorer, player, ldr, logger)
	if c.File != "" {
		ldr.LoadFile(c.File)
	}

	// An input device reports the piano keys itself, the terminal then
	// only handles commands and typing.
	var terminalKeys input.KeyMap = c.KeyPitch
	if c.Device != "" {
		terminalKeys = func(rune) (uint8, bool) { return 0, false }
	}
	terminal, err := input.OpenTerminal(terminalKeys, c.KeyHold)
	if nil != err {
		return err
	}
	defer func() {
		if err := terminal.Close(); nil != err {
			logger.WithError(err).Warn("unable to close keyboard")
		}
	}()
	sources := input.Sources{terminal}
	if c.Device != "" {
		device, err := input.OpenEvdev(c.Device, c.KeyPitch, logger)
		if nil != err {
			return err
		}
		defer device.Close()
		sources = append(sources, device)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if c.Listen != "" {
		queue := input.NewQueue(64)
		sources = append(sources, queue)
		srv := &remote.Server{Status: s, Queue: queue, Library: songs, Log: logger}
		go func() {
			if err := srv.ListenAndServe(ctx, c.Listen); nil != err {
				logger.WithError(err).Error("remote control stopped")
			}
		}()
	}

	if err := r.Init(); nil != err {
		return err
	}
	defer func() {
		// Restore the terminal state
		if err := r.Deinit(); nil != err {
			logger.WithError(err).Warn("unable to restore terminal")
		}
	}()

	rows, cols, err := r.Size()
	if nil != err {
		return err
	}
	s.Resize(rows, cols)

	// Resizes arrive in bursts while a window is dragged
	var resized atomic.Bool
	winch := make(chan os.Signal, 1)
	signal.Notify(winch, syscall.SIGWINCH)
	defer signal.Stop(winch)
	debounced := debounce.New(100 * time.Millisecond)
	go func() {
		for range winch {
			debounced(func() { resized.Store(true) })
		}
	}()

	frames := 0
	r.RenderLoop(c.FramePeriod, func(now time.Time) bool {
		if resized.Swap(false) {
			if rows, cols, err := r.Size(); nil == err {
				s.Resize(rows, cols)
				r.Clear()
			}
		}

		view, cont := s.Step(now, sources.Poll(now, s.Focused()))
		r.Draw(s.Layout(), view)
		frames++
		return cont
	})

	logger.WithFields(logrus.Fields{
		"frames": frames,
		"status": fmt.Sprintf("%+v", s.Status()),
	}).Info("stopped")
	return nil
}
