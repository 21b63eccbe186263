// Package config reads the command line and the optional YAML config file.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/alecthomas/kingpin.v2"
	"gopkg.in/yaml.v3"
)

const Version = "0.3.0"

var ErrInvalid = errors.New("invalid configuration")

type Config struct {
	File       string `yaml:"-"` // MIDI file to open at startup
	ConfigFile string `yaml:"-"`

	Rate        float64       `yaml:"rate"`
	Offset      time.Duration `yaml:"offset"`
	ScrollSpeed float64       `yaml:"scroll-speed"` // Rows per second
	BarRow      uint          `yaml:"bar-row"`      // Rows from the bottom
	FramePeriod time.Duration `yaml:"frame-period"`

	Keys     string `yaml:"keys"`   // One rune per semitone from BaseNote
	Device   string `yaml:"device"` // Linux input device for real key releases
	BaseNote uint8  `yaml:"base-note"`
	Octaves  uint   `yaml:"octaves"`

	Tolerance  time.Duration `yaml:"tolerance"`
	Perfect    time.Duration `yaml:"perfect"`
	MissWindow time.Duration `yaml:"miss-window"`
	Past       time.Duration `yaml:"past"`
	Future     time.Duration `yaml:"future"`
	KeyHold    time.Duration `yaml:"key-hold"` // Terminal keys release after this
	MinHold    time.Duration `yaml:"min-hold"` // Shortest roll highlight
	EffectLife time.Duration `yaml:"effect-life"`

	Audio     string `yaml:"audio"` // samples, soundfont or none
	SampleDir string `yaml:"sample-dir"`
	SoundFont string `yaml:"soundfont"`

	SearchURL string        `yaml:"search-url"`
	Timeout   time.Duration `yaml:"timeout"`
	Cache     string        `yaml:"cache"` // SQLite song cache, empty disables
	Listen    string        `yaml:"listen"`

	LogFile  string `yaml:"log-file"`
	LogLevel string `yaml:"log-level"`
}

func Default() *Config {
	return &Config{
		Rate:        1.0,
		ScrollSpeed: 8,
		BarRow:      6,
		FramePeriod: 16 * time.Millisecond,
		Keys:        "awsedftgyhujkolp;'",
		BaseNote:    60,
		Octaves:     2,
		Tolerance:   100 * time.Millisecond,
		Perfect:     40 * time.Millisecond,
		MissWindow:  250 * time.Millisecond,
		Past:        time.Second,
		Future:      4 * time.Second,
		KeyHold:     180 * time.Millisecond,
		MinHold:     120 * time.Millisecond,
		EffectLife:  400 * time.Millisecond,
		Audio:       "samples",
		SampleDir:   "sounds",
		SearchURL:   "https://freemidi.org",
		Timeout:     10 * time.Second,
		Cache:       "songs.db",
		LogFile:     "keys.log",
		LogLevel:    "info",
	}
}

func ftoa(f float64) string {
	return strconv.FormatFloat(f, 'g', -1, 64)
}

func utoa(u uint64) string {
	return strconv.FormatUint(u, 10)
}

// newApp binds every flag to c, using the current values of c as defaults.
func newApp(c *Config) *kingpin.Application {
	app := kingpin.New("keys", "Terminal piano trainer")
	app.Version(Version)
	app.HelpFlag.Short('h')

	app.Arg("file", "MIDI file to open").StringVar(&c.File)
	app.Flag("config", "YAML config file").Short('c').StringVar(&c.ConfigFile)

	app.Flag("rate", "Playback speed").Default(ftoa(c.Rate)).Short('r').Float64Var(&c.Rate)
	app.Flag("offset", "Global input offset").Default(c.Offset.String()).Short('o').DurationVar(&c.Offset)
	app.Flag("scroll-speed", "Rows per second").Default(ftoa(c.ScrollSpeed)).Short('s').Float64Var(&c.ScrollSpeed)
	app.Flag("bar-row", "Rows between the hit line and the bottom").Default(utoa(uint64(c.BarRow))).UintVar(&c.BarRow)
	app.Flag("frame-period", "Render frame period").Default(c.FramePeriod.String()).Short('p').DurationVar(&c.FramePeriod)

	app.Flag("keys", "Keys from the base note up, one per semitone").Default(c.Keys).Short('k').StringVar(&c.Keys)
	app.Flag("device", "Read the piano keys from this input device, e.g. /dev/input/event3, for exact releases and fast re-presses").Default(c.Device).StringVar(&c.Device)
	app.Flag("base-note", "MIDI note of the first key").Default(utoa(uint64(c.BaseNote))).Uint8Var(&c.BaseNote)
	app.Flag("octaves", "Octaves drawn when the song does not need more").Default(utoa(uint64(c.Octaves))).UintVar(&c.Octaves)

	app.Flag("tolerance", "Hit line window").Default(c.Tolerance.String()).DurationVar(&c.Tolerance)
	app.Flag("perfect", "Perfect window").Default(c.Perfect.String()).DurationVar(&c.Perfect)
	app.Flag("miss-window", "Presses further away have no target").Default(c.MissWindow.String()).DurationVar(&c.MissWindow)
	app.Flag("past", "How long played notes stay visible").Default(c.Past.String()).DurationVar(&c.Past)
	app.Flag("future", "How far ahead notes are visible").Default(c.Future.String()).DurationVar(&c.Future)
	app.Flag("key-hold", "How long a terminal key stays down. A re-press inside it counts as a repeat, use --device to avoid that").Default(c.KeyHold.String()).DurationVar(&c.KeyHold)
	app.Flag("min-hold", "Shortest highlight of a played note").Default(c.MinHold.String()).DurationVar(&c.MinHold)
	app.Flag("effect-life", "How long hit effects last").Default(c.EffectLife.String()).DurationVar(&c.EffectLife)

	app.Flag("audio", "Audio backend").Default(c.Audio).Short('a').EnumVar(&c.Audio, "samples", "soundfont", "none")
	app.Flag("sample-dir", "Directory of note samples").Default(c.SampleDir).StringVar(&c.SampleDir)
	app.Flag("soundfont", "SoundFont for the soundfont backend").Default(c.SoundFont).StringVar(&c.SoundFont)

	app.Flag("search-url", "Song search site").Default(c.SearchURL).StringVar(&c.SearchURL)
	app.Flag("timeout", "Network timeout").Default(c.Timeout.String()).DurationVar(&c.Timeout)
	app.Flag("cache", "Downloaded song cache, empty to disable").Default(c.Cache).StringVar(&c.Cache)
	app.Flag("listen", "Remote control address, empty to disable").Default(c.Listen).Short('l').StringVar(&c.Listen)

	app.Flag("log-file", "Log file").Default(c.LogFile).StringVar(&c.LogFile)
	app.Flag("log-level", "Log level").Default(c.LogLevel).EnumVar(&c.LogLevel, "debug", "info", "warn", "error")

	return app
}

// Load reads a YAML config file over c.
func Load(c *Config, file string) error {
	data, err := os.ReadFile(file)
	if nil != err {
		return fmt.Errorf("unable to read config: %w", err)
	}
	if err := yaml.Unmarshal(data, c); nil != err {
		return fmt.Errorf("unable to parse config %v: %w", file, err)
	}
	return nil
}

// Parse builds the configuration from the defaults, then the config file
// named by --config, then the remaining flags.
func Parse(args []string) (*Config, error) {
	first := Default()
	if _, err := newApp(first).Parse(args); nil != err {
		return nil, err
	}

	c := Default()
	if first.ConfigFile != "" {
		if err := Load(c, first.ConfigFile); nil != err {
			return nil, err
		}
	}
	if _, err := newApp(c).Parse(args); nil != err {
		return nil, err
	}

	if err := c.Validate(); nil != err {
		return nil, err
	}
	return c, nil
}

func (c *Config) Validate() error {
	switch {
	case c.Rate <= 0:
		return fmt.Errorf("%w: rate must be positive", ErrInvalid)
	case c.ScrollSpeed <= 0:
		return fmt.Errorf("%w: scroll speed must be positive", ErrInvalid)
	case c.FramePeriod <= 0:
		return fmt.Errorf("%w: frame period must be positive", ErrInvalid)
	case c.Perfect > c.Tolerance || c.Tolerance > c.MissWindow:
		return fmt.Errorf("%w: windows must satisfy perfect <= tolerance <= miss window", ErrInvalid)
	case c.FramePeriod >= c.Tolerance:
		return fmt.Errorf("%w: frame period must be shorter than the tolerance", ErrInvalid)
	case c.Octaves == 0:
		return fmt.Errorf("%w: at least one octave", ErrInvalid)
	case int(c.BaseNote)+len([]rune(c.Keys)) > 128:
		return fmt.Errorf("%w: keys run past the last MIDI note", ErrInvalid)
	}
	return nil
}

// KeyPitch maps a key of the key row to its MIDI note.
func (c *Config) KeyPitch(r rune) (uint8, bool) {
	for i, k := range []rune(c.Keys) {
		if r == k {
			return c.BaseNote + uint8(i), true
		}
	}
	return 0, false
}
