package render

import (
	"fmt"
	"image/color"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"golang.org/x/term"

	"git.lost.host/meutraa/keys/internal/theme"
)

type DefaultRenderer struct {
	Out   io.Writer
	Fd    int // Terminal to size and restore, -1 for none
	Theme theme.Theme

	buffer       strings.Builder
	restoreState *term.State
}

func NewDefaultRenderer(th theme.Theme) *DefaultRenderer {
	return &DefaultRenderer{Out: os.Stdout, Fd: int(os.Stdout.Fd()), Theme: th}
}

func (r *DefaultRenderer) Init() error {
	if r.Fd >= 0 && term.IsTerminal(r.Fd) {
		state, err := term.MakeRaw(r.Fd)
		if nil != err {
			return fmt.Errorf("unable to make terminal raw: %w", err)
		}
		r.restoreState = state
	}

	fmt.Fprintf(r.Out, "%s%s%s",
		"\033[?1049h", // Enable alternate buffer
		"\033[?25l",   // Make the cursor invisible
		"\033[J",      // Clear the screen
	)
	return nil
}

func (r *DefaultRenderer) Deinit() error {
	fmt.Fprintf(r.Out, "%s%s",
		"\033[?1049l", // Disable alternate buffer
		"\033[?25h",   // Make the cursor visible
	)
	if nil == r.restoreState {
		return nil
	}
	return term.Restore(r.Fd, r.restoreState)
}

func (r *DefaultRenderer) Size() (int, int, error) {
	columns, rows, err := term.GetSize(r.Fd)
	if nil != err {
		return 0, 0, fmt.Errorf("unable to get terminal size: %w", err)
	}
	return rows, columns, nil
}

// Clear erases the screen on the next flush.
func (r *DefaultRenderer) Clear() {
	r.buffer.WriteString("\033[2J")
}

// RenderLoop calls render once per frame period until it returns false.
func (r *DefaultRenderer) RenderLoop(framePeriod time.Duration, render func(now time.Time) bool) {
	cont := true
	for cont {
		now := time.Now()
		deadline := now.Add(framePeriod)

		cont = render(now)
		r.flush()

		time.Sleep(time.Until(deadline))
	}
}

func (r *DefaultRenderer) Fill(row, column int, message string) {
	r.buffer.WriteString("\033[")
	r.buffer.WriteString(strconv.Itoa(row))
	r.buffer.WriteString(";")
	r.buffer.WriteString(strconv.Itoa(column))
	r.buffer.WriteString("H")
	r.buffer.WriteString(message)
}

func (r *DefaultRenderer) FillColor(row, column int, c color.RGBA, message string) {
	r.buffer.WriteString("\033[")
	r.buffer.WriteString(strconv.Itoa(row))
	r.buffer.WriteString(";")
	r.buffer.WriteString(strconv.Itoa(column))
	r.buffer.WriteString("H\033[38;2;")
	r.buffer.WriteString(strconv.FormatInt(int64(c.R), 10))
	r.buffer.WriteString(";")
	r.buffer.WriteString(strconv.FormatInt(int64(c.G), 10))
	r.buffer.WriteString(";")
	r.buffer.WriteString(strconv.FormatInt(int64(c.B), 10))
	r.buffer.WriteString("m")
	r.buffer.WriteString(message)
	r.buffer.WriteString("\033[0m")
}

func (r *DefaultRenderer) flush() {
	io.WriteString(r.Out, r.buffer.String())
	r.buffer.Reset()
}
