package theme

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"git.lost.host/meutraa/keys/internal/game"
)

type RGB [3]uint8

func (c RGB) Color() lipgloss.Color {
	return lipgloss.Color(fmt.Sprintf("#%02x%02x%02x", c[0], c[1], c[2]))
}

// Scale darkens c towards black, f in [0, 1].
func (c RGB) Scale(f float64) RGB {
	if f < 0 {
		f = 0
	} else if f > 1 {
		f = 1
	}
	return RGB{uint8(float64(c[0]) * f), uint8(float64(c[1]) * f), uint8(float64(c[2]) * f)}
}

type DefaultTheme struct {
	title    lipgloss.Style
	status   lipgloss.Style
	selected lipgloss.Style
	hitField lipgloss.Style
	white    lipgloss.Style
	black    lipgloss.Style
}

func NewDefaultTheme() *DefaultTheme {
	return &DefaultTheme{
		title:    lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#ffffff")),
		status:   lipgloss.NewStyle().Foreground(lipgloss.Color("#888888")),
		selected: lipgloss.NewStyle().Reverse(true),
		hitField: lipgloss.NewStyle().Foreground(lipgloss.Color("#6a6a6a")),
		white:    lipgloss.NewStyle().Foreground(lipgloss.Color("#dddddd")),
		black:    lipgloss.NewStyle().Foreground(lipgloss.Color("#333333")),
	}
}

const (
	noteSym    = "█"
	crossedSym = "▓"
	sustainSym = "│"
	barSym     = "─"
	keySym     = "█"
	effectSym  = "▀"
)

var (
	// One color per pitch class, C first
	noteColors = [12]RGB{
		{236, 30, 0},    // red
		{236, 0, 106},   // pink
		{236, 128, 0},   // orange
		{106, 0, 236},   // purple
		{236, 195, 0},   // yellow
		{0, 236, 128},   // green
		{110, 147, 89},  // olive
		{0, 118, 236},   // blue
		{173, 236, 236}, // light blue
		{236, 106, 106}, // salmon
		{106, 236, 0},   // lime
		{236, 236, 236}, // white
	}
	activeColor = RGB{0, 236, 236}
	judgeColors = map[game.Judgement]RGB{
		game.Perfect:  {0, 236, 128},
		game.Good:     {0, 118, 236},
		game.Miss:     {236, 30, 0},
		game.NoTarget: {106, 106, 106},
	}
)

func NoteColor(pitch uint8) RGB {
	return noteColors[pitch%12]
}

func JudgementColor(j game.Judgement) RGB {
	col, ok := judgeColors[j]
	if !ok {
		return judgeColors[game.NoTarget]
	}
	return col
}

func fg(c RGB) lipgloss.Style {
	return lipgloss.NewStyle().Foreground(c.Color())
}

func (t *DefaultTheme) RenderNote(pitch uint8, crossed bool, width int) string {
	c := NoteColor(pitch)
	sym := noteSym
	if crossed {
		c, sym = c.Scale(0.6), crossedSym
	}
	return fg(c).Render(strings.Repeat(sym, width))
}

func (t *DefaultTheme) RenderSustain(pitch uint8, width int) string {
	if width < 2 {
		return fg(NoteColor(pitch).Scale(0.5)).Render(sustainSym)
	}
	return fg(NoteColor(pitch).Scale(0.5)).Render(sustainSym + strings.Repeat(" ", width-1))
}

func (t *DefaultTheme) RenderHitField(pitch uint8, width int) string {
	return t.hitField.Render(strings.Repeat(barSym, width))
}

func (t *DefaultTheme) RenderKey(pitch uint8, active bool, width int) string {
	s := strings.Repeat(keySym, width)
	switch {
	case active:
		return fg(activeColor).Render(s)
	case game.IsBlack(pitch):
		return t.black.Render(s)
	}
	return t.white.Render(s)
}

func (t *DefaultTheme) RenderEffect(judgement game.Judgement, remaining float64, width int) string {
	return fg(JudgementColor(judgement).Scale(remaining)).Render(strings.Repeat(effectSym, width))
}

func (t *DefaultTheme) RenderTitle(s string) string {
	return t.title.Render(s)
}

func (t *DefaultTheme) RenderStatus(s string) string {
	return t.status.Render(s)
}

func (t *DefaultTheme) RenderSelected(s string) string {
	return t.selected.Render(s)
}

func (t *DefaultTheme) RenderJudgement(judgement game.Judgement, s string) string {
	return fg(JudgementColor(judgement)).Render(s)
}
