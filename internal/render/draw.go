package render

import (
	"fmt"
	"image/color"
	"math"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"git.lost.host/meutraa/keys/internal/game"
)

const eraseLine = "\033[K"

var progressColor = color.RGBA{R: 200, G: 200, B: 200, A: 255}

// grid is one row of styled cells per screen row of the roll.
type grid struct {
	layout Layout
	cells  map[int][]string
}

func (g *grid) set(row int, pitch uint8, cell string) {
	if row < topRow || row > g.layout.HitRow+1 {
		return
	}
	if _, ok := g.layout.Column(pitch); !ok {
		return
	}
	line, ok := g.cells[row]
	if !ok {
		line = make([]string, int(g.layout.High-g.layout.Low)+1)
		g.cells[row] = line
	}
	line[pitch-g.layout.Low] = cell
}

func (g *grid) line(row int) string {
	var b strings.Builder
	blank := strings.Repeat(" ", g.layout.KeyWidth)
	for i, c := range g.cells[row] {
		if _, ok := g.layout.Column(g.layout.Low + uint8(i)); !ok {
			break
		}
		if c == "" {
			c = blank
		}
		b.WriteString(c)
	}
	return b.String()
}

func formatTime(d time.Duration) string {
	d = d.Round(time.Second)
	return fmt.Sprintf("%d:%02d", int(d.Minutes()), int(d.Seconds())%60)
}

// truncate cuts s to at most width cells.
func truncate(s string, width int) string {
	if width <= 0 {
		return ""
	}
	if lipgloss.Width(s) <= width {
		return s
	}
	runes := []rune(s)
	for len(runes) > 0 && lipgloss.Width(string(runes)) > width {
		runes = runes[:len(runes)-1]
	}
	return string(runes)
}

// Draw writes a full frame. Each row is rewritten and erased to its end, so
// nothing from the previous frame survives.
func (r *DefaultRenderer) Draw(l Layout, v *View) {
	th := r.Theme

	state := "playing"
	if v.Paused {
		state = "paused"
	}
	header := fmt.Sprintf("%v / %v  %v  x%.2f", formatTime(v.SongTime), formatTime(v.Length), state, v.Rate)
	r.Fill(1, 1, th.RenderTitle(truncate(v.Title, l.Cols-lipgloss.Width(header)-2))+"  "+th.RenderStatus(header)+eraseLine)

	r.Fill(2, 1, eraseLine)
	if v.Length > 0 {
		done := clamp(int(math.Round(float64(l.Cols)*float64(v.SongTime)/float64(v.Length))), 0, l.Cols)
		if done > 0 {
			r.FillColor(2, 1, progressColor, strings.Repeat("━", done))
		}
	}

	g := &grid{layout: l, cells: map[int][]string{}}
	for p := l.Low; ; p++ {
		g.set(l.HitRow, p, th.RenderHitField(p, l.KeyWidth))
		if p == l.High {
			break
		}
	}
	for _, n := range v.Notes {
		head := int(math.Round(n.Y))
		tail := int(math.Round(n.EndY))
		for row := clamp(tail, topRow, l.HitRow); row < head && row <= l.HitRow; row++ {
			g.set(row, n.Note.Pitch, th.RenderSustain(n.Note.Pitch, l.KeyWidth))
		}
		if head <= l.HitRow {
			g.set(head, n.Note.Pitch, th.RenderNote(n.Note.Pitch, n.Crossed, l.KeyWidth))
		}
	}
	for _, e := range v.Effects {
		g.set(l.HitRow+1, e.Pitch, th.RenderEffect(e.Judgement, e.Remaining, l.KeyWidth))
	}

	for row := topRow; row <= l.HitRow+1 && row <= l.Rows; row++ {
		r.Fill(row, 1, eraseLine)
		r.Fill(row, l.Left, g.line(row))
	}

	active := map[uint8]bool{}
	for _, p := range v.Active {
		active[p] = true
	}
	for i, row := range []int{l.HitRow + 2, l.HitRow + 3} {
		if row > l.Rows {
			break
		}
		var b strings.Builder
		for p := l.Low; ; p++ {
			if _, ok := l.Column(p); !ok {
				break
			}
			// the lower row only shows white keys
			if i == 1 && game.IsBlack(p) {
				b.WriteString(strings.Repeat(" ", l.KeyWidth))
			} else {
				b.WriteString(th.RenderKey(p, active[p], l.KeyWidth))
			}
			if p == l.High {
				break
			}
		}
		r.Fill(row, 1, eraseLine)
		r.Fill(row, l.Left, b.String())
	}

	if row := l.HitRow + 4; row <= l.Rows {
		var b strings.Builder
		width := 0
		// whole segments only, a styled string cannot be cut
		add := func(s string, style func(string) string) {
			if width+lipgloss.Width(s) > l.Cols {
				width = l.Cols
				return
			}
			width += lipgloss.Width(s)
			b.WriteString(style(s))
		}
		for _, j := range []game.Judgement{game.Perfect, game.Good, game.Miss, game.NoTarget} {
			add(fmt.Sprintf("%v: %-4v ", j, v.Tally.Counts[j]), func(s string) string {
				return th.RenderJudgement(j, s)
			})
		}
		add(fmt.Sprintf(" Mean: %6.1f ms", float64(v.Tally.Mean())/float64(time.Millisecond)), th.RenderStatus)
		add(fmt.Sprintf("  Stdev: %6.1f ms", float64(v.Tally.Stdev())/float64(time.Millisecond)), th.RenderStatus)
		r.Fill(row, 1, b.String()+eraseLine)
	}
	if row := l.HitRow + 5; row <= l.Rows {
		r.Fill(row, 1, th.RenderStatus(truncate(v.Status, l.Cols))+eraseLine)
	}

	if v.Overlay.Open {
		r.drawOverlay(l, &v.Overlay)
	}
}

func (r *DefaultRenderer) drawOverlay(l Layout, o *Overlay) {
	th := r.Theme
	width := clamp(l.Cols-4, 10, 72)
	left := clamp((l.Cols-width)/2+1, 1, l.Cols)
	pad := func(s string) string {
		s = truncate(s, width)
		return s + strings.Repeat(" ", width-lipgloss.Width(s))
	}

	row := topRow + 1
	r.Fill(row, left, th.RenderSelected(pad(" Search: "+o.Query+"_")))
	row++

	status := " enter to search, esc to close"
	switch {
	case o.Searching:
		status = " searching..."
	case len(o.Results) > 0:
		status = " up/down to choose, enter to load"
	}
	r.Fill(row, left, th.RenderStatus(pad(status)))
	row++

	for i, res := range o.Results {
		if row >= l.HitRow {
			break
		}
		line := pad(fmt.Sprintf(" %2d) %v", i+1, res.Title))
		if i == o.Selected {
			line = th.RenderSelected(line)
		}
		r.Fill(row, left, line)
		row++
	}
}
