package render

import (
	"image/color"
	"time"
)

type Renderer interface {
	Init() error
	Deinit() error
	Size() (rows, cols int, err error)
	Clear()
	RenderLoop(framePeriod time.Duration, render func(now time.Time) bool)
	Fill(row, column int, message string)
	FillColor(row, column int, color color.RGBA, message string)
	Draw(layout Layout, view *View)
}
