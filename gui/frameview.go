//go:build gui

package gui

import (
	"image/color"
	"sync"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/widget"

	"voxverify/visualizer"
)

const cellSize = 8

// FrameView paints visualizer frames with one rectangle per character
// cell, blending the two pixel rows a terminal half block would show.
type FrameView struct {
	widget.BaseWidget
	mu    sync.Mutex
	frame *visualizer.Frame
	cols  int
	rows  int
}

func NewFrameView(w, h int) *FrameView {
	v := &FrameView{cols: w, rows: (h + 1) / 2}
	v.ExtendBaseWidget(v)
	return v
}

// SetFrame may be called from any goroutine.
func (v *FrameView) SetFrame(f *visualizer.Frame) {
	v.mu.Lock()
	v.frame = f
	v.mu.Unlock()
	fyne.Do(func() {
		v.Refresh()
	})
}

func (v *FrameView) MinSize() fyne.Size {
	return fyne.NewSize(float32(v.cols*cellSize), float32(v.rows*cellSize*2))
}

func (v *FrameView) CreateRenderer() fyne.WidgetRenderer {
	r := &frameRenderer{view: v}
	r.rects = make([][]*canvas.Rectangle, v.rows)
	for y := 0; y < v.rows; y++ {
		r.rects[y] = make([]*canvas.Rectangle, v.cols)
		for x := 0; x < v.cols; x++ {
			r.rects[y][x] = canvas.NewRectangle(color.Black)
		}
	}
	return r
}

type frameRenderer struct {
	view  *FrameView
	rects [][]*canvas.Rectangle
}

func (r *frameRenderer) Layout(size fyne.Size) {
	cellW := size.Width / float32(r.view.cols)
	cellH := size.Height / float32(r.view.rows)
	for y := range r.rects {
		for x := range r.rects[y] {
			r.rects[y][x].Move(fyne.NewPos(float32(x)*cellW, float32(y)*cellH))
			r.rects[y][x].Resize(fyne.NewSize(cellW, cellH))
		}
	}
}

func (r *frameRenderer) MinSize() fyne.Size {
	return r.view.MinSize()
}

func (r *frameRenderer) Refresh() {
	r.view.mu.Lock()
	f := r.view.frame
	r.view.mu.Unlock()
	if f == nil {
		return
	}

	for cy, row := range r.rects {
		for cx, rect := range row {
			// frames of another size are sampled to the grid
			x := cx * f.W / r.view.cols
			top := f.At(x, (cy*2)*f.H/(r.view.rows*2))
			bot := f.At(x, (cy*2+1)*f.H/(r.view.rows*2))
			rect.FillColor = blendColors(paletteColor(f, top), paletteColor(f, bot))
			rect.Refresh()
		}
	}
}

func paletteColor(f *visualizer.Frame, idx uint8) color.RGBA {
	if idx == 0 || int(idx) >= len(f.Palette) {
		return color.RGBA{0, 0, 0, 255}
	}
	c := f.Palette[idx]
	return color.RGBA{c.R, c.G, c.B, 255}
}

func blendColors(top, bot color.RGBA) color.Color {
	return color.RGBA{
		R: uint8((uint16(top.R) + uint16(bot.R)) / 2),
		G: uint8((uint16(top.G) + uint16(bot.G)) / 2),
		B: uint8((uint16(top.B) + uint16(bot.B)) / 2),
		A: 255,
	}
}

func (r *frameRenderer) Objects() []fyne.CanvasObject {
	objs := make([]fyne.CanvasObject, 0, r.view.cols*r.view.rows)
	for _, row := range r.rects {
		for _, rect := range row {
			objs = append(objs, rect)
		}
	}
	return objs
}

func (r *frameRenderer) Destroy() {}
